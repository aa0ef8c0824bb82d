// Package taxonomy retrieves taxonomic lineage data for the image dataset.
//
// The dataset stores images in per-organism directories named Genus_species.
// This package resolves those names against the NCBI eutils API (esearch for
// the taxon id, efetch for the lineage) and caches the results in a JSON
// file next to the dataset, so a full sync only queries organisms that have
// not been seen before.
//
// API docs: https://www.ncbi.nlm.nih.gov/books/NBK25499/
package taxonomy

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/riffle-ml/riffle/internal/config"
	"github.com/riffle-ml/riffle/internal/logger"
)

const (
	// DefaultBaseURL is the NCBI eutils endpoint prefix.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

	// defaultMaxAttempts is the number of retries after a failed request.
	defaultMaxAttempts = 3

	// defaultRetryInterval is the pause before retrying a failed request.
	defaultRetryInterval = time.Second

	// defaultTimeout bounds each individual HTTP request.
	defaultTimeout = 10 * time.Second
)

// RankEntry identifies one taxon within a lineage.
type RankEntry struct {
	SciName string `json:"sci_name"`
	TaxonID int    `json:"taxon_id"`
}

// Taxon is the retrieved lineage record for an organism.
//
// Lineage maps rank name to the taxa holding that rank. It is a multimap
// because some ranks (notably "clade") appear several times in a lineage.
// All lineage entries are preserved as returned; filtering to the ranks a
// model actually trains on happens downstream.
type Taxon struct {
	Rank    string                 `json:"rank"`
	SciName string                 `json:"sci_name"`
	TaxonID int                    `json:"taxon_id"`
	Lineage map[string][]RankEntry `json:"lineage"`
}

// Client queries the NCBI eutils API with bounded retries.
//
// Transient request failures are retried up to MaxAttempts times with a
// constant pause between tries, mirroring the readiness polling budget
// shape used elsewhere in riffle.
type Client struct {
	// BaseURL is the eutils endpoint prefix.
	BaseURL string

	// Email and Tool identify the caller to NCBI, per their guidelines.
	Email string
	Tool  string

	// MaxAttempts is the number of retries after the initial request.
	MaxAttempts int

	// RetryInterval is the constant pause between tries.
	RetryInterval time.Duration

	httpClient *http.Client

	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// NewClient creates an NCBI client from the taxonomy configuration.
func NewClient(cfg config.TaxonomyConfig) *Client {
	return &Client{
		BaseURL:       DefaultBaseURL,
		Email:         cfg.Email,
		Tool:          cfg.Tool,
		MaxAttempts:   defaultMaxAttempts,
		RetryInterval: defaultRetryInterval,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		sleep:         time.Sleep,
	}
}

// Resolve looks up an organism by name and returns its lineage record.
func (c *Client) Resolve(ctx context.Context, organism string) (*Taxon, error) {
	taxid, err := c.SpeciesID(ctx, organism)
	if err != nil {
		return nil, err
	}
	return c.Lineage(ctx, taxid)
}

// SpeciesID resolves an organism name to its NCBI taxon id via esearch.
//
// The query is expected to match exactly one taxon; zero or several
// matches are errors, usually from a misspelled directory name; see
// the taxonomy fix command.
func (c *Client) SpeciesID(ctx context.Context, organism string) (int, error) {
	params := url.Values{
		"db":      {"taxonomy"},
		"term":    {organism},
		"rettype": {"uilist"},
		"retmode": {"json"},
	}

	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return 0, err
	}

	var result struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to parse esearch response: %w", err)
	}

	ids := result.ESearchResult.IDList
	if len(ids) == 0 {
		return 0, fmt.Errorf("no taxon id found for %q", organism)
	}
	if len(ids) > 1 {
		return 0, fmt.Errorf("expected one taxon id for %q, got %d", organism, len(ids))
	}

	taxid, err := strconv.Atoi(ids[0])
	if err != nil {
		return 0, fmt.Errorf("taxon id %q for %q is not numeric", ids[0], organism)
	}

	return taxid, nil
}

// Lineage fetches the full lineage record for a taxon id via efetch.
func (c *Client) Lineage(ctx context.Context, taxid int) (*Taxon, error) {
	params := url.Values{
		"db": {"taxonomy"},
		"id": {strconv.Itoa(taxid)},
	}

	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var set struct {
		Taxa []taxonElement `xml:"Taxon"`
	}
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to parse efetch response: %w", err)
	}
	if len(set.Taxa) == 0 {
		return nil, fmt.Errorf("efetch returned no taxon for id %d", taxid)
	}

	root := set.Taxa[0]
	taxon := &Taxon{
		Rank:    root.Rank,
		SciName: root.ScientificName,
		TaxonID: root.TaxID,
		Lineage: make(map[string][]RankEntry),
	}
	for _, ancestor := range root.LineageEx {
		taxon.Lineage[ancestor.Rank] = append(taxon.Lineage[ancestor.Rank], RankEntry{
			SciName: ancestor.ScientificName,
			TaxonID: ancestor.TaxID,
		})
	}

	return taxon, nil
}

// taxonElement mirrors the Taxon element of the efetch XML document.
type taxonElement struct {
	TaxID          int            `xml:"TaxId"`
	ScientificName string         `xml:"ScientificName"`
	Rank           string         `xml:"Rank"`
	LineageEx      []taxonElement `xml:"LineageEx>Taxon"`
}

// get performs a GET against an eutils endpoint with the retry budget.
//
// Every request carries the configured email and tool identifiers. A
// non-2xx status or transport error consumes one attempt; the last
// failure is returned unretried.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params = cloneValues(params)
	if c.Email != "" {
		params.Set("mail", c.Email)
	}
	if c.Tool != "" {
		params.Set("tool", c.Tool)
	}

	reqURL := c.BaseURL + endpoint + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.MaxAttempts; attempt++ {
		body, err := c.doRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		if attempt < c.MaxAttempts {
			logger.Warn("Connection issue (%v), waiting %s and trying again...",
				err, c.RetryInterval)
			c.sleep(c.RetryInterval)
		}
	}

	return nil, fmt.Errorf("request to %s failed after %d attempts: %w",
		endpoint, c.MaxAttempts+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func cloneValues(in url.Values) url.Values {
	out := make(url.Values, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
