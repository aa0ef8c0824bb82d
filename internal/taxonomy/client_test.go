package taxonomy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffle-ml/riffle/internal/config"
)

const efetchDoc = `<?xml version="1.0"?>
<TaxaSet>
  <Taxon>
    <TaxId>92525</TaxId>
    <ScientificName>Asellus aquaticus</ScientificName>
    <Rank>species</Rank>
    <LineageEx>
      <Taxon>
        <TaxId>6657</TaxId>
        <ScientificName>Crustacea</ScientificName>
        <Rank>clade</Rank>
      </Taxon>
      <Taxon>
        <TaxId>13791</TaxId>
        <ScientificName>Isopoda</ScientificName>
        <Rank>order</Rank>
      </Taxon>
      <Taxon>
        <TaxId>30296</TaxId>
        <ScientificName>Asellidae</ScientificName>
        <Rank>family</Rank>
      </Taxon>
      <Taxon>
        <TaxId>92524</TaxId>
        <ScientificName>Asellus</ScientificName>
        <Rank>genus</Rank>
      </Taxon>
      <Taxon>
        <TaxId>92526</TaxId>
        <ScientificName>Pancrustacea</ScientificName>
        <Rank>clade</Rank>
      </Taxon>
    </LineageEx>
  </Taxon>
</TaxaSet>`

// testClient returns a client pointed at the given handler with
// non-sleeping retries.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.TaxonomyConfig{
		Email: "someone@example.org",
		Tool:  "riffle",
	})
	c.BaseURL = srv.URL + "/"
	c.sleep = func(time.Duration) {}
	return c
}

func TestSpeciesID(t *testing.T) {
	tests := []struct {
		name    string
		idlist  string
		want    int
		wantErr string
	}{
		{"single id", `["92525"]`, 92525, ""},
		{"empty list", `[]`, 0, "no taxon id"},
		{"multiple ids", `["1","2"]`, 0, "expected one taxon id"},
		{"non-numeric id", `["abc"]`, 0, "not numeric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/esearch.fcgi", r.URL.Path)
				assert.Equal(t, "taxonomy", r.URL.Query().Get("db"))
				assert.Equal(t, "riffle", r.URL.Query().Get("tool"))
				w.Write([]byte(`{"esearchresult":{"idlist":` + tt.idlist + `}}`))
			}))

			got, err := c.SpeciesID(context.Background(), "Asellus+aquaticus")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLineage(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/efetch.fcgi", r.URL.Path)
		assert.Equal(t, "92525", r.URL.Query().Get("id"))
		w.Write([]byte(efetchDoc))
	}))

	taxon, err := c.Lineage(context.Background(), 92525)
	require.NoError(t, err)

	assert.Equal(t, "species", taxon.Rank)
	assert.Equal(t, "Asellus aquaticus", taxon.SciName)
	assert.Equal(t, 92525, taxon.TaxonID)

	assert.Equal(t, []RankEntry{{SciName: "Isopoda", TaxonID: 13791}}, taxon.Lineage["order"])
	assert.Equal(t, []RankEntry{{SciName: "Asellidae", TaxonID: 30296}}, taxon.Lineage["family"])
	assert.Equal(t, []RankEntry{{SciName: "Asellus", TaxonID: 92524}}, taxon.Lineage["genus"])

	// Repeated ranks are preserved, in document order.
	require.Len(t, taxon.Lineage["clade"], 2)
	assert.Equal(t, "Crustacea", taxon.Lineage["clade"][0].SciName)
	assert.Equal(t, "Pancrustacea", taxon.Lineage["clade"][1].SciName)
}

func TestGetRetriesThenSucceeds(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"esearchresult":{"idlist":["7"]}}`))
	}))

	var sleeps int
	c.sleep = func(d time.Duration) {
		sleeps++
		assert.Equal(t, c.RetryInterval, d)
	}

	id, err := c.SpeciesID(context.Background(), "Baetis")
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, sleeps)
}

func TestGetExhaustsRetries(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.SpeciesID(context.Background(), "Baetis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 4 attempts")
	assert.Equal(t, 4, calls, "initial request plus MaxAttempts retries")
}
