package taxonomy

import (
	"context"
	"fmt"

	"github.com/riffle-ml/riffle/internal/logger"
)

// Resolver looks up an organism's lineage record by name. Implemented by
// Client; faked in tests.
type Resolver interface {
	Resolve(ctx context.Context, organism string) (*Taxon, error)
}

// Result summarizes one sync run.
type Result struct {
	// Retrieved lists directory names whose records were fetched.
	Retrieved []string

	// Failed lists directory names whose lookup failed (typically
	// misspelled names; candidates for the fix command).
	Failed []string

	// Cached is the number of directories that already had records.
	Cached int
}

// Syncer retrieves lineage records for every dataset directory that does
// not have one yet.
type Syncer struct {
	Resolver   Resolver
	Store      *Store
	DatasetDir string

	// OnOrganism, when set, is called before each lookup. Used by the
	// CLI for progress display.
	OnOrganism func(dirName string)
}

// Sync walks the dataset, fetches records for new directories, and saves
// the updated cache.
//
// Individual lookup failures do not abort the run: the remaining
// directories are still synced and the failures are reported in the
// result. The cache is saved even when some lookups failed, so a rerun
// only retries the failures.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	records, err := s.Store.Load()
	if err != nil {
		return nil, err
	}

	names, err := DatasetNames(s.DatasetDir)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var pending []string
	for _, name := range names {
		if _, ok := records[name]; ok {
			result.Cached++
		} else {
			pending = append(pending, name)
		}
	}

	logger.Info("Found %d dataset directories: %d cached, %d to retrieve",
		len(names), result.Cached, len(pending))

	for _, dirName := range pending {
		if err := ctx.Err(); err != nil {
			// Save what we have before bailing out.
			if saveErr := s.Store.Save(records); saveErr != nil {
				logger.Error("Failed to save taxonomy cache: %v", saveErr)
			}
			return result, fmt.Errorf("sync cancelled: %w", err)
		}

		if s.OnOrganism != nil {
			s.OnOrganism(dirName)
		}

		// The cache is keyed by directory name; only the query term
		// is normalized.
		taxon, err := s.Resolver.Resolve(ctx, PreprocessName(dirName))
		if err != nil {
			logger.Warn("Failed to retrieve data for directory %q: %v", dirName, err)
			result.Failed = append(result.Failed, dirName)
			continue
		}

		records[dirName] = taxon
		result.Retrieved = append(result.Retrieved, dirName)
	}

	if err := s.Store.Save(records); err != nil {
		return result, err
	}

	return result, nil
}

// Fix records the lineage of a misspelled directory under its original
// name, using the corrected spelling for the lookup. This keeps the cache
// keyed by what is actually on disk without renaming dataset directories,
// which would invalidate extracted archives.
func (s *Syncer) Fix(ctx context.Context, original, corrected string) error {
	taxon, err := s.Resolver.Resolve(ctx, PreprocessName(corrected))
	if err != nil {
		return fmt.Errorf("lookup for corrected name %q failed: %w", corrected, err)
	}

	records, err := s.Store.Load()
	if err != nil {
		return err
	}

	records[original] = taxon
	return s.Store.Save(records)
}
