package taxonomy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	// failFor lists query terms whose lookup fails.
	failFor map[string]bool
	queries []string
}

func (f *fakeResolver) Resolve(ctx context.Context, organism string) (*Taxon, error) {
	f.queries = append(f.queries, organism)
	if f.failFor[organism] {
		return nil, errors.New("no taxon id found")
	}
	return &Taxon{Rank: "species", SciName: organism}, nil
}

func makeDataset(t *testing.T, dirs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0755))
	}
	return root
}

func TestSyncRetrievesNewDirectories(t *testing.T) {
	dataset := makeDataset(t, "Asellus_aquaticus", "Baetis_sp", "Chelifera")
	resolver := &fakeResolver{}
	syncer := &Syncer{
		Resolver:   resolver,
		Store:      NewStore(filepath.Join(t.TempDir(), "taxonomy.json")),
		DatasetDir: dataset,
	}

	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Retrieved, 3)
	assert.Empty(t, result.Failed)
	assert.Zero(t, result.Cached)

	// Query terms are normalized; cache keys are not.
	assert.Equal(t, []string{"Asellus+aquaticus", "Baetis", "Chelifera"}, resolver.queries)

	records, err := syncer.Store.Load()
	require.NoError(t, err)
	assert.Contains(t, records, "Baetis_sp")
}

func TestSyncSkipsCachedDirectories(t *testing.T) {
	dataset := makeDataset(t, "Asellus_aquaticus", "Chelifera")
	store := NewStore(filepath.Join(t.TempDir(), "taxonomy.json"))
	require.NoError(t, store.Save(map[string]*Taxon{
		"Asellus_aquaticus": {Rank: "species"},
	}))

	resolver := &fakeResolver{}
	syncer := &Syncer{Resolver: resolver, Store: store, DatasetDir: dataset}

	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Cached)
	assert.Equal(t, []string{"Chelifera"}, resolver.queries)
}

func TestSyncRecordsFailuresAndContinues(t *testing.T) {
	dataset := makeDataset(t, "Axellus_aquaticus", "Chelifera")
	resolver := &fakeResolver{failFor: map[string]bool{"Axellus+aquaticus": true}}
	store := NewStore(filepath.Join(t.TempDir(), "taxonomy.json"))
	syncer := &Syncer{Resolver: resolver, Store: store, DatasetDir: dataset}

	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Axellus_aquaticus"}, result.Failed)
	assert.Equal(t, []string{"Chelifera"}, result.Retrieved)

	// Successful records are saved even when others failed.
	records, err := store.Load()
	require.NoError(t, err)
	assert.Contains(t, records, "Chelifera")
	assert.NotContains(t, records, "Axellus_aquaticus")
}

func TestFixStoresUnderOriginalName(t *testing.T) {
	resolver := &fakeResolver{}
	store := NewStore(filepath.Join(t.TempDir(), "taxonomy.json"))
	syncer := &Syncer{Resolver: resolver, Store: store}

	err := syncer.Fix(context.Background(), "Axellus_aquaticus", "Asellus_aquaticus")
	require.NoError(t, err)

	assert.Equal(t, []string{"Asellus+aquaticus"}, resolver.queries)

	records, err := store.Load()
	require.NoError(t, err)
	assert.Contains(t, records, "Axellus_aquaticus")
}

func TestSyncProgressCallback(t *testing.T) {
	dataset := makeDataset(t, "Asellus_aquaticus", "Chelifera")
	var seen []string
	syncer := &Syncer{
		Resolver:   &fakeResolver{},
		Store:      NewStore(filepath.Join(t.TempDir(), "taxonomy.json")),
		DatasetDir: dataset,
		OnOrganism: func(name string) { seen = append(seen, name) },
	}

	_, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Asellus_aquaticus", "Chelifera"}, seen)
}
