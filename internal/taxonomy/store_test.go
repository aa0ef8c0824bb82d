package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "taxonomy.json"))

	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "taxonomy.json"))

	records := map[string]*Taxon{
		"Asellus_aquaticus": {
			Rank:    "species",
			SciName: "Asellus aquaticus",
			TaxonID: 92525,
			Lineage: map[string][]RankEntry{
				"order": {{SciName: "Isopoda", TaxonID: 13791}},
				"clade": {
					{SciName: "Crustacea", TaxonID: 6657},
					{SciName: "Pancrustacea", TaxonID: 92526},
				},
			},
		},
	}
	require.NoError(t, store.Save(records))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestStoreLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.json")
	store := NewStore(path)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := store.Load()
	assert.Error(t, err)
}
