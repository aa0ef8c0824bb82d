package taxonomy

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// nameNoise strips the life-stage and uncertainty suffixes that show up in
// dataset directory names but mean nothing to the taxonomy database.
var nameNoise = regexp.MustCompile(`_sp|_adult|_larva`)

// PreprocessName turns a dataset directory name into an NCBI query term.
//
// Directory names follow the Genus_species convention, sometimes with
// extra parts or suffixes ("Baetis_sp", "Gammarus_adult",
// "Ephemerella_aroni_aurivillii"). Noise suffixes are removed, and for
// multi-part names the first and last parts are joined with "+" as the
// query term. Misspelled names still fail lookup; those are handled
// interactively by the fix command, not guessed at here.
func PreprocessName(dirName string) string {
	parts := strings.Split(nameNoise.ReplaceAllString(dirName, ""), "_")
	if len(parts) > 1 {
		return parts[0] + "+" + parts[len(parts)-1]
	}
	return parts[0]
}

// DatasetNames lists the organism directories of the dataset, sorted.
//
// Images are expected under one directory per organism; regular files at
// the top level are ignored.
func DatasetNames(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory %s: %w", path, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}
