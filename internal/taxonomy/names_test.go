package taxonomy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPreprocessName(t *testing.T) {
	tests := []struct {
		dirName string
		want    string
	}{
		{"Asellus_aquaticus", "Asellus+aquaticus"},
		{"Chelifera", "Chelifera"},
		{"Ephemerella_aroni_aurivillii", "Ephemerella+aurivillii"},
		{"Baetis_sp", "Baetis"},
		{"Gammarus_adult", "Gammarus"},
		{"Tipula_larva", "Tipula"},
		{"Hydropsyche_sp_larva", "Hydropsyche"},
	}

	for _, tt := range tests {
		t.Run(tt.dirName, func(t *testing.T) {
			if got := PreprocessName(tt.dirName); got != tt.want {
				t.Errorf("PreprocessName(%q) = %q, want %q", tt.dirName, got, tt.want)
			}
		})
	}
}

func TestDatasetNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Baetis_rhodani", "Asellus_aquaticus"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	// Top-level files are not organisms.
	if err := os.WriteFile(filepath.Join(dir, "labels.csv"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	names, err := DatasetNames(dir)
	if err != nil {
		t.Fatalf("DatasetNames() error = %v", err)
	}

	want := []string{"Asellus_aquaticus", "Baetis_rhodani"}
	if len(names) != len(want) {
		t.Fatalf("DatasetNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("DatasetNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestDatasetNamesMissingDir(t *testing.T) {
	if _, err := DatasetNames(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("DatasetNames() expected error for missing directory")
	}
}
