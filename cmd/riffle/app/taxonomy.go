package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/riffle-ml/riffle/internal/taxonomy"
)

// NewTaxonomyCommand creates the taxonomy command group.
//
// The taxonomy commands maintain the dataset's lineage metadata: sync
// fetches records for new organism directories from NCBI, fix resolves
// directories whose names are misspelled.
func NewTaxonomyCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Manage dataset taxonomy metadata",
		Long: `Manage the taxonomic lineage metadata for the image dataset.

The dataset stores images in one directory per organism, named
Genus_species. The sync command looks each new directory up in the NCBI
taxonomy database and caches its lineage (order, family, genus, species
and the rest) in a JSON file the training notebooks read.`,
	}

	cmd.AddCommand(
		newTaxonomySyncCommand(globalOpts),
		newTaxonomyFixCommand(globalOpts),
	)

	return cmd
}

// newTaxonomySyncCommand creates the taxonomy sync command.
func newTaxonomySyncCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch lineage records for new dataset directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaxonomySync()
		},
	}

	return cmd
}

// runTaxonomySync executes the taxonomy sync command logic
func runTaxonomySync() error {
	syncer, err := newSyncer()
	if err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Retrieving taxonomy data..."
	syncer.OnOrganism = func(dirName string) {
		s.Suffix = fmt.Sprintf(" %s", dirName)
	}
	s.Start()

	result, err := syncer.Sync(context.Background())
	s.Stop()
	if err != nil {
		return err
	}

	fmt.Println()
	color.Green("✓ %d record(s) retrieved (%d already cached)",
		len(result.Retrieved), result.Cached)

	if len(result.Failed) > 0 {
		fmt.Println()
		color.Red("✗ %d directorie(s) failed:", len(result.Failed))
		for _, name := range result.Failed {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println()
		fmt.Println("Misspelled names can be resolved with: riffle taxonomy fix DIRECTORY")
	}

	return nil
}

// newTaxonomyFixCommand creates the taxonomy fix command.
func newTaxonomyFixCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix DIRECTORY [CORRECTED]",
		Short: "Resolve a misspelled dataset directory name",
		Long: `Record the lineage of a misspelled dataset directory.

The directory itself is not renamed: extracted archives get wiped and
re-extracted from time to time, so the cache keeps the on-disk name as the
key and uses the corrected spelling only for the NCBI lookup. When the
corrected spelling is not given on the command line, riffle prompts for it.`,
		Example: `  # Prompt for the corrected spelling
  riffle taxonomy fix Axellus_aquaticus

  # Non-interactive
  riffle taxonomy fix Axellus_aquaticus Asellus_aquaticus`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			original := args[0]
			corrected := ""
			if len(args) == 2 {
				corrected = args[1]
			}
			return runTaxonomyFix(original, corrected)
		},
	}

	return cmd
}

// runTaxonomyFix executes the taxonomy fix command logic
func runTaxonomyFix(original, corrected string) error {
	if corrected == "" {
		var err error
		corrected, err = promptCorrectedName(original)
		if err != nil {
			return err
		}
	}

	syncer, err := newSyncer()
	if err != nil {
		return err
	}

	if err := syncer.Fix(context.Background(), original, corrected); err != nil {
		return err
	}

	color.Green("✓ Recorded %s as %s", original, corrected)
	return nil
}

// promptCorrectedName asks for the corrected spelling interactively, with
// the original name prefilled for editing.
func promptCorrectedName(original string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "corrected name> ",
	})
	if err != nil {
		return "", fmt.Errorf("failed to open prompt: %w", err)
	}
	defer rl.Close()

	line, err := rl.ReadlineWithDefault(original)
	if err != nil {
		return "", fmt.Errorf("prompt aborted: %w", err)
	}

	corrected := strings.TrimSpace(line)
	if corrected == "" {
		return "", fmt.Errorf("no corrected name given")
	}
	return corrected, nil
}

// newSyncer wires a taxonomy syncer from the configuration.
func newSyncer() (*taxonomy.Syncer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	return &taxonomy.Syncer{
		Resolver:   taxonomy.NewClient(cfg.Taxonomy),
		Store:      taxonomy.NewStore(cfg.Taxonomy.CachePath),
		DatasetDir: cfg.DatasetDir(),
	}, nil
}
