package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reportwatch/internal/model"
	"github.com/ppiankov/reportwatch/internal/report"
)

// mergeCmd represents the merge command
var mergeCmd = &cobra.Command{
	Use:   "merge <source>",
	Short: "Re-merge the existing reports of a source",
	Long: `Merge rebuilds <summary_dir>/<folder>_summary.txt from the per-report
files already on disk, without fetching anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		sources, err := resolveSources(model.NewCatalog(cfg.Sources), args)
		if err != nil {
			return err
		}
		source := sources[0]

		writer := report.NewWriter(filepath.Join(cfg.Storage.Root, cfg.Storage.SummaryDir), logger)
		path, err := writer.Merge(source.Folder, source.MergedFilename())
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Printf("No reports found for %s\n", source.Name)
			return nil
		}

		fmt.Printf("✓ Merged reports for %s: %s\n", source.Name, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
