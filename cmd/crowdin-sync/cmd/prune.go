package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/crowdin-sync/internal/engine"
)

var pruneDryRun bool

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop ledger records of files that no longer exist",
	Long: `Compares the ledger against the current local resource files and removes
records whose remote key no local file maps to any more. Local files and
remote resources are never deleted.
Use --dry-run to see what would be removed without acting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root, err := projectRoot()
		if err != nil {
			return err
		}

		eng := &engine.PruneEngine{
			Logger:      newLogger(),
			ProjectRoot: root,
			LedgerPath:  ledgerFile(root),
		}

		opts := engine.PruneOptions{DryRun: pruneDryRun}
		result, err := eng.Prune(cmd.Context(), cfg, opts)
		if err != nil {
			return err
		}

		if pruneDryRun {
			info("Dry run — ledger not modified.")
		}

		if len(result.Removed) == 0 {
			info("Nothing to prune.")
			return nil
		}

		for _, key := range result.Removed {
			info("  removed  %s", key)
		}
		info("\nPruned %d ledger record(s).", len(result.Removed))
		return nil
	},
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "show what would be removed without acting")
	rootCmd.AddCommand(pruneCmd)
}
