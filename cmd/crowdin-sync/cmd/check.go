package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/crowdin-sync/internal/engine"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that every local resource has been uploaded",
	Long: `Hashes every local resource file and compares it against the ledger.
Reports files that are new or changed since the last sync, and files that
could not be read. Makes no remote calls and needs no API token.
Exit 0 if everything matches; exit 1 on drift. Suitable for CI pipelines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root, err := projectRoot()
		if err != nil {
			return err
		}

		eng := &engine.CheckEngine{
			ProjectRoot: root,
			LedgerPath:  ledgerFile(root),
		}

		result, err := eng.Check(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		for _, s := range result.Stale {
			detail("stale     %s (run 'crowdin-sync prune')", s)
		}

		if result.Clean {
			info("All resource files match the ledger.")
			return nil
		}

		for _, d := range result.Drifted {
			if d.Expected == "" {
				info("  new       %s", d.Path)
			} else {
				info("  changed   %s", d.Path)
				detail("expected: %s", d.Expected)
				detail("actual:   %s", d.Actual)
			}
		}
		for _, p := range result.Unreadable {
			info("  unreadable %s", p)
		}

		total := len(result.Drifted) + len(result.Unreadable)
		return &ExitError{Code: ExitFailures, Msg: fmt.Sprintf("check failed: %d file(s) out of sync", total)}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
