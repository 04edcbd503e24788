package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bianoble/crowdin-sync/internal/engine"
)

var (
	syncMode        string
	syncConcurrency int
	syncDryRun      bool
	syncTimeout     time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload changed resources and download translations",
	Long: `Scans the configured root directories, lists the resources of the Crowdin
project and executes the resulting plan: new files are created, changed files
updated, unchanged files skipped, and translations of remote-only resources
downloaded. Failed actions do not stop the run; the ledger records every
action that succeeded.

Exit status is 0 when every action succeeded, 1 when some failed, 2 when the
run could not start, and 130 when it was interrupted or timed out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseModeFlag(syncMode)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eng, err := newSyncEngine(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := engine.RunContext(cmd.Context(), cfg, syncTimeout)
		defer cancel()

		opts := engine.SyncOptions{Mode: mode, Concurrency: syncConcurrency, DryRun: syncDryRun}
		result, err := eng.Sync(ctx, cfg, opts)
		if err != nil {
			return err
		}

		if syncDryRun {
			info("Dry run — nothing uploaded or written.")
			for _, a := range result.Plan {
				if a.Kind == engine.Skip {
					detail("%-14s %s", a.Kind, a.Target())
					continue
				}
				info("  %-14s %s", a.Kind, a.Target())
			}
			return nil
		}

		printReport(result.Report)
		if result.LedgerErr != nil {
			errorf("saving ledger: %v", result.LedgerErr)
		}

		switch code := reportCode(result.Report, result.LedgerErr); code {
		case ExitOK:
			return nil
		case ExitCancelled:
			return &ExitError{Code: code, Msg: fmt.Sprintf("sync interrupted: %d of %d action(s) did not complete", len(result.Report.Failed), result.Report.Total())}
		default:
			return &ExitError{Code: code, Msg: fmt.Sprintf("sync failed: %d action(s) failed", len(result.Report.Failed))}
		}
	},
}

// printReport prints every non-skipped outcome, every failure and a summary.
func printReport(r *engine.Report) {
	var uploaded, unchanged, downloaded, deleted int
	for _, o := range r.Succeeded {
		switch {
		case o.Action.Kind == engine.Skip || o.Unchanged:
			unchanged++
			detail("%-14s %s", o.Action.Kind, o.Action.Target())
			continue
		case o.Action.Kind.IsUpload():
			uploaded++
		case o.Action.Kind == engine.DeleteResource:
			deleted++
		default:
			downloaded++
		}
		info("  %-14s %s", o.Action.Kind, o.Action.Target())
	}
	for _, f := range r.Failed {
		errorf("%s: %v", f.Action.Target(), f.Err)
	}

	info("")
	if deleted > 0 {
		info("Deleted %d remote resource(s).", deleted)
	}
	info("Sync complete: %d uploaded, %d downloaded, %d unchanged, %d failed (%s).",
		uploaded, downloaded, unchanged, len(r.Failed), r.Duration.Round(time.Millisecond))
	detail("run %s", r.RunID)
}

func init() {
	syncCmd.Flags().StringVar(&syncMode, "mode", "", "override the configured mode (uploadOnly, downloadOnly, full)")
	syncCmd.Flags().IntVar(&syncConcurrency, "concurrency", 0, "maximum concurrent remote operations (default from config)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "show the plan without uploading or writing files")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 0, "abort the run after this long (default from config)")
	rootCmd.AddCommand(syncCmd)
}
