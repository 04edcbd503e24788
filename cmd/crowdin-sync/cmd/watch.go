package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/engine"
	"github.com/bianoble/crowdin-sync/internal/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Upload resource files whenever they change",
	Long: `Runs an upload-only sync, then watches the configured root directories and
runs another after every burst of changes. Failed actions are reported and
retried on the next change. Stops on interrupt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eng, err := newSyncEngine(cfg)
		if err != nil {
			return err
		}

		dirs := make([]string, len(cfg.RootDirectories))
		for i, d := range cfg.RootDirectories {
			dirs[i] = filepath.Join(eng.ProjectRoot, filepath.FromSlash(d))
		}
		ledgerAbs, _ := filepath.Abs(eng.LedgerPath)

		run := func(ctx context.Context) {
			runCtx, cancel := engine.RunContext(ctx, cfg, 0)
			defer cancel()
			result, err := eng.Sync(runCtx, cfg, engine.SyncOptions{Mode: config.ModeUploadOnly})
			if err != nil {
				errorf("%v", err)
				return
			}
			printReport(result.Report)
			if result.LedgerErr != nil {
				errorf("saving ledger: %v", result.LedgerErr)
			}
		}

		run(cmd.Context())

		w := &watch.Watcher{
			Dirs:     dirs,
			Debounce: watchDebounce,
			Ignore:   watch.IgnoreSiblings(ledgerAbs),
			Logger:   eng.Logger,
		}
		info("Watching %d director(ies) for changes...", len(dirs))
		return w.Run(cmd.Context(), func(ctx context.Context, paths []string) {
			for _, p := range paths {
				detail("changed %s", p)
			}
			run(ctx)
		})
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a sync starts")
	rootCmd.AddCommand(watchCmd)
}
