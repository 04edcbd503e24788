package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bianoble/crowdin-sync/internal/engine"
)

var statusMode string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what a sync would do",
	Long: `Plans a sync without executing it and prints one row per action: the local
file, its remote key, the locale for downloads, and the state (new, changed,
unchanged, unreadable, download). The ledger is not locked or modified.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseModeFlag(statusMode)
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

		result, err := eng.Status(cmd.Context(), cfg, mode)
		if err != nil {
			return err
		}

		renderStatus(stdout, result)
		return nil
	},
}

func renderStatus(w io.Writer, r *engine.StatusResult) {
	if len(r.Actions) == 0 {
		fmt.Fprintln(w, "Nothing to sync.")
		return
	}

	fmt.Fprintf(w, "%-32s %-32s %-8s %s\n", "LOCAL", "REMOTE", "LOCALE", "STATE")
	for _, s := range r.Actions {
		local, locale := s.Local, s.Locale
		if local == "" {
			local = "-"
		}
		if locale == "" {
			locale = "-"
		}
		fmt.Fprintf(w, "%-32s %-32s %-8s %s\n", truncate(local, 32), truncate(s.Remote, 32), locale, s.State)
	}

	states := make([]string, 0, len(r.Counts))
	for state := range r.Counts {
		states = append(states, state)
	}
	sort.Strings(states)
	parts := make([]string, len(states))
	for i, state := range states {
		parts[i] = fmt.Sprintf("%d %s", r.Counts[state], state)
	}
	fmt.Fprintf(w, "\n%d action(s), mode %s: %s\n", len(r.Actions), r.Mode, strings.Join(parts, ", "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	statusCmd.Flags().StringVar(&statusMode, "mode", "", "override the configured mode (uploadOnly, downloadOnly, full)")
	rootCmd.AddCommand(statusCmd)
}
