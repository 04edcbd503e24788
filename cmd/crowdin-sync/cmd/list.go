package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/crowdin-sync/internal/engine"
)

var listTree bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List local or remote resource files",
}

var listLocalCmd = &cobra.Command{
	Use:   "local",
	Short: "List the local resource files and their remote keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root, err := projectRoot()
		if err != nil {
			return err
		}

		// Scanning needs no catalog.
		eng := &engine.SyncEngine{
			Logger:      newLogger(),
			ProjectRoot: root,
			LedgerPath:  ledgerFile(root),
		}
		entries, err := eng.ListLocal(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			info("No resource files found.")
			return nil
		}

		if listTree {
			keys := make([]string, len(entries))
			for i, e := range entries {
				keys[i] = e.RemoteKey
			}
			printLines(engine.Tree(keys))
			return nil
		}

		for _, e := range entries {
			state := "synced"
			switch {
			case e.Err != nil:
				state = "unreadable"
			case e.LastSyncedHash == "":
				state = "new"
			case e.LastSyncedHash != e.ContentHash:
				state = "changed"
			}
			fmt.Fprintf(stdout, "%-40s %-40s %s\n", e.LocalPath, e.RemoteKey, state)
		}
		return nil
	},
}

var listRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "List the resource files of the Crowdin project",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eng, err := newSyncEngine(cfg)
		if err != nil {
			return err
		}

		resources, err := eng.ListRemote(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		if len(resources) == 0 {
			info("No remote resources.")
			return nil
		}

		if listTree {
			keys := make([]string, len(resources))
			for i, r := range resources {
				keys[i] = r.RemoteKey
			}
			printLines(engine.Tree(keys))
			return nil
		}

		for _, r := range resources {
			fmt.Fprintf(stdout, "%-40s %-8s %s\n", r.RemoteKey, r.RemoteID, r.RemoteHash)
			detail("locales: %v", r.Locales())
		}
		return nil
	},
}

func printLines(lines []string) {
	for _, l := range lines {
		fmt.Fprintln(stdout, l)
	}
}

func init() {
	listCmd.PersistentFlags().BoolVar(&listTree, "tree", false, "print keys as a directory tree")
	listCmd.AddCommand(listLocalCmd, listRemoteCmd)
	rootCmd.AddCommand(listCmd)
}
