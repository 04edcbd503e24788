package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	ledgerPath string
	envFile    string
	verbose    bool
	quiet      bool
	noColor    bool
	noInherit  bool
)

var rootCmd = &cobra.Command{
	Use:   "crowdin-sync",
	Short: "Keep local resource files in sync with a Crowdin project",
	Long: `crowdin-sync uploads new and changed source resource files to a Crowdin
project, skips files whose content has not changed since the last run, and
downloads translations of resources that exist only in Crowdin. A ledger file
records the hash of every file last synchronized, so repeated runs are
idempotent.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(stdout, "crowdin-sync %s\n", version)
		fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		fmt.Fprintf(stdout, "  built:   %s\n", date)
		fmt.Fprintf(stdout, "  api:     v2\n")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: crowdin-sync.yaml, .yml or .toml in the current directory)")
	rootCmd.PersistentFlags().StringVar(&ledgerPath, "ledger", "", "path to ledger file (default: crowdin-sync.lock next to the config)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file (default: .env next to the config, if present)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noInherit, "no-inherit", false, "ignore system and user config layers")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. The returned error maps to a process exit
// code through ExitCode.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
