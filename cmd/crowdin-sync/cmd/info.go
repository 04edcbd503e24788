package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/engine"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about the crowdin-sync configuration",
	Long: `Displays the crowdin-sync version, the config layers that were found and
loaded, the Crowdin project and API endpoint, and the ledger path, size and
record counts. The API token is never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}

		// A missing or invalid config still shows the discovered layers.
		var cfg *config.Config
		var layers []config.ConfigLayerInfo
		hr, loadErr := loadConfigHierarchical()
		if hr != nil {
			cfg, layers = hr.Config, hr.Layers
		} else {
			layers = config.DiscoverPaths(config.DiscoverOptions{ProjectPath: configFile()})
		}

		result, err := engine.Info(version, cfg, layers, configFile(), ledgerFile(root))
		if err != nil {
			return err
		}

		fmt.Fprintf(stdout, "crowdin-sync %s\n", result.Version)

		if len(result.ConfigChain) > 1 {
			fmt.Fprintln(stdout, "  config chain:")
			for _, layer := range result.ConfigChain {
				status := "not found"
				if layer.Loaded {
					status = "loaded"
				}
				fmt.Fprintf(stdout, "    %-10s %s (%s)\n", layer.Level+":", layer.Path, status)
			}
		} else {
			fmt.Fprintf(stdout, "  config:        %s\n", result.ConfigPath)
		}
		if loadErr != nil {
			fmt.Fprintf(stdout, "  config error:  %v\n", loadErr)
			return nil
		}

		token := "not set"
		if result.HasToken {
			token = "set"
		}
		fmt.Fprintf(stdout, "  project:       %s\n", result.ProjectID)
		fmt.Fprintf(stdout, "  endpoint:      %s\n", result.Endpoint)
		fmt.Fprintf(stdout, "  api token:     %s\n", token)
		fmt.Fprintf(stdout, "  mode:          %s\n", result.Mode)
		fmt.Fprintf(stdout, "  ledger:        %s\n", result.LedgerPath)
		fmt.Fprintf(stdout, "  ledger size:   %s\n", humanize.IBytes(uint64(result.LedgerSize)))
		fmt.Fprintf(stdout, "  recorded:      %s resource(s), %s translation(s)\n",
			humanize.Comma(int64(result.Resources)), humanize.Comma(int64(result.Translations)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
