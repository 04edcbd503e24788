package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default crowdin-sync.yaml scaffold.
// It is a working upload-only config with the optional settings commented out.
const initTemplate = `# crowdin-sync configuration
# Docs: https://github.com/bianoble/crowdin-sync
version: 1

# Numeric Crowdin project id. Can also be set with CROWDIN_PROJECT_ID.
project_id: "123456"

# The API token is read from CROWDIN_API_TOKEN (or a .env file next to this
# config). Avoid committing it here.
# api_token: ""

# Crowdin Enterprise organization, or an explicit API base URL.
# organization: your-org
# base_url: https://api.crowdin.com/api/v2

# Directories scanned for source resource files, relative to this file.
root_directories:
  - locales/en

include:
  - "**/*.json"
# exclude:
#   - "**/draft/**"

# How a file path under a root becomes its remote key.
key_template: "%file_pathname%"

# uploadOnly, downloadOnly or full
mode: uploadOnly

# concurrency: 4
# timeout: 10m
# retry:
#   max_attempts: 3
#   base_delay_ms: 500
#   max_delay_ms: 30000

# Delete Crowdin files that no longer exist locally. Their translations are
# then no longer downloaded.
# upload:
#   delete_removed: true

# Translations of resources that exist only in Crowdin.
# download:
#   template: "translations/%locale%/%remote_key%"
#   scope: unmatched        # or: all
#   locales: [de, fr]

# tokens:
#   product: checkout
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter crowdin-sync.yaml configuration",
	Long: `Creates a crowdin-sync.yaml file in the current directory with a commented
template covering the project, root directories, key template and download
settings.

Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, err := filepath.Abs(configFile())
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Set project_id and root_directories")
		info("  2. Export CROWDIN_API_TOKEN")
		info("  3. Run 'crowdin-sync status' to preview, then 'crowdin-sync sync'")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
