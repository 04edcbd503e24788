package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/engine"
	"github.com/bianoble/crowdin-sync/internal/ledger"
	"github.com/bianoble/crowdin-sync/internal/logging"
	"github.com/bianoble/crowdin-sync/internal/remote"
	"github.com/bianoble/crowdin-sync/internal/sandbox"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// stdout receives all user-facing output.
var stdout io.Writer = os.Stdout

// newCatalog builds the remote catalog for a loaded config. Tests replace it
// with an in-memory double.
var newCatalog = func(cfg *config.Config, logger *slog.Logger) (remote.Catalog, error) {
	c, err := remote.FromConfig(cfg, "crowdin-sync/"+version, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// configFile returns the --config path, or the first project config found in
// the working directory.
func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.FindProjectConfig(".")
}

// projectRoot returns the directory containing the config file.
func projectRoot() (string, error) {
	abs, err := filepath.Abs(configFile())
	if err != nil {
		return "", fmt.Errorf("resolving config path: %w", err)
	}
	return filepath.Dir(abs), nil
}

// ledgerFile returns the --ledger path, or the default ledger in root.
func ledgerFile(root string) string {
	if ledgerPath != "" {
		return ledgerPath
	}
	return filepath.Join(root, ledger.DefaultFileName)
}

// loadEnvFile loads --env-file, or .env in root when it exists. Variables
// already set in the environment win.
func loadEnvFile(root string) error {
	p := envFile
	if p == "" {
		p = filepath.Join(root, ".env")
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(p); err != nil {
		return syncerr.New(syncerr.KindConfiguration, "config", fmt.Errorf("loading env file %s: %w", p, err))
	}
	return nil
}

// envOverride applies CROWDIN_API_TOKEN, CROWDIN_PROJECT_ID and
// CROWDIN_BASE_URL on top of the file layers.
func envOverride() func(*config.Config) {
	v := viper.New()
	v.SetEnvPrefix("CROWDIN")
	v.AutomaticEnv()
	return func(cfg *config.Config) {
		if s := v.GetString("api_token"); s != "" {
			cfg.APIToken = config.Secret(s)
		}
		if s := v.GetString("project_id"); s != "" {
			cfg.ProjectID = s
		}
		if s := v.GetString("base_url"); s != "" {
			cfg.BaseURL = s
		}
	}
}

// loadConfigHierarchical loads the system, user and project layers and the
// environment overrides.
func loadConfigHierarchical() (*config.HierarchicalResult, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	if err := loadEnvFile(root); err != nil {
		return nil, err
	}
	path := configFile()
	hr, err := config.LoadHierarchical(config.HierarchicalOptions{
		ProjectPath: path,
		NoInherit:   noInherit || config.EnvNoInherit(),
		Override:    envOverride(),
	})
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return hr, nil
}

// loadConfig reads, merges and validates the config.
func loadConfig() (*config.Config, error) {
	hr, err := loadConfigHierarchical()
	if err != nil {
		return nil, err
	}
	return hr.Config, nil
}

// parseModeFlag returns "" for an unset flag so the config mode applies.
func parseModeFlag(s string) (config.Mode, error) {
	if s == "" {
		return "", nil
	}
	m, err := config.ParseMode(s)
	if err != nil {
		return "", syncerr.New(syncerr.KindConfiguration, "flags", err)
	}
	return m, nil
}

func newLogger() *slog.Logger {
	return logging.New(logging.Options{Verbose: verbose, Quiet: quiet, NoColor: noColor})
}

// newSyncEngine wires the catalog, sandboxed writer and ledger for cfg.
func newSyncEngine(cfg *config.Config) (*engine.SyncEngine, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	logger := newLogger()
	cat, err := newCatalog(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &engine.SyncEngine{
		Catalog:     cat,
		Writer:      sandbox.New(root),
		Logger:      logger,
		ProjectRoot: root,
		LedgerPath:  ledgerFile(root),
	}, nil
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout, format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Fprintf(stdout, "  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
