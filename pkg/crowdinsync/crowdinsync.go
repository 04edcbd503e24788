// Package crowdinsync provides the public Go library API for crowdin-sync.
//
// crowdin-sync keeps a tree of source resource files in step with a Crowdin
// project: new and changed files are uploaded, unchanged ones skipped, and
// translations of remote-only resources downloaded. A ledger file records
// the hash of every file last synchronized.
//
// # Basic Usage
//
//	client, err := crowdinsync.New(crowdinsync.Options{
//	    ProjectRoot: "/path/to/project",
//	    ConfigPath:  "crowdin-sync.yaml",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Show what a sync would do
//	status, err := client.Status(ctx)
//
//	// Upload, skip and download
//	result, err := client.Sync(ctx, crowdinsync.SyncOptions{})
//	for _, f := range result.Report.Failed {
//	    log.Printf("%s: %v", f.Action.Target(), f.Err)
//	}
package crowdinsync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/engine"
	"github.com/bianoble/crowdin-sync/internal/ledger"
	"github.com/bianoble/crowdin-sync/internal/remote"
	"github.com/bianoble/crowdin-sync/internal/sandbox"
)

// Syncer runs a synchronization.
type Syncer interface {
	Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error)
}

// Checker reports local files not yet uploaded, without remote calls.
type Checker interface {
	Check(ctx context.Context) (*CheckResult, error)
}

// Pruner drops ledger records of keys no local file maps to.
type Pruner interface {
	Prune(ctx context.Context, opts PruneOptions) (*PruneResult, error)
}

// Options configures a crowdin-sync client.
type Options struct {
	// ProjectRoot is the directory root_directories are relative to.
	// If empty, defaults to the directory containing ConfigPath.
	ProjectRoot string

	// ConfigPath is the path to the config file. Default: "crowdin-sync.yaml".
	ConfigPath string

	// LedgerPath is the path to the ledger. Default: "crowdin-sync.lock" in
	// the project root.
	LedgerPath string

	// NoInherit skips the system and user config layers.
	NoInherit bool

	// APIToken overrides the token from the config.
	APIToken string

	// Catalog replaces the Crowdin REST client, e.g. with a test double.
	Catalog Catalog

	Logger *slog.Logger
}

// Client is the main entry point for the crowdin-sync library.
// It implements Syncer, Checker and Pruner.
type Client struct {
	catalog     Catalog
	logger      *slog.Logger
	projectRoot string
	configPath  string
	ledgerPath  string
	apiToken    string
	noInherit   bool
}

var (
	_ Syncer  = (*Client)(nil)
	_ Checker = (*Client)(nil)
	_ Pruner  = (*Client)(nil)
)

// New creates a new crowdin-sync Client. The config is read on every call,
// not here.
func New(opts Options) (*Client, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = "crowdin-sync.yaml"
	}

	root := opts.ProjectRoot
	if root == "" {
		abs, err := filepath.Abs(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		root = filepath.Dir(abs)
	}

	ledgerPath := opts.LedgerPath
	if ledgerPath == "" {
		ledgerPath = filepath.Join(root, ledger.DefaultFileName)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		catalog:     opts.Catalog,
		logger:      logger,
		projectRoot: root,
		configPath:  opts.ConfigPath,
		ledgerPath:  ledgerPath,
		apiToken:    opts.APIToken,
		noInherit:   opts.NoInherit,
	}, nil
}

func (c *Client) loadConfig() (*config.Config, error) {
	res, err := config.LoadHierarchical(config.HierarchicalOptions{
		ProjectPath: c.configPath,
		NoInherit:   c.noInherit,
		Override: func(cfg *config.Config) {
			if c.apiToken != "" {
				cfg.APIToken = config.Secret(c.apiToken)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func (c *Client) syncEngine(cfg *config.Config) (*engine.SyncEngine, error) {
	cat := c.catalog
	if cat == nil {
		cc, err := remote.FromConfig(cfg, "", c.logger)
		if err != nil {
			return nil, err
		}
		cat = cc
	}
	return &engine.SyncEngine{
		Catalog:     cat,
		Writer:      sandbox.New(c.projectRoot),
		Logger:      c.logger,
		ProjectRoot: c.projectRoot,
		LedgerPath:  c.ledgerPath,
	}, nil
}

// Sync runs a synchronization with the configured run timeout.
func (c *Client) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	eng, err := c.syncEngine(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := engine.RunContext(ctx, cfg, 0)
	defer cancel()
	return eng.Sync(ctx, cfg, opts)
}

// Status returns the plan a sync would execute.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	eng, err := c.syncEngine(cfg)
	if err != nil {
		return nil, err
	}
	return eng.Status(ctx, cfg, "")
}

// Check compares local files with the ledger.
func (c *Client) Check(ctx context.Context) (*CheckResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	eng := &engine.CheckEngine{ProjectRoot: c.projectRoot, LedgerPath: c.ledgerPath}
	return eng.Check(ctx, cfg)
}

// Prune drops stale ledger records.
func (c *Client) Prune(ctx context.Context, opts PruneOptions) (*PruneResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	eng := &engine.PruneEngine{Logger: c.logger, ProjectRoot: c.projectRoot, LedgerPath: c.ledgerPath}
	return eng.Prune(ctx, cfg, opts)
}
