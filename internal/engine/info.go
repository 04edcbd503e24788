package engine

import (
	"os"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/ledger"
	"github.com/bianoble/crowdin-sync/internal/remote"
)

// ConfigLayerStatus describes a config layer's load status for display.
type ConfigLayerStatus struct {
	Level  string // "system", "user", "project"
	Path   string
	Loaded bool
}

// InfoResult holds tool information for the info command.
type InfoResult struct {
	Version      string
	ConfigPath   string
	LedgerPath   string
	ProjectID    string
	Endpoint     string
	Mode         string
	ConfigChain  []ConfigLayerStatus
	LedgerSize   int64
	Resources    int
	Translations int
	HasToken     bool
}

// Info gathers tool information. A missing ledger is not an error.
func Info(version string, cfg *config.Config, layers []config.ConfigLayerInfo, configPath, ledgerPath string) (*InfoResult, error) {
	r := &InfoResult{
		Version:    version,
		ConfigPath: configPath,
		LedgerPath: ledgerPath,
	}
	for _, l := range layers {
		r.ConfigChain = append(r.ConfigChain, ConfigLayerStatus{Level: string(l.Level), Path: l.Path, Loaded: l.Loaded})
	}
	if cfg == nil {
		return r, nil
	}

	r.ProjectID = cfg.ProjectID
	r.Mode = string(cfg.Mode)
	r.HasToken = cfg.APIToken != ""
	switch {
	case cfg.BaseURL != "":
		r.Endpoint = cfg.BaseURL
	case cfg.Organization != "":
		r.Endpoint = remote.EnterpriseBaseURL(cfg.Organization)
	default:
		r.Endpoint = remote.DefaultBaseURL
	}

	if fi, err := os.Stat(ledgerPath); err == nil {
		r.LedgerSize = fi.Size()
	}
	led, err := ledger.Load(ledgerPath, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	r.Resources = len(led.Resources)
	for _, locales := range led.Translations {
		r.Translations += len(locales)
	}
	return r, nil
}
