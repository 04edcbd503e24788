package remote

import (
	"errors"
	"log/slog"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// ErrNoToken is returned by FromConfig when no API token is configured.
var ErrNoToken = errors.New("no API token configured")

// FromConfig builds the Crowdin client for a finalized config.
func FromConfig(cfg *config.Config, userAgent string, logger *slog.Logger) (*CrowdinClient, error) {
	if cfg.APIToken == "" {
		return nil, &syncerr.Error{Kind: syncerr.KindAuth, Op: "config", Err: ErrNoToken, Hint: "set CROWDIN_API_TOKEN or api_token"}
	}
	return NewCrowdinClient(CrowdinOptions{
		BaseURL:      cfg.BaseURL,
		Organization: cfg.Organization,
		Token:        cfg.APIToken.Reveal(),
		UserAgent:    userAgent,
		Logger:       logger,
	}), nil
}
