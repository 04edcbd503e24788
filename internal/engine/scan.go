package engine

import (
	"context"
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/keytemplate"
	"github.com/bianoble/crowdin-sync/internal/ledger"
	"github.com/bianoble/crowdin-sync/internal/mapper"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// scanLocal scans the configured roots and fills LastSyncedHash from led.
func scanLocal(ctx context.Context, m *mapper.Mapper, projectRoot string, cfg *config.Config, led *ledger.Ledger, logger *slog.Logger) ([]mapper.Entry, error) {
	keyTmpl, err := keytemplate.Parse(cfg.KeyTemplate, keytemplate.KeyTokens)
	if err != nil {
		return nil, syncerr.New(syncerr.KindConfiguration, "config", fmt.Errorf("key_template: %w", err))
	}
	if m == nil {
		m = &mapper.Mapper{ProjectRoot: projectRoot, IgnoreFile: cfg.IgnoreFile, Logger: logger}
	}
	entries, err := m.Scan(ctx, cfg.RootDirectories, cfg.Include, cfg.Exclude, keyTmpl)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].LastSyncedHash = led.Lookup(entries[i].RemoteKey)
	}
	return entries, nil
}

func keySet(entries []mapper.Entry) mapset.Set[string] {
	keys := mapset.NewThreadUnsafeSetWithSize[string](len(entries))
	for _, e := range entries {
		keys.Add(e.RemoteKey)
	}
	return keys
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
