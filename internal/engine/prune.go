package engine

import (
	"context"
	"log/slog"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/ledger"
	"github.com/bianoble/crowdin-sync/internal/mapper"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// PruneEngine drops ledger records for keys no local file maps to.
// Neither local files nor remote resources are touched.
type PruneEngine struct {
	Mapper      *mapper.Mapper
	Logger      *slog.Logger
	ProjectRoot string
	LedgerPath  string
}

// PruneOptions configures a prune operation.
type PruneOptions struct {
	DryRun bool
}

// PruneResult holds the outcome of a prune operation.
type PruneResult struct {
	Removed []string
}

// Prune removes stale resource records from the ledger.
func (e *PruneEngine) Prune(ctx context.Context, cfg *config.Config, opts PruneOptions) (*PruneResult, error) {
	lk, err := ledger.Lock(e.LedgerPath)
	if err != nil {
		return nil, syncerr.New(syncerr.KindIO, "lock", err)
	}
	defer func() { _ = lk.Unlock() }()

	led, err := ledger.Load(e.LedgerPath, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	logger := e.Logger
	if logger == nil {
		logger = discard()
	}
	entries, err := scanLocal(ctx, e.Mapper, e.ProjectRoot, cfg, led, logger)
	if err != nil {
		return nil, err
	}

	removed := led.Prune(keySet(entries))
	result := &PruneResult{Removed: removed}
	if opts.DryRun || len(removed) == 0 {
		return result, nil
	}
	if err := ledger.Save(e.LedgerPath, led); err != nil {
		return nil, err
	}
	logger.Info("pruned ledger", "removed", len(removed))
	return result, nil
}
