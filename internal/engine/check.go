package engine

import (
	"context"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/ledger"
	"github.com/bianoble/crowdin-sync/internal/mapper"
)

// DriftEntry is a local file whose content differs from the last upload.
type DriftEntry struct {
	Path      string
	RemoteKey string
	Expected  string // "" when the file was never uploaded
	Actual    string
}

// CheckResult holds the outcome of a check operation.
type CheckResult struct {
	Clean      bool
	Drifted    []DriftEntry
	Unreadable []string
	// Stale are ledger keys no local file maps to any more.
	Stale []string
}

// CheckEngine compares local files with the ledger. It makes no remote
// calls, so it runs without credentials.
type CheckEngine struct {
	Mapper      *mapper.Mapper
	ProjectRoot string
	LedgerPath  string
}

// Check reports pending uploads. Clean is true when every local file
// matches its recorded hash.
func (e *CheckEngine) Check(ctx context.Context, cfg *config.Config) (*CheckResult, error) {
	led, err := ledger.Load(e.LedgerPath, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	entries, err := scanLocal(ctx, e.Mapper, e.ProjectRoot, cfg, led, discard())
	if err != nil {
		return nil, err
	}

	result := &CheckResult{Clean: true}
	for _, en := range entries {
		switch {
		case en.Err != nil:
			result.Unreadable = append(result.Unreadable, en.LocalPath)
			result.Clean = false
		case en.ContentHash != en.LastSyncedHash:
			result.Drifted = append(result.Drifted, DriftEntry{
				Path:      en.LocalPath,
				RemoteKey: en.RemoteKey,
				Expected:  en.LastSyncedHash,
				Actual:    en.ContentHash,
			})
			result.Clean = false
		}
	}

	keys := keySet(entries)
	for _, k := range led.Keys() {
		if !keys.Contains(k) {
			result.Stale = append(result.Stale, k)
		}
	}
	return result, nil
}
