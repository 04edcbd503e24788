package engine

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/ledger"
	"github.com/bianoble/crowdin-sync/internal/mapper"
	"github.com/bianoble/crowdin-sync/internal/remote"
)

// ListLocal scans the configured roots without contacting the remote.
// LastSyncedHash is filled from the ledger when one exists.
func (e *SyncEngine) ListLocal(ctx context.Context, cfg *config.Config) ([]mapper.Entry, error) {
	led, err := ledger.Load(e.LedgerPath, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	return scanLocal(ctx, e.Mapper, e.ProjectRoot, cfg, led, e.logger())
}

// ListRemote returns the remote resources, sorted by key.
func (e *SyncEngine) ListRemote(ctx context.Context, cfg *config.Config) ([]remote.Resource, error) {
	var resources []remote.Resource
	_, err := withRetry(ctx, cfg.Retry, e.logger(), "list", cfg.ProjectID, func(ctx context.Context) error {
		var err error
		resources, err = e.Catalog.ListResources(ctx, cfg.ProjectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resources, nil
}

// Tree renders slash-separated keys as an indented tree, one line per
// directory or file, in key order. Directory lines end in "/".
func Tree(keys []string) []string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var lines []string
	var prev []string
	for _, key := range sorted {
		dir, file := path.Split(key)
		parts := strings.Split(strings.TrimSuffix(dir, "/"), "/")
		if dir == "" {
			parts = nil
		}
		common := 0
		for common < len(parts) && common < len(prev) && parts[common] == prev[common] {
			common++
		}
		for i := common; i < len(parts); i++ {
			lines = append(lines, strings.Repeat("  ", i)+parts[i]+"/")
		}
		lines = append(lines, strings.Repeat("  ", len(parts))+file)
		prev = parts
	}
	return lines
}
