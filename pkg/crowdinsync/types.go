package crowdinsync

import (
	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/engine"
	"github.com/bianoble/crowdin-sync/internal/remote"
)

// Type aliases re-export engine and catalog types as the public API.
// Users import "github.com/bianoble/crowdin-sync/pkg/crowdinsync" and use
// crowdinsync.SyncResult, crowdinsync.Catalog, etc.

type Config = config.Config
type Mode = config.Mode

const (
	ModeUploadOnly   = config.ModeUploadOnly
	ModeDownloadOnly = config.ModeDownloadOnly
	ModeFull         = config.ModeFull
)

type Catalog = remote.Catalog
type Resource = remote.Resource

type Action = engine.Action
type ActionKind = engine.ActionKind
type Outcome = engine.Outcome
type Failure = engine.Failure
type Report = engine.Report
type SyncOptions = engine.SyncOptions
type SyncResult = engine.SyncResult
type StatusResult = engine.StatusResult
type CheckResult = engine.CheckResult
type DriftEntry = engine.DriftEntry
type PruneOptions = engine.PruneOptions
type PruneResult = engine.PruneResult
