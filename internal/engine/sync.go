package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/ledger"
	"github.com/bianoble/crowdin-sync/internal/mapper"
	"github.com/bianoble/crowdin-sync/internal/remote"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// SyncEngine orchestrates one synchronization run:
// scan, list, plan, execute, record.
type SyncEngine struct {
	Catalog     remote.Catalog
	Mapper      *mapper.Mapper
	Reader      ContentReader
	Writer      TranslationWriter
	Logger      *slog.Logger
	ProjectRoot string
	LedgerPath  string

	// NewRunID defaults to uuid.NewString.
	NewRunID func() string
}

// SyncOptions configures a sync operation.
type SyncOptions struct {
	// Mode overrides cfg.Mode when set.
	Mode config.Mode
	// Concurrency overrides cfg.Concurrency when positive.
	Concurrency int
	// DryRun plans without executing or writing the ledger.
	DryRun bool
}

// SyncResult holds the outcome of a sync operation.
type SyncResult struct {
	RunID   string
	Entries []mapper.Entry
	Plan    []Action
	// Report is nil for dry runs.
	Report *Report
	// LedgerErr is set when the report could not be persisted.
	LedgerErr error
}

// Sync runs a full synchronization and persists the ledger.
//
// An error is returned only when the run failed before any action was
// executed: bad configuration, a held ledger lock, an unreadable ledger or
// a failed resource listing. Per-action failures are reported in
// SyncResult.Report and never abort the run.
func (e *SyncEngine) Sync(ctx context.Context, cfg *config.Config, opts SyncOptions) (*SyncResult, error) {
	runID := e.runID()
	logger := e.logger().With("run", runID)

	lk, err := ledger.Lock(e.LedgerPath)
	if err != nil {
		if errors.Is(err, ledger.ErrLocked) {
			return nil, &syncerr.Error{Kind: syncerr.KindIO, Op: "lock", Key: e.LedgerPath, Err: err, Hint: "wait for the other run to finish"}
		}
		return nil, syncerr.New(syncerr.KindIO, "lock", err)
	}
	defer func() {
		if err := lk.Unlock(); err != nil {
			logger.Warn("releasing ledger lock", "err", err)
		}
	}()

	led, err := ledger.Load(e.LedgerPath, cfg.ProjectID)
	if err != nil {
		return nil, err
	}

	mode := cfg.Mode
	if opts.Mode != "" {
		mode = opts.Mode
	}

	entries, actions, err := e.plan(ctx, cfg, led, mode, logger)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{RunID: runID, Entries: entries, Plan: actions}
	if opts.DryRun {
		return result, nil
	}

	concurrency := cfg.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}
	exec := &Executor{
		ProjectID:   cfg.ProjectID,
		Concurrency: concurrency,
		Reader:      e.Reader,
		Writer:      e.Writer,
		Logger:      e.logger(),
		RunID:       runID,
	}
	logger.Info("executing plan", "actions", len(actions), "concurrency", concurrency, "mode", string(mode))
	report := exec.Execute(ctx, actions, e.Catalog, cfg.Retry)
	result.Report = report

	// Partial runs are recorded too, so successful actions are not repeated.
	Record(led, report)
	if err := ledger.Save(e.LedgerPath, led); err != nil {
		logger.Error("saving ledger", "path", e.LedgerPath, "err", err)
		result.LedgerErr = err
	}
	return result, nil
}

// Plan scans and lists without executing anything.
func (e *SyncEngine) Plan(ctx context.Context, cfg *config.Config, mode config.Mode) (*SyncResult, error) {
	led, err := ledger.Load(e.LedgerPath, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = cfg.Mode
	}
	runID := e.runID()
	entries, actions, err := e.plan(ctx, cfg, led, mode, e.logger().With("run", runID))
	if err != nil {
		return nil, err
	}
	return &SyncResult{RunID: runID, Entries: entries, Plan: actions}, nil
}

func (e *SyncEngine) plan(ctx context.Context, cfg *config.Config, led *ledger.Ledger, mode config.Mode, logger *slog.Logger) ([]mapper.Entry, []Action, error) {
	planner, err := NewPlanner(cfg)
	if err != nil {
		return nil, nil, err
	}
	entries, err := scanLocal(ctx, e.Mapper, e.ProjectRoot, cfg, led, e.logger())
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("scanned", "entries", len(entries))

	var resources []remote.Resource
	_, err = withRetry(ctx, cfg.Retry, logger, "list", cfg.ProjectID, func(ctx context.Context) error {
		var err error
		resources, err = e.Catalog.ListResources(ctx, cfg.ProjectID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("listed remote resources", "resources", len(resources))

	actions, err := planner.Plan(entries, resources, mode)
	if err != nil {
		return nil, nil, err
	}
	return entries, actions, nil
}

// Record stores the hash of every successful upload, skip and download in
// led and forgets deleted resources. Failed actions leave their previous
// ledger value untouched.
func Record(led *ledger.Ledger, report *Report) {
	if report == nil {
		return
	}
	for _, o := range report.Succeeded {
		a := o.Action
		switch a.Kind {
		case UploadNew, UploadChanged, Skip:
			if a.Entry.RemoteKey != "" {
				led.Record(a.Entry.RemoteKey, o.Hash)
			}
		case DownloadTranslation:
			led.RecordTranslation(a.Remote.RemoteKey, a.Locale, o.Hash)
		case DeleteResource:
			led.Forget(a.Remote.RemoteKey)
		}
	}
}

func (e *SyncEngine) runID() string {
	if e.NewRunID != nil {
		return e.NewRunID()
	}
	return uuid.NewString()
}

func (e *SyncEngine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return discard()
}

// RunContext applies the configured run timeout to ctx.
func RunContext(ctx context.Context, cfg *config.Config, override time.Duration) (context.Context, context.CancelFunc) {
	timeout := cfg.RunTimeout()
	if override > 0 {
		timeout = override
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
