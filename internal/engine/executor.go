package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/mapper"
	"github.com/bianoble/crowdin-sync/internal/remote"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// ContentReader reads the bytes of a local entry at upload time.
type ContentReader interface {
	ReadContent(e mapper.Entry) ([]byte, error)
}

// TranslationWriter stores a downloaded translation below the project root.
// It reports unchanged when the destination already held content.
type TranslationWriter interface {
	WriteFile(relPath string, content []byte) (unchanged bool, err error)
}

// FileReader reads entries from their absolute path.
type FileReader struct{}

// ReadContent implements ContentReader.
func (FileReader) ReadContent(e mapper.Entry) ([]byte, error) {
	return os.ReadFile(e.AbsPath)
}

var errAuthStopped = errors.New("not started: an earlier action failed authentication")

// Executor runs a plan against a remote catalog on a bounded worker pool.
type Executor struct {
	ProjectID   string
	Concurrency int
	Reader      ContentReader
	Writer      TranslationWriter
	Logger      *slog.Logger
	RunID       string

	// now is stubbed in tests.
	now func() time.Time
}

type collector struct {
	mu        sync.Mutex
	succeeded []Outcome
	failed    []Failure
}

func (c *collector) ok(o Outcome) {
	c.mu.Lock()
	c.succeeded = append(c.succeeded, o)
	c.mu.Unlock()
}

func (c *collector) fail(f Failure) {
	c.mu.Lock()
	c.failed = append(c.failed, f)
	c.mu.Unlock()
}

// Execute runs every action and returns the report. It never returns
// early: actions that could not be dispatched, because ctx ended or an
// authentication failure made further calls pointless, are reported as
// cancelled.
func (x *Executor) Execute(ctx context.Context, actions []Action, catalog remote.Catalog, policy config.RetryPolicy) *Report {
	now := x.now
	if now == nil {
		now = time.Now
	}
	logger := x.logger()
	started := now()

	limit := x.Concurrency
	if limit < 1 {
		limit = config.DefaultConcurrency
	}

	var (
		res      collector
		g        errgroup.Group
		authStop atomic.Bool
	)
	g.SetLimit(limit)

	for i := range actions {
		a := actions[i]
		if ctx.Err() != nil || authStop.Load() {
			res.fail(x.notDispatched(ctx, a))
			continue
		}
		g.Go(func() error {
			// Dispatch may have blocked on the limit.
			if ctx.Err() != nil || authStop.Load() {
				res.fail(x.notDispatched(ctx, a))
				return nil
			}
			o, f := x.run(ctx, a, catalog, policy, logger)
			if f != nil {
				if f.Kind == syncerr.KindAuth {
					authStop.Store(true)
				}
				logger.Error("action failed",
					"action", a.Kind.String(),
					"key", a.Key(),
					"kind", f.Kind.String(),
					"attempts", f.Attempts,
					"err", f.Err)
				res.fail(*f)
				return nil
			}
			logger.Debug("action done",
				"action", a.Kind.String(),
				"key", a.Key(),
				"attempts", o.Attempts,
				"unchanged", o.Unchanged)
			res.ok(o)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.succeeded, func(i, j int) bool { return res.succeeded[i].Action.Index < res.succeeded[j].Action.Index })
	sort.Slice(res.failed, func(i, j int) bool { return res.failed[i].Action.Index < res.failed[j].Action.Index })

	return &Report{
		RunID:     x.RunID,
		Started:   started,
		Duration:  now().Sub(started),
		Succeeded: res.succeeded,
		Failed:    res.failed,
	}
}

func (x *Executor) notDispatched(ctx context.Context, a Action) Failure {
	err := ctx.Err()
	if err == nil {
		err = errAuthStopped
	}
	return Failure{
		Action: a,
		Kind:   syncerr.KindCancelled,
		Err:    &syncerr.Error{Kind: syncerr.KindCancelled, Op: a.Kind.String(), Key: a.Key(), Err: err},
	}
}

func (x *Executor) run(ctx context.Context, a Action, catalog remote.Catalog, policy config.RetryPolicy, logger *slog.Logger) (Outcome, *Failure) {
	switch a.Kind {
	case Skip:
		return Outcome{Action: a, Hash: a.Entry.ContentHash, Bytes: a.Entry.Size, Unchanged: true}, nil
	case UploadNew, UploadChanged:
		return x.upload(ctx, a, catalog, policy, logger)
	case DownloadTranslation:
		return x.download(ctx, a, catalog, policy, logger)
	case DeleteResource:
		return x.remove(ctx, a, catalog, policy, logger)
	default:
		return Outcome{}, &Failure{Action: a, Kind: syncerr.KindUnknown, Err: errors.New("unknown action kind")}
	}
}

func (x *Executor) upload(ctx context.Context, a Action, catalog remote.Catalog, policy config.RetryPolicy, logger *slog.Logger) (Outcome, *Failure) {
	if a.Entry.Err != nil {
		return Outcome{}, failure(a, a.Entry.Err, 0)
	}

	reader := x.Reader
	if reader == nil {
		reader = FileReader{}
	}
	content, err := reader.ReadContent(a.Entry)
	if err != nil {
		return Outcome{}, failure(a, &syncerr.Error{Kind: syncerr.KindIO, Op: "read", Key: a.Entry.LocalPath, Err: err}, 0)
	}

	attempts, err := withRetry(ctx, policy, logger, a.Kind.String(), a.Key(), func(ctx context.Context) error {
		var err error
		if a.Kind == UploadNew {
			_, err = catalog.CreateResource(ctx, x.ProjectID, a.Entry.RemoteKey, content)
		} else {
			_, err = catalog.UpdateResource(ctx, x.ProjectID, a.Remote.RemoteID, content)
		}
		return err
	})
	if err != nil {
		return Outcome{}, failure(a, err, attempts)
	}
	return Outcome{
		Action:   a,
		Hash:     mapper.HashContent(content),
		Bytes:    int64(len(content)),
		Attempts: attempts,
	}, nil
}

func (x *Executor) download(ctx context.Context, a Action, catalog remote.Catalog, policy config.RetryPolicy, logger *slog.Logger) (Outcome, *Failure) {
	if x.Writer == nil {
		return Outcome{}, failure(a, syncerr.Configf("no translation writer configured"), 0)
	}

	var content []byte
	attempts, err := withRetry(ctx, policy, logger, "download", a.Key(), func(ctx context.Context) error {
		var err error
		content, err = catalog.FetchTranslation(ctx, x.ProjectID, a.Remote.RemoteID, a.Locale)
		return err
	})
	if err != nil {
		return Outcome{}, failure(a, err, attempts)
	}

	unchanged, err := x.Writer.WriteFile(a.DestinationPath, content)
	if err != nil {
		return Outcome{}, failure(a, &syncerr.Error{Kind: syncerr.KindIO, Op: "write", Key: a.DestinationPath, Err: err}, attempts)
	}
	return Outcome{
		Action:    a,
		Hash:      mapper.HashContent(content),
		Bytes:     int64(len(content)),
		Attempts:  attempts,
		Unchanged: unchanged,
	}, nil
}

func (x *Executor) remove(ctx context.Context, a Action, catalog remote.Catalog, policy config.RetryPolicy, logger *slog.Logger) (Outcome, *Failure) {
	attempts, err := withRetry(ctx, policy, logger, "delete", a.Key(), func(ctx context.Context) error {
		return catalog.DeleteResource(ctx, x.ProjectID, a.Remote.RemoteID)
	})
	if err != nil {
		return Outcome{}, failure(a, err, attempts)
	}
	return Outcome{Action: a, Attempts: attempts}, nil
}

func failure(a Action, err error, attempts int) *Failure {
	kind := syncerr.KindOf(err)
	return &Failure{Action: a, Kind: kind, Err: err, Attempts: attempts}
}

func (x *Executor) logger() *slog.Logger {
	l := x.Logger
	if l == nil {
		l = discard()
	}
	if x.RunID != "" {
		l = l.With("run", x.RunID)
	}
	return l
}
