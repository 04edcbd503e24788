package engine

import (
	"context"

	"github.com/bianoble/crowdin-sync/internal/config"
)

// ActionStatus describes one planned action for display.
type ActionStatus struct {
	Local  string
	Remote string
	Locale string
	State  string // "new", "changed", "unchanged", "unreadable", "download", "delete"
	Detail string
}

// StatusResult is the plan a sync would execute, ready for display.
type StatusResult struct {
	Mode    config.Mode
	Actions []ActionStatus
	Counts  map[string]int
}

// Status plans a run without executing it and without taking the ledger lock.
func (e *SyncEngine) Status(ctx context.Context, cfg *config.Config, mode config.Mode) (*StatusResult, error) {
	if mode == "" {
		mode = cfg.Mode
	}
	planned, err := e.Plan(ctx, cfg, mode)
	if err != nil {
		return nil, err
	}
	return Describe(planned.Plan, mode), nil
}

// Describe converts a plan into display rows.
func Describe(actions []Action, mode config.Mode) *StatusResult {
	r := &StatusResult{Mode: mode, Counts: make(map[string]int)}
	for _, a := range actions {
		s := ActionStatus{Remote: a.Key()}
		switch a.Kind {
		case UploadNew:
			s.Local, s.State = a.Entry.LocalPath, "new"
		case UploadChanged:
			s.Local, s.State = a.Entry.LocalPath, "changed"
		case Skip:
			s.Local, s.State, s.Detail = a.Entry.LocalPath, "unchanged", a.Reason
		case DownloadTranslation:
			s.Local, s.State, s.Locale = a.DestinationPath, "download", a.Locale
		case DeleteResource:
			s.State = "delete"
		}
		if a.Kind.IsUpload() && a.Entry.Err != nil {
			s.State, s.Detail = "unreadable", a.Entry.Err.Error()
		}
		r.Counts[s.State]++
		r.Actions = append(r.Actions, s)
	}
	return r
}
