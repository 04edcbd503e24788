package engine

import (
	"time"

	"github.com/bianoble/crowdin-sync/internal/mapper"
	"github.com/bianoble/crowdin-sync/internal/remote"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// ActionKind is what the executor does for one planned action.
type ActionKind int

const (
	UploadNew ActionKind = iota
	UploadChanged
	Skip
	DownloadTranslation
	// DeleteResource removes a remote resource with no local counterpart.
	DeleteResource
)

func (k ActionKind) String() string {
	switch k {
	case UploadNew:
		return "upload-new"
	case UploadChanged:
		return "upload-changed"
	case Skip:
		return "skip"
	case DownloadTranslation:
		return "download"
	case DeleteResource:
		return "delete"
	default:
		return "unknown"
	}
}

// IsUpload reports whether k sends local content to the remote catalog.
func (k ActionKind) IsUpload() bool {
	return k == UploadNew || k == UploadChanged
}

// Action is one planned unit of work. Index is its position in the plan.
type Action struct {
	Index int
	Kind  ActionKind

	// Entry is the local resource for uploads and skips.
	Entry mapper.Entry
	// Remote is the matched remote resource for UploadChanged, Skip,
	// DownloadTranslation and DeleteResource.
	Remote remote.Resource

	// Reason explains a Skip.
	Reason string

	// Locale and DestinationPath are set for DownloadTranslation.
	// DestinationPath is relative to the project root.
	Locale          string
	DestinationPath string
}

// Key returns the remote key the action concerns.
func (a Action) Key() string {
	if a.Kind == DownloadTranslation || a.Kind == DeleteResource {
		return a.Remote.RemoteKey
	}
	return a.Entry.RemoteKey
}

// Target is a short human-readable description of the action's subject.
func (a Action) Target() string {
	switch a.Kind {
	case DownloadTranslation:
		return a.Remote.RemoteKey + " [" + a.Locale + "] -> " + a.DestinationPath
	case DeleteResource:
		return a.Remote.RemoteKey
	}
	return a.Entry.LocalPath + " -> " + a.Entry.RemoteKey
}

// Outcome is a successfully executed action.
type Outcome struct {
	Action Action
	// Hash is the SHA-256 of the content uploaded or downloaded.
	Hash     string
	Bytes    int64
	Attempts int
	// Unchanged is set for skips and for downloads whose destination
	// already held identical content.
	Unchanged bool
}

// Failure is an action that did not succeed.
type Failure struct {
	Action   Action
	Kind     syncerr.Kind
	Err      error
	Attempts int
}

// Report is the outcome of one executed plan. Every action of the plan
// appears exactly once in Succeeded or Failed; both are sorted by index.
type Report struct {
	RunID     string
	Started   time.Time
	Duration  time.Duration
	Succeeded []Outcome
	Failed    []Failure
}

// OK reports whether every action succeeded.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Cancelled reports whether any action failed because the run was
// cancelled or timed out.
func (r *Report) Cancelled() bool {
	for _, f := range r.Failed {
		if f.Kind == syncerr.KindCancelled {
			return true
		}
	}
	return false
}

// Count returns the number of successful actions of kind k.
func (r *Report) Count(k ActionKind) int {
	n := 0
	for _, o := range r.Succeeded {
		if o.Action.Kind == k {
			n++
		}
	}
	return n
}

// Total is the number of actions the report covers.
func (r *Report) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}
