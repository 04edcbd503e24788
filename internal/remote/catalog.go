// Package remote talks to the translation service that holds the remote
// copies of resource files.
package remote

import (
	"context"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Resource is a remote resource file. It is read-only outside this package.
type Resource struct {
	RemoteKey  string
	RemoteID   string
	RemoteHash string
	// AvailableLocales are the locales a translation can be fetched in.
	AvailableLocales mapset.Set[string]
}

// Locales returns AvailableLocales in sorted order.
func (r Resource) Locales() []string {
	if r.AvailableLocales == nil {
		return nil
	}
	out := r.AvailableLocales.ToSlice()
	sort.Strings(out)
	return out
}

// Catalog is the remote side of a synchronization.
//
// Implementations classify every error with a syncerr kind: auth failures
// as KindAuth, throttling, timeouts and 5xx responses as KindTransient, and
// rejected requests (including creating a key that already exists) as
// KindValidation.
type Catalog interface {
	// ListResources returns every resource of the project, sorted by key.
	ListResources(ctx context.Context, projectID string) ([]Resource, error)
	CreateResource(ctx context.Context, projectID, remoteKey string, content []byte) (Resource, error)
	UpdateResource(ctx context.Context, projectID, remoteID string, content []byte) (Resource, error)
	FetchTranslation(ctx context.Context, projectID, remoteID, locale string) ([]byte, error)
	// DeleteResource removes a resource and its translations. Deleting a
	// resource that no longer exists succeeds.
	DeleteResource(ctx context.Context, projectID, remoteID string) error
}

// LanguageProgress is the translation progress of one target language.
type LanguageProgress struct {
	LanguageID          string
	Words               Counts
	Phrases             Counts
	TranslationProgress int
	ApprovalProgress    int
}

// Counts are word or phrase totals.
type Counts struct {
	Total      int
	Translated int
	Approved   int
}

// ProgressReader is implemented by catalogs that report translation progress.
type ProgressReader interface {
	Progress(ctx context.Context, projectID string) ([]LanguageProgress, error)
}

func sortResources(rs []Resource) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].RemoteKey < rs[j].RemoteKey })
}
