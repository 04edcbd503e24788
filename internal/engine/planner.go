package engine

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/keytemplate"
	"github.com/bianoble/crowdin-sync/internal/mapper"
	"github.com/bianoble/crowdin-sync/internal/remote"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// Planner turns local and remote state into an ordered list of actions.
// Plan performs no I/O and never modifies its arguments.
type Planner struct {
	// Scope selects which remote resources receive downloads.
	Scope config.DownloadScope
	// Locales, if non-empty, restricts downloads to these locales.
	Locales []string
	// DownloadTemplate maps a remote key and locale to a destination path.
	DownloadTemplate *keytemplate.Template
	// DeleteRemoved plans a DeleteResource for every remote resource
	// without a local entry when uploads are planned.
	DeleteRemoved bool
}

// NewPlanner builds a planner from a finalized config.
func NewPlanner(cfg *config.Config) (*Planner, error) {
	tmpl, err := keytemplate.Parse(cfg.Download.Template, keytemplate.DownloadTokens)
	if err != nil {
		return nil, syncerr.New(syncerr.KindConfiguration, "plan", err)
	}
	return &Planner{
		Scope:            cfg.Download.Scope,
		Locales:          cfg.Download.Locales,
		DownloadTemplate: tmpl,
		DeleteRemoved:    cfg.Upload.DeleteRemoved,
	}, nil
}

// Plan compares local entries with remote resources.
//
// In uploadOnly and full mode every local entry yields exactly one of
// UploadNew, UploadChanged or Skip. With DeleteRemoved, uploading modes
// also delete every remote resource whose key no local entry maps to; a
// deleted resource gets no downloads. In downloadOnly and full mode every
// other qualifying remote resource yields one DownloadTranslation per
// locale. Uploads come first, in LocalPath order, then deletes and
// downloads in remote key (and locale) order.
func (p *Planner) Plan(local []mapper.Entry, resources []remote.Resource, mode config.Mode) ([]Action, error) {
	entries := make([]mapper.Entry, len(local))
	copy(entries, local)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].LocalPath < entries[j].LocalPath })

	localKeys := make(map[string]string, len(entries))
	localPaths := make(map[string]bool, len(entries))
	for _, e := range entries {
		localPaths[e.LocalPath] = true
		if prev, dup := localKeys[e.RemoteKey]; dup {
			return nil, &syncerr.Error{
				Kind: syncerr.KindConfiguration,
				Op:   "plan",
				Key:  e.RemoteKey,
				Err:  errDuplicateKey(prev, e.LocalPath),
			}
		}
		localKeys[e.RemoteKey] = e.LocalPath
	}

	byKey := make(map[string]remote.Resource, len(resources))
	for _, r := range resources {
		byKey[r.RemoteKey] = r
	}

	var actions []Action
	deleted := make(map[string]bool)
	if mode.Uploads() {
		for _, e := range entries {
			actions = append(actions, planUpload(e, byKey))
		}
		if p.DeleteRemoved {
			for _, r := range sortedResources(resources) {
				if _, matched := localKeys[r.RemoteKey]; !matched {
					deleted[r.RemoteKey] = true
					actions = append(actions, Action{Kind: DeleteResource, Remote: r})
				}
			}
		}
	}

	if mode.Downloads() {
		downloads, err := p.planDownloads(resources, localKeys, localPaths, deleted)
		if err != nil {
			return nil, err
		}
		actions = append(actions, downloads...)
	}

	for i := range actions {
		actions[i].Index = i
	}
	return actions, nil
}

func planUpload(e mapper.Entry, byKey map[string]remote.Resource) Action {
	r, exists := byKey[e.RemoteKey]
	switch {
	case !exists:
		return Action{Kind: UploadNew, Entry: e}
	case e.Err != nil || e.ContentHash != e.LastSyncedHash:
		return Action{Kind: UploadChanged, Entry: e, Remote: r}
	default:
		return Action{Kind: Skip, Entry: e, Remote: r, Reason: "unchanged"}
	}
}

func sortedResources(resources []remote.Resource) []remote.Resource {
	sorted := make([]remote.Resource, len(resources))
	copy(sorted, resources)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RemoteKey < sorted[j].RemoteKey })
	return sorted
}

func (p *Planner) planDownloads(resources []remote.Resource, localKeys map[string]string, localPaths map[string]bool, deleted map[string]bool) ([]Action, error) {
	sorted := sortedResources(resources)

	filter := make(map[string]bool, len(p.Locales))
	for _, l := range p.Locales {
		filter[l] = true
	}

	var actions []Action
	destinations := make(map[string]string)
	for _, r := range sorted {
		if deleted[r.RemoteKey] {
			continue
		}
		if _, matched := localKeys[r.RemoteKey]; matched && p.Scope != config.ScopeAll {
			continue
		}
		for _, locale := range r.Locales() {
			if len(filter) > 0 && !filter[locale] {
				continue
			}
			dest, err := p.destination(r.RemoteKey, locale)
			if err != nil {
				return nil, err
			}
			owner := r.RemoteKey + " [" + locale + "]"
			if localPaths[dest] {
				return nil, &syncerr.Error{
					Kind: syncerr.KindConfiguration,
					Op:   "plan",
					Key:  dest,
					Err:  fmt.Errorf("translation %s would overwrite a source file", owner),
				}
			}
			if prev, dup := destinations[dest]; dup {
				return nil, &syncerr.Error{
					Kind: syncerr.KindConfiguration,
					Op:   "plan",
					Key:  dest,
					Err:  errDuplicateDestination(prev, owner),
					Hint: "include %locale% and %remote_key% in download.template",
				}
			}
			destinations[dest] = owner
			actions = append(actions, Action{
				Kind:            DownloadTranslation,
				Remote:          r,
				Locale:          locale,
				DestinationPath: dest,
			})
		}
	}
	return actions, nil
}

// destination expands the download template for one remote key and locale.
func (p *Planner) destination(remoteKey, locale string) (string, error) {
	tmpl := p.DownloadTemplate
	if tmpl == nil {
		tmpl = keytemplate.MustParse(config.DefaultDownloadTemplate, keytemplate.DownloadTokens)
	}

	lv, err := keytemplate.LocaleVars(locale)
	if err != nil {
		// Remote language ids outside BCP 47 still map to %locale%.
		lv = keytemplate.Vars{
			keytemplate.TokenLocale:               locale,
			keytemplate.TokenTwoLettersCode:       locale,
			keytemplate.TokenLocaleWithUnderscore: strings.ReplaceAll(locale, "-", "_"),
			keytemplate.TokenAndroidCode:          locale,
		}
	}
	vars := keytemplate.Merge(
		keytemplate.FileVars("", remoteKey),
		lv,
		keytemplate.Vars{keytemplate.TokenRemoteKey: remoteKey},
	)
	raw := tmpl.Expand(vars)

	dest := strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(raw, "\\", "/")), "/")
	if dest == "" {
		return "", &syncerr.Error{
			Kind: syncerr.KindConfiguration,
			Op:   "plan",
			Key:  remoteKey,
			Err:  errEmptyDestination(locale),
		}
	}
	return dest, nil
}

func errDuplicateKey(a, b string) error {
	return fmt.Errorf("%s and %s map to the same remote key", a, b)
}

func errDuplicateDestination(a, b string) error {
	return fmt.Errorf("%s and %s download to the same path", a, b)
}

func errEmptyDestination(locale string) error {
	return fmt.Errorf("download template expands to an empty path for locale %s", locale)
}
