// Package ledger persists the content hashes of the last successful
// synchronization, keyed by remote key.
package ledger

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultFileName is the ledger file written next to the config.
const DefaultFileName = "crowdin-sync.lock"

// Ledger is the crowdin-sync.lock document.
type Ledger struct {
	Version   int    `yaml:"version"`
	ProjectID string `yaml:"project_id,omitempty"`

	// Resources maps a remote key to the SHA-256 of the source content last
	// uploaded (or confirmed unchanged) for it.
	Resources map[string]string `yaml:"resources,omitempty"`

	// Translations maps a remote key to locale to the SHA-256 of the
	// translation last written locally.
	Translations map[string]map[string]string `yaml:"translations,omitempty"`
}

// New returns an empty version 1 ledger.
func New(projectID string) *Ledger {
	return &Ledger{
		Version:      1,
		ProjectID:    projectID,
		Resources:    make(map[string]string),
		Translations: make(map[string]map[string]string),
	}
}

// Lookup returns the hash recorded for remoteKey, or "" if none.
func (l *Ledger) Lookup(remoteKey string) string {
	if l == nil {
		return ""
	}
	return l.Resources[remoteKey]
}

// LookupTranslation returns the hash recorded for a downloaded translation.
func (l *Ledger) LookupTranslation(remoteKey, locale string) string {
	if l == nil {
		return ""
	}
	return l.Translations[remoteKey][locale]
}

// Record sets the hash for remoteKey.
func (l *Ledger) Record(remoteKey, hash string) {
	if l.Resources == nil {
		l.Resources = make(map[string]string)
	}
	l.Resources[remoteKey] = hash
}

// RecordTranslation sets the hash of a downloaded translation.
func (l *Ledger) RecordTranslation(remoteKey, locale, hash string) {
	if l.Translations == nil {
		l.Translations = make(map[string]map[string]string)
	}
	byLocale, ok := l.Translations[remoteKey]
	if !ok {
		byLocale = make(map[string]string)
		l.Translations[remoteKey] = byLocale
	}
	byLocale[locale] = hash
}

// Forget removes the resource entry and the translation entries of
// remoteKey.
func (l *Ledger) Forget(remoteKey string) {
	delete(l.Resources, remoteKey)
	delete(l.Translations, remoteKey)
}

// Keys returns the recorded resource keys in sorted order.
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.Resources))
	for k := range l.Resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Prune removes every resource entry whose key is not in keep and returns
// the removed keys in sorted order. Translation entries belong to remote
// resources and are left alone.
func (l *Ledger) Prune(keep mapset.Set[string]) []string {
	var removed []string
	for k := range l.Resources {
		if !keep.Contains(k) {
			delete(l.Resources, k)
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	return removed
}
