package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Load reads and validates a ledger file. A missing file yields an empty
// ledger for projectID. A ledger recorded for a different project is a
// configuration error.
func Load(path, projectID string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(projectID), nil
	}
	if err != nil {
		return nil, syncerr.New(syncerr.KindIO, "ledger", fmt.Errorf("reading ledger %s: %w", path, err))
	}

	var l Ledger
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, syncerr.New(syncerr.KindConfiguration, "ledger", fmt.Errorf("parsing ledger %s: %w", path, err))
	}

	if errs := Validate(&l); len(errs) > 0 {
		return nil, syncerr.New(syncerr.KindConfiguration, "ledger", &ValidationError{Errors: errs})
	}
	if projectID != "" && l.ProjectID != "" && l.ProjectID != projectID {
		return nil, &syncerr.Error{
			Kind: syncerr.KindConfiguration,
			Op:   "ledger",
			Err:  fmt.Errorf("ledger %s belongs to project %s, config names project %s", path, l.ProjectID, projectID),
			Hint: "use --ledger to point at a separate file per project",
		}
	}

	if l.ProjectID == "" {
		l.ProjectID = projectID
	}
	if l.Resources == nil {
		l.Resources = make(map[string]string)
	}
	if l.Translations == nil {
		l.Translations = make(map[string]map[string]string)
	}
	return &l, nil
}

// Save writes a ledger atomically using a temp file and rename.
func Save(path string, l *Ledger) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return syncerr.New(syncerr.KindIO, "ledger", fmt.Errorf("writing temp ledger %s: %w", tmp, err))
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return syncerr.New(syncerr.KindIO, "ledger", fmt.Errorf("renaming temp ledger to %s: %w", path, err))
	}

	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Ledger for semantic correctness.
// Returns a list of validation error messages (empty if valid), in key order.
func Validate(l *Ledger) []string {
	var errs []string

	if l.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", l.Version))
	}

	for _, key := range sortedKeys(l.Resources) {
		if key == "" {
			errs = append(errs, "resources: empty remote key")
			continue
		}
		if !sha256Hex.MatchString(l.Resources[key]) {
			errs = append(errs, fmt.Sprintf("resource '%s': '%s' is not a SHA-256 hex digest", key, l.Resources[key]))
		}
	}

	for _, key := range sortedKeys(l.Translations) {
		byLocale := l.Translations[key]
		for _, locale := range sortedKeys(byLocale) {
			if !sha256Hex.MatchString(byLocale[locale]) {
				errs = append(errs, fmt.Sprintf("translation '%s' [%s]: '%s' is not a SHA-256 hex digest", key, locale, byLocale[locale]))
			}
		}
	}

	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
