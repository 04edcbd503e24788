// Package mapper discovers local resource files and derives their remote keys.
package mapper

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/text/unicode/norm"

	"github.com/bianoble/crowdin-sync/internal/keytemplate"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// Entry is one local resource file.
type Entry struct {
	// LocalPath is relative to the project root, slash-separated.
	LocalPath string
	AbsPath   string
	// Root is the root directory (relative to the project root) the file
	// was found under.
	Root      string
	RemoteKey string

	// ContentHash is the SHA-256 hex digest of the file as scanned.
	ContentHash string
	// LastSyncedHash is filled from the ledger by the caller; "" if absent.
	LastSyncedHash string
	Size           int64

	// Err is set when the file could not be read.
	Err error
}

// Mapper scans root directories below ProjectRoot.
type Mapper struct {
	ProjectRoot string
	FS          FS
	// IgnoreFile is a gitignore-style file looked up in each root. Empty
	// disables ignore files.
	IgnoreFile string
	Logger     *slog.Logger
}

// HashContent returns the SHA-256 hex digest of data.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Scan walks roots and returns one entry per selected file, sorted by
// LocalPath. A file is selected when its path relative to its root matches
// at least one include pattern (all files if include is empty), no exclude
// pattern and no ignore-file rule. Hidden and empty files are skipped.
//
// Missing roots and colliding remote keys are configuration errors. A file
// that cannot be read yields an entry with Err set and does not stop the scan.
func (m *Mapper) Scan(ctx context.Context, roots, include, exclude []string, keyTemplate *keytemplate.Template) ([]Entry, error) {
	fsys := m.FS
	if fsys == nil {
		fsys = OSFS{}
	}
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}

	byAbs := make(map[string]bool)
	var entries []Entry

	for _, root := range roots {
		absRoot := filepath.Clean(filepath.Join(m.ProjectRoot, filepath.FromSlash(root)))
		info, err := fsys.Stat(absRoot)
		if err != nil {
			return nil, &syncerr.Error{Kind: syncerr.KindConfiguration, Op: "scan", Key: root, Err: err, Hint: "check root_directories in the config"}
		}
		if !info.IsDir() {
			return nil, &syncerr.Error{Kind: syncerr.KindConfiguration, Op: "scan", Key: root, Err: fmt.Errorf("not a directory")}
		}

		ignore := m.loadIgnore(fsys, absRoot)

		walkErr := fsys.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if p == absRoot {
					return err
				}
				logger.Warn("skipping unreadable path", "path", p, "err", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if p == absRoot {
				return nil
			}

			rel, err := filepath.Rel(absRoot, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			if strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if ignore != nil && ignore.MatchesPath(rel+"/") {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !selected(rel, include, exclude) || (ignore != nil && ignore.MatchesPath(rel)) {
				return nil
			}
			if byAbs[p] {
				return nil
			}
			byAbs[p] = true

			e, ok, err := m.entry(fsys, logger, root, absRoot, p, rel, keyTemplate)
			if err != nil {
				return err
			}
			if ok {
				entries = append(entries, e)
			}
			return nil
		})
		if walkErr != nil {
			if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
				return nil, syncerr.New(syncerr.KindCancelled, "scan", walkErr)
			}
			var se *syncerr.Error
			if errors.As(walkErr, &se) {
				return nil, walkErr
			}
			return nil, &syncerr.Error{Kind: syncerr.KindIO, Op: "scan", Key: root, Err: walkErr}
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].LocalPath < entries[j].LocalPath })

	if err := checkCollisions(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (m *Mapper) entry(fsys FS, logger *slog.Logger, root, absRoot, p, rel string, tmpl *keytemplate.Template) (Entry, bool, error) {
	localRel, err := filepath.Rel(m.ProjectRoot, p)
	if err != nil {
		localRel = filepath.Join(root, rel)
	}

	key, err := NormalizeKey(tmpl.Expand(keytemplate.FileVars(absRoot, rel)))
	if err != nil {
		return Entry{}, false, &syncerr.Error{Kind: syncerr.KindConfiguration, Op: "scan", Key: filepath.ToSlash(localRel), Err: err, Hint: "check key_template"}
	}

	e := Entry{
		LocalPath: filepath.ToSlash(localRel),
		AbsPath:   p,
		Root:      root,
		RemoteKey: key,
	}

	data, err := fsys.ReadFile(p)
	if err != nil {
		e.Err = &syncerr.Error{Kind: syncerr.KindIO, Op: "read", Key: e.LocalPath, Err: err}
		return e, true, nil
	}
	if len(data) == 0 {
		logger.Info("skipping empty file", "path", e.LocalPath)
		return Entry{}, false, nil
	}
	e.Size = int64(len(data))
	e.ContentHash = HashContent(data)
	return e, true, nil
}

// NormalizeKey NFC-normalizes and cleans a remote key. Keys are
// slash-separated, relative, and must not escape upward.
func NormalizeKey(key string) (string, error) {
	key = norm.NFC.String(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimLeft(path.Clean("/"+key), "/")
	if key == "" {
		return "", fmt.Errorf("key template produced an empty key")
	}
	return key, nil
}

func selected(rel string, include, exclude []string) bool {
	if len(include) > 0 && !matchAny(include, rel) {
		return false
	}
	return !matchAny(exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (m *Mapper) loadIgnore(fsys FS, absRoot string) *gitignore.GitIgnore {
	if m.IgnoreFile == "" {
		return nil
	}
	data, err := fsys.ReadFile(filepath.Join(absRoot, m.IgnoreFile))
	if err != nil {
		return nil
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return gitignore.CompileIgnoreLines(lines...)
}

func checkCollisions(entries []Entry) error {
	owner := make(map[string]string, len(entries))
	for _, e := range entries {
		if prev, ok := owner[e.RemoteKey]; ok {
			return &syncerr.Error{
				Kind: syncerr.KindConfiguration,
				Op:   "scan",
				Key:  e.RemoteKey,
				Err:  fmt.Errorf("files %s and %s map to the same remote key", prev, e.LocalPath),
				Hint: "make key_template include enough of the path to tell them apart",
			}
		}
		owner[e.RemoteKey] = e.LocalPath
	}
	return nil
}
