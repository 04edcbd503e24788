// Package keytemplate expands %token% path templates used to derive remote
// keys from local files and download destinations from remote keys.
package keytemplate

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// File tokens, derived from a path relative to a root directory.
const (
	TokenFilePathname     = "file_pathname"
	TokenOriginalFileName = "original_file_name"
	TokenFileName         = "file_name"
	TokenFileExtension    = "file_extension"
	TokenOriginalPath     = "original_path"
	TokenBaseDirname      = "base_dirname"
)

// Download-only tokens.
const (
	TokenRemoteKey            = "remote_key"
	TokenLocale               = "locale"
	TokenTwoLettersCode       = "two_letters_code"
	TokenLocaleWithUnderscore = "locale_with_underscore"
	TokenAndroidCode          = "android_code"
)

// KeyTokens are the tokens accepted by key templates.
var KeyTokens = []string{
	TokenFilePathname, TokenOriginalFileName, TokenFileName,
	TokenFileExtension, TokenOriginalPath, TokenBaseDirname,
}

// DownloadTokens are the tokens accepted by download templates.
var DownloadTokens = []string{
	TokenFilePathname, TokenOriginalFileName, TokenFileName,
	TokenFileExtension, TokenOriginalPath, TokenRemoteKey,
	TokenLocale, TokenTwoLettersCode, TokenLocaleWithUnderscore, TokenAndroidCode,
}

var tokenPattern = regexp.MustCompile(`%([a-z][a-z0-9_]*)%`)

// Vars maps token names (without the surrounding %) to values.
type Vars map[string]string

// Template is a parsed path template.
type Template struct {
	raw    string
	tokens []string
}

// Parse validates raw against the allowed token names.
// Unknown tokens are rejected so that typos fail at config load rather
// than producing literal "%foo%" keys.
func Parse(raw string, allowed []string) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("template is empty")
	}
	known := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		known[a] = true
	}

	var tokens []string
	var unknown []string
	seen := make(map[string]bool)
	for _, m := range tokenPattern.FindAllStringSubmatch(raw, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		if !known[name] {
			unknown = append(unknown, "%"+name+"%")
			continue
		}
		tokens = append(tokens, name)
	}
	if len(unknown) > 0 {
		supported := wrap(allowed)
		sort.Strings(supported)
		return nil, fmt.Errorf("unknown token(s) %s in template %q, supported: %s",
			strings.Join(unknown, ", "), raw, strings.Join(supported, " "))
	}
	return &Template{raw: raw, tokens: tokens}, nil
}

// MustParse is like Parse but panics on error. For package-level defaults.
func MustParse(raw string, allowed []string) *Template {
	t, err := Parse(raw, allowed)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) String() string {
	return t.raw
}

// Uses reports whether the template references the named token.
func (t *Template) Uses(name string) bool {
	for _, tok := range t.tokens {
		if tok == name {
			return true
		}
	}
	return false
}

// Expand substitutes every token in one pass. Tokens missing from vars
// expand to the empty string.
func (t *Template) Expand(vars Vars) string {
	pairs := make([]string, 0, 2*len(t.tokens))
	for _, name := range t.tokens {
		pairs = append(pairs, "%"+name+"%", vars[name])
	}
	return strings.NewReplacer(pairs...).Replace(t.raw)
}

// FileVars derives the file tokens for rel, a slash-separated path relative
// to the root directory root.
func FileVars(root, rel string) Vars {
	base := path.Base(rel)
	ext := path.Ext(base)
	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	v := Vars{
		TokenFilePathname:     rel,
		TokenOriginalFileName: base,
		TokenFileName:         strings.TrimSuffix(base, ext),
		TokenFileExtension:    ext,
		TokenOriginalPath:     dir,
	}
	if root != "" {
		v[TokenBaseDirname] = filepath.Base(root)
	}
	return v
}

// Merge returns a new Vars with the entries of all sets; later sets win.
func Merge(sets ...Vars) Vars {
	out := make(Vars)
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// ReplaceUserTokens substitutes user-defined %name% tokens in s and leaves
// every other token untouched.
func ReplaceUserTokens(s string, tokens map[string]string) string {
	if len(tokens) == 0 || s == "" {
		return s
	}
	names := make([]string, 0, len(tokens))
	for k := range tokens {
		names = append(names, k)
	}
	sort.Strings(names)
	pairs := make([]string, 0, 2*len(names))
	for _, k := range names {
		pairs = append(pairs, "%"+k+"%", tokens[k])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func wrap(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "%" + n + "%"
	}
	return out
}
