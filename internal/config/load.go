package config

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/bianoble/crowdin-sync/internal/keytemplate"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultKeyTemplate      = "%" + keytemplate.TokenFilePathname + "%"
	DefaultDownloadTemplate = "translations/%" + keytemplate.TokenLocale + "%/%" + keytemplate.TokenRemoteKey + "%"
	DefaultIgnoreFile       = ".crowdinignore"
	DefaultConcurrency      = 4
	DefaultMaxAttempts      = 3
	DefaultBaseDelayMs      = 500
	DefaultMaxDelayMs       = 30000
)

// Load reads, completes and validates a single crowdin-sync configuration file.
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, syncerr.New(syncerr.KindConfiguration, "config", err)
	}
	if err := Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a configuration file without applying defaults or
// validating it. Files ending in .toml are decoded as TOML, everything else
// as YAML.
func Parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// Finalize substitutes user tokens, fills in defaults and validates cfg.
// Validation failures are returned as a configuration *syncerr.Error
// wrapping a *ValidationError.
func Finalize(cfg *Config) error {
	ResolveTokens(cfg)
	ApplyDefaults(cfg)
	if errs := Validate(cfg); len(errs) > 0 {
		return syncerr.New(syncerr.KindConfiguration, "config", &ValidationError{Errors: errs})
	}
	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ResolveTokens substitutes the user-defined tokens into every string field
// that is later parsed as a path, glob or template.
func ResolveTokens(cfg *Config) {
	if len(cfg.Tokens) == 0 {
		return
	}
	sub := func(s string) string { return keytemplate.ReplaceUserTokens(s, cfg.Tokens) }
	subAll := func(ss []string) {
		for i := range ss {
			ss[i] = sub(ss[i])
		}
	}

	cfg.ProjectID = sub(cfg.ProjectID)
	cfg.KeyTemplate = sub(cfg.KeyTemplate)
	cfg.IgnoreFile = sub(cfg.IgnoreFile)
	cfg.Download.Template = sub(cfg.Download.Template)
	subAll(cfg.RootDirectories)
	subAll(cfg.Include)
	subAll(cfg.Exclude)
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModeFull
	} else if m, err := ParseMode(string(cfg.Mode)); err == nil {
		cfg.Mode = m
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.KeyTemplate == "" {
		cfg.KeyTemplate = DefaultKeyTemplate
	}
	if cfg.IgnoreFile == "" {
		cfg.IgnoreFile = DefaultIgnoreFile
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Retry.BaseDelayMs == 0 {
		cfg.Retry.BaseDelayMs = DefaultBaseDelayMs
	}
	if cfg.Retry.MaxDelayMs == 0 {
		cfg.Retry.MaxDelayMs = DefaultMaxDelayMs
	}
	if cfg.Download.Template == "" {
		cfg.Download.Template = DefaultDownloadTemplate
	}
	if cfg.Download.Scope == "" {
		cfg.Download.Scope = ScopeUnmatched
	}
}

// ParseMode accepts the canonical mode names case-insensitively, with or
// without a dash ("upload-only").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "uploadonly", "upload":
		return ModeUploadOnly, nil
	case "downloadonly", "download":
		return ModeDownloadOnly, nil
	case "full", "":
		return ModeFull, nil
	default:
		return "", fmt.Errorf("invalid mode '%s' — must be one of: uploadOnly, downloadOnly, full", s)
	}
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", cfg.Version))
	}
	if strings.TrimSpace(cfg.ProjectID) == "" {
		errs = append(errs, "'project_id' is required — set it in the config or export CROWDIN_PROJECT_ID")
	}

	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("base_url '%s' is not an absolute URL", cfg.BaseURL))
		}
		if cfg.Organization != "" {
			errs = append(errs, "'base_url' and 'organization' are mutually exclusive — use one or the other")
		}
	}

	if len(cfg.RootDirectories) == 0 {
		errs = append(errs, "at least one entry in 'root_directories' is required")
	}
	for i, root := range cfg.RootDirectories {
		errs = append(errs, validateRelPath(fmt.Sprintf("root_directories[%d]", i), root)...)
	}

	for i, p := range cfg.Include {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Sprintf("include[%d]: invalid glob '%s'", i, p))
		}
	}
	for i, p := range cfg.Exclude {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Sprintf("exclude[%d]: invalid glob '%s'", i, p))
		}
	}

	if _, err := keytemplate.Parse(cfg.KeyTemplate, keytemplate.KeyTokens); err != nil {
		errs = append(errs, fmt.Sprintf("key_template: %v", err))
	}

	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.Concurrency < 1 {
		errs = append(errs, fmt.Sprintf("concurrency must be at least 1, got %d", cfg.Concurrency))
	}

	if cfg.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("retry.max_attempts must be at least 1, got %d", cfg.Retry.MaxAttempts))
	}
	if cfg.Retry.BaseDelayMs < 0 {
		errs = append(errs, fmt.Sprintf("retry.base_delay_ms must not be negative, got %d", cfg.Retry.BaseDelayMs))
	}
	if cfg.Retry.MaxDelayMs < cfg.Retry.BaseDelayMs {
		errs = append(errs, fmt.Sprintf("retry.max_delay_ms (%d) must not be less than retry.base_delay_ms (%d)", cfg.Retry.MaxDelayMs, cfg.Retry.BaseDelayMs))
	}

	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err != nil || d < 0 {
			errs = append(errs, fmt.Sprintf("timeout '%s' is not a valid duration — use e.g. 10m or 90s", cfg.Timeout))
		}
	}

	errs = append(errs, validateDownload(cfg.Download)...)

	return errs
}

func validateDownload(d Download) []string {
	var errs []string

	if _, err := keytemplate.Parse(d.Template, keytemplate.DownloadTokens); err != nil {
		errs = append(errs, fmt.Sprintf("download.template: %v", err))
	}
	switch d.Scope {
	case ScopeUnmatched, ScopeAll:
		// valid
	default:
		errs = append(errs, fmt.Sprintf("download.scope: invalid scope '%s' — must be one of: unmatched, all", d.Scope))
	}
	for i, loc := range d.Locales {
		if !keytemplate.ValidLocale(loc) {
			errs = append(errs, fmt.Sprintf("download.locales[%d]: '%s' is not a valid language tag", i, loc))
		}
	}
	return errs
}

func validateRelPath(field, p string) []string {
	if strings.TrimSpace(p) == "" {
		return []string{fmt.Sprintf("%s: path is empty", field)}
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return []string{fmt.Sprintf("%s: '%s' must be relative to the project root", field, p)}
	}
	clean := path.Clean(filepath.ToSlash(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return []string{fmt.Sprintf("%s: '%s' escapes the project root", field, p)}
	}
	return nil
}
