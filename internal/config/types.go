package config

import (
	"log/slog"
	"time"
)

// Config represents the crowdin-sync.yaml configuration file.
type Config struct {
	Version   int    `yaml:"version" toml:"version"`
	ProjectID string `yaml:"project_id" toml:"project_id"`

	// APIToken is normally supplied through CROWDIN_API_TOKEN rather than
	// committed to the project config.
	APIToken     Secret `yaml:"api_token,omitempty" toml:"api_token"`
	Organization string `yaml:"organization,omitempty" toml:"organization"`
	BaseURL      string `yaml:"base_url,omitempty" toml:"base_url"`

	RootDirectories []string `yaml:"root_directories" toml:"root_directories"`
	Include         []string `yaml:"include,omitempty" toml:"include"`
	Exclude         []string `yaml:"exclude,omitempty" toml:"exclude"`
	KeyTemplate     string   `yaml:"key_template,omitempty" toml:"key_template"`
	IgnoreFile      string   `yaml:"ignore_file,omitempty" toml:"ignore_file"`

	Mode        Mode        `yaml:"mode,omitempty" toml:"mode"`
	Concurrency int         `yaml:"concurrency,omitempty" toml:"concurrency"`
	Timeout     string      `yaml:"timeout,omitempty" toml:"timeout"` // Go duration, empty = none
	Retry       RetryPolicy `yaml:"retry,omitempty" toml:"retry"`
	Upload      Upload      `yaml:"upload,omitempty" toml:"upload"`
	Download    Download    `yaml:"download,omitempty" toml:"download"`

	// Tokens are user-defined %name% values substituted into every string
	// field before validation.
	Tokens map[string]string `yaml:"tokens,omitempty" toml:"tokens"`
}

// RetryPolicy bounds the retries of transient failures.
type RetryPolicy struct {
	MaxAttempts int `yaml:"max_attempts,omitempty" toml:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms,omitempty" toml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms,omitempty" toml:"max_delay_ms"`
}

func (r RetryPolicy) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

func (r RetryPolicy) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

// Upload controls the upload side of a run.
type Upload struct {
	// DeleteRemoved deletes remote resources that have no local
	// counterpart. Off by default: in the unmatched download scope those
	// resources are download targets.
	DeleteRemoved bool `yaml:"delete_removed,omitempty" toml:"delete_removed"`
}

// Download controls where and which translations are written.
type Download struct {
	Template string        `yaml:"template,omitempty" toml:"template"`
	Scope    DownloadScope `yaml:"scope,omitempty" toml:"scope"`
	Locales  []string      `yaml:"locales,omitempty" toml:"locales"`
}

// Mode selects which categories of actions a plan contains.
type Mode string

const (
	ModeUploadOnly   Mode = "uploadOnly"
	ModeDownloadOnly Mode = "downloadOnly"
	ModeFull         Mode = "full"
)

func (m Mode) Uploads() bool   { return m == ModeUploadOnly || m == ModeFull }
func (m Mode) Downloads() bool { return m == ModeDownloadOnly || m == ModeFull }

// DownloadScope selects which remote resources get translation downloads.
type DownloadScope string

const (
	// ScopeUnmatched downloads only resources with no local counterpart.
	ScopeUnmatched DownloadScope = "unmatched"
	// ScopeAll downloads every remote resource.
	ScopeAll DownloadScope = "all"
)

// Secret is a string that never renders its value through fmt or slog.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// Reveal returns the underlying value for use in request headers.
func (s Secret) Reveal() string {
	return string(s)
}

// RunTimeout returns the parsed run timeout, or zero when unset or invalid.
func (c *Config) RunTimeout() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}
