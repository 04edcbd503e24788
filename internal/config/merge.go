package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// Merge combines two configs where overlay takes precedence over base.
// This implements the hierarchical merge semantics:
//   - version: must agree if both declare it (non-zero); fatal error on mismatch
//   - tokens: deep merge, overlay keys win
//   - scalars and nested retry/upload/download fields: non-zero overlay values win
//   - lists (roots, include, exclude, locales): a non-empty overlay list replaces the base list
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := &Config{}

	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}

	result.Tokens = mergeTokens(base.Tokens, overlay.Tokens)

	result.ProjectID = pick(base.ProjectID, overlay.ProjectID)
	result.APIToken = pick(base.APIToken, overlay.APIToken)
	result.Organization = pick(base.Organization, overlay.Organization)
	result.BaseURL = pick(base.BaseURL, overlay.BaseURL)
	result.KeyTemplate = pick(base.KeyTemplate, overlay.KeyTemplate)
	result.IgnoreFile = pick(base.IgnoreFile, overlay.IgnoreFile)
	result.Mode = pick(base.Mode, overlay.Mode)
	result.Timeout = pick(base.Timeout, overlay.Timeout)
	result.Concurrency = pick(base.Concurrency, overlay.Concurrency)

	result.RootDirectories = pickList(base.RootDirectories, overlay.RootDirectories)
	result.Include = pickList(base.Include, overlay.Include)
	result.Exclude = pickList(base.Exclude, overlay.Exclude)

	result.Retry = RetryPolicy{
		MaxAttempts: pick(base.Retry.MaxAttempts, overlay.Retry.MaxAttempts),
		BaseDelayMs: pick(base.Retry.BaseDelayMs, overlay.Retry.BaseDelayMs),
		MaxDelayMs:  pick(base.Retry.MaxDelayMs, overlay.Retry.MaxDelayMs),
	}
	result.Upload = Upload{
		DeleteRemoved: pick(base.Upload.DeleteRemoved, overlay.Upload.DeleteRemoved),
	}
	result.Download = Download{
		Template: pick(base.Download.Template, overlay.Download.Template),
		Scope:    pick(base.Download.Scope, overlay.Download.Scope),
		Locales:  pickList(base.Download.Locales, overlay.Download.Locales),
	}

	return result, nil
}

// MergeAll merges multiple configs in order (lowest precedence first).
// Returns an error if any version mismatch is found.
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// HierarchicalOptions controls LoadHierarchical.
type HierarchicalOptions struct {
	ProjectPath      string
	SystemConfigPath string
	UserConfigPath   string

	// NoInherit loads only the project layer.
	NoInherit bool

	// Override, if set, is applied to the merged config before defaults and
	// validation. The CLI uses it for environment variables and flags.
	Override func(*Config)
}

// HierarchicalResult is the merged configuration and the layers it came from.
type HierarchicalResult struct {
	Config *Config
	Layers []ConfigLayerInfo
}

// LoadHierarchical discovers the system, user and project layers, merges the
// ones that exist and validates the result. A missing system or user layer
// is skipped; a missing project layer is an error.
func LoadHierarchical(opts HierarchicalOptions) (*HierarchicalResult, error) {
	var layers []ConfigLayerInfo
	if opts.NoInherit {
		layers = []ConfigLayerInfo{{Path: opts.ProjectPath, Level: LevelProject}}
	} else {
		layers = DiscoverPaths(DiscoverOptions{
			ProjectPath:      opts.ProjectPath,
			SystemConfigPath: opts.SystemConfigPath,
			UserConfigPath:   opts.UserConfigPath,
		})
	}

	var configs []*Config
	for i := range layers {
		l := &layers[i]
		if l.Level != LevelProject {
			if _, err := os.Stat(l.Path); errors.Is(err, fs.ErrNotExist) {
				continue
			}
		}
		cfg, err := Parse(l.Path)
		if err != nil {
			l.Err = err
			return nil, syncerr.New(syncerr.KindConfiguration, "config",
				fmt.Errorf("%s config: %w", l.Level, err))
		}
		l.Loaded = true
		configs = append(configs, cfg)
	}

	merged, err := MergeAll(configs)
	if err != nil {
		return nil, syncerr.New(syncerr.KindConfiguration, "config", err)
	}
	if opts.Override != nil {
		opts.Override(merged)
	}
	if err := Finalize(merged); err != nil {
		return nil, err
	}

	return &HierarchicalResult{Config: merged, Layers: layers}, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0 && overlay == 0:
		*out = 0 // neither declares; validation will catch this
	case base == 0:
		*out = overlay
	case overlay == 0:
		*out = base
	case base == overlay:
		*out = base
	default:
		return fmt.Errorf("config version mismatch: one layer declares version %d, another declares version %d — all config layers must agree on version", base, overlay)
	}
	return nil
}

func mergeTokens(base, overlay map[string]string) map[string]string {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}

	result := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		result[k] = v // overlay wins
	}
	return result
}

func pick[T comparable](base, overlay T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

func pickList(base, overlay []string) []string {
	if len(overlay) > 0 {
		return overlay
	}
	return base
}
