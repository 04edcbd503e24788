package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const configFileName = "crowdin-sync.yaml"
const configDirName = "crowdin-sync"

// ProjectConfigNames are the file names FindProjectConfig looks for, in order.
var ProjectConfigNames = []string{"crowdin-sync.yaml", "crowdin-sync.yml", "crowdin-sync.toml"}

// ConfigLevel represents the precedence level of a configuration file.
type ConfigLevel string

const (
	LevelSystem  ConfigLevel = "system"
	LevelUser    ConfigLevel = "user"
	LevelProject ConfigLevel = "project"
)

// ConfigLayerInfo describes a discovered config file and its load status.
type ConfigLayerInfo struct {
	Err    error // non-nil if the file exists but failed to load
	Path   string
	Level  ConfigLevel
	Loaded bool
}

// DiscoverOptions controls how config paths are discovered.
type DiscoverOptions struct {
	// ProjectPath is the project-level config path (required).
	ProjectPath string

	// SystemConfigPath overrides the default system config path.
	// Empty means use the OS default. Set to a nonexistent path to skip.
	SystemConfigPath string

	// UserConfigPath overrides the default user config path.
	// Empty means use the OS default. Set to a nonexistent path to skip.
	UserConfigPath string
}

// DiscoverPaths returns the config layers from lowest precedence (system)
// to highest (project). A path reached by two levels is kept only at the
// lower one.
func DiscoverPaths(opts DiscoverOptions) []ConfigLayerInfo {
	candidates := []ConfigLayerInfo{
		{Level: LevelSystem, Path: orDefault(opts.SystemConfigPath, defaultSystemConfigPath)},
		{Level: LevelUser, Path: orDefault(opts.UserConfigPath, defaultUserConfigPath)},
		{Level: LevelProject, Path: opts.ProjectPath},
	}

	var layers []ConfigLayerInfo
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.Path == "" {
			continue
		}
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			abs = c.Path
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		layers = append(layers, c)
	}
	return layers
}

// FindProjectConfig returns the first of ProjectConfigNames present in dir,
// or the default YAML name when none exists. The system and user layers are
// looked up the same way in their own directories.
func FindProjectConfig(dir string) string {
	for _, name := range ProjectConfigNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return filepath.Join(dir, configFileName)
}

func orDefault(p string, def func() string) string {
	if p != "" {
		return p
	}
	return def()
}

// defaultSystemConfigPath returns the platform-standard system config path.
func defaultSystemConfigPath() string {
	if runtime.GOOS == "windows" {
		pd := os.Getenv("ProgramData")
		if pd == "" {
			pd = `C:\ProgramData`
		}
		return FindProjectConfig(filepath.Join(pd, configDirName))
	}
	return FindProjectConfig(filepath.Join("/etc", configDirName))
}

// defaultUserConfigPath returns the platform-standard user config path.
func defaultUserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return FindProjectConfig(filepath.Join(dir, configDirName))
}

// EnvNoInherit returns true if CROWDIN_SYNC_NO_INHERIT is set to "1" or "true".
func EnvNoInherit() bool {
	return envBoolTrue("CROWDIN_SYNC_NO_INHERIT")
}

// envBoolTrue returns true if the env var is set to "1" or "true" (case-insensitive).
func envBoolTrue(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true"
}
