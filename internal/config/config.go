// Package config loads and merges omni's manifest files: the
// work-directory manifest (.omni.yaml or .omni/config.yaml) and the
// user's global configuration.
package config

import (
	"fmt"
	"time"

	"github.com/goccy/go-yaml"
)

// Merge-strategy suffixes recognized on suggest_config keys.
const (
	SuffixToAppend  = "__toappend"
	SuffixToPrepend = "__toprepend"
	SuffixToReplace = "__toreplace"
	SuffixIfNone    = "__ifnone"
)

// OperationEntry is one entry of an `up:` list: either a bare string
// naming an operation kind with default parameters ("bash"), or a
// single-key mapping of the kind to its parameters ("node: {version:
// 20}").
type OperationEntry struct {
	Kind   string
	Params map[string]any
}

// UnmarshalYAML implements custom decoding for the string-or-map shape.
func (e *OperationEntry) UnmarshalYAML(unmarshal func(any) error) error {
	var asString string
	if err := unmarshal(&asString); err == nil {
		e.Kind = asString
		e.Params = nil
		return nil
	}

	var asMap map[string]map[string]any
	if err := unmarshal(&asMap); err != nil {
		return fmt.Errorf("up entry must be a string or a single-key mapping: %w", err)
	}
	if len(asMap) != 1 {
		return fmt.Errorf("up entry mapping must have exactly one key, got %d", len(asMap))
	}
	for k, v := range asMap {
		e.Kind = k
		e.Params = v
	}
	return nil
}

// EnvDirective is a static environment mutation declared under `env:`.
type EnvDirective struct {
	Name  string `yaml:"name"`
	Op    string `yaml:"op"` // set, unset, prepend, append, remove, prefix, suffix
	Value string `yaml:"value,omitempty"`
}

// CacheConfig holds TTL/retention knobs for the cache store.
type CacheConfig struct {
	// Path overrides the cache root directory (OMNI_CACHE_PATH wins over this).
	Path string `yaml:"path,omitempty"`

	// CatalogTTL is how long a cached version catalog is considered fresh.
	CatalogTTL time.Duration `yaml:"catalog_ttl,omitempty"`

	// CatalogRetention is how long a stale catalog may still be used as a
	// fallback when a refresh fails.
	CatalogRetention time.Duration `yaml:"catalog_retention,omitempty"`

	// CleanupAfter is the grace period an unreferenced install is kept
	// before GC deletes it.
	CleanupAfter time.Duration `yaml:"cleanup_after,omitempty"`

	// EnvHistoryRetention bounds closed env-history rows by age.
	EnvHistoryRetention time.Duration `yaml:"env_history_retention,omitempty"`

	// MaxPerWorkdir bounds closed env-history rows per work directory.
	MaxPerWorkdir int `yaml:"max_per_workdir,omitempty"`

	// MaxTotal bounds closed env-history rows across all work directories.
	MaxTotal int `yaml:"max_total,omitempty"`
}

// Default cache knobs, applied when a value is left zero.
const (
	DefaultCatalogTTL          = 15 * time.Minute
	DefaultCatalogRetention    = 7 * 24 * time.Hour
	DefaultCleanupAfter        = 30 * 24 * time.Hour
	DefaultEnvHistoryRetention = 90 * 24 * time.Hour
	DefaultMaxPerWorkdir       = 20
	DefaultMaxTotal            = 2000
)

// WithDefaults returns a copy of c with zero fields replaced by defaults.
func (c CacheConfig) WithDefaults() CacheConfig {
	if c.CatalogTTL == 0 {
		c.CatalogTTL = DefaultCatalogTTL
	}
	if c.CatalogRetention == 0 {
		c.CatalogRetention = DefaultCatalogRetention
	}
	if c.CleanupAfter == 0 {
		c.CleanupAfter = DefaultCleanupAfter
	}
	if c.EnvHistoryRetention == 0 {
		c.EnvHistoryRetention = DefaultEnvHistoryRetention
	}
	if c.MaxPerWorkdir == 0 {
		c.MaxPerWorkdir = DefaultMaxPerWorkdir
	}
	if c.MaxTotal == 0 {
		c.MaxTotal = DefaultMaxTotal
	}
	return c
}

// WorkDirConfig is the manifest read from a work directory's
// .omni.yaml (or .omni/config.yaml).
type WorkDirConfig struct {
	Up            []OperationEntry `yaml:"up,omitempty"`
	SuggestConfig map[string]any   `yaml:"suggest_config,omitempty"`
	Env           []EnvDirective   `yaml:"env,omitempty"`
	Cache         CacheConfig      `yaml:"cache,omitempty"`
}

// TrustConfig records which work directories and organizations the user
// has explicitly trusted.
type TrustConfig struct {
	WorkDirs []string `yaml:"work_dirs,omitempty"`
	Orgs     []string `yaml:"orgs,omitempty"`
}

// IsTrusted reports whether workDir or org has been trusted.
func (t TrustConfig) IsTrusted(workDir string, orgs []string) bool {
	for _, d := range t.WorkDirs {
		if d == workDir {
			return true
		}
	}
	for _, wantOrg := range orgs {
		for _, trustedOrg := range t.Orgs {
			if trustedOrg == wantOrg {
				return true
			}
		}
	}
	return false
}

// UserConfig is the user's global configuration
// (~/.config/omni/config.yaml), layered under every work directory's
// manifest.
type UserConfig struct {
	Trust TrustConfig `yaml:"trust,omitempty"`

	// PreferredTools orders candidates for an `any` composite by
	// category, e.g. preferred_tools.node_version_manager: [fnm, nvm].
	PreferredTools map[string][]string `yaml:"preferred_tools,omitempty"`

	Cache CacheConfig `yaml:"cache,omitempty"`
}

// Parse decodes a work-directory manifest from YAML bytes.
func Parse(data []byte) (*WorkDirConfig, error) {
	var cfg WorkDirConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseUserConfig decodes the user's global configuration from YAML bytes.
func ParseUserConfig(data []byte) (*UserConfig, error) {
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
