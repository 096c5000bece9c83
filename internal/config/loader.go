package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	omnierrors "github.com/omnicli/omni/internal/errors"
)

// manifestCandidates are tried, in order, relative to a work-directory root.
var manifestCandidates = []string{
	".omni.yaml",
	filepath.Join(".omni", "config.yaml"),
}

// LoadWorkDirConfig reads the manifest for the work directory rooted at
// root. It returns (nil, "", nil) if no manifest file exists -- an
// empty `up:` list is a valid, if unusual, work directory.
func LoadWorkDirConfig(root string) (*WorkDirConfig, string, error) {
	for _, candidate := range manifestCandidates {
		path := filepath.Join(root, candidate)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, "", omnierrors.NewConfigError("failed to read manifest", err).WithFile(path)
		}

		cfg, err := Parse(data)
		if err != nil {
			return nil, "", parseErrorAt(path, data, err)
		}
		return cfg, path, nil
	}
	return nil, "", nil
}

// LoadUserConfig reads the user's global configuration from path. A
// missing file yields an empty, zero-value UserConfig rather than an
// error -- first run has no config yet.
func LoadUserConfig(path string) (*UserConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &UserConfig{}, nil
		}
		return nil, omnierrors.NewConfigError("failed to read user configuration", err).WithFile(path)
	}

	cfg, err := ParseUserConfig(data)
	if err != nil {
		return nil, parseErrorAt(path, data, err)
	}
	return cfg, nil
}

// SaveUserConfig writes cfg to path, creating parent directories as
// needed. Used by `omni config trust`/`untrust`.
func SaveUserConfig(path string, cfg *UserConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return omnierrors.NewConfigError("failed to create configuration directory", err).WithFile(path)
	}

	data, err := yaml.MarshalWithOptions(cfg, yaml.Indent(2))
	if err != nil {
		return omnierrors.NewConfigError("failed to encode user configuration", err).WithFile(path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return omnierrors.NewConfigError("failed to write user configuration", err).WithFile(path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return omnierrors.NewConfigError("failed to finalize user configuration", err).WithFile(path)
	}
	return nil
}

func parseErrorAt(path string, _ []byte, cause error) error {
	return omnierrors.NewConfigError("failed to parse manifest", cause).WithFile(path)
}

// MergeSuggested applies a work directory's suggest_config onto the
// user's global configuration map, honoring the per-key merge-strategy
// suffix. Returns the merged map; global is not mutated.
//
// __toappend   append suggested value(s) to the existing list
// __toprepend  prepend suggested value(s) to the existing list
// __toreplace  replace the existing value outright (also the default
//              behavior for a key with no suffix)
// __ifnone     only set the value if the key is currently absent
func MergeSuggested(global, suggested map[string]any) map[string]any {
	merged := make(map[string]any, len(global)+len(suggested))
	for k, v := range global {
		merged[k] = v
	}

	for rawKey, value := range suggested {
		key, strategy := splitStrategy(rawKey)
		existing, hasExisting := merged[key]

		switch strategy {
		case SuffixIfNone:
			if !hasExisting {
				merged[key] = value
			}
		case SuffixToAppend:
			merged[key] = appendList(existing, value)
		case SuffixToPrepend:
			merged[key] = appendList(value, existing)
		default: // SuffixToReplace, or no suffix
			merged[key] = value
		}
	}

	return merged
}

func splitStrategy(rawKey string) (key, strategy string) {
	for _, suffix := range []string{SuffixToAppend, SuffixToPrepend, SuffixToReplace, SuffixIfNone} {
		if strings.HasSuffix(rawKey, suffix) {
			return strings.TrimSuffix(rawKey, suffix), suffix
		}
	}
	return rawKey, ""
}

func appendList(first, second any) []any {
	out := make([]any, 0, 2)
	out = append(out, toList(first)...)
	out = append(out, toList(second)...)
	return out
}

func toList(v any) []any {
	if v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

// SortedKeys returns the keys of a suggest_config map in deterministic
// order, used when rendering a confirmation prompt.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
