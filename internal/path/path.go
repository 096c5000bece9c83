// Package path resolves the on-disk layout of the cache root and its
// derived paths (database file, lock file, per-kind install directories,
// trash staging area).
package path

import (
	"os"
	"path/filepath"
	"strings"
)

// defaultCacheSuffix is the cache root location relative to the home
// directory when neither OMNI_CACHE_PATH nor cache.path overrides it.
const defaultCacheSuffix = ".cache/omni"

// Paths holds the resolved cache root and its derived locations.
type Paths struct {
	cacheRoot string
}

// Option is a functional option for configuring Paths.
type Option func(*Paths)

// WithCacheRoot overrides the cache root directory.
func WithCacheRoot(dir string) Option {
	return func(p *Paths) {
		p.cacheRoot = dir
	}
}

// New creates a new Paths. The cache root defaults to
// "~/.cache/omni" and can be overridden by opts, which are applied in
// order (so a later option wins over an earlier one) -- callers should
// apply config-file overrides before the OMNI_CACHE_PATH environment
// override so the environment always wins.
func New(opts ...Option) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	p := &Paths{
		cacheRoot: filepath.Join(home, defaultCacheSuffix),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// CacheRoot returns the cache root directory.
func (p *Paths) CacheRoot() string {
	return p.cacheRoot
}

// CacheDBPath returns the path to the schema-versioned SQL store.
func (p *Paths) CacheDBPath() string {
	return filepath.Join(p.cacheRoot, "cache.db")
}

// CacheLockPath returns the path to the store's lock file.
func (p *Paths) CacheLockPath() string {
	return filepath.Join(p.cacheRoot, "cache.db.lock")
}

// TrashDir returns the staging directory GC renames condemned install
// directories into before removing them outside the store lock.
func (p *Paths) TrashDir() string {
	return filepath.Join(p.cacheRoot, ".trash")
}

// InstallDir returns the install directory for a kind and its
// identity-path components, e.g. InstallDir("ghreleases", "cli", "cli",
// "v2.86.0") -> "<cacheRoot>/ghreleases/cli/cli/v2.86.0".
func (p *Paths) InstallDir(kind string, identityParts ...string) string {
	parts := append([]string{p.cacheRoot, kind}, identityParts...)
	return filepath.Join(parts...)
}

// EnsureDir creates a directory (and its parents) if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// Expand expands a leading "~" to the home directory.
func Expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}

	if path == "~" {
		return os.UserHomeDir()
	}

	return path, nil
}
