package main

import (
	"fmt"
	"os"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/config"
	"github.com/omnicli/omni/internal/installer"
	"github.com/omnicli/omni/internal/path"
	"github.com/omnicli/omni/internal/verify"
	"github.com/omnicli/omni/internal/workdir"
)

// userConfigPath returns the user's global configuration file,
// honoring XDG_CONFIG_HOME before falling back to ~/.config.
func userConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir + "/omni/config.yaml", nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home + "/.config/omni/config.yaml", nil
}

// loadUser reads the user's global configuration, returning the path
// it was (or would be) loaded from alongside it so callers can save
// back to the same place.
func loadUser() (*config.UserConfig, string, error) {
	cfgPath, err := userConfigPath()
	if err != nil {
		return nil, "", err
	}
	user, err := config.LoadUserConfig(cfgPath)
	if err != nil {
		return nil, "", err
	}
	return user, cfgPath, nil
}

// resolvePaths builds a path.Paths honoring, in increasing priority,
// the default cache root, a manifest's cache.path, the --cache-path
// flag, and finally OMNI_CACHE_PATH -- which always wins per
// internal/path's documented option-ordering contract.
func resolvePaths(cachePathFlag, manifestCachePath string) (*path.Paths, error) {
	var opts []path.Option

	if manifestCachePath != "" {
		expanded, err := path.Expand(manifestCachePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, path.WithCacheRoot(expanded))
	}
	if cachePathFlag != "" {
		expanded, err := path.Expand(cachePathFlag)
		if err != nil {
			return nil, err
		}
		opts = append(opts, path.WithCacheRoot(expanded))
	}
	if env := os.Getenv("OMNI_CACHE_PATH"); env != "" {
		expanded, err := path.Expand(env)
		if err != nil {
			return nil, err
		}
		opts = append(opts, path.WithCacheRoot(expanded))
	}

	return path.New(opts...)
}

// newDispatcher wires an installer.Dispatcher against paths and store,
// preferring sigstore verification of downloaded release assets and
// falling back to a logged no-op verifier when sigstore can't be set
// up (e.g. no network access to fetch the trusted root). cacheCfg
// governs how long a driver's resolved version catalog stays fresh;
// upgrade lets a bare "latest" expression cross a major-version
// boundary instead of pinning to whatever major is already installed.
func newDispatcher(paths *path.Paths, store *cache.Store, workDir string, cacheCfg config.CacheConfig, upgrade bool) *installer.Dispatcher {
	return installer.New(installer.Config{
		Paths:    paths,
		Cache:    store,
		CacheCfg: cacheCfg,
		Upgrade:  upgrade,
		Verifier: verify.NewSigstoreVerifier(),
		WorkDir:  workDir,
	})
}

// findWorkDir resolves the work directory for the process's current
// directory.
func findWorkDir() (*workdir.WorkDir, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine current directory: %w", err)
	}
	return workdir.Find(wd)
}
