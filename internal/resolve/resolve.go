package resolve

import (
	"context"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/config"
	"github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/retry"
)

// Source fetches the full set of known version strings for key (a
// source-specific identifier: "owner/repo" for a github-release
// source, a crate name for cargo, ...). Implementations should not
// cache -- loadCatalog owns caching against the Cache Store.
type Source interface {
	Fetch(ctx context.Context, key string) ([]string, error)
}

// Resolve turns expr into one concrete version drawn from source's
// catalog for key, refreshed through the Cache Store's catalog table
// per cacheCfg's TTL/retention policy.
//
// When upgrade is false, an already-installed version
// (installedVersion) that matches expr and shares the greatest
// candidate's major version is preferred over a greater uninstalled
// one. If the installed major differs from the greatest candidate's,
// the greatest candidate within the installed major is chosen instead,
// so a bare "latest" expression never silently jumps a major version
// underneath an existing install.
func Resolve(
	ctx context.Context,
	store *cache.Store,
	cacheCfg config.CacheConfig,
	now time.Time,
	source, key string,
	src Source,
	expr Expression,
	installedVersion string,
	upgrade bool,
) (string, error) {
	versions, err := loadCatalog(ctx, store, cacheCfg, now, source, key, src)
	if err != nil {
		return "", err
	}

	candidates, err := parseCandidates(key, versions)
	if err != nil {
		return "", errors.NewResolveError(key, expr.Raw, err)
	}

	var filtered []*semver.Version
	for _, v := range candidates {
		if expr.match(v) {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		return "", errors.NewNoMatchingVersionError(key, expr.Raw)
	}

	sort.Sort(semver.Collection(filtered))
	greatest := filtered[len(filtered)-1]

	if !upgrade && installedVersion != "" {
		if installed, err := semver.NewVersion(installedVersion); err == nil {
			if installed.Major() == greatest.Major() {
				for _, v := range filtered {
					if v.Equal(installed) {
						return v.Original(), nil
					}
				}
			} else {
				for i := len(filtered) - 1; i >= 0; i-- {
					if filtered[i].Major() == installed.Major() {
						return filtered[i].Original(), nil
					}
				}
			}
		}
	}

	return greatest.Original(), nil
}

// loadCatalog returns key's version list, refreshing it through src
// when the cached entry is stale per cacheCfg.CatalogTTL. A refresh
// failure falls back to the cached entry as long as it is still within
// cacheCfg.CatalogRetention; otherwise it surfaces a CatalogError.
func loadCatalog(ctx context.Context, store *cache.Store, cacheCfg config.CacheConfig, now time.Time, source, key string, src Source) ([]string, error) {
	cached, err := store.GetCatalog(ctx, source, key)
	if err != nil {
		return nil, err
	}

	if cached != nil && now.Sub(time.Unix(cached.FetchedAt, 0)) < cacheCfg.CatalogTTL {
		return cached.Versions, nil
	}

	versions, fetchErr := retry.Do(ctx, func(ctx context.Context) ([]string, error) {
		return src.Fetch(ctx, key)
	})
	if fetchErr == nil {
		if err := store.PutCatalog(ctx, cache.Catalog{Source: source, Key: key, Versions: versions, FetchedAt: now.Unix()}); err != nil {
			return nil, err
		}
		return versions, nil
	}

	if cached != nil && now.Sub(time.Unix(cached.FetchedAt, 0)) < cacheCfg.CatalogRetention {
		return cached.Versions, nil
	}
	if cached != nil {
		return nil, errors.NewCatalogStaleError(source, key)
	}
	return nil, errors.NewCatalogUnavailableError(source, key, fetchErr)
}
