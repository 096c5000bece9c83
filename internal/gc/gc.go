// Package gc implements the Garbage Collector: it reclaims installs
// Down left unreferenced once they have sat past the configured grace
// period, and trims the catalog and env-history tables the cache
// accumulates over time.
//
// Grounded on tomei's state.CreateBackup/atomic-rename discipline,
// applied in reverse here: a condemned install directory is renamed
// into a staging area (a cheap, crash-safe metadata operation), its
// Store row is deleted under the store's write lock, and only then is
// the actual directory tree removed outside the lock, so a slow recursive delete
// of a large install never holds up a concurrent `omni up`/`omni
// down` in another work directory.
package gc

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/config"
	omnierrors "github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/path"
)

// Report summarizes one collection run.
type Report struct {
	// InstallsRemoved lists the identity keys of installs reclaimed
	// (or, on a dry run, that would be reclaimed).
	InstallsRemoved []string

	// InstallPaths lists the on-disk directories removed (or, on a dry
	// run, that would be removed) alongside InstallsRemoved.
	InstallPaths []string

	CatalogsTrimmed  int64
	EnvHistoryClosed int64
	EnvHistoryTrimmed int64
}

// Collector runs garbage collection against a Cache Store.
type Collector struct {
	Store *cache.Store
	Paths *path.Paths
	Cache config.CacheConfig

	// Now is injected for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

// New builds a Collector with cacheCfg's zero fields replaced by
// their defaults.
func New(store *cache.Store, paths *path.Paths, cacheCfg config.CacheConfig) *Collector {
	return &Collector{Store: store, Paths: paths, Cache: cacheCfg.WithDefaults(), Now: time.Now}
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Run reclaims every install eligible for collection and trims the
// catalog and env-history tables. With dryRun set, the report
// describes what would happen but the Store and filesystem are left
// untouched.
func (c *Collector) Run(ctx context.Context, dryRun bool) (*Report, error) {
	now := c.now()
	report := &Report{}

	cutoff := now.Add(-c.Cache.CleanupAfter).Unix()
	eligible, err := c.Store.ListGCEligible(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	if dryRun {
		for _, rec := range eligible {
			report.InstallsRemoved = append(report.InstallsRemoved, rec.IdentityKey)
			report.InstallPaths = append(report.InstallPaths, rec.InstallPath)
		}
		return report, nil
	}

	if err := path.EnsureDir(c.Paths.TrashDir()); err != nil {
		return report, omnierrors.NewStoreIOError(c.Paths.TrashDir(), err)
	}

	for _, rec := range eligible {
		if err := c.reclaim(ctx, rec); err != nil {
			return report, err
		}
		report.InstallsRemoved = append(report.InstallsRemoved, rec.IdentityKey)
		report.InstallPaths = append(report.InstallPaths, rec.InstallPath)
	}

	nowUnix := now.Unix()
	closed, err := c.Store.CloseStaleEnvHistory(ctx, cutoff, nowUnix)
	if err != nil {
		return report, err
	}
	report.EnvHistoryClosed = closed

	envRetentionCutoff := now.Add(-c.Cache.EnvHistoryRetention).Unix()
	trimmed, err := c.Store.TrimEnvHistory(ctx, envRetentionCutoff, c.Cache.MaxPerWorkdir, c.Cache.MaxTotal)
	if err != nil {
		return report, err
	}
	report.EnvHistoryTrimmed = trimmed

	catalogCutoff := now.Add(-c.Cache.CatalogRetention).Unix()
	catalogsTrimmed, err := c.Store.TrimCatalogs(ctx, catalogCutoff)
	if err != nil {
		return report, err
	}
	report.CatalogsTrimmed = catalogsTrimmed

	return report, nil
}

// reclaim stages rec's install directory into the trash dir, deletes
// its Store row, then removes the staged directory. The rename and
// the row deletion are the only parts that must not be interrupted
// half-done; the final RemoveAll is best-effort cleanup of the
// staging area and does not affect correctness if it fails, since
// nothing in the Store references the staged path anymore.
func (c *Collector) reclaim(ctx context.Context, rec cache.InstallRecord) error {
	staged := filepath.Join(c.Paths.TrashDir(), uuid.NewString())

	if rec.InstallPath != "" {
		if err := os.Rename(rec.InstallPath, staged); err != nil && !os.IsNotExist(err) {
			return omnierrors.NewStoreIOError(rec.InstallPath, err)
		}
	}

	if err := c.Store.DeleteInstall(ctx, rec.Kind, rec.IdentityKey); err != nil {
		return err
	}

	_ = os.RemoveAll(staged)
	return nil
}
