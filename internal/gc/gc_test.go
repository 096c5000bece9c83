package gc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/config"
	"github.com/omnicli/omni/internal/path"
)

func newTestCollector(t *testing.T, now time.Time) (*Collector, *cache.Store, *path.Paths) {
	t.Helper()

	paths, err := path.New(path.WithCacheRoot(t.TempDir()))
	require.NoError(t, err)

	store, err := cache.Open(paths)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := New(store, paths, config.CacheConfig{})
	c.Now = func() time.Time { return now }
	return c, store, paths
}

func TestRun_ReclaimsEligibleInstall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	c, store, paths := newTestCollector(t, now)

	installDir := filepath.Join(paths.CacheRoot(), "ghreleases", "cli", "cli")
	require.NoError(t, os.MkdirAll(installDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(installDir, "cli"), []byte("bin"), 0o755))

	staleAt := now.Add(-40 * 24 * time.Hour).Unix()
	require.NoError(t, store.InsertInstall(ctx, cache.InstallRecord{
		Kind: "github-release", IdentityKey: "cli/cli", InstallPath: installDir,
		InstalledAt: staleAt, LastRequiredAt: staleAt,
	}))

	report, err := c.Run(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"cli/cli"}, report.InstallsRemoved)
	assert.NoDirExists(t, installDir)

	rec, err := store.GetInstall(ctx, "github-release", "cli/cli")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRun_LeavesReferencedInstall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	c, store, paths := newTestCollector(t, now)

	installDir := filepath.Join(paths.CacheRoot(), "ghreleases", "cli", "cli")
	require.NoError(t, os.MkdirAll(installDir, 0o755))

	staleAt := now.Add(-40 * 24 * time.Hour).Unix()
	require.NoError(t, store.InsertInstall(ctx, cache.InstallRecord{
		Kind: "github-release", IdentityKey: "cli/cli", InstallPath: installDir,
		InstalledAt: staleAt, LastRequiredAt: staleAt,
	}))
	require.NoError(t, store.AddReference(ctx, "local:abc", "github-release", "cli/cli", "", staleAt))

	report, err := c.Run(ctx, false)
	require.NoError(t, err)

	assert.Empty(t, report.InstallsRemoved)
	assert.DirExists(t, installDir)
}

func TestRun_WithinGracePeriod_NotReclaimed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	c, store, paths := newTestCollector(t, now)

	installDir := filepath.Join(paths.CacheRoot(), "ghreleases", "cli", "cli")
	require.NoError(t, os.MkdirAll(installDir, 0o755))

	recentAt := now.Add(-1 * time.Hour).Unix()
	require.NoError(t, store.InsertInstall(ctx, cache.InstallRecord{
		Kind: "github-release", IdentityKey: "cli/cli", InstallPath: installDir,
		InstalledAt: recentAt, LastRequiredAt: recentAt,
	}))

	report, err := c.Run(ctx, false)
	require.NoError(t, err)

	assert.Empty(t, report.InstallsRemoved)
	assert.DirExists(t, installDir)
}

func TestRun_DryRun_DoesNotMutate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	c, store, paths := newTestCollector(t, now)

	installDir := filepath.Join(paths.CacheRoot(), "ghreleases", "cli", "cli")
	require.NoError(t, os.MkdirAll(installDir, 0o755))

	staleAt := now.Add(-40 * 24 * time.Hour).Unix()
	require.NoError(t, store.InsertInstall(ctx, cache.InstallRecord{
		Kind: "github-release", IdentityKey: "cli/cli", InstallPath: installDir,
		InstalledAt: staleAt, LastRequiredAt: staleAt,
	}))

	report, err := c.Run(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"cli/cli"}, report.InstallsRemoved)
	assert.DirExists(t, installDir, "dry run must not touch the filesystem")

	rec, err := store.GetInstall(ctx, "github-release", "cli/cli")
	require.NoError(t, err)
	assert.NotNil(t, rec, "dry run must not touch the store")
}
