package workdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicli/omni/internal/config"
)

func TestFind_ManifestAtRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".omni.yaml"), []byte("up:\n  - bash\n"), 0o644))

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	wd, err := Find(sub)
	require.NoError(t, err)
	assert.Equal(t, dir, wd.Root)
	assert.False(t, wd.IsGit)
}

func TestFind_NestedManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".omni"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".omni", "config.yaml"), []byte("up:\n  - node\n"), 0o644))

	wd, err := Find(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, wd.Root)
}

func TestFind_NoMarkerFallsBackToGivenDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	wd, err := Find(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, wd.Root)
	assert.False(t, wd.IsGit)
}

func TestEnsureID_PersistsAndReuses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	wd := &WorkDir{Root: dir}

	require.NoError(t, wd.EnsureID())
	first := wd.ID
	assert.NotEmpty(t, first)
	assert.Len(t, first, 32)

	data, err := os.ReadFile(filepath.Join(dir, ".omni", "id"))
	require.NoError(t, err)
	assert.Contains(t, string(data), first)

	wd2 := &WorkDir{Root: dir}
	require.NoError(t, wd2.EnsureID())
	assert.Equal(t, first, wd2.ID)
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	withRemote := &WorkDir{RemoteURL: "github.com/acme/repo"}
	assert.Equal(t, "github.com/acme/repo", withRemote.Identity())

	local := &WorkDir{ID: "abc123"}
	assert.Equal(t, "local:abc123", local.Identity())
}

func TestIsTrusted(t *testing.T) {
	t.Parallel()

	wd := &WorkDir{Root: "/home/dev/project", Org: "acme"}

	trusted := &config.UserConfig{Trust: config.TrustConfig{WorkDirs: []string{"/home/dev/project"}}}
	assert.True(t, wd.IsTrusted(trusted))

	untrusted := &config.UserConfig{}
	assert.False(t, wd.IsTrusted(untrusted))

	assert.False(t, wd.IsTrusted(nil))

	byOrg := &config.UserConfig{Trust: config.TrustConfig{Orgs: []string{"acme"}}}
	assert.True(t, wd.IsTrusted(byOrg))
}

func TestTrustAndUntrust(t *testing.T) {
	t.Parallel()

	user := &config.UserConfig{}

	user = Trust(user, "/home/dev/project")
	assert.Equal(t, []string{"/home/dev/project"}, user.Trust.WorkDirs)

	// idempotent
	user = Trust(user, "/home/dev/project")
	assert.Equal(t, []string{"/home/dev/project"}, user.Trust.WorkDirs)

	user = Untrust(user, "/home/dev/project")
	assert.Empty(t, user.Trust.WorkDirs)
}
