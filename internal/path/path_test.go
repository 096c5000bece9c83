package path

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name          string
		opts          []Option
		wantCacheRoot string
	}{
		{
			name:          "default cache root",
			opts:          nil,
			wantCacheRoot: filepath.Join(home, ".cache/omni"),
		},
		{
			name:          "with custom cache root",
			opts:          []Option{WithCacheRoot("/custom/cache")},
			wantCacheRoot: "/custom/cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := New(tt.opts...)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCacheRoot, p.CacheRoot())
		})
	}
}

func TestPaths_DerivedFiles(t *testing.T) {
	t.Parallel()

	p, err := New(WithCacheRoot("/cache"))
	require.NoError(t, err)

	assert.Equal(t, "/cache/cache.db", p.CacheDBPath())
	assert.Equal(t, "/cache/cache.db.lock", p.CacheLockPath())
	assert.Equal(t, "/cache/.trash", p.TrashDir())
}

func TestPaths_InstallDir(t *testing.T) {
	t.Parallel()

	p, err := New(WithCacheRoot("/cache"))
	require.NoError(t, err)

	got := p.InstallDir("ghreleases", "cli", "cli", "v2.86.0")
	assert.Equal(t, "/cache/ghreleases/cli/cli/v2.86.0", got)
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		subPath string
	}{
		{
			name:    "single level",
			subPath: "a",
		},
		{
			name:    "nested levels",
			subPath: "a/b/c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpDir := t.TempDir()
			targetDir := filepath.Join(tmpDir, tt.subPath)

			err := EnsureDir(targetDir)
			require.NoError(t, err)

			info, err := os.Stat(targetDir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		})
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{
			name: "expand tilde with path",
			path: "~/.cache/omni",
			want: filepath.Join(home, ".cache/omni"),
		},
		{
			name: "expand tilde only",
			path: "~",
			want: home,
		},
		{
			name: "absolute path unchanged",
			path: "/usr/local/bin",
			want: "/usr/local/bin",
		},
		{
			name: "relative path unchanged",
			path: "relative/path",
			want: "relative/path",
		},
		{
			name: "empty path",
			path: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Expand(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
