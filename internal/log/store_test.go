package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicli/omni/internal/operation"
)

func TestLogStore_RecordAndFailedResources(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	require.NoError(t, err)
	defer store.Close()

	store.RecordStart(operation.KindGoInstall, "ripgrep", "apply")
	store.RecordStart(operation.KindGoInstall, "gopls", "apply")

	store.RecordError(operation.KindGoInstall, "gopls", errors.New("command failed: exit status 1"))
	store.RecordComplete(operation.KindGoInstall, "ripgrep")

	failed := store.FailedResources()
	require.Len(t, failed, 1)

	assert.Equal(t, operation.KindGoInstall, failed[0].Kind)
	assert.Equal(t, "gopls", failed[0].Name)
	assert.Equal(t, "apply", failed[0].Phase)
	require.EqualError(t, failed[0].Error, "command failed: exit status 1")
}

func TestLogStore_RecordComplete_DropsMetadata(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	require.NoError(t, err)
	defer store.Close()

	store.RecordStart(operation.KindGoInstall, "foo", "apply")
	store.RecordComplete(operation.KindGoInstall, "foo")

	failed := store.FailedResources()
	assert.Empty(t, failed)

	store.mu.Lock()
	_, metaExists := store.metadata[resourceKey(operation.KindGoInstall, "foo")]
	store.mu.Unlock()

	assert.False(t, metaExists)
}

func TestLogStore_Flush(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	require.NoError(t, err)
	defer store.Close()

	store.RecordStart(operation.KindGoInstall, "gopls", "apply")
	store.RecordError(operation.KindGoInstall, "gopls", errors.New("exit status 1"))

	store.RecordStart(operation.KindRust, "rust", "apply")
	store.RecordError(operation.KindRust, "rust", errors.New("network error"))

	err = store.Flush()
	require.NoError(t, err)

	goplsLog := filepath.Join(store.SessionDir(), "go-install_gopls.log")
	rustLog := filepath.Join(store.SessionDir(), "rust_rust.log")

	goplsContent, err := os.ReadFile(goplsLog)
	require.NoError(t, err)
	assert.Contains(t, string(goplsContent), "# Item: go-install/gopls")
	assert.Contains(t, string(goplsContent), "# Phase: apply")
	assert.Contains(t, string(goplsContent), "# Error: exit status 1")

	rustContent, err := os.ReadFile(rustLog)
	require.NoError(t, err)
	assert.Contains(t, string(rustContent), "# Item: rust/rust")
}

func TestLogStore_Flush_NoFailures(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	require.NoError(t, err)

	store.RecordStart(operation.KindGoInstall, "foo", "apply")
	store.RecordComplete(operation.KindGoInstall, "foo")

	err = store.Flush()
	require.NoError(t, err)

	store.Close()

	_, err = os.Stat(store.SessionDir())
	assert.True(t, os.IsNotExist(err))
}

func TestLogStore_Cleanup(t *testing.T) {
	tmpDir := t.TempDir()

	sessions := []string{
		"20260201T100000",
		"20260202T100000",
		"20260203T100000",
		"20260204T100000",
		"20260205T100000",
		"20260206T100000",
		"20260207T100000",
	}
	for _, s := range sessions {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, s), 0755))
	}

	store, err := NewStore(tmpDir)
	require.NoError(t, err)
	defer store.Close()

	err = store.Cleanup(3)
	require.NoError(t, err)

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}

	assert.Len(t, dirs, 3)
	assert.Contains(t, dirs, "20260205T100000")
	assert.Contains(t, dirs, "20260206T100000")
	assert.Contains(t, dirs, "20260207T100000")
}

func TestLogStore_Cleanup_FewSessions(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "20260201T100000"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "20260202T100000"), 0755))

	store, err := NewStore(tmpDir)
	require.NoError(t, err)
	defer store.Close()

	err = store.Cleanup(5)
	require.NoError(t, err)

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLogStore_MultipleFailures_Sorted(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	require.NoError(t, err)
	defer store.Close()

	store.RecordStart(operation.KindGoInstall, "zebra", "apply")
	store.RecordStart(operation.KindGo, "go", "apply")
	store.RecordStart(operation.KindGoInstall, "alpha", "apply")

	store.RecordError(operation.KindGoInstall, "zebra", errors.New("err1"))
	store.RecordError(operation.KindGo, "go", errors.New("err2"))
	store.RecordError(operation.KindGoInstall, "alpha", errors.New("err3"))

	failed := store.FailedResources()
	require.Len(t, failed, 3)

	assert.Equal(t, operation.KindGo, failed[0].Kind)
	assert.Equal(t, "go", failed[0].Name)
	assert.Equal(t, operation.KindGoInstall, failed[1].Kind)
	assert.Equal(t, "alpha", failed[1].Name)
	assert.Equal(t, operation.KindGoInstall, failed[2].Kind)
	assert.Equal(t, "zebra", failed[2].Name)
}

func TestLogStore_Close_RemovesEmptySessionDir(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(store.SessionDir(), 0755))
	store.RecordStart(operation.KindGoInstall, "foo", "apply")
	// Neither Complete nor Error -- simulate abrupt Close

	store.Close()

	_, err = os.Stat(store.SessionDir())
	assert.True(t, os.IsNotExist(err))
}
