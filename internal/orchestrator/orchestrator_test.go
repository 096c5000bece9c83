package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/config"
	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/path"
	"github.com/omnicli/omni/internal/workdir"
)

// fakeDriver is a scriptable operation.Driver for orchestrator tests.
type fakeDriver struct {
	installs []operation.PlanItem
	removes  []operation.PlanItem
	failKind operation.Kind
}

func (d *fakeDriver) Install(_ context.Context, item operation.PlanItem) (operation.ApplyOutcome, error) {
	d.installs = append(d.installs, item)
	if item.Kind == d.failKind {
		return operation.ApplyOutcome{Failed: true, Err: fmt.Errorf("boom")}, nil
	}
	return operation.ApplyOutcome{
		InstalledNow: true,
		InstallPath:  "/opt/" + item.IdentityKey,
		Env:          []operation.EnvDelta{{Op: operation.EnvOpSet, Name: "FAKE_" + string(item.Kind), Value: item.IdentityKey}},
	}, nil
}

func (d *fakeDriver) Precondition(_ context.Context, _ operation.PlanItem) (bool, error) {
	return true, nil
}

func (d *fakeDriver) Remove(_ context.Context, item operation.PlanItem) error {
	d.removes = append(d.removes, item)
	return nil
}

func (d *fakeDriver) ResolveVersion(_ context.Context, _ operation.Kind, _ string, params map[string]any) (string, error) {
	version, _ := params["version"].(string)
	return version, nil
}

// leafOp is a trivial operation.Operation that plans to exactly the
// items it was constructed with, for exercising the orchestrator
// without going through operation.Build's YAML-entry parsing.
type leafOp struct {
	kind  operation.Kind
	items []operation.PlanItem
}

func (o leafOp) Kind() operation.Kind { return o.kind }

func (o leafOp) Plan(_ context.Context, _ operation.ApplyContext) ([]operation.PlanItem, error) {
	return o.items, nil
}

func newTestOrchestrator(t *testing.T, driver operation.Driver) (*Orchestrator, *workdir.WorkDir) {
	t.Helper()

	paths, err := path.New(path.WithCacheRoot(t.TempDir()))
	require.NoError(t, err)

	store, err := cache.Open(paths)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	o := New(store, driver)
	o.Now = func() time.Time { return time.Unix(1000, 0) }

	wd := &workdir.WorkDir{Root: t.TempDir()}
	require.NoError(t, wd.EnsureID())

	return o, wd
}

func TestUp_RefusesUntrustedWorkDir(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	o, wd := newTestOrchestrator(t, driver)

	_, err := o.Up(context.Background(), wd, &config.WorkDirConfig{}, &config.UserConfig{})
	require.Error(t, err)
}

func TestUp_AppliesDeclaredOperationsInOrder(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	o, wd := newTestOrchestrator(t, driver)

	events := []Event{}
	o.EventHandler = func(ev Event) { events = append(events, ev) }

	ops := []operation.Operation{
		leafOp{kind: operation.KindBash, items: []operation.PlanItem{{Kind: operation.KindBash, Label: "bash", IdentityKey: "bash@5"}}},
		leafOp{kind: operation.KindNode, items: []operation.PlanItem{{Kind: operation.KindNode, Label: "node", IdentityKey: "node@20"}}},
	}
	result := &Result{}
	seen := map[string]bool{}
	for _, op := range ops {
		items, err := op.Plan(context.Background(), operation.ApplyContext{Driver: driver})
		require.NoError(t, err)
		require.NoError(t, o.applyPlan(context.Background(), items, wd.Identity(), 1000, result, seen))
	}

	require.Len(t, driver.installs, 2)
	assert.Equal(t, operation.KindBash, driver.installs[0].Kind)
	assert.Equal(t, operation.KindNode, driver.installs[1].Kind)
	assert.Len(t, result.Applied, 2)
	assert.Equal(t, EventStart, events[0].Type)
	assert.Equal(t, EventComplete, events[1].Type)
}

func TestUp_SkipsAlreadyInstalledAndRecordsReference(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	o, wd := newTestOrchestrator(t, driver)
	ctx := context.Background()

	require.NoError(t, o.Store.InsertInstall(ctx, cache.InstallRecord{
		Kind: "bash", IdentityKey: "bash@5", InstallPath: "/opt/bash", InstalledAt: 500, LastRequiredAt: 500,
	}))

	result := &Result{}
	seen := map[string]bool{}
	item := operation.PlanItem{Kind: operation.KindBash, Label: "bash", IdentityKey: "bash@5"}
	require.NoError(t, o.applyOne(ctx, item, wd.Identity(), 1000, result, seen))

	assert.Empty(t, driver.installs)
	assert.Len(t, result.Skipped, 1)

	count, err := o.Store.ReferenceCount(ctx, "bash", "bash@5")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUp_DropsStaleReferencesNoLongerInPlan(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	o, wd := newTestOrchestrator(t, driver)
	ctx := context.Background()

	require.NoError(t, o.Store.InsertInstall(ctx, cache.InstallRecord{Kind: "bash", IdentityKey: "bash@5", InstalledAt: 500, LastRequiredAt: 500}))
	require.NoError(t, o.Store.AddReference(ctx, wd.Identity(), "bash", "bash@5", "", 500))

	// Current plan no longer references bash@5.
	require.NoError(t, o.dropStaleReferences(ctx, wd.Identity(), map[string]bool{}))

	count, err := o.Store.ReferenceCount(ctx, "bash", "bash@5")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUp_RecordsEnvHistoryAndFullEnv(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	o, wd := newTestOrchestrator(t, driver)
	ctx := context.Background()

	cfg := &config.WorkDirConfig{Up: []config.OperationEntry{{Kind: "bash"}}}
	user := &config.UserConfig{Trust: config.TrustConfig{WorkDirs: []string{wd.Root}}}

	result, err := o.Up(ctx, wd, cfg, user)
	require.NoError(t, err)
	require.Len(t, result.Env, 1)
	assert.Equal(t, "FAKE_bash", result.Env[0].Name)

	var fingerprint string
	require.NoError(t, o.Store.DB().QueryRow(
		`SELECT env_fingerprint FROM env_history WHERE workdir_id = ? AND used_until_date IS NULL`, wd.Identity(),
	).Scan(&fingerprint))
	assert.NotEmpty(t, fingerprint)
}

func TestApplyOne_DriverFailurePropagates(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{failKind: operation.KindBash}
	o, wd := newTestOrchestrator(t, driver)

	item := operation.PlanItem{Kind: operation.KindBash, Label: "bash", IdentityKey: "bash@5"}
	err := o.applyOne(context.Background(), item, wd.Identity(), 1000, &Result{}, map[string]bool{})
	require.Error(t, err)
}

func TestDown_DropsReferencesAndLeavesInstallsForGC(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	o, wd := newTestOrchestrator(t, driver)
	ctx := context.Background()

	require.NoError(t, o.Store.InsertInstall(ctx, cache.InstallRecord{Kind: "bash", IdentityKey: "bash@5", InstalledAt: 500, LastRequiredAt: 500}))
	require.NoError(t, o.Store.AddReference(ctx, wd.Identity(), "bash", "bash@5", "", 500))

	require.NoError(t, o.Store.InsertInstall(ctx, cache.InstallRecord{Kind: "node", IdentityKey: "node@20", InstalledAt: 500, LastRequiredAt: 500}))
	require.NoError(t, o.Store.AddReference(ctx, wd.Identity(), "node", "node@20", "", 500))
	require.NoError(t, o.Store.AddReference(ctx, "other-workdir", "node", "node@20", "", 500))

	result, err := o.Down(ctx, wd)
	require.NoError(t, err)
	assert.Len(t, result.Removed, 2)

	// Down never calls the driver -- only GC physically removes an install.
	assert.Empty(t, driver.removes)

	// bash@5 lost its only reference but its install row survives,
	// unreferenced, for GC to reclaim once its grace period elapses.
	bashCount, err := o.Store.ReferenceCount(ctx, "bash", "bash@5")
	require.NoError(t, err)
	assert.Equal(t, 0, bashCount)
	bashRec, err := o.Store.GetInstall(ctx, "bash", "bash@5")
	require.NoError(t, err)
	assert.NotNil(t, bashRec)

	// node@20 still referenced by "other-workdir" -> left alone.
	nodeCount, err := o.Store.ReferenceCount(ctx, "node", "node@20")
	require.NoError(t, err)
	assert.Equal(t, 1, nodeCount)
}

func TestDown_ClosesEnvHistory(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	o, wd := newTestOrchestrator(t, driver)
	ctx := context.Background()

	require.NoError(t, o.Store.UpsertEnvHistory(ctx, wd.Identity(), "fp1", 1000))

	_, err := o.Down(ctx, wd)
	require.NoError(t, err)

	var usedUntil sql.NullInt64
	require.NoError(t, o.Store.DB().QueryRow(
		`SELECT used_until_date FROM env_history WHERE workdir_id = ?`, wd.Identity(),
	).Scan(&usedUntil))
	assert.True(t, usedUntil.Valid, "open env-history entry should be closed once Down completes")
}
