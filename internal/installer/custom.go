package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/omnicli/omni/internal/envproto"
	"github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/installer/command"
	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/path"
)

// customParams is the parsed shape of a custom operation's Params.
type customParams struct {
	name  string
	met   string
	meet  string
	unmet string
}

func parseCustomParams(item operation.PlanItem) (*customParams, error) {
	name, _ := item.Params["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("custom: params.name is required")
	}
	meet, _ := item.Params["meet"].(string)
	if meet == "" {
		return nil, fmt.Errorf("custom: params.meet is required")
	}

	met, _ := item.Params["met?"].(string)
	unmeet, _ := item.Params["unmeet"].(string)

	return &customParams{name: name, met: met, meet: meet, unmet: unmeet}, nil
}

// customDriver runs user-authored shell scripts: an optional "met?"
// check, a "meet" script that reports its environment contribution
// through an $OMNI_ENV directive file, and an optional "unmeet" script
// run on removal.
type customDriver struct {
	exec  *command.Executor
	paths *path.Paths
}

// Precondition returns true whenever the item's parameters parse: a
// custom operation has no package-manager-availability branch to
// select among, it either runs its own scripts or it doesn't.
func (d *customDriver) Precondition(_ context.Context, item operation.PlanItem) (bool, error) {
	_, err := parseCustomParams(item)
	return err == nil, nil
}

// Install runs "met?" (if present); if it reports already-met (exit
// 0), installation is a no-op. Otherwise it runs "meet", handing it a
// writable $OMNI_ENV file, then parses that file for the environment
// deltas to report back to the caller.
func (d *customDriver) Install(ctx context.Context, item operation.PlanItem) (operation.ApplyOutcome, error) {
	p, err := parseCustomParams(item)
	if err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}

	if p.met != "" {
		if ok := d.exec.Check(ctx, []string{p.met}, command.Vars{Name: p.name}, nil); ok {
			return operation.ApplyOutcome{AlreadyPresent: true}, nil
		}
	}

	workDir := d.paths.InstallDir("custom", p.name)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}

	envFile := filepath.Join(workDir, ".omni_env")
	if err := os.WriteFile(envFile, nil, 0o644); err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}

	if err := d.exec.ExecuteWithEnv(ctx, []string{p.meet}, command.Vars{Name: p.name}, map[string]string{
		"OMNI_ENV": envFile,
	}); err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", "meet script failed", err)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	f, err := os.Open(envFile)
	if err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}
	defer f.Close()

	deltas, err := envproto.ParseFile(item.Label, f)
	if err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}

	return operation.ApplyOutcome{
		InstalledNow: true,
		InstallPath:  workDir,
		Env:          deltas,
	}, nil
}

// ResolveVersion is a no-op: a custom operation's "met?"/"meet"/"unmeet"
// scripts carry no version expression of their own.
func (d *customDriver) ResolveVersion(_ context.Context, _ string, params map[string]any) (string, error) {
	version, _ := params["version"].(string)
	return version, nil
}

// Remove runs "unmeet", if the operation declared one.
func (d *customDriver) Remove(ctx context.Context, item operation.PlanItem) error {
	p, err := parseCustomParams(item)
	if err != nil {
		return err
	}
	if p.unmet == "" {
		return nil
	}
	return d.exec.Execute(ctx, []string{p.unmet}, command.Vars{Name: p.name})
}
