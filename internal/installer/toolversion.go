package installer

import (
	"context"
	"fmt"

	"github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/installer/command"
	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/resolve"
)

// toolVersionManagerBin is the embedded tool-version manager this
// driver shells out to. mise speaks the same plugin/version-install
// model as asdf but ships a single static binary, so it is the
// natural choice for a driver that must work without assuming the
// user already has a version manager configured.
const toolVersionManagerBin = "mise"

// toolVersionDriver installs language runtimes (node, python, ruby,
// go, rust, bash, or any other manifest-declared name) by delegating
// to an embedded tool-version manager child process.
type toolVersionDriver struct {
	exec    *command.Executor
	workDir string
}

func (d *toolVersionDriver) runtimeName(item operation.PlanItem) string {
	if name, ok := item.Params["plugin"].(string); ok && name != "" {
		return name
	}
	return string(item.Kind)
}

// ResolveVersion resolves "auto" by scanning the work directory for
// the runtime's native version file (.nvmrc, go.mod, ...). "latest"
// and any other expression are handed to the tool-version manager
// unchanged -- it already understands "latest" and an explicit
// version itself, and omni keeps no catalog of its own for the
// runtimes this driver covers.
func (d *toolVersionDriver) ResolveVersion(_ context.Context, name string, params map[string]any) (string, error) {
	raw, _ := params["version"].(string)
	expr, err := resolve.ParseExpression(name, raw)
	if err != nil {
		return "", err
	}
	if expr.Kind != resolve.ExpressionAuto {
		return raw, nil
	}
	return resolve.ScanAutoExpression(name, d.workDir, "")
}

// Precondition reports whether the tool-version manager binary is
// available on PATH.
func (d *toolVersionDriver) Precondition(ctx context.Context, _ operation.PlanItem) (bool, error) {
	return d.exec.Check(ctx, []string{toolVersionManagerBin + " --version"}, command.Vars{}, nil), nil
}

// Install installs the plugin (if not already present) and the
// requested version, then reports the install path mise reports for
// it via "mise where".
func (d *toolVersionDriver) Install(ctx context.Context, item operation.PlanItem) (operation.ApplyOutcome, error) {
	name := d.runtimeName(item)
	version, _ := item.Params["version"].(string)
	if version == "" {
		version = "latest"
	}

	vars := command.Vars{Name: name, Version: version}

	if err := d.exec.Execute(ctx, []string{
		toolVersionManagerBin + " plugin install -y {{.Name}}",
	}, vars); err != nil {
		// Many plugins are built in and need no explicit install;
		// ignore failure here and let the version-install step
		// surface the real error if the plugin truly doesn't exist.
	}

	if err := d.exec.Execute(ctx, []string{
		toolVersionManagerBin + " install {{.Name}}@{{.Version}}",
	}, vars); err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", "tool-version manager install failed", err)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	installPath, err := d.exec.ExecuteCapture(ctx, []string{
		toolVersionManagerBin + " where {{.Name}}@{{.Version}}",
	}, vars, nil)
	if err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", "failed to resolve install path", err)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	return operation.ApplyOutcome{
		InstalledNow: true,
		InstallPath:  installPath,
		Env: []operation.EnvDelta{
			{Op: operation.EnvOpPrepend, Name: "PATH", Value: installPath + "/bin"},
		},
	}, nil
}

// Remove uninstalls the version via the tool-version manager.
func (d *toolVersionDriver) Remove(ctx context.Context, item operation.PlanItem) error {
	name := d.runtimeName(item)
	version, _ := item.Params["version"].(string)
	if version == "" {
		return fmt.Errorf("%s: cannot remove without a resolved version", name)
	}

	return d.exec.Execute(ctx, []string{
		toolVersionManagerBin + " uninstall {{.Name}}@{{.Version}}",
	}, command.Vars{Name: name, Version: version})
}
