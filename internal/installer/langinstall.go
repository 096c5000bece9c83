package installer

import (
	"context"
	"fmt"
	"os"

	"github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/installer/command"
	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/path"
	"github.com/omnicli/omni/internal/resolve"
)

// langInstallCommands names, per kind, the binary Precondition checks
// and the install command template. Both install into an omni-private
// prefix ({{.BinPath}}, the kind's install dir) rather than the user's
// normal cargo/go bin directory, so a removed operation leaves no
// trace outside the cache root.
var langInstallCommands = map[operation.Kind]struct {
	bin     string
	install []string
}{
	operation.KindCargoInstall: {
		bin:     "cargo",
		install: []string{"cargo install --root {{.BinPath}} --version {{.Version}} {{.Package}}"},
	},
	operation.KindGoInstall: {
		bin:     "go",
		install: []string{"GOBIN={{.BinPath}} go install {{.Package}}@{{.Version}}"},
	},
}

// langInstallDriver installs packages via a language's own install
// subcommand (cargo install, go install), targeting an omni-private
// prefix instead of the language's default global bin directory.
type langInstallDriver struct {
	exec  *command.Executor
	paths *path.Paths
}

func (d *langInstallDriver) packageName(item operation.PlanItem) (string, error) {
	pkg, _ := item.Params["package"].(string)
	if pkg == "" {
		return "", fmt.Errorf("%s: params.package is required", item.Kind)
	}
	return pkg, nil
}

func (d *langInstallDriver) installDir(item operation.PlanItem, pkg, version string) string {
	return d.paths.InstallDir(string(item.Kind), pkg, version)
}

// ResolveVersion validates the expression syntax but otherwise echoes
// it back unchanged: cargo/go already accept "latest" and a semver-ish
// version string directly on their own install command lines, and
// omni keeps no crates.io/module-proxy catalog of its own to resolve
// a constraint against.
func (d *langInstallDriver) ResolveVersion(_ context.Context, _ string, params map[string]any) (string, error) {
	raw, _ := params["version"].(string)
	pkg, _ := params["package"].(string)
	expr, err := resolve.ParseExpression(pkg, raw)
	if err != nil {
		return "", err
	}
	if expr.Kind == resolve.ExpressionAuto {
		return "", fmt.Errorf("%s: version \"auto\" has no native-file scan target for a standalone package install", pkg)
	}
	return raw, nil
}

// Precondition reports whether the underlying toolchain binary is on
// PATH.
func (d *langInstallDriver) Precondition(ctx context.Context, item operation.PlanItem) (bool, error) {
	cmds, ok := langInstallCommands[item.Kind]
	if !ok {
		return false, fmt.Errorf("lang-install: unrecognized kind %q", item.Kind)
	}
	return d.exec.Check(ctx, []string{cmds.bin + " version"}, command.Vars{}, nil), nil
}

// Install runs the toolchain's own install command, targeted at an
// omni-private bin directory, and reports that directory as the
// install path.
func (d *langInstallDriver) Install(ctx context.Context, item operation.PlanItem) (operation.ApplyOutcome, error) {
	cmds, ok := langInstallCommands[item.Kind]
	if !ok {
		err := fmt.Errorf("lang-install: unrecognized kind %q", item.Kind)
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}

	pkg, err := d.packageName(item)
	if err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}

	version, _ := item.Params["version"].(string)
	if version == "" {
		version = "latest"
	}

	binDir := d.installDir(item, pkg, version)
	vars := command.Vars{Package: pkg, Version: version, BinPath: binDir}

	if err := d.exec.Execute(ctx, cmds.install, vars); err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", "language install command failed", err).WithVersion(version)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	return operation.ApplyOutcome{
		InstalledNow: true,
		InstallPath:  binDir,
		Env: []operation.EnvDelta{
			{Op: operation.EnvOpPrepend, Name: "PATH", Value: binDir},
		},
	}, nil
}

// Remove deletes the package's install directory.
func (d *langInstallDriver) Remove(_ context.Context, item operation.PlanItem) error {
	pkg, err := d.packageName(item)
	if err != nil {
		return err
	}
	version, _ := item.Params["version"].(string)
	return os.RemoveAll(d.installDir(item, pkg, version))
}
