package installer

import (
	"context"
	"fmt"

	"github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/installer/command"
	"github.com/omnicli/omni/internal/operation"
)

// systemPackageCommands names, for each distro package-manager kind,
// the binary `Precondition` checks for, and the install/remove command
// templates run against it. {{.Name}} is the package name and
// {{.Version}} is an optional version pin (apt/dnf/pacman accept
// "name=version"/"name-version"/"name=version" respectively; homebrew
// takes "name@version", a versioned formula; nix ignores it).
var systemPackageCommands = map[operation.Kind]struct {
	bin     string
	install []string
	remove  []string
}{
	operation.KindApt: {
		bin:     "apt-get",
		install: []string{"sudo apt-get update", "sudo apt-get install -y {{.Name}}{{if .Version}}={{.Version}}{{end}}"},
		remove:  []string{"sudo apt-get remove -y {{.Name}}"},
	},
	operation.KindDnf: {
		bin:     "dnf",
		install: []string{"sudo dnf install -y {{.Name}}{{if .Version}}-{{.Version}}{{end}}"},
		remove:  []string{"sudo dnf remove -y {{.Name}}"},
	},
	operation.KindPacman: {
		bin:     "pacman",
		install: []string{"sudo pacman -S --noconfirm {{.Name}}{{if .Version}}={{.Version}}{{end}}"},
		remove:  []string{"sudo pacman -R --noconfirm {{.Name}}"},
	},
	operation.KindNix: {
		bin:     "nix",
		install: []string{"nix profile install nixpkgs#{{.Name}}"},
		remove:  []string{"nix profile remove {{.Name}}"},
	},
	operation.KindHomebrew: {
		bin:     "brew",
		install: []string{"brew install {{.Name}}{{if .Version}}@{{.Version}}{{end}}"},
		remove:  []string{"brew uninstall {{.Name}}"},
	},
}

// systemPackageDriver installs packages through the host's native
// package manager (apt, dnf, pacman, nix, or homebrew). It is normally
// reached through an `any`/`or` composite so that only whichever
// package manager is actually present on the current system is tried.
type systemPackageDriver struct {
	exec *command.Executor
}

func (d *systemPackageDriver) packageName(item operation.PlanItem) string {
	if name, ok := item.Params["package"].(string); ok && name != "" {
		return name
	}
	return string(item.Kind)
}

// Precondition reports whether this kind's package manager binary is
// on PATH — the signal composite operations use to choose a branch.
func (d *systemPackageDriver) Precondition(ctx context.Context, item operation.PlanItem) (bool, error) {
	cmds, ok := systemPackageCommands[item.Kind]
	if !ok {
		return false, fmt.Errorf("system-package: unrecognized kind %q", item.Kind)
	}
	return d.exec.Check(ctx, []string{cmds.bin + " --version"}, command.Vars{}, nil), nil
}

// Install runs the distro-appropriate install command.
func (d *systemPackageDriver) Install(ctx context.Context, item operation.PlanItem) (operation.ApplyOutcome, error) {
	cmds, ok := systemPackageCommands[item.Kind]
	if !ok {
		err := fmt.Errorf("system-package: unrecognized kind %q", item.Kind)
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}

	name := d.packageName(item)
	version, _ := item.Params["version"].(string)
	vars := command.Vars{Name: name, Version: version}

	if err := d.exec.Execute(ctx, cmds.install, vars); err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", "package manager install failed", err).WithVersion(version)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	return operation.ApplyOutcome{
		InstalledNow: true,
		Metadata:     map[string]any{"manager": string(item.Kind)},
	}, nil
}

// ResolveVersion echoes the declared version pin back unchanged: a
// distro package manager resolves "latest"/version constraints itself
// against its own repository metadata, which omni does not mirror.
func (d *systemPackageDriver) ResolveVersion(_ context.Context, _ string, params map[string]any) (string, error) {
	version, _ := params["version"].(string)
	return version, nil
}

// Remove runs the distro-appropriate uninstall command.
func (d *systemPackageDriver) Remove(ctx context.Context, item operation.PlanItem) error {
	cmds, ok := systemPackageCommands[item.Kind]
	if !ok {
		return fmt.Errorf("system-package: unrecognized kind %q", item.Kind)
	}
	return d.exec.Execute(ctx, cmds.remove, command.Vars{Name: d.packageName(item)})
}
