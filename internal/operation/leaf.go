package operation

import (
	"context"
	"fmt"
)

// leafOperation is the shared shape of every variant that contributes
// exactly one plan item: system packages, language runtimes,
// github-release, cargo-install, go-install, and custom. Every
// constructor below returns a leafOperation, and the one Plan method
// builds the single item the same way for all kinds.
type leafOperation struct {
	kind       Kind
	name       string
	params     map[string]any
	dirSubpath string
}

func (o *leafOperation) Kind() Kind { return o.kind }

func (o *leafOperation) Plan(ctx context.Context, actx ApplyContext) ([]PlanItem, error) {
	label := o.name
	if label == "" {
		label = string(o.kind)
	}

	params := o.params
	if actx.Driver != nil {
		resolved, err := actx.Driver.ResolveVersion(ctx, o.kind, o.name, o.params)
		if err != nil {
			return nil, err
		}
		if resolved != "" {
			params = make(map[string]any, len(o.params)+1)
			for k, v := range o.params {
				params[k] = v
			}
			params["version"] = resolved
		}
	}

	return []PlanItem{{
		Kind:        o.kind,
		Label:       label,
		IdentityKey: identityKey(o.kind, o.name, params),
		Params:      params,
		DirSubpath:  o.dirSubpath,
	}}, nil
}

// identityKey derives the Cache Store identity for a leaf item. Most
// kinds key on name@version, github-release on repo@version,
// cargo-install/go-install on package@version, and custom on its name.
// The github-release key does not include the asset selector, so two
// entries for the same repo and version that pick different assets
// share one identity.
func identityKey(kind Kind, name string, params map[string]any) string {
	version, _ := params["version"].(string)
	if version == "" {
		version = "latest"
	}

	switch kind {
	case KindGithubRelease:
		repo, _ := params["repo"].(string)
		return fmt.Sprintf("%s@%s", repo, version)
	case KindCargoInstall, KindGoInstall:
		pkg, _ := params["package"].(string)
		return fmt.Sprintf("%s@%s", pkg, version)
	case KindCustom:
		return name
	default:
		if name == "" {
			name = string(kind)
		}
		return fmt.Sprintf("%s@%s", name, version)
	}
}

// newSystemPackage builds an apt/dnf/pacman/nix/homebrew leaf.
func newSystemPackage(kind Kind, name string, params map[string]any) Operation {
	return &leafOperation{kind: kind, name: name, params: params}
}

// newRuntime builds a bash/python/ruby/node/go/rust leaf, or any other
// name treated as a generic tool-version-manager-backed tool.
func newRuntime(kind Kind, name string, params map[string]any) Operation {
	return &leafOperation{kind: kind, name: name, params: params}
}

// newGithubRelease builds a github-release leaf.
func newGithubRelease(params map[string]any) Operation {
	repo, _ := params["repo"].(string)
	return &leafOperation{kind: KindGithubRelease, name: repo, params: params}
}

// newCargoInstall builds a cargo-install leaf.
func newCargoInstall(params map[string]any) Operation {
	pkg, _ := params["package"].(string)
	return &leafOperation{kind: KindCargoInstall, name: pkg, params: params}
}

// newGoInstall builds a go-install leaf.
func newGoInstall(params map[string]any) Operation {
	pkg, _ := params["package"].(string)
	return &leafOperation{kind: KindGoInstall, name: pkg, params: params}
}

// newCustom builds a custom leaf: a user-declared install/check/remove
// CommandSet, identified by its name in the manifest.
func newCustom(name string, params map[string]any) Operation {
	return &leafOperation{kind: KindCustom, name: name, params: params}
}
