// Package operation implements the Operation Registry: the closed
// tagged union of `up:` entry kinds, each contributing plan items that
// the orchestrator applies, reverts, and reads environment
// contributions from.
package operation

import "context"

// Kind identifies one variant of the operation tagged union.
type Kind string

const (
	KindAnd Kind = "and"
	KindAny Kind = "any"
	KindOr  Kind = "or"

	KindApt      Kind = "apt"
	KindDnf      Kind = "dnf"
	KindPacman   Kind = "pacman"
	KindNix      Kind = "nix"
	KindHomebrew Kind = "homebrew"

	KindBash   Kind = "bash"
	KindPython Kind = "python"
	KindRuby   Kind = "ruby"
	KindNode   Kind = "node"
	KindGo     Kind = "go"
	KindRust   Kind = "rust"

	KindGithubRelease Kind = "github-release"
	KindCargoInstall  Kind = "cargo-install"
	KindGoInstall     Kind = "go-install"
	KindCustom        Kind = "custom"
)

// systemPackageKinds and runtimeKinds classify which family a leaf
// variant belongs to, since apt/dnf/pacman/nix/homebrew share a driver
// shape and so do the language runtimes (any of them may in fact name
// a generic tool-version-manager-backed tool, e.g. "node" resolved via
// a plugin rather than a hardcoded installer).
var systemPackageKinds = map[Kind]bool{
	KindApt: true, KindDnf: true, KindPacman: true, KindNix: true, KindHomebrew: true,
}

var runtimeKinds = map[Kind]bool{
	KindBash: true, KindPython: true, KindRuby: true, KindNode: true, KindGo: true, KindRust: true,
}

// EnvOp is the kind of environment mutation an operation contributes.
type EnvOp string

const (
	EnvOpSet     EnvOp = "set"
	EnvOpUnset   EnvOp = "unset"
	EnvOpPrepend EnvOp = "prepend" // prepend to a PATH-like variable
	EnvOpAppend  EnvOp = "append"  // append to a PATH-like variable
	EnvOpRemove  EnvOp = "remove"  // remove an entry from a PATH-like variable
	EnvOpPrefix  EnvOp = "prefix"  // prefix a scalar variable's value
	EnvOpSuffix  EnvOp = "suffix"  // suffix a scalar variable's value
)

// EnvDelta is one ordered environment-variable mutation contributed by
// an applied plan item.
type EnvDelta struct {
	Op    EnvOp
	Name  string
	Value string
}

// PlanItem is one concrete installer invocation produced by Plan,
// already carrying resolved parameters -- no further expansion is
// needed before Apply.
type PlanItem struct {
	// Kind is the leaf operation kind this item belongs to (never a
	// composite kind -- composites are expanded away by Plan).
	Kind Kind

	// Label is a human-readable identity for progress reporting, e.g.
	// "node 20.11.0" or "github-release cli/cli".
	Label string

	// IdentityKey is the Cache Store identity for this item's install,
	// e.g. "node@20.11.0" or "cli/cli@v2.86.0" (see identityKey).
	IdentityKey string

	// Params carries the kind-specific parameters needed to apply this
	// item (already resolved: e.g. a chosen version, not a version
	// expression).
	Params map[string]any

	// DirSubpath is the work-directory subpath this item was declared
	// under, empty for top-level operations.
	DirSubpath string

	// Sequential is true when this item must run strictly after the
	// previous item in the same plan (an `and`'s children, or
	// composite ordering requirements).
	Sequential bool
}

// ApplyOutcome reports what Apply did for one plan item.
type ApplyOutcome struct {
	InstalledNow   bool
	AlreadyPresent bool
	Failed         bool
	InstallPath    string
	Metadata       map[string]any
	Env            []EnvDelta
	Err            error
}

// ApplyContext carries the services an Operation needs during Apply
// and Revert: a driver to perform the actual installation work, and
// environment knowledge needed to choose among `any` composite
// children.
type ApplyContext struct {
	Driver         Driver
	PreferredTools map[string][]string
}

// Driver performs the installer-level work for a leaf plan item:
// downloading, extracting, placing binaries, or delegating to a
// package manager. Concrete drivers live in internal/installer and
// are selected by PlanItem.Kind.
type Driver interface {
	Install(ctx context.Context, item PlanItem) (ApplyOutcome, error)
	Precondition(ctx context.Context, item PlanItem) (bool, error)
	Remove(ctx context.Context, item PlanItem) error

	// ResolveVersion turns the version expression in params (e.g.
	// "latest", "auto", "^2") into a concrete version string, consulting
	// a version catalog when the kind has one. Called by Plan before an
	// item's IdentityKey is derived, so every downstream stage (the
	// Cache Store, Install, Remove) only ever sees a resolved version.
	// Kinds with no catalog of their own (system packages, custom) just
	// echo params["version"] back unchanged.
	ResolveVersion(ctx context.Context, kind Kind, name string, params map[string]any) (string, error)
}

// Operation is one node of the (possibly nested) tagged union parsed
// from an `up:` entry.
type Operation interface {
	Kind() Kind

	// Plan expands this operation (recursively, for composites) into
	// the concrete plan items the orchestrator will apply in order.
	Plan(ctx context.Context, actx ApplyContext) ([]PlanItem, error)
}
