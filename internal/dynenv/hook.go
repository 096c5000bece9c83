package dynenv

import (
	"strings"

	"github.com/omnicli/omni/internal/operation"
)

// FingerprintVar is the environment variable a shell hook stores the
// last-applied fingerprint in, so the next prompt invocation can tell
// whether the work directory's desired environment has changed.
const FingerprintVar = "OMNI_ENV_FINGERPRINT"

// RenderHook renders deltas as a shell hook script: one line per
// environment mutation in Build's order, followed by an export of the
// new fingerprint so the next invocation can compare against it.
//
// This always fully realizes the desired environment rather than
// emitting a true minimal diff against whatever the shell most
// recently applied -- the hook contract only carries a fingerprint
// across invocations (see FingerprintVar), not the prior EnvDelta list
// itself, so there is nothing to diff against. Re-running every
// mutation is idempotent for Set/Unset/Prefix/Suffix and, because
// Prepend/Append always reference the variable's current value (e.g.
// "$PATH"), idempotent for those too as long as the hook only runs
// when HasChanged reports a real change.
func RenderHook(shell ShellType, deltas []operation.EnvDelta) string {
	f := NewFormatter(shell)
	built := Build(deltas)

	var b strings.Builder
	for _, d := range built {
		line := formatDelta(f, d)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(f.ExportVar(FingerprintVar, FingerprintHex(built)))
	b.WriteString("\n")
	return b.String()
}

// HasChanged reports whether deltas' fingerprint differs from
// previousFingerprintHex (the shell's current FingerprintVar value).
// An empty previousFingerprintHex (the variable was never set, e.g.
// first prompt in a new shell) always counts as changed.
func HasChanged(deltas []operation.EnvDelta, previousFingerprintHex string) bool {
	if previousFingerprintHex == "" {
		return true
	}
	return FingerprintHex(Build(deltas)) != previousFingerprintHex
}

func formatDelta(f Formatter, d operation.EnvDelta) string {
	switch d.Op {
	case operation.EnvOpSet:
		return f.ExportVar(d.Name, d.Value)
	case operation.EnvOpUnset:
		return f.Unset(d.Name)
	case operation.EnvOpPrepend:
		return f.Prepend(d.Name, d.Value)
	case operation.EnvOpAppend:
		return f.Append(d.Name, d.Value)
	case operation.EnvOpPrefix:
		return f.Prefix(d.Name, d.Value)
	case operation.EnvOpSuffix:
		return f.Suffix(d.Name, d.Value)
	case operation.EnvOpRemove:
		return f.Remove(d.Name, d.Value)
	default:
		return ""
	}
}
