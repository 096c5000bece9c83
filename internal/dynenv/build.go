package dynenv

import "github.com/omnicli/omni/internal/operation"

// Build canonicalizes an Up run's accumulated EnvDelta list (in the
// order each plan item applied, operation.MergeEnv's shape) into the
// ordered list RenderHook and Fingerprint operate on.
//
// Set and Unset on the same variable name are idempotent -- only the
// last one needs to survive, so repeated entries collapse to one, kept
// at the position of the name's first occurrence so relative ordering
// against other variables stays stable across otherwise-identical
// runs. Prepend/Append/Prefix/Suffix/Remove are not collapsed: each
// contributes its own mutation and order between them matters (e.g.
// two runtimes prepending onto PATH in manifest order).
func Build(deltas []operation.EnvDelta) []operation.EnvDelta {
	out := make([]operation.EnvDelta, 0, len(deltas))
	collapsedAt := make(map[string]int, len(deltas))

	for _, d := range deltas {
		if d.Op != operation.EnvOpSet && d.Op != operation.EnvOpUnset {
			out = append(out, d)
			continue
		}
		if idx, ok := collapsedAt[d.Name]; ok {
			out[idx] = d
			continue
		}
		collapsedAt[d.Name] = len(out)
		out = append(out, d)
	}
	return out
}
