// Package resolve implements the Tool Resolver: it turns a manifest's
// version expression plus a cached version catalog into one concrete
// version string.
package resolve

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/omnicli/omni/internal/errors"
)

// ExpressionKind classifies a parsed version expression.
type ExpressionKind int

const (
	// ExpressionLatest picks the greatest known version outright.
	ExpressionLatest ExpressionKind = iota
	// ExpressionAuto defers to ScanAutoExpression's native-file scan.
	ExpressionAuto
	// ExpressionConstraint picks the greatest version satisfying a
	// semver constraint string (">=1.2, <2.0", "~1.4", "^2", ...).
	ExpressionConstraint
)

// Expression is a manifest version string, parsed.
type Expression struct {
	Kind       ExpressionKind
	Raw        string
	constraint *semver.Constraints
}

// ParseExpression classifies raw into latest, auto, or a semver
// constraint. "latest" and "auto" cannot be combined with any other
// token; anything else is handed straight to
// github.com/Masterminds/semver/v3, which already treats whitespace as
// conjunction and "||" as disjunction and accepts tilde/caret/
// comparator/prefix forms.
func ParseExpression(operation, raw string) (Expression, error) {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "", "latest":
		return Expression{Kind: ExpressionLatest, Raw: trimmed}, nil
	case "auto":
		return Expression{Kind: ExpressionAuto, Raw: trimmed}, nil
	}

	c, err := semver.NewConstraint(trimmed)
	if err != nil {
		return Expression{}, errors.NewResolveError(operation, raw, err)
	}
	return Expression{Kind: ExpressionConstraint, Raw: trimmed, constraint: c}, nil
}

// String implements fmt.Stringer.
func (e Expression) String() string { return e.Raw }

func (e Expression) match(v *semver.Version) bool {
	switch e.Kind {
	case ExpressionLatest, ExpressionAuto:
		return true
	default:
		return e.constraint.Check(v)
	}
}

func parseCandidates(operation string, raw []string) ([]*semver.Version, error) {
	out := make([]*semver.Version, 0, len(raw))
	for _, r := range raw {
		v, err := semver.NewVersion(r)
		if err != nil {
			// A catalog routinely contains non-semver tags (release
			// notes, "nightly", etc); skip rather than fail the whole
			// resolve for one bad entry.
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 && len(raw) > 0 {
		return nil, fmt.Errorf("%s: no semver-parseable version in catalog of %d entries", operation, len(raw))
	}
	return out, nil
}
