package operation

import (
	"context"
	"fmt"
)

// andOperation runs its children in declared order; the orchestrator
// fails fast on the first child whose apply fails.
type andOperation struct {
	children []Operation
}

func (o *andOperation) Kind() Kind { return KindAnd }

func (o *andOperation) Plan(ctx context.Context, actx ApplyContext) ([]PlanItem, error) {
	var items []PlanItem
	for _, child := range o.children {
		childItems, err := child.Plan(ctx, actx)
		if err != nil {
			return nil, fmt.Errorf("and: planning child %s: %w", child.Kind(), err)
		}
		for i := range childItems {
			childItems[i].Sequential = true
		}
		items = append(items, childItems...)
	}
	return items, nil
}

// anyOperation tries children in preferred-tool order, planning only
// the first whose precondition holds.
type anyOperation struct {
	category string // key into ApplyContext.PreferredTools
	children []Operation
}

func (o *anyOperation) Kind() Kind { return KindAny }

func (o *anyOperation) Plan(ctx context.Context, actx ApplyContext) ([]PlanItem, error) {
	ordered := orderByPreference(o.children, actx.PreferredTools[o.category])

	for _, child := range ordered {
		items, err := child.Plan(ctx, actx)
		if err != nil {
			continue
		}
		if len(items) == 0 {
			continue
		}
		if actx.Driver == nil {
			return items, nil
		}
		ok, err := actx.Driver.Precondition(ctx, items[0])
		if err != nil || !ok {
			continue
		}
		return items, nil
	}

	return nil, fmt.Errorf("any: no candidate in %q satisfied its precondition", o.category)
}

// orOperation runs children sequentially, stopping at (and planning
// only) the first whose precondition holds; it skips children whose
// precondition fails (e.g. the wrong OS family) without error.
type orOperation struct {
	children []Operation
}

func (o *orOperation) Kind() Kind { return KindOr }

func (o *orOperation) Plan(ctx context.Context, actx ApplyContext) ([]PlanItem, error) {
	for _, child := range o.children {
		items, err := child.Plan(ctx, actx)
		if err != nil {
			continue
		}
		if len(items) == 0 {
			continue
		}
		if actx.Driver != nil {
			ok, err := actx.Driver.Precondition(ctx, items[0])
			if err != nil || !ok {
				continue
			}
		}
		return items, nil
	}
	return nil, fmt.Errorf("or: no child's precondition held")
}

// orderByPreference returns children ordered by preferred, falling
// back to declaration order for children not named in preferred.
func orderByPreference(children []Operation, preferred []string) []Operation {
	if len(preferred) == 0 {
		return children
	}

	byKind := make(map[Kind]Operation, len(children))
	var unranked []Operation
	for _, c := range children {
		byKind[c.Kind()] = c
	}

	var ordered []Operation
	seen := make(map[Kind]bool)
	for _, name := range preferred {
		if c, ok := byKind[Kind(name)]; ok && !seen[Kind(name)] {
			ordered = append(ordered, c)
			seen[Kind(name)] = true
		}
	}
	for _, c := range children {
		if !seen[c.Kind()] {
			unranked = append(unranked, c)
		}
	}
	return append(ordered, unranked...)
}
