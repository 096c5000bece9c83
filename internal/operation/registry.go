package operation

import (
	"fmt"

	"github.com/omnicli/omni/internal/config"
)

// Build parses the `up:` list of a work-directory manifest into the
// operations the orchestrator will plan and apply in order, implicitly
// wrapping the whole list in an `and` (declared order, fail fast) the
// way a bare top-level sequence of install steps is always meant to
// run.
func Build(entries []config.OperationEntry) ([]Operation, error) {
	ops := make([]Operation, 0, len(entries))
	for i, e := range entries {
		op, err := build(e)
		if err != nil {
			return nil, fmt.Errorf("up[%d]: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func build(e config.OperationEntry) (Operation, error) {
	kind := Kind(e.Kind)

	switch kind {
	case KindAnd, KindOr:
		children, err := buildChildren(e.Params)
		if err != nil {
			return nil, err
		}
		if kind == KindAnd {
			return &andOperation{children: children}, nil
		}
		return &orOperation{children: children}, nil

	case KindAny:
		category, _ := e.Params["category"].(string)
		children, err := buildChildren(e.Params)
		if err != nil {
			return nil, err
		}
		return &anyOperation{category: category, children: children}, nil

	case KindGithubRelease:
		return newGithubRelease(e.Params), nil

	case KindCargoInstall:
		return newCargoInstall(e.Params), nil

	case KindGoInstall:
		return newGoInstall(e.Params), nil

	case KindCustom:
		name, _ := e.Params["name"].(string)
		return newCustom(name, e.Params), nil

	default:
		if systemPackageKinds[kind] {
			name, _ := e.Params["name"].(string)
			return newSystemPackage(kind, name, e.Params), nil
		}
		if runtimeKinds[kind] {
			return newRuntime(kind, e.Kind, e.Params), nil
		}
		// Any other bare name is treated as a generic tool-version-
		// manager-backed runtime request (e.g. a language served by a
		// plugin, not one of the hardcoded runtimeKinds).
		return newRuntime(kind, e.Kind, e.Params), nil
	}
}

// buildChildren parses the "operations" param of a composite entry:
// a list in the same string-or-single-key-map shape as top-level `up:`
// entries.
func buildChildren(params map[string]any) ([]Operation, error) {
	raw, ok := params["operations"].([]any)
	if !ok {
		return nil, fmt.Errorf("composite requires an \"operations\" list")
	}

	children := make([]Operation, 0, len(raw))
	for i, item := range raw {
		entry, err := toOperationEntry(item)
		if err != nil {
			return nil, fmt.Errorf("operations[%d]: %w", i, err)
		}
		op, err := build(entry)
		if err != nil {
			return nil, fmt.Errorf("operations[%d]: %w", i, err)
		}
		children = append(children, op)
	}
	return children, nil
}

// toOperationEntry normalizes one already-decoded YAML value (a bare
// string or a single-key map, same shape config.OperationEntry decodes
// from raw YAML bytes) into a config.OperationEntry, since nested
// composite children arrive as generic `any` values rather than bytes
// the YAML decoder can run over again.
func toOperationEntry(v any) (config.OperationEntry, error) {
	switch val := v.(type) {
	case string:
		return config.OperationEntry{Kind: val}, nil
	case map[string]any:
		if len(val) != 1 {
			return config.OperationEntry{}, fmt.Errorf("entry mapping must have exactly one key, got %d", len(val))
		}
		for k, params := range val {
			paramsMap, ok := params.(map[string]any)
			if !ok {
				return config.OperationEntry{}, fmt.Errorf("entry %q params must be a mapping", k)
			}
			return config.OperationEntry{Kind: k, Params: paramsMap}, nil
		}
	}
	return config.OperationEntry{}, fmt.Errorf("entry must be a string or a single-key mapping")
}
