package orchestrator

import (
	"context"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/config"
	"github.com/omnicli/omni/internal/dynenv"
	omnierrors "github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/gc"
	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/workdir"
)

// Up applies cfg's `up:` list against wd: it builds the operation
// tree, plans and applies each top-level operation in declared order,
// then drops any reference the work directory held before this run
// that the new plan no longer needs.
//
// A cross-operation barrier is strict: one top-level entry's plan
// items finish applying (or fail) before the next entry is even
// planned, honoring the rule that `up:` entries run in the order they
// are declared. Within one entry's plan, independent items may run
// concurrently; see applyPlan.
func (o *Orchestrator) Up(ctx context.Context, wd *workdir.WorkDir, cfg *config.WorkDirConfig, user *config.UserConfig) (*Result, error) {
	if !wd.IsTrusted(user) {
		return nil, omnierrors.NewTrustError(wd.Root)
	}
	if err := wd.EnsureID(); err != nil {
		return nil, err
	}

	if err := o.Store.UpsertWorkDir(ctx, cache.WorkDirRecord{
		ID:       wd.Identity(),
		RootPath: wd.Root,
		Kind:     workdirKind(wd),
	}); err != nil {
		return nil, err
	}

	ops, err := operation.Build(cfg.Up)
	if err != nil {
		return nil, err
	}

	actx := operation.ApplyContext{Driver: o.Driver}
	if user != nil {
		actx.PreferredTools = user.PreferredTools
	}

	now := o.now().Unix()
	result := &Result{}
	seen := make(map[string]bool)

	for _, op := range ops {
		select {
		case <-ctx.Done():
			return result, o.cancelError(result)
		default:
		}

		items, err := op.Plan(ctx, actx)
		if err != nil {
			return result, err
		}
		if err := o.applyPlan(ctx, items, wd.Identity(), now, result, seen); err != nil {
			return result, err
		}
	}

	if err := o.dropStaleReferences(ctx, wd.Identity(), seen); err != nil {
		return result, err
	}

	env, err := o.RebuildEnv(ctx, wd.Identity())
	if err != nil {
		return result, err
	}
	result.Env = env

	if err := o.Store.UpsertEnvHistory(ctx, wd.Identity(), dynenv.FingerprintHex(dynenv.Build(env)), now); err != nil {
		return result, err
	}

	if o.GC != nil {
		if _, err := o.GC.Run(ctx, false); err != nil {
			return result, err
		}
	}

	return result, nil
}

// RebuildEnv reconstructs the full set of environment contributions a
// work directory's currently-held references make, not just the ones
// this run actually applied: a plan item whose install already
// existed is skipped (the driver is never re-invoked), so its
// EnvDelta contributions can only be recovered from the metadata its
// original install recorded (see operation.EncodeEnvMetadata). Order
// follows ListReferencesByWorkDir, which for a work directory that
// has not changed its manifest since its last run matches the
// manifest's own declared order; a changed manifest may reorder
// references relative to a prior run; since drivers so far only
// observe earlier items' env through the live process environment
// (mutated in apply order during this run, see applyEnvToProcess),
// this only affects the order dynenv's Fingerprint/RenderHook see for
// items whose install was already present, not correctness of the
// live run itself.
//
// It is exported so the shell hook command can recompute the desired environment between
// Up runs without re-planning or re-applying anything.
func (o *Orchestrator) RebuildEnv(ctx context.Context, workdirID string) ([]operation.EnvDelta, error) {
	refs, err := o.Store.ListReferencesByWorkDir(ctx, workdirID)
	if err != nil {
		return nil, err
	}

	var env []operation.EnvDelta
	for _, ref := range refs {
		rec, err := o.Store.GetInstall(ctx, ref.Kind, ref.IdentityKey)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		env = append(env, operation.DecodeEnvMetadata(rec.Metadata)...)
	}
	return env, nil
}

func workdirKind(wd *workdir.WorkDir) cache.WorkDirKind {
	if wd.IsGit {
		return cache.WorkDirKindGitRepo
	}
	return cache.WorkDirKindAdHoc
}
