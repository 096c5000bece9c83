package orchestrator

import (
	"context"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/workdir"
)

// Down drops wd's claim on every install it currently references. An
// install whose reference count reaches zero is NOT removed here -- it
// is left in the Cache Store, unreferenced, for internal/gc to reclaim
// once it has sat past the configured grace period. This gives a
// work directory that runs `omni down` and then `omni up` again
// shortly after a cheap reinstall instead of a guaranteed re-download,
// and it means a concurrent `omni up` in another work directory that
// is mid-plan against the same install never races a deletion.
//
// Order matches ListReferencesByWorkDir's declared order, which is not
// meaningful across work directories the way Up's manifest order is --
// removals have no cross-item dependency to preserve.
func (o *Orchestrator) Down(ctx context.Context, wd *workdir.WorkDir) (*Result, error) {
	if err := wd.EnsureID(); err != nil {
		return nil, err
	}

	refs, err := o.Store.ListReferencesByWorkDir(ctx, wd.Identity())
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return result, o.cancelError(result)
		default:
		}

		if err := o.removeOne(ctx, wd.Identity(), ref, result); err != nil {
			return result, err
		}
	}

	if err := o.Store.CloseEnvHistory(ctx, wd.Identity(), o.now().Unix()); err != nil {
		return result, err
	}

	return result, nil
}

// removeOne drops wd's reference to ref's install. The install row
// itself is untouched here regardless of the resulting reference
// count -- GC owns deletion, driven by ListGCEligible's grace-period
// check, not by this call observing a zero count.
func (o *Orchestrator) removeOne(ctx context.Context, workdirID string, ref cache.Reference, result *Result) error {
	kind := operation.Kind(ref.Kind)

	rec, err := o.Store.GetInstall(ctx, ref.Kind, ref.IdentityKey)
	if err != nil {
		return err
	}
	if rec == nil {
		// Reference outlived its install row; just clear the dangling reference.
		return o.Store.DropReference(ctx, workdirID, ref.Kind, ref.IdentityKey, ref.DirSubpath)
	}

	o.emit(Event{Type: EventStart, Phase: PhaseRemove, Kind: kind, Label: ref.IdentityKey})

	if err := o.Store.DropReference(ctx, workdirID, ref.Kind, ref.IdentityKey, ref.DirSubpath); err != nil {
		o.emit(Event{Type: EventError, Phase: PhaseRemove, Kind: kind, Label: ref.IdentityKey, Error: err})
		return err
	}

	o.emit(Event{Type: EventComplete, Phase: PhaseRemove, Kind: kind, Label: ref.IdentityKey})
	result.Removed = append(result.Removed, ref)
	return nil
}
