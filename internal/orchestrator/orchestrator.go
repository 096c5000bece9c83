// Package orchestrator runs the Up and Down state machines: it walks
// the operations parsed from a work directory's manifest, asks each
// for its plan items, applies (or removes) them against the Cache
// Store and an operation.Driver, and reports progress through an
// EventHandler.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/omnicli/omni/internal/cache"
	omnierrors "github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/gc"
	"github.com/omnicli/omni/internal/operation"
)

// DefaultParallelism bounds how many independent (non-Sequential)
// plan items within one operation's plan run concurrently.
const DefaultParallelism = 4

// Orchestrator applies and reverts plan items against a Cache Store
// and an installer driver.
type Orchestrator struct {
	Store        *cache.Store
	Driver       operation.Driver
	EventHandler EventHandler
	Parallelism  int

	// GC is run once at the end of a successful Up, after the new
	// reference set is committed. Nil disables this (e.g. in tests
	// that only want to exercise apply/plan logic).
	GC *gc.Collector

	// Now is injected for deterministic tests; defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
}

// New builds an Orchestrator with the default parallelism bound.
func New(store *cache.Store, driver operation.Driver) *Orchestrator {
	return &Orchestrator{Store: store, Driver: driver, Parallelism: DefaultParallelism, Now: time.Now}
}

// Result summarizes one Up or Down run.
type Result struct {
	Applied []operation.PlanItem
	Skipped []operation.PlanItem
	Removed []cache.Reference
	Env     []operation.EnvDelta
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) parallelism() int64 {
	if o.Parallelism <= 0 {
		return DefaultParallelism
	}
	return int64(o.Parallelism)
}

func (o *Orchestrator) emit(ev Event) {
	if o.EventHandler != nil {
		o.EventHandler(ev)
	}
}

func refKey(kind operation.Kind, identityKey, dirSubpath string) string {
	return string(kind) + "|" + identityKey + "|" + dirSubpath
}

// applyPlan runs items in declared order: contiguous runs of
// Sequential items execute one at a time (an `and`'s children, or any
// other composite that requires strict ordering); contiguous runs of
// non-Sequential items execute concurrently, bounded by Parallelism.
// The two kinds of run never interleave, so ordering across the
// concatenation of every operation's plan is preserved exactly as
// declared in the manifest.
func (o *Orchestrator) applyPlan(ctx context.Context, items []operation.PlanItem, workdirID string, now int64, result *Result, seen map[string]bool) error {
	for i := 0; i < len(items); {
		j := i + 1
		for j < len(items) && items[j].Sequential == items[i].Sequential {
			j++
		}
		batch := items[i:j]
		i = j

		if batch[0].Sequential {
			for _, item := range batch {
				if err := o.applyOne(ctx, item, workdirID, now, result, seen); err != nil {
					return err
				}
			}
			continue
		}

		if err := o.applyConcurrent(ctx, batch, workdirID, now, result, seen); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) applyConcurrent(ctx context.Context, batch []operation.PlanItem, workdirID string, now int64, result *Result, seen map[string]bool) error {
	sem := semaphore.NewWeighted(o.parallelism())
	var wg sync.WaitGroup
	errCh := make(chan error, len(batch))

	for _, item := range batch {
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(item operation.PlanItem) {
			defer wg.Done()
			defer sem.Release(1)
			if err := o.applyOne(ctx, item, workdirID, now, result, seen); err != nil {
				errCh <- err
			}
		}(item)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// applyOne installs (or records the existing install of) a single
// plan item. It is safe to call from multiple goroutines: result and
// seen are protected by o.mu.
func (o *Orchestrator) applyOne(ctx context.Context, item operation.PlanItem, workdirID string, now int64, result *Result, seen map[string]bool) error {
	o.mu.Lock()
	seen[refKey(item.Kind, item.IdentityKey, item.DirSubpath)] = true
	o.mu.Unlock()

	existing, err := o.Store.GetInstall(ctx, string(item.Kind), item.IdentityKey)
	if err != nil {
		return err
	}

	if existing != nil {
		o.emit(Event{Type: EventSkip, Phase: PhaseApply, Kind: item.Kind, Label: item.Label})
		if err := o.Store.AddReference(ctx, workdirID, string(item.Kind), item.IdentityKey, item.DirSubpath, now); err != nil {
			return err
		}
		o.mu.Lock()
		result.Skipped = append(result.Skipped, item)
		o.mu.Unlock()
		return nil
	}

	o.emit(Event{Type: EventStart, Phase: PhaseApply, Kind: item.Kind, Label: item.Label})

	outcome, err := o.Driver.Install(ctx, item)
	if err == nil && outcome.Failed {
		err = outcome.Err
		if err == nil {
			err = fmt.Errorf("%s: install failed", item.Label)
		}
	}
	if err != nil {
		o.emit(Event{Type: EventError, Phase: PhaseApply, Kind: item.Kind, Label: item.Label, Error: err})
		return err
	}

	meta := make(map[string]any, len(item.Params)+len(outcome.Metadata))
	for k, v := range item.Params {
		meta[k] = v
	}
	for k, v := range outcome.Metadata {
		meta[k] = v
	}
	meta = operation.EncodeEnvMetadata(meta, outcome.Env)

	if err := o.Store.InsertInstall(ctx, cache.InstallRecord{
		Kind: string(item.Kind), IdentityKey: item.IdentityKey, InstallPath: outcome.InstallPath,
		InstalledAt: now, LastRequiredAt: now, Metadata: meta,
	}); err != nil {
		return err
	}
	if err := o.Store.AddReference(ctx, workdirID, string(item.Kind), item.IdentityKey, item.DirSubpath, now); err != nil {
		return err
	}

	applyEnvToProcess(outcome.Env)

	o.emit(Event{Type: EventComplete, Phase: PhaseApply, Kind: item.Kind, Label: item.Label, InstallPath: outcome.InstallPath})

	o.mu.Lock()
	result.Applied = append(result.Applied, item)
	result.Env = append(result.Env, outcome.Env...)
	o.mu.Unlock()
	return nil
}

// dropStaleReferences removes any reference the work directory held
// before this run that the current plan no longer needs. The
// referenced install itself is left in place -- garbage collection
// reclaims it later, once it has sat unreferenced past the configured
// grace period.
func (o *Orchestrator) dropStaleReferences(ctx context.Context, workdirID string, seen map[string]bool) error {
	existing, err := o.Store.ListReferencesByWorkDir(ctx, workdirID)
	if err != nil {
		return err
	}
	for _, ref := range existing {
		if seen[refKey(operation.Kind(ref.Kind), ref.IdentityKey, ref.DirSubpath)] {
			continue
		}
		if err := o.Store.DropReference(ctx, workdirID, ref.Kind, ref.IdentityKey, ref.DirSubpath); err != nil {
			return err
		}
	}
	return nil
}

// cancelError reports the items that finished applying before ctx was
// canceled, for a readable interruption message.
func (o *Orchestrator) cancelError(result *Result) error {
	completed := make([]string, 0, len(result.Applied))
	for _, item := range result.Applied {
		completed = append(completed, item.Label)
	}
	return omnierrors.NewCancelError(completed, nil)
}

// applyEnvToProcess mutates the current process environment so that a
// later plan item's child-process commands (run through
// installer/command.Executor) observe an earlier item's contributions
// -- e.g. a runtime's PATH prepend must be visible before a later
// custom operation that invokes a binary from that runtime. Full
// export/fingerprint formatting for the shell hook is internal/dynenv's
// job; this only needs to be correct within the lifetime of one run.
func applyEnvToProcess(deltas []operation.EnvDelta) {
	for _, d := range deltas {
		switch d.Op {
		case operation.EnvOpSet:
			os.Setenv(d.Name, d.Value)
		case operation.EnvOpUnset:
			os.Unsetenv(d.Name)
		case operation.EnvOpPrepend:
			if cur := os.Getenv(d.Name); cur != "" {
				os.Setenv(d.Name, d.Value+string(os.PathListSeparator)+cur)
			} else {
				os.Setenv(d.Name, d.Value)
			}
		case operation.EnvOpAppend:
			if cur := os.Getenv(d.Name); cur != "" {
				os.Setenv(d.Name, cur+string(os.PathListSeparator)+d.Value)
			} else {
				os.Setenv(d.Name, d.Value)
			}
		case operation.EnvOpPrefix:
			os.Setenv(d.Name, d.Value+os.Getenv(d.Name))
		case operation.EnvOpSuffix:
			os.Setenv(d.Name, os.Getenv(d.Name)+d.Value)
		case operation.EnvOpRemove:
			// List-entry removal is not applied to the process
			// environment; internal/dynenv handles it when building
			// the shell hook's environment.
		}
	}
}
