// Package installer implements operation.Driver: the per-kind logic
// that turns a planned operation.PlanItem into an actual install,
// download, or delegated package-manager invocation on disk.
package installer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/config"
	"github.com/omnicli/omni/internal/github"
	"github.com/omnicli/omni/internal/installer/command"
	"github.com/omnicli/omni/internal/installer/download"
	"github.com/omnicli/omni/internal/installer/place"
	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/path"
	"github.com/omnicli/omni/internal/verify"
)

// defaultGitHubClient returns a token-authenticated client when
// GITHUB_TOKEN/GH_TOKEN is set in the environment, or a plain client
// otherwise.
func defaultGitHubClient() *http.Client {
	return github.NewHTTPClient(github.TokenFromEnv())
}

// kindDriver is the subset of operation.Driver each kind-specific
// implementation provides; Dispatcher routes to one by PlanItem.Kind.
type kindDriver interface {
	Install(ctx context.Context, item operation.PlanItem) (operation.ApplyOutcome, error)
	Precondition(ctx context.Context, item operation.PlanItem) (bool, error)
	Remove(ctx context.Context, item operation.PlanItem) error
	ResolveVersion(ctx context.Context, name string, params map[string]any) (string, error)
}

// Dispatcher implements operation.Driver, routing each plan item to
// the concrete driver for its Kind.
type Dispatcher struct {
	drivers map[operation.Kind]kindDriver
}

// Config wires the shared services every kind-specific driver needs.
type Config struct {
	Paths *path.Paths
	Cache *cache.Store

	// CacheCfg supplies the catalog TTL/retention knobs ResolveVersion
	// uses when refreshing a version catalog through the Cache Store.
	CacheCfg config.CacheConfig

	// Upgrade, when true, lets ResolveVersion pick a greater version
	// across a major-version boundary from an already-installed one;
	// false pins a bare "latest"/unconstrained expression to the
	// installed major version (set from `omni up --upgrade`).
	Upgrade bool

	// GitHubClient is used for release-listing/API calls; nil falls
	// back to github.NewHTTPClient(github.TokenFromEnv()).
	GitHubClient *http.Client

	// DownloadClient is used for the actual asset byte transfer,
	// deliberately separate from GitHubClient so a short API-call
	// timeout never truncates a large archive download.
	DownloadClient *http.Client

	// Verifier checks cosign/sigstore signatures on downloaded
	// release assets. Nil disables signature verification entirely
	// (every artifact is treated as unsigned and a warning is logged).
	Verifier verify.Verifier

	// WorkDir is the work directory root, used as the cwd for
	// tool-version-manager/custom/package-manager child processes.
	WorkDir string
}

// New builds a Dispatcher with one kind-specific driver per family of
// operation.Kind.
func New(cfg Config) *Dispatcher {
	exec := command.NewExecutor(cfg.WorkDir)
	dl := download.NewDownloader(cfg.DownloadClient)
	placer := place.NewPlacer(cfg.Paths.InstallDir("ghreleases"), cfg.Paths.InstallDir("bin"))

	v := cfg.Verifier
	if v == nil {
		v = verify.NewNoopVerifier("no verifier configured")
	}

	ghClient := cfg.GitHubClient
	if ghClient == nil {
		ghClient = defaultGitHubClient()
	}

	gh := &githubReleaseDriver{
		paths:      cfg.Paths,
		client:     ghClient,
		downloader: dl,
		verifier:   v,
		placer:     placer,
		store:      cfg.Cache,
		cacheCfg:   cfg.CacheCfg,
		upgrade:    cfg.Upgrade,
	}

	tv := &toolVersionDriver{exec: exec, workDir: cfg.WorkDir}
	sp := &systemPackageDriver{exec: exec}
	li := &langInstallDriver{exec: exec, paths: cfg.Paths}
	cu := &customDriver{exec: exec, paths: cfg.Paths}

	d := &Dispatcher{drivers: map[operation.Kind]kindDriver{
		operation.KindGithubRelease: gh,
		operation.KindCargoInstall:  li,
		operation.KindGoInstall:     li,
		operation.KindCustom:        cu,

		operation.KindApt:      sp,
		operation.KindDnf:      sp,
		operation.KindPacman:   sp,
		operation.KindNix:      sp,
		operation.KindHomebrew: sp,

		operation.KindBash:   tv,
		operation.KindPython: tv,
		operation.KindRuby:   tv,
		operation.KindNode:   tv,
		operation.KindGo:     tv,
		operation.KindRust:   tv,
	}}
	return d
}

var _ operation.Driver = (*Dispatcher)(nil)

func (d *Dispatcher) driverFor(kind operation.Kind) (kindDriver, error) {
	drv, ok := d.drivers[kind]
	if ok {
		return drv, nil
	}
	// Any kind not in the hardcoded table (a manifest-declared runtime
	// name not among the built-ins, e.g. "deno") gets a bare generic
	// tool-version-manager driver together with a non-nil error naming
	// the kind. The dispatch methods below do not call driverFor; they
	// fall back to that driver without an error.
	return &toolVersionDriver{}, fmt.Errorf("no driver registered for operation kind %q", kind)
}

// Install dispatches to the driver for item.Kind.
func (d *Dispatcher) Install(ctx context.Context, item operation.PlanItem) (operation.ApplyOutcome, error) {
	drv, ok := d.drivers[item.Kind]
	if !ok {
		drv = &toolVersionDriver{exec: command.NewExecutor("")}
	}
	return drv.Install(ctx, item)
}

// Precondition dispatches to the driver for item.Kind.
func (d *Dispatcher) Precondition(ctx context.Context, item operation.PlanItem) (bool, error) {
	drv, ok := d.drivers[item.Kind]
	if !ok {
		drv = &toolVersionDriver{exec: command.NewExecutor("")}
	}
	return drv.Precondition(ctx, item)
}

// Remove dispatches to the driver for item.Kind.
func (d *Dispatcher) Remove(ctx context.Context, item operation.PlanItem) error {
	drv, ok := d.drivers[item.Kind]
	if !ok {
		drv = &toolVersionDriver{exec: command.NewExecutor("")}
	}
	return drv.Remove(ctx, item)
}

// ResolveVersion dispatches to the driver for kind. A kind with no
// registered driver (an unrecognized manifest-declared runtime name)
// falls back to the generic tool-version-manager driver, which echoes
// the expression back unchanged.
func (d *Dispatcher) ResolveVersion(ctx context.Context, kind operation.Kind, name string, params map[string]any) (string, error) {
	drv, ok := d.drivers[kind]
	if !ok {
		drv = &toolVersionDriver{}
	}
	return drv.ResolveVersion(ctx, name, params)
}
