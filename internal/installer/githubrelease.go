package installer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/config"
	"github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/github"
	"github.com/omnicli/omni/internal/installer/download"
	"github.com/omnicli/omni/internal/installer/extract"
	"github.com/omnicli/omni/internal/installer/place"
	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/path"
	"github.com/omnicli/omni/internal/resolve"
	"github.com/omnicli/omni/internal/verify"
)

// sigstoreBundleSuffix is the filename suffix GitHub Actions
// attestation / cosign keyless signing publishes a signature bundle
// under, alongside the asset it covers.
const sigstoreBundleSuffix = ".sigstore.json"

// githubReleaseDriver installs tools distributed as GitHub release
// assets: list releases, pick the asset matching the current OS/arch,
// download, verify, extract, and place the binary.
type githubReleaseDriver struct {
	paths      *path.Paths
	client     *http.Client
	downloader download.Downloader
	verifier   verify.Verifier
	placer     place.Placer

	store    *cache.Store
	cacheCfg config.CacheConfig
	upgrade  bool
}

// githubReleaseParams is the parsed shape of a github-release
// PlanItem's Params.
type githubReleaseParams struct {
	owner, repo string
	version     string
	tagPrefix   string
	binaryName  string
	assetPath   string // glob override
	skip        []string
	archiveType string
	checksum    *download.ChecksumSpec
}

func parseGithubReleaseParams(p map[string]any) (*githubReleaseParams, error) {
	repoFull, _ := p["repo"].(string)
	owner, repo, ok := strings.Cut(repoFull, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("github-release: params.repo must be \"owner/repo\", got %q", repoFull)
	}

	version, _ := p["version"].(string)
	if version == "" {
		return nil, fmt.Errorf("github-release: params.version is required")
	}

	tagPrefix, _ := p["tag_prefix"].(string)
	if tagPrefix == "" {
		tagPrefix = "v"
	}

	binaryName, _ := p["binary_name"].(string)
	if binaryName == "" {
		binaryName = repo
	}

	assetPattern, _ := p["asset_pattern"].(string)
	archiveType, _ := p["archive_type"].(string)

	var skip []string
	if raw, ok := p["skip"].([]any); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				skip = append(skip, str)
			}
		}
	}

	var cs *download.ChecksumSpec
	if raw, ok := p["checksum"].(map[string]any); ok {
		value, _ := raw["value"].(string)
		url, _ := raw["url"].(string)
		pattern, _ := raw["file_pattern"].(string)
		if value != "" || url != "" {
			cs = &download.ChecksumSpec{Value: value, URL: url, FilePattern: pattern}
		}
	}

	return &githubReleaseParams{
		owner: owner, repo: repo, version: version, tagPrefix: tagPrefix,
		binaryName: binaryName, assetPath: assetPattern, skip: skip,
		archiveType: archiveType, checksum: cs,
	}, nil
}

// ResolveVersion turns params.version -- "latest", "auto", or a semver
// constraint -- into one concrete release tag, refreshed through the
// Cache Store's catalog table. "auto" has no native version file for a
// GitHub release (there is no project checkout to scan), so it is
// treated as an error rather than silently falling back to "latest".
func (d *githubReleaseDriver) ResolveVersion(ctx context.Context, name string, params map[string]any) (string, error) {
	repoFull, _ := params["repo"].(string)
	owner, repo, ok := strings.Cut(repoFull, "/")
	if !ok || owner == "" || repo == "" {
		return "", fmt.Errorf("github-release: params.repo must be \"owner/repo\", got %q", repoFull)
	}

	tagPrefix, _ := params["tag_prefix"].(string)
	if tagPrefix == "" {
		tagPrefix = "v"
	}

	raw, _ := params["version"].(string)
	expr, err := resolve.ParseExpression(name, raw)
	if err != nil {
		return "", err
	}
	if expr.Kind == resolve.ExpressionAuto {
		return "", fmt.Errorf("github-release %s: version \"auto\" is not supported, there is no checkout to scan", repoFull)
	}

	installedVersion := d.installedVersion(ctx, repoFull)
	src := github.ReleaseVersionSource{Client: d.client, TagPrefix: tagPrefix}

	return resolve.Resolve(ctx, d.store, d.cacheCfg, time.Now(), "github-release", repoFull, src, expr, installedVersion, d.upgrade)
}

// installedVersion looks up the version already recorded for repoFull
// among this kind's installs, so ResolveVersion can avoid silently
// crossing a major-version boundary on a bare "latest" expression. It
// is best-effort: any lookup failure just disables that guard.
func (d *githubReleaseDriver) installedVersion(ctx context.Context, repoFull string) string {
	if d.store == nil {
		return ""
	}
	records, err := d.store.ListInstallsByKind(ctx, string(operation.KindGithubRelease))
	if err != nil {
		return ""
	}
	prefix := repoFull + "@"
	for _, rec := range records {
		if version, ok := strings.CutPrefix(rec.IdentityKey, prefix); ok {
			return version
		}
	}
	return ""
}

// Precondition reports whether item's params are well-formed. The
// driver performs no network I/O here since Precondition is also used
// to choose among `any`/`or` siblings and must stay cheap.
func (d *githubReleaseDriver) Precondition(_ context.Context, item operation.PlanItem) (bool, error) {
	_, err := parseGithubReleaseParams(item.Params)
	return err == nil, nil
}

// Install downloads, verifies, extracts, and places the release asset
// matching the current platform.
func (d *githubReleaseDriver) Install(ctx context.Context, item operation.PlanItem) (operation.ApplyOutcome, error) {
	p, err := parseGithubReleaseParams(item.Params)
	if err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}

	releases, err := github.ListReleases(ctx, d.client, p.owner, p.repo)
	if err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", "failed to list releases", err)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	wantTag := p.tagPrefix + p.version
	var assets []github.Asset
	for _, r := range releases {
		if r.Draft {
			continue
		}
		if r.TagName == wantTag || r.TagName == p.version {
			assets = r.Assets
			break
		}
	}
	if assets == nil {
		err := fmt.Errorf("no release tagged %q found for %s/%s", wantTag, p.owner, p.repo)
		wrapped := errors.NewInstallError(item.Label, "install", err.Error(), nil)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	asset, err := selectAsset(assets, config.DetectEnv(), p.assetPath, p.skip)
	if err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", err.Error(), nil)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	workDir := d.paths.InstallDir("ghreleases", p.owner, p.repo, p.version, ".download")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}
	defer os.RemoveAll(workDir)

	assetPath := filepath.Join(workDir, asset.Name)
	if _, err := d.downloader.Download(ctx, asset.BrowserDownloadURL, assetPath); err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", "download failed", err).WithURL(asset.BrowserDownloadURL)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	if err := d.downloader.Verify(ctx, assetPath, p.checksum); err != nil {
		wrapped := errors.NewChecksumError(item.Label, asset.BrowserDownloadURL, "", "")
		wrapped.Base.Cause = err
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	bundlePath := d.downloadSigstoreBundle(ctx, assets, asset.Name, workDir)
	result, err := d.verifier.Verify(ctx, verify.Artifact{
		Path:       assetPath,
		Repo:       fmt.Sprintf("%s/%s", p.owner, p.repo),
		BundlePath: bundlePath,
	})
	if err != nil {
		wrapped := errors.NewSignatureError(item.Label, asset.BrowserDownloadURL, err)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}
	if !result.Verified {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", item.Label, result.SkipReason)
	}

	archiveType := extract.NormalizeArchiveType(p.archiveType)
	if archiveType == "" {
		archiveType = extract.DetectArchiveType(asset.Name)
	}
	if archiveType == "" {
		archiveType = extract.ArchiveTypeRaw
	}

	extractor, err := extract.NewExtractor(archiveType)
	if err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}

	extractDir := filepath.Join(workDir, "extracted")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}

	f, err := os.Open(assetPath)
	if err != nil {
		return operation.ApplyOutcome{Failed: true, Err: err}, err
	}
	defer f.Close()

	destDir := extractDir
	if archiveType == extract.ArchiveTypeRaw {
		// rawExtractor names the produced binary after destDir's own
		// base name, so nest one more directory level named for the
		// expected binary.
		destDir = filepath.Join(extractDir, p.binaryName)
	}
	if err := extractor.Extract(f, destDir); err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", "extraction failed", err)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	target := place.PlaceTarget{Name: p.repo, Version: p.version, BinaryName: p.binaryName}
	placed, err := d.placer.Place(extractDir, target)
	if err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", "failed to place binary", err)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	linkPath, err := d.placer.Symlink(target)
	if err != nil {
		wrapped := errors.NewInstallError(item.Label, "install", "failed to symlink binary", err)
		return operation.ApplyOutcome{Failed: true, Err: wrapped}, wrapped
	}

	return operation.ApplyOutcome{
		InstalledNow: true,
		InstallPath:  placed.BinaryPath,
		Metadata:     map[string]any{"symlink": linkPath, "tag": wantTag},
	}, nil
}

// downloadSigstoreBundle looks for a sibling "<asset>.sigstore.json"
// asset in the same release and downloads it alongside the artifact,
// returning its local path, or "" if none was published.
func (d *githubReleaseDriver) downloadSigstoreBundle(ctx context.Context, assets []github.Asset, assetName, workDir string) string {
	wantName := assetName + sigstoreBundleSuffix
	for _, a := range assets {
		if a.Name != wantName {
			continue
		}
		dest := filepath.Join(workDir, a.Name)
		if _, err := d.downloader.Download(ctx, a.BrowserDownloadURL, dest); err != nil {
			return ""
		}
		return dest
	}
	return ""
}

// Remove deletes the installed version's directory and its symlink.
func (d *githubReleaseDriver) Remove(_ context.Context, item operation.PlanItem) error {
	p, err := parseGithubReleaseParams(item.Params)
	if err != nil {
		return err
	}

	target := place.PlaceTarget{Name: p.repo, Version: p.version, BinaryName: p.binaryName}
	if err := d.placer.Cleanup(d.paths.InstallDir("ghreleases", p.repo, p.version)); err != nil {
		return err
	}
	linkPath := d.paths.InstallDir("bin")
	return d.placer.Cleanup(filepath.Join(linkPath, target.BinaryName))
}
