package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// releaseResponse represents a subset of the GitHub Releases API response.
type releaseResponse struct {
	TagName string `json:"tag_name"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Release is one GitHub release with its downloadable assets.
type Release struct {
	TagName    string  `json:"tag_name"`
	Prerelease bool    `json:"prerelease"`
	Draft      bool    `json:"draft"`
	Assets     []Asset `json:"assets"`
}

// ListReleases fetches up to 100 most recent releases for owner/repo,
// newest first, as the GitHub Releases API already orders them.
func ListReleases(ctx context.Context, client *http.Client, owner, repo string) ([]Release, error) {
	if strings.Contains(owner, "/") || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("invalid owner %q or repo %q: must not contain '/'", owner, repo)
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo must not be empty")
	}

	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases?per_page=100", owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d for %s/%s", resp.StatusCode, owner, repo)
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return releases, nil
}

// ReleaseVersionSource adapts ListReleases into a resolve.Source: key
// is "owner/repo", and the returned versions are release tag names
// with tagPrefix stripped, skipping drafts.
type ReleaseVersionSource struct {
	Client    *http.Client
	TagPrefix string
}

// Fetch implements resolve.Source.
func (s ReleaseVersionSource) Fetch(ctx context.Context, key string) ([]string, error) {
	owner, repo, ok := strings.Cut(key, "/")
	if !ok {
		return nil, fmt.Errorf("invalid release source key %q: expected \"owner/repo\"", key)
	}

	releases, err := ListReleases(ctx, s.Client, owner, repo)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(releases))
	for _, r := range releases {
		if r.Draft {
			continue
		}
		versions = append(versions, strings.TrimPrefix(r.TagName, s.TagPrefix))
	}
	return versions, nil
}

// GetLatestRelease fetches the latest release tag from a GitHub repository.
// It strips the optional tagPrefix from the tag name (e.g., "bun-v" from "bun-v1.2.3").
// Returns the version string without the prefix.
func GetLatestRelease(ctx context.Context, client *http.Client, owner, repo, tagPrefix string) (string, error) {
	if strings.Contains(owner, "/") || strings.Contains(repo, "/") {
		return "", fmt.Errorf("invalid owner %q or repo %q: must not contain '/'", owner, repo)
	}
	if owner == "" || repo == "" {
		return "", fmt.Errorf("owner and repo must not be empty")
	}

	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub API returned status %d for %s/%s", resp.StatusCode, owner, repo)
	}

	var release releaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if release.TagName == "" {
		return "", fmt.Errorf("empty tag_name in latest release for %s/%s", owner, repo)
	}

	version := strings.TrimPrefix(release.TagName, tagPrefix)
	return version, nil
}
