package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/omnicli/omni/internal/checksum"
	"github.com/omnicli/omni/internal/retry"
)

// ChecksumSpec describes how to verify a downloaded artifact: either a
// direct "algorithm:hash" value, or a URL to a checksums file the
// artifact's own filename (or FilePattern, if the checksums file names
// assets differently) is looked up in.
type ChecksumSpec struct {
	Value       string
	URL         string
	FilePattern string
}

// Downloader defines the interface for downloading and verifying artifacts.
type Downloader interface {
	// Download downloads a file from the given URL to destPath.
	// Returns the path to the downloaded file.
	Download(ctx context.Context, url, destPath string) (string, error)

	// Verify verifies the checksum of a downloaded file.
	// cs can be nil (skip verification), have a direct value, or a URL to fetch.
	Verify(ctx context.Context, filePath string, cs *ChecksumSpec) error
}

// httpDownloader implements Downloader using HTTP.
type httpDownloader struct {
	client *http.Client
}

// NewDownloader creates a new Downloader using client, or http.DefaultClient if nil.
func NewDownloader(client *http.Client) Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpDownloader{client: client}
}

// Download downloads a file from the given URL to destPath.
// Returns the path to the downloaded file.
func (d *httpDownloader) Download(ctx context.Context, url, destPath string) (string, error) {
	slog.Debug("downloading file", "url", url, "dest", destPath)

	resp, err := retry.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		resp, err := d.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download: %w", err)
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to download: HTTP %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, retry.Permanent(fmt.Errorf("failed to download: HTTP %d", resp.StatusCode))
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	slog.Debug("download completed", "path", destPath)
	return destPath, nil
}

// Verify verifies the checksum of a downloaded file.
// cs can be nil (skip verification), have a direct value, or a URL to fetch.
func (d *httpDownloader) Verify(ctx context.Context, filePath string, cs *ChecksumSpec) error {
	if cs == nil {
		slog.Debug("no checksum specified, skipping verification")
		return nil
	}

	slog.Debug("verifying checksum", "file", filePath)

	var expectedHash string
	var algorithm checksum.Algorithm

	switch {
	case cs.Value != "":
		alg, hash, err := checksum.Parse(cs.Value)
		if err != nil {
			return err
		}
		algorithm = alg
		expectedHash = hash
	case cs.URL != "":
		filename := filepath.Base(filePath)
		if cs.FilePattern != "" {
			filename = cs.FilePattern
		}

		alg, hash, err := d.fetchChecksumFromURL(ctx, cs.URL, filename)
		if err != nil {
			return err
		}
		algorithm = alg
		expectedHash = string(hash)
	default:
		slog.Debug("no checksum value or URL specified, skipping verification")
		return nil
	}

	if err := checksum.Verify(filePath, algorithm, expectedHash); err != nil {
		return err
	}

	slog.Debug("checksum verified", "algorithm", algorithm)
	return nil
}

// fetchChecksumFromURL fetches a checksums file from URL and extracts the hash for the given filename.
func (d *httpDownloader) fetchChecksumFromURL(ctx context.Context, url, filename string) (checksum.Algorithm, checksum.Digest, error) {
	slog.Debug("fetching checksum file", "url", url, "filename", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch checksum file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch checksum file: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read checksum file: %w", err)
	}

	return checksum.ParseFile(body, filename)
}
