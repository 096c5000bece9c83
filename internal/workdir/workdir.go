// Package workdir resolves the identity of a work directory: its root,
// a stable 128-bit id, and (for git checkouts) the normalized remote
// URL that ties checkouts of the same repository together.
package workdir

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/google/uuid"

	omniconfig "github.com/omnicli/omni/internal/config"
	omnierrors "github.com/omnicli/omni/internal/errors"
)

// manifestNames are the markers that make a directory an omni package
// root even without a .git directory above it.
var manifestNames = []string{".omni.yaml", filepath.Join(".omni", "config.yaml")}

// WorkDir identifies the directory a user ran `omni up`/`omni down` from.
type WorkDir struct {
	// Root is the absolute path to the work directory's root.
	Root string

	// ID is a stable 128-bit identifier, hex-encoded.
	ID string

	// IsGit reports whether Root is a git top-level.
	IsGit bool

	// RemoteURL is the normalized "origin" remote URL, empty if IsGit
	// is false or the repository has no origin remote.
	RemoteURL string

	// Org is the path segment that looks like a GitHub-style
	// "owner"/organization, derived from RemoteURL; empty if unknown.
	Org string
}

// Find walks upward from dir looking for a git top-level or an omni
// manifest marker, returning the first one found. It never modifies
// disk state; call EnsureID separately once a caller is committed to
// using the result.
func Find(dir string) (*WorkDir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, omnierrors.NewConfigError("failed to resolve work directory", err)
	}

	for cur := abs; ; {
		if root, remote, ok := gitTopLevel(cur); ok {
			wd := &WorkDir{Root: root, IsGit: true, RemoteURL: remote}
			wd.Org = orgFromRemote(remote)
			return wd, nil
		}

		for _, marker := range manifestNames {
			if _, err := os.Stat(filepath.Join(cur, marker)); err == nil {
				return &WorkDir{Root: cur}, nil
			}
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}

	// No marker found anywhere above dir: the directory the user is
	// standing in is its own work directory root.
	return &WorkDir{Root: abs}, nil
}

func gitTopLevel(dir string) (root, remoteURL string, ok bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", "", false
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", "", false
	}

	remote, err := repo.Remote("origin")
	if err == nil {
		cfg := remote.Config()
		if len(cfg.URLs) > 0 {
			remoteURL = normalizeRemoteURL(cfg.URLs[0])
		}
	}

	return wt.Filesystem.Root(), remoteURL, true
}

// normalizeRemoteURL canonicalizes an "origin" URL so that the SSH and
// HTTPS forms of the same repository compare equal:
// git@host:owner/name(.git) and https://host/owner/name(.git) both
// become host/owner/name.
func normalizeRemoteURL(raw string) string {
	ep, err := transport.NewEndpoint(raw)
	if err != nil {
		return strings.TrimSuffix(raw, ".git")
	}
	path := strings.TrimPrefix(ep.Path, "/")
	path = strings.TrimSuffix(path, ".git")
	return ep.Host + "/" + path
}

func orgFromRemote(remoteURL string) string {
	if remoteURL == "" {
		return ""
	}
	parts := strings.Split(remoteURL, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// EnsureID returns wd's stable id, generating and persisting one under
// <root>/.omni/id on first use. Git work directories do not need a
// persisted id when a RemoteURL is known -- the remote URL alone
// identifies the repository across checkouts -- but a local id is
// still assigned so non-origin-bound git repos behave the same as
// plain directories.
func (wd *WorkDir) EnsureID() error {
	if wd.ID != "" {
		return nil
	}

	idPath := filepath.Join(wd.Root, ".omni", "id")
	if data, err := os.ReadFile(idPath); err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			wd.ID = id
			return nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return omnierrors.NewStoreIOError(idPath, err)
	}

	raw := uuid.New()
	id := hex.EncodeToString(raw[:])

	if err := os.MkdirAll(filepath.Dir(idPath), 0o755); err != nil {
		return omnierrors.NewStoreIOError(idPath, err)
	}
	if err := os.WriteFile(idPath, []byte(id+"\n"), 0o644); err != nil {
		return omnierrors.NewStoreIOError(idPath, err)
	}

	wd.ID = id
	return nil
}

// Identity returns the key the Cache Store uses to look up this work
// directory's references: the normalized remote URL when known, else
// "local:<id>".
func (wd *WorkDir) Identity() string {
	if wd.RemoteURL != "" {
		return wd.RemoteURL
	}
	return "local:" + wd.ID
}

// IsTrusted reports whether wd is trusted under user.
func (wd *WorkDir) IsTrusted(user *omniconfig.UserConfig) bool {
	if user == nil {
		return false
	}
	var orgs []string
	if wd.Org != "" {
		orgs = append(orgs, wd.Org)
	}
	return user.Trust.IsTrusted(wd.Root, orgs)
}

// Trust adds root to user's trusted work directories, returning the
// updated config. Idempotent.
func Trust(user *omniconfig.UserConfig, root string) *omniconfig.UserConfig {
	for _, d := range user.Trust.WorkDirs {
		if d == root {
			return user
		}
	}
	user.Trust.WorkDirs = append(user.Trust.WorkDirs, root)
	return user
}

// Untrust removes root from user's trusted work directories.
func Untrust(user *omniconfig.UserConfig, root string) *omniconfig.UserConfig {
	filtered := user.Trust.WorkDirs[:0]
	for _, d := range user.Trust.WorkDirs {
		if d != root {
			filtered = append(filtered, d)
		}
	}
	user.Trust.WorkDirs = filtered
	return user
}
