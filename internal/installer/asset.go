package installer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/omnicli/omni/internal/config"
	"github.com/omnicli/omni/internal/github"
)

// osAliases maps each config.OS to the substrings release assets
// commonly use to name it.
var osAliases = map[config.OS][]string{
	config.OSLinux:  {"linux"},
	config.OSDarwin: {"darwin", "macos", "osx", "apple-darwin"},
}

// archAliases maps each config.Arch to the substrings release assets
// commonly use to name it.
var archAliases = map[config.Arch][]string{
	config.ArchAMD64: {"amd64", "x86_64", "x64"},
	config.ArchARM64: {"arm64", "aarch64"},
}

// excludedSuffixes are asset kinds that are never installable
// binaries, regardless of OS/arch match (checksum files are handled
// separately, via an explicit checksum URL/value or a sibling-file
// lookup, never by falling through to asset selection).
var excludedSuffixes = []string{
	".sig", ".sigstore", ".sigstore.json", ".asc", ".pem", ".cert", ".crt",
	".sha256", ".sha512", ".sbom", ".spdx.json", ".cdx.json",
}

// selectAsset picks the release asset matching env's OS/arch from
// candidates, honoring an optional explicit pattern override and a
// set of name substrings to skip (e.g. "musl" when only the glibc
// build is wanted). Returns an error naming what was tried when no
// asset matches, so the caller can report a useful failure.
func selectAsset(candidates []github.Asset, env *config.Env, pattern string, skip []string) (*github.Asset, error) {
	if pattern != "" {
		for i := range candidates {
			if ok, _ := filepath.Match(pattern, candidates[i].Name); ok {
				return &candidates[i], nil
			}
		}
		return nil, errNoAssetMatch(pattern, candidates)
	}

	osNames := osAliases[env.OS]
	archNames := archAliases[env.Arch]

	for i := range candidates {
		name := strings.ToLower(candidates[i].Name)

		if hasAnySuffix(name, excludedSuffixes) {
			continue
		}
		if containsAny(name, skip) {
			continue
		}
		if !containsAny(name, osNames) {
			continue
		}
		if !containsAny(name, archNames) {
			continue
		}
		return &candidates[i], nil
	}

	return nil, errNoAssetMatch(string(env.OS)+"/"+string(env.Arch), candidates)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func errNoAssetMatch(want string, candidates []github.Asset) error {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return fmt.Errorf("no release asset matched %q among %v", want, names)
}
