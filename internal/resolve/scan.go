package resolve

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/omnicli/omni/internal/errors"
)

// autoFiles lists, in priority order, the native version files
// ScanAutoExpression looks for in a directory.
var autoFiles = []struct {
	name string
	scan func(path string) (string, error)
}{
	{".nvmrc", scanPlainVersionFile},
	{".node-version", scanPlainVersionFile},
	{".ruby-version", scanPlainVersionFile},
	{".python-version", scanPlainVersionFile},
	{"go.mod", scanGoModVersion},
	{"rust-toolchain.toml", scanRustToolchainTOML},
	{"rust-toolchain", scanPlainVersionFile},
}

// ScanAutoExpression resolves an "auto" version expression by scanning
// dir (and, for a driver installing into a subdirectory of the work
// tree, dirSubpath beneath it) for the tool's native version file.
func ScanAutoExpression(operation, dir, dirSubpath string) (string, error) {
	root := dir
	if dirSubpath != "" {
		root = filepath.Join(dir, dirSubpath)
	}

	for _, f := range autoFiles {
		path := filepath.Join(root, f.name)
		data, err := os.Stat(path)
		if err != nil || data.IsDir() {
			continue
		}
		version, err := f.scan(path)
		if err != nil {
			continue
		}
		if version != "" {
			return version, nil
		}
	}

	return "", errors.NewResolveError(operation, "auto", os.ErrNotExist)
}

func scanPlainVersionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(data)), "v")), nil
}

// scanGoModVersion extracts the version from go.mod's "go 1.x" line.
// A tiny line scan stays more legible than pulling in a full modfile
// parser for a single directive.
func scanGoModVersion(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "go "); ok {
			return strings.TrimSpace(rest), nil
		}
	}
	return "", scanner.Err()
}

type rustToolchainFile struct {
	Toolchain struct {
		Channel string `toml:"channel"`
	} `toml:"toolchain"`
}

func scanRustToolchainTOML(path string) (string, error) {
	var f rustToolchainFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return "", err
	}
	return f.Toolchain.Channel, nil
}
