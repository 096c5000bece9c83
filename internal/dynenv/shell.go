// Package dynenv implements the Dynamic Environment Builder: it turns
// the ordered EnvDelta list an Up run accumulated into a per-shell hook
// script, fingerprinted so a shell prompt hook can skip re-emitting
// when nothing changed since the last directory change.
//
// Grounded on tomei's internal/env package (its ShellType/Formatter
// split for bash/zsh vs fish output), generalized from a static
// "apply runtime env once" model to a per-prompt diff-and-emit model:
// the formatter gains Unset/Prepend/Append/Prefix/Suffix/Remove
// methods the teacher never needed, since the teacher only ever
// prepended install directories onto PATH.
package dynenv

import "fmt"

// ShellType selects the output syntax RenderHook produces.
type ShellType string

const (
	// ShellPosix covers bash, zsh, and plain sh: `export`/`unset`.
	ShellPosix ShellType = "posix"
	// ShellFish is fish's `set -gx`/`set -e` syntax.
	ShellFish ShellType = "fish"
)

// ParseShellType parses a --shell/hook-argument string into a
// ShellType, defaulting unrecognized-but-posix-compatible names to
// ShellPosix.
func ParseShellType(s string) (ShellType, error) {
	switch s {
	case "posix", "bash", "sh", "zsh", "":
		return ShellPosix, nil
	case "fish":
		return ShellFish, nil
	default:
		return "", fmt.Errorf("unsupported shell type: %q (supported: bash, zsh, sh, posix, fish)", s)
	}
}

// Formatter renders one EnvDelta as a line of shell source for a
// specific shell syntax.
type Formatter interface {
	ExportVar(name, value string) string
	Unset(name string) string
	Prepend(name, value string) string
	Append(name, value string) string
	Prefix(name, value string) string
	Suffix(name, value string) string
	Remove(name, value string) string
	// Ext returns the file extension conventionally used for scripts
	// in this shell's syntax (dot-prefixed, matching filepath.Ext).
	Ext() string
}

// NewFormatter returns the Formatter for st.
func NewFormatter(st ShellType) Formatter {
	switch st {
	case ShellFish:
		return fishFormatter{}
	default:
		return posixFormatter{}
	}
}

var (
	_ Formatter = (*posixFormatter)(nil)
	_ Formatter = (*fishFormatter)(nil)
)

type posixFormatter struct{}

func (posixFormatter) ExportVar(name, value string) string {
	return fmt.Sprintf("export %s=%q", name, value)
}

func (posixFormatter) Unset(name string) string {
	return fmt.Sprintf("unset %s", name)
}

func (posixFormatter) Prepend(name, value string) string {
	return fmt.Sprintf("export %s=%q", name, value+":$"+name)
}

func (posixFormatter) Append(name, value string) string {
	return fmt.Sprintf("export %s=%q", name, "$"+name+":"+value)
}

func (posixFormatter) Prefix(name, value string) string {
	return fmt.Sprintf("export %s=%q", name, value+"$"+name)
}

func (posixFormatter) Suffix(name, value string) string {
	return fmt.Sprintf("export %s=%q", name, "$"+name+value)
}

func (posixFormatter) Remove(name, value string) string {
	return fmt.Sprintf(`export %s=$(printf '%%s' ":$%s:" | sed "s|:%s:|:|g; s|^:||; s|:$||")`, name, name, value)
}

func (posixFormatter) Ext() string { return ".sh" }

type fishFormatter struct{}

func (fishFormatter) ExportVar(name, value string) string {
	return fmt.Sprintf("set -gx %s %q", name, value)
}

func (fishFormatter) Unset(name string) string {
	return fmt.Sprintf("set -e %s", name)
}

func (fishFormatter) Prepend(name, value string) string {
	if name == "PATH" {
		return fmt.Sprintf("fish_add_path -p %q", value)
	}
	return fmt.Sprintf("set -gx %s %q $%s", name, value, name)
}

func (fishFormatter) Append(name, value string) string {
	if name == "PATH" {
		return fmt.Sprintf("fish_add_path -a %q", value)
	}
	return fmt.Sprintf("set -gx %s $%s %q", name, name, value)
}

func (fishFormatter) Prefix(name, value string) string {
	return fmt.Sprintf("set -gx %s (string join '' %q $%s)", name, value, name)
}

func (fishFormatter) Suffix(name, value string) string {
	return fmt.Sprintf("set -gx %s (string join '' $%s %q)", name, name, value)
}

func (fishFormatter) Remove(name, value string) string {
	return fmt.Sprintf("set -gx %s (string match -v -- %q $%s)", name, value, name)
}

func (fishFormatter) Ext() string { return ".fish" }
