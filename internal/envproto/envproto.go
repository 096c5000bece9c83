// Package envproto parses the $OMNI_ENV directive file a custom
// operation's "meet" script writes to report environment
// contributions, translating each line into an operation.EnvDelta.
package envproto

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/operation"
)

// ParseFile reads the $OMNI_ENV directive file written by op's "meet"
// script and returns the environment deltas it declares, in file
// order. A malformed line aborts with a BadEnvDirective error naming
// op and the offending line number.
func ParseFile(op string, r io.Reader) ([]operation.EnvDelta, error) {
	var deltas []operation.EnvDelta

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if name, heredocTag, ok := parseHeredocOpen(line); ok {
			value, consumed, err := readHeredoc(scanner, heredocTag)
			lineNo += consumed
			if err != nil {
				return nil, errors.NewEnvDirectiveError(op, lineNo, line, err.Error())
			}
			deltas = append(deltas, operation.EnvDelta{Op: operation.EnvOpSet, Name: name, Value: value})
			continue
		}

		delta, err := parseLine(line)
		if err != nil {
			return nil, errors.NewEnvDirectiveError(op, lineNo, line, err.Error())
		}
		deltas = append(deltas, delta)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.NewEnvDirectiveError(op, lineNo, "", fmt.Sprintf("failed to read directive file: %v", err))
	}

	return deltas, nil
}

// directiveOps lists the operators recognized between a variable name
// and its value, in longest-match-first order so "<<=" is tried before
// "<=".
var directiveOps = []struct {
	token string
	op    operation.EnvOp
}{
	{"<<=", operation.EnvOpPrepend},
	{">>=", operation.EnvOpAppend},
	{"-=", operation.EnvOpRemove},
	{"<=", operation.EnvOpPrefix},
	{">=", operation.EnvOpSuffix},
}

func parseLine(line string) (operation.EnvDelta, error) {
	if rest, ok := cutPrefix(line, "unset "); ok {
		name := strings.TrimSpace(rest)
		if name == "" {
			return operation.EnvDelta{}, fmt.Errorf("unset directive missing a variable name")
		}
		return operation.EnvDelta{Op: operation.EnvOpUnset, Name: name}, nil
	}

	for _, d := range directiveOps {
		if idx := strings.Index(line, d.token); idx > 0 {
			name := line[:idx]
			value := line[idx+len(d.token):]
			if !isValidName(name) {
				continue
			}
			return operation.EnvDelta{Op: d.op, Name: name, Value: value}, nil
		}
	}

	if idx := strings.Index(line, "="); idx > 0 {
		name := line[:idx]
		value := line[idx+1:]
		if isValidName(name) {
			return operation.EnvDelta{Op: operation.EnvOpSet, Name: name, Value: value}, nil
		}
	}

	return operation.EnvDelta{}, fmt.Errorf("unrecognized directive")
}

// parseHeredocOpen recognizes "NAME<<EOF", "NAME<<-EOF", "NAME<<~EOF".
func parseHeredocOpen(line string) (name, tag string, ok bool) {
	idx := strings.Index(line, "<<")
	if idx <= 0 {
		return "", "", false
	}
	name = line[:idx]
	if !isValidName(name) {
		return "", "", false
	}
	tag = line[idx+2:]
	if strings.HasPrefix(tag, "=") {
		// "NAME<<=value" is the Prepend directive, not a heredoc.
		return "", "", false
	}
	tag = strings.TrimPrefix(tag, "-")
	tag = strings.TrimPrefix(tag, "~")
	if tag == "" {
		return "", "", false
	}
	return name, tag, true
}

// readHeredoc consumes lines until one equal to tag (after trimming
// leading whitespace, matching the "<<-"/"<<~" indent-stripping
// variants), returning the joined body and the number of lines
// consumed including the terminator.
func readHeredoc(scanner *bufio.Scanner, tag string) (string, int, error) {
	var body []string
	consumed := 0
	for scanner.Scan() {
		consumed++
		line := scanner.Text()
		if strings.TrimSpace(line) == tag {
			return strings.Join(body, "\n"), consumed, nil
		}
		body = append(body, line)
	}
	return "", consumed, fmt.Errorf("unterminated heredoc, expected closing %q", tag)
}

func isValidName(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		isDigit := c >= '0' && c <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if !isLetter && !isDigit {
			return false
		}
	}
	return true
}

func cutPrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return "", false
}
