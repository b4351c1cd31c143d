// Package policy loads and evaluates the broker's authorization policy.
// The policy is a line-oriented text file owned by the trusted authority:
// one rule per non-empty, non-comment line, `principal[:command]`. A
// principal with no matching rule is denied (default-deny), and the first
// rule matching a principal decides the outcome regardless of later rules.
package policy

import (
	"fmt"
	"strings"
	"unicode"
)

// Entry is one authorization rule. An empty Command places no restriction
// on what the principal may run; a non-empty Command must match the
// requested command exactly.
type Entry struct {
	Principal string
	Command   string
}

// Document is an ordered sequence of policy entries.
type Document struct {
	path    string
	entries []Entry
}

// Parse parses policy source text. Any line that does not conform to the
// grammar fails the whole document with a ParseError carrying the line
// number; a half-understood policy must never be evaluated.
func Parse(path string, content []byte) (*Document, error) {
	doc := &Document{path: path}

	for number, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, err := parseEntry(line)
		if err != nil {
			return nil, &ParseError{Path: path, Line: number + 1, Reason: err.Error()}
		}
		doc.entries = append(doc.entries, entry)
	}

	return doc, nil
}

func parseEntry(line string) (Entry, error) {
	principal, command, constrained := strings.Cut(line, ":")
	principal = strings.TrimSpace(principal)
	command = strings.TrimSpace(command)

	if principal == "" {
		return Entry{}, fmt.Errorf("empty principal")
	}
	if containsSpace(principal) {
		return Entry{}, fmt.Errorf("principal %q contains whitespace", principal)
	}
	if constrained {
		if command == "" {
			return Entry{}, fmt.Errorf("empty command constraint for principal %q", principal)
		}
		if strings.Contains(command, ":") {
			return Entry{}, fmt.Errorf("command constraint %q contains %q", command, ":")
		}
		if containsSpace(command) {
			return Entry{}, fmt.Errorf("command constraint %q contains whitespace", command)
		}
	}

	return Entry{Principal: principal, Command: command}, nil
}

func containsSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

// IsAuthorized reports whether the principal may run the requested command.
// Entries are evaluated in file order and the first entry for the principal
// wins; the command constraint, when present, is an exact match, never a
// prefix or glob.
func (d *Document) IsAuthorized(principal, command string) bool {
	for _, entry := range d.entries {
		if entry.Principal != principal {
			continue
		}
		if entry.Command == "" {
			return true
		}
		return entry.Command == command
	}
	return false
}

// Len returns the number of entries in the document.
func (d *Document) Len() int {
	return len(d.entries)
}

// Path returns the source path the document was loaded from.
func (d *Document) Path() string {
	return d.path
}
