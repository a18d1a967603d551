// Package transform renames files with a single regular expression rule.
package transform

import (
	"errors"
	"fmt"
	"regexp"
)

var ErrIncomplete = errors.New("transform needs both a pattern and a format")

// Transformer replaces every match of its pattern in a file name with its format,
// the format may reference capture groups as $1 or ${name}.
type Transformer struct {
	pattern *regexp.Regexp
	format  string
}

// "$1_" would otherwise be read as the group named "1_", "$$" is an
// escaped dollar sign
var groupRef = regexp.MustCompile(`\$\$|\$(\d+)`)

func bracketGroupRefs(format string) string {
	return groupRef.ReplaceAllStringFunc(format, func(ref string) string {
		if ref == "$$" {
			return ref
		}
		return "${" + ref[1:] + "}"
	})
}

// New compiles a transform. Both arguments empty means no transform and
// returns nil, exactly one of them empty is an error.
func New(pattern, format string) (*Transformer, error) {
	if pattern == "" && format == "" {
		return nil, nil
	}
	if pattern == "" || format == "" {
		return nil, ErrIncomplete
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile transform pattern: %w", err)
	}
	return &Transformer{
		pattern: re,
		format:  bracketGroupRefs(format),
	}, nil
}

// Transform replaces every match of the pattern in name and returns the
// result and true, or the name unchanged and false if nothing matches.
func (t *Transformer) Transform(name string) (string, bool) {
	matches := t.pattern.FindAllStringSubmatchIndex(name, -1)
	if matches == nil {
		return name, false
	}
	var out []byte
	last := 0
	for _, match := range matches {
		out = append(out, name[last:match[0]]...)
		out = t.pattern.ExpandString(out, t.format, name, match)
		last = match[1]
	}
	out = append(out, name[last:]...)
	return string(out), true
}

func (t *Transformer) String() string {
	return fmt.Sprintf("s/%s/%s/", t.pattern, t.format)
}

// Apply transforms name if t is non-nil.
func Apply(t *Transformer, name string) string {
	if t == nil {
		return name
	}
	out, _ := t.Transform(name)
	return out
}
