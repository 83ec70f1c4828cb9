package dissect

import (
	"fmt"
	"strings"
)

const (
	wildcard       = "*"
	wildcardSuffix = ".*"
)

// FieldPath identifies a typed field like "STRING:request.firstline.uri.path".
// A Wildcard path subscribes to every child of Name, and a wildcard with an empty Name ("TYPE:*") subscribes to every top level field of that type.
type FieldPath struct {
	Type     string
	Name     string
	Wildcard bool
}

// ParsePath parses a "TYPE:name", "TYPE:name.*", or "TYPE:*" string into a FieldPath.
func ParsePath(path string) (FieldPath, error) {
	path = strings.TrimSpace(path)
	typ, name, ok := strings.Cut(path, ":")
	if !ok || typ == "" {
		return FieldPath{}, fmt.Errorf("%w: missing type in '%s'", ErrInvalidPath, path)
	}
	fp := FieldPath{Type: typ}
	switch {
	case name == wildcard:
		fp.Wildcard = true
		return fp, nil
	case strings.HasSuffix(name, wildcardSuffix):
		fp.Wildcard = true
		name = strings.TrimSuffix(name, wildcardSuffix)
	}
	if name == "" {
		return FieldPath{}, fmt.Errorf("%w: missing name in '%s'", ErrInvalidPath, path)
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return FieldPath{}, fmt.Errorf("%w: empty segment in '%s'", ErrInvalidPath, path)
		}
	}
	fp.Name = name
	return fp, nil
}

// String renders the path in the same form accepted by ParsePath.
func (p FieldPath) String() string {
	if !p.Wildcard {
		return p.Type + ":" + p.Name
	}
	return wildcardID(p.Type, p.Name)
}

// ParsedField is a single value produced while dissecting one line.
type ParsedField struct {
	Type  string
	Name  string
	Value string
}

func (f *ParsedField) ID() string {
	return MakeID(f.Type, f.Name)
}

func MakeID(typ, name string) string {
	return typ + ":" + name
}

func wildcardID(typ, base string) string {
	if base == "" {
		return typ + ":" + wildcard
	}
	return typ + ":" + base + wildcardSuffix
}

// childName joins a dissection base and the relative output name of a dissector.
func childName(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

// matchName reports whether a name pattern covers name.
// A "*" segment in the middle of a pattern matches exactly one segment, a trailing "*" matches one or more.
func matchName(pattern, name string) bool {
	if pattern == name {
		return true
	}
	if !strings.Contains(pattern, wildcard) {
		return false
	}
	pSegs := strings.Split(pattern, ".")
	nSegs := strings.Split(name, ".")
	for i, ps := range pSegs {
		if i >= len(nSegs) {
			return false
		}
		if ps == wildcard {
			if i == len(pSegs)-1 {
				return true
			}
			continue
		}
		if ps != nSegs[i] {
			return false
		}
	}
	return len(pSegs) == len(nSegs)
}

// matchSegments is the runtime form of matchName, where every "*" matches exactly one segment.
// Graph nodes spell out wildcard depth as separate patterns, so a cached field only ever matches a pattern of its own depth.
func matchSegments(pattern, name string) bool {
	if pattern == name {
		return true
	}
	pSegs := strings.Split(pattern, ".")
	nSegs := strings.Split(name, ".")
	if len(pSegs) != len(nSegs) {
		return false
	}
	for i, ps := range pSegs {
		if ps != wildcard && ps != nSegs[i] {
			return false
		}
	}
	return true
}
