package dissect

import "sort"

// Remappings maps a complete dotted field name to the additional types its value should also be dissected as.
type Remappings map[string][]string

// Add registers typ as an alternate type for name, ignoring duplicates.
func (r Remappings) Add(name, typ string) Remappings {
	for _, t := range r[name] {
		if t == typ {
			return r
		}
	}
	r[name] = append(r[name], typ)
	return r
}

func (r Remappings) Types(name string) []string {
	if r == nil {
		return nil
	}
	return r[name]
}

// Names returns the remapped names in sorted order.
func (r Remappings) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r Remappings) clone() Remappings {
	c := Remappings{}
	for name, types := range r {
		c[name] = append([]string(nil), types...)
	}
	return c
}
