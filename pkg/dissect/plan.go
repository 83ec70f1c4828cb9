package dissect

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type wildcardPhase struct {
	pattern string
	phases  []*entry
}

// Plan is the compiled result of Parser.Compile.
// It's never modified after compilation, so a single Plan may be shared by any number of concurrently used Parsable instances.
type Plan struct {
	rootType  string
	requested []FieldPath
	possible  []string

	// Values look like "TYPE:foo.bar" or "TYPE:foo.*"
	needed map[string]bool

	// Fields that must be cached and dissected further, exact ids and name patterns by type.
	useful          map[string]bool
	usefulWildcards map[string][]string

	active          map[string][]*entry
	activeWildcards map[string][]wildcardPhase

	casts      map[string]Casts
	remappings Remappings

	prepare    sync.Once
	prepareErr error
}

func (pl *Plan) addUseful(n node) {
	if !strings.Contains(n.name, wildcard) {
		pl.useful[n.id()] = true
		return
	}
	for _, pattern := range pl.usefulWildcards[n.typ] {
		if pattern == n.name {
			return
		}
	}
	pl.usefulWildcards[n.typ] = append(pl.usefulWildcards[n.typ], n.name)
}

func (pl *Plan) addPhase(n node, e *entry) {
	if !strings.Contains(n.name, wildcard) {
		for _, existing := range pl.active[n.id()] {
			if existing == e {
				return
			}
		}
		pl.active[n.id()] = append(pl.active[n.id()], e)
		return
	}
	wps := pl.activeWildcards[n.typ]
	for i := range wps {
		if wps[i].pattern != n.name {
			continue
		}
		for _, existing := range wps[i].phases {
			if existing == e {
				return
			}
		}
		wps[i].phases = append(wps[i].phases, e)
		return
	}
	pl.activeWildcards[n.typ] = append(wps, wildcardPhase{pattern: n.name, phases: []*entry{e}})
}

func (pl *Plan) isUseful(typ, name string) bool {
	if pl.useful[MakeID(typ, name)] {
		return true
	}
	for _, pattern := range pl.usefulWildcards[typ] {
		if matchSegments(pattern, name) {
			return true
		}
	}
	return false
}

// phasesFor returns the dissectors to run for a cached field, in a stable order.
func (pl *Plan) phasesFor(typ, name string) []*entry {
	phases := pl.active[MakeID(typ, name)]
	wps := pl.activeWildcards[typ]
	if len(wps) == 0 {
		return phases
	}
	var merged []*entry
	merged = append(merged, phases...)
	for _, wp := range wps {
		if !matchSegments(wp.pattern, name) {
			continue
		}
	next:
		for _, e := range wp.phases {
			for _, existing := range merged {
				if existing == e {
					continue next
				}
			}
			merged = append(merged, e)
		}
	}
	return merged
}

// prepareForRun calls PrepareForRun on every active dissector that implements Preparer, once per Plan.
func (pl *Plan) prepareForRun() error {
	pl.prepare.Do(func() {
		seen := map[*entry]bool{}
		var all []*entry
		for _, phases := range pl.active {
			all = append(all, phases...)
		}
		for _, wps := range pl.activeWildcards {
			for _, wp := range wps {
				all = append(all, wp.phases...)
			}
		}
		sort.Slice(all, func(i, j int) bool {
			return all[i].order < all[j].order
		})
		for _, e := range all {
			if seen[e] {
				continue
			}
			seen[e] = true
			p, ok := e.dissector.(Preparer)
			if !ok {
				continue
			}
			if err := p.PrepareForRun(); err != nil {
				pl.prepareErr = fmt.Errorf("%w: '%s' failed to prepare: %v", ErrInvalidDissector, e.name, err)
				return
			}
		}
	})
	return pl.prepareErr
}

func (pl *Plan) RootType() string {
	return pl.rootType
}

// Requested returns the parsed paths the Plan was compiled for, in request order.
func (pl *Plan) Requested() []FieldPath {
	return append([]FieldPath(nil), pl.requested...)
}

// PossiblePaths returns every path the catalog can produce from the root, in discovery order.
func (pl *Plan) PossiblePaths() []string {
	return append([]string(nil), pl.possible...)
}

// Needed returns the sorted ids forwarded to a Sink.
func (pl *Plan) Needed() []string {
	return sortedKeys(pl.needed)
}

// Useful returns the sorted ids and patterns of the intermediate fields that are dissected further.
func (pl *Plan) Useful() []string {
	ids := sortedKeys(pl.useful)
	for typ, patterns := range pl.usefulWildcards {
		for _, pattern := range patterns {
			ids = append(ids, MakeID(typ, pattern))
		}
	}
	sort.Strings(ids)
	return ids
}

// Casts returns the casts guaranteed for a requested path.
func (pl *Plan) Casts(path string) (Casts, bool) {
	fp, err := ParsePath(path)
	if err != nil {
		return 0, false
	}
	c, ok := pl.casts[fp.String()]
	return c, ok
}

func (pl *Plan) Remappings() Remappings {
	return pl.remappings.clone()
}

// NewParsable creates an evaluator for this Plan. It must not be used by more than one goroutine at a time.
func (pl *Plan) NewParsable() *Parsable {
	return &Parsable{
		plan:  pl,
		cache: map[string]*ParsedField{},
	}
}

// Parse is a convenience for evaluating a single line with a fresh Parsable.
func (pl *Plan) Parse(line string, sink Sink) error {
	return pl.NewParsable().Parse(line, sink)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
