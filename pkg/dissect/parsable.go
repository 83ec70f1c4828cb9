package dissect

import (
	"fmt"
)

// Parsable evaluates a Plan for one line at a time.
// The cache and worklist are owned by this Parsable, so concurrent evaluation needs one Parsable per goroutine.
type Parsable struct {
	plan *Plan

	// Every field that may be dissected further, by id.
	cache map[string]*ParsedField
	// Fields waiting to be dissected, in the order they were produced.
	work []*ParsedField
	// Values for the sink, only delivered when the whole line succeeds.
	pending []delivery

	rootName string
}

// Reset clears all state from the previous line.
func (p *Parsable) Reset() {
	for id := range p.cache {
		delete(p.cache, id)
	}
	p.work = p.work[:0]
	p.pending = p.pending[:0]
	p.rootName = ""
}

// SeedRoot stores the value of a root token, and records name as the root name.
// Fields produced directly from the root have their own name as the complete name.
func (p *Parsable) SeedRoot(typ, name, value string) {
	p.rootName = name
	field := &ParsedField{Type: typ, Name: name, Value: value}
	p.cache[field.ID()] = field
	p.work = append(p.work, field)
}

// Field looks up a cached field of the current line.
func (p *Parsable) Field(typ, name string) (*ParsedField, bool) {
	f, ok := p.cache[MakeID(typ, name)]
	return f, ok
}

// Dissect stores a newly dissected value. The name is relative to base, which is the name of the field that was dissected.
func (p *Parsable) Dissect(base, typ, name, value string) error {
	return p.dissect(base, typ, name, value, false)
}

func (p *Parsable) dissect(base, typ, name, value string, remapped bool) error {
	var completeName, wildcardName string
	if base == p.rootName {
		completeName = name
		wildcardName = wildcardID(typ, "")
	} else {
		completeName = base + "." + name
		wildcardName = wildcardID(typ, base)
	}
	neededName := MakeID(typ, completeName)

	if !remapped {
		for _, remapType := range p.plan.remappings.Types(completeName) {
			if remapType == typ {
				return fmt.Errorf("%w: %w: base=%s type=%s name=%s", ErrDissectionFailure, ErrSelfRemapping, base, typ, name)
			}
			if err := p.dissect(base, remapType, name, value, true); err != nil {
				return err
			}
		}
	}

	if p.plan.isUseful(typ, completeName) {
		if _, exists := p.cache[neededName]; exists {
			return fmt.Errorf("%w: %s was produced more than once", ErrDissectionFailure, neededName)
		}
		field := &ParsedField{Type: typ, Name: completeName, Value: value}
		p.cache[neededName] = field
		p.work = append(p.work, field)
	}

	if p.plan.needed[neededName] {
		p.pending = append(p.pending, delivery{
			path:  neededName,
			value: value,
			casts: p.plan.casts[neededName],
		})
	}

	if p.plan.needed[wildcardName] {
		p.pending = append(p.pending, delivery{
			path:     wildcardName,
			name:     name,
			value:    value,
			wildcard: true,
		})
	}
	return nil
}

// Run dissects everything in the worklist until it's empty, then delivers the requested values to sink.
// Nothing is delivered if the line fails.
func (p *Parsable) Run(sink Sink) error {
	if err := p.plan.prepareForRun(); err != nil {
		return err
	}
	for len(p.work) > 0 {
		field := p.work[0]
		p.work = p.work[1:]
		phases := p.plan.phasesFor(field.Type, field.Name)
		if len(phases) == 0 {
			return fmt.Errorf("%w: no dissector for %s", ErrMissingDissectors, field.ID())
		}
		emit := func(typ, name, value string) error {
			return p.Dissect(field.Name, typ, name, value)
		}
		for _, e := range phases {
			if err := e.dissector.Dissect(field, emit); err != nil {
				if IsFatal(err) {
					return err
				}
				return fmt.Errorf("%w: '%s' on %s: %w", ErrDissectionFailure, e.name, field.ID(), err)
			}
		}
	}
	for _, d := range p.pending {
		d.deliver(sink)
	}
	p.pending = p.pending[:0]
	return nil
}

// Parse evaluates one line: it resets the Parsable, seeds the line as the root field, and runs to completion.
func (p *Parsable) Parse(line string, sink Sink) error {
	p.Reset()
	p.SeedRoot(p.plan.rootType, "", line)
	return p.Run(sink)
}
