package dissect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	DefaultMaxDepth = 15
)

type parserOpts struct {
	remappings Remappings
	maxDepth   int
}

// ParserOpt represents a functional option for NewParser.
type ParserOpt func(opts *parserOpts)

// WithRemappings causes values with the given names to also be dissected as the remapped types.
func WithRemappings(remappings Remappings) ParserOpt {
	return func(opts *parserOpts) {
		for name, types := range remappings {
			for _, typ := range types {
				opts.remappings.Add(name, typ)
			}
		}
	}
}

// WithMaxDepth limits how many dissection steps away from the root the graph is explored.
func WithMaxDepth(depth int) ParserOpt {
	return func(opts *parserOpts) {
		if depth > 0 {
			opts.maxDepth = depth
		}
	}
}

// Parser resolves requested field paths against a Catalog, producing an immutable Plan.
type Parser struct {
	log      hclog.Logger
	catalog  *Catalog
	rootType string
	opts     *parserOpts
}

// NewParser creates a Parser for lines of rootType.
// The catalog must contain a dissector consuming rootType, typically the format tokenizer.
func NewParser(log hclog.Logger, catalog *Catalog, rootType string, opt ...ParserOpt) *Parser {
	opts := &parserOpts{
		remappings: Remappings{},
		maxDepth:   DefaultMaxDepth,
	}
	for _, o := range opt {
		o(opts)
	}
	return &Parser{
		log:      log.Named("parser"),
		catalog:  catalog,
		rootType: rootType,
		opts:     opts,
	}
}

func (p *Parser) RootType() string {
	return p.rootType
}

func (p *Parser) graph() (*graph, error) {
	return buildGraph(p.catalog, p.rootType, p.opts.remappings, p.opts.maxDepth)
}

// PossiblePaths lists every field path this Parser can produce, in discovery order.
func (p *Parser) PossiblePaths() ([]string, error) {
	g, err := p.graph()
	if err != nil {
		return nil, err
	}
	return g.paths(), nil
}

// AllCasts compiles a shadow Plan requesting every possible path, and returns the casts of each of them.
func (p *Parser) AllCasts() (map[string]Casts, error) {
	paths, err := p.PossiblePaths()
	if err != nil {
		return nil, err
	}
	plan, err := p.Compile(paths...)
	if err != nil {
		return nil, err
	}
	all := make(map[string]Casts, len(plan.casts))
	for path, casts := range plan.casts {
		all[path] = casts
	}
	return all, nil
}

// Compile validates the requested paths and determines which dissectors need to run to produce them.
func (p *Parser) Compile(requested ...string) (*Plan, error) {
	start := time.Now()
	log := p.log.With("root-type", p.rootType)
	if len(requested) == 0 {
		return nil, ErrNoFields
	}

	paths := make([]FieldPath, 0, len(requested))
	for _, r := range requested {
		fp, err := ParsePath(r)
		if err != nil {
			log.Error("Invalid requested path", "error", err)
			return nil, err
		}
		paths = append(paths, fp)
	}

	g, err := p.graph()
	if err != nil {
		log.Error("Failed to build dissection graph", "error", err)
		return nil, err
	}

	plan := &Plan{
		rootType:        p.rootType,
		requested:       paths,
		needed:          map[string]bool{},
		useful:          map[string]bool{},
		usefulWildcards: map[string][]string{},
		active:          map[string][]*entry{},
		activeWildcards: map[string][]wildcardPhase{},
		casts:           map[string]Casts{},
		remappings:      p.opts.remappings.clone(),
		possible:        g.paths(),
	}

	var (
		unreachable []string
		live        = map[*edge]bool{}
		stack       []*edge
	)
	for _, fp := range paths {
		producers := g.producers(fp)
		if len(producers) == 0 {
			unreachable = append(unreachable, fp.String())
			continue
		}
		id := fp.String()
		plan.needed[id] = true
		for _, e := range producers {
			plan.casts[id] |= e.casts
			if !live[e] {
				live[e] = true
				stack = append(stack, e)
			}
		}
	}
	if len(unreachable) > 0 {
		err := fmt.Errorf("%w: %s", ErrUnreachableField, strings.Join(unreachable, ", "))
		log.Error("Requested fields cannot be produced", "error", err)
		return nil, err
	}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.from == g.root {
			continue
		}
		if !e.remapping() {
			plan.addUseful(e.from)
		}
		for _, producer := range g.into[e.from.id()] {
			if !live[producer] {
				live[producer] = true
				stack = append(stack, producer)
			}
		}
	}

	if err := plan.activate(g, live); err != nil {
		log.Error("Invalid dissector configuration", "error", err)
		return nil, err
	}
	log.Debug("Compiled plan",
		"needed", len(plan.needed),
		"useful", len(plan.useful)+len(plan.usefulWildcards),
		"duration", time.Since(start).String(),
	)
	return plan, nil
}

// activate registers the dissector of every live edge under the node it consumes, and rejects live outputs claimed by more than one dissector.
func (pl *Plan) activate(g *graph, live map[*edge]bool) error {
	producedBy := map[string]*entry{}
	for _, e := range g.edges {
		if !live[e] || e.remapping() {
			continue
		}
		if other, ok := producedBy[e.to.id()]; ok && other != e.via {
			names := []string{other.name, e.via.name}
			sort.Strings(names)
			return fmt.Errorf("%w: %s is produced by both '%s' and '%s'", ErrAmbiguousOutput, e.to.id(), names[0], names[1])
		}
		producedBy[e.to.id()] = e.via
		pl.addPhase(e.from, e.via)
	}
	return nil
}
