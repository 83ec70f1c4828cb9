package dissect

import (
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_PossiblePaths(t *testing.T) {
	paths, err := testParser().PossiblePaths()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"STRING:a",
		"NUMBER:b",
		"KV:c",
		"DIGIT:b.first",
		"STRING:c.*",
	}, paths)
}

func TestParser_Compile(t *testing.T) {
	p := testParser()
	plan, err := p.Compile("STRING:a", "DIGIT:b.first", "STRING:c.*")
	require.NoError(t, err)

	possible := plan.PossiblePaths()
	for _, req := range plan.Requested() {
		assert.Contains(t, possible, req.String())
	}
	assert.Equal(t, []string{"DIGIT:b.first", "STRING:a", "STRING:c.*"}, plan.Needed())
	assert.Equal(t, []string{"KV:c", "NUMBER:b"}, plan.Useful())
	assert.Equal(t, "LINE", plan.RootType())
}

func TestParser_Compile_Unreachable(t *testing.T) {
	_, err := testParser().Compile("STRING:a", "STRING:nope", "IP:b")
	assert.ErrorIs(t, err, ErrUnreachableField)
	assert.Contains(t, err.Error(), "STRING:nope")
	assert.Contains(t, err.Error(), "IP:b")
}

func TestParser_Compile_Errors(t *testing.T) {
	tests := map[string]struct {
		parser    func() *Parser
		requested []string
		err       error
	}{
		"No fields": {
			parser: func() *Parser { return testParser() },
			err:    ErrNoFields,
		},
		"Invalid path": {
			parser:    func() *Parser { return testParser() },
			requested: []string{"nope"},
			err:       ErrInvalidPath,
		},
		"No root consumer": {
			parser: func() *Parser {
				return NewParser(hclog.NewNullLogger(), testCatalog(), "OTHER")
			},
			requested: []string{"STRING:a"},
			err:       ErrMissingDissectors,
		},
		"Self remapping": {
			parser: func() *Parser {
				return testParser(WithRemappings(Remappings{}.Add("a", "STRING")))
			},
			requested: []string{"STRING:a"},
			err:       ErrSelfRemapping,
		},
		"Ambiguous output": {
			parser: func() *Parser {
				c := testCatalog()
				c.Register("other-split", &fakeDissector{
					input:   "LINE",
					outputs: []Output{{Type: "STRING", Name: "a"}},
				})
				return NewParser(hclog.NewNullLogger(), c, "LINE")
			},
			requested: []string{"STRING:a"},
			err:       ErrAmbiguousOutput,
		},
		"Invalid dissector output": {
			parser: func() *Parser {
				c := testCatalog()
				c.Register("broken", &fakeDissector{
					input:   "KV",
					outputs: []Output{{Type: "STRING"}},
				})
				return NewParser(hclog.NewNullLogger(), c, "LINE")
			},
			requested: []string{"STRING:a"},
			err:       ErrInvalidDissector,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			_, err := tc.parser().Compile(tc.requested...)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestParser_Compile_Casts(t *testing.T) {
	plan, err := testParser().Compile("STRING:a", "NUMBER:b", "DIGIT:b.first", "STRING:c.x")
	require.NoError(t, err)

	tests := map[string]Casts{
		"STRING:a":      StringOnly,
		"NUMBER:b":      StringOrLong,
		"DIGIT:b.first": StringOrLongOrDouble,
		"STRING:c.x":    StringOnly,
	}
	for path, expected := range tests {
		casts, ok := plan.Casts(path)
		assert.True(t, ok, path)
		assert.Equal(t, expected, casts, path)
	}
	_, ok := plan.Casts("KV:c")
	assert.False(t, ok, "Only requested paths have casts")
}

func TestParser_AllCasts(t *testing.T) {
	all, err := testParser().AllCasts()
	require.NoError(t, err)
	assert.Equal(t, map[string]Casts{
		"STRING:a":      StringOnly,
		"NUMBER:b":      StringOrLong,
		"KV:c":          StringOnly,
		"DIGIT:b.first": StringOrLongOrDouble,
		"STRING:c.*":    StringOnly,
	}, all)
}

func TestParser_Cycle(t *testing.T) {
	c := NewCatalog()
	c.Register("seed", &fakeDissector{
		input:   "LINE",
		outputs: []Output{{Type: "A", Name: "x"}},
		fn: func(field *ParsedField, emit EmitFunc) error {
			return emit("A", "x", field.Value)
		},
	})
	c.Register("ab", &fakeDissector{
		input:   "A",
		outputs: []Output{{Type: "B", Name: "y"}},
		fn: func(field *ParsedField, emit EmitFunc) error {
			return emit("B", "y", field.Value)
		},
	})
	c.Register("ba", &fakeDissector{
		input:   "B",
		outputs: []Output{{Type: "A", Name: "z"}},
		fn: func(field *ParsedField, emit EmitFunc) error {
			return emit("A", "z", field.Value)
		},
	})
	p := NewParser(hclog.NewNullLogger(), c, "LINE", WithMaxDepth(4))
	paths, err := p.PossiblePaths()
	require.NoError(t, err)
	assert.Equal(t, []string{"A:x", "B:x.y", "A:x.y.z", "B:x.y.z.y"}, paths)

	plan, err := p.Compile("A:x.y.z")
	require.NoError(t, err)
	sink := newRecordingSink()
	require.NoError(t, plan.Parse("loop", sink))
	assert.Equal(t, "loop", sink.strings["A:x.y.z"])

	unbounded, err := NewParser(hclog.NewNullLogger(), c, "LINE").PossiblePaths()
	require.NoError(t, err)
	assert.Len(t, unbounded, DefaultMaxDepth)
}

func TestParser_WildcardCycle(t *testing.T) {
	c := NewCatalog()
	c.Register("seed", &fakeDissector{
		input:   "LINE",
		outputs: []Output{{Type: "T", Name: "f"}},
		fn: func(field *ParsedField, emit EmitFunc) error {
			return emit("T", "f", field.Value)
		},
	})
	var calls int
	c.Register("self", &fakeDissector{
		input:   "T",
		outputs: []Output{{Type: "T", Name: "*"}},
		fn: func(field *ParsedField, emit EmitFunc) error {
			calls++
			if calls > 100 {
				return errors.New("runaway dissection")
			}
			return emit("T", "n", field.Value)
		},
	})
	plan, err := NewParser(hclog.NewNullLogger(), c, "LINE").Compile("T:f.n.n")
	require.NoError(t, err)
	assert.Equal(t, []string{"T:f", "T:f.*"}, plan.Useful())

	sink := newRecordingSink()
	require.NoError(t, plan.Parse("x", sink))
	assert.Equal(t, []string{"string T:f.n.n=x"}, sink.calls)
	assert.Equal(t, 2, calls)
}

func TestParser_Remapping(t *testing.T) {
	p := testParser(WithRemappings(Remappings{}.Add("a", "KV")))
	paths, err := p.PossiblePaths()
	require.NoError(t, err)
	assert.Contains(t, paths, "KV:a")
	assert.Contains(t, paths, "STRING:a.*")

	plan, err := p.Compile("STRING:a.p", "STRING:a")
	require.NoError(t, err)
	assert.Equal(t, []string{"KV:a"}, plan.Useful())
	assert.Equal(t, []string{"KV"}, plan.Remappings().Types("a"))

	sink := newRecordingSink()
	require.NoError(t, plan.Parse("p=1 42 x=1", sink))
	assert.Equal(t, "1", sink.strings["STRING:a.p"])
	assert.Equal(t, "p=1", sink.strings["STRING:a"])
}

func TestCatalog_AllDocs(t *testing.T) {
	docs := testCatalog().AllDocs()
	assert.True(t, strings.HasPrefix(docs, "Dissectors:\n"))
	assert.Contains(t, docs, "  split: splits a LINE on whitespace\n")
	assert.Contains(t, docs, "  digits\n")
	assert.Less(t, strings.Index(docs, "digits"), strings.Index(docs, "kv"))

	assert.Equal(t, "Dissectors:\n  None\n", NewCatalog().AllDocs())
}

func TestCatalog_Clone(t *testing.T) {
	c := testCatalog()
	clone := c.Clone()
	clone.Register("extra", digits())
	assert.Equal(t, []string{"split", "kv", "digits"}, c.Names())
	assert.Equal(t, []string{"split", "kv", "digits", "extra"}, clone.Names())

	_, doc, ok := clone.Dissector("split")
	assert.True(t, ok)
	assert.Equal(t, "split: splits a LINE on whitespace", doc)
	_, doc, ok = clone.Dissector("extra")
	assert.True(t, ok)
	assert.Equal(t, "extra", doc)
}
