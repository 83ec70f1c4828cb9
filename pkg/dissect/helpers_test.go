package dissect

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

type fakeDissector struct {
	input   string
	outputs []Output
	fn      func(field *ParsedField, emit EmitFunc) error
	prepare func() error
}

func (f *fakeDissector) InputType() string {
	return f.input
}

func (f *fakeDissector) Outputs() []Output {
	return f.outputs
}

func (f *fakeDissector) Dissect(field *ParsedField, emit EmitFunc) error {
	return f.fn(field, emit)
}

type preparingDissector struct {
	*fakeDissector
	calls int
}

func (p *preparingDissector) PrepareForRun() error {
	p.calls++
	return p.fakeDissector.prepare()
}

var errMalformed = errors.New("malformed")

// splitter splits "a b c" into STRING:a, NUMBER:b, and KV:c.
func splitter() *fakeDissector {
	return &fakeDissector{
		input: "LINE",
		outputs: []Output{
			{Type: "STRING", Name: "a"},
			{Type: "NUMBER", Name: "b", Casts: StringOrLong},
			{Type: "KV", Name: "c"},
		},
		fn: func(field *ParsedField, emit EmitFunc) error {
			parts := strings.Fields(field.Value)
			if len(parts) != 3 {
				return fmt.Errorf("%w: expected 3 parts, got %d", errMalformed, len(parts))
			}
			if err := emit("STRING", "a", parts[0]); err != nil {
				return err
			}
			if err := emit("NUMBER", "b", parts[1]); err != nil {
				return err
			}
			return emit("KV", "c", parts[2])
		},
	}
}

// keyValues splits "x=1&y=2" into STRING:x and STRING:y.
func keyValues() *fakeDissector {
	return &fakeDissector{
		input:   "KV",
		outputs: []Output{{Type: "STRING", Name: "*"}},
		fn: func(field *ParsedField, emit EmitFunc) error {
			for _, pair := range strings.Split(field.Value, "&") {
				k, v, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("%w: pair '%s'", errMalformed, pair)
				}
				if err := emit("STRING", k, v); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// digits produces the first digit of a NUMBER as a LONG.
func digits() *fakeDissector {
	return &fakeDissector{
		input:   "NUMBER",
		outputs: []Output{{Type: "DIGIT", Name: "first", Casts: StringOrLongOrDouble}},
		fn: func(field *ParsedField, emit EmitFunc) error {
			if field.Value == "" {
				return nil
			}
			return emit("DIGIT", "first", field.Value[:1])
		},
	}
}

func testCatalog() *Catalog {
	c := NewCatalog()
	c.Register("split", splitter())
	c.Document("split", "split: splits a LINE on whitespace")
	c.Register("kv", keyValues())
	c.Register("digits", digits())
	return c
}

func testParser(opts ...ParserOpt) *Parser {
	return NewParser(hclog.NewNullLogger(), testCatalog(), "LINE", opts...)
}

type recordingSink struct {
	mux     sync.Mutex
	calls   []string
	strings map[string]string
	longs   map[string]int64
	doubles map[string]float64
	multi   map[string]map[string]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		strings: map[string]string{},
		longs:   map[string]int64{},
		doubles: map[string]float64{},
		multi:   map[string]map[string]string{},
	}
}

func (s *recordingSink) SetString(path, value string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.calls = append(s.calls, "string "+path+"="+value)
	s.strings[path] = value
}

func (s *recordingSink) SetLong(path string, value int64) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("long %s=%d", path, value))
	s.longs[path] = value
}

func (s *recordingSink) SetDouble(path string, value float64) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("double %s=%g", path, value))
	s.doubles[path] = value
}

func (s *recordingSink) SetMultiValueString(wildcardPath, name, value string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.calls = append(s.calls, "multi "+wildcardPath+" "+name+"="+value)
	m, ok := s.multi[wildcardPath]
	if !ok {
		m = map[string]string{}
		s.multi[wildcardPath] = m
	}
	m[name] = value
}
