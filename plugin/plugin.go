package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
	"github.com/saylorsolutions/logdissect/pkg/iterator"
)

var (
	ErrArgs = errors.New("argument error")
)

// Plugin represents the operations expected of a plugin providing sources, sinks, and dissectors.
type Plugin interface {
	// ID should return a unique identifier for this plugin.
	ID() string
	// Register is called to allow registration of source, sink, and dissector functionality.
	Register(*Registration)
	// Stopping is called after all source and sink operations, when the runtime is shutting down.
	Stopping() error
}

// SourceFunc is a function that takes 0 or more string arguments to produce an iterator.Iterator of raw lines.
type SourceFunc = func(ctx context.Context, args ...string) (iterator.Iterator, error)

// SinkFunc is a function that consumes an iterator.Iterator of dissected records and 0 or more string arguments.
type SinkFunc = func(ctx context.Context, src iterator.Iterator, args ...string) error

// Registration is a collection of SourceFunc, SinkFunc, and dissect.Dissector to be used by other components.
type Registration struct {
	sources    map[string]map[string]SourceFunc
	sourcesDoc map[string]map[string]string
	sinks      map[string]map[string]SinkFunc
	sinksDoc   map[string]map[string]string
	catalog    *dissect.Catalog
}

func NewRegistration() *Registration {
	return &Registration{
		sources:    map[string]map[string]SourceFunc{},
		sourcesDoc: map[string]map[string]string{},
		sinks:      map[string]map[string]SinkFunc{},
		sinksDoc:   map[string]map[string]string{},
		catalog:    dissect.NewCatalog(),
	}
}

// SplitClass splits a "qualifier.Class" reference, like "file.File".
func SplitClass(ref string) (qualifier, class string, err error) {
	qualifier, class, ok := strings.Cut(strings.TrimSpace(ref), ".")
	if !ok || qualifier == "" || class == "" {
		return "", "", fmt.Errorf("%w: '%s' is not a qualified class reference", ErrArgs, ref)
	}
	return qualifier, class, nil
}

// RegisterSource is called by Plugin.Register to provide a line source.
func (r *Registration) RegisterSource(qualifier, class string, src SourceFunc) {
	if src == nil {
		panic("source is nil")
	}
	sourceMap, ok := r.sources[qualifier]
	if !ok {
		sourceMap = map[string]SourceFunc{}
		r.sources[qualifier] = sourceMap
	}
	sourceMap[class] = src
}

// DocumentSource is used to document a provided plugin source. It's recommended to provide usage information in this documentation.
func (r *Registration) DocumentSource(qualifier, class, doc string) {
	sourceMap, ok := r.sourcesDoc[qualifier]
	if !ok {
		sourceMap = map[string]string{}
		r.sourcesDoc[qualifier] = sourceMap
	}
	sourceMap[class] = doc
}

// Source retrieves a source known to this Registration.
// It returns the SourceFunc if it exists, documentation, and a bool indicating whether the qualifier and class pair matches a known source.
func (r *Registration) Source(qualifier, class string) (SourceFunc, string, bool) {
	source, ok := r.sources[qualifier][class]
	if !ok {
		return nil, "", false
	}
	return source, getDocs(r.sourcesDoc, qualifier, class), true
}

// RegisterSink is called by Plugin.Register to provide a record sink.
func (r *Registration) RegisterSink(qualifier, class string, sink SinkFunc) {
	if sink == nil {
		panic("sink is nil")
	}
	sinkMap, ok := r.sinks[qualifier]
	if !ok {
		sinkMap = map[string]SinkFunc{}
		r.sinks[qualifier] = sinkMap
	}
	sinkMap[class] = sink
}

// DocumentSink is used to document a provided plugin sink. It's recommended to provide usage information in this documentation.
func (r *Registration) DocumentSink(qualifier, class, doc string) {
	sinkMap, ok := r.sinksDoc[qualifier]
	if !ok {
		sinkMap = map[string]string{}
		r.sinksDoc[qualifier] = sinkMap
	}
	sinkMap[class] = doc
}

// Sink retrieves a sink known to this Registration.
// It returns the SinkFunc if it exists, documentation, and a bool indicating whether the qualifier and class pair matches a known sink.
func (r *Registration) Sink(qualifier, class string) (SinkFunc, string, bool) {
	sink, ok := r.sinks[qualifier][class]
	if !ok {
		return nil, "", false
	}
	return sink, getDocs(r.sinksDoc, qualifier, class), true
}

// RegisterDissector adds a dissector to the shared catalog as "qualifier.name".
func (r *Registration) RegisterDissector(qualifier, name string, d dissect.Dissector) {
	r.catalog.Register(qualifier+"."+name, d)
}

// DocumentDissector is used to document a registered dissector. It's recommended to list the input type and produced fields.
func (r *Registration) DocumentDissector(qualifier, name, doc string) {
	r.catalog.Document(qualifier+"."+name, doc)
}

// Catalog returns the dissectors registered by all plugins.
// Use dissect.Catalog.Clone before adding job specific dissectors.
func (r *Registration) Catalog() *dissect.Catalog {
	return r.catalog
}

// AllDocs will return a string containing all the documentation for all loaded plugins.
// The listing will include sources, then sinks, then dissectors, in alphabetical order.
func (r *Registration) AllDocs() string {
	var buf strings.Builder
	buf.WriteString("Sources:\n")
	populateDocs(&buf, r.sources, r.sourcesDoc)
	buf.WriteString("Sinks:\n")
	populateDocs(&buf, r.sinks, r.sinksDoc)
	buf.WriteString(r.catalog.AllDocs())
	return buf.String()
}

func getDocs(docs map[string]map[string]string, qualifier, class string) string {
	defaultDoc := fmt.Sprintf("%s.%s", qualifier, class)
	doc, ok := docs[qualifier][class]
	if !ok {
		return defaultDoc
	}
	return doc
}

const (
	indent = "  "
)

func indentString(s string) string {
	s = strings.TrimSuffix(strings.ReplaceAll(indent+s, "\n", "\n"+indent), indent)
	return strings.ReplaceAll(s, "\n"+indent+"\n", "\n\n")
}

func populateDocs[T any](buf *strings.Builder, model map[string]map[string]T, docs map[string]map[string]string) {
	var (
		_buf       strings.Builder
		qualifiers []string
		qualMap    = map[string][]string{}
	)
	for qual, classMap := range model {
		qualifiers = append(qualifiers, qual)
		var classes []string
		for class := range classMap {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		qualMap[qual] = classes
	}
	if len(qualifiers) == 0 {
		_buf.WriteString("None\n")
	} else {
		sort.Strings(qualifiers)
		for _, qual := range qualifiers {
			for _, class := range qualMap[qual] {
				doc := getDocs(docs, qual, class)
				if !strings.HasSuffix(doc, "\n") {
					doc += "\n"
				}
				_buf.WriteString(doc)
				_buf.WriteString("\n")
			}
		}
	}
	buf.WriteString(indentString(_buf.String()))
}
