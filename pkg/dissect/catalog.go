package dissect

import (
	"sort"
	"strings"
)

type entry struct {
	name      string
	dissector Dissector
	order     int
}

// Catalog is the set of dissectors available to a Parser.
type Catalog struct {
	entries map[string]*entry
	docs    map[string]string
	next    int
}

func NewCatalog() *Catalog {
	return &Catalog{
		entries: map[string]*entry{},
		docs:    map[string]string{},
	}
}

// Register makes a Dissector available under name.
// Registering the same name twice replaces the earlier Dissector.
func (c *Catalog) Register(name string, d Dissector) {
	if d == nil {
		panic("dissector is nil")
	}
	order := c.next
	if existing, ok := c.entries[name]; ok {
		order = existing.order
	} else {
		c.next++
	}
	c.entries[name] = &entry{name: name, dissector: d, order: order}
}

// Document is used to describe a registered dissector. It's recommended to list the produced fields in this documentation.
func (c *Catalog) Document(name, doc string) {
	c.docs[name] = doc
}

// Dissector retrieves a registered Dissector along with its documentation.
func (c *Catalog) Dissector(name string) (Dissector, string, bool) {
	e, ok := c.entries[name]
	if !ok {
		return nil, "", false
	}
	doc, ok := c.docs[name]
	if !ok {
		doc = name
	}
	return e.dissector, doc, true
}

// Names returns the registered names in registration order.
func (c *Catalog) Names() []string {
	sorted := c.sorted()
	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.name
	}
	return names
}

// Clone returns a Catalog with the same registrations, so job specific dissectors can be added without affecting the original.
func (c *Catalog) Clone() *Catalog {
	clone := NewCatalog()
	for name, e := range c.entries {
		clone.entries[name] = &entry{name: e.name, dissector: e.dissector, order: e.order}
	}
	for name, doc := range c.docs {
		clone.docs[name] = doc
	}
	clone.next = c.next
	return clone
}

func (c *Catalog) sorted() []*entry {
	sorted := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].order < sorted[j].order
	})
	return sorted
}

// consumers indexes the registered dissectors by input type, in registration order.
func (c *Catalog) consumers() map[string][]*entry {
	byType := map[string][]*entry{}
	for _, e := range c.sorted() {
		typ := e.dissector.InputType()
		byType[typ] = append(byType[typ], e)
	}
	return byType
}

const indent = "  "

// AllDocs returns the documentation of every registered dissector in alphabetical order.
func (c *Catalog) AllDocs() string {
	var (
		buf   strings.Builder
		names []string
	)
	buf.WriteString("Dissectors:\n")
	for name := range c.entries {
		names = append(names, name)
	}
	if len(names) == 0 {
		buf.WriteString(indent + "None\n")
		return buf.String()
	}
	sort.Strings(names)
	var _buf strings.Builder
	for _, name := range names {
		_, doc, _ := c.Dissector(name)
		if !strings.HasSuffix(doc, "\n") {
			doc += "\n"
		}
		_buf.WriteString(doc)
		_buf.WriteString("\n")
	}
	buf.WriteString(indentString(_buf.String()))
	return buf.String()
}

func indentString(s string) string {
	s = strings.TrimSuffix(strings.ReplaceAll(indent+s, "\n", "\n"+indent), indent)
	return strings.ReplaceAll(s, "\n"+indent+"\n", "\n\n")
}
