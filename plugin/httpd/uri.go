package httpd

import (
	"net/url"
	"strings"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
)

const URIType = "HTTP.URI"

var _ dissect.Dissector = (*URI)(nil)

// URI splits an absolute or relative URI into its parts.
// URIs that net/url rejects, like those with broken escapes, are split on '#' and '?' instead of failing the line.
type URI struct{}

func (URI) InputType() string {
	return URIType
}

func (URI) Outputs() []dissect.Output {
	return []dissect.Output{
		{Type: "HTTP.PROTOCOL", Name: "protocol"},
		{Type: "HTTP.USERINFO", Name: "userinfo"},
		{Type: "HTTP.HOST", Name: "host"},
		{Type: "HTTP.PORT", Name: "port", Casts: dissect.StringOrLong},
		{Type: "STRING", Name: "path"},
		{Type: QueryStringType, Name: "query"},
		{Type: "HTTP.REF", Name: "ref"},
	}
}

func (URI) Dissect(field *dissect.ParsedField, emit dissect.EmitFunc) error {
	parts := splitURI(field.Value)
	for _, p := range []struct{ typ, name, value string }{
		{"HTTP.PROTOCOL", "protocol", parts.scheme},
		{"HTTP.USERINFO", "userinfo", parts.userinfo},
		{"HTTP.HOST", "host", parts.host},
		{"HTTP.PORT", "port", parts.port},
		{"STRING", "path", parts.path},
		{QueryStringType, "query", parts.query},
		{"HTTP.REF", "ref", parts.ref},
	} {
		if p.value == "" && p.name != "path" {
			continue
		}
		if err := emit(p.typ, p.name, p.value); err != nil {
			return err
		}
	}
	return nil
}

type uriParts struct {
	scheme, userinfo, host, port, path, query, ref string
}

func splitURI(raw string) uriParts {
	u, err := url.Parse(raw)
	if err != nil {
		return splitLenient(raw)
	}
	parts := uriParts{
		scheme: u.Scheme,
		host:   u.Hostname(),
		port:   u.Port(),
		path:   u.Path,
		query:  u.RawQuery,
		ref:    u.Fragment,
	}
	if u.Opaque != "" {
		parts.path = u.Opaque
	}
	if u.User != nil {
		parts.userinfo = u.User.String()
	}
	return parts
}

func splitLenient(raw string) uriParts {
	var parts uriParts
	raw, parts.ref, _ = strings.Cut(raw, "#")
	raw, parts.query, _ = strings.Cut(raw, "?")
	parts.path = raw
	return parts
}
