package httpd

import (
	"net/url"
	"strings"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
)

const QueryStringType = "HTTP.QUERYSTRING"

var _ dissect.Dissector = (*QueryString)(nil)

// QueryString produces one STRING field per query parameter, named by the lower case parameter name.
// Only the first value of a repeated parameter is kept.
type QueryString struct{}

func (QueryString) InputType() string {
	return QueryStringType
}

func (QueryString) Outputs() []dissect.Output {
	return []dissect.Output{{Type: "STRING", Name: "*"}}
}

func (QueryString) Dissect(field *dissect.ParsedField, emit dissect.EmitFunc) error {
	query := strings.TrimLeft(field.Value, "?&")
	seen := map[string]bool{}
	for _, pair := range strings.FieldsFunc(query, func(r rune) bool { return r == '&' || r == ';' }) {
		key, value, _ := strings.Cut(pair, "=")
		key = strings.ToLower(unescape(key))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if err := emit("STRING", key, unescape(value)); err != nil {
			return err
		}
	}
	return nil
}

func unescape(s string) string {
	u, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return u
}
