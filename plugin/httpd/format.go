package httpd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
)

const (
	// RootType is the type of a complete access log line.
	RootType = "HTTPLOGLINE"

	nonSpace     = `\S*`
	digitsOrDash = `[0-9]+|-`
	lazy         = `.*?`
	// Apache escapes quotes inside values it writes between quotes.
	quoted     = `(?:[^"\\]|\\.)*`
	timeRegex  = `\[[^\]]*\]|[^\]]*`
	statusCode = `[0-9]{3}|-`
)

// Named formats, as defined by the default Apache httpd configuration.
var namedFormats = map[string]string{
	"common":     `%h %l %u %t "%r" %>s %b`,
	"combined":   `%h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-Agent}i"`,
	"combinedio": `%h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-Agent}i" %I %O`,
}

// Token is either literal separator text or a reference to a field of the line.
type Token struct {
	// Literal is set for separator text.
	Literal string
	// Directive is the format text this field was compiled from, like "%>s".
	Directive string
	Type      string
	Name      string
	Regex     string
	Casts     dissect.Casts
	// A "-" value means the field is absent, unless DashValue is set, in which case that value is used instead.
	DashValue string
}

func (t Token) IsField() bool {
	return t.Directive != ""
}

func (t Token) Path() string {
	return dissect.MakeID(t.Type, t.Name)
}

type fieldDef struct {
	typ       string
	name      string
	regex     string
	casts     dissect.Casts
	dashValue string
}

var directives = map[rune]fieldDef{
	'a': {typ: "IP", name: "connection.client.ip", regex: nonSpace},
	'A': {typ: "IP", name: "connection.server.ip", regex: nonSpace},
	'b': {typ: "BYTESCLF", name: "response.body.bytes", regex: digitsOrDash, casts: dissect.StringOrLong, dashValue: "0"},
	'B': {typ: "BYTES", name: "response.body.bytes", regex: `[0-9]+`, casts: dissect.StringOrLong},
	'D': {typ: "MICROSECONDS", name: "response.server.processing.time", regex: digitsOrDash, casts: dissect.StringOrLong},
	'f': {typ: "FILENAME", name: "server.filename", regex: nonSpace},
	'h': {typ: "STRING", name: "connection.client.host", regex: nonSpace},
	'H': {typ: "PROTOCOL", name: "request.protocol", regex: nonSpace},
	'I': {typ: "BYTES", name: "request.bytes", regex: digitsOrDash, casts: dissect.StringOrLong},
	'l': {typ: "STRING", name: "connection.client.logname", regex: lazy},
	'm': {typ: "HTTP.METHOD", name: "request.method", regex: nonSpace},
	'O': {typ: "BYTES", name: "response.bytes", regex: digitsOrDash, casts: dissect.StringOrLong},
	'p': {typ: "PORT", name: "connection.server.port", regex: digitsOrDash, casts: dissect.StringOrLong},
	'q': {typ: "HTTP.QUERYSTRING", name: "request.querystring", regex: nonSpace},
	'r': {typ: "HTTP.FIRSTLINE", name: "request.firstline", regex: quoted},
	's': {typ: "STRING", name: "request.status.original", regex: statusCode},
	't': {typ: "TIME.STAMP", name: "request.receive.time", regex: timeRegex},
	'T': {typ: "SECONDS", name: "response.server.processing.time", regex: digitsOrDash, casts: dissect.StringOrLong},
	'u': {typ: "STRING", name: "connection.client.user", regex: lazy},
	'U': {typ: "HTTP.PATH", name: "request.urlpath", regex: nonSpace},
	'v': {typ: "STRING", name: "connection.server.name.canonical", regex: nonSpace},
	'V': {typ: "STRING", name: "connection.server.name", regex: nonSpace},
}

// Request headers with a more specific type than HTTP.HEADER, so they can be dissected further.
var requestHeaders = map[string]fieldDef{
	"referer":    {typ: "HTTP.URI", name: "request.referer"},
	"user-agent": {typ: "HTTP.USERAGENT", name: "request.user-agent"},
	"cookie":     {typ: "HTTP.COOKIES", name: "request.cookies"},
}

func lookupDirective(tok token) (fieldDef, error) {
	if tok.Param == "" {
		def, ok := directives[tok.Directive]
		if !ok {
			return def, fmt.Errorf("%w: '%s' at position %d", ErrUnknownDirective, tok.Text, tok.Pos)
		}
		if tok.Directive == 's' && strings.HasSuffix(tok.Modifiers, ">") {
			def.name = "request.status.last"
		}
		return def, nil
	}

	param := strings.ToLower(strings.TrimSpace(tok.Param))
	var def fieldDef
	switch tok.Directive {
	case 'i':
		if known, ok := requestHeaders[param]; ok {
			def = known
		} else {
			def = fieldDef{typ: "HTTP.HEADER", name: "request.header." + param}
		}
	case 'o':
		def = fieldDef{typ: "HTTP.HEADER", name: "response.header." + param}
	case 'C':
		def = fieldDef{typ: "HTTP.COOKIE", name: "request.cookies." + param}
	default:
		return def, fmt.Errorf("%w: '%s' at position %d", ErrUnknownDirective, tok.Text, tok.Pos)
	}
	if _, err := dissect.ParsePath(dissect.MakeID(def.typ, def.name)); err != nil || strings.Contains(param, "*") {
		return def, fmt.Errorf("%w: '%s' can't be used as a field name", ErrBadFormat, tok.Param)
	}
	def.regex = quoted
	return def, nil
}

// CompileFormat compiles an Apache httpd LogFormat string, or one of the names "common", "combined", or "combinedio", into Tokens.
func CompileFormat(format string) ([]Token, error) {
	if named, ok := namedFormats[strings.ToLower(strings.TrimSpace(format))]; ok {
		format = named
	}
	if strings.TrimSpace(format) == "" {
		return nil, fmt.Errorf("%w: empty format", ErrBadFormat)
	}
	l := lexString(format)
	go l.lex()

	var (
		tokens []Token
		err    error
	)
	for tok := range l.tokens {
		if err != nil {
			continue
		}
		switch tok.Type {
		case tErr:
			err = l.err
		case tLiteral:
			tokens = append(tokens, Token{Literal: tok.Text})
		case tDirective:
			def, lerr := lookupDirective(tok)
			if lerr != nil {
				err = lerr
				continue
			}
			casts := def.casts
			if casts == 0 {
				casts = dissect.StringOnly
			}
			tokens = append(tokens, Token{
				Directive: tok.Text,
				Type:      def.typ,
				Name:      def.name,
				Regex:     def.regex,
				Casts:     casts,
				DashValue: def.dashValue,
			})
		}
	}
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// compileRegex builds the anchored expression carving a line into the fields of tokens, one capture group per field.
func compileRegex(tokens []Token) (*regexp.Regexp, error) {
	var buf strings.Builder
	buf.WriteString("^")
	for _, t := range tokens {
		if !t.IsField() {
			buf.WriteString(regexp.QuoteMeta(t.Literal))
			continue
		}
		buf.WriteString("(")
		buf.WriteString(t.Regex)
		buf.WriteString(")")
	}
	buf.WriteString("$")
	return regexp.Compile(buf.String())
}
