package httpd

import (
	"testing"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Lex(t *testing.T) {
	l := lexString(`%h %% \"%{User-Agent}i\" %>s`)
	go l.lex()

	var tokens []token
	for tok := range l.tokens {
		tokens = append(tokens, tok)
	}
	require.Len(t, tokens, 6)
	assert.Equal(t, tDirective, tokens[0].Type)
	assert.Equal(t, "%h", tokens[0].Text)
	assert.Equal(t, 'h', tokens[0].Directive)

	assert.Equal(t, tLiteral, tokens[1].Type)
	assert.Equal(t, ` % "`, tokens[1].Text)

	assert.Equal(t, tDirective, tokens[2].Type)
	assert.Equal(t, "%{User-Agent}i", tokens[2].Text)
	assert.Equal(t, "User-Agent", tokens[2].Param)
	assert.Equal(t, 'i', tokens[2].Directive)

	assert.Equal(t, tLiteral, tokens[3].Type)
	assert.Equal(t, `" `, tokens[3].Text)

	assert.Equal(t, tDirective, tokens[4].Type)
	assert.Equal(t, "%>s", tokens[4].Text)
	assert.Equal(t, ">", tokens[4].Modifiers)

	assert.Equal(t, tEof, tokens[5].Type)
}

func TestCompileFormat(t *testing.T) {
	tokens, err := CompileFormat(`%h %u [%t] "%r" %>s %b`)
	require.NoError(t, err)

	var (
		paths    []string
		literals []string
	)
	for _, tok := range tokens {
		if tok.IsField() {
			paths = append(paths, tok.Path())
			continue
		}
		literals = append(literals, tok.Literal)
	}
	assert.Equal(t, []string{
		"STRING:connection.client.host",
		"STRING:connection.client.user",
		"TIME.STAMP:request.receive.time",
		"HTTP.FIRSTLINE:request.firstline",
		"STRING:request.status.last",
		"BYTESCLF:response.body.bytes",
	}, paths)
	assert.Equal(t, []string{" ", " [", `] "`, `" `, " "}, literals)
	assert.Equal(t, dissect.StringOrLong, tokens[len(tokens)-1].Casts)
	assert.Equal(t, "0", tokens[len(tokens)-1].DashValue)
}

func TestCompileFormat_Named(t *testing.T) {
	tests := map[string]struct {
		format   string
		contains []string
		fields   int
	}{
		"common": {
			format:   "common",
			contains: []string{"STRING:connection.client.logname", "BYTESCLF:response.body.bytes"},
			fields:   7,
		},
		"combined": {
			format:   " Combined ",
			contains: []string{"HTTP.URI:request.referer", "HTTP.USERAGENT:request.user-agent"},
			fields:   9,
		},
		"combinedio": {
			format:   "combinedio",
			contains: []string{"BYTES:request.bytes", "BYTES:response.bytes"},
			fields:   11,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			tokens, err := CompileFormat(tc.format)
			require.NoError(t, err)
			var paths []string
			for _, tok := range tokens {
				if tok.IsField() {
					paths = append(paths, tok.Path())
				}
			}
			assert.Len(t, paths, tc.fields)
			for _, c := range tc.contains {
				assert.Contains(t, paths, c)
			}
		})
	}
}

func TestCompileFormat_Headers(t *testing.T) {
	tokens, err := CompileFormat(`%{X-Forwarded-For}i %{Content-Type}o %{session}C %!200,304{Referer}i`)
	require.NoError(t, err)
	var paths []string
	for _, tok := range tokens {
		if tok.IsField() {
			paths = append(paths, tok.Path())
		}
	}
	assert.Equal(t, []string{
		"HTTP.HEADER:request.header.x-forwarded-for",
		"HTTP.HEADER:response.header.content-type",
		"HTTP.COOKIE:request.cookies.session",
		"HTTP.URI:request.referer",
	}, paths)
}

func TestCompileFormat_Errors(t *testing.T) {
	tests := map[string]struct {
		format string
		err    error
	}{
		"Unknown directive":  {format: "%h %Z", err: ErrUnknownDirective},
		"Unknown param":      {format: "%{foo}x", err: ErrUnknownDirective},
		"Time format":        {format: "%{%Y}t", err: ErrUnknownDirective},
		"Not a directive":    {format: "%h %#", err: ErrUnknownDirective},
		"Unterminated param": {format: "%{Referer", err: ErrBadFormat},
		"Trailing percent":   {format: "%h %", err: ErrBadFormat},
		"Bad header name":    {format: "%{a..b}i", err: ErrBadFormat},
		"Empty":              {format: "  ", err: ErrBadFormat},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			_, err := CompileFormat(tc.format)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestNewLogFormat(t *testing.T) {
	lf, err := NewLogFormat("common\n\n%h %b %B\n")
	require.NoError(t, err)
	assert.Len(t, lf.Formats(), 2)
	assert.Equal(t, RootType, lf.InputType())

	var bytes []dissect.Output
	for _, out := range lf.Outputs() {
		if out.Name == "response.body.bytes" {
			bytes = append(bytes, out)
		}
	}
	assert.Equal(t, []dissect.Output{
		{Type: "BYTESCLF", Name: "response.body.bytes", Casts: dissect.StringOrLong},
		{Type: "BYTES", Name: "response.body.bytes", Casts: dissect.StringOrLong},
	}, bytes)

	_, err = NewLogFormat("\n\n")
	assert.ErrorIs(t, err, ErrBadFormat)
}
