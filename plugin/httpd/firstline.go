package httpd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
)

const FirstLineType = "HTTP.FIRSTLINE"

var (
	ErrBadFirstLine = errors.New("malformed request line")
)

var _ dissect.Dissector = (*FirstLine)(nil)

// FirstLine splits a request line like "GET /index.html HTTP/1.1" into method, uri, and protocol.
// The protocol is optional, as it is with HTTP/0.9 requests.
type FirstLine struct{}

func (FirstLine) InputType() string {
	return FirstLineType
}

func (FirstLine) Outputs() []dissect.Output {
	return []dissect.Output{
		{Type: "HTTP.METHOD", Name: "method"},
		{Type: URIType, Name: "uri"},
		{Type: "HTTP.PROTOCOL_VERSION", Name: "protocol"},
	}
}

func (FirstLine) Dissect(field *dissect.ParsedField, emit dissect.EmitFunc) error {
	method, rest, ok := strings.Cut(strings.TrimSpace(field.Value), " ")
	if !ok || method == "" {
		return fmt.Errorf("%w: '%s'", ErrBadFirstLine, field.Value)
	}
	rest = strings.TrimSpace(rest)
	var protocol string
	if i := strings.LastIndexByte(rest, ' '); i >= 0 && strings.HasPrefix(rest[i+1:], "HTTP/") {
		rest, protocol = strings.TrimSpace(rest[:i]), rest[i+1:]
	}
	if rest == "" {
		return fmt.Errorf("%w: no uri in '%s'", ErrBadFirstLine, field.Value)
	}
	if err := emit("HTTP.METHOD", "method", method); err != nil {
		return err
	}
	if err := emit(URIType, "uri", rest); err != nil {
		return err
	}
	if protocol == "" {
		return nil
	}
	return emit("HTTP.PROTOCOL_VERSION", "protocol", protocol)
}
