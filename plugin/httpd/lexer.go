package httpd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrUnknownDirective = errors.New("unknown format directive")
	ErrBadFormat        = errors.New("malformed format")
)

type lexType int

const (
	tEof lexType = iota + 1
	tErr
	tLiteral
	tDirective
)

type token struct {
	Pos  int
	Text string
	Type lexType
	// Only set for tDirective.
	Param     string
	Modifiers string
	Directive rune
}

type lexer struct {
	*lexBuf
	tokens chan token
	err    error

	literal    strings.Builder
	literalPos int
}

func lexString(text string) *lexer {
	// The whole format fits in the buffer, so consume never loses text.
	size := utf8.RuneCountInString(text) + 1
	return &lexer{tokens: make(chan token), lexBuf: newLexBufSize(strings.NewReader(text), size)}
}

func (l *lexer) handleLexErr(err error) {
	l.err = err
	if err == io.EOF {
		l.tokens <- token{Pos: l.pos, Type: tEof}
		return
	}
	l.tokens <- token{Pos: l.pos, Text: err.Error(), Type: tErr}
}

func (l *lexer) writeLiteral(r rune) {
	if l.literal.Len() == 0 {
		l.literalPos = l.pos - 1
	}
	l.literal.WriteRune(r)
}

func (l *lexer) flushLiteral() {
	if l.literal.Len() == 0 {
		return
	}
	l.tokens <- token{Pos: l.literalPos, Text: l.literal.String(), Type: tLiteral}
	l.literal.Reset()
}

func (l *lexer) lex() {
	defer close(l.tokens)
	for {
		c, err := l.read()
		if err != nil {
			l.flushLiteral()
			l.handleLexErr(err)
			return
		}
		switch c {
		case '%':
			next, err := l.peek()
			if err == nil && next == '%' {
				_, _ = l.read()
				l.writeLiteral('%')
				break
			}
			l.flushLiteral()
			tok, err := l.lexDirective()
			if err != nil {
				l.handleLexErr(err)
				return
			}
			l.tokens <- tok
		case '\\':
			next, err := l.read()
			if err != nil {
				l.writeLiteral('\\')
				break
			}
			switch next {
			case 'n':
				l.writeLiteral('\n')
			case 't':
				l.writeLiteral('\t')
			case '"', '\\':
				l.writeLiteral(next)
			default:
				l.writeLiteral('\\')
				l.writeLiteral(next)
			}
		default:
			l.writeLiteral(c)
		}
		l.discard()
	}
}

// lexDirective reads everything after a '%' up to and including the directive letter.
// Apache status conditions like "%400,501{User-agent}i" are accepted and ignored.
func (l *lexer) lexDirective() (token, error) {
	start := l.pos - 1
	tok := token{Pos: start, Type: tDirective}
	for {
		c, err := l.read()
		if err != nil {
			return tok, fmt.Errorf("%w: directive at position %d is incomplete", ErrBadFormat, start)
		}
		switch {
		case c == '{':
			var param strings.Builder
			for {
				c, err := l.read()
				if err != nil {
					return tok, fmt.Errorf("%w: unterminated '{' at position %d", ErrBadFormat, start)
				}
				if c == '}' {
					break
				}
				param.WriteRune(c)
			}
			tok.Param = param.String()
		case c == '<' || c == '>':
			tok.Modifiers += string(c)
		case c == '!' || c == ',' || unicode.IsDigit(c):
		case unicode.IsLetter(c):
			tok.Directive = c
			tok.Text = l.consume()
			return tok, nil
		default:
			return tok, fmt.Errorf("%w: '%c' at position %d", ErrUnknownDirective, c, l.pos-1)
		}
	}
}
