package httpd

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
)

var (
	ErrNoMatch = errors.New("line does not match the log format")
)

var _ dissect.Dissector = (*LogFormat)(nil)
var _ dissect.Preparer = (*LogFormat)(nil)

type compiledFormat struct {
	text   string
	tokens []Token
	fields []Token
	re     *regexp.Regexp
}

// LogFormat is the tokenizer dissector, consuming a whole line of RootType and producing the fields referenced by its format.
// More than one format may be given, one per line. Each line is matched against them in order, and the first match wins.
type LogFormat struct {
	formats []*compiledFormat
	outputs []dissect.Output

	prepare    sync.Once
	prepareErr error
}

// NewLogFormat compiles one or more newline separated formats.
func NewLogFormat(format string) (*LogFormat, error) {
	lf := &LogFormat{}
	outputIdx := map[string]int{}
	for _, text := range strings.Split(format, "\n") {
		text = strings.TrimRight(text, "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		tokens, err := CompileFormat(text)
		if err != nil {
			return nil, err
		}
		cf := &compiledFormat{text: text, tokens: tokens}
		for _, t := range tokens {
			if !t.IsField() {
				continue
			}
			cf.fields = append(cf.fields, t)
			if i, ok := outputIdx[t.Path()]; ok {
				lf.outputs[i].Casts |= t.Casts
				continue
			}
			outputIdx[t.Path()] = len(lf.outputs)
			lf.outputs = append(lf.outputs, dissect.Output{Type: t.Type, Name: t.Name, Casts: t.Casts})
		}
		lf.formats = append(lf.formats, cf)
	}
	if len(lf.formats) == 0 {
		return nil, fmt.Errorf("%w: no format given", ErrBadFormat)
	}
	return lf, nil
}

func (lf *LogFormat) InputType() string {
	return RootType
}

func (lf *LogFormat) Outputs() []dissect.Output {
	return lf.outputs
}

// Formats returns the compiled tokens of each format, in the order they are tried.
func (lf *LogFormat) Formats() [][]Token {
	all := make([][]Token, len(lf.formats))
	for i, cf := range lf.formats {
		all[i] = append([]Token(nil), cf.tokens...)
	}
	return all
}

// PrepareForRun compiles the expression of each format.
func (lf *LogFormat) PrepareForRun() error {
	lf.prepare.Do(func() {
		for _, cf := range lf.formats {
			re, err := compileRegex(cf.tokens)
			if err != nil {
				lf.prepareErr = fmt.Errorf("%w: format '%s': %v", dissect.ErrInvalidDissector, cf.text, err)
				return
			}
			cf.re = re
		}
	})
	return lf.prepareErr
}

func (lf *LogFormat) Dissect(field *dissect.ParsedField, emit dissect.EmitFunc) error {
	if err := lf.PrepareForRun(); err != nil {
		return err
	}
	line := strings.TrimRight(field.Value, "\r\n")
	for _, cf := range lf.formats {
		m := cf.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for i, t := range cf.fields {
			value := m[i+1]
			if value == "-" {
				if t.DashValue == "" {
					continue
				}
				value = t.DashValue
			}
			if err := emit(t.Type, t.Name, value); err != nil {
				return err
			}
		}
		return nil
	}
	if len(lf.formats) == 1 {
		return ErrNoMatch
	}
	return fmt.Errorf("%w: tried %d formats", ErrNoMatch, len(lf.formats))
}
