package cut

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
)

var (
	ErrMissingPart = errors.New("value has too few parts")
)

var _ dissect.Dissector = (*Cutter)(nil)

type cutOpts struct {
	delimiter string
	collapse  bool
	trim      bool
	mapped    map[int]string
	required  int
}

// CutOpt represents a functional option for NewCutter.
type CutOpt func(opts *cutOpts)

// CutDelim specifies the delimiter to split on. Defaults to a single space.
func CutDelim(delim string) CutOpt {
	return func(opts *cutOpts) {
		opts.delimiter = delim
	}
}

// CutCollapse treats a run of delimiters as one, so no empty parts are produced.
func CutCollapse() CutOpt {
	return func(opts *cutOpts) {
		opts.collapse = true
	}
}

// CutTrim removes surrounding white space from each part.
func CutTrim() CutOpt {
	return func(opts *cutOpts) {
		opts.trim = true
	}
}

// CutMap will produce the part at idx under name, instead of its index.
// Map can accept negative indexes to refer to parts at the end of the value, starting with -1.
// A value without a part at idx fails the line.
func CutMap(name string, idx int) CutOpt {
	return func(opts *cutOpts) {
		if opts.mapped == nil {
			opts.mapped = map[int]string{}
		}
		opts.mapped[idx] = name
		need := idx + 1
		if idx < 0 {
			need = -idx
		}
		if need > opts.required {
			opts.required = need
		}
	}
}

// Cutter splits a value on a delimiter, much like the unix cut command.
// Each part is produced as STRING with its index as the name, unless it's mapped to a name with CutMap.
type Cutter struct {
	inputType string
	opts      *cutOpts
	outputs   []dissect.Output
}

func NewCutter(inputType string, opt ...CutOpt) *Cutter {
	opts := &cutOpts{
		delimiter: " ",
	}
	for _, o := range opt {
		o(opts)
	}
	c := &Cutter{
		inputType: inputType,
		opts:      opts,
		outputs:   []dissect.Output{{Type: "STRING", Name: "*", Casts: dissect.StringOrLongOrDouble}},
	}
	for _, idx := range mappedIndexes(opts.mapped) {
		c.outputs = append(c.outputs, dissect.Output{Type: "STRING", Name: opts.mapped[idx], Casts: dissect.StringOrLongOrDouble})
	}
	return c
}

func (c *Cutter) InputType() string {
	return c.inputType
}

func (c *Cutter) Outputs() []dissect.Output {
	return c.outputs
}

func (c *Cutter) split(value string) []string {
	parts := strings.Split(value, c.opts.delimiter)
	if !c.opts.trim && !c.opts.collapse {
		return parts
	}
	kept := parts[:0]
	for _, p := range parts {
		if c.opts.trim {
			p = strings.TrimSpace(p)
		}
		if c.opts.collapse && p == "" {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func (c *Cutter) Dissect(field *dissect.ParsedField, emit dissect.EmitFunc) error {
	if c.opts.delimiter == "" {
		return fmt.Errorf("%w: empty delimiter", dissect.ErrInvalidDissector)
	}
	parts := c.split(field.Value)
	if len(parts) < c.opts.required {
		return fmt.Errorf("%w: got %d, need %d", ErrMissingPart, len(parts), c.opts.required)
	}
	for i, p := range parts {
		name, ok := c.opts.mapped[i]
		if !ok {
			name, ok = c.opts.mapped[i-len(parts)]
		}
		if !ok {
			name = strconv.Itoa(i)
		}
		if err := emit("STRING", name, p); err != nil {
			return err
		}
	}
	return nil
}

func mappedIndexes(mapped map[int]string) []int {
	idxs := make([]int, 0, len(mapped))
	for idx := range mapped {
		idxs = append(idxs, idx)
	}
	// Non-negative first, in order, then negative from the end.
	sort.Slice(idxs, func(i, j int) bool {
		a, b := idxs[i], idxs[j]
		if (a < 0) != (b < 0) {
			return a >= 0
		}
		return a < b
	})
	return idxs
}
