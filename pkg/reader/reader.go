// Package reader turns raw lines into dissected records.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/saylorsolutions/logdissect/pkg/dissect"
	"github.com/saylorsolutions/logdissect/pkg/entries"
	"github.com/saylorsolutions/logdissect/pkg/iterator"
	"golang.org/x/sync/errgroup"
)

const (
	// FieldsSentinel requests the list of possible paths instead of dissecting any input.
	FieldsSentinel       = "fields"
	DefaultMaxErrorLines = 10
)

var (
	ErrFieldsSentinelMixed = errors.New("the 'fields' request can't be combined with other fields")
	ErrMissingLine         = errors.New("entry has no line field")
)

type readerOpts struct {
	maxErrorLines int
	lineField     string
	keepFields    []string
}

// ReaderOpt represents a functional option for New.
type ReaderOpt func(opts *readerOpts)

// MaxErrorLines sets how many bad lines are logged in detail, before logging stops.
func MaxErrorLines(n int) ReaderOpt {
	return func(opts *readerOpts) {
		if n >= 0 {
			opts.maxErrorLines = n
		}
	}
}

// LineField specifies the input field holding the raw line. Defaults to entries.StandardMessageField.
func LineField(field string) ReaderOpt {
	return func(opts *readerOpts) {
		opts.lineField = field
	}
}

// KeepFields copies the given input fields into each record, like the @source field set by file sources.
func KeepFields(fields ...string) ReaderOpt {
	return func(opts *readerOpts) {
		opts.keepFields = append(opts.keepFields, fields...)
	}
}

// Counters is a snapshot of the line counts of a Reader.
type Counters struct {
	LinesRead int64
	GoodLines int64
	BadLines  int64
}

// Reader evaluates a compiled Plan against every line of a source.
type Reader struct {
	log       hclog.Logger
	opts      *readerOpts
	plan      *dissect.Plan
	allFields bool
	possible  []string
	allCasts  map[string]dissect.Casts

	linesRead atomic.Int64
	goodLines atomic.Int64
	badLines  atomic.Int64
}

// New compiles fields with parser.
// If fields is exactly the FieldsSentinel, the Reader runs in all-fields mode and produces one record per possible path instead.
func New(log hclog.Logger, parser *dissect.Parser, fields []string, opt ...ReaderOpt) (*Reader, error) {
	opts := &readerOpts{
		maxErrorLines: DefaultMaxErrorLines,
		lineField:     entries.StandardMessageField,
	}
	for _, o := range opt {
		o(opts)
	}
	r := &Reader{
		log:  log.Named("reader"),
		opts: opts,
	}

	requested := make([]string, 0, len(fields))
	var sentinel bool
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if strings.EqualFold(f, FieldsSentinel) {
			sentinel = true
			continue
		}
		requested = append(requested, f)
	}
	if sentinel && len(requested) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrFieldsSentinelMixed, strings.Join(requested, ", "))
	}

	if sentinel {
		possible, err := parser.PossiblePaths()
		if err != nil {
			r.log.Error("Failed to list possible fields", "error", err)
			return nil, err
		}
		allCasts, err := parser.AllCasts()
		if err != nil {
			r.log.Error("Failed to determine casts of all fields", "error", err)
			return nil, err
		}
		r.allFields, r.possible, r.allCasts = true, possible, allCasts
		return r, nil
	}

	plan, err := parser.Compile(requested...)
	if err != nil {
		return nil, err
	}
	r.plan = plan
	return r, nil
}

// AllFields reports whether this Reader is in all-fields mode.
func (r *Reader) AllFields() bool {
	return r.allFields
}

// Plan returns the compiled Plan, or nil in all-fields mode.
func (r *Reader) Plan() *dissect.Plan {
	return r.plan
}

// Casts returns the casts of a path. In all-fields mode any possible path can be queried.
func (r *Reader) Casts(path string) (dissect.Casts, bool) {
	if r.allFields {
		fp, err := dissect.ParsePath(path)
		if err != nil {
			return 0, false
		}
		c, ok := r.allCasts[fp.String()]
		return c, ok
	}
	return r.plan.Casts(path)
}

func (r *Reader) Counters() Counters {
	return Counters{
		LinesRead: r.linesRead.Load(),
		GoodLines: r.goodLines.Load(),
		BadLines:  r.badLines.Load(),
	}
}

// LogCounters writes the current counters to the log.
func (r *Reader) LogCounters() {
	c := r.Counters()
	r.log.Info("Line counts", "lines-read", c.LinesRead, "good-lines", c.GoodLines, "bad-lines", c.BadLines)
}

func (r *Reader) fieldsIterator() iterator.Iterator {
	records := make([]entries.LogEntry, len(r.possible))
	for i, p := range r.possible {
		records[i] = entries.LogEntry{FieldsSentinel: p}
	}
	return iterator.FromSlice(records)
}

// Read dissects each line of src in order, producing one record per good line.
// Bad lines are counted and skipped. A fatal error ends the iteration with that error.
// In all-fields mode src is not consumed.
func (r *Reader) Read(src iterator.Iterator) iterator.Iterator {
	if r.allFields {
		return r.fieldsIterator()
	}
	p := r.plan.NewParsable()
	return iterator.Func(func() (entries.LogEntry, int, error) {
		for {
			entry, i, err := src.Next()
			if err != nil {
				return nil, -1, err
			}
			record, err := r.parse(p, entry, i)
			if err != nil {
				iterator.Drain(src)
				return iterator.Err(err)
			}
			if record != nil {
				return record, i, nil
			}
		}
	})
}

// ReadParallel dissects lines of src with workers goroutines sharing the Plan, each with its own Parsable.
// Records are not produced in input order.
// The goroutines only exit once src is exhausted or ctx is done, so a caller that stops reading early must cancel ctx.
// Once ctx is done, Next returns its error.
func (r *Reader) ReadParallel(ctx context.Context, src iterator.Iterator, workers int) iterator.Iterator {
	if r.allFields {
		return r.fieldsIterator()
	}
	if workers < 1 {
		workers = 1
	}
	type indexed struct {
		entry entries.LogEntry
		idx   int
	}
	var (
		in       = make(chan indexed)
		out      = make(chan indexed)
		runErr   error
		discard  sync.Once
		eg, gctx = errgroup.WithContext(ctx)
	)
	eg.Go(func() error {
		defer close(in)
		return src.Iterate(func(entry entries.LogEntry, i int) error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case in <- indexed{entry, i}:
				return nil
			}
		})
	})
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			p := r.plan.NewParsable()
			for item := range in {
				record, err := r.parse(p, item.entry, item.idx)
				if err != nil {
					return err
				}
				if record == nil {
					continue
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				case out <- indexed{record, item.idx}:
				}
			}
			return nil
		})
	}
	go func() {
		runErr = eg.Wait()
		close(out)
	}()
	return iterator.Func(func() (entries.LogEntry, int, error) {
		if err := ctx.Err(); err != nil {
			discard.Do(func() {
				go func() {
					for range out {
					}
				}()
			})
			return iterator.Err(err)
		}
		item, ok := <-out
		if !ok {
			if runErr != nil {
				iterator.Drain(src)
				return iterator.Err(runErr)
			}
			return iterator.End()
		}
		return item.entry, item.idx, nil
	})
}

// parse dissects one entry. It returns a nil record for a bad line, and an error only when the run must stop.
func (r *Reader) parse(p *dissect.Parsable, entry entries.LogEntry, idx int) (entries.LogEntry, error) {
	lineNum := r.linesRead.Add(1)
	line, ok := entry.AsString(r.opts.lineField)
	if !ok {
		r.badLine(lineNum, idx, "", fmt.Errorf("%w: '%s'", ErrMissingLine, r.opts.lineField))
		return nil, nil
	}
	record := entries.LogEntry{}
	if err := p.Parse(line, record); err != nil {
		if dissect.IsFatal(err) {
			r.log.Error("Fatal dissection error", "line-number", lineNum, "error", err)
			return nil, err
		}
		r.badLine(lineNum, idx, line, err)
		return nil, nil
	}
	for _, f := range r.opts.keepFields {
		if v, ok := entry[f]; ok {
			record[f] = v
		}
	}
	r.goodLines.Add(1)
	return record, nil
}

func (r *Reader) badLine(lineNum int64, idx int, line string, err error) {
	bad := r.badLines.Add(1)
	limit := int64(r.opts.maxErrorLines)
	switch {
	case bad <= limit:
		r.log.Error("Unable to dissect line", "line-number", lineNum, "offset", idx, "line", line, "error", err)
	case bad == limit+1:
		r.log.Error("Too many bad lines, no longer logging dissection errors", "max-error-lines", limit, "logged-at", time.Now())
	}
}
