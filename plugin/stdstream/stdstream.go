package stdstream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/saylorsolutions/logdissect/pkg/entries"
	"github.com/saylorsolutions/logdissect/pkg/iterator"
	"github.com/saylorsolutions/logdissect/plugin"
)

const (
	qualifier = "std"
	// Access log lines with long cookies or query strings easily exceed the default scanner buffer.
	maxLineSize = 1024 * 1024
)

var _ plugin.Plugin = (*stdplugin)(nil)

func Plugin() plugin.Plugin {
	return new(stdplugin)
}

type stdplugin struct {
}

func (s *stdplugin) ID() string {
	return qualifier
}

func (s *stdplugin) Register(reg *plugin.Registration) {
	reg.RegisterSource(qualifier, "In", SourceIn)
	reg.DocumentSource(qualifier, "In", `std.In

Reads each line of STDIN. The line may be a JSON object with an "@message" field, or completely unstructured.`)
	reg.RegisterSink(qualifier, "Out", SinkOut)
	reg.DocumentSink(qualifier, "Out", `std.Out

Writes each record as a JSON line to STDOUT.`)
	reg.RegisterSink(qualifier, "Err", SinkErr)
	reg.DocumentSink(qualifier, "Err", `std.Err

Writes each record as a JSON line to STDERR.`)
}

func (s *stdplugin) Stopping() error {
	return nil
}

func SourceIn(ctx context.Context, _ ...string) (iterator.Iterator, error) {
	return readerSource(ctx, os.Stdin), nil
}

func readerSource(ctx context.Context, in io.Reader) iterator.Iterator {
	ch := make(chan entries.LogEntry)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case ch <- entries.FromString(scanner.Text()):
			}
		}
	}()
	return iterator.FromChannel(ch)
}

func SinkOut(ctx context.Context, src iterator.Iterator, _ ...string) error {
	return writerSink(ctx, src, os.Stdout)
}

func SinkErr(ctx context.Context, src iterator.Iterator, _ ...string) error {
	return writerSink(ctx, src, os.Stderr)
}

func writerSink(ctx context.Context, src iterator.Iterator, out io.Writer) error {
	enc := json.NewEncoder(out)
	err := src.Iterate(func(entry entries.LogEntry, i int) error {
		if ctx.Err() != nil {
			return iterator.ErrStopIteration
		}
		return enc.Encode(entry)
	})
	if err != nil {
		iterator.Drain(src)
		return err
	}
	return nil
}
