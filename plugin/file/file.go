package file

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/nxadm/tail"
	"github.com/saylorsolutions/logdissect/pkg/entries"
	"github.com/saylorsolutions/logdissect/pkg/iterator"
)

const (
	readTimeField = "@read_timestamp"
	readLineField = "@read_line_number"
)

// Source behaves the same as CtxSource, except that it will use context.Background as the context.
func Source(filename string) (iterator.Iterator, error) {
	_, i, err := ctxSource(context.Background(), filename, false)
	return i, err
}

// CtxSource will create an iterator.Iterator that contains each line of the provided log file, until the end of the file is reached.
// Each line is kept as-is in the entries.StandardMessageField, with the file name in entries.StandardSourceField.
func CtxSource(ctx context.Context, filename string) (iterator.Iterator, error) {
	_, i, err := ctxSource(ctx, filename, false)
	return i, err
}

// CtxMultiSource reads each of filenames in turn, like CtxSource, as a single iterator.Iterator.
// Every file is opened up front, so a missing file fails before any line is read.
func CtxMultiSource(ctx context.Context, filenames ...string) (iterator.Iterator, error) {
	var iter iterator.Iterator
	for _, name := range filenames {
		next, err := CtxSource(ctx, name)
		if err != nil {
			if iter != nil {
				iterator.Drain(iter)
			}
			return nil, err
		}
		if iter == nil {
			iter = next
			continue
		}
		iter = iterator.Concat(iter, next)
	}
	if iter == nil {
		return iterator.Empty(), nil
	}
	return iter, nil
}

// CtxTailSource is like CtxSource, but it keeps watching the file for new lines until ctx is cancelled.
// A rotated file is reopened.
func CtxTailSource(ctx context.Context, filename string) (iterator.Iterator, error) {
	_, i, err := ctxSource(ctx, filename, true)
	return i, err
}

func ctxSource(ctx context.Context, filename string, follow bool) (*tail.Tail, iterator.Iterator, error) {
	t, err := tail.TailFile(filename, tail.Config{
		ReOpen:    follow,
		MustExist: true,
		Follow:    follow,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan entries.LogEntry)
	go func() {
		defer func() {
			close(ch)
			_ = t.Stop()
			t.Cleanup()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case l, ok := <-t.Lines:
				if !ok || l.Err != nil {
					return
				}
				entry := entries.FromLine(l.Text)
				entry[entries.StandardSourceField] = filename
				entry[readTimeField] = l.Time.Format(time.RFC3339)
				entry[readLineField] = l.Num
				select {
				case <-ctx.Done():
					return
				case ch <- entry:
				}
			}
		}
	}()
	return t, iterator.FromChannel(ch), nil
}

// Sink will append each entry in the iterator.Iterator to the specified file as a JSON document on its own line, creating it if necessary.
// If Sink is called asynchronously, it's recommended to wait until it returns to close down the application.
// In case of an error, Sink will drain the iterator.Iterator to prevent upstream blocking.
func Sink(iter iterator.Iterator, filename string, perms os.FileMode) error {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, perms)
	if err != nil {
		iterator.Drain(iter)
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	enc := json.NewEncoder(f)
	err = iter.Iterate(func(entry entries.LogEntry, _ int) error {
		return enc.Encode(entry)
	})
	if err != nil {
		iterator.Drain(iter)
		return err
	}
	return nil
}
