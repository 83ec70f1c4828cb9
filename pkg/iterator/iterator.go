package iterator

import (
	"errors"

	"github.com/saylorsolutions/logdissect/pkg/entries"
)

var (
	// ErrAtEnd is returned by Next when there are no more entries.
	ErrAtEnd = errors.New("end of iteration")
	// ErrStopIteration may be returned from an Iterate callback to stop early without an error.
	ErrStopIteration = errors.New("stop iterating")
)

type Iterator interface {
	// Next returns the next LogEntry and its offset in the stream.
	// Returns ErrAtEnd if the end of the stream is reached.
	Next() (entries.LogEntry, int, error)
	// Iterate will progress through all LogEntry items in the stream, calling iter for each one along with the offset.
	// If iter returns ErrStopIteration, then iteration will cease, returning nil.
	// If any other error is returned, then iteration will cease, and the error will be returned.
	Iterate(iter func(entry entries.LogEntry, i int) error) error
}

// End is returned by Iterator implementations when the stream is exhausted.
func End() (entries.LogEntry, int, error) {
	return nil, -1, ErrAtEnd
}

// Err returns an error from Next.
func Err(err error) (entries.LogEntry, int, error) {
	return nil, -1, err
}

func IsEnd(err error) bool {
	return errors.Is(err, ErrAtEnd)
}

var _ Iterator = (Func)(nil)

// Func adapts a Next function to an Iterator.
type Func func() (entries.LogEntry, int, error)

func (f Func) Next() (entries.LogEntry, int, error) {
	return f()
}

func (f Func) Iterate(iter func(entry entries.LogEntry, i int) error) error {
	return iterate(f, iter)
}

func iterate(it Iterator, iter func(entry entries.LogEntry, i int) error) error {
	for {
		entry, i, err := it.Next()
		if err != nil {
			if IsEnd(err) {
				return nil
			}
			return err
		}
		if err := iter(entry, i); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
}

func Empty() Iterator {
	return Func(End)
}

func FromSlice(entries []entries.LogEntry) Iterator {
	return &entrySlice{entries: entries}
}

func FromChannel(entries <-chan entries.LogEntry) Iterator {
	return &entryChannel{ch: entries}
}

// AsChannel forwards all entries of iter to a channel, which is closed when iter is exhausted.
func AsChannel(iter Iterator) <-chan entries.LogEntry {
	if chi, ok := iter.(*entryChannel); ok {
		return chi.ch
	}
	if chs, ok := iter.(*entrySlice); ok {
		remaining := chs.entries[chs.next:]
		ch := make(chan entries.LogEntry, len(remaining))
		defer close(ch)
		for _, e := range remaining {
			ch <- e
		}
		chs.next = len(chs.entries)
		return ch
	}
	ch := make(chan entries.LogEntry)
	go func() {
		defer close(ch)
		_ = iter.Iterate(func(entry entries.LogEntry, i int) error {
			ch <- entry
			return nil
		})
	}()
	return ch
}

// Collect reads all entries of iter into a slice.
func Collect(iter Iterator) ([]entries.LogEntry, error) {
	var collected []entries.LogEntry
	err := iter.Iterate(func(entry entries.LogEntry, _ int) error {
		collected = append(collected, entry)
		return nil
	})
	return collected, err
}

// Drain will drain all entries from a Iterator in a new goroutine.
// This can be useful as an error fallback in case of an iteration error to prevent upstream blocking.
func Drain(iter Iterator) {
	ch := AsChannel(iter)
	go func() {
		for range ch {
		}
	}()
}
