package iterator

import (
	"context"
	"sync"

	"github.com/saylorsolutions/logdissect/pkg/entries"
)

// Filter wraps an Iterator with a function that - when it returns true - will allow the return values of Next through.
// If the wrapped Iterator returns a non-nil error, then it will be passed through regardless.
func Filter(iter Iterator, filter func(entry entries.LogEntry, i int) bool) Iterator {
	return Func(func() (entries.LogEntry, int, error) {
		for {
			entry, idx, err := iter.Next()
			if err != nil {
				return entry, idx, err
			}
			if filter(entry, idx) {
				return entry, idx, nil
			}
		}
	})
}

// Cancellable wraps an iterator and makes it cancellable by context.
// When the context is cancelled and Next is called, all remaining entries will be forwarded to Drain.
func Cancellable(ctx context.Context, iter Iterator) Iterator {
	var drain sync.Once
	return Func(func() (entries.LogEntry, int, error) {
		if ctx.Err() != nil {
			drain.Do(func() {
				Drain(iter)
			})
			return End()
		}
		return iter.Next()
	})
}

// Concat will return entries from next after base has been exhausted.
// Offsets of next continue from the last offset of base.
func Concat(base, next Iterator) Iterator {
	var (
		idx      int
		baseDone bool
	)
	return Func(func() (entries.LogEntry, int, error) {
		if !baseDone {
			e, i, err := base.Next()
			if err == nil {
				idx = i + 1
				return e, i, nil
			}
			if !IsEnd(err) {
				return e, i, err
			}
			baseDone = true
		}
		e, i, err := next.Next()
		if err != nil {
			return e, i, err
		}
		return e, i + idx, nil
	})
}
