package iterator

import (
	"github.com/saylorsolutions/logdissect/pkg/entries"
)

var _ Iterator = (*entryChannel)(nil)

type entryChannel struct {
	ch   <-chan entries.LogEntry
	next int
}

func (e *entryChannel) Next() (entries.LogEntry, int, error) {
	entry, ok := <-e.ch
	if !ok {
		return End()
	}
	cur := e.next
	e.next += 1
	return entry, cur, nil
}

func (e *entryChannel) Iterate(iter func(entry entries.LogEntry, i int) error) error {
	return iterate(e, iter)
}
