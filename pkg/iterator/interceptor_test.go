package iterator

import (
	"context"
	"errors"
	"testing"

	"github.com/saylorsolutions/logdissect/pkg/entries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	iter := FromSlice([]entries.LogEntry{
		{
			"A": "A",
		},
		{
			"B": "B",
		},
		{
			"C": "C",
		},
	})
	iter = Filter(iter, func(entry entries.LogEntry, i int) bool {
		return entry.HasField("C")
	})

	el, _, err := iter.Next()
	assert.NoError(t, err)
	s, ok := el.AsString("C")
	assert.True(t, ok, "Field 'C' should exist in this entry")
	assert.Equal(t, "C", s)

	_, _, err = iter.Next()
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrAtEnd)
}

func TestCancellable(t *testing.T) {
	iter := FromSlice([]entries.LogEntry{
		{
			"A": "A",
		},
		{
			"B": "B",
		},
		{
			"C": "C",
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	iter = Cancellable(ctx, iter)

	el, _, err := iter.Next()
	assert.NoError(t, err)
	s, ok := el.AsString("A")
	assert.True(t, ok, "Field 'A' should exist in this entry")
	assert.Equal(t, "A", s)

	cancel()

	_, _, err = iter.Next()
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrAtEnd)
}

func TestConcat(t *testing.T) {
	iter1 := FromSlice([]entries.LogEntry{
		{
			"A": "A",
		},
	})
	iter2 := FromSlice([]entries.LogEntry{
		{
			"B": "B",
		},
	})
	iter := Concat(iter1, iter2)

	el, i, err := iter.Next()
	assert.NoError(t, err)
	assert.Equal(t, 0, i)
	s, ok := el.AsString("A")
	assert.True(t, ok, "Field 'A' should exist in this entry")
	assert.Equal(t, "A", s)

	el, i, err = iter.Next()
	assert.NoError(t, err)
	assert.Equal(t, 1, i)
	s, ok = el.AsString("B")
	assert.True(t, ok, "Field 'B' should exist in this entry")
	assert.Equal(t, "B", s)

	_, _, err = iter.Next()
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrAtEnd)
}

func TestFunc_Iterate(t *testing.T) {
	all := []entries.LogEntry{{"A": "A"}, {"B": "B"}, {"C": "C"}}

	collected, err := Collect(FromSlice(all))
	require.NoError(t, err)
	assert.Equal(t, all, collected)

	var seen int
	err = Filter(FromSlice(all), func(entries.LogEntry, int) bool { return true }).Iterate(func(entry entries.LogEntry, i int) error {
		seen++
		if i == 1 {
			return ErrStopIteration
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, seen)

	boom := errors.New("boom")
	err = FromSlice(all).Iterate(func(entries.LogEntry, int) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	collected, err = Collect(Empty())
	assert.NoError(t, err)
	assert.Empty(t, collected)
}

func TestAsChannel(t *testing.T) {
	iter := FromSlice([]entries.LogEntry{{"A": "A"}, {"B": "B"}})
	_, _, err := iter.Next()
	require.NoError(t, err)

	var got []entries.LogEntry
	for e := range AsChannel(iter) {
		got = append(got, e)
	}
	assert.Equal(t, []entries.LogEntry{{"B": "B"}}, got)

	ch := make(chan entries.LogEntry, 1)
	ch <- entries.LogEntry{"C": "C"}
	close(ch)
	got = nil
	for e := range AsChannel(Concat(Empty(), FromChannel(ch))) {
		got = append(got, e)
	}
	assert.Equal(t, []entries.LogEntry{{"C": "C"}}, got)
}

func TestRenamer(t *testing.T) {
	iter := Renamer(FromSlice([]entries.LogEntry{
		{"STRING:connection.client.host": "127.0.0.1"},
		{"BYTES:response.body.bytes": int64(5)},
	}), entries.NewRenameSpec().Move("STRING:connection.client.host", "host"))

	collected, err := Collect(iter)
	require.NoError(t, err)
	assert.Equal(t, []entries.LogEntry{
		{"host": "127.0.0.1"},
		{"BYTES:response.body.bytes": int64(5)},
	}, collected)
}
