package iterator

import (
	"regexp"
	"testing"

	"github.com/saylorsolutions/logdissect/pkg/entries"
	"github.com/stretchr/testify/assert"
)

var startPattern = regexp.MustCompile(`^start`)

func TestJoiner(t *testing.T) {
	iter := FromSlice([]entries.LogEntry{
		entries.FromLine("start entry"),
		entries.FromLine("another entry"),
		entries.FromLine("start complete"),
	})
	iter = Joiner(iter, startPattern)

	first, i, err := iter.Next()
	msg, ok := first.AsString(entries.StandardMessageField)
	assert.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.True(t, ok, "Message should be defined on first log event")
	assert.Equal(t, "start entry\nanother entry", msg)

	second, i, err := iter.Next()
	msg, ok = second.AsString(entries.StandardMessageField)
	assert.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.True(t, ok, "Message should be defined on second log event")
	assert.Equal(t, "start complete", msg)

	_, _, err = iter.Next()
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrAtEnd)
}

func TestJoiner_Midstream_read(t *testing.T) {
	iter := FromSlice([]entries.LogEntry{
		entries.FromLine("another entry"),
		entries.FromLine("start complete"),
	})
	iter = Joiner(iter, startPattern)

	first, _, err := iter.Next()
	msg, ok := first.AsString(entries.StandardMessageField)
	assert.NoError(t, err)
	assert.True(t, ok, "Message should be defined on first log event")
	assert.Equal(t, "another entry", msg)

	second, _, err := iter.Next()
	msg, ok = second.AsString(entries.StandardMessageField)
	assert.NoError(t, err)
	assert.True(t, ok, "Message should be defined on second log event")
	assert.Equal(t, "start complete", msg)

	_, _, err = iter.Next()
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrAtEnd)
}
