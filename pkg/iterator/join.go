package iterator

import (
	"regexp"

	"github.com/saylorsolutions/logdissect/pkg/entries"
)

// Joiner will traverse an Iterator, joining continuation lines onto the line that started a record.
// The startPattern defines what a @message value must look like to be interpreted as the start of a record.
// Subsequent messages that do not match this pattern will have their @message field appended to the last start line, separated by a newline.
// If the Iterator starts with an entry that doesn't match, it's treated as a start anyway.
func Joiner(iter Iterator, startPattern *regexp.Regexp) Iterator {
	j := &joinerState{
		iter:  iter,
		start: startPattern,
	}
	return Func(j.nextFunc)
}

type joinerState struct {
	iter    Iterator
	start   *regexp.Regexp
	pending entries.LogEntry
	msg     string
	out     int
}

func (j *joinerState) isStart(entry entries.LogEntry) bool {
	msg, ok := entry.AsString(entries.StandardMessageField)
	if !ok {
		return false
	}
	return j.start.MatchString(msg)
}

func (j *joinerState) setPending(entry entries.LogEntry) {
	j.pending = entry
	j.msg, _ = entry.AsString(entries.StandardMessageField)
}

func (j *joinerState) appendMessage(entry entries.LogEntry) {
	msg, ok := entry.AsString(entries.StandardMessageField)
	if ok {
		j.msg += "\n" + msg
	}
}

func (j *joinerState) finalize() (entries.LogEntry, int, error) {
	final := j.pending
	final[entries.StandardMessageField] = j.msg
	j.pending = nil
	j.msg = ""
	out := j.out
	j.out++
	return final, out, nil
}

func (j *joinerState) nextFunc() (entries.LogEntry, int, error) {
	for {
		entry, _, err := j.iter.Next()
		switch {
		case err != nil:
			if IsEnd(err) && j.pending != nil {
				return j.finalize()
			}
			return nil, -1, err
		case j.pending == nil:
			j.setPending(entry)
		case j.isStart(entry):
			final, out, _ := j.finalize()
			j.setPending(entry)
			return final, out, nil
		default:
			j.appendMessage(entry)
		}
	}
}
