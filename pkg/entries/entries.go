package entries

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
)

const (
	StandardMessageField = "@message"
	StandardSourceField  = "@source"
	StandardErrorField   = "@error"
)

// LogEntry is a single record, keyed by field path.
// Dissected values are keyed by the requested path, like "STRING:request.firstline.uri.path".
type LogEntry map[string]any

var _ dissect.Sink = LogEntry(nil)

func (e LogEntry) HasField(name string) bool {
	_, ok := e[name]
	return ok
}

// SetString sets the string form of a value, unless a typed form was already set.
func (e LogEntry) SetString(path, value string) {
	if e.HasField(path) {
		return
	}
	e[path] = value
}

// SetLong replaces the string form of a value.
func (e LogEntry) SetLong(path string, value int64) {
	e[path] = value
}

// SetDouble replaces the string form of a value, but never a LONG.
func (e LogEntry) SetDouble(path string, value float64) {
	if _, ok := e[path].(int64); ok {
		return
	}
	e[path] = value
}

// SetMultiValueString sets the value under its concrete path, so "STRING:a.*" with name "b" is stored as "STRING:a.b".
func (e LogEntry) SetMultiValueString(wildcardPath, name, value string) {
	e.SetString(strings.TrimSuffix(wildcardPath, "*")+name, value)
}

// Paths returns the sorted field names of this LogEntry.
func (e LogEntry) Paths() []string {
	paths := make([]string, 0, len(e))
	for k := range e {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}

func (e LogEntry) AsFloat(name string) (float64, bool) {
	if !e.HasField(name) {
		return 0, false
	}
	switch v := e[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	v := reflect.ValueOf(e[name])
	if v.CanFloat() {
		return v.Float(), true
	}
	return 0, false
}

func (e LogEntry) AsInt(name string) (int64, bool) {
	if !e.HasField(name) {
		return 0, false
	}
	switch v := e[name].(type) {
	case int64:
		return v, true
	case float64:
		// Decoded JSON numbers are always float64.
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	v := reflect.ValueOf(e[name])
	if v.CanInt() {
		return v.Int(), true
	}
	return 0, false
}

func (e LogEntry) AsString(name string) (string, bool) {
	if !e.HasField(name) {
		return "", false
	}
	switch v := e[name].(type) {
	case string:
		return v, true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case fmt.Stringer:
		return v.String(), true
	case error:
		return v.Error(), true
	}
	return fmt.Sprintf("%v", e[name]), true
}

// FromString creates a LogEntry from a raw line.
// A line holding a JSON object is decoded as-is, anything else is stored under StandardMessageField.
func FromString(msg string) LogEntry {
	entry := LogEntry{}
	trimmed := strings.TrimSpace(msg)
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &entry); err == nil {
			return entry
		}
		entry = LogEntry{}
	}
	entry[StandardMessageField] = msg
	return entry
}

// FromLine creates a LogEntry holding msg as the raw line, without attempting to decode it.
func FromLine(msg string) LogEntry {
	return LogEntry{StandardMessageField: msg}
}
