package dissect

import "strconv"

// Sink receives the requested values of a successfully dissected line.
type Sink interface {
	SetString(path, value string)
	SetLong(path string, value int64)
	SetDouble(path string, value float64)
	// SetMultiValueString is called for wildcard subscriptions, once per produced child.
	// The name is relative to the wildcard base.
	SetMultiValueString(wildcardPath, name, value string)
}

type delivery struct {
	path     string
	name     string
	value    string
	casts    Casts
	wildcard bool
}

func (d delivery) deliver(sink Sink) {
	if d.wildcard {
		sink.SetMultiValueString(d.path, d.name, d.value)
		return
	}
	if d.casts.Has(CastString) {
		sink.SetString(d.path, d.value)
	}
	if d.casts.Has(CastLong) {
		if i, err := strconv.ParseInt(d.value, 10, 64); err == nil {
			sink.SetLong(d.path, i)
		}
	}
	if d.casts.Has(CastDouble) {
		if f, err := strconv.ParseFloat(d.value, 64); err == nil {
			sink.SetDouble(d.path, f)
		}
	}
}

// SinkFuncs adapts plain functions to a Sink. Nil functions are skipped.
type SinkFuncs struct {
	String      func(path, value string)
	Long        func(path string, value int64)
	Double      func(path string, value float64)
	MultiString func(wildcardPath, name, value string)
}

var _ Sink = SinkFuncs{}

func (s SinkFuncs) SetString(path, value string) {
	if s.String != nil {
		s.String(path, value)
	}
}

func (s SinkFuncs) SetLong(path string, value int64) {
	if s.Long != nil {
		s.Long(path, value)
	}
}

func (s SinkFuncs) SetDouble(path string, value float64) {
	if s.Double != nil {
		s.Double(path, value)
	}
}

func (s SinkFuncs) SetMultiValueString(wildcardPath, name, value string) {
	if s.MultiString != nil {
		s.MultiString(wildcardPath, name, value)
	}
}
