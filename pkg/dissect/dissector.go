package dissect

// EmitFunc receives one output of a dissector.
// The name is relative to the dissected field, the evaluator derives the complete name.
type EmitFunc func(typ, name, value string) error

// Output declares a (type, relative name) pair a Dissector can produce.
// The Name may be "*" or end in ".*" when the concrete child names are only known while dissecting.
type Output struct {
	Type  string
	Name  string
	Casts Casts
}

// Dissector decomposes one typed value into zero or more typed sub-fields.
type Dissector interface {
	// InputType is the type of the fields this Dissector consumes.
	InputType() string
	// Outputs declares everything Dissect may emit.
	Outputs() []Output
	// Dissect splits field, calling emit for each produced value.
	// Returning an error fails the current line, unless it wraps ErrInvalidDissector or ErrMissingDissectors.
	Dissect(field *ParsedField, emit EmitFunc) error
}

// Preparer may be implemented by a Dissector that needs expensive setup.
// PrepareForRun is called once per Plan, right before the first line is evaluated.
type Preparer interface {
	PrepareForRun() error
}
