package dissect

import "errors"

var (
	// Setup errors, returned before any line is evaluated.
	ErrUnreachableField = errors.New("unreachable field")
	ErrSelfRemapping    = errors.New("type remapping to the same type")
	ErrAmbiguousOutput  = errors.New("ambiguous dissector output")
	ErrInvalidPath      = errors.New("invalid field path")
	ErrNoFields         = errors.New("no fields requested")

	// Returned during setup, or while running when a dissector could only be validated lazily.
	// Either way these abort the whole run.
	ErrMissingDissectors = errors.New("missing dissectors")
	ErrInvalidDissector  = errors.New("invalid dissector")

	// ErrDissectionFailure discards the current line only.
	ErrDissectionFailure = errors.New("dissection failure")
)

// IsFatal reports whether err should stop a run instead of just discarding the current line.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrMissingDissectors) || errors.Is(err, ErrInvalidDissector)
}
