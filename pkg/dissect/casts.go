package dissect

import "strings"

// Casts is the set of representations a field value is guaranteed to be convertible to.
type Casts uint8

const (
	CastString Casts = 1 << iota
	CastLong
	CastDouble
)

const (
	StringOnly           = CastString
	StringOrLong         = CastString | CastLong
	StringOrLongOrDouble = CastString | CastLong | CastDouble
)

func (c Casts) Has(cast Casts) bool {
	return c&cast == cast
}

func (c Casts) String() string {
	var parts []string
	if c.Has(CastString) {
		parts = append(parts, "STRING")
	}
	if c.Has(CastLong) {
		parts = append(parts, "LONG")
	}
	if c.Has(CastDouble) {
		parts = append(parts, "DOUBLE")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}
