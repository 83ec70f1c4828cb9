package httpd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
)

const TimeStampType = "TIME.STAMP"

var (
	ErrBadTimestamp = errors.New("malformed timestamp")

	timestampLayouts = []string{
		"02/Jan/2006:15:04:05 -0700",
		"02/Jan/2006:15:04:05",
	}
)

var _ dissect.Dissector = (*Timestamp)(nil)

// Timestamp splits an Apache request time like "[10/Oct/2000:13:55:36 -0700]".
// All parts except the epoch are in the time zone of the log line, or UTC when the line has none.
type Timestamp struct{}

func (Timestamp) InputType() string {
	return TimeStampType
}

func (Timestamp) Outputs() []dissect.Output {
	return []dissect.Output{
		{Type: "TIME.EPOCH", Name: "epoch", Casts: dissect.StringOrLong},
		{Type: "TIME.YEAR", Name: "year", Casts: dissect.StringOrLong},
		{Type: "TIME.MONTH", Name: "month", Casts: dissect.StringOrLong},
		{Type: "TIME.MONTHNAME", Name: "monthname"},
		{Type: "TIME.DAY", Name: "day", Casts: dissect.StringOrLong},
		{Type: "TIME.HOUR", Name: "hour", Casts: dissect.StringOrLong},
		{Type: "TIME.MINUTE", Name: "minute", Casts: dissect.StringOrLong},
		{Type: "TIME.SECOND", Name: "second", Casts: dissect.StringOrLong},
		{Type: "TIME.DATE", Name: "date"},
		{Type: "TIME.TIME", Name: "time"},
		{Type: "TIME.ZONE", Name: "timezone"},
	}
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(value), "["), "]"))
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: '%s'", ErrBadTimestamp, value)
}

func (Timestamp) Dissect(field *dissect.ParsedField, emit dissect.EmitFunc) error {
	t, err := parseTimestamp(field.Value)
	if err != nil {
		return err
	}
	for _, p := range []struct{ typ, name, value string }{
		{"TIME.EPOCH", "epoch", strconv.FormatInt(t.UnixMilli(), 10)},
		{"TIME.YEAR", "year", strconv.Itoa(t.Year())},
		{"TIME.MONTH", "month", strconv.Itoa(int(t.Month()))},
		{"TIME.MONTHNAME", "monthname", t.Month().String()},
		{"TIME.DAY", "day", strconv.Itoa(t.Day())},
		{"TIME.HOUR", "hour", strconv.Itoa(t.Hour())},
		{"TIME.MINUTE", "minute", strconv.Itoa(t.Minute())},
		{"TIME.SECOND", "second", strconv.Itoa(t.Second())},
		{"TIME.DATE", "date", t.Format("2006-01-02")},
		{"TIME.TIME", "time", t.Format("15:04:05")},
		{"TIME.ZONE", "timezone", t.Format("-07:00")},
	} {
		if err := emit(p.typ, p.name, p.value); err != nil {
			return err
		}
	}
	return nil
}
