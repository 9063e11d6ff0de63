package gdc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// TimeLayout is used when a Time is serialized.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Time is a timestamp as returned by the platform. The API is not consistent
// in its formats ("2014-04-10T13:27:06.000Z", "2014-01-14 11:23:45", ...), so
// any format understood by dateparse is accepted. Zone-less values are UTC.
type Time struct {
	time.Time
}

// NewTime wraps t.
func NewTime(t time.Time) *Time {
	return &Time{Time: t.UTC()}
}

// ParseTime parses s in any of the platform formats.
func ParseTime(s string) (Time, error) {
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return Time{Time: t.UTC()}, nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(TimeLayout))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Time) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}
