// Package timewindow provides local time-of-day values, quiet-hour window
// checks, and digest period keys. All window arithmetic is pure: callers pass
// the evaluation instant and the user's time zone explicitly.
package timewindow

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Format is the wire format for time-of-day values (24h clock).
const Format = "15:04"

// TimeOfDay is a clock time without a date, in the user's local zone.
// It serializes to/from JSON and SQL as "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// New creates a TimeOfDay from hour and minute.
func New(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// Parse parses a "HH:MM" string.
func Parse(s string) (TimeOfDay, error) {
	t, err := time.Parse(Format, strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// At extracts the time-of-day of t in its own location.
func At(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// MarshalJSON implements json.Marshaler.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer, storing "HH:MM".
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner for TEXT and TIME columns.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		return t.scanString(v)
	case []byte:
		return t.scanString(string(v))
	case time.Time:
		t.Hour, t.Minute = v.Hour(), v.Minute()
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

func (t *TimeOfDay) scanString(s string) error {
	// TIME columns come back as "HH:MM:SS"
	if len(s) > len(Format) {
		s = s[:len(Format)]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Window is a daily time window. A window may wrap midnight
// (Start > End, e.g. 22:00-06:00). Start == End is an empty window.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether now falls inside the window.
// Non-wrapping: Start <= now < End. Wrapping: now >= Start or now < End.
func (w Window) Contains(now TimeOfDay) bool {
	n, s, e := now.Minutes(), w.Start.Minutes(), w.End.Minutes()
	switch {
	case s == e:
		return false
	case s < e:
		return n >= s && n < e
	default:
		return n >= s || n < e
	}
}

// LoadLocation resolves an IANA zone name, falling back to UTC for
// empty or unknown names. Preferences store free-form zone strings, so a bad
// value must degrade rather than fail routing.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DayKey returns the calendar-day period key for t in loc (YYYY-MM-DD).
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// WeekKey returns the ISO-week period key for t in loc (e.g. "2026-W35").
func WeekKey(t time.Time, loc *time.Location) string {
	year, week := t.In(loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
