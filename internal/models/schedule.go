package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday names a day in a weekly timetable.
type Weekday string

// Supported weekdays.
const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

// Normalize upper-cases and trims the day name.
func (d Weekday) Normalize() Weekday {
	return Weekday(strings.ToUpper(strings.TrimSpace(string(d))))
}

// ClockTime is a time of day in minutes since midnight.
type ClockTime int

// ParseClockTime accepts "HH:MM" or "HH:MM:SS".
func ParseClockTime(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 24 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	if hours == 24 && minutes != 0 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	return ClockTime(hours*60 + minutes), nil
}

// MustClockTime panics on malformed input. Intended for fixtures.
func MustClockTime(raw string) ClockTime {
	c, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Scan implements sql.Scanner for Postgres TIME columns.
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*c = ClockTime(v.Hour()*60 + v.Minute())
		return nil
	case string:
		parsed, err := ParseClockTime(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case []byte:
		parsed, err := ParseClockTime(string(v))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case int64:
		*c = ClockTime(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

// Value implements driver.Valuer.
func (c ClockTime) Value() (driver.Value, error) {
	return c.String() + ":00", nil
}

// MarshalJSON renders the time as "HH:MM".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON parses "HH:MM" or "HH:MM:SS".
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeSlot is one weekly meeting of a section, covering [StartTime, EndTime).
type TimeSlot struct {
	SectionID string    `db:"section_id" json:"section_id,omitempty"`
	Day       Weekday   `db:"day_of_week" json:"day"`
	StartTime ClockTime `db:"start_time" json:"start_time"`
	EndTime   ClockTime `db:"end_time" json:"end_time"`
}

// Overlaps reports whether two slots share any minute on the same day.
// Touching endpoints do not overlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	if s.Day.Normalize() != other.Day.Normalize() {
		return false
	}
	return s.StartTime < other.EndTime && other.StartTime < s.EndTime
}

// String renders the slot as "MONDAY 09:00-11:00".
func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Day.Normalize(), s.StartTime, s.EndTime)
}

// SlotConflict pairs an existing commitment with the candidate slot it collides with.
type SlotConflict struct {
	Existing  TimeSlot `json:"existing"`
	Candidate TimeSlot `json:"candidate"`
}

// ScheduleConflictError is returned when a candidate section collides with a student's timetable.
type ScheduleConflictError struct {
	SectionID string         `json:"section_id"`
	Conflicts []SlotConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Conflicts) == 0 {
		return "no conflicting slots"
	}
	c := e.Conflicts[0]
	msg := fmt.Sprintf("%s overlaps %s", c.Candidate, c.Existing)
	if extra := len(e.Conflicts) - 1; extra > 0 {
		msg += fmt.Sprintf(" (and %d more)", extra)
	}
	return msg
}
