package domain

import (
	"time"

	dErrors "pramaan/pkg/domain-errors"
)

// AttendanceDate is a calendar day normalized to UTC midnight. All proof-slot
// and nullifier derivations key on this value, so two timestamps on the same
// day always collapse to the same AttendanceDate.
type AttendanceDate struct {
	t time.Time
}

const attendanceDateLayout = "2006-01-02"

// NewAttendanceDate truncates an arbitrary timestamp to its UTC calendar day.
func NewAttendanceDate(t time.Time) AttendanceDate {
	u := t.UTC()
	return AttendanceDate{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseAttendanceDate parses a "YYYY-MM-DD" string from external input.
func ParseAttendanceDate(s string) (AttendanceDate, error) {
	if s == "" {
		return AttendanceDate{}, dErrors.New(dErrors.CodeInvalidInput, "date cannot be empty")
	}
	t, err := time.Parse(attendanceDateLayout, s)
	if err != nil {
		return AttendanceDate{}, dErrors.New(dErrors.CodeInvalidInput, "date must be YYYY-MM-DD")
	}
	return NewAttendanceDate(t), nil
}

// Time returns the UTC-midnight timestamp for storage.
func (d AttendanceDate) Time() time.Time { return d.t }

func (d AttendanceDate) String() string { return d.t.Format(attendanceDateLayout) }

func (d AttendanceDate) IsZero() bool { return d.t.IsZero() }

// Equal reports whether two dates name the same calendar day.
func (d AttendanceDate) Equal(other AttendanceDate) bool { return d.t.Equal(other.t) }

// MarshalText renders the date as "YYYY-MM-DD" in JSON.
func (d AttendanceDate) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText parses through ParseAttendanceDate.
func (d *AttendanceDate) UnmarshalText(b []byte) error {
	parsed, err := ParseAttendanceDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
