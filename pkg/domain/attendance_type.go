package domain

import dErrors "pramaan/pkg/domain-errors"

// AttendanceType distinguishes the two daily attendance actions.
type AttendanceType string

const (
	AttendanceCheckIn  AttendanceType = "checkIn"
	AttendanceCheckOut AttendanceType = "checkOut"
)

var validAttendanceTypes = map[AttendanceType]bool{
	AttendanceCheckIn:  true,
	AttendanceCheckOut: true,
}

// ParseAttendanceType constructs an AttendanceType from external input.
func ParseAttendanceType(s string) (AttendanceType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "attendance type cannot be empty")
	}
	t := AttendanceType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid attendance type")
	}
	return t, nil
}

func (t AttendanceType) IsValid() bool {
	return validAttendanceTypes[t]
}

func (t AttendanceType) String() string { return string(t) }
