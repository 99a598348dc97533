package scheduling

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure. Every rejected operation carries
// exactly one kind; callers branch on kinds, not message text.
type Kind string

const (
	KindValidation             Kind = "validation_error"
	KindSlotUnavailable        Kind = "slot_unavailable"
	KindNotFound               Kind = "not_found"
	KindVerification           Kind = "verification_error"
	KindUnknownAppointmentType Kind = "unknown_appointment_type"
	KindOutOfHours             Kind = "out_of_hours"
)

// Error is a structured scheduling failure: a machine-readable kind plus a
// human-readable message. No scheduling failure corrupts state, so there is no
// fatal class here.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind from err, or "" when err is not a
// scheduling error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err is a scheduling error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
