package scheduling

// DurationPolicy maps appointment types to required minutes and carries the
// buffer configuration. The buffer is reserved idle time appended after every
// appointment; it is a single clinic-wide value, not a per-type one.
type DurationPolicy struct {
	// BufferMinutes is appended after each booked appointment before the next
	// may start. Default 15.
	BufferMinutes int

	// AllowBufferAtClose relaxes buffer placement at the end of the day: when
	// true, an appointment whose buffer would spill past closing time may still
	// be booked as long as the appointment itself ends by close.
	AllowBufferAtClose bool
}

// DefaultPolicy returns the clinic's standard policy.
func DefaultPolicy() *DurationPolicy {
	return &DurationPolicy{BufferMinutes: 15, AllowBufferAtClose: true}
}

// DurationFor returns the required minutes for an appointment type.
func (p *DurationPolicy) DurationFor(t AppointmentType) (int, error) {
	minutes, ok := appointmentDurations[t]
	if !ok {
		return 0, newError(KindUnknownAppointmentType, "unknown appointment type %q", t)
	}
	return minutes, nil
}

// reservedEnd computes how far past the appointment end the registry should be
// held, honoring the buffer-at-close relaxation. ok is false when the buffer
// cannot be placed under the policy.
func (p *DurationPolicy) reservedEnd(apptEnd, close int) (reserved int, ok bool) {
	reserved = apptEnd + p.BufferMinutes
	if reserved <= close {
		return reserved, true
	}
	if p.AllowBufferAtClose && apptEnd <= close {
		return close, true
	}
	return 0, false
}
