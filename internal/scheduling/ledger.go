package scheduling

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// slotGrid is the registry surface the ledger mutates. Narrowed to an
// interface so tests can inject claim failures.
type slotGrid interface {
	IsAvailable(doctor, date string, start, end int) (bool, error)
	Mark(doctor, date string, start, end int, available bool) error
	Hours(doctor, date string) (open, close int, err error)
}

// Ledger owns appointment identity and state transitions. Entries are soft
// deleted: a cancelled appointment stays in the ledger with StatusCancelled.
//
// Every mutation re-checks the registry inside the ledger, and marks slots and
// updates the entry in one critical section. The surrounding Service serializes
// writers, so a successful availability check cannot be invalidated before the
// claim lands.
type Ledger struct {
	mu     sync.RWMutex
	grid   slotGrid
	policy *DurationPolicy
	now    func() time.Time

	appointments map[string]*Appointment
}

// NewLedger creates an empty ledger over the given registry.
func NewLedger(grid slotGrid, policy *DurationPolicy) *Ledger {
	if grid == nil {
		panic("scheduling: slot grid cannot be nil")
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Ledger{
		grid:         grid,
		policy:       policy,
		now:          time.Now,
		appointments: make(map[string]*Appointment),
	}
}

// SetClock overrides the ledger's clock. Tests only.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Book validates the request, re-checks the registry for the exact reserved
// span, and atomically claims the slots and inserts the confirmed entry.
func (l *Ledger) Book(req BookingRequest) (*Appointment, error) {
	if err := requireFields(
		"patient_name", req.PatientName,
		"patient_email", req.PatientEmail,
		"patient_phone", req.PatientPhone,
		"doctor", req.Doctor,
	); err != nil {
		return nil, err
	}
	if !strings.Contains(req.PatientEmail, "@") {
		return nil, newError(KindValidation, "patient_email %q is not a valid email address", req.PatientEmail)
	}
	if _, err := parseDate(req.Date); err != nil {
		return nil, err
	}
	start, err := parseClock(req.StartTime)
	if err != nil {
		return nil, err
	}
	duration, err := l.policy.DurationFor(req.Type)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	end := start + duration
	reserved, err := l.reservedSpan(req.Doctor, req.Date, end)
	if err != nil {
		return nil, err
	}

	// The commit-time availability check is mandatory even when the caller has
	// already queried the engine; it closes the race between query and booking.
	free, err := l.grid.IsAvailable(req.Doctor, req.Date, start, reserved)
	if err != nil {
		return nil, unavailable(req.Doctor, req.Date, req.StartTime)
	}
	if !free {
		return nil, unavailable(req.Doctor, req.Date, req.StartTime)
	}
	if err := l.grid.Mark(req.Doctor, req.Date, start, reserved, false); err != nil {
		return nil, unavailable(req.Doctor, req.Date, req.StartTime)
	}

	appt := &Appointment{
		ID:            uuid.NewString(),
		PatientName:   req.PatientName,
		PatientEmail:  req.PatientEmail,
		PatientPhone:  req.PatientPhone,
		Doctor:        req.Doctor,
		Date:          req.Date,
		Start:         formatClock(start),
		End:           formatClock(end),
		ReservedUntil: formatClock(reserved),
		Type:          req.Type,
		Reason:        req.Reason,
		Status:        StatusConfirmed,
		CreatedAt:     l.now().UTC(),
	}
	l.appointments[appt.ID] = appt
	return snapshot(appt), nil
}

// Cancel frees the appointment's reserved span and marks it cancelled.
// Cancelling an unknown or already-cancelled id is NotFound; slots are never
// double-freed. A supplied email must match the stored patient email.
func (l *Ledger) Cancel(appointmentID, patientEmail string) (*Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	appt, ok := l.appointments[appointmentID]
	if !ok || appt.Status == StatusCancelled {
		return nil, newError(KindNotFound, "no active appointment %s", appointmentID)
	}
	if patientEmail != "" && !strings.EqualFold(patientEmail, appt.PatientEmail) {
		return nil, newError(KindVerification, "email does not match the booking for appointment %s", appointmentID)
	}

	start, _ := parseClock(appt.Start)
	reserved, _ := parseClock(appt.ReservedUntil)
	if err := l.grid.Mark(appt.Doctor, appt.Date, start, reserved, true); err != nil {
		return nil, err
	}
	appt.Status = StatusCancelled
	return snapshot(appt), nil
}

// Reschedule moves an appointment to a new date/start. The span is recomputed
// from the stored appointment type. The release of the old span and the claim
// of the new one happen as one logical transaction: on any failure the old
// reservation is restored exactly and the original booking remains intact.
func (l *Ledger) Reschedule(appointmentID, newDate, newStartTime string) (old, updated *Appointment, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	appt, ok := l.appointments[appointmentID]
	if !ok || appt.Status == StatusCancelled {
		return nil, nil, newError(KindNotFound, "no active appointment %s", appointmentID)
	}
	if _, err := parseDate(newDate); err != nil {
		return nil, nil, err
	}
	newStart, err := parseClock(newStartTime)
	if err != nil {
		return nil, nil, err
	}
	duration, err := l.policy.DurationFor(appt.Type)
	if err != nil {
		return nil, nil, err
	}

	oldStart, _ := parseClock(appt.Start)
	oldReserved, _ := parseClock(appt.ReservedUntil)

	newEnd := newStart + duration
	newReserved, err := l.reservedSpan(appt.Doctor, newDate, newEnd)
	if err != nil {
		return nil, nil, err
	}

	// Release the old span first so a same-doctor move into an overlapping
	// window is not treated as a conflict with itself.
	if err := l.grid.Mark(appt.Doctor, appt.Date, oldStart, oldReserved, true); err != nil {
		return nil, nil, err
	}
	restoreOld := func() {
		// The old span was ours moments ago and the Service serializes
		// writers, so re-marking it cannot fail.
		_ = l.grid.Mark(appt.Doctor, appt.Date, oldStart, oldReserved, false)
	}

	free, err := l.grid.IsAvailable(appt.Doctor, newDate, newStart, newReserved)
	if err != nil || !free {
		restoreOld()
		return nil, nil, unavailable(appt.Doctor, newDate, newStartTime)
	}
	if err := l.grid.Mark(appt.Doctor, newDate, newStart, newReserved, false); err != nil {
		restoreOld()
		return nil, nil, unavailable(appt.Doctor, newDate, newStartTime)
	}

	old = snapshot(appt)
	when := l.now().UTC()
	appt.Date = newDate
	appt.Start = formatClock(newStart)
	appt.End = formatClock(newEnd)
	appt.ReservedUntil = formatClock(newReserved)
	appt.RescheduledAt = &when
	return old, snapshot(appt), nil
}

// Get returns a snapshot of an appointment in any status.
func (l *Ledger) Get(appointmentID string) (*Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	appt, ok := l.appointments[appointmentID]
	if !ok {
		return nil, newError(KindNotFound, "unknown appointment %s", appointmentID)
	}
	return snapshot(appt), nil
}

func (l *Ledger) reservedSpan(doctor, date string, apptEnd int) (int, error) {
	_, close, err := l.grid.Hours(doctor, date)
	if err != nil {
		return 0, err
	}
	reserved, ok := l.policy.reservedEnd(apptEnd, close)
	if !ok {
		return 0, newError(KindSlotUnavailable,
			"appointment ending at %s does not leave room for the %d-minute buffer before closing",
			formatClock(apptEnd), l.policy.BufferMinutes)
	}
	return reserved, nil
}

func unavailable(doctor, date, start string) *Error {
	return newError(KindSlotUnavailable, "%s is not available on %s at %s", doctor, date, start)
}

func snapshot(a *Appointment) *Appointment {
	dup := *a
	return &dup
}

func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return newError(KindValidation, "%s is required", pairs[i])
		}
	}
	return nil
}
