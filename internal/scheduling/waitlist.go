package scheduling

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Waitlist records unmet demand. Deliberately no availability check on Add and
// no automatic matching when slots free up; resolution is an operator action.
type Waitlist struct {
	mu      sync.RWMutex
	entries []*WaitlistEntry
	now     func() time.Time
}

// NewWaitlist creates an empty waitlist.
func NewWaitlist() *Waitlist {
	return &Waitlist{now: time.Now}
}

// SetClock overrides the waitlist's clock. Tests only.
func (w *Waitlist) SetClock(now func() time.Time) {
	w.now = now
}

// Add validates and records a waitlist request, returning the entry id.
func (w *Waitlist) Add(req WaitlistRequest) (*WaitlistEntry, error) {
	if err := requireFields(
		"patient_name", req.PatientName,
		"patient_email", req.PatientEmail,
		"patient_phone", req.PatientPhone,
	); err != nil {
		return nil, err
	}
	if _, err := parseDate(req.PreferredDate); err != nil {
		return nil, err
	}
	if _, ok := appointmentDurations[req.Type]; !ok {
		return nil, newError(KindUnknownAppointmentType, "unknown appointment type %q", req.Type)
	}

	entry := &WaitlistEntry{
		ID:            uuid.NewString(),
		PatientName:   req.PatientName,
		PatientEmail:  req.PatientEmail,
		PatientPhone:  req.PatientPhone,
		PreferredDate: req.PreferredDate,
		Type:          req.Type,
		Doctor:        req.Doctor,
		CreatedAt:     w.now().UTC(),
	}

	w.mu.Lock()
	w.entries = append(w.entries, entry)
	w.mu.Unlock()
	return entry, nil
}

// List returns entries ascending by creation time, filtered by preferred date
// and appointment type when given.
func (w *Waitlist) List(date string, apptType AppointmentType) []*WaitlistEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*WaitlistEntry, 0, len(w.entries))
	for _, e := range w.entries {
		if date != "" && e.PreferredDate != date {
			continue
		}
		if apptType != "" && e.Type != apptType {
			continue
		}
		dup := *e
		out = append(out, &dup)
	}
	return out
}

// Remove deletes an entry by id. Operator action only.
func (w *Waitlist) Remove(waitlistID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, e := range w.entries {
		if e.ID == waitlistID {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			return nil
		}
	}
	return newError(KindNotFound, "unknown waitlist entry %s", waitlistID)
}
