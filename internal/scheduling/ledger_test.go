package scheduling

import (
	"errors"
	"testing"
)

func validBooking() BookingRequest {
	return BookingRequest{
		PatientName:  "Asha Verma",
		PatientEmail: "asha.verma@example.com",
		PatientPhone: "+91 9812345678",
		Date:         testDate,
		StartTime:    "09:00",
		Doctor:       testDoctor,
		Type:         TypeGeneralConsultation,
		Reason:       "persistent cough",
	}
}

func TestBookHappyPath(t *testing.T) {
	r := newTestRegistry(t)
	l := NewLedger(r, DefaultPolicy())

	appt, err := l.Book(validBooking())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appt.ID == "" {
		t.Error("appointment id is empty")
	}
	if appt.End != "09:30" || appt.ReservedUntil != "09:45" {
		t.Errorf("span = end %s reserved %s, want 09:30 / 09:45", appt.End, appt.ReservedUntil)
	}
	if appt.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", appt.Status)
	}

	// The reserved span, buffer included, is now held.
	free, _ := r.IsAvailable(testDoctor, testDate, 9*60+30, 9*60+45)
	if free {
		t.Error("buffer increments still free after booking")
	}
	free, _ = r.IsAvailable(testDoctor, testDate, 9*60+45, 10*60+15)
	if !free {
		t.Error("increments past the reserved span held after booking")
	}
}

func TestBookValidation(t *testing.T) {
	l := NewLedger(newTestRegistry(t), DefaultPolicy())

	cases := []struct {
		name   string
		mutate func(*BookingRequest)
		kind   Kind
	}{
		{"missing name", func(b *BookingRequest) { b.PatientName = " " }, KindValidation},
		{"missing phone", func(b *BookingRequest) { b.PatientPhone = "" }, KindValidation},
		{"bad email", func(b *BookingRequest) { b.PatientEmail = "not-an-email" }, KindValidation},
		{"bad date", func(b *BookingRequest) { b.Date = "03/02/2026" }, KindValidation},
		{"bad time", func(b *BookingRequest) { b.StartTime = "quarter past nine" }, KindValidation},
		{"bad type", func(b *BookingRequest) { b.Type = "spa_day" }, KindUnknownAppointmentType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validBooking()
			tc.mutate(&req)
			if _, err := l.Book(req); !IsKind(err, tc.kind) {
				t.Errorf("kind = %q, want %q (err: %v)", KindOf(err), tc.kind, err)
			}
		})
	}
}

func TestBookRejectsOverlap(t *testing.T) {
	l := NewLedger(newTestRegistry(t), DefaultPolicy())

	if _, err := l.Book(validBooking()); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// 09:15 overlaps the live 09:00-09:30 appointment.
	second := validBooking()
	second.PatientName = "Rohan Mehta"
	second.PatientEmail = "rohan@example.com"
	second.StartTime = "09:15"
	if _, err := l.Book(second); !IsKind(err, KindSlotUnavailable) {
		t.Errorf("overlap kind = %q, want slot_unavailable", KindOf(err))
	}

	// 09:30 collides with the buffer, not the appointment itself.
	second.StartTime = "09:30"
	if _, err := l.Book(second); !IsKind(err, KindSlotUnavailable) {
		t.Errorf("buffer collision kind = %q, want slot_unavailable", KindOf(err))
	}

	// 09:45 is the first clean start.
	second.StartTime = "09:45"
	if _, err := l.Book(second); err != nil {
		t.Errorf("09:45 booking should succeed, got %v", err)
	}
}

func TestBookBufferClippedAtClose(t *testing.T) {
	l := NewLedger(newTestRegistry(t), DefaultPolicy())

	req := validBooking()
	req.StartTime = "16:30"
	appt, err := l.Book(req)
	if err != nil {
		t.Fatalf("Book at 16:30: %v", err)
	}
	if appt.End != "17:00" || appt.ReservedUntil != "17:00" {
		t.Errorf("at-close span = end %s reserved %s, want 17:00 / 17:00", appt.End, appt.ReservedUntil)
	}
}

func TestBookUnknownDoctor(t *testing.T) {
	l := NewLedger(newTestRegistry(t), DefaultPolicy())
	req := validBooking()
	req.Doctor = "Dr. Nobody"
	if _, err := l.Book(req); !IsKind(err, KindNotFound) {
		t.Errorf("unknown doctor kind = %q, want not_found", KindOf(err))
	}
}

func TestCancelFreesSlots(t *testing.T) {
	r := newTestRegistry(t)
	l := NewLedger(r, DefaultPolicy())

	appt, err := l.Book(validBooking())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	cancelled, err := l.Cancel(appt.ID, "ASHA.VERMA@example.com")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	// The full reserved span, buffer included, is free again.
	free, _ := r.IsAvailable(testDoctor, testDate, 9*60, 9*60+45)
	if !free {
		t.Error("reserved span still held after cancel")
	}

	// Soft delete: the entry is still readable.
	got, err := l.Get(appt.ID)
	if err != nil {
		t.Fatalf("Get after cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("retained status = %s, want cancelled", got.Status)
	}
}

func TestCancelVerification(t *testing.T) {
	l := NewLedger(newTestRegistry(t), DefaultPolicy())
	appt, _ := l.Book(validBooking())

	if _, err := l.Cancel(appt.ID, "mallory@example.com"); !IsKind(err, KindVerification) {
		t.Errorf("mismatched email kind = %q, want verification_error", KindOf(err))
	}

	// No email supplied skips verification.
	if _, err := l.Cancel(appt.ID, ""); err != nil {
		t.Errorf("cancel without email: %v", err)
	}
}

func TestCancelNotFound(t *testing.T) {
	l := NewLedger(newTestRegistry(t), DefaultPolicy())
	appt, _ := l.Book(validBooking())

	if _, err := l.Cancel("no-such-id", ""); !IsKind(err, KindNotFound) {
		t.Errorf("unknown id kind = %q, want not_found", KindOf(err))
	}

	if _, err := l.Cancel(appt.ID, ""); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	// Second cancel is NotFound; slots are never double-freed.
	if _, err := l.Cancel(appt.ID, ""); !IsKind(err, KindNotFound) {
		t.Errorf("double cancel kind = %q, want not_found", KindOf(err))
	}
}

func TestRescheduleMovesSpan(t *testing.T) {
	r := newTestRegistry(t)
	l := NewLedger(r, DefaultPolicy())
	appt, _ := l.Book(validBooking())

	old, updated, err := l.Reschedule(appt.ID, testDate, "14:00")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if old.Start != "09:00" || updated.Start != "14:00" || updated.End != "14:30" {
		t.Errorf("old %s new %s-%s, want 09:00 and 14:00-14:30", old.Start, updated.Start, updated.End)
	}
	if updated.RescheduledAt == nil {
		t.Error("RescheduledAt not set")
	}

	free, _ := r.IsAvailable(testDoctor, testDate, 9*60, 9*60+45)
	if !free {
		t.Error("old span still held after reschedule")
	}
	free, _ = r.IsAvailable(testDoctor, testDate, 14*60, 14*60+45)
	if free {
		t.Error("new span not held after reschedule")
	}
}

func TestRescheduleOverlappingSelfIsNotConflict(t *testing.T) {
	l := NewLedger(newTestRegistry(t), DefaultPolicy())
	appt, _ := l.Book(validBooking())

	// 09:15 overlaps the appointment's own old span; moving onto yourself is
	// legal.
	_, updated, err := l.Reschedule(appt.ID, testDate, "09:15")
	if err != nil {
		t.Fatalf("self-overlapping reschedule: %v", err)
	}
	if updated.Start != "09:15" {
		t.Errorf("new start = %s, want 09:15", updated.Start)
	}
}

func TestRescheduleToHeldSlotRestoresOld(t *testing.T) {
	r := newTestRegistry(t)
	l := NewLedger(r, DefaultPolicy())

	first, _ := l.Book(validBooking())
	second := validBooking()
	second.PatientName = "Rohan Mehta"
	second.PatientEmail = "rohan@example.com"
	second.StartTime = "11:00"
	if _, err := l.Book(second); err != nil {
		t.Fatalf("second booking: %v", err)
	}

	// Moving onto the 11:00 hold fails; the 09:00 reservation must survive
	// untouched.
	if _, _, err := l.Reschedule(first.ID, testDate, "11:00"); !IsKind(err, KindSlotUnavailable) {
		t.Fatalf("kind = %q, want slot_unavailable", KindOf(err))
	}
	free, _ := r.IsAvailable(testDoctor, testDate, 9*60, 9*60+45)
	if free {
		t.Error("old span freed despite failed reschedule")
	}
	got, _ := l.Get(first.ID)
	if got.Start != "09:00" || got.Date != testDate {
		t.Errorf("entry mutated despite failed reschedule: %s %s", got.Date, got.Start)
	}
}

// claimFailGrid forces the claim step of a reschedule to fail after the
// availability check has passed, exercising the restore path.
type claimFailGrid struct {
	*Registry
	failClaimAt int // start minute that must fail to claim
}

func (g *claimFailGrid) Mark(doctor, date string, start, end int, available bool) error {
	if !available && start == g.failClaimAt {
		return errors.New("injected claim failure")
	}
	return g.Registry.Mark(doctor, date, start, end, available)
}

func TestRescheduleClaimFailureRestoresOld(t *testing.T) {
	r := newTestRegistry(t)
	grid := &claimFailGrid{Registry: r, failClaimAt: 14 * 60}
	l := NewLedger(grid, DefaultPolicy())

	appt, err := l.Book(validBooking())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if _, _, err := l.Reschedule(appt.ID, testDate, "14:00"); !IsKind(err, KindSlotUnavailable) {
		t.Fatalf("kind = %q, want slot_unavailable", KindOf(err))
	}

	free, _ := r.IsAvailable(testDoctor, testDate, 9*60, 9*60+45)
	if free {
		t.Error("old span not restored after claim failure")
	}
	free, _ = r.IsAvailable(testDoctor, testDate, 14*60, 14*60+45)
	if !free {
		t.Error("target span held despite claim failure")
	}
	got, _ := l.Get(appt.ID)
	if got.Start != "09:00" {
		t.Errorf("entry start = %s, want 09:00", got.Start)
	}
}

func TestRescheduleNotFound(t *testing.T) {
	l := NewLedger(newTestRegistry(t), DefaultPolicy())
	appt, _ := l.Book(validBooking())
	if _, err := l.Cancel(appt.ID, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, _, err := l.Reschedule(appt.ID, testDate, "14:00"); !IsKind(err, KindNotFound) {
		t.Errorf("cancelled reschedule kind = %q, want not_found", KindOf(err))
	}
	if _, _, err := l.Reschedule("no-such-id", testDate, "14:00"); !IsKind(err, KindNotFound) {
		t.Errorf("unknown reschedule kind = %q, want not_found", KindOf(err))
	}
}

func TestGetUnknown(t *testing.T) {
	l := NewLedger(newTestRegistry(t), DefaultPolicy())
	if _, err := l.Get("missing"); !IsKind(err, KindNotFound) {
		t.Errorf("kind = %q, want not_found", KindOf(err))
	}
}
