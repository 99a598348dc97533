package scheduling

import "testing"

func TestDurationFor(t *testing.T) {
	p := DefaultPolicy()
	minutes, err := p.DurationFor(TypeSpecialistConsultation)
	if err != nil {
		t.Fatalf("DurationFor: %v", err)
	}
	if minutes != 60 {
		t.Errorf("specialist duration = %d, want 60", minutes)
	}
	if _, err := p.DurationFor("teeth_whitening"); !IsKind(err, KindUnknownAppointmentType) {
		t.Errorf("unknown type: kind = %q, want unknown_appointment_type", KindOf(err))
	}
}

func TestReservedEnd(t *testing.T) {
	close := 17 * 60

	p := DefaultPolicy()
	// Mid-day: buffer fits in full.
	if reserved, ok := p.reservedEnd(9*60+30, close); !ok || reserved != 9*60+45 {
		t.Errorf("mid-day reserved = %d ok=%v, want %d true", reserved, ok, 9*60+45)
	}
	// Appointment ends exactly at close: buffer clipped away entirely.
	if reserved, ok := p.reservedEnd(close, close); !ok || reserved != close {
		t.Errorf("at-close reserved = %d ok=%v, want %d true", reserved, ok, close)
	}
	// Buffer spills past close: clipped to close.
	if reserved, ok := p.reservedEnd(16*60+50, close); !ok || reserved != close {
		t.Errorf("clipped reserved = %d ok=%v, want %d true", reserved, ok, close)
	}

	strict := &DurationPolicy{BufferMinutes: 15, AllowBufferAtClose: false}
	if _, ok := strict.reservedEnd(16*60+50, close); ok {
		t.Error("strict policy accepted a buffer spilling past close")
	}
	if reserved, ok := strict.reservedEnd(16*60+45, close); !ok || reserved != close {
		t.Errorf("strict exact-fit reserved = %d ok=%v, want %d true", reserved, ok, close)
	}
}
