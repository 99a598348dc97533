package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentType enumerates the bookable visit kinds. Each type carries a
// fixed duration; see appointmentDurations.
type AppointmentType string

const (
	TypeGeneralConsultation    AppointmentType = "general_consultation"
	TypeFollowUp               AppointmentType = "follow_up"
	TypePhysicalExam           AppointmentType = "physical_exam"
	TypeSpecialistConsultation AppointmentType = "specialist_consultation"
)

var appointmentDurations = map[AppointmentType]int{
	TypeGeneralConsultation:    30,
	TypeFollowUp:               15,
	TypePhysicalExam:           45,
	TypeSpecialistConsultation: 60,
}

// ParseAppointmentType normalizes user-facing spellings ("Follow-Up",
// "follow up") to the canonical enum value.
func ParseAppointmentType(s string) (AppointmentType, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	t := AppointmentType(normalized)
	if _, ok := appointmentDurations[t]; !ok {
		return "", newError(KindUnknownAppointmentType, "unknown appointment type %q", s)
	}
	return t, nil
}

// AppointmentStatus tracks the ledger lifecycle of a booking.
type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Slot is one bookable candidate on a doctor's grid, expressed in wall-clock
// strings for the conversational layer: Date is YYYY-MM-DD, Start/End are HH:MM.
type Slot struct {
	Doctor    string `json:"doctor"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

// Appointment is a confirmed (or cancelled) booking. ReservedUntil extends past
// End by the configured buffer, clipped to closing time; the registry holds
// [Start, ReservedUntil) while the appointment is live.
type Appointment struct {
	ID            string            `json:"appointment_id"`
	PatientName   string            `json:"patient_name"`
	PatientEmail  string            `json:"patient_email"`
	PatientPhone  string            `json:"patient_phone"`
	Doctor        string            `json:"doctor"`
	Date          string            `json:"date"`
	Start         string            `json:"start_time"`
	End           string            `json:"end_time"`
	ReservedUntil string            `json:"reserved_until"`
	Type          AppointmentType   `json:"appointment_type"`
	Reason        string            `json:"reason,omitempty"`
	Status        AppointmentStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	RescheduledAt *time.Time        `json:"rescheduled_at,omitempty"`
}

// WaitlistEntry records unmet demand. It is not tied to any slot.
type WaitlistEntry struct {
	ID            string          `json:"waitlist_id"`
	PatientName   string          `json:"patient_name"`
	PatientEmail  string          `json:"patient_email"`
	PatientPhone  string          `json:"patient_phone"`
	PreferredDate string          `json:"preferred_date"`
	Type          AppointmentType `json:"appointment_type"`
	Doctor        string          `json:"doctor,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// parseDate validates a YYYY-MM-DD date string.
func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, newError(KindValidation, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// parseClock converts an HH:MM string to minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, newError(KindValidation, "invalid time %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// formatClock renders minutes since midnight as HH:MM.
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
