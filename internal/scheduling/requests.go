package scheduling

// AvailabilityQuery asks for candidate slots on one date. Doctor and
// AppointmentType are optional; an empty type is treated as a general
// consultation for duration matching.
type AvailabilityQuery struct {
	Date            string          `json:"date" validate:"required"`
	Doctor          string          `json:"doctor,omitempty"`
	AppointmentType AppointmentType `json:"appointment_type,omitempty"`
}

// BookingRequest carries everything needed to confirm an appointment.
type BookingRequest struct {
	PatientName  string          `json:"patient_name" validate:"required"`
	PatientEmail string          `json:"patient_email" validate:"required,email"`
	PatientPhone string          `json:"patient_phone" validate:"required"`
	Date         string          `json:"date" validate:"required"`
	StartTime    string          `json:"start_time" validate:"required"`
	Doctor       string          `json:"doctor" validate:"required"`
	Type         AppointmentType `json:"appointment_type,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// RescheduleRequest moves an existing appointment.
type RescheduleRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	NewDate       string `json:"new_date" validate:"required"`
	NewStartTime  string `json:"new_start_time" validate:"required"`
}

// CancelRequest cancels an appointment. PatientEmail, when supplied, must
// match the stored booking email.
type CancelRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	PatientEmail  string `json:"patient_email,omitempty" validate:"omitempty,email"`
}

// WaitlistRequest records demand that could not be met.
type WaitlistRequest struct {
	PatientName   string          `json:"patient_name" validate:"required"`
	PatientEmail  string          `json:"patient_email" validate:"required,email"`
	PatientPhone  string          `json:"patient_phone" validate:"required"`
	PreferredDate string          `json:"preferred_date" validate:"required"`
	Type          AppointmentType `json:"appointment_type,omitempty"`
	Doctor        string          `json:"doctor,omitempty"`
}

// SlotRef identifies one occupied or freed span in responses.
type SlotRef struct {
	Date  string `json:"date"`
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// RescheduleResult reports both sides of a successful move.
type RescheduleResult struct {
	AppointmentID string  `json:"appointment_id"`
	Old           SlotRef `json:"old"`
	New           SlotRef `json:"new"`
}

// CancelResult reports the released reservation, buffer included.
type CancelResult struct {
	AppointmentID string  `json:"appointment_id"`
	FreedSlot     SlotRef `json:"freed_slot"`
}
