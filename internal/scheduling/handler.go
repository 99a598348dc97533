package scheduling

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthcareplus/clinic-assistant/pkg/logging"
)

// Handler exposes the calendar API over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a calendar API handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger.Named("calendar_api")}
}

// RegisterRoutes mounts the calendar endpoints on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/availability", h.GetAvailability)
	r.Post("/book", h.Book)
	r.Post("/reschedule", h.Reschedule)
	r.Post("/cancel", h.Cancel)
	r.Post("/waitlist", h.AddToWaitlist)
	r.Get("/waitlist", h.ListWaitlist)
	r.Delete("/waitlist/{waitlistID}", h.RemoveWaitlistEntry)
	r.Get("/appointments/{appointmentID}", h.GetAppointment)
	r.Get("/doctors", h.ListDoctors)
}

// GetAvailability handles GET /api/calendar/availability?date=&doctor=&appointment_type=.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	q := AvailabilityQuery{
		Date:            r.URL.Query().Get("date"),
		Doctor:          r.URL.Query().Get("doctor"),
		AppointmentType: AppointmentType(r.URL.Query().Get("appointment_type")),
	}
	slots, err := h.service.GetAvailability(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if slots == nil {
		slots = []Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"date":    q.Date,
		"slots":   slots,
		"count":   len(slots),
	})
}

// Book handles POST /api/calendar/book.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, newError(KindValidation, "invalid request body"))
		return
	}
	appt, err := h.service.Book(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":        true,
		"appointment_id": appt.ID,
		"end_time":       appt.End,
		"appointment":    appt,
	})
}

// Reschedule handles POST /api/calendar/reschedule.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, newError(KindValidation, "invalid request body"))
		return
	}
	result, err := h.service.Reschedule(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"appointment_id": result.AppointmentID,
		"old":            result.Old,
		"new":            result.New,
	})
}

// Cancel handles POST /api/calendar/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, newError(KindValidation, "invalid request body"))
		return
	}
	result, err := h.service.Cancel(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"appointment_id": result.AppointmentID,
		"freed_slot":     result.FreedSlot,
	})
}

// AddToWaitlist handles POST /api/calendar/waitlist.
func (h *Handler) AddToWaitlist(w http.ResponseWriter, r *http.Request) {
	var req WaitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, newError(KindValidation, "invalid request body"))
		return
	}
	entry, err := h.service.AddToWaitlist(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"waitlist_id": entry.ID,
		"entry":       entry,
	})
}

// ListWaitlist handles GET /api/calendar/waitlist?date=&appointment_type=.
func (h *Handler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	apptType := AppointmentType(r.URL.Query().Get("appointment_type"))
	entries, err := h.service.ListWaitlist(r.Context(), date, apptType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*WaitlistEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"entries": entries,
		"count":   len(entries),
	})
}

// RemoveWaitlistEntry handles DELETE /api/calendar/waitlist/{waitlistID}.
func (h *Handler) RemoveWaitlistEntry(w http.ResponseWriter, r *http.Request) {
	waitlistID := chi.URLParam(r, "waitlistID")
	if err := h.service.RemoveWaitlistEntry(r.Context(), waitlistID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"waitlist_id": waitlistID,
	})
}

// GetAppointment handles GET /api/calendar/appointments/{appointmentID}.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "appointmentID")
	appt, err := h.service.GetAppointment(r.Context(), appointmentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"appointment": appt,
	})
}

// ListDoctors handles GET /api/calendar/doctors.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"doctors": h.service.Doctors(),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("calendar request failed", "error", err)
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error": map[string]string{
			"kind":    string(kind),
			"message": err.Error(),
		},
	})
}

func statusForKind(kind Kind) int {
	switch kind {
	case KindValidation, KindUnknownAppointmentType, KindOutOfHours:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindVerification:
		return http.StatusForbidden
	case KindSlotUnavailable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
