package scheduling

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/healthcareplus/clinic-assistant/internal/observability/metrics"
	"github.com/healthcareplus/clinic-assistant/pkg/logging"
)

// Service is the single entry point for calendar operations. It composes the
// registry, availability engine, ledger and waitlist behind one RWMutex so a
// check made during a mutation cannot be invalidated by a concurrent writer.
type Service struct {
	mu         sync.RWMutex
	registry   *Registry
	engine     *Engine
	ledger     *Ledger
	waitlist   *Waitlist
	validate   *validator.Validate
	logger     *logging.Logger
	metrics    *metrics.SchedulingMetrics
	maxResults int
}

// NewService wires a service over an already-built registry. maxResults caps
// availability responses; metrics may be nil.
func NewService(registry *Registry, policy *DurationPolicy, loc *time.Location, maxResults int, logger *logging.Logger, m *metrics.SchedulingMetrics) *Service {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if logger == nil {
		logger = logging.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		registry:   registry,
		engine:     NewEngine(registry, policy, loc),
		ledger:     NewLedger(registry, policy),
		waitlist:   NewWaitlist(),
		validate:   v,
		logger:     logger.Named("scheduling"),
		metrics:    m,
		maxResults: maxResults,
	}
}

// SetClock overrides the clock on every component. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.engine.SetClock(now)
	s.ledger.SetClock(now)
	s.waitlist.SetClock(now)
}

// Doctors lists every doctor with at least one scheduled day.
func (s *Service) Doctors() []string {
	return s.registry.Doctors()
}

// GetAvailability returns up to maxResults bookable slots for the query. An
// empty appointment type defaults to a general consultation.
func (s *Service) GetAvailability(ctx context.Context, q AvailabilityQuery) ([]Slot, error) {
	if err := s.checkStruct(q); err != nil {
		return nil, err
	}
	apptType, err := normalizeType(q.AppointmentType)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	started := time.Now()
	slots, err := s.engine.FindSlots(q.Date, q.Doctor, apptType, s.maxResults)
	s.metrics.ObserveAvailabilityLatency(time.Since(started).Seconds())
	if err != nil {
		s.metrics.ObserveOperation("availability", string(KindOf(err)))
		return nil, err
	}
	s.metrics.ObserveOperation("availability", "ok")
	return slots, nil
}

// Book confirms an appointment, re-checking availability at commit time.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := s.checkStruct(req); err != nil {
		s.metrics.ObserveOperation("book", string(KindValidation))
		return nil, err
	}
	apptType, err := normalizeType(req.Type)
	if err != nil {
		s.metrics.ObserveOperation("book", string(KindOf(err)))
		return nil, err
	}
	req.Type = apptType

	s.mu.Lock()
	defer s.mu.Unlock()

	appt, err := s.ledger.Book(req)
	if err != nil {
		s.metrics.ObserveOperation("book", string(KindOf(err)))
		s.logger.Warn("booking rejected",
			"doctor", req.Doctor, "date", req.Date, "start", req.StartTime, "error", err)
		return nil, err
	}
	s.metrics.ObserveOperation("book", "confirmed")
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID, "doctor", appt.Doctor, "date", appt.Date,
		"start", appt.Start, "type", string(appt.Type))
	return appt, nil
}

// Reschedule moves an appointment to a new date and start time. The move is
// atomic: on any failure the original reservation is untouched.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*RescheduleResult, error) {
	if err := s.checkStruct(req); err != nil {
		s.metrics.ObserveOperation("reschedule", string(KindValidation))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, updated, err := s.ledger.Reschedule(req.AppointmentID, req.NewDate, req.NewStartTime)
	if err != nil {
		s.metrics.ObserveOperation("reschedule", string(KindOf(err)))
		return nil, err
	}
	s.metrics.ObserveOperation("reschedule", "ok")
	s.logger.Info("appointment rescheduled",
		"appointment_id", updated.ID, "old_date", old.Date, "old_start", old.Start,
		"new_date", updated.Date, "new_start", updated.Start)
	return &RescheduleResult{
		AppointmentID: updated.ID,
		Old:           SlotRef{Date: old.Date, Start: old.Start, End: old.End},
		New:           SlotRef{Date: updated.Date, Start: updated.Start, End: updated.End},
	}, nil
}

// Cancel releases the appointment's slots, buffer included, and soft-deletes
// the entry.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	if err := s.checkStruct(req); err != nil {
		s.metrics.ObserveOperation("cancel", string(KindValidation))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	appt, err := s.ledger.Cancel(req.AppointmentID, req.PatientEmail)
	if err != nil {
		s.metrics.ObserveOperation("cancel", string(KindOf(err)))
		return nil, err
	}
	s.metrics.ObserveOperation("cancel", "ok")
	s.logger.Info("appointment cancelled",
		"appointment_id", appt.ID, "doctor", appt.Doctor, "date", appt.Date, "start", appt.Start)
	return &CancelResult{
		AppointmentID: appt.ID,
		FreedSlot:     SlotRef{Date: appt.Date, Start: appt.Start, End: appt.ReservedUntil},
	}, nil
}

// AddToWaitlist records unmet demand for a date.
func (s *Service) AddToWaitlist(ctx context.Context, req WaitlistRequest) (*WaitlistEntry, error) {
	if err := s.checkStruct(req); err != nil {
		s.metrics.ObserveOperation("waitlist_add", string(KindValidation))
		return nil, err
	}
	apptType, err := normalizeType(req.Type)
	if err != nil {
		s.metrics.ObserveOperation("waitlist_add", string(KindOf(err)))
		return nil, err
	}
	req.Type = apptType

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.waitlist.Add(req)
	if err != nil {
		s.metrics.ObserveOperation("waitlist_add", string(KindOf(err)))
		return nil, err
	}
	s.metrics.ObserveOperation("waitlist_add", "ok")
	s.metrics.SetWaitlistDepth(len(s.waitlist.List("", "")))
	s.logger.Info("waitlist entry added",
		"waitlist_id", entry.ID, "preferred_date", entry.PreferredDate, "type", string(entry.Type))
	return entry, nil
}

// ListWaitlist returns entries filtered by date and type; empty filters match
// everything.
func (s *Service) ListWaitlist(ctx context.Context, date string, apptType AppointmentType) ([]*WaitlistEntry, error) {
	if apptType != "" {
		normalized, err := normalizeType(apptType)
		if err != nil {
			return nil, err
		}
		apptType = normalized
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.waitlist.List(date, apptType), nil
}

// RemoveWaitlistEntry deletes a waitlist entry by id.
func (s *Service) RemoveWaitlistEntry(ctx context.Context, waitlistID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.waitlist.Remove(waitlistID); err != nil {
		s.metrics.ObserveOperation("waitlist_remove", string(KindOf(err)))
		return err
	}
	s.metrics.ObserveOperation("waitlist_remove", "ok")
	s.metrics.SetWaitlistDepth(len(s.waitlist.List("", "")))
	return nil
}

// GetAppointment returns a snapshot of one appointment, cancelled included.
func (s *Service) GetAppointment(ctx context.Context, appointmentID string) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Get(appointmentID)
}

func (s *Service) checkStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return newError(KindValidation, "invalid request")
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return newError(KindValidation, "%s is required", fe.Field())
	case "email":
		return newError(KindValidation, "%s is not a valid email address", fe.Field())
	default:
		return newError(KindValidation, "%s is invalid", fe.Field())
	}
}

// normalizeType maps free-form appointment type input onto a canonical type.
// Empty input means a general consultation.
func normalizeType(t AppointmentType) (AppointmentType, error) {
	if strings.TrimSpace(string(t)) == "" {
		return TypeGeneralConsultation, nil
	}
	return ParseAppointmentType(string(t))
}
