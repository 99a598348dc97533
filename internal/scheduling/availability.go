package scheduling

import (
	"sort"
	"time"
)

// Engine answers duration-aware availability queries against the registry.
// It performs reads only; all mutation goes through the ledger.
type Engine struct {
	registry *Registry
	policy   *DurationPolicy
	now      func() time.Time
	loc      *time.Location
}

// NewEngine creates an availability engine. loc controls "today" and
// past-start filtering; nil means time.Local.
func NewEngine(registry *Registry, policy *DurationPolicy, loc *time.Location) *Engine {
	if registry == nil {
		panic("scheduling: registry cannot be nil")
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		registry: registry,
		policy:   policy,
		now:      time.Now,
		loc:      loc,
	}
}

// SetClock overrides the engine's clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// FindSlots returns up to maxResults candidate slots for the date and
// appointment type, ascending by start time with doctor-name tiebreak. An
// empty result is not an error; the caller decides whether to offer the
// waitlist. Candidates need only the appointment duration free, but the
// trailing buffer must also fit inside the same run unless the run ends at
// closing time (see DurationPolicy.AllowBufferAtClose).
func (e *Engine) FindSlots(date, doctor string, apptType AppointmentType, maxResults int) ([]Slot, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	if _, err := parseDate(date); err != nil {
		return nil, err
	}
	duration, err := e.policy.DurationFor(apptType)
	if err != nil {
		return nil, err
	}

	doctors := e.registry.Doctors()
	if doctor != "" {
		doctors = []string{doctor}
	}

	now := e.now().In(e.loc)
	today := now.Format(dateLayout)
	minutesNow := now.Hour()*60 + now.Minute()

	var candidates []Slot
	for _, name := range doctors {
		if !e.registry.HasDay(name, date) {
			continue
		}
		_, close, err := e.registry.Hours(name, date)
		if err != nil {
			continue
		}
		runs, err := e.registry.AvailableRuns(name, date)
		if err != nil {
			continue
		}
		for _, run := range runs {
			for start := run.Start; start+duration <= run.End; start += e.registry.Increment() {
				end := start + duration
				bufferFits := end+e.policy.BufferMinutes <= run.End ||
					(e.policy.AllowBufferAtClose && run.End == close)
				if !bufferFits {
					continue
				}
				if date == today && start <= minutesNow {
					continue
				}
				candidates = append(candidates, Slot{
					Doctor:    name,
					Date:      date,
					Start:     formatClock(start),
					End:       formatClock(end),
					Available: true,
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Start != candidates[j].Start {
			return candidates[i].Start < candidates[j].Start
		}
		return candidates[i].Doctor < candidates[j].Doctor
	})

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates, nil
}
