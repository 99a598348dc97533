package scheduling

import (
	"sort"
	"sync"
)

// Run is a maximal contiguous stretch of available increments on one doctor's
// day. Start and End are minutes since midnight; [Start, End) is free.
type Run struct {
	Doctor string
	Date   string
	Start  int
	End    int
}

type dayGrid struct {
	open  int // minutes since midnight
	close int
	free  []bool // one flag per increment in [open, close)
}

// Registry holds the authoritative availability grid per doctor per day.
// Grids are created once at schedule-load time and mutated only through Mark;
// they are never deleted. Runs are recomputed on demand rather than cached:
// mutation volume is tiny and recomputation keeps the structure trivially
// consistent.
type Registry struct {
	mu        sync.RWMutex
	increment int
	days      map[string]*dayGrid // doctor + "\x00" + date
	doctors   map[string]struct{}
}

// NewRegistry creates an empty registry with the given grid increment in
// minutes (15 if non-positive).
func NewRegistry(incrementMinutes int) *Registry {
	if incrementMinutes <= 0 {
		incrementMinutes = 15
	}
	return &Registry{
		increment: incrementMinutes,
		days:      make(map[string]*dayGrid),
		doctors:   make(map[string]struct{}),
	}
}

// Increment returns the grid granularity in minutes.
func (r *Registry) Increment() int {
	return r.increment
}

func dayKey(doctor, date string) string {
	return doctor + "\x00" + date
}

// AddDay registers a fully-available grid for one doctor and date. openMin and
// closeMin are minutes since midnight and must align to the increment.
func (r *Registry) AddDay(doctor, date string, openMin, closeMin int) error {
	if doctor == "" || date == "" {
		return newError(KindValidation, "doctor and date are required")
	}
	if closeMin <= openMin {
		return newError(KindValidation, "closing time %s is not after opening time %s", formatClock(closeMin), formatClock(openMin))
	}
	if (closeMin-openMin)%r.increment != 0 || openMin%r.increment != 0 {
		return newError(KindValidation, "business hours %s-%s do not align to the %d-minute grid", formatClock(openMin), formatClock(closeMin), r.increment)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	units := (closeMin - openMin) / r.increment
	grid := &dayGrid{open: openMin, close: closeMin, free: make([]bool, units)}
	for i := range grid.free {
		grid.free[i] = true
	}
	r.days[dayKey(doctor, date)] = grid
	r.doctors[doctor] = struct{}{}
	return nil
}

// Doctors returns the configured doctor names in lexical order.
func (r *Registry) Doctors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.doctors))
	for name := range r.doctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasDay reports whether a grid exists for the doctor/date combination.
func (r *Registry) HasDay(doctor, date string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.days[dayKey(doctor, date)]
	return ok
}

// Hours returns the configured business hours for a doctor's day.
func (r *Registry) Hours(doctor, date string) (open, close int, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	grid, ok := r.days[dayKey(doctor, date)]
	if !ok {
		return 0, 0, newError(KindNotFound, "no schedule for %s on %s", doctor, date)
	}
	return grid.open, grid.close, nil
}

// IsAvailable reports whether every increment in [start, end) is free.
func (r *Registry) IsAvailable(doctor, date string, start, end int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	grid, ok := r.days[dayKey(doctor, date)]
	if !ok {
		return false, newError(KindNotFound, "no schedule for %s on %s", doctor, date)
	}
	if start < grid.open || end > grid.close || end <= start {
		return false, nil
	}
	for i := (start - grid.open) / r.increment; i < (end-grid.open+r.increment-1)/r.increment; i++ {
		if !grid.free[i] {
			return false, nil
		}
	}
	return true, nil
}

// Mark sets every increment in [start, end) to the given availability.
func (r *Registry) Mark(doctor, date string, start, end int, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	grid, ok := r.days[dayKey(doctor, date)]
	if !ok {
		return newError(KindNotFound, "no schedule for %s on %s", doctor, date)
	}
	if start < grid.open || end > grid.close || end <= start {
		return newError(KindOutOfHours, "range %s-%s falls outside business hours %s-%s",
			formatClock(start), formatClock(end), formatClock(grid.open), formatClock(grid.close))
	}
	for i := (start - grid.open) / r.increment; i < (end-grid.open+r.increment-1)/r.increment; i++ {
		grid.free[i] = available
	}
	return nil
}

// AvailableRuns returns the maximal contiguous available runs for one doctor's
// day, ascending by start time.
func (r *Registry) AvailableRuns(doctor, date string) ([]Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	grid, ok := r.days[dayKey(doctor, date)]
	if !ok {
		return nil, newError(KindNotFound, "no schedule for %s on %s", doctor, date)
	}

	var runs []Run
	runStart := -1
	for i, free := range grid.free {
		switch {
		case free && runStart < 0:
			runStart = i
		case !free && runStart >= 0:
			runs = append(runs, Run{
				Doctor: doctor,
				Date:   date,
				Start:  grid.open + runStart*r.increment,
				End:    grid.open + i*r.increment,
			})
			runStart = -1
		}
	}
	if runStart >= 0 {
		runs = append(runs, Run{
			Doctor: doctor,
			Date:   date,
			Start:  grid.open + runStart*r.increment,
			End:    grid.close,
		})
	}
	return runs, nil
}
