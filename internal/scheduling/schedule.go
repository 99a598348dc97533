package scheduling

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// ScheduleConfig is the static clinic schedule loaded once at process start.
// Each doctor gets a fully-available grid for every working date in
// [From, To], excluding ClosedWeekdays.
type ScheduleConfig struct {
	SlotIncrementMinutes int              `json:"slot_increment_minutes"`
	Doctors              []DoctorSchedule `json:"doctors"`
}

// DoctorSchedule describes one doctor's working pattern.
type DoctorSchedule struct {
	Name           string   `json:"name"`
	Specialty      string   `json:"specialty,omitempty"`
	Hours          Hours    `json:"hours"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	ClosedWeekdays []string `json:"closed_weekdays,omitempty"`
}

// Hours are daily business hours in HH:MM.
type Hours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// LoadScheduleConfig reads and validates a schedule file.
func LoadScheduleConfig(path string) (*ScheduleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scheduling: read schedule %s: %w", path, err)
	}
	var cfg ScheduleConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("scheduling: parse schedule %s: %w", path, err)
	}
	if len(cfg.Doctors) == 0 {
		return nil, fmt.Errorf("scheduling: schedule %s configures no doctors", path)
	}
	return &cfg, nil
}

// BuildRegistry materializes the availability grids described by cfg.
func BuildRegistry(cfg *ScheduleConfig) (*Registry, error) {
	registry := NewRegistry(cfg.SlotIncrementMinutes)

	for _, doc := range cfg.Doctors {
		if strings.TrimSpace(doc.Name) == "" {
			return nil, fmt.Errorf("scheduling: doctor with empty name in schedule")
		}
		open, err := parseClock(doc.Hours.Start)
		if err != nil {
			return nil, fmt.Errorf("scheduling: %s opening time: %w", doc.Name, err)
		}
		close, err := parseClock(doc.Hours.End)
		if err != nil {
			return nil, fmt.Errorf("scheduling: %s closing time: %w", doc.Name, err)
		}
		from, err := parseDate(doc.From)
		if err != nil {
			return nil, fmt.Errorf("scheduling: %s from date: %w", doc.Name, err)
		}
		to, err := parseDate(doc.To)
		if err != nil {
			return nil, fmt.Errorf("scheduling: %s to date: %w", doc.Name, err)
		}
		if to.Before(from) {
			return nil, fmt.Errorf("scheduling: %s schedule range %s..%s is inverted", doc.Name, doc.From, doc.To)
		}

		closed := make(map[time.Weekday]bool)
		for _, name := range doc.ClosedWeekdays {
			wd, err := parseWeekday(name)
			if err != nil {
				return nil, fmt.Errorf("scheduling: %s: %w", doc.Name, err)
			}
			closed[wd] = true
		}

		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			if closed[day.Weekday()] {
				continue
			}
			if err := registry.AddDay(doc.Name, day.Format(dateLayout), open, close); err != nil {
				return nil, fmt.Errorf("scheduling: %s %s: %w", doc.Name, day.Format(dateLayout), err)
			}
		}
	}
	return registry, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}
