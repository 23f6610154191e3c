// Package slots defines the accumulating structured representation of a
// task or meeting being built up through dialogue, plus the merge and
// validation rules the dialogue layer relies on.
package slots

import (
	"fmt"
	"time"
)

// ActionType identifies what kind of item a slot set describes.
type ActionType string

const (
	ActionCreateTask      ActionType = "create_task"
	ActionScheduleMeeting ActionType = "schedule_meeting"
)

// ScheduleType describes how an item recurs.
type ScheduleType string

const (
	ScheduleOneDay       ScheduleType = "one-day"
	ScheduleRoutine      ScheduleType = "routine"
	ScheduleSpecificDays ScheduleType = "specific-days"
)

// Field names used in missing-field lists and extraction requests.
const (
	FieldTitle     = "title"
	FieldStartDate = "startDateISO"
)

// Reminder and duration defaults applied by the action executor.
const (
	DefaultTaskLeadMinutes    = 15
	DefaultMeetingLeadMinutes = 10
	DefaultMeetingDuration    = 30
)

// ScheduleTime holds the reminder timing for an item. Exactly one of
// FixedTime ("15:04" clock time) or MinutesBeforeStart is meaningful.
type ScheduleTime struct {
	FixedTime          string `json:"fixedTime,omitempty"`
	MinutesBeforeStart int    `json:"minutesBeforeStart,omitempty"`
}

// SlotSet is the item under construction. Fields are enriched or corrected
// across turns, never discarded.
type SlotSet struct {
	Title           string        `json:"title,omitempty"`
	Description     string        `json:"description,omitempty"`
	ScheduleType    ScheduleType  `json:"scheduleType,omitempty"`
	StartDateISO    string        `json:"startDateISO,omitempty"`
	ScheduleDays    []DayCode     `json:"scheduleDays,omitempty"`
	ScheduleTime    *ScheduleTime `json:"scheduleTime,omitempty"`
	IsRoutine       bool          `json:"isRoutine,omitempty"`
	DurationMinutes int           `json:"duration,omitempty"`
}

// Merge applies non-zero fields from patch onto s. ScheduleTime is merged
// field by field rather than replaced wholesale, so a patch supplying only
// a new fixed time keeps an existing lead-time setting intact.
func (s *SlotSet) Merge(patch SlotSet) {
	if patch.Title != "" {
		s.Title = patch.Title
	}
	if patch.Description != "" {
		s.Description = patch.Description
	}
	if patch.ScheduleType != "" {
		s.ScheduleType = patch.ScheduleType
	}
	if patch.StartDateISO != "" {
		s.StartDateISO = patch.StartDateISO
	}
	if len(patch.ScheduleDays) > 0 {
		s.ScheduleDays = append([]DayCode(nil), patch.ScheduleDays...)
	}
	if patch.ScheduleTime != nil {
		if s.ScheduleTime == nil {
			s.ScheduleTime = &ScheduleTime{}
		}
		if patch.ScheduleTime.FixedTime != "" {
			s.ScheduleTime.FixedTime = patch.ScheduleTime.FixedTime
			s.ScheduleTime.MinutesBeforeStart = 0
		}
		if patch.ScheduleTime.MinutesBeforeStart > 0 {
			s.ScheduleTime.MinutesBeforeStart = patch.ScheduleTime.MinutesBeforeStart
			s.ScheduleTime.FixedTime = ""
		}
	}
	if patch.IsRoutine {
		s.IsRoutine = true
	}
	if patch.DurationMinutes > 0 {
		s.DurationMinutes = patch.DurationMinutes
	}
}

// IsRecurring reports whether the schedule type implies a recurring pattern
// that needs no anchor date.
func (s *SlotSet) IsRecurring() bool {
	return s.ScheduleType == ScheduleRoutine || s.ScheduleType == ScheduleSpecificDays
}

// MissingFields returns the names of required fields not yet present, in a
// stable order. Title is always required; a start date is required unless
// the schedule is recurring.
func (s *SlotSet) MissingFields(action ActionType) []string {
	var missing []string
	if s.Title == "" {
		missing = append(missing, FieldTitle)
	}
	if s.StartDateISO == "" && !s.IsRecurring() {
		missing = append(missing, FieldStartDate)
	}
	return missing
}

// Validate checks that the slot set is complete and internally consistent
// for the given action type.
func (s *SlotSet) Validate(action ActionType) error {
	if missing := s.MissingFields(action); len(missing) > 0 {
		return fmt.Errorf("missing required fields: %v", missing)
	}
	if s.StartDateISO != "" {
		if _, err := time.Parse(time.RFC3339, s.StartDateISO); err != nil {
			return fmt.Errorf("invalid start date %q: %w", s.StartDateISO, err)
		}
	}
	switch s.ScheduleType {
	case ScheduleSpecificDays:
		if len(s.ScheduleDays) == 0 {
			return fmt.Errorf("specific-days schedule requires at least one day")
		}
	case ScheduleRoutine:
		// Daily routines carry all seven days; tolerate an unset list and
		// let the executor fill it.
	}
	if s.DurationMinutes < 0 {
		return fmt.Errorf("duration must be positive, got %d", s.DurationMinutes)
	}
	return nil
}

// SetDaily marks the slot set as a daily routine covering all seven days.
func (s *SlotSet) SetDaily() {
	s.ScheduleType = ScheduleRoutine
	s.ScheduleDays = append([]DayCode(nil), AllDays...)
	s.IsRoutine = true
}

// SetSpecificDays marks the slot set as recurring on the given days.
func (s *SlotSet) SetSpecificDays(days []DayCode) {
	s.ScheduleType = ScheduleSpecificDays
	s.ScheduleDays = append([]DayCode(nil), days...)
	s.IsRoutine = true
}

// SetOneOff forces a non-recurring schedule, used when the user declines
// the routine offer.
func (s *SlotSet) SetOneOff() {
	s.ScheduleType = ScheduleOneDay
	s.ScheduleDays = nil
	s.IsRoutine = false
}

// StartTime parses the anchor date. Returns the zero time when unset.
func (s *SlotSet) StartTime() (time.Time, error) {
	if s.StartDateISO == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s.StartDateISO)
}
