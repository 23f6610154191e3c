package slots

import (
	"reflect"
	"testing"
)

func TestMerge_NonZeroOverwrites(t *testing.T) {
	s := SlotSet{Title: "call mom", StartDateISO: "2026-09-01T17:00:00Z"}
	s.Merge(SlotSet{Title: "call dad"})

	if s.Title != "call dad" {
		t.Errorf("Title = %q, want %q", s.Title, "call dad")
	}
	if s.StartDateISO != "2026-09-01T17:00:00Z" {
		t.Errorf("StartDateISO = %q, want unchanged", s.StartDateISO)
	}
}

func TestMerge_ZeroFieldsAreNoOps(t *testing.T) {
	s := SlotSet{Title: "standup", Description: "daily sync", DurationMinutes: 45}
	s.Merge(SlotSet{})

	want := SlotSet{Title: "standup", Description: "daily sync", DurationMinutes: 45}
	if !reflect.DeepEqual(s, want) {
		t.Errorf("Merge(zero) = %+v, want %+v", s, want)
	}
}

func TestMerge_FixedTimeClearsLead(t *testing.T) {
	s := SlotSet{ScheduleTime: &ScheduleTime{MinutesBeforeStart: 20}}
	s.Merge(SlotSet{ScheduleTime: &ScheduleTime{FixedTime: "08:30"}})

	if s.ScheduleTime.FixedTime != "08:30" {
		t.Errorf("FixedTime = %q, want %q", s.ScheduleTime.FixedTime, "08:30")
	}
	if s.ScheduleTime.MinutesBeforeStart != 0 {
		t.Errorf("MinutesBeforeStart = %d, want 0", s.ScheduleTime.MinutesBeforeStart)
	}
}

func TestMissingFields(t *testing.T) {
	tests := []struct {
		name string
		set  SlotSet
		want []string
	}{
		{"empty", SlotSet{}, []string{FieldTitle, FieldStartDate}},
		{"title only", SlotSet{Title: "gym"}, []string{FieldStartDate}},
		{"complete one-off", SlotSet{Title: "gym", StartDateISO: "2026-09-01T07:00:00Z"}, nil},
		{"recurring needs no date", SlotSet{Title: "gym", ScheduleType: ScheduleRoutine}, nil},
		{"specific days needs no date", SlotSet{Title: "gym", ScheduleType: ScheduleSpecificDays, ScheduleDays: []DayCode{Monday}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.set.MissingFields(ActionCreateTask)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingFields() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate_SpecificDaysRequiresDays(t *testing.T) {
	s := SlotSet{Title: "gym", ScheduleType: ScheduleSpecificDays}
	if err := s.Validate(ActionCreateTask); err == nil {
		t.Error("Validate() = nil, want error for specific-days without days")
	}
}

func TestSetDaily(t *testing.T) {
	var s SlotSet
	s.SetDaily()

	if s.ScheduleType != ScheduleRoutine {
		t.Errorf("ScheduleType = %q, want %q", s.ScheduleType, ScheduleRoutine)
	}
	if !s.IsRoutine {
		t.Error("IsRoutine = false, want true")
	}
	if len(s.ScheduleDays) != 7 {
		t.Errorf("len(ScheduleDays) = %d, want 7", len(s.ScheduleDays))
	}
}

func TestSetOneOff_ClearsRecurrence(t *testing.T) {
	var s SlotSet
	s.SetSpecificDays([]DayCode{Monday, Thursday})
	s.SetOneOff()

	if s.IsRoutine || s.ScheduleDays != nil || s.ScheduleType != ScheduleOneDay {
		t.Errorf("SetOneOff left recurrence state: %+v", s)
	}
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		text string
		want []DayCode
	}{
		{"monday and thursday", []DayCode{Monday, Thursday}},
		{"Mon, Wed, Fri please", []DayCode{Monday, Wednesday, Friday}},
		{"on weekdays", []DayCode{Monday, Tuesday, Wednesday, Thursday, Friday}},
		{"weekends work best", []DayCode{Sunday, Saturday}},
		{"every day", nil},
		{"everyday", AllDays},
		{"tuesday tuesday tuesday", []DayCode{Tuesday}},
		{"no days here", nil},
	}
	for _, tt := range tests {
		got := ParseDays(tt.text)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseDays(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestNormalizeDays_DedupsInCalendarOrder(t *testing.T) {
	got := NormalizeDays([]string{"friday", "MO", "Fri", "bogus"})
	want := []DayCode{Monday, Friday}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeDays() = %v, want %v", got, want)
	}
}
