package slots

import (
	"strings"
	"time"
)

// DayCode is a two-letter weekday code as stored in schedules.
type DayCode string

const (
	Sunday    DayCode = "SU"
	Monday    DayCode = "MO"
	Tuesday   DayCode = "TU"
	Wednesday DayCode = "WE"
	Thursday  DayCode = "TH"
	Friday    DayCode = "FR"
	Saturday  DayCode = "SA"
)

// AllDays lists every weekday code in calendar order.
var AllDays = []DayCode{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekDays covers Monday through Friday.
var WeekDays = []DayCode{Monday, Tuesday, Wednesday, Thursday, Friday}

// WeekendDays covers Saturday and Sunday.
var WeekendDays = []DayCode{Saturday, Sunday}

var dayAliases = map[string]DayCode{
	"su": Sunday, "sun": Sunday, "sunday": Sunday,
	"mo": Monday, "mon": Monday, "monday": Monday,
	"tu": Tuesday, "tue": Tuesday, "tues": Tuesday, "tuesday": Tuesday,
	"we": Wednesday, "wed": Wednesday, "wednesday": Wednesday,
	"th": Thursday, "thu": Thursday, "thur": Thursday, "thurs": Thursday, "thursday": Thursday,
	"fr": Friday, "fri": Friday, "friday": Friday,
	"sa": Saturday, "sat": Saturday, "saturday": Saturday,
}

// NormalizeDay maps a weekday name, abbreviation, or code to a DayCode.
func NormalizeDay(raw string) (DayCode, bool) {
	d, ok := dayAliases[strings.ToLower(strings.TrimSpace(raw))]
	return d, ok
}

// NormalizeDays maps a list of raw day strings to codes, dropping anything
// unrecognized and deduplicating while preserving calendar order.
func NormalizeDays(raw []string) []DayCode {
	seen := map[DayCode]bool{}
	for _, r := range raw {
		if d, ok := NormalizeDay(r); ok {
			seen[d] = true
		}
	}
	return orderedDays(seen)
}

// ParseDays extracts weekday codes from free text. It understands named
// weekdays, common abbreviations, "weekdays", "weekends", "daily", and
// "everyday". Returns nil when nothing recognizable is present.
func ParseDays(text string) []DayCode {
	seen := map[DayCode]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		switch tok {
		case "weekday", "weekdays":
			for _, d := range WeekDays {
				seen[d] = true
			}
		case "weekend", "weekends":
			for _, d := range WeekendDays {
				seen[d] = true
			}
		case "daily", "everyday":
			for _, d := range AllDays {
				seen[d] = true
			}
		default:
			if d, ok := dayAliases[tok]; ok {
				seen[d] = true
			}
		}
	}
	return orderedDays(seen)
}

func orderedDays(seen map[DayCode]bool) []DayCode {
	if len(seen) == 0 {
		return nil
	}
	days := make([]DayCode, 0, len(seen))
	for _, d := range AllDays {
		if seen[d] {
			days = append(days, d)
		}
	}
	return days
}

// Weekday converts a code to the time.Weekday it represents.
func (d DayCode) Weekday() time.Weekday {
	switch d {
	case Sunday:
		return time.Sunday
	case Monday:
		return time.Monday
	case Tuesday:
		return time.Tuesday
	case Wednesday:
		return time.Wednesday
	case Thursday:
		return time.Thursday
	case Friday:
		return time.Friday
	default:
		return time.Saturday
	}
}

// DayName returns the human-readable weekday name for summaries.
func (d DayCode) DayName() string {
	return d.Weekday().String()
}
