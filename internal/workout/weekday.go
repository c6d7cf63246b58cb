package workout

import (
	"fmt"
	"strings"
	"time"
)

// Weekday wraps time.Weekday so it serializes as the day name
// ("Monday") rather than an integer. This is the canonical weekday
// representation everywhere in the engine; free-text day phrases are
// parsed exactly once, at the schedule-parsing boundary.
type Weekday struct {
	time.Weekday
}

// Day is a convenience constructor.
func Day(d time.Weekday) Weekday {
	return Weekday{d}
}

// MarshalJSON implements json.Marshaler.
func (w Weekday) MarshalJSON() ([]byte, error) {
	return []byte(`"` + w.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. It accepts full day names,
// three-letter abbreviations, and integers 0 (Sunday) through 6.
func (w *Weekday) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		w.Weekday = time.Weekday(s[0] - '0')
		return nil
	}
	parsed, ok := ParseWeekday(s)
	if !ok {
		return fmt.Errorf("unknown weekday %q", s)
	}
	*w = parsed
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday maps a day name or common abbreviation to a Weekday.
// Matching is case-insensitive.
func ParseWeekday(s string) (Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	return Weekday{d}, ok
}
