// Package schedule parses free-form scheduling phrases into weekdays.
package schedule

import (
	"strings"
	"time"

	"github.com/davekern/repcoach/internal/workout"
)

// Spread returns the even weekday distribution for training n days a
// week (3 → Mon/Wed/Fri, 7 → every day). n outside 1-7 yields nil.
func Spread(n int) []workout.Weekday {
	return orderedDays(frequencySpreads[n])
}

// frequencySpreads maps a bare weekly frequency to an even distribution
// of training days across the week.
var frequencySpreads = map[int][]time.Weekday{
	1: {time.Monday},
	2: {time.Monday, time.Thursday},
	3: {time.Monday, time.Wednesday, time.Friday},
	4: {time.Monday, time.Tuesday, time.Thursday, time.Friday},
	5: {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	6: {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
	7: {time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
}

var numberWords = map[string]int{
	"one": 1, "once": 1,
	"two": 2, "twice": 2,
	"three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
}

// declinePhrases mark the user opting out of scheduling entirely.
var declinePhrases = []string{
	"don't schedule", "dont schedule", "do not schedule",
	"no specific day", "no particular day", "no schedule",
	"skip", "not now", "no thanks", "nothing", "none",
}

// ParseDays extracts a set of distinct weekdays from a scheduling
// phrase. It never fails: unparseable input yields an empty set, which
// callers treat as "no schedule". The result is ordered Sunday-first
// (time.Weekday order) and duplicate-free.
func ParseDays(phrase string) []workout.Weekday {
	text := strings.ToLower(strings.TrimSpace(phrase))
	if text == "" {
		return nil
	}

	for _, p := range declinePhrases {
		if strings.Contains(text, p) {
			return nil
		}
	}

	var present [7]bool
	found := false

	// Explicit day names win over everything else.
	for _, token := range tokens(text) {
		if d, ok := workout.ParseWeekday(token); ok {
			present[d.Weekday] = true
			found = true
		}
	}

	if !found {
		switch {
		case strings.Contains(text, "every day") || strings.Contains(text, "everyday") || strings.Contains(text, "daily"):
			return orderedDays(frequencySpreads[7])
		case strings.Contains(text, "weekend"):
			return orderedDays([]time.Weekday{time.Sunday, time.Saturday})
		case strings.Contains(text, "weekday"):
			return orderedDays(frequencySpreads[5])
		}
		if n, ok := parseFrequency(text); ok {
			return orderedDays(frequencySpreads[n])
		}
		return nil
	}

	var days []workout.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if present[d] {
			days = append(days, workout.Day(d))
		}
	}
	return days
}

// parseFrequency finds a weekly count like "3 times a week", "four
// days", or "twice a week". Counts outside 1-7 are ignored.
func parseFrequency(text string) (int, bool) {
	for _, token := range tokens(text) {
		n := 0
		switch {
		case len(token) == 1 && token[0] >= '1' && token[0] <= '7':
			n = int(token[0] - '0')
		default:
			n = numberWords[token]
		}
		if n >= 1 && n <= 7 {
			return n, true
		}
	}
	return 0, false
}

func tokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', ',', '.', ';', ':', '!', '?', '/', '&', '\n', '\t':
			return true
		}
		return false
	})
}

func orderedDays(src []time.Weekday) []workout.Weekday {
	var present [7]bool
	for _, d := range src {
		present[d] = true
	}
	var days []workout.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if present[d] {
			days = append(days, workout.Day(d))
		}
	}
	return days
}
