package generator

import (
	"fmt"
	"strings"
	"time"

	"github.com/davekern/repcoach/internal/schedule"
	"github.com/davekern/repcoach/internal/slots"
	"github.com/davekern/repcoach/internal/workout"
)

// The fallback generator builds a complete, schema-valid plan from
// slots alone. It runs whenever the generation service errors, times
// out, or returns output the tolerant extractor cannot repair, so it
// must never come back empty-handed.

const defaultSessionMinutes = 45

// gymEquipment marks equipment lists that unlock loaded movements.
var gymEquipment = []string{"gym", "barbell", "dumbbell", "kettlebell", "machine", "cable", "rack"}

func hasGymAccess(equipment []string) bool {
	for _, item := range equipment {
		lower := strings.ToLower(item)
		for _, g := range gymEquipment {
			if strings.Contains(lower, g) {
				return true
			}
		}
	}
	return false
}

// splitKind selects the training split from weekly frequency.
type splitKind int

const (
	splitFullBody     splitKind = iota // <= 3 days
	splitUpperLower                    // 4-5 days
	splitPushPullLegs                  // >= 6 days
)

func splitFor(daysPerWeek int) splitKind {
	switch {
	case daysPerWeek <= 3:
		return splitFullBody
	case daysPerWeek <= 5:
		return splitUpperLower
	default:
		return splitPushPullLegs
	}
}

func ex(name string, sets int, reps string, rest int, groups ...string) workout.Exercise {
	return workout.Exercise{Name: name, Sets: sets, Reps: reps, RestSeconds: rest, MuscleGroups: groups}
}

// Deterministic exercise pools, keyed by day title. Loaded variants
// are used with gym access, bodyweight otherwise.
var loadedDays = map[string][]workout.Exercise{
	"Full Body": {
		ex("Barbell Squat", 4, "6-8", 120, "quads", "glutes"),
		ex("Bench Press", 4, "6-8", 120, "chest", "triceps"),
		ex("Bent-Over Row", 3, "8-10", 90, "back", "biceps"),
		ex("Overhead Press", 3, "8-10", 90, "shoulders", "triceps"),
		ex("Romanian Deadlift", 3, "8-10", 90, "hamstrings", "glutes"),
	},
	"Upper Body": {
		ex("Bench Press", 4, "6-8", 120, "chest", "triceps"),
		ex("Bent-Over Row", 4, "6-8", 120, "back", "biceps"),
		ex("Overhead Press", 3, "8-10", 90, "shoulders"),
		ex("Lat Pulldown", 3, "10-12", 60, "back", "biceps"),
		ex("Dumbbell Curl", 3, "10-12", 60, "biceps"),
	},
	"Lower Body": {
		ex("Barbell Squat", 4, "6-8", 120, "quads", "glutes"),
		ex("Romanian Deadlift", 4, "8-10", 120, "hamstrings", "glutes"),
		ex("Walking Lunge", 3, "10-12", 90, "quads", "glutes"),
		ex("Standing Calf Raise", 3, "12-15", 60, "calves"),
		ex("Plank", 3, "45s", 60, "core"),
	},
	"Push": {
		ex("Bench Press", 4, "6-8", 120, "chest", "triceps"),
		ex("Overhead Press", 3, "8-10", 90, "shoulders"),
		ex("Incline Dumbbell Press", 3, "8-10", 90, "chest"),
		ex("Triceps Pushdown", 3, "10-12", 60, "triceps"),
	},
	"Pull": {
		ex("Deadlift", 3, "5-6", 180, "back", "hamstrings"),
		ex("Pull-Up", 3, "6-10", 120, "back", "biceps"),
		ex("Seated Cable Row", 3, "8-10", 90, "back"),
		ex("Dumbbell Curl", 3, "10-12", 60, "biceps"),
	},
	"Legs": {
		ex("Barbell Squat", 4, "6-8", 120, "quads", "glutes"),
		ex("Leg Press", 3, "8-10", 90, "quads", "glutes"),
		ex("Leg Curl", 3, "10-12", 60, "hamstrings"),
		ex("Standing Calf Raise", 3, "12-15", 60, "calves"),
	},
}

var bodyweightDays = map[string][]workout.Exercise{
	"Full Body": {
		ex("Bodyweight Squat", 4, "15-20", 60, "quads", "glutes"),
		ex("Push-Up", 4, "10-15", 60, "chest", "triceps"),
		ex("Inverted Row", 3, "8-12", 60, "back", "biceps"),
		ex("Glute Bridge", 3, "15-20", 45, "glutes", "hamstrings"),
		ex("Plank", 3, "45s", 45, "core"),
	},
	"Upper Body": {
		ex("Push-Up", 4, "10-15", 60, "chest", "triceps"),
		ex("Pike Push-Up", 3, "8-12", 60, "shoulders"),
		ex("Inverted Row", 3, "8-12", 60, "back", "biceps"),
		ex("Chair Dip", 3, "10-15", 60, "triceps"),
	},
	"Lower Body": {
		ex("Bodyweight Squat", 4, "15-20", 60, "quads", "glutes"),
		ex("Reverse Lunge", 3, "10-12", 60, "quads", "glutes"),
		ex("Single-Leg Glute Bridge", 3, "10-12", 45, "glutes", "hamstrings"),
		ex("Wall Sit", 3, "45s", 45, "quads"),
	},
	"Push": {
		ex("Push-Up", 4, "10-15", 60, "chest", "triceps"),
		ex("Pike Push-Up", 3, "8-12", 60, "shoulders"),
		ex("Decline Push-Up", 3, "8-12", 60, "chest"),
		ex("Chair Dip", 3, "10-15", 60, "triceps"),
	},
	"Pull": {
		ex("Inverted Row", 4, "8-12", 60, "back", "biceps"),
		ex("Towel Row", 3, "10-12", 60, "back"),
		ex("Superman Hold", 3, "30s", 45, "back", "core"),
		ex("Doorway Curl", 3, "10-12", 45, "biceps"),
	},
	"Legs": {
		ex("Bodyweight Squat", 4, "15-20", 60, "quads", "glutes"),
		ex("Walking Lunge", 3, "10-12", 60, "quads", "glutes"),
		ex("Glute Bridge", 3, "15-20", 45, "glutes", "hamstrings"),
		ex("Calf Raise", 3, "15-20", 45, "calves"),
	},
}

// dayTitles returns the sequence of day titles for a split, one per
// training day.
func dayTitles(kind splitKind, daysPerWeek int) []string {
	var cycle []string
	switch kind {
	case splitFullBody:
		cycle = []string{"Full Body"}
	case splitUpperLower:
		cycle = []string{"Upper Body", "Lower Body"}
	case splitPushPullLegs:
		cycle = []string{"Push", "Pull", "Legs"}
	}
	titles := make([]string, daysPerWeek)
	for i := range titles {
		titles[i] = cycle[i%len(cycle)]
	}
	return titles
}

// FallbackPlan deterministically constructs a plan from the slot set.
// The result always validates: len(Days) == DaysPerWeek and every
// exercise carries muscle groups.
func FallbackPlan(s slots.SlotSet) *workout.WorkoutPlan {
	daysPerWeek := s.DaysPerWeek
	if daysPerWeek < 1 || daysPerWeek > 7 {
		daysPerWeek = 3
	}
	minutes := s.SessionLength
	if minutes <= 0 {
		minutes = defaultSessionMinutes
	}

	pool := bodyweightDays
	if hasGymAccess(s.Equipment) {
		pool = loadedDays
	}

	kind := splitFor(daysPerWeek)
	titles := dayTitles(kind, daysPerWeek)
	weekdays := schedule.Spread(daysPerWeek)

	days := make([]workout.WorkoutDay, daysPerWeek)
	for i, title := range titles {
		exercises := pool[title]
		cloned := make([]workout.Exercise, len(exercises))
		for j, e := range exercises {
			cloned[j] = e.Clone()
		}
		days[i] = workout.WorkoutDay{
			DayOfWeek:        weekdays[i],
			Title:            title,
			EstimatedMinutes: minutes,
			Exercises:        cloned,
		}
	}

	name := "Training Plan"
	if s.Goal != "" {
		name = fmt.Sprintf("%s Plan", titleCase(s.Goal))
	}

	return &workout.WorkoutPlan{
		Meta: workout.PlanMeta{
			Name:             name,
			StartDate:        nextMonday(time.Now()),
			LengthWeeks:      8,
			DaysPerWeek:      daysPerWeek,
			ProgressionModel: "linear",
			Notes:            "Add a small amount of weight or reps each week.",
		},
		Days: days,
	}
}

// FallbackWorkout deterministically constructs a single session from a
// description and parsed schedule.
func FallbackWorkout(description string, days []workout.Weekday) *workout.WorkoutPreview {
	title := strings.TrimSpace(description)
	if title == "" {
		title = "Custom Workout"
	} else {
		title = titleCase(title)
	}

	exercises := bodyweightDays["Full Body"]
	cloned := make([]workout.Exercise, len(exercises))
	for i, e := range exercises {
		cloned[i] = e.Clone()
	}

	return &workout.WorkoutPreview{
		Title:            title,
		EstimatedMinutes: defaultSessionMinutes,
		Exercises:        cloned,
		ScheduledDays:    append([]workout.Weekday(nil), days...),
	}
}

// FallbackExercise deterministically constructs an exercise preview.
func FallbackExercise(description string) *workout.ExercisePreview {
	name := strings.TrimSpace(description)
	if name == "" {
		name = "Custom Exercise"
	}
	return &workout.ExercisePreview{
		Name:         titleCase(name),
		MuscleGroups: []string{"full body"},
		Description:  "Custom exercise added from chat.",
	}
}

func nextMonday(from time.Time) time.Time {
	day := from
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
