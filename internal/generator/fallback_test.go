package generator

import (
	"testing"
	"time"

	"github.com/davekern/repcoach/internal/slots"
	"github.com/davekern/repcoach/internal/workout"
)

func TestFallbackPlanAlwaysValidates(t *testing.T) {
	for days := 1; days <= 7; days++ {
		s := slots.SlotSet{
			Goal:          "build muscle",
			Experience:    "beginner",
			DaysPerWeek:   days,
			SessionLength: 45,
			Equipment:     []string{"dumbbells"},
		}
		plan := FallbackPlan(s)
		if err := plan.Validate(); err != nil {
			t.Errorf("days=%d: %v", days, err)
		}
		if len(plan.Days) != days {
			t.Errorf("days=%d: plan has %d days", days, len(plan.Days))
		}
	}
}

func TestFallbackPlanSplitSelection(t *testing.T) {
	tests := []struct {
		days   int
		titles []string
	}{
		{2, []string{"Full Body", "Full Body"}},
		{3, []string{"Full Body", "Full Body", "Full Body"}},
		{4, []string{"Upper Body", "Lower Body", "Upper Body", "Lower Body"}},
		{6, []string{"Push", "Pull", "Legs", "Push", "Pull", "Legs"}},
	}
	for _, tt := range tests {
		plan := FallbackPlan(slots.SlotSet{DaysPerWeek: tt.days})
		for i, want := range tt.titles {
			if plan.Days[i].Title != want {
				t.Errorf("days=%d day[%d] = %q, want %q", tt.days, i, plan.Days[i].Title, want)
			}
		}
	}
}

func TestFallbackPlanEquipmentPools(t *testing.T) {
	gym := FallbackPlan(slots.SlotSet{DaysPerWeek: 3, Equipment: []string{"full gym"}})
	if gym.Days[0].Exercises[0].Name != "Barbell Squat" {
		t.Errorf("gym plan starts with %q, want loaded movement", gym.Days[0].Exercises[0].Name)
	}

	home := FallbackPlan(slots.SlotSet{DaysPerWeek: 3, Equipment: []string{"bodyweight"}})
	if home.Days[0].Exercises[0].Name != "Bodyweight Squat" {
		t.Errorf("bodyweight plan starts with %q", home.Days[0].Exercises[0].Name)
	}
}

func TestFallbackPlanDefaults(t *testing.T) {
	plan := FallbackPlan(slots.SlotSet{})
	if plan.Meta.DaysPerWeek != 3 {
		t.Errorf("default frequency = %d, want 3", plan.Meta.DaysPerWeek)
	}
	if plan.Days[0].EstimatedMinutes != defaultSessionMinutes {
		t.Errorf("default minutes = %d", plan.Days[0].EstimatedMinutes)
	}
	if plan.Meta.StartDate.Weekday() != time.Monday {
		t.Errorf("start date %v is not a Monday", plan.Meta.StartDate)
	}
	if err := plan.Validate(); err != nil {
		t.Errorf("default plan invalid: %v", err)
	}
}

func TestFallbackPlanScheduleMatchesFrequency(t *testing.T) {
	plan := FallbackPlan(slots.SlotSet{DaysPerWeek: 3})
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	for i, d := range plan.Days {
		if d.DayOfWeek.Weekday != want[i] {
			t.Errorf("day[%d] = %v, want %v", i, d.DayOfWeek.Weekday, want[i])
		}
	}
}

func TestFallbackWorkout(t *testing.T) {
	days := []workout.Weekday{workout.Day(time.Tuesday)}
	preview := FallbackWorkout("quick core session", days)

	if err := preview.Validate(); err != nil {
		t.Fatalf("fallback workout invalid: %v", err)
	}
	if preview.Title != "Quick Core Session" {
		t.Errorf("title = %q", preview.Title)
	}
	if len(preview.ScheduledDays) != 1 || preview.ScheduledDays[0].Weekday != time.Tuesday {
		t.Errorf("scheduled days = %v", preview.ScheduledDays)
	}

	unnamed := FallbackWorkout("", nil)
	if unnamed.Title != "Custom Workout" {
		t.Errorf("empty description title = %q", unnamed.Title)
	}
	if len(unnamed.ScheduledDays) != 0 {
		t.Errorf("unscheduled workout has days: %v", unnamed.ScheduledDays)
	}
}

func TestFallbackExercise(t *testing.T) {
	ex := FallbackExercise("weighted step-up")
	if err := ex.Validate(); err != nil {
		t.Fatalf("fallback exercise invalid: %v", err)
	}
	if ex.Name != "Weighted Step-up" {
		t.Errorf("name = %q", ex.Name)
	}
}
