// Package workout defines the domain value types for generated plans,
// single workouts, and exercises. All types are plain values; Clone
// methods give callers copy-on-write semantics so draft edits never
// alias a committed structure.
package workout

import (
	"fmt"
	"time"
)

// Exercise is a single exercise prescription within a workout.
type Exercise struct {
	Name         string   `json:"name"`
	Sets         int      `json:"sets"`
	Reps         string   `json:"reps"` // "8-12", "30s", "AMRAP"
	RestSeconds  int      `json:"rest_seconds"`
	MuscleGroups []string `json:"muscle_groups"`
	Notes        string   `json:"notes,omitempty"`
}

// Clone returns a deep copy of the exercise.
func (e Exercise) Clone() Exercise {
	c := e
	c.MuscleGroups = append([]string(nil), e.MuscleGroups...)
	return c
}

// WorkoutDay is one training day within a plan.
type WorkoutDay struct {
	DayOfWeek        Weekday    `json:"day_of_week"`
	Title            string     `json:"title"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Exercises        []Exercise `json:"exercises"`
}

// Clone returns a deep copy of the day.
func (d WorkoutDay) Clone() WorkoutDay {
	c := d
	c.Exercises = make([]Exercise, len(d.Exercises))
	for i, e := range d.Exercises {
		c.Exercises[i] = e.Clone()
	}
	return c
}

// PlanMeta describes a plan as a whole.
type PlanMeta struct {
	Name             string    `json:"name"`
	StartDate        time.Time `json:"start_date"`
	LengthWeeks      int       `json:"length_weeks"`
	DaysPerWeek      int       `json:"days_per_week"`
	ProgressionModel string    `json:"progression_model,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

// WorkoutPlan is a multi-week training plan.
type WorkoutPlan struct {
	Meta PlanMeta     `json:"metadata"`
	Days []WorkoutDay `json:"days"`
}

// Clone returns a deep copy of the plan.
func (p *WorkoutPlan) Clone() *WorkoutPlan {
	if p == nil {
		return nil
	}
	c := &WorkoutPlan{Meta: p.Meta}
	c.Days = make([]WorkoutDay, len(p.Days))
	for i, d := range p.Days {
		c.Days[i] = d.Clone()
	}
	return c
}

// Validate checks the structural invariants of a generated plan:
// the day count must match the declared training frequency and every
// exercise must name at least one muscle group.
func (p *WorkoutPlan) Validate() error {
	if p.Meta.DaysPerWeek < 1 || p.Meta.DaysPerWeek > 7 {
		return fmt.Errorf("days_per_week %d out of range", p.Meta.DaysPerWeek)
	}
	if len(p.Days) != p.Meta.DaysPerWeek {
		return fmt.Errorf("plan has %d days, metadata declares %d", len(p.Days), p.Meta.DaysPerWeek)
	}
	for _, d := range p.Days {
		if len(d.Exercises) == 0 {
			return fmt.Errorf("day %q has no exercises", d.Title)
		}
		for _, e := range d.Exercises {
			if e.Name == "" {
				return fmt.Errorf("day %q has an unnamed exercise", d.Title)
			}
			if len(e.MuscleGroups) == 0 {
				return fmt.Errorf("exercise %q has no muscle groups", e.Name)
			}
		}
	}
	return nil
}

// WorkoutPreview is a single generated session, optionally pinned to
// one or more weekdays.
type WorkoutPreview struct {
	Title            string     `json:"title"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Exercises        []Exercise `json:"exercises"`
	ScheduledDays    []Weekday  `json:"scheduled_days,omitempty"`
}

// Clone returns a deep copy of the preview.
func (w *WorkoutPreview) Clone() *WorkoutPreview {
	if w == nil {
		return nil
	}
	c := &WorkoutPreview{Title: w.Title, EstimatedMinutes: w.EstimatedMinutes}
	c.Exercises = make([]Exercise, len(w.Exercises))
	for i, e := range w.Exercises {
		c.Exercises[i] = e.Clone()
	}
	c.ScheduledDays = append([]Weekday(nil), w.ScheduledDays...)
	return c
}

// Validate checks that the preview is usable as a workout template.
func (w *WorkoutPreview) Validate() error {
	if w.Title == "" {
		return fmt.Errorf("workout has no title")
	}
	if len(w.Exercises) == 0 {
		return fmt.Errorf("workout %q has no exercises", w.Title)
	}
	for _, e := range w.Exercises {
		if e.Name == "" {
			return fmt.Errorf("workout %q has an unnamed exercise", w.Title)
		}
		if len(e.MuscleGroups) == 0 {
			return fmt.Errorf("exercise %q has no muscle groups", e.Name)
		}
	}
	return nil
}

// ExercisePreview is a single-exercise creation draft.
type ExercisePreview struct {
	Name         string   `json:"name"`
	MuscleGroups []string `json:"muscle_groups"`
	Description  string   `json:"description,omitempty"`
}

// Validate checks that the exercise preview names an exercise and its
// muscle groups.
func (e *ExercisePreview) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("exercise has no name")
	}
	if len(e.MuscleGroups) == 0 {
		return fmt.Errorf("exercise %q has no muscle groups", e.Name)
	}
	return nil
}
