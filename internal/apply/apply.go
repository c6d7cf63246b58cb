// Package apply commits an accepted generated plan or workout into
// durable template, exercise, and calendar records.
package apply

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/davekern/repcoach/internal/store"
	"github.com/davekern/repcoach/internal/workout"
)

// ExerciseCatalog is the slice of the record store the applier needs
// for exercise deduplication.
type ExerciseCatalog interface {
	FindExerciseByName(ctx context.Context, name string) (*store.CatalogExercise, error)
	CreateExercise(ctx context.Context, e *store.CatalogExercise) error
}

// TemplateStore creates workout template records.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t *store.Template) error
}

// Calendar materializes schedule entries.
type Calendar interface {
	ScheduleEntry(ctx context.Context, e *store.CalendarEntry) error
}

// Result reports what an apply accomplished. Template creation and
// calendar materialization fail independently: a schedule failure
// never rolls back saved templates, it just shows up in Errors.
type Result struct {
	TemplatesCreated int      `json:"templates_created"`
	ExercisesCreated int      `json:"exercises_created"`
	ScheduleCreated  int      `json:"schedule_created"`
	Errors           []string `json:"errors,omitempty"`
}

// ScheduleFailed reports whether templates saved but scheduling did not
// fully materialize — the caller owes the user a soft warning.
func (r *Result) ScheduleFailed() bool {
	return r.TemplatesCreated > 0 && len(r.Errors) > 0
}

// Applier writes accepted drafts into the record store.
type Applier struct {
	catalog   ExerciseCatalog
	templates TemplateStore
	calendar  Calendar
	logger    *slog.Logger
}

// New creates an applier over the record store slices.
func New(catalog ExerciseCatalog, templates TemplateStore, calendar Calendar, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{catalog: catalog, templates: templates, calendar: calendar, logger: logger}
}

// ApplyPlan commits a full plan: catalog exercises are deduplicated by
// name, one template is created per training day, and calendar entries
// are materialized across the plan length for each day's weekday.
func (a *Applier) ApplyPlan(ctx context.Context, userID string, plan *workout.WorkoutPlan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("apply plan: %w", err)
	}

	result := &Result{}
	a.syncCatalog(ctx, userID, planExercises(plan), result)

	for _, day := range plan.Days {
		tpl := &store.Template{
			UserID:        userID,
			Name:          fmt.Sprintf("%s — %s", plan.Meta.Name, day.Title),
			Exercises:     day.Clone().Exercises,
			ScheduledDays: []workout.Weekday{day.DayOfWeek},
		}
		if err := a.templates.CreateTemplate(ctx, tpl); err != nil {
			// A failed template is a hard error: without it there is
			// nothing to schedule for this day.
			return result, fmt.Errorf("create template for %s: %w", day.Title, err)
		}
		result.TemplatesCreated++

		created, err := a.materialize(ctx, userID, tpl.ID, day.DayOfWeek, plan.Meta.StartDate, plan.Meta.LengthWeeks)
		result.ScheduleCreated += created
		if err != nil {
			a.logger.Warn("calendar materialization failed, templates kept",
				"template", tpl.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("schedule %s: %v", day.Title, err))
		}
	}

	return result, nil
}

// ApplyWorkout commits a single accepted workout preview.
func (a *Applier) ApplyWorkout(ctx context.Context, userID string, preview *workout.WorkoutPreview) (*Result, error) {
	if err := preview.Validate(); err != nil {
		return nil, fmt.Errorf("apply workout: %w", err)
	}

	result := &Result{}
	a.syncCatalog(ctx, userID, preview.Exercises, result)

	tpl := &store.Template{
		UserID:        userID,
		Name:          preview.Title,
		Exercises:     preview.Clone().Exercises,
		ScheduledDays: append([]workout.Weekday(nil), preview.ScheduledDays...),
	}
	if err := a.templates.CreateTemplate(ctx, tpl); err != nil {
		return result, fmt.Errorf("create template: %w", err)
	}
	result.TemplatesCreated++

	start := time.Now()
	for _, day := range preview.ScheduledDays {
		created, err := a.materialize(ctx, userID, tpl.ID, day, start, 4)
		result.ScheduleCreated += created
		if err != nil {
			a.logger.Warn("calendar materialization failed, template kept",
				"template", tpl.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("schedule %s: %v", day, err))
		}
	}

	return result, nil
}

// syncCatalog creates any exercises not yet in the catalog. Catalog
// failures are soft: a template still stores its own exercise list.
func (a *Applier) syncCatalog(ctx context.Context, userID string, exercises []workout.Exercise, result *Result) {
	seen := make(map[string]bool)
	for _, e := range exercises {
		if e.Name == "" || seen[e.Name] {
			continue
		}
		seen[e.Name] = true

		existing, err := a.catalog.FindExerciseByName(ctx, e.Name)
		if err != nil {
			a.logger.Warn("catalog lookup failed", "exercise", e.Name, "error", err)
			continue
		}
		if existing != nil {
			continue
		}
		err = a.catalog.CreateExercise(ctx, &store.CatalogExercise{
			Name:         e.Name,
			MuscleGroups: append([]string(nil), e.MuscleGroups...),
			IsCustom:     true,
			CreatedBy:    userID,
		})
		if err != nil {
			a.logger.Warn("catalog create failed", "exercise", e.Name, "error", err)
			continue
		}
		result.ExercisesCreated++
	}
}

// materialize writes calendar entries for one weekday across
// [start, start + weeks*7d). It stops on the first error and reports
// how many entries were created before it.
func (a *Applier) materialize(ctx context.Context, userID, templateID string, day workout.Weekday, start time.Time, weeks int) (int, error) {
	if weeks <= 0 {
		weeks = 1
	}
	base := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	date := nextDate(start, day.Weekday)
	end := base.AddDate(0, 0, weeks*7)

	created := 0
	for date.Before(end) {
		err := a.calendar.ScheduleEntry(ctx, &store.CalendarEntry{
			UserID:        userID,
			TemplateID:    templateID,
			DateScheduled: date,
		})
		if err != nil {
			return created, err
		}
		created++
		date = date.AddDate(0, 0, 7)
	}
	return created, nil
}

func planExercises(plan *workout.WorkoutPlan) []workout.Exercise {
	var all []workout.Exercise
	for _, day := range plan.Days {
		all = append(all, day.Exercises...)
	}
	return all
}

// nextDate returns the first date on or after from falling on day.
func nextDate(from time.Time, day time.Weekday) time.Time {
	d := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for d.Weekday() != day {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
