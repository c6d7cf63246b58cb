package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/davekern/repcoach/internal/workout"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := New(db)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return s
}

func TestExerciseCatalog(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.CreateExercise(ctx, &CatalogExercise{
		Name:         "Bench Press",
		MuscleGroups: []string{"chest", "triceps"},
		IsCustom:     true,
		CreatedBy:    "u1",
	})
	if err != nil {
		t.Fatalf("CreateExercise: %v", err)
	}

	// Lookup is case-insensitive.
	got, err := s.FindExerciseByName(ctx, "bench press")
	if err != nil {
		t.Fatalf("FindExerciseByName: %v", err)
	}
	if got == nil || got.Name != "Bench Press" {
		t.Fatalf("found = %+v", got)
	}
	if len(got.MuscleGroups) != 2 || got.MuscleGroups[0] != "chest" {
		t.Errorf("muscle groups = %v", got.MuscleGroups)
	}

	// Missing exercises are (nil, nil), not an error.
	got, err = s.FindExerciseByName(ctx, "does not exist")
	if err != nil || got != nil {
		t.Errorf("missing lookup = (%+v, %v), want (nil, nil)", got, err)
	}

	// Duplicate names are rejected by the unique index.
	err = s.CreateExercise(ctx, &CatalogExercise{Name: "BENCH PRESS", MuscleGroups: []string{"chest"}})
	if err == nil {
		t.Error("duplicate exercise name accepted")
	}
}

func templateFor(userID, name string, days ...time.Weekday) *Template {
	var scheduled []workout.Weekday
	for _, d := range days {
		scheduled = append(scheduled, workout.Day(d))
	}
	return &Template{
		UserID: userID,
		Name:   name,
		Exercises: []workout.Exercise{
			{Name: "Squat", Sets: 3, Reps: "5", MuscleGroups: []string{"quads"}},
		},
		ScheduledDays: scheduled,
	}
}

func TestTemplateLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tpl := templateFor("u1", "Leg Day", time.Monday, time.Thursday)
	if err := s.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if tpl.ID == "" {
		t.Fatal("CreateTemplate did not assign an id")
	}

	n, err := s.ActiveTemplateCount(ctx, "u1")
	if err != nil || n != 1 {
		t.Fatalf("ActiveTemplateCount = (%d, %v), want 1", n, err)
	}

	list, err := s.ActiveTemplates(ctx, "u1")
	if err != nil {
		t.Fatalf("ActiveTemplates: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Leg Day" {
		t.Fatalf("templates = %+v", list)
	}
	if len(list[0].Exercises) != 1 || list[0].Exercises[0].Name != "Squat" {
		t.Errorf("exercises round trip failed: %+v", list[0].Exercises)
	}
	if len(list[0].ScheduledDays) != 2 || list[0].ScheduledDays[0].Weekday != time.Monday {
		t.Errorf("scheduled days round trip failed: %v", list[0].ScheduledDays)
	}

	if err := s.DeactivateTemplate(ctx, "u1", tpl.ID); err != nil {
		t.Fatalf("DeactivateTemplate: %v", err)
	}
	n, _ = s.ActiveTemplateCount(ctx, "u1")
	if n != 0 {
		t.Errorf("count after deactivate = %d", n)
	}
}

func TestDeactivateGuards(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tpl := templateFor("u1", "Mine")
	if err := s.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	// Another user cannot deactivate it.
	if err := s.DeactivateTemplate(ctx, "u2", tpl.ID); err == nil {
		t.Error("cross-user deactivate succeeded")
	}
	if err := s.DeactivateTemplate(ctx, "u1", "no-such-id"); err == nil {
		t.Error("deactivating unknown template succeeded")
	}
}

func TestCalendar(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tpl := templateFor("u1", "Push Day")
	if err := s.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	base := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.ScheduleEntry(ctx, &CalendarEntry{
			UserID:        "u1",
			TemplateID:    tpl.ID,
			DateScheduled: base.AddDate(0, 0, 7*i),
		})
		if err != nil {
			t.Fatalf("ScheduleEntry: %v", err)
		}
	}

	// From the second occurrence on, only two remain.
	entries, err := s.UpcomingEntries(ctx, "u1", base.AddDate(0, 0, 1), 10)
	if err != nil {
		t.Fatalf("UpcomingEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if !entries[0].DateScheduled.Equal(base.AddDate(0, 0, 7)) {
		t.Errorf("first upcoming = %v", entries[0].DateScheduled)
	}
}
