// Package store persists the durable workout records: the exercise
// catalog, per-user workout templates, and the training calendar.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davekern/repcoach/internal/workout"
)

// NewID generates a new UUIDv7, falling back to v4.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// CatalogExercise is an entry in the shared exercise catalog.
type CatalogExercise struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MuscleGroups []string `json:"muscle_groups"`
	Equipment    string   `json:"equipment,omitempty"`
	IsCustom     bool     `json:"is_custom"`
	CreatedBy    string   `json:"created_by,omitempty"`
}

// Template is a saved workout template belonging to one user.
// Templates are soft-deleted by clearing is_active.
type Template struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	Name          string             `json:"name"`
	Exercises     []workout.Exercise `json:"exercises"`
	ScheduledDays []workout.Weekday  `json:"scheduled_days,omitempty"`
	IsActive      bool               `json:"is_active"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// CalendarEntry schedules one template occurrence on a date.
type CalendarEntry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	TemplateID    string    `json:"workout_template_id"`
	DateScheduled time.Time `json:"date_scheduled"`
	IsCompleted   bool      `json:"is_completed"`
}

// Store provides record CRUD over a SQL database.
type Store struct {
	db *sql.DB
}

// New creates a record store and runs migrations.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate record store: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS exercises (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			muscle_groups TEXT NOT NULL,
			equipment     TEXT,
			is_custom     INTEGER NOT NULL DEFAULT 0,
			created_by    TEXT
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_exercises_name ON exercises(name COLLATE NOCASE);

		CREATE TABLE IF NOT EXISTS workout_templates (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			name           TEXT NOT NULL,
			exercises_json TEXT NOT NULL,
			scheduled_days TEXT,
			is_active      INTEGER NOT NULL DEFAULT 1,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_templates_user ON workout_templates(user_id, is_active);

		CREATE TABLE IF NOT EXISTS calendar_entries (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			template_id    TEXT NOT NULL,
			date_scheduled TEXT NOT NULL,
			is_completed   INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (template_id) REFERENCES workout_templates(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_calendar_user ON calendar_entries(user_id, date_scheduled);
	`)
	return err
}

// FindExerciseByName looks up a catalog exercise case-insensitively.
// A missing exercise returns (nil, nil).
func (s *Store) FindExerciseByName(ctx context.Context, name string) (*CatalogExercise, error) {
	var e CatalogExercise
	var groups string
	var equipment, createdBy sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, muscle_groups, equipment, is_custom, created_by
		FROM exercises WHERE name = ? COLLATE NOCASE
	`, name).Scan(&e.ID, &e.Name, &groups, &equipment, &e.IsCustom, &createdBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find exercise: %w", err)
	}
	if groups != "" {
		e.MuscleGroups = strings.Split(groups, ",")
	}
	e.Equipment = equipment.String
	e.CreatedBy = createdBy.String
	return &e, nil
}

// CreateExercise inserts a new catalog exercise.
func (s *Store) CreateExercise(ctx context.Context, e *CatalogExercise) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exercises (id, name, muscle_groups, equipment, is_custom, created_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, strings.Join(e.MuscleGroups, ","), e.Equipment, e.IsCustom, e.CreatedBy)
	if err != nil {
		return fmt.Errorf("create exercise: %w", err)
	}
	return nil
}

// CreateTemplate inserts a workout template.
func (s *Store) CreateTemplate(ctx context.Context, t *Template) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.IsActive = true

	exercisesJSON, err := json.Marshal(t.Exercises)
	if err != nil {
		return fmt.Errorf("marshal template exercises: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workout_templates (id, user_id, name, exercises_json, scheduled_days, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	`, t.ID, t.UserID, t.Name, string(exercisesJSON), formatDays(t.ScheduledDays),
		t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// ActiveTemplateCount returns how many active templates the user has.
// The double-booking warning in the conversation engine keys off this.
func (s *Store) ActiveTemplateCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM workout_templates WHERE user_id = ? AND is_active = 1
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return n, nil
}

// ActiveTemplates returns the user's active templates, newest first.
func (s *Store) ActiveTemplates(ctx context.Context, userID string) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, exercises_json, scheduled_days, is_active, created_at, updated_at
		FROM workout_templates
		WHERE user_id = ? AND is_active = 1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		var exercisesJSON string
		var days sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &exercisesJSON, &days, &t.IsActive, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if err := json.Unmarshal([]byte(exercisesJSON), &t.Exercises); err != nil {
			return nil, fmt.Errorf("decode template exercises: %w", err)
		}
		t.ScheduledDays = parseDays(days.String)
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// DeactivateTemplate soft-deletes a template.
func (s *Store) DeactivateTemplate(ctx context.Context, userID, templateID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workout_templates SET is_active = 0, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, time.Now().UTC().Format(time.RFC3339Nano), templateID, userID)
	if err != nil {
		return fmt.Errorf("deactivate template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s not found", templateID)
	}
	return nil
}

// ScheduleEntry inserts one calendar entry.
func (s *Store) ScheduleEntry(ctx context.Context, e *CalendarEntry) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_entries (id, user_id, template_id, date_scheduled, is_completed)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.TemplateID, e.DateScheduled.UTC().Format("2006-01-02"), e.IsCompleted)
	if err != nil {
		return fmt.Errorf("schedule entry: %w", err)
	}
	return nil
}

// UpcomingEntries returns calendar entries on or after from, soonest
// first.
func (s *Store) UpcomingEntries(ctx context.Context, userID string, from time.Time, limit int) ([]CalendarEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, template_id, date_scheduled, is_completed
		FROM calendar_entries
		WHERE user_id = ? AND date_scheduled >= ?
		ORDER BY date_scheduled ASC
		LIMIT ?
	`, userID, from.UTC().Format("2006-01-02"), limit)
	if err != nil {
		return nil, fmt.Errorf("list calendar entries: %w", err)
	}
	defer rows.Close()

	var entries []CalendarEntry
	for rows.Next() {
		var e CalendarEntry
		var date string
		if err := rows.Scan(&e.ID, &e.UserID, &e.TemplateID, &date, &e.IsCompleted); err != nil {
			return nil, fmt.Errorf("scan calendar entry: %w", err)
		}
		e.DateScheduled, _ = time.Parse("2006-01-02", date)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// formatDays stores weekdays as a comma-separated day-name list, the
// single canonical representation on disk.
func formatDays(days []workout.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return strings.Join(names, ",")
}

func parseDays(s string) []workout.Weekday {
	if s == "" {
		return nil
	}
	var days []workout.Weekday
	for _, name := range strings.Split(s, ",") {
		if d, ok := workout.ParseWeekday(name); ok {
			days = append(days, d)
		}
	}
	return days
}
