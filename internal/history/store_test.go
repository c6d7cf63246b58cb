package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func msg(userID, content string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:        NewID(),
		UserID:    userID,
		Sender:    SenderUser,
		Type:      TypeText,
		Content:   content,
		CreatedAt: at,
	}
}

func TestAppendAndRecent(t *testing.T) {
	s := NewStore(testDB(t), nil)
	ctx := context.Background()
	now := time.Now().UTC()

	s.Append(ctx, msg("u1", "first", now.Add(-2*time.Hour)))
	s.Append(ctx, msg("u1", "second", now.Add(-time.Hour)))
	s.Append(ctx, msg("u2", "other user", now))

	got := s.Recent(ctx, "u1", 7)
	if len(got) != 2 {
		t.Fatalf("Recent returned %d messages, want 2", len(got))
	}
	if got[0].Content != "first" || got[1].Content != "second" {
		t.Errorf("messages out of order: %q, %q", got[0].Content, got[1].Content)
	}
}

func TestRecentWindowExcludesOld(t *testing.T) {
	s := NewStore(testDB(t), nil)
	ctx := context.Background()
	now := time.Now().UTC()

	s.Append(ctx, msg("u1", "ancient", now.AddDate(0, 0, -30)))
	s.Append(ctx, msg("u1", "recent", now.Add(-time.Hour)))

	got := s.Recent(ctx, "u1", 7)
	if len(got) != 1 || got[0].Content != "recent" {
		t.Errorf("Recent = %+v, want only the message inside the window", got)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	s := NewStore(testDB(t), nil)
	ctx := context.Background()

	m := msg("u1", "plan card", time.Now().UTC())
	m.Sender = SenderAssistant
	m.Type = TypePlanCard
	m.Payload = json.RawMessage(`{"name":"Base"}`)
	s.Append(ctx, m)

	got := s.Recent(ctx, "u1", 7)
	if len(got) != 1 {
		t.Fatalf("Recent returned %d messages", len(got))
	}
	if got[0].Type != TypePlanCard {
		t.Errorf("type = %q", got[0].Type)
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(got[0].Payload, &payload); err != nil || payload.Name != "Base" {
		t.Errorf("payload = %s, err = %v", got[0].Payload, err)
	}
}

func TestClear(t *testing.T) {
	s := NewStore(testDB(t), nil)
	ctx := context.Background()

	s.Append(ctx, msg("u1", "to be cleared", time.Now().UTC()))
	s.Append(ctx, msg("u2", "kept", time.Now().UTC()))

	if err := s.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := s.Recent(ctx, "u1", 7); len(got) != 0 {
		t.Errorf("u1 still has %d messages after Clear", len(got))
	}
	if got := s.Recent(ctx, "u2", 7); len(got) != 1 {
		t.Errorf("Clear removed another user's messages")
	}
}

func TestNilDatabaseDegrades(t *testing.T) {
	s := NewStore(nil, nil)
	ctx := context.Background()

	if s.Available() {
		t.Error("store with no database reports available")
	}
	// Everything is a quiet no-op.
	s.Append(ctx, msg("u1", "lost", time.Now().UTC()))
	if got := s.Recent(ctx, "u1", 7); got != nil {
		t.Errorf("degraded Recent = %v, want nil", got)
	}
	if err := s.Clear(ctx, "u1"); err != nil {
		t.Errorf("degraded Clear errored: %v", err)
	}
}

func TestAppendFailureDegradesOnce(t *testing.T) {
	db := testDB(t)
	s := NewStore(db, nil)
	ctx := context.Background()

	// Force every later statement to fail.
	db.Close()

	s.Append(ctx, msg("u1", "first failure", time.Now().UTC()))
	if s.Available() {
		t.Error("store still available after write failure")
	}
	// Further calls stay quiet no-ops.
	s.Append(ctx, msg("u1", "second", time.Now().UTC()))
	if got := s.Recent(ctx, "u1", 7); got != nil {
		t.Errorf("degraded Recent = %v, want nil", got)
	}
}
