package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davekern/repcoach/internal/llm"
	"github.com/davekern/repcoach/internal/persona"
	"github.com/davekern/repcoach/internal/slots"
	"github.com/davekern/repcoach/internal/workout"
)

// scriptedClient returns a fixed response or error for every call.
type scriptedClient struct {
	text string
	err  error
}

func (c *scriptedClient) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.GenerateResponse{Text: c.text, Model: "test"}, nil
}

func (c *scriptedClient) Ping(ctx context.Context) error { return c.err }

func testSlots() slots.SlotSet {
	return slots.SlotSet{
		Goal:          "build muscle",
		Experience:    "beginner",
		DaysPerWeek:   1,
		SessionLength: 45,
		Equipment:     []string{"dumbbells"},
	}
}

const validPlanJSON = `{
	"metadata": {"name": "Model Plan", "length_weeks": 8, "days_per_week": 1},
	"days": [{"day_of_week": "Monday", "title": "Full Body", "estimated_minutes": 45,
		"exercises": [{"name": "Goblet Squat", "sets": 3, "reps": "8-12", "muscle_groups": ["quads"]}]}]
}`

func TestPlanUsesModelOutput(t *testing.T) {
	g := New(&scriptedClient{text: "Here you go!\n" + validPlanJSON}, Options{}, nil)
	plan := g.Plan(context.Background(), persona.Get("calm"), testSlots())
	if plan.Meta.Name != "Model Plan" {
		t.Errorf("name = %q, want model output", plan.Meta.Name)
	}
}

func TestPlanFallsBackOnError(t *testing.T) {
	g := New(&scriptedClient{err: errors.New("connection refused")}, Options{}, nil)
	plan := g.Plan(context.Background(), persona.Get("calm"), testSlots())
	if err := plan.Validate(); err != nil {
		t.Fatalf("fallback plan invalid: %v", err)
	}
	if plan.Meta.Name != "Build Muscle Plan" {
		t.Errorf("name = %q, want fallback naming", plan.Meta.Name)
	}
}

func TestPlanFallsBackOnProse(t *testing.T) {
	g := New(&scriptedClient{text: "Sure! I'd recommend squats, bench, and rows three times a week."}, Options{}, nil)
	plan := g.Plan(context.Background(), persona.Get("calm"), testSlots())
	if err := plan.Validate(); err != nil {
		t.Fatalf("fallback plan invalid: %v", err)
	}
	if len(plan.Days) != 1 {
		t.Errorf("plan has %d days, want the requested 1", len(plan.Days))
	}
}

func TestPlanFallsBackOnFrequencyDrift(t *testing.T) {
	s := testSlots()
	s.DaysPerWeek = 2
	// Model returns a structurally valid plan for the wrong frequency.
	g := New(&scriptedClient{text: validPlanJSON}, Options{}, nil)
	plan := g.Plan(context.Background(), persona.Get("calm"), s)
	if plan.Meta.DaysPerWeek != 2 || len(plan.Days) != 2 {
		t.Errorf("drifted plan kept: days_per_week=%d days=%d", plan.Meta.DaysPerWeek, len(plan.Days))
	}
}

func TestWorkoutScheduleIsAuthoritative(t *testing.T) {
	modelJSON := `{"title": "Pull Day", "estimated_minutes": 40,
		"exercises": [{"name": "Pull-Up", "sets": 3, "reps": "6-10", "muscle_groups": ["back"]}],
		"scheduled_days": ["Friday"]}`
	g := New(&scriptedClient{text: modelJSON}, Options{}, nil)

	days := []workout.Weekday{workout.Day(time.Monday)}
	preview := g.Workout(context.Background(), persona.Get("calm"), "pull day", days)

	if len(preview.ScheduledDays) != 1 || preview.ScheduledDays[0].Weekday != time.Monday {
		t.Errorf("schedule = %v, want parser's Monday to win over the model's Friday", preview.ScheduledDays)
	}
}

func TestWorkoutFallsBackOnError(t *testing.T) {
	g := New(&scriptedClient{err: errors.New("timeout")}, Options{}, nil)
	preview := g.Workout(context.Background(), persona.Get("calm"), "leg day", nil)
	if err := preview.Validate(); err != nil {
		t.Fatalf("fallback workout invalid: %v", err)
	}
}

func TestExerciseFallsBackOnMalformed(t *testing.T) {
	g := New(&scriptedClient{text: `{"name": "Mystery Move"}`}, Options{}, nil)
	ex := g.Exercise(context.Background(), persona.Get("calm"), "mystery move")
	if err := ex.Validate(); err != nil {
		t.Fatalf("fallback exercise invalid: %v", err)
	}
}

func TestAdviceFallsBackOnEmpty(t *testing.T) {
	g := New(&scriptedClient{text: "   "}, Options{}, nil)
	got := g.Advice(context.Background(), persona.Get("calm"), "any tips?")
	if got != adviceFallback {
		t.Errorf("Advice = %q, want canned fallback", got)
	}

	g = New(&scriptedClient{text: "Warm up first."}, Options{}, nil)
	if got := g.Advice(context.Background(), persona.Get("calm"), "any tips?"); got != "Warm up first." {
		t.Errorf("Advice = %q", got)
	}
}
