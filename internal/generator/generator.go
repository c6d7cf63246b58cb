// Package generator synthesizes workout plans, single workouts, and
// exercises from gathered preferences, with a deterministic fallback
// for every failure mode of the generation service.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/davekern/repcoach/internal/jsonx"
	"github.com/davekern/repcoach/internal/llm"
	"github.com/davekern/repcoach/internal/persona"
	"github.com/davekern/repcoach/internal/slots"
	"github.com/davekern/repcoach/internal/workout"
)

// Options bound the generation calls.
type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultOptions are used for zero-value fields.
var DefaultOptions = Options{
	MaxTokens:   2048,
	Temperature: 0.7,
	Timeout:     45 * time.Second,
}

// Generator builds structured fitness content through the LLM. Every
// method returns a usable result: service errors, timeouts, and
// malformed output all resolve to the deterministic fallback.
type Generator struct {
	client llm.Client
	opts   Options
	logger *slog.Logger
}

// New creates a generator. client may be nil, in which case only the
// fallback path runs.
func New(client llm.Client, opts Options, logger *slog.Logger) *Generator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultOptions.MaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultOptions.Temperature
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, opts: opts, logger: logger}
}

const planPrompt = `Create a personalized workout plan from these preferences:

%s
Return ONLY a JSON object with this exact shape:
{"metadata": {"name": "...", "start_date": "%s", "length_weeks": 8,
  "days_per_week": %d, "progression_model": "linear", "notes": "..."},
 "days": [{"day_of_week": "Monday", "title": "...", "estimated_minutes": %d,
  "exercises": [{"name": "...", "sets": 3, "reps": "8-12", "rest_seconds": 90,
   "muscle_groups": ["chest"], "notes": "..."}]}]}

Rules:
- exactly %d entries in "days", one per training day
- every exercise must list at least one muscle group
- respect the available equipment`

// Plan generates a full workout plan from the filled slot set.
func (g *Generator) Plan(ctx context.Context, p persona.Persona, s slots.SlotSet) *workout.WorkoutPlan {
	if g.client == nil {
		return FallbackPlan(s)
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	minutes := s.SessionLength
	if minutes <= 0 {
		minutes = defaultSessionMinutes
	}
	start := nextMonday(time.Now()).Format("2006-01-02")
	prompt := fmt.Sprintf(planPrompt, s.Summary(), start, s.DaysPerWeek, minutes, s.DaysPerWeek)

	resp, err := g.client.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		System:      p.PromptAddon,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		g.logger.Warn("plan generation failed, using fallback", "error", err)
		return FallbackPlan(s)
	}

	plan, err := jsonx.DecodePlan(resp.Text)
	if err != nil {
		g.logger.Warn("plan output malformed, using fallback", "error", err)
		return FallbackPlan(s)
	}
	if plan.Meta.DaysPerWeek != s.DaysPerWeek && s.DaysPerWeek >= 1 && s.DaysPerWeek <= 7 {
		g.logger.Warn("plan frequency drifted from request, using fallback",
			"want", s.DaysPerWeek, "got", plan.Meta.DaysPerWeek)
		return FallbackPlan(s)
	}
	return plan
}

const workoutPrompt = `Create a single workout session from this description:

%s
%s
Return ONLY a JSON object with this exact shape:
{"title": "...", "estimated_minutes": 45,
 "exercises": [{"name": "...", "sets": 3, "reps": "8-12", "rest_seconds": 90,
  "muscle_groups": ["chest"], "notes": "..."}]}

Every exercise must list at least one muscle group.`

// Workout generates a single session incorporating the free-text
// description and the parsed schedule.
func (g *Generator) Workout(ctx context.Context, p persona.Persona, description string, days []workout.Weekday) *workout.WorkoutPreview {
	if g.client == nil {
		return FallbackWorkout(description, days)
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var scheduleLine string
	if len(days) > 0 {
		names := make([]string, len(days))
		for i, d := range days {
			names[i] = d.String()
		}
		scheduleLine = "Scheduled for: " + strings.Join(names, ", ") + "\n"
	}

	resp, err := g.client.Generate(ctx, llm.GenerateRequest{
		Prompt:      fmt.Sprintf(workoutPrompt, description, scheduleLine),
		System:      p.PromptAddon,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		g.logger.Warn("workout generation failed, using fallback", "error", err)
		return FallbackWorkout(description, days)
	}

	preview, err := jsonx.DecodeWorkout(resp.Text)
	if err != nil {
		g.logger.Warn("workout output malformed, using fallback", "error", err)
		return FallbackWorkout(description, days)
	}
	// The schedule is authoritative from the parser, not the model.
	preview.ScheduledDays = append([]workout.Weekday(nil), days...)
	return preview
}

const exercisePrompt = `Describe this exercise for a fitness app library:

%s

Return ONLY a JSON object with this exact shape:
{"name": "...", "muscle_groups": ["..."], "description": "one or two sentences"}`

// Exercise generates a single-exercise preview.
func (g *Generator) Exercise(ctx context.Context, p persona.Persona, description string) *workout.ExercisePreview {
	if g.client == nil {
		return FallbackExercise(description)
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	resp, err := g.client.Generate(ctx, llm.GenerateRequest{
		Prompt:      fmt.Sprintf(exercisePrompt, description),
		System:      p.PromptAddon,
		MaxTokens:   512,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		g.logger.Warn("exercise generation failed, using fallback", "error", err)
		return FallbackExercise(description)
	}

	ex, err := jsonx.DecodeExercise(resp.Text)
	if err != nil {
		g.logger.Warn("exercise output malformed, using fallback", "error", err)
		return FallbackExercise(description)
	}
	return ex
}

const adviceFallback = "Consistency beats intensity: pick a schedule you can repeat, focus on form, and progress a little each week."

// Advice generates a free-prose coaching reply for tips and general
// questions. On failure it returns a canned reply, never an error.
func (g *Generator) Advice(ctx context.Context, p persona.Persona, utterance string) string {
	if g.client == nil {
		return adviceFallback
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	resp, err := g.client.Generate(ctx, llm.GenerateRequest{
		Prompt:      fmt.Sprintf("You are a fitness coach. Answer briefly and practically.\n\nUser: %s", utterance),
		System:      p.PromptAddon,
		MaxTokens:   512,
		Temperature: g.opts.Temperature,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		g.logger.Warn("advice generation failed, using canned reply", "error", err)
		return adviceFallback
	}
	return strings.TrimSpace(resp.Text)
}
