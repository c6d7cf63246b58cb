// Package intent classifies idle-state utterances into coach actions.
//
// Classification flow:
//  1. LLM classification with a strict JSON contract
//  2. Keyword heuristics when the service fails or returns garbage
//
// Classification never errors; the worst case is IntentGeneral.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/davekern/repcoach/internal/jsonx"
	"github.com/davekern/repcoach/internal/llm"
)

// Intent is a fixed tag describing what the user wants to do.
type Intent string

const (
	IntentCreatePlan     Intent = "create_plan"
	IntentCreateWorkout  Intent = "create_workout"
	IntentCreateExercise Intent = "create_exercise"
	IntentEditWorkout    Intent = "edit_workout"
	IntentDeleteWorkout  Intent = "delete_workout"
	IntentViewPlans      Intent = "view_plans"
	IntentGetTips        Intent = "get_tips"
	IntentGeneral        Intent = "general"
)

// valid is the closed set of intents the classifier may return.
var valid = map[Intent]bool{
	IntentCreatePlan: true, IntentCreateWorkout: true, IntentCreateExercise: true,
	IntentEditWorkout: true, IntentDeleteWorkout: true, IntentViewPlans: true,
	IntentGetTips: true, IntentGeneral: true,
}

const classifyTimeout = 10 * time.Second

const classifyPrompt = `Classify the user's fitness-app request. Return ONLY a JSON object:
{"intent": "create_plan|create_workout|create_exercise|edit_workout|delete_workout|view_plans|get_tips|general"}

- create_plan: wants a multi-week training plan or program
- create_workout: wants a single workout or session
- create_exercise: wants to add a single exercise to their library
- edit_workout: wants to change an existing workout
- delete_workout: wants to remove a workout
- view_plans: wants to see their plans or schedule
- get_tips: asks for fitness/nutrition/recovery advice
- general: anything else

User message: %s`

// Classifier determines user intent from an utterance.
type Classifier struct {
	client llm.Client
	logger *slog.Logger
}

// NewClassifier creates an intent classifier. client may be nil, in
// which case only the keyword heuristics run.
func NewClassifier(client llm.Client, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, logger: logger}
}

// Classify returns the intent of an idle-state utterance. Service
// failures fall back to keyword matching and are never surfaced.
func (c *Classifier) Classify(ctx context.Context, utterance string) Intent {
	if c.client != nil {
		if tag, ok := c.classifyLLM(ctx, utterance); ok {
			return tag
		}
	}
	return classifyKeywords(utterance)
}

func (c *Classifier) classifyLLM(ctx context.Context, utterance string) (Intent, bool) {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	resp, err := c.client.Generate(ctx, llm.GenerateRequest{
		Prompt:      fmt.Sprintf(classifyPrompt, utterance),
		MaxTokens:   64,
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("intent classification call failed", "error", err)
		return IntentGeneral, false
	}

	obj, err := jsonx.ExtractObject(resp.Text)
	if err != nil {
		c.logger.Warn("intent classification output unusable", "error", err)
		return IntentGeneral, false
	}
	var parsed struct {
		Intent Intent `json:"intent"`
	}
	if err := json.Unmarshal(obj, &parsed); err != nil || !valid[parsed.Intent] {
		c.logger.Warn("intent classification returned unknown tag", "raw", resp.Text)
		return IntentGeneral, false
	}
	return parsed.Intent, true
}

// classifyKeywords is the deterministic fallback.
func classifyKeywords(utterance string) Intent {
	text := strings.ToLower(utterance)

	hasWorkout := strings.Contains(text, "workout")
	switch {
	case strings.Contains(text, "plan") || strings.Contains(text, "program") || strings.Contains(text, "routine"):
		if strings.Contains(text, "view") || strings.Contains(text, "show") || strings.Contains(text, "see my") {
			return IntentViewPlans
		}
		return IntentCreatePlan
	case hasWorkout && (strings.Contains(text, "edit") || strings.Contains(text, "modify") || strings.Contains(text, "change")):
		return IntentEditWorkout
	case hasWorkout && (strings.Contains(text, "delete") || strings.Contains(text, "remove")):
		return IntentDeleteWorkout
	case hasWorkout:
		return IntentCreateWorkout
	case strings.Contains(text, "exercise") && (strings.Contains(text, "add") || strings.Contains(text, "create") || strings.Contains(text, "new")):
		return IntentCreateExercise
	case strings.Contains(text, "tip") || strings.Contains(text, "advice") || strings.Contains(text, "how do i") || strings.Contains(text, "how to"):
		return IntentGetTips
	default:
		return IntentGeneral
	}
}
