package slots

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/davekern/repcoach/internal/jsonx"
	"github.com/davekern/repcoach/internal/llm"
)

const extractionTimeout = 10 * time.Second

// Extractor pulls preference slots out of free-form utterances. It
// asks the LLM for a structured extraction first and falls back to
// keyword rules when the call fails or returns garbage, so extraction
// never produces an error: the worst case is an empty update.
type Extractor struct {
	client llm.Client
	logger *slog.Logger
}

// NewExtractor creates a slot extractor.
func NewExtractor(client llm.Client, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, logger: logger}
}

const extractionPrompt = `Extract fitness plan preferences from the user's message.
Return ONLY a JSON object with this exact shape (use null for anything not mentioned):
{"goal": "build muscle|lose weight|endurance|general fitness|null",
 "experience": "beginner|intermediate|advanced|null",
 "days_per_week": 1-7 or null,
 "session_length_minutes": number or null,
 "equipment": ["dumbbells", ...] or null,
 "off_topic": true if the message has nothing to do with fitness planning,
 "redirect_message": "one friendly sentence steering back to the plan, only when off_topic"}

Previously collected (do not re-extract, never contradict):
%s
User message: %s`

// Extract analyses the utterance against the current slot set. On any
// LLM failure it falls back to rule-based extraction; it never errors.
func (e *Extractor) Extract(ctx context.Context, utterance string, current SlotSet) Update {
	if strings.TrimSpace(utterance) == "" {
		return Update{}
	}

	if e.client != nil {
		if u, ok := e.extractLLM(ctx, utterance, current); ok {
			return u
		}
	}
	return extractRules(utterance)
}

func (e *Extractor) extractLLM(ctx context.Context, utterance string, current SlotSet) (Update, bool) {
	ctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	known := current.Summary()
	if known == "" {
		known = "(nothing yet)"
	}
	resp, err := e.client.Generate(ctx, llm.GenerateRequest{
		Prompt:      fmt.Sprintf(extractionPrompt, known, utterance),
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		e.logger.Warn("slot extraction call failed", "error", err)
		return Update{}, false
	}

	u, err := decodeUpdate(resp.Text)
	if err != nil {
		e.logger.Warn("slot extraction output unusable", "error", err)
		return Update{}, false
	}
	return u, true
}

var (
	daysPattern    = regexp.MustCompile(`(?i)\b([1-7]|one|two|three|four|five|six|seven)\s*(?:x|times|days?|workouts?|sessions?)\b`)
	minutesPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:min|mins|minutes)\b`)
	hoursPattern   = regexp.MustCompile(`(?i)\b(\d(?:\.5)?|an?)\s*(?:hr|hrs|hours?)\b`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7,
}

// goalKeywords are checked in order; the first match wins.
var goalKeywords = []struct {
	keys []string
	goal string
}{
	{[]string{"muscle", "stronger", "strength", "bulk", "hypertrophy", "gain"}, "build muscle"},
	{[]string{"lose weight", "weight loss", "fat", "slim", "lean out", "cut"}, "lose weight"},
	{[]string{"endurance", "cardio", "stamina", "marathon", "run"}, "endurance"},
	{[]string{"tone", "fit", "health", "shape"}, "general fitness"},
}

var experienceKeywords = []struct {
	keys []string
	exp  string
}{
	{[]string{"beginner", "never", "new to", "just starting", "first time"}, "beginner"},
	{[]string{"advanced", "experienced", "years of", "competitive"}, "advanced"},
	{[]string{"intermediate", "some experience", "on and off"}, "intermediate"},
}

var equipmentKeywords = []struct {
	keys []string
	name string
}{
	{[]string{"dumbbell"}, "dumbbells"},
	{[]string{"barbell"}, "barbell"},
	{[]string{"kettlebell"}, "kettlebells"},
	{[]string{"band"}, "resistance bands"},
	{[]string{"machine", "full gym", "gym membership", "the gym", "a gym"}, "gym"},
	{[]string{"bodyweight", "body weight", "no equipment", "nothing at all"}, "bodyweight"},
}

// fitnessTopics gates the off-topic check: an utterance mentioning any
// of these is on topic even if no slot was extracted from it.
var fitnessTopics = []string{
	"workout", "train", "exercise", "plan", "gym", "fitness", "lift",
	"rep", "set", "yes", "ok", "sure", "day", "week", "minute", "hour",
}

// extractRules is the deterministic fallback extractor.
func extractRules(utterance string) Update {
	text := strings.ToLower(utterance)
	var u Update

	for _, g := range goalKeywords {
		if containsAny(text, g.keys) {
			goal := g.goal
			u.Goal = &goal
			break
		}
	}
	for _, x := range experienceKeywords {
		if containsAny(text, x.keys) {
			exp := x.exp
			u.Experience = &exp
			break
		}
	}
	if m := daysPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			n = numberWords[strings.ToLower(m[1])]
		}
		if n >= 1 && n <= 7 {
			u.DaysPerWeek = &n
		}
	}
	if m := minutesPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			u.SessionLength = &n
		}
	} else if m := hoursPattern.FindStringSubmatch(text); m != nil {
		mins := 60
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			mins = int(f * 60)
		}
		if mins > 0 {
			u.SessionLength = &mins
		}
	}
	for _, eq := range equipmentKeywords {
		if containsAny(text, eq.keys) {
			u.Equipment = append(u.Equipment, eq.name)
		}
	}

	if u.Empty() && !containsAny(text, fitnessTopics) {
		u.OffTopic = true
		u.Redirect = "Let's get back to your plan — we can chat about that another time."
	}
	return u
}

func containsAny(text string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// decodeUpdate parses the LLM's extraction JSON. The "null" strings
// some models emit for unset fields are normalised away.
func decodeUpdate(raw string) (Update, error) {
	obj, err := jsonx.ExtractObject(raw)
	if err != nil {
		return Update{}, err
	}
	var u Update
	if err := json.Unmarshal(obj, &u); err != nil {
		return Update{}, err
	}
	if u.Goal != nil && (*u.Goal == "" || strings.EqualFold(*u.Goal, "null")) {
		u.Goal = nil
	}
	if u.Experience != nil && (*u.Experience == "" || strings.EqualFold(*u.Experience, "null")) {
		u.Experience = nil
	}
	if u.DaysPerWeek != nil && (*u.DaysPerWeek < 1 || *u.DaysPerWeek > 7) {
		u.DaysPerWeek = nil
	}
	if u.SessionLength != nil && *u.SessionLength <= 0 {
		u.SessionLength = nil
	}
	return u, nil
}
