package jsonx

import (
	"errors"
	"testing"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "bare object",
			raw:  `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "fenced",
			raw:  "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "leading chatter",
			raw:  "Sure! Here's your plan:\n{\"a\": 1}",
			want: `{"a": 1}`,
		},
		{
			name: "trailing prose",
			raw:  `{"a": 1} Let me know if you'd like changes!`,
			want: `{"a": 1}`,
		},
		{
			name: "nested objects",
			raw:  `{"a": {"b": {"c": 2}}} extra`,
			want: `{"a": {"b": {"c": 2}}}`,
		},
		{
			name: "braces inside strings",
			raw:  `{"note": "use {heavy} weight \" ok"} done`,
			want: `{"note": "use {heavy} weight \" ok"}`,
		},
		{
			name:    "no object",
			raw:     "I'd recommend doing squats three times a week.",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			raw:     `{"a": {"b": 1}`,
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("error = %v, want ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractObject: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ExtractObject = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodePlan(t *testing.T) {
	raw := "Here's the plan you asked for:\n```json\n" + `{
		"metadata": {"name": "Base", "length_weeks": 8, "days_per_week": 1},
		"days": [
			{
				"day_of_week": "Monday",
				"title": "Full Body",
				"estimated_minutes": 45,
				"exercises": [
					{"name": "Squat", "sets": 3, "reps": "8-12", "muscle_groups": ["quads"]}
				]
			}
		]
	}` + "\n```\nEnjoy!"

	plan, err := DecodePlan(raw)
	if err != nil {
		t.Fatalf("DecodePlan: %v", err)
	}
	if plan.Meta.Name != "Base" {
		t.Errorf("name = %q, want %q", plan.Meta.Name, "Base")
	}
	if len(plan.Days) != 1 || plan.Days[0].Exercises[0].Name != "Squat" {
		t.Errorf("unexpected days: %+v", plan.Days)
	}
}

func TestDecodePlanRejectsInvalid(t *testing.T) {
	// Parses fine but violates the day count invariant.
	raw := `{"metadata": {"name": "Bad", "length_weeks": 8, "days_per_week": 3}, "days": []}`
	if _, err := DecodePlan(raw); !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestDecodeWorkout(t *testing.T) {
	raw := `{"title": "Push Day", "estimated_minutes": 40, "exercises": [
		{"name": "Push-Up", "sets": 3, "reps": "AMRAP", "muscle_groups": ["chest"]}
	], "scheduled_days": ["Monday", "Thursday"]}`

	preview, err := DecodeWorkout(raw)
	if err != nil {
		t.Fatalf("DecodeWorkout: %v", err)
	}
	if preview.Title != "Push Day" || len(preview.ScheduledDays) != 2 {
		t.Errorf("unexpected preview: %+v", preview)
	}
}

func TestDecodeExercise(t *testing.T) {
	raw := `{"name": "Bulgarian Split Squat", "muscle_groups": ["quads", "glutes"]}`
	ex, err := DecodeExercise(raw)
	if err != nil {
		t.Fatalf("DecodeExercise: %v", err)
	}
	if ex.Name != "Bulgarian Split Squat" {
		t.Errorf("name = %q", ex.Name)
	}

	if _, err := DecodeExercise(`{"name": "Mystery"}`); !errors.Is(err, ErrMalformed) {
		t.Errorf("missing muscle groups: error = %v, want ErrMalformed", err)
	}
}
