// Package jsonx recovers structured objects from LLM text output.
// Models wrap JSON in code fences, prepend chatter, and append prose;
// every generation call site funnels through ExtractObject so that
// repair logic lives in exactly one place.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/davekern/repcoach/internal/workout"
)

// ErrMalformed reports that no valid object of the requested shape
// could be recovered from the model output. Callers substitute a
// deterministic fallback rather than surfacing this to the user.
var ErrMalformed = errors.New("malformed generation output")

// ExtractObject slices the first top-level JSON object out of raw model
// text. It strips code-fence markers, locates the first '{' and its
// matching closing '}', and returns that slice. Text before the object
// and trailing prose after it are ignored.
func ExtractObject(raw string) ([]byte, error) {
	s := stripFences(raw)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, fmt.Errorf("%w: no object found", ErrMalformed)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return []byte(s[start : i+1]), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: unbalanced braces", ErrMalformed)
}

// stripFences removes markdown code-fence lines (``` or ```json) so the
// brace scan sees only the payload.
func stripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return raw
	}
	var b strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// DecodePlan extracts and validates a WorkoutPlan from model output.
func DecodePlan(raw string) (*workout.WorkoutPlan, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}
	var plan workout.WorkoutPlan
	if err := json.Unmarshal(obj, &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &plan, nil
}

// DecodeWorkout extracts and validates a WorkoutPreview from model output.
func DecodeWorkout(raw string) (*workout.WorkoutPreview, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}
	var preview workout.WorkoutPreview
	if err := json.Unmarshal(obj, &preview); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := preview.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &preview, nil
}

// DecodeExercise extracts and validates an ExercisePreview from model output.
func DecodeExercise(raw string) (*workout.ExercisePreview, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}
	var ex workout.ExercisePreview
	if err := json.Unmarshal(obj, &ex); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := ex.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &ex, nil
}
