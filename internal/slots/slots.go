// Package slots tracks the fitness preferences gathered incrementally
// during plan creation, and extracts them from free-form chat.
package slots

import (
	"fmt"
	"strings"
)

// Slot identifies one preference field.
type Slot string

const (
	SlotGoal          Slot = "goal"
	SlotExperience    Slot = "experience"
	SlotDaysPerWeek   Slot = "days_per_week"
	SlotSessionLength Slot = "session_length"
	SlotEquipment     Slot = "equipment"
)

// gatherOrder is the order in which missing slots are prompted.
var gatherOrder = []Slot{SlotGoal, SlotExperience, SlotDaysPerWeek, SlotSessionLength, SlotEquipment}

// SlotSet holds the preferences collected so far. Zero values mean
// "not yet filled". Once a field is filled it is only ever cleared by
// an explicit cancel or restart.
type SlotSet struct {
	Goal          string   `json:"goal,omitempty"`
	Experience    string   `json:"experience,omitempty"`
	DaysPerWeek   int      `json:"days_per_week,omitempty"`
	SessionLength int      `json:"session_length,omitempty"` // minutes
	Equipment     []string `json:"equipment,omitempty"`
}

// Update is a partial extraction result. Nil pointers mean the field
// was not mentioned; they never clear a previously filled value.
type Update struct {
	Goal          *string  `json:"goal"`
	Experience    *string  `json:"experience"`
	DaysPerWeek   *int     `json:"days_per_week"`
	SessionLength *int     `json:"session_length_minutes"`
	Equipment     []string `json:"equipment"`
	OffTopic      bool     `json:"off_topic"`
	Redirect      string   `json:"redirect_message"`
}

// Empty reports whether the update carries no extracted fields.
func (u Update) Empty() bool {
	return u.Goal == nil && u.Experience == nil && u.DaysPerWeek == nil &&
		u.SessionLength == nil && len(u.Equipment) == 0
}

// Merge applies an update non-destructively: only fields present in
// the update and absent from the set are written. Already-filled
// fields are never overwritten, so a later extraction returning nil
// for a known field is a no-op.
func (s *SlotSet) Merge(u Update) {
	if s.Goal == "" && u.Goal != nil && *u.Goal != "" {
		s.Goal = *u.Goal
	}
	if s.Experience == "" && u.Experience != nil && *u.Experience != "" {
		s.Experience = *u.Experience
	}
	if s.DaysPerWeek == 0 && u.DaysPerWeek != nil && *u.DaysPerWeek >= 1 && *u.DaysPerWeek <= 7 {
		s.DaysPerWeek = *u.DaysPerWeek
	}
	if s.SessionLength == 0 && u.SessionLength != nil && *u.SessionLength > 0 {
		s.SessionLength = *u.SessionLength
	}
	if len(s.Equipment) == 0 && len(u.Equipment) > 0 {
		s.Equipment = append([]string(nil), u.Equipment...)
	}
}

// Override applies an update destructively: any field present in the
// update replaces the stored value. Used only for explicit edit
// requests, where the user is deliberately changing an answer. Nil
// fields still never clear anything.
func (s *SlotSet) Override(u Update) {
	if u.Goal != nil && *u.Goal != "" {
		s.Goal = *u.Goal
	}
	if u.Experience != nil && *u.Experience != "" {
		s.Experience = *u.Experience
	}
	if u.DaysPerWeek != nil && *u.DaysPerWeek >= 1 && *u.DaysPerWeek <= 7 {
		s.DaysPerWeek = *u.DaysPerWeek
	}
	if u.SessionLength != nil && *u.SessionLength > 0 {
		s.SessionLength = *u.SessionLength
	}
	if len(u.Equipment) > 0 {
		s.Equipment = append([]string(nil), u.Equipment...)
	}
}

// Complete reports whether every slot is filled.
func (s *SlotSet) Complete() bool {
	return len(s.Missing()) == 0
}

// Missing returns the unfilled slots in prompt order.
func (s *SlotSet) Missing() []Slot {
	var missing []Slot
	for _, slot := range gatherOrder {
		if !s.filled(slot) {
			missing = append(missing, slot)
		}
	}
	return missing
}

func (s *SlotSet) filled(slot Slot) bool {
	switch slot {
	case SlotGoal:
		return s.Goal != ""
	case SlotExperience:
		return s.Experience != ""
	case SlotDaysPerWeek:
		return s.DaysPerWeek != 0
	case SlotSessionLength:
		return s.SessionLength != 0
	case SlotEquipment:
		return len(s.Equipment) != 0
	}
	return false
}

// Clear resets every slot. Used on cancel and restart.
func (s *SlotSet) Clear() {
	*s = SlotSet{}
}

// Summary renders the filled slots for embedding into a generation
// prompt.
func (s *SlotSet) Summary() string {
	var b strings.Builder
	if s.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", s.Goal)
	}
	if s.Experience != "" {
		fmt.Fprintf(&b, "Experience level: %s\n", s.Experience)
	}
	if s.DaysPerWeek != 0 {
		fmt.Fprintf(&b, "Training days per week: %d\n", s.DaysPerWeek)
	}
	if s.SessionLength != 0 {
		fmt.Fprintf(&b, "Session length: %d minutes\n", s.SessionLength)
	}
	if len(s.Equipment) != 0 {
		fmt.Fprintf(&b, "Available equipment: %s\n", strings.Join(s.Equipment, ", "))
	}
	return b.String()
}
