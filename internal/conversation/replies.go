package conversation

import (
	"fmt"
	"strings"

	"github.com/davekern/repcoach/internal/slots"
)

// Quick-reply menus for each gathered slot. Selecting one writes the
// payload straight into the slot, no re-parsing.

func goalMenu() []QuickReply {
	return []QuickReply{
		{ID: "goal-muscle", Label: "Build muscle", Action: ActionSetGoal, Payload: "build muscle"},
		{ID: "goal-weight", Label: "Lose weight", Action: ActionSetGoal, Payload: "lose weight"},
		{ID: "goal-endurance", Label: "Endurance", Action: ActionSetGoal, Payload: "endurance"},
		{ID: "goal-fitness", Label: "General fitness", Action: ActionSetGoal, Payload: "general fitness"},
	}
}

func experienceMenu() []QuickReply {
	return []QuickReply{
		{ID: "exp-beginner", Label: "Beginner", Action: ActionSetExperience, Payload: "beginner"},
		{ID: "exp-intermediate", Label: "Intermediate", Action: ActionSetExperience, Payload: "intermediate"},
		{ID: "exp-advanced", Label: "Advanced", Action: ActionSetExperience, Payload: "advanced"},
	}
}

func daysMenu() []QuickReply {
	var menu []QuickReply
	for _, n := range []int{2, 3, 4, 5} {
		menu = append(menu, QuickReply{
			ID:      fmt.Sprintf("days-%d", n),
			Label:   fmt.Sprintf("%d days a week", n),
			Action:  ActionSetDays,
			Payload: fmt.Sprintf("%d", n),
		})
	}
	return menu
}

func lengthMenu() []QuickReply {
	var menu []QuickReply
	for _, n := range []int{30, 45, 60} {
		menu = append(menu, QuickReply{
			ID:      fmt.Sprintf("length-%d", n),
			Label:   fmt.Sprintf("%d minutes", n),
			Action:  ActionSetLength,
			Payload: fmt.Sprintf("%d", n),
		})
	}
	return menu
}

func equipmentMenu() []QuickReply {
	return []QuickReply{
		{ID: "equip-gym", Label: "Full gym", Action: ActionSetEquipment, Payload: "gym"},
		{ID: "equip-dumbbells", Label: "Home dumbbells", Action: ActionSetEquipment, Payload: "dumbbells"},
		{ID: "equip-bodyweight", Label: "Bodyweight only", Action: ActionSetEquipment, Payload: "bodyweight"},
	}
}

func confirmMenu() []QuickReply {
	return []QuickReply{
		{ID: "confirm-yes", Label: "Yes, let's do it", Action: ActionConfirmPlan},
		{ID: "confirm-no", Label: "Not right now", Action: ActionDecline},
	}
}

func planReadyMenu() []QuickReply {
	return []QuickReply{
		{ID: "plan-apply", Label: "Save this plan", Action: ActionApplyPlan},
		{ID: "plan-edit", Label: "Change something", Action: ActionEditPlan},
		{ID: "plan-cancel", Label: "Discard", Action: ActionCancel},
	}
}

func workoutReadyMenu() []QuickReply {
	return []QuickReply{
		{ID: "workout-apply", Label: "Save this workout", Action: ActionApplyWorkout},
		{ID: "workout-edit", Label: "Change something", Action: ActionEditWorkout},
		{ID: "workout-cancel", Label: "Discard", Action: ActionCancel},
	}
}

func scheduleMenu() []QuickReply {
	return []QuickReply{
		{ID: "sched-mwf", Label: "Mon / Wed / Fri", Action: ActionScheduleDays, Payload: "monday wednesday friday"},
		{ID: "sched-weekend", Label: "Weekends", Action: ActionScheduleDays, Payload: "weekends"},
		{ID: "sched-none", Label: "No set days", Action: ActionNoSchedule},
	}
}

// slotPrompt returns the question and menu for the next missing slot.
func slotPrompt(slot slots.Slot) (string, []QuickReply) {
	switch slot {
	case slots.SlotGoal:
		return "What's your main goal?", goalMenu()
	case slots.SlotExperience:
		return "How much training experience do you have?", experienceMenu()
	case slots.SlotDaysPerWeek:
		return "How many days a week can you train?", daysMenu()
	case slots.SlotSessionLength:
		return "How long should each session be?", lengthMenu()
	case slots.SlotEquipment:
		return "What equipment do you have access to?", equipmentMenu()
	}
	return "Tell me a bit more about what you're after.", nil
}

// cancelPhrases end the current flow from any state.
var cancelPhrases = []string{
	"cancel", "never mind", "nevermind", "forget it", "stop", "quit", "abort",
}

func isCancel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, p := range cancelPhrases {
		if t == p || strings.HasPrefix(t, p+" ") || strings.HasPrefix(t, p+".") || strings.HasPrefix(t, p+",") {
			return true
		}
	}
	return false
}

var affirmativePhrases = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "sounds good", "let's do it",
	"lets do it", "definitely", "absolutely", "go ahead", "please",
}

func isAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, p := range affirmativePhrases {
		if t == p || strings.HasPrefix(t, p+" ") || strings.HasPrefix(t, p+"!") || strings.HasPrefix(t, p+".") || strings.HasPrefix(t, p+",") {
			return true
		}
	}
	return false
}

var negativePhrases = []string{
	"no", "nope", "nah", "not now", "not really", "no thanks", "maybe later",
	"don't", "dont", "do not",
}

func isNegative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, p := range negativePhrases {
		if t == p || strings.HasPrefix(t, p+" ") || strings.HasPrefix(t, p+"!") || strings.HasPrefix(t, p+".") || strings.HasPrefix(t, p+",") {
			return true
		}
	}
	return false
}

var applyPhrases = []string{"save", "apply", "accept", "looks good", "looks great", "perfect", "love it"}

func isApply(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, p := range applyPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return isAffirmative(t)
}

var editPhrases = []string{"edit", "change", "modify", "tweak", "adjust", "swap", "different"}

func isEdit(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, p := range editPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}
