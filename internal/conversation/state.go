// Package conversation implements the dialogue engine: a per-user
// state machine that gathers preferences through chat, drives plan and
// workout generation, and commits accepted drafts.
package conversation

import (
	"sync"

	"github.com/davekern/repcoach/internal/history"
	"github.com/davekern/repcoach/internal/slots"
	"github.com/davekern/repcoach/internal/workout"
)

// State is the conversation's position in the dialogue flow. Exactly
// one state is active per conversation at any time.
type State string

const (
	StateIdle            State = "idle"
	StatePlanConfirm     State = "plan_confirm"
	StatePlanInfoGather  State = "plan_info_gather"
	StatePlanReady       State = "plan_ready"
	StatePlanEditing     State = "plan_editing"
	StateWorkoutCreate   State = "workout_create"
	StateWorkoutSchedule State = "workout_schedule"
	StateWorkoutReady    State = "workout_ready"
	StateWorkoutEditing  State = "workout_editing"
)

// Action identifies what a quick reply does when selected. Quick
// replies bypass free-text parsing entirely.
type Action string

const (
	ActionConfirmPlan    Action = "confirm_plan"
	ActionDecline        Action = "decline"
	ActionCancel         Action = "cancel"
	ActionSetGoal        Action = "set_goal"
	ActionSetExperience  Action = "set_experience"
	ActionSetDays        Action = "set_days"
	ActionSetLength      Action = "set_length"
	ActionSetEquipment   Action = "set_equipment"
	ActionApplyPlan      Action = "apply_plan"
	ActionEditPlan       Action = "edit_plan"
	ActionApplyWorkout   Action = "apply_workout"
	ActionEditWorkout    Action = "edit_workout"
	ActionScheduleDays   Action = "schedule_days"
	ActionNoSchedule     Action = "no_schedule"
	ActionDeleteTemplate Action = "delete_template"
)

// QuickReply is a canned response bound to a state-machine action.
type QuickReply struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Action  Action `json:"action"`
	Payload string `json:"payload,omitempty"`
}

// Turn is the result of processing one input: the messages produced,
// the quick replies now on offer, and the resulting state.
type Turn struct {
	Messages     []history.ChatMessage `json:"messages"`
	QuickReplies []QuickReply          `json:"quick_replies,omitempty"`
	State        State                 `json:"state"`

	// stale marks a turn whose generation result arrived after a newer
	// input had already advanced the conversation. A stale turn is
	// discarded: it must not overwrite the newer turn's state or menu.
	stale bool
}

// Session is the explicit, serializable per-user conversation state.
// All mutation happens under mu; turn processing is strictly
// sequential per user.
type Session struct {
	UserID       string                  `json:"user_id"`
	State        State                   `json:"state"`
	Persona      string                  `json:"persona,omitempty"`
	Slots        slots.SlotSet           `json:"slots"`
	DraftPlan    *workout.WorkoutPlan    `json:"draft_plan,omitempty"`
	DraftWorkout *workout.WorkoutPreview `json:"draft_workout,omitempty"`
	Description  string                  `json:"workout_description,omitempty"`
	QuickReplies []QuickReply            `json:"quick_replies,omitempty"`

	// Seq increments at the start of every turn. A generation result
	// that comes back after Seq has moved on is stale and discarded.
	Seq uint64 `json:"-"`

	mu sync.Mutex
}

// reset returns the session to idle and discards gathered slots and
// drafts. Used by cancel, restart, and successful apply.
func (s *Session) reset() {
	s.State = StateIdle
	s.Slots.Clear()
	s.DraftPlan = nil
	s.DraftWorkout = nil
	s.Description = ""
	s.QuickReplies = nil
}
