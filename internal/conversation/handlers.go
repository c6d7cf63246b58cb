package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/davekern/repcoach/internal/history"
	"github.com/davekern/repcoach/internal/intent"
	"github.com/davekern/repcoach/internal/schedule"
	"github.com/davekern/repcoach/internal/slots"
	"github.com/davekern/repcoach/internal/store"
	"github.com/davekern/repcoach/internal/workout"
)

// handleIdle routes a fresh utterance by intent.
func (e *Engine) handleIdle(ctx context.Context, sess *Session, turn *Turn, text string) {
	switch e.classifier.Classify(ctx, text) {
	case intent.IntentCreatePlan:
		count, err := e.records.ActiveTemplateCount(ctx, sess.UserID)
		if err != nil {
			e.logger.Warn("active template count failed", "user", sess.UserID, "error", err)
			count = 0
		}
		msg := "Let's build you a training plan. I'll ask a few quick questions first — ready?"
		if count > 0 {
			msg = fmt.Sprintf("Heads up: you already have %d active workout(s), and a new plan adds to them. Still want to build one?", count)
		}
		sess.State = StatePlanConfirm
		e.reply(ctx, sess, turn, msg)
		turn.QuickReplies = confirmMenu()

	case intent.IntentCreateWorkout:
		sess.State = StateWorkoutCreate
		e.reply(ctx, sess, turn, "Describe the workout you want — focus, vibe, anything. I'll put it together.")

	case intent.IntentCreateExercise:
		ex, ok := e.generateExercise(ctx, sess, text)
		if !ok {
			turn.stale = true
			return
		}
		if existing, err := e.records.FindExerciseByName(ctx, ex.Name); err == nil && existing != nil {
			e.replyCard(ctx, sess, turn, history.TypeExercisePreview,
				fmt.Sprintf("%s is already in your exercise library.", existing.Name), ex)
			return
		}
		if err := e.records.CreateExercise(ctx, catalogFromPreview(sess.UserID, ex)); err != nil {
			e.logger.Warn("exercise create failed", "user", sess.UserID, "error", err)
			e.reply(ctx, sess, turn, "I couldn't save that exercise just now — nothing was lost, try again in a bit.")
			return
		}
		e.replyCard(ctx, sess, turn, history.TypeExercisePreview,
			fmt.Sprintf("Added %s to your exercise library.", ex.Name), ex)

	case intent.IntentEditWorkout:
		e.reply(ctx, sess, turn, "Open the workout you want to change, or describe a new one and I'll build a replacement.")

	case intent.IntentDeleteWorkout:
		templates, err := e.records.ActiveTemplates(ctx, sess.UserID)
		if err != nil || len(templates) == 0 {
			e.reply(ctx, sess, turn, "You don't have any saved workouts to remove.")
			return
		}
		e.reply(ctx, sess, turn, "Which workout should I remove?")
		for _, t := range templates {
			turn.QuickReplies = append(turn.QuickReplies, QuickReply{
				ID:      "del-" + t.ID,
				Label:   t.Name,
				Action:  ActionDeleteTemplate,
				Payload: t.ID,
			})
		}
		turn.QuickReplies = append(turn.QuickReplies, QuickReply{
			ID: "del-cancel", Label: "Keep them all", Action: ActionCancel,
		})

	case intent.IntentViewPlans:
		templates, err := e.records.ActiveTemplates(ctx, sess.UserID)
		if err != nil || len(templates) == 0 {
			e.reply(ctx, sess, turn, "You don't have any saved workouts yet. Want me to build you a plan?")
			return
		}
		var b strings.Builder
		b.WriteString("Here's what you have:\n")
		for _, t := range templates {
			b.WriteString("- " + t.Name)
			if len(t.ScheduledDays) > 0 {
				b.WriteString(" (" + formatDayList(t.ScheduledDays) + ")")
			}
			b.WriteString("\n")
		}
		e.reply(ctx, sess, turn, strings.TrimRight(b.String(), "\n"))

	default: // IntentGetTips, IntentGeneral
		answer, ok := e.generateAdvice(ctx, sess, text)
		if !ok {
			turn.stale = true
			return
		}
		e.reply(ctx, sess, turn, answer)
	}
}

// handlePlanConfirm resolves the yes/no gate before slot gathering.
// Ambiguous text is re-run through the extractor: informative answers
// are applied and the flow continues; off-topic chatter is redirected
// without losing the menu.
func (e *Engine) handlePlanConfirm(ctx context.Context, sess *Session, turn *Turn, text string) {
	switch {
	case isAffirmative(text):
		e.continueGather(ctx, sess, turn)
	case isNegative(text):
		sess.reset()
		e.reply(ctx, sess, turn, "No problem. Ask me whenever you want that plan.")
	default:
		u := e.extractor.Extract(ctx, text, sess.Slots)
		if u.OffTopic {
			e.redirect(ctx, sess, turn, u)
			return
		}
		if !u.Empty() {
			sess.Slots.Merge(u)
			e.continueGather(ctx, sess, turn)
			return
		}
		e.reply(ctx, sess, turn, "Should I put a plan together for you?")
		turn.QuickReplies = confirmMenu()
	}
}

// handleGather merges whatever the utterance yields and either prompts
// the next missing slot or, with all five filled, generates the plan.
func (e *Engine) handleGather(ctx context.Context, sess *Session, turn *Turn, text string) {
	u := e.extractor.Extract(ctx, text, sess.Slots)
	if u.OffTopic {
		e.redirect(ctx, sess, turn, u)
		return
	}
	sess.Slots.Merge(u)
	e.continueGather(ctx, sess, turn)
}

// continueGather advances the info-gathering flow: prompt the next
// missing slot, or generate once the slot set is complete.
func (e *Engine) continueGather(ctx context.Context, sess *Session, turn *Turn) {
	if !sess.Slots.Complete() {
		sess.State = StatePlanInfoGather
		next := sess.Slots.Missing()[0]
		prompt, menu := slotPrompt(next)
		e.reply(ctx, sess, turn, prompt)
		turn.QuickReplies = menu
		return
	}

	plan, ok := e.generatePlan(ctx, sess)
	if !ok {
		turn.stale = true
		return
	}
	sess.DraftPlan = plan
	sess.State = StatePlanReady
	e.replyCard(ctx, sess, turn, history.TypePlanCard, planSummary(plan), plan)
	turn.QuickReplies = planReadyMenu()
}

// handlePlanReady resolves apply/edit/discard for the drafted plan.
func (e *Engine) handlePlanReady(ctx context.Context, sess *Session, turn *Turn, text string) {
	switch {
	case isEdit(text):
		sess.State = StatePlanEditing
		e.reply(ctx, sess, turn, `What should I change? Things like "make it 3 days" or "shorter sessions" work.`)
	case isNegative(text):
		e.cancel(ctx, sess, turn)
	case isApply(text):
		e.applyPlan(ctx, sess, turn)
	default:
		e.reply(ctx, sess, turn, "You can save the plan, change something, or discard it.")
		turn.QuickReplies = planReadyMenu()
	}
}

// handlePlanEditing applies an edit instruction to the slots and
// regenerates the draft.
func (e *Engine) handlePlanEditing(ctx context.Context, sess *Session, turn *Turn, text string) {
	u := e.extractor.Extract(ctx, text, slots.SlotSet{})
	if u.OffTopic {
		e.redirect(ctx, sess, turn, u)
		return
	}
	if u.Empty() {
		e.reply(ctx, sess, turn, `Tell me a concrete change — "4 days a week", "45 minute sessions", "bodyweight only".`)
		return
	}
	sess.Slots.Override(u)

	plan, ok := e.generatePlan(ctx, sess)
	if !ok {
		turn.stale = true
		return
	}
	sess.DraftPlan = plan
	sess.State = StatePlanReady
	e.replyCard(ctx, sess, turn, history.TypePlanCard, "Here's the updated plan.\n\n"+planSummary(plan), plan)
	turn.QuickReplies = planReadyMenu()
}

// handleWorkoutCreate stores the free-text description and asks for a
// schedule.
func (e *Engine) handleWorkoutCreate(ctx context.Context, sess *Session, turn *Turn, text string) {
	sess.Description = strings.TrimSpace(text)
	sess.State = StateWorkoutSchedule
	e.reply(ctx, sess, turn, "When do you want to do it? Name the days, or skip scheduling.")
	turn.QuickReplies = scheduleMenu()
}

// handleWorkoutSchedule parses the scheduling phrase and generates the
// single-session preview.
func (e *Engine) handleWorkoutSchedule(ctx context.Context, sess *Session, turn *Turn, text string) {
	days := schedule.ParseDays(text)
	e.finishWorkout(ctx, sess, turn, days)
}

// finishWorkout generates the workout preview for the stored
// description and the given days.
func (e *Engine) finishWorkout(ctx context.Context, sess *Session, turn *Turn, days []workout.Weekday) {
	preview, ok := e.generateWorkout(ctx, sess, days)
	if !ok {
		turn.stale = true
		return
	}
	sess.DraftWorkout = preview
	sess.State = StateWorkoutReady
	e.replyCard(ctx, sess, turn, history.TypeWorkoutPreview, workoutSummary(preview), preview)
	turn.QuickReplies = workoutReadyMenu()
}

// handleWorkoutReady resolves apply/edit/discard for the drafted
// single workout.
func (e *Engine) handleWorkoutReady(ctx context.Context, sess *Session, turn *Turn, text string) {
	switch {
	case isEdit(text):
		sess.State = StateWorkoutEditing
		e.reply(ctx, sess, turn, "What should be different? Describe it and I'll rebuild the workout.")
	case isNegative(text):
		e.cancel(ctx, sess, turn)
	case isApply(text):
		e.applyWorkout(ctx, sess, turn)
	default:
		e.reply(ctx, sess, turn, "You can save this workout, change something, or discard it.")
		turn.QuickReplies = workoutReadyMenu()
	}
}

// handleWorkoutEditing treats the utterance as a revised description
// and regenerates with the same schedule.
func (e *Engine) handleWorkoutEditing(ctx context.Context, sess *Session, turn *Turn, text string) {
	if strings.TrimSpace(text) != "" {
		sess.Description = strings.TrimSpace(text)
	}
	var days []workout.Weekday
	if sess.DraftWorkout != nil {
		days = sess.DraftWorkout.ScheduledDays
	}
	e.finishWorkout(ctx, sess, turn, days)
}

// handleAction executes a selected quick reply.
func (e *Engine) handleAction(ctx context.Context, sess *Session, turn *Turn, qr QuickReply) {
	switch qr.Action {
	case ActionConfirmPlan:
		e.continueGather(ctx, sess, turn)

	case ActionDecline:
		sess.reset()
		e.reply(ctx, sess, turn, "No problem. Ask me whenever you want that plan.")

	case ActionCancel:
		e.cancel(ctx, sess, turn)

	case ActionSetGoal:
		sess.Slots.Merge(slots.Update{Goal: &qr.Payload})
		e.continueGather(ctx, sess, turn)

	case ActionSetExperience:
		sess.Slots.Merge(slots.Update{Experience: &qr.Payload})
		e.continueGather(ctx, sess, turn)

	case ActionSetDays:
		if n, err := strconv.Atoi(qr.Payload); err == nil {
			sess.Slots.Merge(slots.Update{DaysPerWeek: &n})
		}
		e.continueGather(ctx, sess, turn)

	case ActionSetLength:
		if n, err := strconv.Atoi(qr.Payload); err == nil {
			sess.Slots.Merge(slots.Update{SessionLength: &n})
		}
		e.continueGather(ctx, sess, turn)

	case ActionSetEquipment:
		sess.Slots.Merge(slots.Update{Equipment: []string{qr.Payload}})
		e.continueGather(ctx, sess, turn)

	case ActionApplyPlan:
		e.applyPlan(ctx, sess, turn)

	case ActionEditPlan:
		sess.State = StatePlanEditing
		e.reply(ctx, sess, turn, `What should I change? Things like "make it 3 days" or "shorter sessions" work.`)

	case ActionApplyWorkout:
		e.applyWorkout(ctx, sess, turn)

	case ActionEditWorkout:
		sess.State = StateWorkoutEditing
		e.reply(ctx, sess, turn, "What should be different? Describe it and I'll rebuild the workout.")

	case ActionScheduleDays:
		e.finishWorkout(ctx, sess, turn, schedule.ParseDays(qr.Payload))

	case ActionNoSchedule:
		e.finishWorkout(ctx, sess, turn, nil)

	case ActionDeleteTemplate:
		if err := e.records.DeactivateTemplate(ctx, sess.UserID, qr.Payload); err != nil {
			e.logger.Warn("template deactivate failed", "user", sess.UserID, "template", qr.Payload, "error", err)
			e.reply(ctx, sess, turn, "I couldn't remove that workout — it may already be gone.")
			return
		}
		e.reply(ctx, sess, turn, "Done, that workout is removed.")

	default:
		e.logger.Warn("unknown quick reply action", "action", qr.Action)
		e.reply(ctx, sess, turn, "I couldn't run that action. Where were we?")
		turn.QuickReplies = sess.QuickReplies
	}
}

// applyPlan commits the drafted plan and reports the outcome,
// including a soft warning when templates saved but scheduling did
// not.
func (e *Engine) applyPlan(ctx context.Context, sess *Session, turn *Turn) {
	if sess.DraftPlan == nil {
		sess.reset()
		e.reply(ctx, sess, turn, "There's no draft plan right now. Want me to build one?")
		return
	}

	result, err := e.applier.ApplyPlan(ctx, sess.UserID, sess.DraftPlan)
	if err != nil {
		e.logger.Error("plan apply failed", "user", sess.UserID, "error", err)
		e.reply(ctx, sess, turn, "I couldn't save the plan just now. The draft is still here — try saving again.")
		turn.QuickReplies = planReadyMenu()
		return
	}

	msg := fmt.Sprintf("Saved! %d workouts are in your library and %d sessions are on your calendar.",
		result.TemplatesCreated, result.ScheduleCreated)
	if result.ScheduleFailed() {
		msg = fmt.Sprintf("Saved %d workouts to your library. I couldn't finish putting them on your calendar, so schedule those when you get a chance.",
			result.TemplatesCreated)
	}
	sess.reset()
	e.reply(ctx, sess, turn, msg)
}

// applyWorkout commits the drafted single workout.
func (e *Engine) applyWorkout(ctx context.Context, sess *Session, turn *Turn) {
	if sess.DraftWorkout == nil {
		sess.reset()
		e.reply(ctx, sess, turn, "There's no draft workout right now. Describe one and I'll build it.")
		return
	}

	result, err := e.applier.ApplyWorkout(ctx, sess.UserID, sess.DraftWorkout)
	if err != nil {
		e.logger.Error("workout apply failed", "user", sess.UserID, "error", err)
		e.reply(ctx, sess, turn, "I couldn't save the workout just now. The draft is still here — try saving again.")
		turn.QuickReplies = workoutReadyMenu()
		return
	}

	msg := "Saved! The workout is in your library."
	if result.ScheduleCreated > 0 {
		msg = fmt.Sprintf("Saved! The workout is in your library with %d sessions on your calendar.", result.ScheduleCreated)
	} else if result.ScheduleFailed() {
		msg = "Saved the workout to your library. I couldn't put it on your calendar, so schedule it when you get a chance."
	}
	sess.reset()
	e.reply(ctx, sess, turn, msg)
}

// redirect answers an off-topic aside and re-presents the menu that
// was already active, without advancing state.
func (e *Engine) redirect(ctx context.Context, sess *Session, turn *Turn, u slots.Update) {
	msg := u.Redirect
	if msg == "" {
		msg = "Let's get back to your plan — we can chat about that another time."
	}
	e.reply(ctx, sess, turn, msg)
	turn.QuickReplies = sess.QuickReplies
}

// Generation helpers. Each captures the turn sequence, releases the
// session lock for the duration of the call so newer inputs are not
// blocked behind a slow generation, and discards the result if the
// conversation moved on in the meantime.

func (e *Engine) generatePlan(ctx context.Context, sess *Session) (*workout.WorkoutPlan, bool) {
	seq := sess.Seq
	snapshot := sess.Slots
	p := e.persona(sess)

	sess.mu.Unlock()
	plan := e.gen.Plan(ctx, p, snapshot)
	sess.mu.Lock()

	if sess.Seq != seq {
		e.logger.Debug("discarding stale plan generation", "user", sess.UserID)
		return nil, false
	}
	return plan, true
}

func (e *Engine) generateWorkout(ctx context.Context, sess *Session, days []workout.Weekday) (*workout.WorkoutPreview, bool) {
	seq := sess.Seq
	description := sess.Description
	p := e.persona(sess)

	sess.mu.Unlock()
	preview := e.gen.Workout(ctx, p, description, days)
	sess.mu.Lock()

	if sess.Seq != seq {
		e.logger.Debug("discarding stale workout generation", "user", sess.UserID)
		return nil, false
	}
	return preview, true
}

func (e *Engine) generateExercise(ctx context.Context, sess *Session, description string) (*workout.ExercisePreview, bool) {
	seq := sess.Seq
	p := e.persona(sess)

	sess.mu.Unlock()
	ex := e.gen.Exercise(ctx, p, description)
	sess.mu.Lock()

	if sess.Seq != seq {
		e.logger.Debug("discarding stale exercise generation", "user", sess.UserID)
		return nil, false
	}
	return ex, true
}

func (e *Engine) generateAdvice(ctx context.Context, sess *Session, utterance string) (string, bool) {
	seq := sess.Seq
	p := e.persona(sess)

	sess.mu.Unlock()
	answer := e.gen.Advice(ctx, p, utterance)
	sess.mu.Lock()

	if sess.Seq != seq {
		e.logger.Debug("discarding stale advice generation", "user", sess.UserID)
		return "", false
	}
	return answer, true
}

// planSummary renders a plan card's text body in markdown.
func planSummary(plan *workout.WorkoutPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** — %d weeks, %d days/week\n\n", plan.Meta.Name, plan.Meta.LengthWeeks, plan.Meta.DaysPerWeek)
	for _, day := range plan.Days {
		fmt.Fprintf(&b, "**%s — %s** (~%d min)\n", day.DayOfWeek, day.Title, day.EstimatedMinutes)
		for _, ex := range day.Exercises {
			fmt.Fprintf(&b, "- %s: %d × %s\n", ex.Name, ex.Sets, ex.Reps)
		}
		b.WriteString("\n")
	}
	b.WriteString("Want me to save it?")
	return b.String()
}

// workoutSummary renders a single-session preview in markdown.
func workoutSummary(preview *workout.WorkoutPreview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** (~%d min)\n", preview.Title, preview.EstimatedMinutes)
	if len(preview.ScheduledDays) > 0 {
		fmt.Fprintf(&b, "Scheduled: %s\n", formatDayList(preview.ScheduledDays))
	}
	b.WriteString("\n")
	for _, ex := range preview.Exercises {
		fmt.Fprintf(&b, "- %s: %d × %s\n", ex.Name, ex.Sets, ex.Reps)
	}
	b.WriteString("\nWant me to save it?")
	return b.String()
}

func formatDayList(days []workout.Weekday) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return strings.Join(names, ", ")
}

func catalogFromPreview(userID string, ex *workout.ExercisePreview) *store.CatalogExercise {
	return &store.CatalogExercise{
		Name:         ex.Name,
		MuscleGroups: append([]string(nil), ex.MuscleGroups...),
		IsCustom:     true,
		CreatedBy:    userID,
	}
}
