package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/davekern/repcoach/internal/apply"
	"github.com/davekern/repcoach/internal/generator"
	"github.com/davekern/repcoach/internal/history"
	"github.com/davekern/repcoach/internal/intent"
	"github.com/davekern/repcoach/internal/persona"
	"github.com/davekern/repcoach/internal/slots"
	"github.com/davekern/repcoach/internal/store"
)

// ErrNoUser is returned when an operation arrives without an identity.
var ErrNoUser = errors.New("no user id")

// Engine orchestrates the dialogue: it owns the per-user sessions and
// wires the classifier, extractor, schedule parser, generator, history
// store, and applier together. Inputs for one user are processed
// strictly sequentially; a turn commits before the next is accepted.
type Engine struct {
	classifier *intent.Classifier
	extractor  *slots.Extractor
	gen        *generator.Generator
	history    *history.Store
	applier    *apply.Applier
	records    *store.Store
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates the dialogue engine.
func New(classifier *intent.Classifier, extractor *slots.Extractor, gen *generator.Generator,
	hist *history.Store, applier *apply.Applier, records *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		classifier: classifier,
		extractor:  extractor,
		gen:        gen,
		history:    hist,
		applier:    applier,
		records:    records,
		logger:     logger,
		sessions:   make(map[string]*Session),
	}
}

// session returns the user's session, creating an idle one on first
// contact.
func (e *Engine) session(userID string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[userID]
	if !ok {
		s = &Session{UserID: userID, State: StateIdle}
		e.sessions[userID] = s
	}
	return s
}

// SendMessage processes one free-text input and returns the resulting
// turn. personaKey is optional; the last non-empty value sticks to the
// session. Every code path resolves to a reply and a defined state.
func (e *Engine) SendMessage(ctx context.Context, userID, personaKey, text string) (*Turn, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	sess := e.session(userID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Seq++
	if personaKey != "" {
		sess.Persona = personaKey
	}

	turn := &Turn{}
	e.record(ctx, turn, e.userMessage(userID, text))

	if sess.State != StateIdle && isCancel(text) {
		e.cancel(ctx, sess, turn)
		return e.commit(sess, turn), nil
	}

	switch sess.State {
	case StateIdle:
		e.handleIdle(ctx, sess, turn, text)
	case StatePlanConfirm:
		e.handlePlanConfirm(ctx, sess, turn, text)
	case StatePlanInfoGather:
		e.handleGather(ctx, sess, turn, text)
	case StatePlanReady:
		e.handlePlanReady(ctx, sess, turn, text)
	case StatePlanEditing:
		e.handlePlanEditing(ctx, sess, turn, text)
	case StateWorkoutCreate:
		e.handleWorkoutCreate(ctx, sess, turn, text)
	case StateWorkoutSchedule:
		e.handleWorkoutSchedule(ctx, sess, turn, text)
	case StateWorkoutReady:
		e.handleWorkoutReady(ctx, sess, turn, text)
	case StateWorkoutEditing:
		e.handleWorkoutEditing(ctx, sess, turn, text)
	default:
		// Unknown state is unreachable, but the contract is that no
		// path leaves the turn without a resolved reply and state.
		e.logger.Error("conversation in unknown state, resetting", "state", sess.State, "user", userID)
		sess.reset()
		e.reply(ctx, sess, turn, "Let's start over. What would you like to do?")
	}

	return e.commit(sess, turn), nil
}

// SelectQuickReply executes a canned action from the last-offered
// menu, bypassing free-text parsing.
func (e *Engine) SelectQuickReply(ctx context.Context, userID, replyID string) (*Turn, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	sess := e.session(userID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Seq++

	var selected *QuickReply
	for i := range sess.QuickReplies {
		if sess.QuickReplies[i].ID == replyID {
			selected = &sess.QuickReplies[i]
			break
		}
	}

	turn := &Turn{}
	if selected == nil {
		// Stale menu or unknown id: re-present the current options.
		e.logger.Debug("unknown quick reply", "user", userID, "reply", replyID)
		e.reply(ctx, sess, turn, "That option isn't available any more — here's where we are.")
		turn.QuickReplies = sess.QuickReplies
		return e.commit(sess, turn), nil
	}

	e.record(ctx, turn, e.userMessage(userID, selected.Label))
	e.handleAction(ctx, sess, turn, *selected)
	return e.commit(sess, turn), nil
}

// Restart resets the conversation to idle, clearing slots and drafts
// but keeping persisted history.
func (e *Engine) Restart(ctx context.Context, userID string) (*Turn, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	sess := e.session(userID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Seq++
	sess.reset()

	turn := &Turn{}
	e.reply(ctx, sess, turn, "Fresh start. Want a training plan, a single workout, or some advice?")
	return e.commit(sess, turn), nil
}

// ClearConversation resets the session and purges persisted history.
func (e *Engine) ClearConversation(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	sess := e.session(userID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Seq++
	sess.reset()

	if err := e.history.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}

// History returns the user's recent transcript. A degraded or empty
// store yields an empty slice, which callers treat as a fresh
// conversation.
func (e *Engine) History(ctx context.Context, userID string, windowDays int) ([]history.ChatMessage, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	return e.history.Recent(ctx, userID, windowDays), nil
}

// StateOf reports the user's current conversation state.
func (e *Engine) StateOf(userID string) State {
	sess := e.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.State
}

// persona resolves the session's persona configuration.
func (e *Engine) persona(sess *Session) persona.Persona {
	return persona.Get(sess.Persona)
}

// commit stores the turn's quick replies on the session and stamps the
// final state. A stale turn commits nothing; it reports the state the
// newer turn established. Called with the session lock held.
func (e *Engine) commit(sess *Session, turn *Turn) *Turn {
	if turn.stale {
		turn.QuickReplies = sess.QuickReplies
		turn.State = sess.State
		return turn
	}
	sess.QuickReplies = turn.QuickReplies
	turn.State = sess.State
	return turn
}

// cancel aborts the current flow from any state.
func (e *Engine) cancel(ctx context.Context, sess *Session, turn *Turn) {
	sess.reset()
	e.reply(ctx, sess, turn, "No problem, I've cleared that. Ask me whenever you're ready.")
}

// reply emits a plain text assistant message.
func (e *Engine) reply(ctx context.Context, sess *Session, turn *Turn, content string) {
	e.record(ctx, turn, history.ChatMessage{
		ID:        history.NewID(),
		UserID:    sess.UserID,
		Sender:    history.SenderAssistant,
		Type:      history.TypeText,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

// replyCard emits an assistant message carrying a structured payload
// (plan card, workout preview, exercise preview).
func (e *Engine) replyCard(ctx context.Context, sess *Session, turn *Turn, msgType history.MessageType, content string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Warn("failed to marshal card payload", "type", msgType, "error", err)
		e.reply(ctx, sess, turn, content)
		return
	}
	e.record(ctx, turn, history.ChatMessage{
		ID:        history.NewID(),
		UserID:    sess.UserID,
		Sender:    history.SenderAssistant,
		Type:      msgType,
		Content:   content,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	})
}

func (e *Engine) userMessage(userID, text string) history.ChatMessage {
	return history.ChatMessage{
		ID:        history.NewID(),
		UserID:    userID,
		Sender:    history.SenderUser,
		Type:      history.TypeText,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
}

// record persists a message (best effort) and adds it to the turn.
func (e *Engine) record(ctx context.Context, turn *Turn, msg history.ChatMessage) {
	e.history.Append(ctx, msg)
	turn.Messages = append(turn.Messages, msg)
}
