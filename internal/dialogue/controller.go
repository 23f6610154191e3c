// Package dialogue contains the stateful orchestration that drives a user
// from free-text chat turns to a confirmed, committed task or meeting. Each
// turn is an independent request: the only state crossing turn boundaries is
// the persisted conversation document, written back with a compare-and-swap
// so interleaved turns for the same user cannot clobber each other.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/schedchat/schedchat/internal/nlu"
	"github.com/schedchat/schedchat/internal/slots"
	"github.com/schedchat/schedchat/internal/storage"
)

// Gateway is the NLU surface the controller depends on.
type Gateway interface {
	DetectIntent(ctx context.Context, message string) (nlu.IntentResult, error)
	ExtractFields(ctx context.Context, message string, missing []string, existing slots.SlotSet) (nlu.ExtractionResult, error)
	ClassifyConfirmation(ctx context.Context, message string, data slots.SlotSet, action slots.ActionType) (nlu.ConfirmationResult, error)
	CheckRoutineLikelihood(ctx context.Context, title, description string) (nlu.RoutineLikelihood, error)
	ClassifyScheduleChoice(ctx context.Context, message string) (nlu.ScheduleChoiceResult, error)
	ExtractDays(ctx context.Context, message string) ([]slots.DayCode, error)
}

// ConversationStore persists conversation documents between turns.
type ConversationStore interface {
	FindConversation(ctx context.Context, userID string) (storage.Conversation, error)
	UpsertConversation(ctx context.Context, c *storage.Conversation) error
}

// Controller is the dialogue state machine. Given the stored pending action
// (or none) and the new message, it drives exactly one sub-flow per turn and
// writes the next state back.
type Controller struct {
	gateway       Gateway
	conversations ConversationStore
	executor      *Executor
	logger        *slog.Logger
}

// NewController wires the controller to its collaborators.
func NewController(gateway Gateway, conversations ConversationStore, executor *Executor) *Controller {
	return &Controller{
		gateway:       gateway,
		conversations: conversations,
		executor:      executor,
		logger:        slog.Default(),
	}
}

const fallbackReply = "I can create tasks and schedule meetings for you. " +
	"Try something like \"remind me to call John tomorrow at 5pm\" or \"schedule a meeting with the team on Friday at 10am\"."

// HandleTurn processes one chat turn for a user and persists the updated
// conversation. A storage or unexpected failure fails the whole turn with
// the stored state unchanged.
func (c *Controller) HandleTurn(ctx context.Context, userID, message string) (TurnResult, error) {
	if userID == "" {
		return TurnResult{}, fmt.Errorf("user id is required")
	}

	conv, err := c.conversations.FindConversation(ctx, userID)
	if err == storage.ErrNotFound {
		conv = storage.Conversation{UserID: userID}
	} else if err != nil {
		return TurnResult{}, fmt.Errorf("loading conversation: %w", err)
	}

	conv.Append("user", message)
	result := c.processTurn(ctx, &conv, message)
	conv.Append("assistant", result.Response)

	if err := c.conversations.UpsertConversation(ctx, &conv); err != nil {
		return TurnResult{}, fmt.Errorf("persisting conversation: %w", err)
	}
	return result, nil
}

// processTurn routes the message to the sub-flow implied by the stored
// pending action state, or runs fresh intent detection when idle.
func (c *Controller) processTurn(ctx context.Context, conv *storage.Conversation, message string) TurnResult {
	if conv.Pending == nil {
		return c.detectIntent(ctx, conv, message)
	}

	switch conv.Pending.State {
	case storage.StateRoutineConfirming:
		return c.handleRoutineConfirming(ctx, conv, message)
	case storage.StateRoutineSchedule:
		return c.handleRoutineSchedule(ctx, conv, message)
	case storage.StateSpecificDays:
		return c.handleSpecificDays(ctx, conv, message)
	case storage.StateConfirming:
		return c.handleConfirming(ctx, conv, message)
	case storage.StateCollectingFields:
		return c.collectFields(ctx, conv, message)
	default:
		// A pending action without a recognizable state is unrecoverable;
		// drop it and start over rather than looping forever.
		c.logger.Warn("dropping pending action with unknown state",
			"user_id", conv.UserID, "state", conv.Pending.State)
		conv.Pending = nil
		return c.detectIntent(ctx, conv, message)
	}
}

// detectIntent runs fresh intent detection on a raw message and starts a
// pending action when one is requested. Gateway failures and low-confidence
// classifications both fall through to a plain conversational reply.
func (c *Controller) detectIntent(ctx context.Context, conv *storage.Conversation, message string) TurnResult {
	res, err := c.gateway.DetectIntent(ctx, message)
	if err != nil {
		c.logger.Warn("intent detection failed", "user_id", conv.UserID, "error", err)
		return reply(ActionNone, fallbackReply)
	}
	if res.Intent == nlu.IntentNone {
		return reply(ActionNone, fallbackReply)
	}

	pending := &storage.PendingAction{
		ID:   uuid.New().String(),
		Type: res.Intent.ActionType(),
		Data: res.Data,
	}
	conv.Pending = pending

	if missing := pending.Data.MissingFields(pending.Type); len(missing) > 0 {
		pending.State = storage.StateCollectingFields
		pending.MissingFields = missing
		return reply(ActionNeedsInfo, clarifyingQuestion(pending))
	}
	return c.maybeOfferRoutine(ctx, conv)
}

// maybeOfferRoutine runs the routine-likelihood check for tasks whose slot
// set is complete but not already recurring, then falls through to the
// confirmation summary. A gateway failure here skips the offer rather than
// failing the turn.
func (c *Controller) maybeOfferRoutine(ctx context.Context, conv *storage.Conversation) TurnResult {
	pending := conv.Pending
	if pending.Type != slots.ActionCreateTask || pending.Data.IsRoutine {
		return c.enterConfirmation(conv)
	}

	likelihood, err := c.gateway.CheckRoutineLikelihood(ctx, pending.Data.Title, pending.Data.Description)
	if err != nil {
		c.logger.Warn("routine likelihood check failed", "user_id", conv.UserID, "error", err)
		return c.enterConfirmation(conv)
	}
	if !likelihood.LikelyRoutine {
		return c.enterConfirmation(conv)
	}

	pending.State = storage.StateRoutineConfirming
	pending.MissingFields = nil
	pending.RoutineQuestion = likelihood.Question
	if pending.RoutineQuestion == "" {
		pending.RoutineQuestion = fmt.Sprintf("Would you like %q to repeat regularly?", pending.Data.Title)
	}
	return reply(ActionNeedsRoutineConfirm, pending.RoutineQuestion)
}
