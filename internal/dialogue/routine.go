package dialogue

import (
	"context"

	"github.com/schedchat/schedchat/internal/nlu"
	"github.com/schedchat/schedchat/internal/slots"
	"github.com/schedchat/schedchat/internal/storage"
)

const scheduleChoiceQuestion = "Should it repeat every day, or only on specific days of the week?"

// handleRoutineConfirming interprets the reply to "should this repeat?".
// Yes moves to the schedule-choice question, no pins the task as one-off and
// goes straight to confirmation, anything else re-asks.
func (c *Controller) handleRoutineConfirming(ctx context.Context, conv *storage.Conversation, message string) TurnResult {
	pending := conv.Pending

	res, err := c.gateway.ClassifyConfirmation(ctx, message, pending.Data, pending.Type)
	if err != nil {
		c.logger.Warn("routine confirmation classification failed", "user_id", conv.UserID, "error", err)
		return reply(ActionNeedsRoutineConfirm, repeatQuestion(pending))
	}

	switch res.Intent {
	case nlu.ConfirmationConfirm:
		pending.State = storage.StateRoutineSchedule
		pending.Data.IsRoutine = true
		return reply(ActionNeedsRoutineSchedule, scheduleChoiceQuestion)
	case nlu.ConfirmationReject:
		pending.Data.SetOneOff()
		return c.enterConfirmation(conv)
	default:
		return reply(ActionNeedsRoutineConfirm, repeatQuestion(pending))
	}
}

func repeatQuestion(pending *storage.PendingAction) string {
	if pending.RoutineQuestion != "" {
		return "Sorry, I didn't catch that. " + pending.RoutineQuestion
	}
	return "Sorry, I didn't catch that. Should this repeat regularly? A simple yes or no works."
}

// handleRoutineSchedule interprets the reply to the daily/specific-days
// question. When the classifier is unsure, the deterministic weekday parser
// gets a shot at the raw text before we give up and re-ask.
func (c *Controller) handleRoutineSchedule(ctx context.Context, conv *storage.Conversation, message string) TurnResult {
	pending := conv.Pending

	res, err := c.gateway.ClassifyScheduleChoice(ctx, message)
	if err != nil {
		c.logger.Warn("schedule choice classification failed", "user_id", conv.UserID, "error", err)
		res = nlu.ScheduleChoiceResult{Choice: nlu.ChoiceUnclear}
	}

	switch res.Choice {
	case nlu.ChoiceDaily:
		pending.Data.SetDaily()
		return c.enterConfirmation(conv)
	case nlu.ChoiceSpecificDays:
		days := res.Days
		if len(days) == 0 {
			days = slots.ParseDays(message)
		}
		if len(days) == 0 {
			pending.State = storage.StateSpecificDays
			return reply(ActionNeedsSpecificDays, "Which days of the week? For example \"Monday and Thursday\" or \"weekdays\".")
		}
		pending.Data.SetSpecificDays(days)
		return c.enterConfirmation(conv)
	default:
		if days := slots.ParseDays(message); len(days) > 0 {
			pending.Data.SetSpecificDays(days)
			return c.enterConfirmation(conv)
		}
		return reply(ActionNeedsRoutineSchedule, "Sorry, I didn't catch that. "+scheduleChoiceQuestion)
	}
}

// handleSpecificDays collects the actual weekdays after the user picked a
// specific-days schedule without naming them.
func (c *Controller) handleSpecificDays(ctx context.Context, conv *storage.Conversation, message string) TurnResult {
	pending := conv.Pending

	days, err := c.gateway.ExtractDays(ctx, message)
	if err != nil {
		c.logger.Warn("day extraction failed", "user_id", conv.UserID, "error", err)
		days = nil
	}
	if len(days) == 0 {
		days = slots.ParseDays(message)
	}
	if len(days) == 0 {
		return reply(ActionNeedsSpecificDays, "I couldn't pick out any days there. Which days of the week should it repeat on?")
	}

	pending.Data.SetSpecificDays(days)
	return c.enterConfirmation(conv)
}
