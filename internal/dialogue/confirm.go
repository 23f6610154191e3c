package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/schedchat/schedchat/internal/nlu"
	"github.com/schedchat/schedchat/internal/slots"
	"github.com/schedchat/schedchat/internal/storage"
)

// enterConfirmation moves the pending action into the confirmation state and
// renders the summary the user must approve. Every path through the state
// machine funnels here before anything is committed, so the slot set must be
// committable by the time the summary is shown. The one incomplete shape the
// gateway can hand over is a specific-days schedule with no days; collect
// them instead of offering a summary the executor would reject.
func (c *Controller) enterConfirmation(conv *storage.Conversation) TurnResult {
	pending := conv.Pending
	if pending.Data.ScheduleType == slots.ScheduleSpecificDays && len(pending.Data.ScheduleDays) == 0 {
		pending.State = storage.StateSpecificDays
		pending.MissingFields = nil
		pending.RoutineQuestion = ""
		return reply(ActionNeedsSpecificDays, "Which days of the week? For example \"Monday and Thursday\" or \"weekdays\".")
	}
	pending.State = storage.StateConfirming
	pending.MissingFields = nil
	pending.RoutineQuestion = ""
	return reply(ActionConfirm, renderSummary(pending))
}

// renderSummary builds the deterministic confirmation text from the slot
// set. The model never writes this; corrections must be reflected verbatim.
func renderSummary(pending *storage.PendingAction) string {
	var sb strings.Builder
	data := pending.Data

	noun := "task"
	if pending.Type == slots.ActionScheduleMeeting {
		noun = "meeting"
	}
	fmt.Fprintf(&sb, "Here's the %s I'm about to create:\n", noun)
	fmt.Fprintf(&sb, "- Title: %s\n", data.Title)
	if data.Description != "" && data.Description != data.Title {
		fmt.Fprintf(&sb, "- Details: %s\n", data.Description)
	}

	switch {
	case data.ScheduleType == slots.ScheduleRoutine:
		sb.WriteString("- Repeats: every day\n")
	case data.ScheduleType == slots.ScheduleSpecificDays:
		names := make([]string, len(data.ScheduleDays))
		for i, d := range data.ScheduleDays {
			names[i] = d.DayName()
		}
		fmt.Fprintf(&sb, "- Repeats: every %s\n", joinConjunctive(names))
	default:
		if t, err := data.StartTime(); err == nil && !t.IsZero() {
			fmt.Fprintf(&sb, "- When: %s\n", t.Format("Monday, Jan 2 2006 at 3:04 PM"))
		}
	}

	if pending.Type == slots.ActionScheduleMeeting {
		duration := data.DurationMinutes
		if duration <= 0 {
			duration = slots.DefaultMeetingDuration
		}
		fmt.Fprintf(&sb, "- Duration: %d minutes\n", duration)
	}

	switch {
	case data.ScheduleTime != nil && data.ScheduleTime.FixedTime != "":
		fmt.Fprintf(&sb, "- Reminder: at %s\n", data.ScheduleTime.FixedTime)
	case data.ScheduleTime != nil && data.ScheduleTime.MinutesBeforeStart > 0:
		fmt.Fprintf(&sb, "- Reminder: %d minutes before\n", data.ScheduleTime.MinutesBeforeStart)
	default:
		lead := slots.DefaultTaskLeadMinutes
		if pending.Type == slots.ActionScheduleMeeting {
			lead = slots.DefaultMeetingLeadMinutes
		}
		fmt.Fprintf(&sb, "- Reminder: %d minutes before\n", lead)
	}

	sb.WriteString("Shall I go ahead? You can also say no, or tell me what to change.")
	return sb.String()
}

// handleConfirming interprets the reply to a rendered summary: commit,
// cancel, apply a correction and re-render, or ask again.
func (c *Controller) handleConfirming(ctx context.Context, conv *storage.Conversation, message string) TurnResult {
	pending := conv.Pending

	res, err := c.gateway.ClassifyConfirmation(ctx, message, pending.Data, pending.Type)
	if err != nil {
		c.logger.Warn("confirmation classification failed", "user_id", conv.UserID, "error", err)
		res = nlu.ConfirmationResult{Intent: nlu.ConfirmationUnclear}
	}

	switch res.Intent {
	case nlu.ConfirmationConfirm:
		return c.commit(ctx, conv)
	case nlu.ConfirmationReject:
		title := pending.Data.Title
		conv.Pending = nil
		return reply(ActionCancelled, fmt.Sprintf("No problem, I've dropped %q. Let me know if you need anything else.", title))
	case nlu.ConfirmationModify:
		pending.Data.Merge(res.Modifications)
		result := c.enterConfirmation(conv)
		if result.Action == ActionConfirm {
			result.Response = "Updated. " + result.Response
		}
		return result
	default:
		return reply(ActionAwaitingConfirmation,
			"Just to be sure: say yes to create it, no to cancel, or tell me what you'd like changed.")
	}
}

// commit executes the confirmed action. Success clears the pending action;
// failure keeps it so the user can simply try again.
func (c *Controller) commit(ctx context.Context, conv *storage.Conversation) TurnResult {
	pending := conv.Pending

	switch pending.Type {
	case slots.ActionScheduleMeeting:
		meeting, err := c.executor.ScheduleMeeting(ctx, conv.UserID, pending.Data)
		if err != nil {
			c.logger.Error("scheduling meeting failed", "user_id", conv.UserID, "error", err)
			return TurnResult{
				Success:  false,
				Response: "Something went wrong while scheduling that meeting. Say yes to try again, or no to cancel.",
				Action:   ActionCreationFailed,
			}
		}
		conv.Pending = nil
		return TurnResult{
			Success:  true,
			Response: fmt.Sprintf("Done! I've scheduled %q and will remind you before it starts.", meeting.Title),
			Action:   ActionMeetingScheduled,
			Data:     meeting,
		}
	default:
		task, err := c.executor.CreateTask(ctx, conv.UserID, pending.Data)
		if err != nil {
			c.logger.Error("creating task failed", "user_id", conv.UserID, "error", err)
			return TurnResult{
				Success:  false,
				Response: "Something went wrong while creating that task. Say yes to try again, or no to cancel.",
				Action:   ActionCreationFailed,
			}
		}
		conv.Pending = nil
		return TurnResult{
			Success:  true,
			Response: fmt.Sprintf("Done! I've created %q and will remind you when it's time.", task.Title),
			Action:   ActionTaskCreated,
			Data:     task,
		}
	}
}
