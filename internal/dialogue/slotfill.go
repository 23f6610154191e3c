package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/schedchat/schedchat/internal/slots"
	"github.com/schedchat/schedchat/internal/storage"
)

// collectFields runs one slot-filling turn: extract only the missing fields
// from the reply, merge, and either ask again or move on. An extraction
// failure is treated as "nothing new" so the same question is re-asked
// instead of failing the turn.
func (c *Controller) collectFields(ctx context.Context, conv *storage.Conversation, message string) TurnResult {
	pending := conv.Pending

	extraction, err := c.gateway.ExtractFields(ctx, message, pending.MissingFields, pending.Data)
	if err != nil {
		c.logger.Warn("field extraction failed", "user_id", conv.UserID, "error", err)
		return reply(ActionNeedsInfo, clarifyingQuestion(pending))
	}

	pending.Data.Merge(extraction.Extracted)
	pending.MissingFields = pending.Data.MissingFields(pending.Type)

	if len(pending.MissingFields) > 0 {
		return reply(ActionNeedsInfo, clarifyingQuestion(pending))
	}
	return c.maybeOfferRoutine(ctx, conv)
}

// fieldLabels maps slot field names to the phrasing used in questions.
var fieldLabels = map[string]string{
	slots.FieldTitle:     "what it's about",
	slots.FieldStartDate: "when it should happen",
}

// clarifyingQuestion renders the next question for the still-missing fields,
// restating already-known values for reassurance.
func clarifyingQuestion(pending *storage.PendingAction) string {
	var sb strings.Builder

	noun := "task"
	if pending.Type == slots.ActionScheduleMeeting {
		noun = "meeting"
	}

	var known []string
	if pending.Data.Title != "" {
		known = append(known, fmt.Sprintf("it's about %q", pending.Data.Title))
	}
	if pending.Data.StartDateISO != "" {
		if t, err := pending.Data.StartTime(); err == nil {
			known = append(known, "it's set for "+t.Format("Monday, Jan 2 at 3:04 PM"))
		}
	}
	if len(known) > 0 {
		fmt.Fprintf(&sb, "Got it so far: %s. ", joinConjunctive(known))
	} else {
		fmt.Fprintf(&sb, "Happy to set up that %s. ", noun)
	}

	labels := make([]string, 0, len(pending.MissingFields))
	for _, f := range pending.MissingFields {
		if label, ok := fieldLabels[f]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, f)
		}
	}
	fmt.Fprintf(&sb, "Could you tell me %s?", joinConjunctive(labels))
	return sb.String()
}

// joinConjunctive joins items as "a", "a and b", or "a, b, and c".
func joinConjunctive(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
