package storage

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/schedchat/schedchat/internal/slots"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when a conversation upsert lost a
// concurrent-turn race; the caller's copy is stale and the turn must fail
// without writing.
var ErrVersionConflict = errors.New("conversation version conflict")

// ChatMessage is one entry in a conversation transcript.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// DialogueState enumerates which dialogue sub-flow a pending action is in.
// Exactly one state is active at a time.
type DialogueState string

const (
	StateCollectingFields  DialogueState = "collecting_fields"
	StateRoutineConfirming DialogueState = "routine_confirming"
	StateRoutineSchedule   DialogueState = "routine_schedule"
	StateSpecificDays      DialogueState = "specific_days"
	StateConfirming        DialogueState = "confirming"
)

// PendingAction is the in-flight dialogue state persisted between turns.
type PendingAction struct {
	ID            string           `json:"id"`
	Type          slots.ActionType `json:"type"`
	Data          slots.SlotSet    `json:"data"`
	State         DialogueState    `json:"state"`
	MissingFields []string         `json:"missingFields,omitempty"`

	// RoutineQuestion holds the tailored yes/no prompt while the routine
	// offer is outstanding, so a re-ask does not need another gateway call.
	RoutineQuestion string `json:"routineQuestion,omitempty"`
}

// legacyFlags are the boolean sub-state fields older payloads carried in
// place of the single state enum.
type legacyFlags struct {
	NeedsRoutineConfirmation bool `json:"needsRoutineConfirmation"`
	NeedsRoutineSchedule     bool `json:"needsRoutineSchedule"`
	NeedsSpecificDays        bool `json:"needsSpecificDays"`
	ConfirmationNeeded       bool `json:"confirmationNeeded"`
}

// UnmarshalJSON decodes a pending action, normalizing legacy boolean flags
// into the state enum. When several flags are set at once the fixed
// precedence applies: routine confirmation, then routine schedule, then
// specific days, then confirmation, then field collection. Missing fields
// never win over an outstanding confirmation.
func (p *PendingAction) UnmarshalJSON(b []byte) error {
	type plain PendingAction
	var aux struct {
		plain
		legacyFlags
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = PendingAction(aux.plain)
	if p.State != "" {
		return nil
	}
	switch {
	case aux.NeedsRoutineConfirmation:
		p.State = StateRoutineConfirming
	case aux.NeedsRoutineSchedule:
		p.State = StateRoutineSchedule
	case aux.NeedsSpecificDays:
		p.State = StateSpecificDays
	case aux.ConfirmationNeeded:
		p.State = StateConfirming
	case len(p.MissingFields) > 0:
		p.State = StateCollectingFields
	}
	return nil
}

// Conversation is the per-user unit of persistence. Version supports
// compare-and-swap upserts so two interleaved turns for the same user
// cannot silently overwrite each other.
type Conversation struct {
	UserID    string
	Messages  []ChatMessage
	Pending   *PendingAction
	Version   int64
	UpdatedAt time.Time
}

// Append adds a message to the transcript.
func (c *Conversation) Append(role, content string) {
	c.Messages = append(c.Messages, ChatMessage{Role: role, Content: content})
}

// Task is a finalized task record written once on confirmation.
type Task struct {
	ID             string
	UserID         string
	Title          string
	Description    string
	ScheduleType   slots.ScheduleType
	StartAt        time.Time // zero for recurring schedules without an anchor
	ScheduleDays   []slots.DayCode
	FixedTime      string // "HH:MM" reminder clock time, when set
	LeadMinutes    int    // minutes before start, when FixedTime is unset
	IsRoutine      bool
	CreatedAt      time.Time
	ReminderSentAt time.Time // zero until the reminder worker dispatches
}

// Meeting is a finalized meeting record written once on confirmation.
type Meeting struct {
	ID              string
	UserID          string
	Title           string
	Description     string
	StartAt         time.Time
	EndAt           time.Time
	DurationMinutes int
	LeadMinutes     int
	CreatedAt       time.Time
	ReminderSentAt  time.Time
}
