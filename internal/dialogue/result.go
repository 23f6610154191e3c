package dialogue

// ActionTag is the machine-readable outcome of a chat turn.
type ActionTag string

const (
	ActionNone                 ActionTag = "none"
	ActionNeedsInfo            ActionTag = "needs_info"
	ActionNeedsRoutineConfirm  ActionTag = "needs_routine_confirmation"
	ActionNeedsRoutineSchedule ActionTag = "needs_routine_schedule"
	ActionNeedsSpecificDays    ActionTag = "needs_specific_days"
	ActionConfirm              ActionTag = "confirm_action"
	ActionTaskCreated          ActionTag = "create_task_success"
	ActionMeetingScheduled     ActionTag = "schedule_meeting_success"
	ActionCancelled            ActionTag = "action_cancelled"
	ActionAwaitingConfirmation ActionTag = "awaiting_confirmation"
	ActionCreationFailed       ActionTag = "creation_failed"
)

// TurnResult is the caller-facing outcome of one chat turn.
type TurnResult struct {
	Success  bool      `json:"success"`
	Response string    `json:"response"`
	Action   ActionTag `json:"action"`
	Data     any       `json:"data,omitempty"`
}

func reply(action ActionTag, response string) TurnResult {
	return TurnResult{Success: true, Response: response, Action: action}
}
