package dialogue

import (
	"context"
	"fmt"

	"github.com/schedchat/schedchat/internal/slots"
	"github.com/schedchat/schedchat/internal/storage"
)

// ActionStore persists committed actions.
type ActionStore interface {
	CreateTask(ctx context.Context, t storage.Task) (storage.Task, error)
	CreateMeeting(ctx context.Context, m storage.Meeting) (storage.Meeting, error)
}

// Executor turns a confirmed slot set into exactly one stored record,
// applying the reminder and duration defaults the dialogue never asks about.
type Executor struct {
	store ActionStore
}

// NewExecutor wires the executor to its store.
func NewExecutor(store ActionStore) *Executor {
	return &Executor{store: store}
}

// CreateTask validates and persists a confirmed task.
func (e *Executor) CreateTask(ctx context.Context, userID string, data slots.SlotSet) (storage.Task, error) {
	if err := data.Validate(slots.ActionCreateTask); err != nil {
		return storage.Task{}, fmt.Errorf("invalid task: %w", err)
	}

	task := storage.Task{
		UserID:       userID,
		Title:        data.Title,
		Description:  data.Description,
		ScheduleType: data.ScheduleType,
		ScheduleDays: data.ScheduleDays,
		IsRoutine:    data.IsRoutine,
		LeadMinutes:  slots.DefaultTaskLeadMinutes,
	}
	if task.ScheduleType == "" {
		task.ScheduleType = slots.ScheduleOneDay
	}
	if task.ScheduleType == slots.ScheduleRoutine && len(task.ScheduleDays) == 0 {
		task.ScheduleDays = append([]slots.DayCode(nil), slots.AllDays...)
	}

	start, err := data.StartTime()
	if err != nil {
		return storage.Task{}, fmt.Errorf("invalid start date: %w", err)
	}
	task.StartAt = start

	if data.ScheduleTime != nil {
		if data.ScheduleTime.FixedTime != "" {
			task.FixedTime = data.ScheduleTime.FixedTime
			task.LeadMinutes = 0
		} else if data.ScheduleTime.MinutesBeforeStart > 0 {
			task.LeadMinutes = data.ScheduleTime.MinutesBeforeStart
		}
	}

	return e.store.CreateTask(ctx, task)
}

// ScheduleMeeting validates and persists a confirmed meeting.
func (e *Executor) ScheduleMeeting(ctx context.Context, userID string, data slots.SlotSet) (storage.Meeting, error) {
	if err := data.Validate(slots.ActionScheduleMeeting); err != nil {
		return storage.Meeting{}, fmt.Errorf("invalid meeting: %w", err)
	}
	start, err := data.StartTime()
	if err != nil || start.IsZero() {
		return storage.Meeting{}, fmt.Errorf("meeting requires a start time")
	}

	meeting := storage.Meeting{
		UserID:          userID,
		Title:           data.Title,
		Description:     data.Description,
		StartAt:         start,
		DurationMinutes: data.DurationMinutes,
		LeadMinutes:     slots.DefaultMeetingLeadMinutes,
	}
	if meeting.DurationMinutes <= 0 {
		meeting.DurationMinutes = slots.DefaultMeetingDuration
	}
	if data.ScheduleTime != nil && data.ScheduleTime.MinutesBeforeStart > 0 {
		meeting.LeadMinutes = data.ScheduleTime.MinutesBeforeStart
	}

	return e.store.CreateMeeting(ctx, meeting)
}
