// Package reminder runs the background worker that turns stored tasks and
// meetings into timely notifications.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/schedchat/schedchat/internal/slots"
	"github.com/schedchat/schedchat/internal/storage"
)

// ReminderStore abstracts the schedule queries the worker needs.
type ReminderStore interface {
	PendingReminderTasks(ctx context.Context, limit int) ([]storage.Task, error)
	PendingReminderMeetings(ctx context.Context, limit int) ([]storage.Meeting, error)
	MarkTaskReminderSent(ctx context.Context, id string, at time.Time) error
	MarkMeetingReminderSent(ctx context.Context, id string, at time.Time) error
}

// Notifier delivers a reminder to the user.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// LogNotifier writes reminders to the structured log. It is the default
// delivery channel until a real one is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, userID, message string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("reminder", "user_id", userID, "message", message)
	return nil
}

// Worker polls the store and dispatches due reminders.
type Worker struct {
	store    ReminderStore
	notifier Notifier
	poll     time.Duration
	now      func() time.Time
	logger   *slog.Logger

	// lastRoutineSent keeps same-day dedup for recurring tasks, which stay
	// pending in the store forever. Keyed by task ID, value is the calendar
	// date last dispatched.
	lastRoutineSent map[string]string
}

// NewWorker creates a Worker. If pollInterval is <= 0, it defaults to 30s.
func NewWorker(store ReminderStore, notifier Notifier, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Worker{
		store:           store,
		notifier:        notifier,
		poll:            pollInterval,
		now:             time.Now,
		logger:          slog.Default(),
		lastRoutineSent: map[string]string{},
	}
}

// SetNow overrides the worker clock for tests.
func (w *Worker) SetNow(now func() time.Time) {
	w.now = now
}

// Run polls for due reminders until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := w.RunOnce(ctx); err != nil {
			w.logger.Error("reminder sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce performs a single sweep over pending tasks and meetings.
func (w *Worker) RunOnce(ctx context.Context) error {
	now := w.now().UTC()

	tasks, err := w.store.PendingReminderTasks(ctx, 200)
	if err != nil {
		return fmt.Errorf("listing pending tasks: %w", err)
	}
	for _, t := range tasks {
		if !w.taskDue(t, now) {
			continue
		}
		msg := fmt.Sprintf("Reminder: %s", t.Title)
		if err := w.notifier.Notify(ctx, t.UserID, msg); err != nil {
			w.logger.Warn("task reminder delivery failed", "task_id", t.ID, "error", err)
			continue
		}
		if t.IsRoutine {
			w.lastRoutineSent[t.ID] = now.Format(time.DateOnly)
			continue
		}
		if err := w.store.MarkTaskReminderSent(ctx, t.ID, now); err != nil {
			w.logger.Warn("marking task reminder failed", "task_id", t.ID, "error", err)
		}
	}

	meetings, err := w.store.PendingReminderMeetings(ctx, 200)
	if err != nil {
		return fmt.Errorf("listing pending meetings: %w", err)
	}
	for _, m := range meetings {
		lead := time.Duration(m.LeadMinutes) * time.Minute
		if now.Before(m.StartAt.Add(-lead)) {
			continue
		}
		msg := fmt.Sprintf("Your meeting %q starts at %s", m.Title, m.StartAt.Local().Format("3:04 PM"))
		if err := w.notifier.Notify(ctx, m.UserID, msg); err != nil {
			w.logger.Warn("meeting reminder delivery failed", "meeting_id", m.ID, "error", err)
			continue
		}
		if err := w.store.MarkMeetingReminderSent(ctx, m.ID, now); err != nil {
			w.logger.Warn("marking meeting reminder failed", "meeting_id", m.ID, "error", err)
		}
	}
	return nil
}

// taskDue decides whether a task's reminder should fire right now.
func (w *Worker) taskDue(t storage.Task, now time.Time) bool {
	if t.IsRoutine {
		if w.lastRoutineSent[t.ID] == now.Format(time.DateOnly) {
			return false
		}
		if !scheduledToday(t.ScheduleDays, now) {
			return false
		}
		return now.After(routineFireTime(t, now)) || now.Equal(routineFireTime(t, now))
	}

	if !t.ReminderSentAt.IsZero() {
		return false
	}
	if t.StartAt.IsZero() {
		return false
	}
	fire := t.StartAt.Add(-time.Duration(t.LeadMinutes) * time.Minute)
	if t.FixedTime != "" {
		if at, ok := clockOn(t.StartAt, t.FixedTime); ok {
			fire = at
		}
	}
	return !now.Before(fire)
}

// routineFireTime returns today's fire time for a recurring task: its fixed
// clock time when set, otherwise 09:00 local.
func routineFireTime(t storage.Task, now time.Time) time.Time {
	if t.FixedTime != "" {
		if at, ok := clockOn(now, t.FixedTime); ok {
			return at
		}
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())
}

// scheduledToday reports whether a recurring schedule covers now's weekday.
// An empty day list means every day.
func scheduledToday(days []slots.DayCode, now time.Time) bool {
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if d.Weekday() == now.Weekday() {
			return true
		}
	}
	return false
}

// clockOn combines a calendar day with an "HH:MM" clock time. Returns false
// when the clock string does not parse.
func clockOn(day time.Time, clock string) (time.Time, bool) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), true
}
