package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/schedchat/schedchat/internal/slots"
	"github.com/schedchat/schedchat/internal/storage"
)

type fakeStore struct {
	tasks    []storage.Task
	meetings []storage.Meeting

	taskMarks    []string
	meetingMarks []string
}

func (s *fakeStore) PendingReminderTasks(ctx context.Context, limit int) ([]storage.Task, error) {
	return s.tasks, nil
}

func (s *fakeStore) PendingReminderMeetings(ctx context.Context, limit int) ([]storage.Meeting, error) {
	return s.meetings, nil
}

func (s *fakeStore) MarkTaskReminderSent(ctx context.Context, id string, at time.Time) error {
	s.taskMarks = append(s.taskMarks, id)
	return nil
}

func (s *fakeStore) MarkMeetingReminderSent(ctx context.Context, id string, at time.Time) error {
	s.meetingMarks = append(s.meetingMarks, id)
	return nil
}

type captureNotifier struct {
	sent []string
}

func (n *captureNotifier) Notify(ctx context.Context, userID, message string) error {
	n.sent = append(n.sent, userID+": "+message)
	return nil
}

func newTestWorker(store *fakeStore, now time.Time) (*Worker, *captureNotifier) {
	n := &captureNotifier{}
	w := NewWorker(store, n, time.Second)
	w.SetNow(func() time.Time { return now })
	return w, n
}

func TestRunOnce_OneOffTaskDue(t *testing.T) {
	now := time.Date(2026, 8, 28, 16, 50, 0, 0, time.UTC)
	store := &fakeStore{
		tasks: []storage.Task{{
			ID:          "t1",
			UserID:      "alice",
			Title:       "call John",
			StartAt:     time.Date(2026, 8, 28, 17, 0, 0, 0, time.UTC),
			LeadMinutes: 15,
		}},
	}
	w, n := newTestWorker(store, now)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("sent = %v, want one reminder (15m lead puts fire time at 16:45)", n.sent)
	}
	if len(store.taskMarks) != 1 || store.taskMarks[0] != "t1" {
		t.Errorf("taskMarks = %v, want [t1]", store.taskMarks)
	}
}

func TestRunOnce_OneOffTaskNotYetDue(t *testing.T) {
	now := time.Date(2026, 8, 28, 16, 0, 0, 0, time.UTC)
	store := &fakeStore{
		tasks: []storage.Task{{
			ID:          "t1",
			UserID:      "alice",
			Title:       "call John",
			StartAt:     time.Date(2026, 8, 28, 17, 0, 0, 0, time.UTC),
			LeadMinutes: 15,
		}},
	}
	w, n := newTestWorker(store, now)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(n.sent) != 0 {
		t.Errorf("sent = %v, want none before fire time", n.sent)
	}
}

func TestRunOnce_AlreadySentSkipped(t *testing.T) {
	now := time.Date(2026, 8, 28, 18, 0, 0, 0, time.UTC)
	store := &fakeStore{
		tasks: []storage.Task{{
			ID:             "t1",
			UserID:         "alice",
			Title:          "call John",
			StartAt:        time.Date(2026, 8, 28, 17, 0, 0, 0, time.UTC),
			LeadMinutes:    15,
			ReminderSentAt: time.Date(2026, 8, 28, 16, 45, 0, 0, time.UTC),
		}},
	}
	w, n := newTestWorker(store, now)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(n.sent) != 0 {
		t.Errorf("sent = %v, want none for already-reminded task", n.sent)
	}
}

func TestRunOnce_RoutineFiresOncePerDay(t *testing.T) {
	// 2026-08-28 is a Friday.
	now := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
	store := &fakeStore{
		tasks: []storage.Task{{
			ID:           "t1",
			UserID:       "alice",
			Title:        "stretch",
			ScheduleType: slots.ScheduleRoutine,
			ScheduleDays: slots.AllDays,
			FixedTime:    "09:00",
			IsRoutine:    true,
		}},
	}
	w, n := newTestWorker(store, now)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(n.sent) != 1 {
		t.Errorf("sent = %v, want exactly one per day", n.sent)
	}
	if len(store.taskMarks) != 0 {
		t.Errorf("taskMarks = %v, routine tasks must stay pending", store.taskMarks)
	}
}

func TestRunOnce_RoutineSkipsOffDays(t *testing.T) {
	// 2026-08-28 is a Friday; the schedule covers Monday only.
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		tasks: []storage.Task{{
			ID:           "t1",
			UserID:       "alice",
			Title:        "report",
			ScheduleType: slots.ScheduleSpecificDays,
			ScheduleDays: []slots.DayCode{slots.Monday},
			FixedTime:    "09:00",
			IsRoutine:    true,
		}},
	}
	w, n := newTestWorker(store, now)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(n.sent) != 0 {
		t.Errorf("sent = %v, want none on an off day", n.sent)
	}
}

func TestRunOnce_MeetingLead(t *testing.T) {
	now := time.Date(2026, 9, 4, 9, 52, 0, 0, time.UTC)
	store := &fakeStore{
		meetings: []storage.Meeting{{
			ID:          "m1",
			UserID:      "alice",
			Title:       "design review",
			StartAt:     time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC),
			LeadMinutes: 10,
		}},
	}
	w, n := newTestWorker(store, now)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("sent = %v, want one (10m lead puts fire time at 9:50)", n.sent)
	}
	if len(store.meetingMarks) != 1 || store.meetingMarks[0] != "m1" {
		t.Errorf("meetingMarks = %v, want [m1]", store.meetingMarks)
	}
}
