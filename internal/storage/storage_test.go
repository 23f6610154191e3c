package storage

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/schedchat/schedchat/internal/slots"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConversation_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	conv := Conversation{UserID: "alice"}
	conv.Append("user", "remind me to water the plants")
	conv.Pending = &PendingAction{
		ID:            "pa-1",
		Type:          slots.ActionCreateTask,
		Data:          slots.SlotSet{Title: "water the plants"},
		State:         StateCollectingFields,
		MissingFields: []string{slots.FieldStartDate},
	}

	if err := s.UpsertConversation(ctx, &conv); err != nil {
		t.Fatalf("UpsertConversation: %v", err)
	}
	if conv.Version != 1 {
		t.Errorf("Version = %d, want 1 after insert", conv.Version)
	}

	got, err := s.FindConversation(ctx, "alice")
	if err != nil {
		t.Fatalf("FindConversation: %v", err)
	}
	if got.Pending == nil || got.Pending.State != StateCollectingFields {
		t.Errorf("Pending = %+v, want collecting_fields", got.Pending)
	}
	if !reflect.DeepEqual(got.Messages, conv.Messages) {
		t.Errorf("Messages = %v, want %v", got.Messages, conv.Messages)
	}
}

func TestConversation_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.FindConversation(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestConversation_VersionConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	conv := Conversation{UserID: "bob"}
	conv.Append("user", "hi")
	if err := s.UpsertConversation(ctx, &conv); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Two turns read the same version; the second write must lose.
	first, _ := s.FindConversation(ctx, "bob")
	second, _ := s.FindConversation(ctx, "bob")

	first.Append("user", "turn one")
	if err := s.UpsertConversation(ctx, &first); err != nil {
		t.Fatalf("first update: %v", err)
	}

	second.Append("user", "turn two")
	if err := s.UpsertConversation(ctx, &second); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("second update error = %v, want ErrVersionConflict", err)
	}

	got, _ := s.FindConversation(ctx, "bob")
	if len(got.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2 (losing turn must not write)", len(got.Messages))
	}
}

func TestConversation_ConcurrentFirstTurns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Both turns loaded nothing, so both try the insert path.
	first := Conversation{UserID: "dave"}
	first.Append("user", "turn one")
	if err := s.UpsertConversation(ctx, &first); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	second := Conversation{UserID: "dave"}
	second.Append("user", "turn two")
	if err := s.UpsertConversation(ctx, &second); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("second insert error = %v, want ErrVersionConflict", err)
	}

	got, _ := s.FindConversation(ctx, "dave")
	if len(got.Messages) != 1 || got.Messages[0].Content != "turn one" {
		t.Errorf("Messages = %v, want only the winning turn", got.Messages)
	}
}

func TestDeleteConversation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	conv := Conversation{UserID: "carol"}
	if err := s.UpsertConversation(ctx, &conv); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.DeleteConversation(ctx, "carol"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if err := s.DeleteConversation(ctx, "carol"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestPendingAction_LegacyFlagPrecedence(t *testing.T) {
	tests := []struct {
		name string
		json string
		want DialogueState
	}{
		{
			"routine confirmation wins over everything",
			`{"id":"x","type":"create_task","data":{},"needsRoutineConfirmation":true,"needsRoutineSchedule":true,"needsSpecificDays":true,"confirmationNeeded":true,"missingFields":["title"]}`,
			StateRoutineConfirming,
		},
		{
			"routine schedule beats specific days and confirmation",
			`{"id":"x","type":"create_task","data":{},"needsRoutineSchedule":true,"needsSpecificDays":true,"confirmationNeeded":true}`,
			StateRoutineSchedule,
		},
		{
			"specific days beats confirmation",
			`{"id":"x","type":"create_task","data":{},"needsSpecificDays":true,"confirmationNeeded":true}`,
			StateSpecificDays,
		},
		{
			"confirmation beats missing fields",
			`{"id":"x","type":"create_task","data":{},"confirmationNeeded":true,"missingFields":["title"]}`,
			StateConfirming,
		},
		{
			"missing fields alone means collecting",
			`{"id":"x","type":"create_task","data":{},"missingFields":["title"]}`,
			StateCollectingFields,
		},
		{
			"explicit state wins over flags",
			`{"id":"x","type":"create_task","data":{},"state":"confirming","needsRoutineConfirmation":true}`,
			StateConfirming,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PendingAction
			if err := json.Unmarshal([]byte(tt.json), &p); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if p.State != tt.want {
				t.Errorf("State = %q, want %q", p.State, tt.want)
			}
		})
	}
}

func TestCreateTask_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateTask(ctx, Task{
		UserID:       "alice",
		Title:        "gym",
		ScheduleType: slots.ScheduleSpecificDays,
		ScheduleDays: []slots.DayCode{slots.Monday, slots.Thursday},
		FixedTime:    "07:00",
		IsRoutine:    true,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.ID == "" {
		t.Error("ID not generated")
	}

	tasks, err := s.ListTasks(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	got := tasks[0]
	if !got.IsRoutine || got.FixedTime != "07:00" {
		t.Errorf("task = %+v, want routine with fixed time", got)
	}
	if !reflect.DeepEqual(got.ScheduleDays, []slots.DayCode{slots.Monday, slots.Thursday}) {
		t.Errorf("ScheduleDays = %v", got.ScheduleDays)
	}
	if !got.StartAt.IsZero() {
		t.Errorf("StartAt = %v, want zero for recurring task", got.StartAt)
	}
}

func TestCreateTask_RequiresTitle(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.CreateTask(context.Background(), Task{UserID: "u"}); err == nil {
		t.Error("CreateTask without title succeeded, want error")
	}
}

func TestCreateMeeting_ComputesEnd(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC)
	created, err := s.CreateMeeting(ctx, Meeting{
		UserID:          "alice",
		Title:           "team sync",
		StartAt:         start,
		DurationMinutes: 45,
		LeadMinutes:     10,
	})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	if !created.EndAt.Equal(start.Add(45 * time.Minute)) {
		t.Errorf("EndAt = %v, want start+45m", created.EndAt)
	}

	meetings, err := s.ListMeetings(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListMeetings: %v", err)
	}
	if len(meetings) != 1 || !meetings[0].StartAt.Equal(start) {
		t.Errorf("meetings = %+v", meetings)
	}
}

func TestReminderMarks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, Task{
		UserID:       "alice",
		Title:        "one-off",
		ScheduleType: slots.ScheduleOneDay,
		StartAt:      time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	pending, err := s.PendingReminderTasks(ctx, 10)
	if err != nil {
		t.Fatalf("PendingReminderTasks: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}

	if err := s.MarkTaskReminderSent(ctx, task.ID, time.Now()); err != nil {
		t.Fatalf("MarkTaskReminderSent: %v", err)
	}

	pending, err = s.PendingReminderTasks(ctx, 10)
	if err != nil {
		t.Fatalf("PendingReminderTasks: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d after mark, want 0", len(pending))
	}

	if err := s.MarkTaskReminderSent(ctx, "missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("mark missing task error = %v, want ErrNotFound", err)
	}
}

func TestRoutineTaskStaysPending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, Task{
		UserID:       "alice",
		Title:        "stretch",
		ScheduleType: slots.ScheduleRoutine,
		ScheduleDays: slots.AllDays,
		IsRoutine:    true,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := s.MarkTaskReminderSent(ctx, task.ID, time.Now()); err != nil {
		t.Fatalf("MarkTaskReminderSent: %v", err)
	}

	pending, err := s.PendingReminderTasks(ctx, 10)
	if err != nil {
		t.Fatalf("PendingReminderTasks: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("len(pending) = %d, want 1 (routine tasks recur)", len(pending))
	}
}

func TestRecentConversations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "u3"} {
		conv := Conversation{UserID: id}
		conv.Append("user", "hello")
		if err := s.UpsertConversation(ctx, &conv); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	convs, err := s.RecentConversations(ctx, 2)
	if err != nil {
		t.Fatalf("RecentConversations: %v", err)
	}
	if len(convs) != 2 {
		t.Errorf("len = %d, want 2", len(convs))
	}
}
