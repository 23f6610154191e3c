package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateTask persists a finalized task and returns it with its generated
// identifier and creation time filled in.
func (s *Store) CreateTask(ctx context.Context, t Task) (Task, error) {
	if t.UserID == "" {
		return Task{}, fmt.Errorf("user_id is required")
	}
	if t.Title == "" {
		return Task{}, fmt.Errorf("title is required")
	}
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()

	days, err := json.Marshal(t.ScheduleDays)
	if err != nil {
		return Task{}, fmt.Errorf("encoding schedule days: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, schedule_type, start_at, schedule_days, fixed_time, lead_minutes, is_routine, created_at, reminder_sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		t.ID, t.UserID, t.Title, t.Description, string(t.ScheduleType),
		nullableTime(t.StartAt), string(days), t.FixedTime, t.LeadMinutes,
		boolToInt(t.IsRoutine), t.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// CreateMeeting persists a finalized meeting and returns it with its
// generated identifier and creation time filled in.
func (s *Store) CreateMeeting(ctx context.Context, m Meeting) (Meeting, error) {
	if m.UserID == "" {
		return Meeting{}, fmt.Errorf("user_id is required")
	}
	if m.Title == "" {
		return Meeting{}, fmt.Errorf("title is required")
	}
	if m.DurationMinutes <= 0 {
		return Meeting{}, fmt.Errorf("duration must be positive, got %d", m.DurationMinutes)
	}
	m.ID = uuid.New().String()
	m.CreatedAt = time.Now().UTC()
	m.EndAt = m.StartAt.Add(time.Duration(m.DurationMinutes) * time.Minute)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meetings (id, user_id, title, description, start_at, end_at, duration_minutes, lead_minutes, created_at, reminder_sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		m.ID, m.UserID, m.Title, m.Description,
		m.StartAt.UTC().Format(time.RFC3339), m.EndAt.UTC().Format(time.RFC3339),
		m.DurationMinutes, m.LeadMinutes, m.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Meeting{}, err
	}
	return m, nil
}

const taskColumns = `id, user_id, title, description, schedule_type, start_at, schedule_days, fixed_time, lead_minutes, is_routine, created_at, reminder_sent_at`

// ListTasks returns a user's tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, userID string, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// PendingReminderTasks returns tasks whose reminder may still need
// dispatching: one-off tasks not yet reminded, plus every recurring task.
// The worker decides actual due-ness.
func (s *Store) PendingReminderTasks(ctx context.Context, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE reminder_sent_at IS NULL OR is_routine = 1
		ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// MarkTaskReminderSent records the dispatch time of a task reminder.
func (s *Store) MarkTaskReminderSent(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET reminder_sent_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const meetingColumns = `id, user_id, title, description, start_at, end_at, duration_minutes, lead_minutes, created_at, reminder_sent_at`

// ListMeetings returns a user's meetings ordered by start time.
func (s *Store) ListMeetings(ctx context.Context, userID string, limit int) ([]Meeting, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+meetingColumns+` FROM meetings
		WHERE user_id = ? ORDER BY start_at ASC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMeetings(rows)
}

// PendingReminderMeetings returns meetings not yet reminded.
func (s *Store) PendingReminderMeetings(ctx context.Context, limit int) ([]Meeting, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+meetingColumns+` FROM meetings
		WHERE reminder_sent_at IS NULL
		ORDER BY start_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMeetings(rows)
}

// MarkMeetingReminderSent records the dispatch time of a meeting reminder.
func (s *Store) MarkMeetingReminderSent(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET reminder_sent_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTasks(rows *sql.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		var (
			t         Task
			startAt   sql.NullString
			daysRaw   string
			isRoutine int
			createdAt string
			sentAt    sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.ScheduleType,
			&startAt, &daysRaw, &t.FixedTime, &t.LeadMinutes, &isRoutine, &createdAt, &sentAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(daysRaw), &t.ScheduleDays); err != nil {
			return nil, fmt.Errorf("decoding schedule days for %s: %w", t.ID, err)
		}
		t.IsRoutine = isRoutine != 0
		var err error
		if t.StartAt, err = parseNullableTime(startAt); err != nil {
			return nil, fmt.Errorf("parsing start_at for %s: %w", t.ID, err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at for %s: %w", t.ID, err)
		}
		if t.ReminderSentAt, err = parseNullableTime(sentAt); err != nil {
			return nil, fmt.Errorf("parsing reminder_sent_at for %s: %w", t.ID, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanMeetings(rows *sql.Rows) ([]Meeting, error) {
	var meetings []Meeting
	for rows.Next() {
		var (
			m                       Meeting
			startAt, endAt, created string
			sentAt                  sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Title, &m.Description,
			&startAt, &endAt, &m.DurationMinutes, &m.LeadMinutes, &created, &sentAt); err != nil {
			return nil, err
		}
		var err error
		if m.StartAt, err = time.Parse(time.RFC3339, startAt); err != nil {
			return nil, fmt.Errorf("parsing start_at for %s: %w", m.ID, err)
		}
		if m.EndAt, err = time.Parse(time.RFC3339, endAt); err != nil {
			return nil, fmt.Errorf("parsing end_at for %s: %w", m.ID, err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parsing created_at for %s: %w", m.ID, err)
		}
		if m.ReminderSentAt, err = parseNullableTime(sentAt); err != nil {
			return nil, fmt.Errorf("parsing reminder_sent_at for %s: %w", m.ID, err)
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullableTime(v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v.String)
}
