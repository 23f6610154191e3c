package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// FindConversation loads the conversation for a user. Returns ErrNotFound
// when the user has never chatted.
func (s *Store) FindConversation(ctx context.Context, userID string) (Conversation, error) {
	var (
		c           Conversation
		messagesRaw []byte
		pendingRaw  sql.NullString
		updatedAt   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, messages, pending_action, version, updated_at
		FROM conversations WHERE user_id = ?`, userID,
	).Scan(&c.UserID, &messagesRaw, &pendingRaw, &c.Version, &updatedAt)
	if err == sql.ErrNoRows {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, err
	}

	if err := json.Unmarshal(messagesRaw, &c.Messages); err != nil {
		return Conversation{}, fmt.Errorf("decoding messages for %s: %w", userID, err)
	}
	if pendingRaw.Valid && pendingRaw.String != "" {
		var p PendingAction
		if err := json.Unmarshal([]byte(pendingRaw.String), &p); err != nil {
			return Conversation{}, fmt.Errorf("decoding pending action for %s: %w", userID, err)
		}
		c.Pending = &p
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Conversation{}, fmt.Errorf("parsing updated_at for %s: %w", userID, err)
	}
	return c, nil
}

// UpsertConversation writes the whole conversation document back. The write
// is a compare-and-swap on the version the caller read: a stale version
// returns ErrVersionConflict and nothing is written. On success the caller's
// copy is bumped to the stored version.
func (s *Store) UpsertConversation(ctx context.Context, c *Conversation) error {
	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	messagesRaw, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}
	var pendingRaw any
	if c.Pending != nil {
		data, err := json.Marshal(c.Pending)
		if err != nil {
			return fmt.Errorf("encoding pending action: %w", err)
		}
		pendingRaw = string(data)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	if c.Version == 0 {
		// Two first turns can race here; the loser must see a conflict, not
		// a raw constraint error.
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO conversations (user_id, messages, pending_action, version, updated_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(user_id) DO NOTHING`,
			c.UserID, string(messagesRaw), pendingRaw, now,
		)
		if err != nil {
			return fmt.Errorf("inserting conversation: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrVersionConflict
		}
		c.Version = 1
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET messages = ?, pending_action = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`,
		string(messagesRaw), pendingRaw, now, c.UserID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	c.Version++
	return nil
}

// RecentConversations lists conversations by most recent activity.
func (s *Store) RecentConversations(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM conversations
		ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	convs := make([]Conversation, 0, len(userIDs))
	for _, id := range userIDs {
		c, err := s.FindConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, nil
}

// DeleteConversation removes a user's conversation entirely.
func (s *Store) DeleteConversation(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = ?`, userID)
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
