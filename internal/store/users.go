package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UserRecord links a chat id to the handle it was seen with. Rows are only
// ever inserted; a re-registration with the same pair is a no-op.
type UserRecord struct {
	ChatID    int64
	Handle    string
	CreatedAt time.Time
}

// UpsertUser registers a chat identity. Inserting an already known
// (chat_id, handle) pair succeeds without modifying the row.
func (s *Store) UpsertUser(ctx context.Context, chatID int64, handle string) error {
	normalized := NormalizeHandle(handle)
	if normalized == "" {
		return fmt.Errorf("upsert user: empty handle")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (chat_id, handle) VALUES (?, ?) ON CONFLICT (chat_id, handle) DO NOTHING`,
		chatID,
		normalized,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// ListChatIDs returns every distinct registered chat id.
func (s *Store) ListChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT chat_id FROM users ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("list chat ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chat id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat ids: %w", err)
	}
	return ids, nil
}

// ChatIDsByHandles maps directory handles to registered chat ids, keeping the
// most recently registered chat id per handle. Handles with no registration
// are absent from the result.
func (s *Store) ChatIDsByHandles(ctx context.Context, handles []string) ([]int64, error) {
	normalized := make([]string, 0, len(handles))
	for _, handle := range handles {
		if h := NormalizeHandle(handle); h != "" {
			normalized = append(normalized, h)
		}
	}
	if len(normalized) == 0 {
		return []int64{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(normalized)), ", ")
	args := make([]any, len(normalized))
	for i, h := range normalized {
		args[i] = h
	}

	query := fmt.Sprintf(
		`SELECT chat_id FROM users WHERE rowid IN (
			SELECT MAX(rowid) FROM users WHERE handle IN (%s) GROUP BY handle
		) ORDER BY chat_id`,
		placeholders,
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("chat ids by handles: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chat id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat ids: %w", err)
	}
	return ids, nil
}

// NormalizeHandle strips the @ prefix and lowercases, matching how the
// directory stores handles.
func NormalizeHandle(handle string) string {
	trimmed := strings.ToLower(strings.TrimSpace(handle))
	return strings.TrimPrefix(trimmed, "@")
}
