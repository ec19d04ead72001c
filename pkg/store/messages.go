package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
)

// Message is a delivered notification persisted in the inbox
type Message struct {
	ID        int64     `db:"id"`
	App       string    `db:"app"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Priority  int       `db:"priority"`
	SizeBytes int64     `db:"size_bytes"`
	CreatedAt time.Time `db:"created_at"`
}

// Save inserts a delivered message. Size is computed from title and body so
// the archive sweeper can enforce the storage cap without scanning bodies.
func (s *Store) Save(ctx context.Context, msg *Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.SizeBytes = int64(len(msg.Title) + len(msg.Body))

	query := `
		INSERT INTO messages (app, title, body, priority, size_bytes, created_at)
		VALUES (:app, :title, :body, :priority, :size_bytes, :created_at)
	`
	return s.withRetry(ctx, func() error {
		result, err := s.conn.NamedExecContext(ctx, query, msg)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		msg.ID = id
		return nil
	})
}

// Get retrieves a message by ID
func (s *Store) Get(ctx context.Context, id int64) (*Message, error) {
	var msg Message
	err := s.conn.GetContext(ctx, &msg, `SELECT * FROM messages WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message not found")
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

// List retrieves messages with pagination, newest first
func (s *Store) List(ctx context.Context, limit, offset int) ([]Message, error) {
	var msgs []Message
	query := `SELECT * FROM messages ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	if err := s.conn.SelectContext(ctx, &msgs, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// ListMessages returns messages older than the given number of hours, oldest
// first. Zero hours returns everything. This is the retention sweeper feed.
func (s *Store) ListMessages(ctx context.Context, olderThanHours int) ([]Message, error) {
	var msgs []Message
	cutoff := time.Now().Add(-time.Duration(olderThanHours) * time.Hour)
	query := `SELECT * FROM messages WHERE created_at < ? ORDER BY created_at ASC, id ASC`
	if err := s.conn.SelectContext(ctx, &msgs, query, cutoff); err != nil {
		return nil, fmt.Errorf("list messages older than %dh: %w", olderThanHours, err)
	}
	return msgs, nil
}

// Delete removes a message by ID
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.withRetry(ctx, func() error {
		result, err := s.conn.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete message: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("message not found")
		}
		return nil
	})
}

// Count returns the total number of stored messages
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// TotalSizeMB returns the stored payload size in megabytes
func (s *Store) TotalSizeMB(ctx context.Context) (float64, error) {
	var total sql.NullInt64
	if err := s.conn.GetContext(ctx, &total, `SELECT SUM(size_bytes) FROM messages`); err != nil {
		return 0, fmt.Errorf("total size: %w", err)
	}
	return float64(total.Int64) / (1024 * 1024), nil
}

// withRetry runs fn with backoff on SQLite busy/locked errors
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isLockError(err) {
			return err // retry
		}
		return &criticalError{err: err}
	})

	var critical *criticalError
	if errors.As(err, &critical) {
		return critical.err
	}
	return err
}

// criticalError wraps an error to signal the retrier to stop
type criticalError struct {
	err error
}

func (e *criticalError) Error() string { return e.err.Error() }
func (e *criticalError) Unwrap() error { return e.err }

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
