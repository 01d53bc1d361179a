// Package quiz stores the canonical answer for each issued quiz behind an
// opaque session token, so that scoring never depends on the quick-reply
// payload carrying the answer text.
package quiz

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pagebot/internal/domain"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store implements domain.QuizStore on SQLite.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
}

func NewStore(dbPath string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	store := &Store{db: db, ttl: ttl, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quiz_sessions (
		token        TEXT PRIMARY KEY,
		recipient_id TEXT NOT NULL,
		answer       TEXT NOT NULL,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_quiz_created ON quiz_sessions(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create stores the answer for a new quiz and returns its session token.
// Expired sessions are cleaned up opportunistically.
func (s *Store) Create(ctx context.Context, recipientID, answer string) (string, error) {
	s.cleanup(ctx)

	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_sessions (token, recipient_id, answer, created_at) VALUES (?, ?, ?, ?)`,
		token, recipientID, answer, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("create quiz session: %w", err)
	}
	return token, nil
}

// Lookup returns the session for token, or nil when unknown or expired.
func (s *Store) Lookup(ctx context.Context, token string) (*domain.QuizSession, error) {
	var sess domain.QuizSession
	err := s.db.QueryRowContext(ctx,
		`SELECT token, recipient_id, answer, created_at FROM quiz_sessions WHERE token = ? AND created_at > ?`,
		token, time.Now().UTC().Add(-s.ttl),
	).Scan(&sess.Token, &sess.RecipientID, &sess.Answer, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup quiz session: %w", err)
	}
	return &sess, nil
}

func (s *Store) cleanup(ctx context.Context) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM quiz_sessions WHERE created_at <= ?`,
		time.Now().UTC().Add(-s.ttl),
	)
	if err != nil {
		s.logger.Warn("quiz session cleanup failed", "err", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Debug("expired quiz sessions removed", "count", n)
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}
