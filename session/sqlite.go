package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ericmichael/llm-deployment/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements core.ConversationStore using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serialises write transactions to prevent SQLITE_BUSY
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// initializes the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateThread inserts a thread or updates the name of an existing one.
func (s *SQLiteStore) CreateThread(ctx context.Context, thread core.Thread) error {
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO threads (id, name, created_at) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET name = excluded.name`

	if _, err := s.db.ExecContext(ctx, query, thread.ID, thread.Name, thread.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("create thread: %w", err)
	}

	return nil
}

// GetThread returns the thread metadata or core.ErrThreadNotFound.
func (s *SQLiteStore) GetThread(ctx context.Context, threadID string) (core.Thread, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM threads WHERE id = ?`, threadID)

	var (
		thread    core.Thread
		createdAt int64
	)

	err := row.Scan(&thread.ID, &thread.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Thread{}, core.ErrThreadNotFound
	}

	if err != nil {
		return core.Thread{}, fmt.Errorf("scan thread row: %w", err)
	}

	thread.CreatedAt = time.Unix(0, createdAt).UTC()

	return thread, nil
}

// ListThreads returns every thread, newest first.
func (s *SQLiteStore) ListThreads(ctx context.Context) ([]core.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM threads ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	threads := []core.Thread{}

	for rows.Next() {
		var (
			thread    core.Thread
			createdAt int64
		)

		if err := rows.Scan(&thread.ID, &thread.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan thread row: %w", err)
		}

		thread.CreatedAt = time.Unix(0, createdAt).UTC()
		threads = append(threads, thread)
	}

	return threads, rows.Err()
}

// Load returns the thread's turns ordered by (timestamp, id).
func (s *SQLiteStore) Load(ctx context.Context, threadID string) ([]core.Turn, error) {
	query := `
		SELECT id, role, content, created_at
		FROM messages WHERE thread_id = ?
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	turns := []core.Turn{}

	for rows.Next() {
		var (
			turn      core.Turn
			role      string
			createdAt int64
		)

		if err := rows.Scan(&turn.ID, &role, &turn.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		turn.Role = core.Role(role)
		turn.Timestamp = time.Unix(0, createdAt).UTC()
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

// Append stores a turn, creating the thread row on first use. Re-appending a
// turn with the same id is ignored.
func (s *SQLiteStore) Append(ctx context.Context, threadID string, turn core.Turn) error {
	if turn.ID == "" {
		turn.ID = core.NewID()
	}

	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO threads (id, name, created_at) VALUES (?, '', ?)`,
		threadID, turn.Timestamp.UnixNano(),
	); err != nil {
		return fmt.Errorf("ensure thread: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages (id, thread_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		turn.ID, threadID, string(turn.Role), turn.Content, turn.Timestamp.UnixNano(),
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message: %w", err)
	}

	return nil
}

// Delete removes the thread and its messages. Deleting an unknown thread
// returns core.ErrThreadNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, threadID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrThreadNotFound
	}

	return tx.Commit()
}
