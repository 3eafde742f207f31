package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// SQLiteStore implements Store on a local SQLite database. Durability across
// restarts comes from the database; per-session write serialization comes
// from a keyed mutex so concurrent appends to the same session never
// interleave, while different sessions proceed in parallel.
type SQLiteStore struct {
	db         *sql.DB
	historyCap int
	window     int

	// locks holds one *sync.Mutex per session ID seen by Append.
	locks sync.Map
}

// NewSQLiteStore opens or creates the database at dbPath. historyCap bounds
// each session's history; window is the number of recent reviews the style
// summary is derived from.
func NewSQLiteStore(dbPath string, historyCap, window int) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, historyCap: historyCap, window: window}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Debug().Str("path", dbPath).Int("history_cap", historyCap).Msg("Session memory store ready")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id    TEXT PRIMARY KEY,
		style_summary TEXT NOT NULL DEFAULT '',
		updated_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reviews (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(session_id),
		created_at TEXT NOT NULL,
		payload    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_session ON reviews(session_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the session record, creating an empty one on first access.
// The empty session ID is ephemeral and always reads back empty.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if sessionID == "" {
		return &SessionRecord{SessionID: "", History: []review.ReviewResult{}}, nil
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (session_id, updated_at) VALUES (?, ?)`,
		sessionID, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("create session %s: %w", sessionID, err)
	}

	return s.load(ctx, sessionID)
}

// Append pushes the review onto the session history, evicts the oldest entry
// past the cap, recomputes the style summary, and returns the updated record.
// It is the only mutator.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, r review.ReviewResult) (*SessionRecord, error) {
	if sessionID == "" {
		// Ephemeral session: return what the record would look like without
		// persisting anything.
		return &SessionRecord{
			SessionID:    "",
			History:      []review.ReviewResult{r},
			StyleSummary: Summarize([]review.ReviewResult{r}, s.window),
		}, nil
	}

	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal review: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (session_id, updated_at) VALUES (?, ?)`,
		sessionID, now,
	); err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reviews (session_id, created_at, payload) VALUES (?, ?, ?)`,
		sessionID, now, string(payload),
	); err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	// Evict oldest entries beyond the cap.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reviews WHERE session_id = ? AND id NOT IN (
			SELECT id FROM reviews WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)`,
		sessionID, sessionID, s.historyCap,
	); err != nil {
		return nil, fmt.Errorf("evict history: %w", err)
	}

	history, err := loadHistoryTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := Summarize(history, s.window)
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET style_summary = ?, updated_at = ? WHERE session_id = ?`,
		summary, now, sessionID,
	); err != nil {
		return nil, fmt.Errorf("update summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}

	return &SessionRecord{SessionID: sessionID, History: history, StyleSummary: summary}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) lockFor(sessionID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// load reads the summary and history inside one transaction so the record is
// a consistent snapshot even while another session append commits.
func (s *SQLiteStore) load(ctx context.Context, sessionID string) (*SessionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin load tx: %w", err)
	}
	defer tx.Rollback()

	rec := &SessionRecord{SessionID: sessionID}

	err = tx.QueryRowContext(ctx,
		`SELECT style_summary FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&rec.StyleSummary)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	history, err := loadHistoryTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []review.ReviewResult{}
	}
	rec.History = history

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit load: %w", err)
	}
	return rec, nil
}

// loadHistoryTx reads the full ordered history inside the append transaction
// so the returned snapshot matches exactly what was committed.
func loadHistoryTx(ctx context.Context, tx *sql.Tx, sessionID string) ([]review.ReviewResult, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT payload FROM reviews WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var history []review.ReviewResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		var r review.ReviewResult
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("unmarshal review: %w", err)
		}
		history = append(history, r)
	}
	return history, rows.Err()
}
