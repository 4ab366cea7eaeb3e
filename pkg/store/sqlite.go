package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chats (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT,
	message    TEXT NOT NULL,
	reply      TEXT NOT NULL,
	intent     TEXT,
	confidence REAL,
	latency_ms INTEGER,
	allowed    INTEGER NOT NULL,
	ts         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_ts ON chats(ts);
CREATE INDEX IF NOT EXISTS idx_chats_intent ON chats(intent);
`

// SQLite is the embedded conversation log, using the pure-Go driver so the
// binary stays CGO-free.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and initializes the
// schema. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// The driver serializes writers; a single connection avoids
	// SQLITE_BUSY churn under concurrent fire-and-forget saves.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// EnsureUser implements Store.
func (s *SQLite) EnsureUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, created_at) VALUES (?, ?)`,
		userID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// SaveChat implements Store.
func (s *SQLite) SaveChat(ctx context.Context, rec ChatRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var intentVal any
	if rec.Intent != "" {
		intentVal = rec.Intent
	}
	var confVal any
	if rec.Confidence != nil {
		confVal = *rec.Confidence
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (user_id, message, reply, intent, confidence, latency_ms, allowed, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.Message, rec.Reply, intentVal, confVal,
		rec.LatencyMs, boolToInt(rec.Allowed), ts.Unix())
	if err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

// CountsByIntent implements Store.
func (s *SQLite) CountsByIntent(ctx context.Context) ([]IntentCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(intent, 'unknown'), COUNT(*) FROM chats GROUP BY intent ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query intent counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []IntentCount
	for rows.Next() {
		var c IntentCount
		if err := rows.Scan(&c.Intent, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan intent count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// AvgLatencyMs implements Store.
func (s *SQLite) AvgLatencyMs(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(latency_ms) FROM chats WHERE latency_ms IS NOT NULL`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to query avg latency: %w", err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

// RecentChats implements Store.
func (s *SQLite) RecentChats(ctx context.Context, limit int) ([]ChatRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(user_id, ''), message, reply, COALESCE(intent, ''), confidence, latency_ms, allowed, ts
		 FROM chats ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []ChatRecord
	for rows.Next() {
		var rec ChatRecord
		var conf sql.NullFloat64
		var allowed int
		var ts int64
		if err := rows.Scan(&rec.UserID, &rec.Message, &rec.Reply, &rec.Intent,
			&conf, &rec.LatencyMs, &allowed, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		if conf.Valid {
			v := conf.Float64
			rec.Confidence = &v
		}
		rec.Allowed = allowed != 0
		rec.Timestamp = time.Unix(ts, 0)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
