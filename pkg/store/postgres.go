package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	created_at BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS chats (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT,
	message    TEXT NOT NULL,
	reply      TEXT NOT NULL,
	intent     TEXT,
	confidence DOUBLE PRECISION,
	latency_ms BIGINT,
	allowed    BOOLEAN NOT NULL,
	ts         BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_ts ON chats(ts);
CREATE INDEX IF NOT EXISTS idx_chats_intent ON chats(intent);
`

// Postgres is the shared conversation log for multi-instance deployments.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the given DSN and initializes the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// EnsureUser implements Store.
func (p *Postgres) EnsureUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, created_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		userID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// SaveChat implements Store.
func (p *Postgres) SaveChat(ctx context.Context, rec ChatRecord) error {
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

	_, err := p.pool.Exec(ctx,
		`INSERT INTO chats (user_id, message, reply, intent, confidence, latency_ms, allowed, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.UserID, rec.Message, rec.Reply, intentVal, confVal,
		rec.LatencyMs, rec.Allowed, ts.Unix())
	if err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

// CountsByIntent implements Store.
func (p *Postgres) CountsByIntent(ctx context.Context) ([]IntentCount, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT COALESCE(intent, 'unknown'), COUNT(*) FROM chats GROUP BY intent ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query intent counts: %w", err)
	}
	defer rows.Close()

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
func (p *Postgres) AvgLatencyMs(ctx context.Context) (float64, error) {
	var avg *float64
	err := p.pool.QueryRow(ctx,
		`SELECT AVG(latency_ms) FROM chats WHERE latency_ms IS NOT NULL`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to query avg latency: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// RecentChats implements Store.
func (p *Postgres) RecentChats(ctx context.Context, limit int) ([]ChatRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := p.pool.Query(ctx,
		`SELECT COALESCE(user_id, ''), message, reply, COALESCE(intent, ''), confidence, COALESCE(latency_ms, 0), allowed, ts
		 FROM chats ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent chats: %w", err)
	}
	defer rows.Close()

	var recs []ChatRecord
	for rows.Next() {
		var rec ChatRecord
		var conf *float64
		var ts int64
		if err := rows.Scan(&rec.UserID, &rec.Message, &rec.Reply, &rec.Intent,
			&conf, &rec.LatencyMs, &rec.Allowed, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		rec.Confidence = conf
		rec.Timestamp = time.Unix(ts, 0)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close implements Store.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
