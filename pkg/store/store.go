// Package store persists the conversation log and serves its aggregate
// queries. The serving layer writes records fire-and-forget: a slow or
// failing store never delays or fails a reply.
package store

import (
	"context"
	"time"
)

// ChatRecord is one answered (or refused) utterance. Intent is empty and
// Confidence nil when the reply was the refusal or fallback path.
type ChatRecord struct {
	UserID     string
	Message    string
	Reply      string
	Intent     string
	Confidence *float64
	LatencyMs  int64
	Allowed    bool
	Timestamp  time.Time
}

// IntentCount is one row of the per-intent aggregate. Records without an
// intent are grouped under "unknown".
type IntentCount struct {
	Intent string
	Count  int64
}

// Store is the conversation log backend.
type Store interface {
	// EnsureUser registers a user id if not already present.
	EnsureUser(ctx context.Context, userID string) error

	// SaveChat appends one conversation record.
	SaveChat(ctx context.Context, rec ChatRecord) error

	// CountsByIntent returns chat counts grouped by intent.
	CountsByIntent(ctx context.Context) ([]IntentCount, error)

	// AvgLatencyMs returns the mean reply latency, 0 with no records.
	AvgLatencyMs(ctx context.Context) (float64, error)

	// RecentChats returns the newest records, newest first.
	RecentChats(ctx context.Context, limit int) ([]ChatRecord, error)

	Close() error
}

// Noop discards all writes and reports empty aggregates. Used when request
// logging is disabled.
type Noop struct{}

func (Noop) EnsureUser(context.Context, string) error { return nil }

func (Noop) SaveChat(context.Context, ChatRecord) error { return nil }

func (Noop) CountsByIntent(context.Context) ([]IntentCount, error) { return nil, nil }

func (Noop) AvgLatencyMs(context.Context) (float64, error) { return 0, nil }

func (Noop) RecentChats(context.Context, int) ([]ChatRecord, error) { return nil, nil }

func (Noop) Close() error { return nil }
