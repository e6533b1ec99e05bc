package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Event types written by the snapshot stores.
const (
	EventSnapshotReplaced = "records.snapshot_replaced"
	EventBoardReplaced    = "rankings.board_replaced"
)

// DefaultTopic receives every snapshot change event unless overridden.
const DefaultTopic = "activity_snapshot_events"

// SnapshotReplaced is published after the record snapshot has been swapped.
type SnapshotReplaced struct {
	EventID     string    `json:"event_id"`
	Change      string    `json:"change"`
	RecordID    string    `json:"record_id,omitempty"`
	RecordCount int       `json:"record_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BoardReplaced is published after a leaderboard has been swapped.
type BoardReplaced struct {
	EventID    string    `json:"event_id"`
	Board      string    `json:"board"`
	EntryCount int       `json:"entry_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Entry is a pending outbox row.
type Entry struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	PartitionKey  string
	DedupeKey     string
	Payload       any
}

// Execer is satisfied by pgx.Tx so entries are written inside the caller's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Enqueue inserts the entry into the outbox table using tx.
func Enqueue(ctx context.Context, tx Execer, e Entry) error {
	if e.EventType == "" || e.Topic == "" {
		return fmt.Errorf("outbox entry requires event type and topic (event_type=%q topic=%q)", e.EventType, e.Topic)
	}
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", e.EventType, err)
	}
	partitionKey := e.PartitionKey
	if partitionKey == "" {
		partitionKey = e.AggregateID
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		e.AggregateType,
		e.AggregateID,
		e.EventType,
		e.Topic,
		partitionKey,
		body,
		e.DedupeKey,
	)
	return err
}
