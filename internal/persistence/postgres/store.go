// Package postgres stores the record snapshot and leaderboards in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/researchdesk/internal/domain"
	"example.com/researchdesk/internal/observability"
	"example.com/researchdesk/internal/outbox"
)

const snapshotAggregate = "activity_records"

// Store is a pgx-backed domain.SnapshotStore and domain.BoardStore. Every
// replacement also enqueues an outbox event in the same transaction.
type Store struct {
	pool  *pgxpool.Pool
	topic string
}

// NewStore constructs a Store publishing change events to topic.
func NewStore(pool *pgxpool.Pool, topic string) *Store {
	if topic == "" {
		topic = outbox.DefaultTopic
	}
	return &Store{pool: pool, topic: topic}
}

// Load returns the snapshot in stored order. An empty table yields an empty slice.
func (s *Store) Load(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM activity_records ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec domain.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode stored record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Replace swaps the whole snapshot for records.
func (s *Store) Replace(ctx context.Context, records []domain.Record, change domain.Change) (err error) {
	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		payload, mErr := json.Marshal(rec)
		if mErr != nil {
			return fmt.Errorf("encode record %s: %w", rec.ID, mErr)
		}
		rows = append(rows, []any{
			rec.ID,
			i,
			string(rec.Category()),
			rec.Member,
			rec.Date.In(time.UTC),
			rec.Timestamp,
			payload,
		})
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM activity_records`); err != nil {
		return err
	}

	if _, err = tx.CopyFrom(ctx,
		pgx.Identifier{"activity_records"},
		[]string{"record_id", "position", "category", "member", "activity_date", "created_at", "payload"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return err
	}

	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	eventID := uuid.NewString()
	if err = outbox.Enqueue(ctx, tx, outbox.Entry{
		AggregateType: "snapshot",
		AggregateID:   snapshotAggregate,
		EventType:     outbox.EventSnapshotReplaced,
		Topic:         s.topic,
		DedupeKey:     eventID,
		Payload: outbox.SnapshotReplaced{
			EventID:     eventID,
			Change:      string(change.Kind),
			RecordID:    change.RecordID,
			RecordCount: len(records),
			OccurredAt:  at,
		},
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordSnapshotPersisted(at)
	return nil
}

// LoadBoard returns a leaderboard in stored order.
func (s *Store) LoadBoard(ctx context.Context, board string) ([]domain.RankEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT entry_id, name, rank, share FROM ranking_entries WHERE board = $1 ORDER BY position`, board)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.RankEntry, 0)
	for rows.Next() {
		var e domain.RankEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Rank, &e.Share); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceBoard swaps the named leaderboard.
func (s *Store) ReplaceBoard(ctx context.Context, board string, entries []domain.RankEntry) (err error) {
	rows := make([][]any, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []any{board, i, e.ID, e.Name, e.Rank, e.Share})
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM ranking_entries WHERE board = $1`, board); err != nil {
		return err
	}
	if _, err = tx.CopyFrom(ctx,
		pgx.Identifier{"ranking_entries"},
		[]string{"board", "position", "entry_id", "name", "rank", "share"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return err
	}

	eventID := uuid.NewString()
	if err = outbox.Enqueue(ctx, tx, outbox.Entry{
		AggregateType: "board",
		AggregateID:   board,
		EventType:     outbox.EventBoardReplaced,
		Topic:         s.topic,
		DedupeKey:     eventID,
		Payload: outbox.BoardReplaced{
			EventID:    eventID,
			Board:      board,
			EntryCount: len(entries),
			OccurredAt: time.Now().UTC(),
		},
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
