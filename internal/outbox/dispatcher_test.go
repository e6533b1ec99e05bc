package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestBuildBatchesGroupsByTopic(t *testing.T) {
	now := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	messages := []Message{
		{EventID: 1, AggregateType: "snapshot", AggregateID: "activity_records", EventType: EventSnapshotReplaced, Topic: "snapshots", PartitionKey: "activity_records", Payload: json.RawMessage(`{"change":"create"}`)},
		{EventID: 2, AggregateType: "board", AggregateID: "groups", EventType: EventBoardReplaced, Topic: "boards", PartitionKey: "groups", Payload: json.RawMessage(`{"board":"groups"}`)},
		{EventID: 3, AggregateType: "snapshot", AggregateID: "activity_records", EventType: EventSnapshotReplaced, Topic: "snapshots", PartitionKey: "activity_records", Payload: json.RawMessage(`{"change":"delete"}`)},
	}

	batches, order, err := buildBatches(messages, now)
	require.NoError(t, err)
	require.Equal(t, []string{"snapshots", "boards"}, order)
	require.Len(t, batches["snapshots"], 2)
	require.Len(t, batches["boards"], 1)

	first := batches["snapshots"][0]
	require.Equal(t, "activity_records", string(first.Key))
	require.JSONEq(t, `{"change":"create"}`, string(first.Value))
	require.Equal(t, now, first.Time)
	require.Equal(t, "event_type", first.Headers[0].Key)
	require.Equal(t, EventSnapshotReplaced, string(first.Headers[0].Value))
	require.Equal(t, `{"change":"delete"}`, string(batches["snapshots"][1].Value))
}

func TestBuildBatchesRejectsMalformedPayload(t *testing.T) {
	_, _, err := buildBatches([]Message{{EventID: 9, EventType: EventSnapshotReplaced, Topic: "t", Payload: json.RawMessage(`{`)}}, time.Now())
	require.ErrorContains(t, err, "event 9")
}

func TestEnqueueWritesRow(t *testing.T) {
	tx := &recordingExecer{}
	occurred := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)

	err := Enqueue(context.Background(), tx, Entry{
		AggregateType: "snapshot",
		AggregateID:   "activity_records",
		EventType:     EventSnapshotReplaced,
		Topic:         DefaultTopic,
		DedupeKey:     "evt-1",
		Payload:       SnapshotReplaced{EventID: "evt-1", Change: "create", RecordID: "r1", RecordCount: 3, OccurredAt: occurred},
	})
	require.NoError(t, err)
	require.Len(t, tx.args, 7)
	require.Equal(t, "activity_records", tx.args[4], "partition key defaults to the aggregate id")

	var payload SnapshotReplaced
	require.NoError(t, json.Unmarshal(tx.args[5].([]byte), &payload))
	require.Equal(t, 3, payload.RecordCount)
	require.True(t, occurred.Equal(payload.OccurredAt))
}

func TestEnqueueValidatesRouting(t *testing.T) {
	tx := &recordingExecer{}
	err := Enqueue(context.Background(), tx, Entry{EventType: EventBoardReplaced})
	require.Error(t, err)
	require.Nil(t, tx.args)
}

func TestEnqueuePropagatesExecError(t *testing.T) {
	tx := &recordingExecer{err: errors.New("tx aborted")}
	err := Enqueue(context.Background(), tx, Entry{EventType: EventBoardReplaced, Topic: DefaultTopic, Payload: BoardReplaced{Board: "groups"}})
	require.ErrorContains(t, err, "tx aborted")
}

type recordingExecer struct {
	sql  string
	args []any
	err  error
}

func (r *recordingExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql = sql
	r.args = args
	return pgconn.CommandTag{}, r.err
}
