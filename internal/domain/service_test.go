package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"
)

func TestCreateRecordAppendsToFreshSnapshot(t *testing.T) {
	now := time.Date(2026, time.February, 3, 9, 30, 0, 0, time.UTC)
	store := &stubStore{records: []Record{callRecord("existing", "peidong", now.Add(-time.Hour))}}
	svc := NewService(store, nil,
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { return "new-id" }),
		WithRoster([]string{"peidong", "xuya"}),
	)

	// another writer lands between our reads; the create must build on it
	store.onLoad = func() {
		store.records = append(store.records, callRecord("concurrent", "xuya", now))
		store.onLoad = nil
	}

	rec, err := svc.CreateRecord(context.Background(), CreateRecordInput{
		Member:  "xuya",
		Date:    civil.Date{Year: 2026, Month: time.February, Day: 3},
		Details: Report{Topic: "AI commercialisation", Kind: ReportDeep},
	})
	require.NoError(t, err)
	require.Equal(t, "new-id", rec.ID)
	require.Equal(t, now, rec.Timestamp)

	require.Len(t, store.replaced, 1)
	ids := recordIDs(store.replaced[0])
	require.Equal(t, []string{"existing", "concurrent", "new-id"}, ids)
	require.Equal(t, Change{Kind: ChangeCreate, RecordID: "new-id", At: now}, store.changes[0])
}

func TestCreateRecordRejectsUnknownMember(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, nil, WithRoster([]string{"peidong"}))

	_, err := svc.CreateRecord(context.Background(), CreateRecordInput{
		Member:  "stranger",
		Date:    civil.Date{Year: 2026, Month: time.January, Day: 9},
		Details: Call{Topic: "macro outlook"},
	})
	require.ErrorIs(t, err, ErrUnknownMember)
	require.Empty(t, store.replaced)
}

func TestCreateRecordRejectsInvalidDetails(t *testing.T) {
	svc := NewService(&stubStore{}, nil)

	_, err := svc.CreateRecord(context.Background(), CreateRecordInput{
		Member:  "peidong",
		Date:    civil.Date{Year: 2026, Month: time.January, Day: 9},
		Details: HighFrequency{Topic: "charts"},
	})
	require.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDeleteRecord(t *testing.T) {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	store := &stubStore{records: []Record{
		callRecord("a", "peidong", now),
		callRecord("b", "peidong", now),
	}}
	svc := NewService(store, nil, WithClock(func() time.Time { return now }))

	require.NoError(t, svc.DeleteRecord(context.Background(), "a"))
	require.Equal(t, []string{"b"}, recordIDs(store.replaced[0]))
	require.Equal(t, ChangeDelete, store.changes[0].Kind)
	// the fetched snapshot itself is left untouched
	require.Equal(t, []string{"a", "b"}, recordIDs(store.records))

	err := svc.DeleteRecord(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRecordNotFound)
	require.Len(t, store.replaced, 1)
}

func TestReplaceRecordsRejectsDuplicates(t *testing.T) {
	now := time.Now()
	store := &stubStore{}
	svc := NewService(store, nil)

	err := svc.ReplaceRecords(context.Background(), []Record{
		callRecord("dup", "peidong", now),
		callRecord("dup", "xuya", now),
	})
	require.ErrorIs(t, err, ErrDuplicateRecord)
	require.Empty(t, store.replaced)
}

func TestSnapshotPropagatesStoreError(t *testing.T) {
	svc := NewService(&stubStore{loadErr: errors.New("connection refused")}, nil)

	_, err := svc.Snapshot(context.Background())
	require.ErrorContains(t, err, "connection refused")
}

func TestSnapshotNeverNil(t *testing.T) {
	svc := NewService(&stubStore{}, nil)

	records, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Empty(t, records)
}

func TestListRecordsNewestFirstWithCursor(t *testing.T) {
	base := time.Date(2026, time.January, 10, 8, 0, 0, 0, time.UTC)
	var records []Record
	for i := 0; i < 5; i++ {
		records = append(records, callRecord(fmt.Sprintf("c%d", i), "tianran", base.Add(time.Duration(i)*time.Minute)))
	}
	records = append(records, Record{
		ID: "rep", Member: "tianran", Date: civil.Date{Year: 2026, Month: time.January, Day: 10},
		Timestamp: base.Add(time.Hour), Details: Report{Topic: "consumption", Kind: ReportTopic},
	})
	svc := NewService(&stubStore{records: records}, nil)

	filter := ListFilter{Member: "tianran", Category: CategoryCall}
	page, next, err := svc.ListRecords(context.Background(), filter, nil, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c4", "c3"}, recordIDs(page))
	require.NotNil(t, next)

	page, next, err = svc.ListRecords(context.Background(), filter, next, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c2", "c1"}, recordIDs(page))

	page, next, err = svc.ListRecords(context.Background(), filter, next, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c0"}, recordIDs(page))
	require.Nil(t, next)
}

func TestReplaceBoardValidatesEntries(t *testing.T) {
	boards := &stubBoards{}
	svc := NewService(&stubStore{}, boards)

	err := svc.ReplaceBoard(context.Background(), "groups", []RankEntry{{Name: "no id", Rank: 1}})
	require.ErrorIs(t, err, ErrInvalidRecord)

	entries := []RankEntry{{ID: "g1", Name: "Financials", Rank: 6, Share: 5.2}}
	require.NoError(t, svc.ReplaceBoard(context.Background(), "groups", entries))

	got, err := svc.Board(context.Background(), "groups")
	require.NoError(t, err)
	require.Equal(t, entries, got)

	empty, err := svc.Board(context.Background(), "analysts")
	require.NoError(t, err)
	require.NotNil(t, empty)
}

func callRecord(id, member string, ts time.Time) Record {
	return Record{
		ID:        id,
		Member:    member,
		Date:      civil.DateOf(ts),
		Timestamp: ts,
		Details:   Call{Topic: "topic " + id},
	}
}

func recordIDs(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

type stubStore struct {
	records  []Record
	loadErr  error
	onLoad   func()
	replaced [][]Record
	changes  []Change
}

func (s *stubStore) Load(context.Context) ([]Record, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.onLoad != nil {
		s.onLoad()
	}
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *stubStore) Replace(_ context.Context, records []Record, change Change) error {
	s.replaced = append(s.replaced, records)
	s.changes = append(s.changes, change)
	return nil
}

type stubBoards struct {
	boards map[string][]RankEntry
}

func (b *stubBoards) LoadBoard(_ context.Context, board string) ([]RankEntry, error) {
	return b.boards[board], nil
}

func (b *stubBoards) ReplaceBoard(_ context.Context, board string, entries []RankEntry) error {
	if b.boards == nil {
		b.boards = make(map[string][]RankEntry)
	}
	b.boards[board] = entries
	return nil
}
