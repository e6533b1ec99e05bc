// Package domain defines the activity records and the snapshot workflows of the research desk.
package domain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

var (
	// ErrRecordNotFound is returned when a record id is absent from the current snapshot.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidRecord wraps validation failures of incoming records.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrUnknownMember is returned when a write names a member outside the roster.
	ErrUnknownMember = errors.New("member is not on the roster")
	// ErrDuplicateRecord is returned when a replacement snapshot repeats an id.
	ErrDuplicateRecord = errors.New("duplicate record id")
)

// ChangeKind describes why a snapshot was replaced.
type ChangeKind string

const (
	ChangeCreate  ChangeKind = "create"
	ChangeDelete  ChangeKind = "delete"
	ChangeReplace ChangeKind = "replace"
)

// Change annotates a snapshot replacement for auditing.
type Change struct {
	Kind     ChangeKind
	RecordID string
	At       time.Time
}

// SnapshotStore is the record store boundary. Writes replace the whole
// collection; there is no per-record upsert and no compare-and-swap, so two
// writers racing on the same snapshot resolve as last write wins.
type SnapshotStore interface {
	Load(ctx context.Context) ([]Record, error)
	Replace(ctx context.Context, records []Record, change Change) error
}

// BoardStore persists leaderboards, each replaced wholesale.
type BoardStore interface {
	LoadBoard(ctx context.Context, board string) ([]RankEntry, error)
	ReplaceBoard(ctx context.Context, board string, entries []RankEntry) error
}

// Cursor models the pagination token for recency-ordered listings.
type Cursor struct {
	Timestamp time.Time
	ID        string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithRoster restricts writes to the given members.
func WithRoster(members []string) Option {
	return func(s *Service) {
		s.roster = make(map[string]struct{}, len(members))
		for _, m := range members {
			s.roster[m] = struct{}{}
		}
	}
}

// Service orchestrates read-modify-write workflows over the record store.
type Service struct {
	store  SnapshotStore
	boards BoardStore
	roster map[string]struct{}
	now    func() time.Time
	newID  func() string
}

// NewService constructs a Service.
func NewService(store SnapshotStore, boards BoardStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		boards: boards,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current record collection. A store with no data yields
// an empty, non-nil slice.
func (s *Service) Snapshot(ctx context.Context) ([]Record, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// CreateRecordInput captures a new record from the API layer.
type CreateRecordInput struct {
	Member  string
	Date    civil.Date
	Details Details
}

// CreateRecord assigns an id and timestamp, appends the record to a freshly
// fetched snapshot and writes the result back.
func (s *Service) CreateRecord(ctx context.Context, input CreateRecordInput) (*Record, error) {
	record := Record{
		ID:        s.newID(),
		Member:    strings.TrimSpace(input.Member),
		Date:      input.Date,
		Timestamp: s.now().UTC().Truncate(time.Millisecond),
		Details:   input.Details,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkMember(record.Member); err != nil {
		return nil, err
	}

	current, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	next := make([]Record, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, record)

	if err := s.store.Replace(ctx, next, Change{Kind: ChangeCreate, RecordID: record.ID, At: record.Timestamp}); err != nil {
		return nil, fmt.Errorf("replace snapshot: %w", err)
	}
	return &record, nil
}

// DeleteRecord removes a record from a freshly fetched snapshot.
func (s *Service) DeleteRecord(ctx context.Context, id string) error {
	current, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	next := slices.DeleteFunc(slices.Clone(current), func(r Record) bool { return r.ID == id })
	if len(next) == len(current) {
		return ErrRecordNotFound
	}

	if err := s.store.Replace(ctx, next, Change{Kind: ChangeDelete, RecordID: id, At: s.now().UTC()}); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// ReplaceRecords overwrites the whole collection with records.
func (s *Service) ReplaceRecords(ctx context.Context, records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateRecord, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	if err := s.store.Replace(ctx, records, Change{Kind: ChangeReplace, At: s.now().UTC()}); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// ListFilter narrows a listing; zero fields match everything.
type ListFilter struct {
	Member   string
	Category Category
}

// ListRecords returns records newest first (timestamp, then id, descending)
// with cursor pagination.
func (s *Service) ListRecords(ctx context.Context, filter ListFilter, cursor *Cursor, limit int) ([]Record, *Cursor, error) {
	current, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	matched := make([]Record, 0, len(current))
	for _, r := range current {
		if filter.Member != "" && r.Member != filter.Member {
			continue
		}
		if filter.Category != "" && r.Category() != filter.Category {
			continue
		}
		if cursor != nil && !olderThan(r, *cursor) {
			continue
		}
		matched = append(matched, r)
	}

	slices.SortStableFunc(matched, func(a, b Record) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	if limit <= 0 || len(matched) <= limit {
		return matched, nil, nil
	}

	page := matched[:limit]
	last := page[len(page)-1]
	return page, &Cursor{Timestamp: last.Timestamp, ID: last.ID}, nil
}

// olderThan reports whether r sorts strictly after the cursor position in
// newest-first order.
func olderThan(r Record, c Cursor) bool {
	if !r.Timestamp.Equal(c.Timestamp) {
		return r.Timestamp.Before(c.Timestamp)
	}
	return r.ID < c.ID
}

// Board returns a stored leaderboard in its entered order.
func (s *Service) Board(ctx context.Context, board string) ([]RankEntry, error) {
	entries, err := s.boards.LoadBoard(ctx, board)
	if err != nil {
		return nil, fmt.Errorf("load board %s: %w", board, err)
	}
	if entries == nil {
		entries = []RankEntry{}
	}
	return entries, nil
}

// ReplaceBoard overwrites a leaderboard.
func (s *Service) ReplaceBoard(ctx context.Context, board string, entries []RankEntry) error {
	if strings.TrimSpace(board) == "" {
		return fmt.Errorf("%w: board name is required", ErrInvalidRecord)
	}
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: board entry id is required", ErrInvalidRecord)
		}
	}
	if err := s.boards.ReplaceBoard(ctx, board, entries); err != nil {
		return fmt.Errorf("replace board %s: %w", board, err)
	}
	return nil
}

func (s *Service) checkMember(member string) error {
	if s.roster == nil {
		return nil
	}
	if _, ok := s.roster[member]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMember, member)
	}
	return nil
}
