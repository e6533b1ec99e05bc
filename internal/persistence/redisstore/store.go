// Package redisstore keeps the record snapshot and leaderboards as JSON documents in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"example.com/researchdesk/internal/domain"
	"example.com/researchdesk/internal/observability"
)

// Client is the subset of redis.Cmdable used by the store.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Store implements domain.SnapshotStore and domain.BoardStore. Each collection
// lives under a single key, so a replacement is one SET and readers never see
// a partial snapshot.
type Store struct {
	client Client
	prefix string
}

// New wraps an existing client.
func New(client Client, prefix string) *Store {
	if prefix == "" {
		prefix = "researchdesk"
	}
	return &Store{client: client, prefix: prefix}
}

// Dial creates a go-redis client and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (s *Store) recordsKey() string { return s.prefix + ":records" }

func (s *Store) boardKey(board string) string { return s.prefix + ":board:" + board }

// Load returns the stored snapshot; a missing key is an empty snapshot.
func (s *Store) Load(ctx context.Context) ([]domain.Record, error) {
	records := make([]domain.Record, 0)
	if err := s.getJSON(ctx, s.recordsKey(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Replace overwrites the snapshot. Change metadata is only used for the
// persistence watermark; this store has no outbox.
func (s *Store) Replace(ctx context.Context, records []domain.Record, change domain.Change) error {
	if records == nil {
		records = []domain.Record{}
	}
	if err := s.setJSON(ctx, s.recordsKey(), records); err != nil {
		return err
	}
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}
	observability.RecordSnapshotPersisted(at)
	return nil
}

// LoadBoard returns a leaderboard; a missing key is an empty board.
func (s *Store) LoadBoard(ctx context.Context, board string) ([]domain.RankEntry, error) {
	entries := make([]domain.RankEntry, 0)
	if err := s.getJSON(ctx, s.boardKey(board), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReplaceBoard overwrites a leaderboard.
func (s *Store) ReplaceBoard(ctx context.Context, board string, entries []domain.RankEntry) error {
	if entries == nil {
		entries = []domain.RankEntry{}
	}
	return s.setJSON(ctx, s.boardKey(board), entries)
}

func (s *Store) getJSON(ctx context.Context, key string, out any) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, body, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
