package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"shipsync/internal/features/shipments/domain"
	"shipsync/internal/features/shipments/ports"

	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix = "shipment:record:"
	identifierIndex = "shipment:idx"
	syncIndex       = "shipment:sync"
	pendingIndex    = "shipment:pending"
)

// RedisStore implements ports.OrderStore on redis. One JSON record per
// order, a hash mapping every known identifier (order id, AWB, shipment
// id) to its order key, a sorted set scored by last_synced_at for
// candidate selection, and a set of orders still missing AWB or status.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore from a redis URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func recordKey(orderKey string) string {
	return recordKeyPrefix + orderKey
}

// Get returns the record for an order key.
func (s *RedisStore) Get(ctx context.Context, orderKey string) (*ports.Record, error) {
	data, err := s.client.Get(ctx, recordKey(orderKey)).Bytes()
	if err == redis.Nil {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", orderKey, err)
	}

	var rec ports.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", orderKey, err)
	}
	return &rec, nil
}

// FindByIdentifier resolves any known identifier to its record.
func (s *RedisStore) FindByIdentifier(ctx context.Context, identifier string) (*ports.Record, error) {
	orderKey, err := s.client.HGet(ctx, identifierIndex, identifier).Result()
	if err == redis.Nil {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identifier %s: %w", identifier, err)
	}
	return s.Get(ctx, orderKey)
}

// CompareAndSwap writes state only if the stored version still equals
// expectedVersion, using a WATCH transaction so racing writers cannot
// produce a lost update. expectedVersion 0 creates the record.
func (s *RedisStore) CompareAndSwap(ctx context.Context, orderKey string, expectedVersion int64, state domain.ShipmentState) error {
	key := recordKey(orderKey)

	txf := func(tx *redis.Tx) error {
		var current int64
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			current = 0
		case err != nil:
			return fmt.Errorf("failed to read record %s: %w", orderKey, err)
		default:
			var rec ports.Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record %s: %w", orderKey, err)
			}
			current = rec.Version
		}

		if current != expectedVersion {
			return ports.ErrVersionConflict
		}

		rec := ports.Record{
			OrderKey: orderKey,
			Version:  expectedVersion + 1,
			State:    state,
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", orderKey, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.ZAdd(ctx, syncIndex, redis.Z{
				Score:  float64(state.LastSyncedAt.Unix()),
				Member: orderKey,
			})
			for _, id := range recordIdentifiers(orderKey, state) {
				pipe.HSet(ctx, identifierIndex, id, orderKey)
			}
			if state.AWB == "" || !state.StatusKnown {
				pipe.SAdd(ctx, pendingIndex, orderKey)
			} else {
				pipe.SRem(ctx, pendingIndex, orderKey)
			}
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched the key between WATCH and EXEC.
		return ports.ErrVersionConflict
	}
	return err
}

// recordIdentifiers lists every identifier the record can be resolved by.
func recordIdentifiers(orderKey string, state domain.ShipmentState) []string {
	ids := []string{orderKey}
	if state.AWB != "" {
		ids = append(ids, state.AWB)
	}
	if state.ShipmentID != "" {
		ids = append(ids, state.ShipmentID)
	}
	return ids
}

// SelectSyncCandidates returns up to limit orders that are stale (older
// than lookback) or still missing AWB/status, most-recently-updated first.
func (s *RedisStore) SelectSyncCandidates(ctx context.Context, lookback time.Duration, limit int) ([]ports.Record, error) {
	cutoff := time.Now().Add(-lookback).Unix()

	stale, err := s.client.ZRangeByScore(ctx, syncIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to select stale orders: %w", err)
	}

	pending, err := s.client.SMembers(ctx, pendingIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to select pending orders: %w", err)
	}

	seen := make(map[string]struct{}, len(stale)+len(pending))
	var records []ports.Record
	for _, orderKey := range append(stale, pending...) {
		if _, ok := seen[orderKey]; ok {
			continue
		}
		seen[orderKey] = struct{}{}

		rec, err := s.Get(ctx, orderKey)
		if errors.Is(err, ports.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].State.LastSyncedAt.After(records[j].State.LastSyncedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Ping checks that redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ ports.OrderStore = (*RedisStore)(nil)
