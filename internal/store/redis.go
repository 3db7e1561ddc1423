package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ogas/wager-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis
// read-through cache. Writes go to the primary store and invalidate the
// cache; reads check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) GetParticipant(ctx context.Context, id string) (*model.Participant, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, participantKey(id)).Bytes()
	if err == nil {
		var p model.Participant
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	// Cache miss: read from primary.
	p, err := s.primary.GetParticipant(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheParticipant(ctx, p)
	return p, nil
}

func (s *CachedStore) UpsertParticipant(ctx context.Context, p *model.Participant) error {
	if err := s.primary.UpsertParticipant(ctx, p); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, participantKey(p.ID))
	return nil
}

// ListParticipants is not cached: it backs settlement, which must see
// the primary store's current state.
func (s *CachedStore) ListParticipants(ctx context.Context) ([]model.Participant, error) {
	return s.primary.ListParticipants(ctx)
}

func (s *CachedStore) cacheParticipant(ctx context.Context, p *model.Participant) {
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, participantKey(p.ID), data, s.ttl)
	}
}

func participantKey(id string) string { return fmt.Sprintf("participant:%s", id) }
