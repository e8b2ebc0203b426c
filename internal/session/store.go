package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/pkg/logging"
)

// Store persists sessions to redis with a TTL. Concurrent saves for the same
// key are last-writer-wins; the engine accepts that race.
type Store struct {
	redis  *redis.Client
	logger *logging.Logger
}

// NewStore creates a session store.
func NewStore(redisClient *redis.Client, logger *logging.Logger) *Store {
	if redisClient == nil {
		panic("session: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{redis: redisClient, logger: logger}
}

func sessionKey(businessID uuid.UUID, phone string) string {
	return fmt.Sprintf("session:%s:%s", businessID, phone)
}

// Load retrieves the session for a (business, phone) pair. A missing key
// returns (nil, nil). A cached payload that no longer decodes is dropped and
// also reported as missing, so a corrupt session can never trap a user.
func (s *Store) Load(ctx context.Context, businessID uuid.UUID, phone string) (*State, error) {
	key := sessionKey(businessID, phone)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: failed to load %s: %w", key, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("discarding malformed session payload", "key", key, "error", err)
		_ = s.redis.Del(ctx, key).Err()
		return nil, nil
	}
	if !intent.Known(st.CurrentIntent) {
		s.logger.Warn("discarding session with unknown intent", "key", key, "intent", st.CurrentIntent)
		_ = s.redis.Del(ctx, key).Err()
		return nil, nil
	}
	return &st, nil
}

// Save writes the session with the given TTL, refreshing LastUpdated.
func (s *Store) Save(ctx context.Context, businessID uuid.UUID, phone string, st *State, ttl time.Duration) error {
	if st == nil {
		return fmt.Errorf("session: cannot save nil state")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	st.LastUpdated = time.Now().UTC()

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(businessID, phone), data, ttl).Err(); err != nil {
		return fmt.Errorf("session: failed to persist state: %w", err)
	}
	return nil
}

// Delete removes the session outright.
func (s *Store) Delete(ctx context.Context, businessID uuid.UUID, phone string) error {
	if err := s.redis.Del(ctx, sessionKey(businessID, phone)).Err(); err != nil {
		return fmt.Errorf("session: failed to delete state: %w", err)
	}
	return nil
}
