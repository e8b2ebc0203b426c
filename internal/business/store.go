package business

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/atendezap/atendezap/pkg/logging"
)

// Store is a redis read-through cache in front of the repository. Admin
// mutations must call Invalidate so the next read sees fresh configuration.
type Store struct {
	repo       *Repository
	redis      *redis.Client
	logger     *logging.Logger
	defaultTTL time.Duration
}

// StoreOption customizes the cached store.
type StoreOption func(*Store)

// WithDefaultCacheTTL sets the cache lifetime used for businesses that do not
// configure their own.
func WithDefaultCacheTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.defaultTTL = d }
}

// NewStore creates the cached configuration store.
func NewStore(repo *Repository, redisClient *redis.Client, logger *logging.Logger, opts ...StoreOption) *Store {
	if repo == nil {
		panic("business: repository cannot be nil")
	}
	if redisClient == nil {
		panic("business: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{repo: repo, redis: redisClient, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func configKey(id uuid.UUID) string {
	return fmt.Sprintf("business_cfg:%s", id)
}

func phoneNumberKey(phoneNumberID string) string {
	return fmt.Sprintf("business_pnid:%s", phoneNumberID)
}

// Get loads a business, serving from cache within its configured TTL.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Business, error) {
	if b := s.cached(ctx, configKey(id)); b != nil {
		return b, nil
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, b)
	return b, nil
}

// GetByPhoneNumberID resolves a business by the WhatsApp number id that
// received a webhook, serving from cache when possible.
func (s *Store) GetByPhoneNumberID(ctx context.Context, phoneNumberID string) (*Business, error) {
	if b := s.cached(ctx, phoneNumberKey(phoneNumberID)); b != nil {
		return b, nil
	}

	b, err := s.repo.GetByPhoneNumberID(ctx, phoneNumberID)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, b)
	return b, nil
}

// Invalidate drops the cached entries for a business. Called after every
// admin configuration mutation.
func (s *Store) Invalidate(ctx context.Context, b *Business) {
	if b == nil {
		return
	}
	keys := []string{configKey(b.ID)}
	if b.PhoneNumberID != "" {
		keys = append(keys, phoneNumberKey(b.PhoneNumberID))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("failed to invalidate business cache", "business_id", b.ID, "error", err)
	}
}

// Repo exposes the underlying repository for callers that must bypass the
// cache (admin mutations, service CRUD).
func (s *Store) Repo() *Repository {
	return s.repo
}

func (s *Store) cached(ctx context.Context, key string) *Business {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("business cache read failed", "key", key, "error", err)
		}
		return nil
	}
	var b Business
	if err := json.Unmarshal(data, &b); err != nil {
		s.logger.Warn("dropping malformed business cache entry", "key", key, "error", err)
		_ = s.redis.Del(ctx, key).Err()
		return nil
	}
	return &b
}

func (s *Store) fill(ctx context.Context, b *Business) {
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	ttl := b.CacheTTL(s.defaultTTL)
	if err := s.redis.Set(ctx, configKey(b.ID), data, ttl).Err(); err != nil {
		s.logger.Warn("business cache write failed", "business_id", b.ID, "error", err)
	}
	if b.PhoneNumberID != "" {
		_ = s.redis.Set(ctx, phoneNumberKey(b.PhoneNumberID), data, ttl).Err()
	}
}
