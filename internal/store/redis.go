package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/liveness-broker/internal/config"
	"github.com/liveness-broker/internal/types"
	"github.com/redis/go-redis/v9"
)

const (
	submissionKeyPrefix = "submission:"
	submissionOrderKey  = "submissions:order"
	blobKeyPrefix       = "blob:"
)

// NewRedisClient creates a Redis client from configuration and verifies the
// connection before returning it.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RedisSubmissionStore keeps submissions in Redis so multiple broker
// instances observe the same records. Ordering for cap eviction lives in a
// sorted set scored by creation time.
type RedisSubmissionStore struct {
	client *redis.Client
	cap    int
	ttl    time.Duration
}

// NewRedisSubmissionStore creates a Redis-backed submission store. A zero
// ttl means records never expire on their own.
func NewRedisSubmissionStore(client *redis.Client, cap int, ttl time.Duration) *RedisSubmissionStore {
	if cap <= 0 {
		cap = DefaultSubmissionCap
	}
	return &RedisSubmissionStore{client: client, cap: cap, ttl: ttl}
}

// Create implements SubmissionStore
func (s *RedisSubmissionStore) Create(ctx context.Context, sub *types.Submission) (string, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	if err := s.write(ctx, sub); err != nil {
		return "", err
	}

	if err := s.client.ZAdd(ctx, submissionOrderKey, redis.Z{
		Score:  float64(sub.CreatedAt.UnixNano()),
		Member: sub.SelfieCode,
	}).Err(); err != nil {
		return "", fmt.Errorf("track submission order: %w", err)
	}

	// Evict oldest past the cap. The victim is picked by rank rather than
	// popped so a creation-time tie can never evict the record just written.
	count, err := s.client.ZCard(ctx, submissionOrderKey).Result()
	if err != nil {
		return "", fmt.Errorf("count submissions: %w", err)
	}
	for count > int64(s.cap) {
		oldest, err := s.client.ZRange(ctx, submissionOrderKey, 0, 1).Result()
		if err != nil || len(oldest) == 0 {
			break
		}
		victim := oldest[0]
		if victim == sub.SelfieCode {
			if len(oldest) < 2 {
				break
			}
			victim = oldest[1]
		}
		if err := s.client.ZRem(ctx, submissionOrderKey, victim).Err(); err != nil {
			break
		}
		_ = s.client.Del(ctx, submissionKeyPrefix+victim).Err()
		count--
	}

	return sub.ID, nil
}

// GetByCode implements SubmissionStore
func (s *RedisSubmissionStore) GetByCode(ctx context.Context, code string) (*types.Submission, error) {
	data, err := s.client.Get(ctx, submissionKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		// The record may have expired under us; drop its order entry too.
		_ = s.client.ZRem(ctx, submissionOrderKey, code).Err()
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	var sub types.Submission
	if err := json.Unmarshal([]byte(data), &sub); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	return &sub, nil
}

// Update implements SubmissionStore
func (s *RedisSubmissionStore) Update(ctx context.Context, sub *types.Submission) error {
	exists, err := s.client.Exists(ctx, submissionKeyPrefix+sub.SelfieCode).Result()
	if err != nil {
		return fmt.Errorf("check submission: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	sub.UpdatedAt = time.Now()
	return s.write(ctx, sub)
}

// DeleteByCode implements SubmissionStore
func (s *RedisSubmissionStore) DeleteByCode(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, submissionKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return s.client.ZRem(ctx, submissionOrderKey, code).Err()
}

// Count implements SubmissionStore
func (s *RedisSubmissionStore) Count(ctx context.Context) (int, error) {
	count, err := s.client.ZCard(ctx, submissionOrderKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return int(count), nil
}

func (s *RedisSubmissionStore) write(ctx context.Context, sub *types.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	if err := s.client.Set(ctx, submissionKeyPrefix+sub.SelfieCode, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store submission: %w", err)
	}
	return nil
}

// RedisBlobStore keeps ephemeral payloads in Redis with native expiry, so
// Sweep has nothing to do.
type RedisBlobStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBlobStore creates a Redis-backed blob store with a default TTL
// applied when Put is called with a zero TTL.
func NewRedisBlobStore(client *redis.Client, defaultTTL time.Duration) *RedisBlobStore {
	return &RedisBlobStore{client: client, ttl: defaultTTL}
}

// Put implements BlobStore
func (s *RedisBlobStore) Put(ctx context.Context, key, payload string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := time.Now()
	blob := &Blob{
		Payload:   payload,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encode blob: %w", err)
	}
	if err := s.client.Set(ctx, blobKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("store blob: %w", err)
	}
	return nil
}

// Get implements BlobStore
func (s *RedisBlobStore) Get(ctx context.Context, key string) (*Blob, error) {
	data, err := s.client.Get(ctx, blobKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}

	var blob Blob
	if err := json.Unmarshal([]byte(data), &blob); err != nil {
		return nil, fmt.Errorf("decode blob: %w", err)
	}
	return &blob, nil
}

// Delete implements BlobStore
func (s *RedisBlobStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, blobKeyPrefix+key).Err()
}

// Sweep implements BlobStore. Redis expires entries natively.
func (s *RedisBlobStore) Sweep(_ context.Context) (int, error) {
	return 0, nil
}
