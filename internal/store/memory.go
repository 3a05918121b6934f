package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liveness-broker/internal/types"
)

// DefaultSubmissionCap bounds the in-memory submission store
const DefaultSubmissionCap = 1000

// MemorySubmissionStore is a mutex-guarded in-process submission store with
// a fixed cap: once more than cap submissions are held, the oldest is
// evicted. State is lost on restart; use the Redis store for anything that
// runs more than one instance.
type MemorySubmissionStore struct {
	mu      sync.Mutex
	order   []*types.Submission // insertion order, oldest first
	byCode  map[string]*types.Submission
	cap     int
	nowFunc func() time.Time
}

// NewMemorySubmissionStore creates an in-memory submission store with the
// given cap. A non-positive cap falls back to DefaultSubmissionCap.
func NewMemorySubmissionStore(cap int) *MemorySubmissionStore {
	if cap <= 0 {
		cap = DefaultSubmissionCap
	}
	return &MemorySubmissionStore{
		order:   make([]*types.Submission, 0),
		byCode:  make(map[string]*types.Submission),
		cap:     cap,
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the store's clock for tests
func (s *MemorySubmissionStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
}

// Create implements SubmissionStore
func (s *MemorySubmissionStore) Create(_ context.Context, sub *types.Submission) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := s.nowFunc()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	stored := *sub
	s.order = append(s.order, &stored)
	s.byCode[stored.SelfieCode] = &stored

	// Evict oldest past the cap
	for len(s.order) > s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		if current, ok := s.byCode[oldest.SelfieCode]; ok && current == oldest {
			delete(s.byCode, oldest.SelfieCode)
		}
	}

	return stored.ID, nil
}

// GetByCode implements SubmissionStore
func (s *MemorySubmissionStore) GetByCode(_ context.Context, code string) (*types.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *sub
	return &copied, nil
}

// Update implements SubmissionStore
func (s *MemorySubmissionStore) Update(_ context.Context, sub *types.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byCode[sub.SelfieCode]
	if !ok {
		return ErrNotFound
	}

	sub.UpdatedAt = s.nowFunc()
	*current = *sub
	return nil
}

// DeleteByCode implements SubmissionStore
func (s *MemorySubmissionStore) DeleteByCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byCode[code]
	if !ok {
		return nil
	}
	delete(s.byCode, code)

	for i, rec := range s.order {
		if rec == sub {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count implements SubmissionStore
func (s *MemorySubmissionStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order), nil
}

// MemoryBlobStore is a mutex-guarded ephemeral payload store. Expired
// entries are reclaimed lazily: every Put sweeps the whole map.
type MemoryBlobStore struct {
	mu      sync.Mutex
	blobs   map[string]*Blob
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewMemoryBlobStore creates an in-memory blob store with a default TTL
// applied when Put is called with a zero TTL.
func NewMemoryBlobStore(defaultTTL time.Duration) *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs:   make(map[string]*Blob),
		ttl:     defaultTTL,
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the store's clock for tests
func (s *MemoryBlobStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
}

// Put implements BlobStore. Every write sweeps expired entries first.
func (s *MemoryBlobStore) Put(_ context.Context, key, payload string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	s.sweepLocked(now)

	if ttl <= 0 {
		ttl = s.ttl
	}
	s.blobs[key] = &Blob{
		Payload:   payload,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

// Get implements BlobStore
func (s *MemoryBlobStore) Get(_ context.Context, key string) (*Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	if blob.Expired(s.nowFunc()) {
		delete(s.blobs, key)
		return nil, ErrNotFound
	}

	copied := *blob
	return &copied, nil
}

// Delete implements BlobStore
func (s *MemoryBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Sweep implements BlobStore
func (s *MemoryBlobStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.nowFunc()), nil
}

func (s *MemoryBlobStore) sweepLocked(now time.Time) int {
	dropped := 0
	for key, blob := range s.blobs {
		if blob.Expired(now) {
			delete(s.blobs, key)
			dropped++
		}
	}
	return dropped
}
