// Package store provides the submission and blob storage capabilities used
// by the HTTP handlers. Implementations are injected so tests can substitute
// the in-memory store and multi-instance deployments can share Redis.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/liveness-broker/internal/types"
)

// ErrNotFound is returned when a key or code has no live entry
var ErrNotFound = errors.New("not found")

// SubmissionStore manages submission records keyed by selfie code.
// Duplicate codes shadow each other: the most recent write wins.
type SubmissionStore interface {
	// Create stores a submission and returns its record ID. Once the store
	// holds more than its configured cap, the oldest record is evicted.
	Create(ctx context.Context, sub *types.Submission) (string, error)

	// GetByCode returns the submission for a selfie code, or ErrNotFound.
	GetByCode(ctx context.Context, code string) (*types.Submission, error)

	// Update replaces the stored submission for sub's selfie code.
	Update(ctx context.Context, sub *types.Submission) error

	// DeleteByCode removes the submission for a selfie code if present.
	DeleteByCode(ctx context.Context, code string) error

	// Count returns the number of live submissions.
	Count(ctx context.Context) (int, error)
}

// Blob is an ephemeral payload with an expiry
type Blob struct {
	Payload   string    `json:"payload"`
	StoredAt  time.Time `json:"storedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the blob is past its expiry at the given instant
func (b *Blob) Expired(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && now.After(b.ExpiresAt)
}

// BlobStore manages ephemeral keyed payloads with a TTL. Expired entries are
// never returned by Get; reclamation of their memory may be lazy.
type BlobStore interface {
	Put(ctx context.Context, key, payload string, ttl time.Duration) error
	Get(ctx context.Context, key string) (*Blob, error)
	Delete(ctx context.Context, key string) error

	// Sweep removes expired entries and returns how many were dropped.
	Sweep(ctx context.Context) (int, error)
}
