package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/liveness-broker/internal/types"
)

func TestMemorySubmissionStore_CreateAndGet(t *testing.T) {
	s := NewMemorySubmissionStore(10)
	ctx := context.Background()

	id, err := s.Create(ctx, &types.Submission{
		SelfieCode:    "code-1",
		EncryptedCode: "blob-1",
		Status:        types.StatusPending,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id == "" {
		t.Fatal("Create() returned empty id")
	}

	sub, err := s.GetByCode(ctx, "code-1")
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if sub.ID != id {
		t.Errorf("GetByCode() id = %s, want %s", sub.ID, id)
	}
	if sub.Status != types.StatusPending {
		t.Errorf("GetByCode() status = %s, want pending", sub.Status)
	}
	if sub.CreatedAt.IsZero() {
		t.Error("GetByCode() createdAt not stamped")
	}
}

func TestMemorySubmissionStore_GetUnknown(t *testing.T) {
	s := NewMemorySubmissionStore(10)

	if _, err := s.GetByCode(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("GetByCode() error = %v, want ErrNotFound", err)
	}
}

func TestMemorySubmissionStore_DuplicateCodeShadows(t *testing.T) {
	s := NewMemorySubmissionStore(10)
	ctx := context.Background()

	first, _ := s.Create(ctx, &types.Submission{SelfieCode: "dup", EncryptedCode: "old"})
	second, _ := s.Create(ctx, &types.Submission{SelfieCode: "dup", EncryptedCode: "new"})

	sub, err := s.GetByCode(ctx, "dup")
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if sub.ID != second || sub.ID == first {
		t.Errorf("GetByCode() id = %s, want last writer %s", sub.ID, second)
	}
	if sub.EncryptedCode != "new" {
		t.Errorf("GetByCode() encryptedCode = %s, want new", sub.EncryptedCode)
	}
}

func TestMemorySubmissionStore_CapEvictsOldest(t *testing.T) {
	s := NewMemorySubmissionStore(1000)
	ctx := context.Background()

	for i := 0; i < 1001; i++ {
		_, err := s.Create(ctx, &types.Submission{
			SelfieCode:    fmt.Sprintf("code-%d", i),
			EncryptedCode: "blob",
		})
		if err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1000 {
		t.Errorf("Count() = %d, want 1000", count)
	}

	// Oldest is gone, newest survives
	if _, err := s.GetByCode(ctx, "code-0"); err != ErrNotFound {
		t.Errorf("GetByCode(code-0) error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetByCode(ctx, "code-1000"); err != nil {
		t.Errorf("GetByCode(code-1000) error = %v", err)
	}
}

func TestMemorySubmissionStore_EvictionSparesShadowedCode(t *testing.T) {
	s := NewMemorySubmissionStore(2)
	ctx := context.Background()

	// "dup" is written first, then shadowed by a newer write. Evicting the
	// stale oldest entry must not take the live record with it.
	_, _ = s.Create(ctx, &types.Submission{SelfieCode: "dup", EncryptedCode: "old"})
	_, _ = s.Create(ctx, &types.Submission{SelfieCode: "dup", EncryptedCode: "new"})
	_, _ = s.Create(ctx, &types.Submission{SelfieCode: "other", EncryptedCode: "x"})

	sub, err := s.GetByCode(ctx, "dup")
	if err != nil {
		t.Fatalf("GetByCode(dup) error = %v", err)
	}
	if sub.EncryptedCode != "new" {
		t.Errorf("GetByCode(dup) encryptedCode = %s, want new", sub.EncryptedCode)
	}
}

func TestMemorySubmissionStore_Update(t *testing.T) {
	s := NewMemorySubmissionStore(10)
	ctx := context.Background()

	_, _ = s.Create(ctx, &types.Submission{SelfieCode: "code-1", EncryptedCode: "blob"})

	sub, _ := s.GetByCode(ctx, "code-1")
	sub.Status = types.StatusCompleted
	sub.ResultCode = "RESULT_ABCDEF123456_1700000000"

	if err := s.Update(ctx, sub); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := s.GetByCode(ctx, "code-1")
	if got.Status != types.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.ResultCode != sub.ResultCode {
		t.Errorf("resultCode = %s, want %s", got.ResultCode, sub.ResultCode)
	}

	if err := s.Update(ctx, &types.Submission{SelfieCode: "missing"}); err != ErrNotFound {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemorySubmissionStore_DeleteByCode(t *testing.T) {
	s := NewMemorySubmissionStore(10)
	ctx := context.Background()

	_, _ = s.Create(ctx, &types.Submission{SelfieCode: "code-1", EncryptedCode: "blob"})

	if err := s.DeleteByCode(ctx, "code-1"); err != nil {
		t.Fatalf("DeleteByCode() error = %v", err)
	}
	if _, err := s.GetByCode(ctx, "code-1"); err != ErrNotFound {
		t.Errorf("GetByCode() after delete error = %v, want ErrNotFound", err)
	}
	if count, _ := s.Count(ctx); count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}

	// Deleting an absent code is a no-op
	if err := s.DeleteByCode(ctx, "missing"); err != nil {
		t.Errorf("DeleteByCode(missing) error = %v", err)
	}
}

func TestMemoryBlobStore_PutGet(t *testing.T) {
	s := NewMemoryBlobStore(time.Hour)
	ctx := context.Background()

	if err := s.Put(ctx, "k1", "payload", 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	blob, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if blob.Payload != "payload" {
		t.Errorf("Get() payload = %s, want payload", blob.Payload)
	}

	if _, err := s.Get(ctx, "missing"); err != ErrNotFound {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryBlobStore_ExpiredEntriesSweptOnWrite(t *testing.T) {
	s := NewMemoryBlobStore(time.Hour)
	ctx := context.Background()

	now := time.Now()
	s.SetNowFunc(func() time.Time { return now })

	_ = s.Put(ctx, "old", "stale", time.Hour)

	// Move past the TTL; the next write sweeps the expired entry.
	now = now.Add(2 * time.Hour)
	_ = s.Put(ctx, "fresh", "live", time.Hour)

	if _, err := s.Get(ctx, "old"); err != ErrNotFound {
		t.Errorf("Get(old) error = %v, want ErrNotFound after sweep", err)
	}
	if _, err := s.Get(ctx, "fresh"); err != nil {
		t.Errorf("Get(fresh) error = %v", err)
	}

	s.mu.Lock()
	_, stillHeld := s.blobs["old"]
	s.mu.Unlock()
	if stillHeld {
		t.Error("expired entry still held after sweep")
	}
}

func TestMemoryBlobStore_ExpiredEntryNotReturned(t *testing.T) {
	s := NewMemoryBlobStore(time.Hour)
	ctx := context.Background()

	now := time.Now()
	s.SetNowFunc(func() time.Time { return now })

	_ = s.Put(ctx, "k1", "payload", time.Minute)

	now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "k1"); err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound for expired entry", err)
	}
}

func TestMemoryBlobStore_Sweep(t *testing.T) {
	s := NewMemoryBlobStore(time.Hour)
	ctx := context.Background()

	now := time.Now()
	s.SetNowFunc(func() time.Time { return now })

	_ = s.Put(ctx, "a", "1", time.Minute)
	_ = s.Put(ctx, "b", "2", time.Hour)

	now = now.Add(30 * time.Minute)
	dropped, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if dropped != 1 {
		t.Errorf("Sweep() dropped = %d, want 1", dropped)
	}
}
