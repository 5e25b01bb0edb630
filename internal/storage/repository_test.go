package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"billview/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "outbox.db"), nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestEnqueueAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m, err := repo.Enqueue(ctx, core.OpCreate, "B-1", []byte(`{"farmer_name":"Ram"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if m.MutationID == "" || m.Status != core.StatusPending || m.Attempts != 0 {
		t.Fatalf("unexpected mutation %+v", m)
	}

	got, err := repo.Get(ctx, m.MutationID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Op != core.OpCreate || got.BeneficiaryID != "B-1" || string(got.Payload) != `{"farmer_name":"Ram"}` {
		t.Fatalf("unexpected stored mutation %+v", got)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrMutationNotFound) {
		t.Fatalf("expected ErrMutationNotFound, got %v", err)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	m, _ := repo.Enqueue(ctx, core.OpDelete, "B-2", nil)

	claimed, err := repo.Claim(ctx, m.MutationID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != core.StatusProcessing || claimed.Attempts != 1 {
		t.Fatalf("unexpected claimed state %+v", claimed)
	}
	if _, err := repo.Claim(ctx, m.MutationID); !errors.Is(err, ErrNotClaimable) {
		t.Fatalf("second claim: expected ErrNotClaimable, got %v", err)
	}
	if _, err := repo.Claim(ctx, "missing"); !errors.Is(err, ErrMutationNotFound) {
		t.Fatalf("expected ErrMutationNotFound, got %v", err)
	}

	if err := repo.MarkSynced(ctx, m.MutationID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	got, _ := repo.Get(ctx, m.MutationID)
	if got.Status != core.StatusSynced {
		t.Fatalf("expected synced, got %s", got.Status)
	}
}

func TestMarkFailedRetriesUntilMax(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	m, _ := repo.Enqueue(ctx, core.OpUpdate, "B-3", []byte(`{}`))

	for attempt := 1; attempt <= 3; attempt++ {
		if _, err := repo.Claim(ctx, m.MutationID); err != nil {
			t.Fatalf("claim %d: %v", attempt, err)
		}
		status, err := repo.MarkFailed(ctx, m.MutationID, errors.New("upstream 503"), 3, false)
		if err != nil {
			t.Fatalf("mark failed %d: %v", attempt, err)
		}
		want := core.StatusPending
		if attempt == 3 {
			want = core.StatusFailed
		}
		if status != want {
			t.Fatalf("attempt %d: got %s want %s", attempt, status, want)
		}
	}

	got, _ := repo.Get(ctx, m.MutationID)
	if got.LastError != "upstream 503" || got.Attempts != 3 {
		t.Fatalf("unexpected final state %+v", got)
	}
}

func TestMarkFailedPermanent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	m, _ := repo.Enqueue(ctx, core.OpCreate, "", []byte(`{}`))
	repo.Claim(ctx, m.MutationID)

	status, err := repo.MarkFailed(ctx, m.MutationID, errors.New("bad payload"), 5, true)
	if err != nil || status != core.StatusFailed {
		t.Fatalf("expected failed, got %s %v", status, err)
	}
}

func TestPendingAndResetStale(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }

	a, _ := repo.Enqueue(ctx, core.OpCreate, "A", nil)
	b, _ := repo.Enqueue(ctx, core.OpCreate, "B", nil)
	repo.Enqueue(ctx, core.OpCreate, "C", nil)

	pending, err := repo.Pending(ctx, 2)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].MutationID != a.MutationID || pending[1].MutationID != b.MutationID {
		t.Fatalf("expected oldest two pending, got %+v", pending)
	}

	repo.Claim(ctx, a.MutationID)
	repo.now = func() time.Time { return base.Add(10 * time.Minute) }

	n, err := repo.ResetStale(ctx, 5*time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("reset stale: n=%d err=%v", n, err)
	}

	counts, err := repo.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[core.StatusPending] != 3 || counts[core.StatusProcessing] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
