// Package storage persists the beneficiary mutation outbox in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"billview/internal/core"
	"billview/internal/log"

	_ "modernc.org/sqlite"
)

var (
	// ErrMutationNotFound is returned for unknown mutation IDs.
	ErrMutationNotFound = errors.New("mutation not found")
	// ErrNotClaimable means the mutation is not pending: another worker
	// holds it or it already finished.
	ErrNotClaimable = errors.New("mutation is not pending")
)

// Mutation is one queued beneficiary change.
type Mutation struct {
	ID            int64               `json:"id"`
	MutationID    string              `json:"mutation_id"`
	Op            core.MutationOp     `json:"op"`
	BeneficiaryID string              `json:"beneficiary_id,omitempty"`
	Payload       []byte              `json:"-"`
	Status        core.MutationStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	LastError     string              `json:"last_error,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func fromRow(r mutationRow) Mutation {
	return Mutation{
		ID:            r.ID,
		MutationID:    r.MutationID,
		Op:            core.MutationOp(r.Op),
		BeneficiaryID: r.BeneficiaryID,
		Payload:       r.Payload,
		Status:        core.MutationStatus(r.Status),
		Attempts:      int(r.Attempts),
		LastError:     r.LastError,
		CreatedAt:     time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:     time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

// SQLiteRepository is the outbox store.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Wrap(nil)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: NewQueries(db),
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Enqueue stores a pending mutation under a fresh mutation ID.
func (r *SQLiteRepository) Enqueue(ctx context.Context, op core.MutationOp, beneficiaryID string, payload []byte) (Mutation, error) {
	row, err := r.queries.InsertMutation(ctx, insertMutationParams{
		MutationID:    uuid.NewString(),
		Op:            string(op),
		BeneficiaryID: beneficiaryID,
		Payload:       payload,
		Now:           r.now().UnixMilli(),
	})
	if err != nil {
		return Mutation{}, fmt.Errorf("insert mutation: %w", err)
	}
	m := fromRow(row)
	r.logger.InfoContext(ctx, "Mutation queued",
		log.NewFields().WithMutation(m.MutationID, string(m.Op), m.BeneficiaryID).ToSlice()...)
	return m, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, mutationID string) (Mutation, error) {
	row, err := r.queries.GetMutation(ctx, mutationID)
	if errors.Is(err, sql.ErrNoRows) {
		return Mutation{}, ErrMutationNotFound
	}
	if err != nil {
		return Mutation{}, fmt.Errorf("get mutation: %w", err)
	}
	return fromRow(row), nil
}

// Claim moves a pending mutation to processing and counts the attempt.
func (r *SQLiteRepository) Claim(ctx context.Context, mutationID string) (Mutation, error) {
	n, err := r.queries.ClaimMutation(ctx, mutationID, r.now().UnixMilli())
	if err != nil {
		return Mutation{}, fmt.Errorf("claim mutation: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, mutationID); err != nil {
			return Mutation{}, err
		}
		return Mutation{}, ErrNotClaimable
	}
	return r.Get(ctx, mutationID)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, mutationID string) error {
	n, err := r.queries.MarkSynced(ctx, mutationID, r.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("mark mutation synced: %w", err)
	}
	if n == 0 {
		return ErrMutationNotFound
	}
	r.logger.InfoContext(ctx, "Mutation synced", log.FieldMutationID, mutationID)
	return nil
}

// MarkFailed records a delivery failure. The mutation returns to pending
// until it has been attempted maxAttempts times, or immediately becomes
// failed when permanent is set.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, mutationID string, cause error, maxAttempts int, permanent bool) (core.MutationStatus, error) {
	msg := ""
	if cause != nil {
		msg = truncate(cause.Error(), 500)
	}
	n, err := r.queries.MarkFailed(ctx, markFailedParams{
		MutationID:  mutationID,
		Permanent:   permanent,
		MaxAttempts: int64(maxAttempts),
		LastError:   msg,
		Now:         r.now().UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("mark mutation failed: %w", err)
	}
	if n == 0 {
		return "", ErrMutationNotFound
	}
	m, err := r.Get(ctx, mutationID)
	if err != nil {
		return "", err
	}
	r.logger.WarnContext(ctx, "Mutation delivery failed",
		log.FieldMutationID, mutationID,
		log.FieldAttempts, m.Attempts,
		"status", m.Status,
		log.FieldError, msg)
	return m.Status, nil
}

// Pending lists up to limit pending mutations, oldest first.
func (r *SQLiteRepository) Pending(ctx context.Context, limit int) ([]Mutation, error) {
	rows, err := r.queries.ListByStatus(ctx, string(core.StatusPending), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending mutations: %w", err)
	}
	out := make([]Mutation, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row)
	}
	return out, nil
}

// ResetStale returns mutations stuck in processing for longer than
// olderThan to pending.
func (r *SQLiteRepository) ResetStale(ctx context.Context, olderThan time.Duration) (int, error) {
	now := r.now()
	n, err := r.queries.ResetStale(ctx, now.UnixMilli(), now.Add(-olderThan).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("reset stale mutations: %w", err)
	}
	if n > 0 {
		r.logger.WarnContext(ctx, "Stale mutations returned to pending", "count", n)
	}
	return int(n), nil
}

// Counts returns the number of mutations per status.
func (r *SQLiteRepository) Counts(ctx context.Context) (map[core.MutationStatus]int, error) {
	raw, err := r.queries.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count mutations: %w", err)
	}
	out := make(map[core.MutationStatus]int, len(raw))
	for k, v := range raw {
		out[core.MutationStatus(k)] = int(v)
	}
	return out, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
