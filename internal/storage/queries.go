package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the outbox SQL statements.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// mutationRow mirrors one beneficiary_mutations row.
type mutationRow struct {
	ID            int64
	MutationID    string
	Op            string
	BeneficiaryID string
	Payload       []byte
	Status        string
	Attempts      int64
	LastError     string
	CreatedAt     int64
	UpdatedAt     int64
}

const mutationColumns = `id, mutation_id, op, beneficiary_id, payload, status, attempts, last_error, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMutation(s scanner) (mutationRow, error) {
	var r mutationRow
	err := s.Scan(
		&r.ID,
		&r.MutationID,
		&r.Op,
		&r.BeneficiaryID,
		&r.Payload,
		&r.Status,
		&r.Attempts,
		&r.LastError,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

const insertMutation = `
INSERT INTO beneficiary_mutations (mutation_id, op, beneficiary_id, payload, status, attempts, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, 'pending', 0, '', ?, ?)
RETURNING ` + mutationColumns

type insertMutationParams struct {
	MutationID    string
	Op            string
	BeneficiaryID string
	Payload       []byte
	Now           int64
}

func (q *Queries) InsertMutation(ctx context.Context, arg insertMutationParams) (mutationRow, error) {
	row := q.db.QueryRowContext(ctx, insertMutation,
		arg.MutationID, arg.Op, arg.BeneficiaryID, arg.Payload, arg.Now, arg.Now)
	return scanMutation(row)
}

const getMutation = `SELECT ` + mutationColumns + ` FROM beneficiary_mutations WHERE mutation_id = ?`

func (q *Queries) GetMutation(ctx context.Context, mutationID string) (mutationRow, error) {
	return scanMutation(q.db.QueryRowContext(ctx, getMutation, mutationID))
}

const claimMutation = `
UPDATE beneficiary_mutations
SET status = 'processing', attempts = attempts + 1, updated_at = ?
WHERE mutation_id = ? AND status = 'pending'`

func (q *Queries) ClaimMutation(ctx context.Context, mutationID string, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, claimMutation, now, mutationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markSynced = `
UPDATE beneficiary_mutations
SET status = 'synced', last_error = '', updated_at = ?
WHERE mutation_id = ?`

func (q *Queries) MarkSynced(ctx context.Context, mutationID string, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSynced, now, mutationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markFailed = `
UPDATE beneficiary_mutations
SET status = CASE WHEN ? = 1 OR attempts >= ? THEN 'failed' ELSE 'pending' END,
    last_error = ?,
    updated_at = ?
WHERE mutation_id = ?`

type markFailedParams struct {
	MutationID  string
	Permanent   bool
	MaxAttempts int64
	LastError   string
	Now         int64
}

func (q *Queries) MarkFailed(ctx context.Context, arg markFailedParams) (int64, error) {
	permanent := 0
	if arg.Permanent {
		permanent = 1
	}
	res, err := q.db.ExecContext(ctx, markFailed,
		permanent, arg.MaxAttempts, arg.LastError, arg.Now, arg.MutationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listByStatus = `SELECT ` + mutationColumns + `
FROM beneficiary_mutations
WHERE status = ?
ORDER BY id
LIMIT ?`

func (q *Queries) ListByStatus(ctx context.Context, status string, limit int64) ([]mutationRow, error) {
	rows, err := q.db.QueryContext(ctx, listByStatus, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []mutationRow
	for rows.Next() {
		r, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const resetStale = `
UPDATE beneficiary_mutations
SET status = 'pending', updated_at = ?
WHERE status = 'processing' AND updated_at < ?`

func (q *Queries) ResetStale(ctx context.Context, now, cutoff int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, resetStale, now, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countByStatus = `SELECT status, COUNT(*) FROM beneficiary_mutations GROUP BY status`

func (q *Queries) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, countByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
