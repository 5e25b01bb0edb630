// Package worker forwards queued beneficiary mutations to the upstream API.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"billview/internal/amqp"
	"billview/internal/core"
	"billview/internal/log"
	"billview/internal/services"
	"billview/internal/source"
	"billview/internal/storage"
)

// Outbox is the part of the mutation store the worker drives.
type Outbox interface {
	Claim(ctx context.Context, mutationID string) (storage.Mutation, error)
	MarkSynced(ctx context.Context, mutationID string) error
	MarkFailed(ctx context.Context, mutationID string, cause error, maxAttempts int, permanent bool) (core.MutationStatus, error)
	Pending(ctx context.Context, limit int) ([]storage.Mutation, error)
	ResetStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type Config struct {
	BatchSize  int
	MaxRetries int
	// StaleAfter is how long a mutation may stay in processing before a
	// sweep assumes its worker died.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{BatchSize: 20, MaxRetries: 5, StaleAfter: 5 * time.Minute}
}

// SyncWorker handles mutation messages and periodic outbox sweeps.
type SyncWorker struct {
	outbox   Outbox
	upstream source.BeneficiaryWriter
	config   Config
	logger   *log.Logger
}

func NewSyncWorker(outbox Outbox, upstream source.BeneficiaryWriter, config Config, logger *log.Logger) *SyncWorker {
	def := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = def.StaleAfter
	}
	if logger == nil {
		logger = log.Wrap(nil)
	}
	return &SyncWorker{
		outbox:   outbox,
		upstream: upstream,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Outcome is the result of one delivery attempt.
type Outcome string

const (
	OutcomeSynced   Outcome = "synced"
	OutcomeRetrying Outcome = "retrying"
	OutcomeFailed   Outcome = "failed"
	OutcomeSkipped  Outcome = "skipped"
)

// Handle processes one AMQP notification. Delivery failures are recorded in
// the outbox, so only storage errors are returned for requeueing.
func (w *SyncWorker) Handle(ctx context.Context, msg *amqp.MutationMessage) error {
	_, err := w.process(ctx, msg.MutationID)
	return err
}

func (w *SyncWorker) process(ctx context.Context, mutationID string) (Outcome, error) {
	m, err := w.outbox.Claim(ctx, mutationID)
	switch {
	case errors.Is(err, storage.ErrNotClaimable):
		w.logger.DebugContext(ctx, "Mutation already handled", log.FieldMutationID, mutationID)
		return OutcomeSkipped, nil
	case errors.Is(err, storage.ErrMutationNotFound):
		w.logger.WarnContext(ctx, "Mutation not in outbox", log.FieldMutationID, mutationID)
		return OutcomeSkipped, nil
	case err != nil:
		return "", fmt.Errorf("claim mutation %s: %w", mutationID, err)
	}

	fields := log.NewFields().WithMutation(m.MutationID, string(m.Op), m.BeneficiaryID)
	fields[log.FieldAttempts] = m.Attempts

	b, err := decodePayload(m)
	if err != nil {
		return w.fail(ctx, m, err, true)
	}

	if err := services.Apply(ctx, w.upstream, m.Op, b, m.MutationID); err != nil {
		return w.fail(ctx, m, err, permanent(err))
	}

	if err := w.outbox.MarkSynced(ctx, m.MutationID); err != nil {
		return "", fmt.Errorf("mark mutation %s synced: %w", m.MutationID, err)
	}
	w.logger.InfoContext(ctx, "Mutation forwarded upstream", fields.ToSlice()...)
	return OutcomeSynced, nil
}

func (w *SyncWorker) fail(ctx context.Context, m storage.Mutation, cause error, perm bool) (Outcome, error) {
	status, err := w.outbox.MarkFailed(ctx, m.MutationID, cause, w.config.MaxRetries, perm)
	if err != nil {
		return "", fmt.Errorf("record failure of mutation %s: %w", m.MutationID, err)
	}
	if status == core.StatusFailed {
		w.logger.LogError(ctx, "Mutation abandoned", log.OpSync, cause,
			log.NewFields().WithMutation(m.MutationID, string(m.Op), m.BeneficiaryID))
		return OutcomeFailed, nil
	}
	return OutcomeRetrying, nil
}

func decodePayload(m storage.Mutation) (core.Beneficiary, error) {
	var b core.Beneficiary
	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &b); err != nil {
			return core.Beneficiary{}, fmt.Errorf("decode payload: %w", err)
		}
	}
	if b.ID == "" {
		b.ID = m.BeneficiaryID
	}
	if m.Op != core.OpCreate && b.ID == "" {
		return core.Beneficiary{}, core.ErrMissingBeneficiaryID
	}
	return b, nil
}

// permanent reports whether retrying err can never succeed: the upstream
// rejected the request itself.
func permanent(err error) bool {
	var fe *core.FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Kind {
	case core.KindData:
		return true
	case core.KindServer:
		return fe.Status >= 400 && fe.Status < 500 &&
			fe.Status != http.StatusRequestTimeout && fe.Status != http.StatusTooManyRequests
	}
	return false
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Reset    int
	Synced   int
	Retrying int
	Failed   int
	Skipped  int
}

// SweepPending returns stale processing mutations to pending and delivers
// one batch of pending mutations.
func (w *SyncWorker) SweepPending(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	n, err := w.outbox.ResetStale(ctx, w.config.StaleAfter)
	if err != nil {
		return res, err
	}
	res.Reset = n

	pending, err := w.outbox.Pending(ctx, w.config.BatchSize)
	if err != nil {
		return res, err
	}
	for _, m := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		outcome, err := w.process(ctx, m.MutationID)
		if err != nil {
			return res, err
		}
		switch outcome {
		case OutcomeSynced:
			res.Synced++
		case OutcomeRetrying:
			res.Retrying++
		case OutcomeFailed:
			res.Failed++
		default:
			res.Skipped++
		}
	}
	if len(pending) > 0 || res.Reset > 0 {
		w.logger.InfoContext(ctx, "Outbox sweep completed",
			log.FieldOperation, log.OpSweep,
			"reset", res.Reset,
			"synced", res.Synced,
			"retrying", res.Retrying,
			"failed", res.Failed)
	}
	return res, nil
}

// Schedule registers SweepPending on a cron spec. Overlapping runs are
// skipped. The caller starts and stops the returned scheduler.
func (w *SyncWorker) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if _, err := w.SweepPending(ctx); err != nil && ctx.Err() == nil {
			w.logger.LogError(ctx, "Outbox sweep failed", log.OpSweep, err, nil)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return c, nil
}
