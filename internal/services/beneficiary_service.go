// Package services coordinates beneficiary mutations between the HTTP
// layer, the outbox and the upstream API.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"billview/internal/amqp"
	"billview/internal/core"
	"billview/internal/log"
	"billview/internal/source"
	"billview/internal/storage"
)

var (
	// ErrValidation wraps every input error rejected before queueing.
	ErrValidation = errors.New("invalid beneficiary")
	// ErrOutboxDisabled is returned for mutation lookups when no outbox is
	// configured.
	ErrOutboxDisabled = errors.New("mutation outbox is not configured")
)

// Outbox stores mutations until the worker forwards them.
type Outbox interface {
	Enqueue(ctx context.Context, op core.MutationOp, beneficiaryID string, payload []byte) (storage.Mutation, error)
	Get(ctx context.Context, mutationID string) (storage.Mutation, error)
}

// Publisher announces queued mutations to the worker.
type Publisher interface {
	PublishMutation(ctx context.Context, msg *amqp.MutationMessage) error
}

// SubmitResult describes what happened to a mutation. Queued results are
// delivered later by the worker; others were applied upstream already.
type SubmitResult struct {
	Queued      bool                `json:"queued"`
	MutationID  string              `json:"mutation_id"`
	Op          core.MutationOp     `json:"op"`
	Status      core.MutationStatus `json:"status"`
	Beneficiary *core.Beneficiary   `json:"beneficiary,omitempty"`
}

// BeneficiaryService validates registrations and routes them either
// through the outbox or straight to the upstream API.
type BeneficiaryService struct {
	store     source.BeneficiaryStore
	outbox    Outbox
	publisher Publisher
	logger    *log.Logger
}

// NewBeneficiaryService wires the service. outbox and publisher may be nil:
// without an outbox mutations are written upstream synchronously, without
// a publisher queued mutations wait for the scheduled sweep.
func NewBeneficiaryService(store source.BeneficiaryStore, outbox Outbox, publisher Publisher, logger *log.Logger) *BeneficiaryService {
	if logger == nil {
		logger = log.Wrap(nil)
	}
	return &BeneficiaryService{
		store:     store,
		outbox:    outbox,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentService),
	}
}

func (s *BeneficiaryService) List(ctx context.Context) ([]core.Beneficiary, error) {
	return s.store.ListBeneficiaries(ctx)
}

// Submit validates the change and hands it to the outbox or the upstream.
func (s *BeneficiaryService) Submit(ctx context.Context, op core.MutationOp, b core.Beneficiary) (SubmitResult, error) {
	b.ID = strings.TrimSpace(b.ID)
	if err := validate(op, b); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if s.outbox == nil {
		return s.forward(ctx, op, b)
	}

	payload, err := json.Marshal(b)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode beneficiary: %w", err)
	}
	m, err := s.outbox.Enqueue(ctx, op, b.ID, payload)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("queue mutation: %w", err)
	}

	s.publish(ctx, m)

	return SubmitResult{
		Queued:      true,
		MutationID:  m.MutationID,
		Op:          op,
		Status:      m.Status,
		Beneficiary: &b,
	}, nil
}

// publish failures leave the mutation pending for the sweep.
func (s *BeneficiaryService) publish(ctx context.Context, m storage.Mutation) {
	fields := log.NewFields().WithMutation(m.MutationID, string(m.Op), m.BeneficiaryID)
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, mutation left for sweep", fields.ToSlice()...)
		return
	}
	if err := s.publisher.PublishMutation(ctx, amqp.NewMutationMessage(m.ID, m.MutationID, m.Op)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish mutation, left for sweep", fields.WithError(err).ToSlice()...)
	}
}

func (s *BeneficiaryService) forward(ctx context.Context, op core.MutationOp, b core.Beneficiary) (SubmitResult, error) {
	key := uuid.NewString()
	if err := Apply(ctx, s.store, op, b, key); err != nil {
		return SubmitResult{}, err
	}
	s.logger.InfoContext(ctx, "Beneficiary mutation applied upstream",
		log.NewFields().WithMutation(key, string(op), b.ID).ToSlice()...)
	res := SubmitResult{MutationID: key, Op: op, Status: core.StatusSynced}
	if op != core.OpDelete {
		res.Beneficiary = &b
	}
	return res, nil
}

// Mutation returns the outbox entry for mutationID.
func (s *BeneficiaryService) Mutation(ctx context.Context, mutationID string) (storage.Mutation, error) {
	if s.outbox == nil {
		return storage.Mutation{}, ErrOutboxDisabled
	}
	return s.outbox.Get(ctx, mutationID)
}

// Apply performs one mutation against w with the given idempotency key.
func Apply(ctx context.Context, w source.BeneficiaryWriter, op core.MutationOp, b core.Beneficiary, key string) error {
	switch op {
	case core.OpCreate:
		return w.CreateBeneficiary(ctx, b, key)
	case core.OpUpdate:
		return w.UpdateBeneficiary(ctx, b, key)
	case core.OpDelete:
		return w.DeleteBeneficiary(ctx, b.ID, key)
	}
	return fmt.Errorf("unknown mutation op %q", op)
}

func validate(op core.MutationOp, b core.Beneficiary) error {
	switch op {
	case core.OpCreate:
		return b.Validate()
	case core.OpUpdate:
		if b.ID == "" {
			return core.ErrMissingBeneficiaryID
		}
		return b.Validate()
	case core.OpDelete:
		if b.ID == "" {
			return core.ErrMissingBeneficiaryID
		}
		return nil
	}
	return fmt.Errorf("unknown mutation op %q", op)
}
