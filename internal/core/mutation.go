package core

import (
	"fmt"
	"strings"
)

// MutationOp is a beneficiary registration change forwarded upstream.
type MutationOp string

const (
	OpCreate MutationOp = "create"
	OpUpdate MutationOp = "update"
	OpDelete MutationOp = "delete"
)

func ParseMutationOp(s string) (MutationOp, error) {
	switch op := MutationOp(strings.ToLower(strings.TrimSpace(s))); op {
	case OpCreate, OpUpdate, OpDelete:
		return op, nil
	}
	return "", fmt.Errorf("unknown mutation op %q", s)
}

// MutationStatus tracks an outbox entry through delivery.
type MutationStatus string

const (
	StatusPending    MutationStatus = "pending"
	StatusProcessing MutationStatus = "processing"
	StatusSynced     MutationStatus = "synced"
	StatusFailed     MutationStatus = "failed"
)
