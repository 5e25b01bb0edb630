// Package source defines where billing records and beneficiaries come
// from and owns the cached record snapshot served to reports.
package source

import (
	"context"
	"errors"

	"billview/internal/core"
)

// ErrNotFound is returned when a lookup has no match upstream.
var ErrNotFound = errors.New("not found")

// Ports for upstream adapters.
type (
	// RecordSource returns the full list of billing records.
	RecordSource interface {
		FetchRecords(ctx context.Context) ([]core.Record, error)
	}

	BeneficiaryReader interface {
		ListBeneficiaries(ctx context.Context) ([]core.Beneficiary, error)
	}

	// BeneficiaryWriter applies registrations upstream. idempotencyKey lets
	// the upstream drop replays of the same mutation.
	BeneficiaryWriter interface {
		CreateBeneficiary(ctx context.Context, b core.Beneficiary, idempotencyKey string) error
		UpdateBeneficiary(ctx context.Context, b core.Beneficiary, idempotencyKey string) error
		DeleteBeneficiary(ctx context.Context, id string, idempotencyKey string) error
	}

	BeneficiaryStore interface {
		BeneficiaryReader
		BeneficiaryWriter
	}

	// RegionLookup resolves the administrative region of a center.
	RegionLookup interface {
		LookupRegion(ctx context.Context, centerName string) (core.Region, error)
	}
)
