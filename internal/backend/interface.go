package backend

import (
	"context"
	"time"

	"billview/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the adapters selected for the configured backend.
// Beneficiaries and regions always come from the same store as records,
// except for sheets, where they fall back to the REST API.
type BackendResult struct {
	Records       source.RecordSource
	Beneficiaries source.BeneficiaryStore
	Regions       source.RegionLookup
	Cleanup       CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// REST API, used by rest and as the beneficiary store for sheets
	APIBaseURL        string
	BillingItemsPath  string
	BeneficiariesPath string
	VikasKhandPath    string
	APITimeout        time.Duration
	APIRetryMax       int

	// Google Sheets specific
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	RESTBackend   BackendType = "rest"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RESTBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
