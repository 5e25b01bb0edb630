package backend

import (
	"context"
	"fmt"

	"billview/internal/log"
	"billview/internal/source/google"
	"billview/internal/source/memory"
	"billview/internal/source/rest"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Wrap(nil)
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RESTBackend:
		return f.createRESTBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) restClient(config Config) (*rest.Client, error) {
	cli, err := rest.New(rest.Config{
		BaseURL: config.APIBaseURL,
		Endpoints: rest.Endpoints{
			BillingItems:  config.BillingItemsPath,
			Beneficiaries: config.BeneficiariesPath,
			VikasKhand:    config.VikasKhandPath,
		},
		Timeout:  config.APITimeout,
		RetryMax: config.APIRetryMax,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize REST client: %w", err)
	}
	return cli, nil
}

func (f *DefaultFactory) createRESTBackend(config Config) (*BackendResult, error) {
	cli, err := f.restClient(config)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Initialized REST backend", "base_url", config.APIBaseURL)

	return &BackendResult{
		Records:       cli,
		Beneficiaries: cli,
		Regions:       cli,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	sheet, err := google.New(ctx, google.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsFile: config.GoogleCredentialsFile,
		CredentialsJSON: config.GoogleCredentialsJSON,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	cli, err := f.restClient(config)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{
		Records:       sheet,
		Beneficiaries: cli,
		Regions:       cli,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Records:       store,
		Beneficiaries: store,
		Regions:       store,
	}, nil
}
