package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hostel/internal/amqp"
	"hostel/internal/cache"
	applog "hostel/internal/log"
	"hostel/internal/sheets"
	"hostel/internal/sheets/cached"
	gsheet "hostel/internal/sheets/google"
	"hostel/internal/sheets/memory"
	"hostel/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend builds the configured store, wraps it in the read cache and
// connects the change publisher when AMQP is configured.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		inner   sheets.Store
		closers []func() error
		err     error
	)
	switch config.Type {
	case SQLiteBackend:
		inner, closers, err = f.createSQLiteStore(config)
	case SheetsBackend:
		inner, err = f.createSheetsStore(ctx, config)
	case MemoryBackend:
		inner, err = f.createMemoryStore(config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	store := cached.New(inner, config.CacheTTL, f.logger)
	manager := cache.NewManager(f.logger)
	manager.Register(store.Cleaner())
	if config.CacheTTL > 0 && config.CacheCleanupInterval > 0 {
		manager.Start(config.CacheCleanupInterval)
	}
	closers = append([]func() error{func() error { manager.Stop(); return nil }}, closers...)

	result := &Result{Store: store}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without mirror publishing", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = client
			closers = append(closers, client.Close)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		for _, c := range closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized record store",
		"backend", config.Type.String(),
		"cache_ttl", config.CacheTTL.String(),
		"amqp_enabled", result.Publisher != nil)

	return result, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (sheets.Store, []func() error, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath, f.logger.With(applog.FieldComponent, applog.ComponentStorage))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return store, []func() error{store.Close}, nil
}

func (f *DefaultFactory) createSheetsStore(ctx context.Context, config Config) (sheets.Store, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:     config.GoogleSpreadsheetID,
		ReservationsSheet: config.ReservationsSheet,
		ExpensesSheet:     config.ExpensesSheet,
		CredentialsJSON:   config.GoogleServiceAccountJSON,
		CredentialsFile:   config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) (sheets.Store, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return store, nil
}
