package backend

import (
	"context"
	"time"

	"hostel/internal/services"
	"hostel/internal/sheets"
)

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// Result is a ready record store plus the optional change publisher.
type Result struct {
	// Store is the cached record store every service reads and writes.
	Store sheets.Store
	// Publisher is nil when AMQP is not configured.
	Publisher services.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory backend seed directory
	DataDirectory string

	// SQLite configuration
	SQLiteDBPath string

	// Google Sheets configuration
	GoogleSpreadsheetID      string
	ReservationsSheet        string
	ExpensesSheet            string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP publishing, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Read cache
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration
}

// BackendType represents the type of record store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
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
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
