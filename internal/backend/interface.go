package backend

import (
	"context"
	"time"

	"smartfinance/internal/cache"
	"smartfinance/internal/kv"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is a ready-to-use store plus what the caller must manage.
type Result struct {
	Store kv.Store
	// Cleanup is nil when nothing needs releasing.
	Cleanup CleanupFunc
	// Cache is set when the backend keeps a read cache worth cleaning.
	Cache cache.Cleaner
	// Ping checks connectivity for readiness probes; nil means always ready.
	Ping func(ctx context.Context) error
	// UpdatedAt reports when a key was last saved; nil when the backend
	// does not track it.
	UpdatedAt func(ctx context.Context, key string) (time.Time, error)
}

// Close runs Cleanup when present.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates stores based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite
	SQLiteDBPath string

	// Memory
	SeedFile string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	CacheTTL                 time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
