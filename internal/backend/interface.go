// Package backend selects and assembles the data backend: in-memory
// for local development, Google Sheets for direct reads, or the SQLite
// mirror with AMQP-driven sync.
package backend

import (
	"context"

	"flotas/internal/amqp"
	"flotas/internal/sheets"
	"flotas/internal/storage"
)

// Backend is what the services need from any data backend: the five
// collections plus ledger appends.
type Backend interface {
	sheets.SnapshotReader
	sheets.LedgerWriter
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result holds the assembled backend. Storage and AMQP are only set
// for the sqlite backend; callers wire them into the import service
// and the sync worker.
type Result struct {
	Backend Backend
	Storage *storage.SQLiteRepository
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds everything backend creation needs.
type Config struct {
	Type Type

	// sqlite
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// sheets
	GoogleSpreadsheetID string

	// memory
	SeedFile string
}

type Type string

const (
	SQLite Type = "sqlite"
	Sheets Type = "sheets"
	Memory Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Sheets, Memory:
		return true
	default:
		return false
	}
}
