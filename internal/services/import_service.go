package services

import (
	"context"
	"fmt"
	"strings"

	"flotas/internal/amqp"
	"flotas/internal/core"
	"flotas/internal/log"
	"flotas/internal/sheets"
	"flotas/internal/storage"
)

// ImportService takes raw ledger rows into the system. With local
// storage configured the rows land in SQLite first and a sync message
// is published per row; without it they go straight to the writer.
type ImportService struct {
	storage  *storage.SQLiteRepository
	writer   sheets.LedgerWriter
	amqp     *amqp.Client
	analysis *AnalysisService
	logger   *log.Logger
}

// ImportResult reports what happened to a batch.
type ImportResult struct {
	Inserted  int      `json:"inserted"`
	Published int      `json:"published"`
	Rejected  []string `json:"rejected,omitempty"`
}

func NewImportService(repo *storage.SQLiteRepository, writer sheets.LedgerWriter, amqpClient *amqp.Client, analysis *AnalysisService, logger *log.Logger) *ImportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ImportService{
		storage:  repo,
		writer:   writer,
		amqp:     amqpClient,
		analysis: analysis,
		logger:   logger.WithComponent(log.ComponentImport),
	}
}

// ImportLedger validates and stores a batch of ledger rows.
func (s *ImportService) ImportLedger(ctx context.Context, rows []core.LedgerRow) (ImportResult, error) {
	var result ImportResult

	valid := make([]core.LedgerRow, 0, len(rows))
	for i, row := range rows {
		if reason := validateLedgerRow(row); reason != "" {
			result.Rejected = append(result.Rejected, fmt.Sprintf("row %d: %s", i, reason))
			continue
		}
		if row.DocumentType == "" {
			row.DocumentType = core.DocPyG
		}
		valid = append(valid, row)
	}

	if len(valid) == 0 {
		if len(result.Rejected) > 0 {
			return result, fmt.Errorf("no valid rows in batch: %s", result.Rejected[0])
		}
		return result, fmt.Errorf("empty batch")
	}

	if s.storage != nil {
		ids, err := s.storage.InsertLedgerRows(ctx, valid)
		if err != nil {
			return result, fmt.Errorf("store ledger rows: %w", err)
		}
		result.Inserted = len(ids)

		if s.amqp == nil {
			s.logger.WarnContext(ctx, "AMQP client not available, rows stay pending for the worker")
		} else {
			for i, id := range ids {
				if err := s.amqp.PublishLedgerSync(ctx, id, valid[i].Year); err != nil {
					// The row is saved locally; the worker's
					// pending pass will pick it up.
					s.logger.ErrorContext(ctx, "Failed to publish sync message",
						"id", id, log.FieldError, err)
					continue
				}
				result.Published++
			}
		}
	} else {
		if s.writer == nil {
			return result, fmt.Errorf("no storage or writer configured")
		}
		if err := s.writer.AppendLedger(ctx, valid); err != nil {
			return result, fmt.Errorf("append ledger rows: %w", err)
		}
		result.Inserted = len(valid)
	}

	if s.analysis != nil {
		s.analysis.Invalidate(ctx)
	}

	s.logger.InfoContext(ctx, "Ledger batch imported",
		log.FieldRows, result.Inserted,
		"published", result.Published,
		"rejected", len(result.Rejected),
		log.FieldOperation, log.OpImport)

	return result, nil
}

// Close releases storage and AMQP connections.
func (s *ImportService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqp != nil {
		if err := s.amqp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close import service: %v", errs)
	}
	return nil
}

func validateLedgerRow(row core.LedgerRow) string {
	if row.Year < 1900 || row.Year > 2999 {
		return fmt.Sprintf("year %d out of range", row.Year)
	}
	if row.Month < 0 || row.Month > 12 {
		return fmt.Sprintf("month %d out of range", row.Month)
	}
	if strings.TrimSpace(row.Concept) == "" {
		return "empty concept"
	}
	if row.DocumentType != "" && row.DocumentType != core.DocBalance && row.DocumentType != core.DocPyG {
		return fmt.Sprintf("unknown document type %q", row.DocumentType)
	}
	return ""
}
