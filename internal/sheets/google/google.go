// Package google reads the fleet collections from a Google
// spreadsheet. Each collection lives on its own sheet; parsing is
// header-driven so column order does not matter.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"flotas/internal/core"
	ports "flotas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	ledgerSheet          string
	classificationsSheet string
	vehiclesSheet        string
	incomeSheet          string
	amortizationsSheet   string
}

// Ensure interface conformance
var (
	_ ports.SnapshotReader = (*Client)(nil)
	_ ports.LedgerWriter   = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Sheet names default to
// FinancialData, CostClassifications, Vehicles, MonthlyIncome and
// AmortizationAccounts.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:                  svc,
		spreadsheetID:        spreadsheetID,
		ledgerSheet:          envOr("SHEET_FINANCIAL_DATA", "FinancialData"),
		classificationsSheet: envOr("SHEET_CLASSIFICATIONS", "CostClassifications"),
		vehiclesSheet:        envOr("SHEET_VEHICLES", "Vehicles"),
		incomeSheet:          envOr("SHEET_MONTHLY_INCOME", "MonthlyIncome"),
		amortizationsSheet:   envOr("SHEET_AMORTIZATIONS", "AmortizationAccounts"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_JSON"))
	credentialsFile := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_FILE"))
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case credentialsJSON != "":
		creds = []byte(credentialsJSON)
	case credentialsFile != "":
		var err error
		creds, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(creds),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) readSheet(ctx context.Context, sheetName string) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// ListLedger reads the raw profit-and-loss and balance rows.
func (c *Client) ListLedger(ctx context.Context) ([]core.LedgerRow, error) {
	values, err := c.readSheet(ctx, c.ledgerSheet)
	if err != nil {
		return nil, err
	}
	return parseLedger(values)
}

// ListClassifications reads the account classification table.
func (c *Client) ListClassifications(ctx context.Context) ([]core.Classification, error) {
	values, err := c.readSheet(ctx, c.classificationsSheet)
	if err != nil {
		return nil, err
	}
	return parseClassifications(values)
}

// ListVehicles reads the fleet register.
func (c *Client) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	values, err := c.readSheet(ctx, c.vehiclesSheet)
	if err != nil {
		return nil, err
	}
	return parseVehicles(values)
}

// ListIncome reads the monthly income records grouped by year.
func (c *Client) ListIncome(ctx context.Context) ([]core.YearlyIncome, error) {
	values, err := c.readSheet(ctx, c.incomeSheet)
	if err != nil {
		return nil, err
	}
	return parseIncome(values)
}

// ListAmortizations reads the amortization accounts.
func (c *Client) ListAmortizations(ctx context.Context) ([]core.AmortizationAccount, error) {
	values, err := c.readSheet(ctx, c.amortizationsSheet)
	if err != nil {
		return nil, err
	}
	return parseAmortizations(values)
}

// AppendLedger writes imported rows after the current last row of the
// ledger sheet, in the same column layout parseLedger expects.
func (c *Client) AppendLedger(ctx context.Context, rows []core.LedgerRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A:A", c.ledgerSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get sheet dimensions for %s: %w", c.ledgerSheet, err)
	}
	nextRow := len(resp.Values) + 1

	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, []any{row.Year, row.Month, string(row.DocumentType), row.Concept, row.Amount})
	}

	dataRange := fmt.Sprintf("%s!A%d:E%d", c.ledgerSheet, nextRow, nextRow+len(rows)-1)
	vr := &gsheet.ValueRange{Values: values}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append ledger rows to sheet %s: %w", c.ledgerSheet, err)
	}
	return nil
}
