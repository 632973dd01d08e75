// Package storage is the local SQLite mirror of the spreadsheet
// collections. Imported ledger rows land here first and are pushed to
// the sheet asynchronously by the sync worker.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"flotas/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertLedgerRows stores imported rows with the synced flag cleared
// and returns the new row IDs.
func (r *SQLiteRepository) InsertLedgerRows(ctx context.Context, rows []core.LedgerRow) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ledger_rows (year, month, document, concept, amount) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, row.Year, row.Month, string(row.DocumentType), row.Concept, fmt.Sprint(row.Amount))
		if err != nil {
			return nil, fmt.Errorf("insert ledger row: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Ledger rows saved to SQLite", "rows", len(ids))
	return ids, nil
}

// ListLedger implements sheets.LedgerReader.
func (r *SQLiteRepository) ListLedger(ctx context.Context) ([]core.LedgerRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT year, month, document, concept, amount FROM ledger_rows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerRow
	for rows.Next() {
		var row core.LedgerRow
		var document, amount string
		if err := rows.Scan(&row.Year, &row.Month, &document, &row.Concept, &amount); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		row.DocumentType = core.DocumentType(document)
		row.Amount = amount
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListClassifications implements sheets.ClassificationReader.
func (r *SQLiteRepository) ListClassifications(ctx context.Context) ([]core.Classification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cost_type, cost_center, nature, distribution, basis FROM classifications ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query classifications: %w", err)
	}
	defer rows.Close()

	var out []core.Classification
	for rows.Next() {
		var c core.Classification
		var center, nature, basis string
		if err := rows.Scan(&c.CostType, &center, &nature, &c.Distribution, &basis); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		c.CostCenter = core.CostCenter(center)
		c.Nature = core.Nature(nature)
		c.Basis = core.DistributionBasis(basis)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListVehicles implements sheets.FleetReader.
func (r *SQLiteRepository) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT license_plate, vehicle_id, assigned_number, acquisition_date, sale_date,
		        acquisition_value, sale_value, annual_amortization
		 FROM vehicles ORDER BY license_plate`)
	if err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	var out []core.Vehicle
	index := map[string]int{}
	for rows.Next() {
		var v core.Vehicle
		if err := rows.Scan(&v.LicensePlate, &v.ID, &v.AssignedNumber, &v.AcquisitionDate, &v.SaleDate,
			&v.AcquisitionValue, &v.SaleValue, &v.AnnualAmortization); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		index[v.LicensePlate] = len(out)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kmRows, err := r.db.QueryContext(ctx, `SELECT license_plate, year, kms FROM vehicle_kms`)
	if err != nil {
		return nil, fmt.Errorf("query vehicle kms: %w", err)
	}
	defer kmRows.Close()
	for kmRows.Next() {
		var plate string
		var year int
		var kms float64
		if err := kmRows.Scan(&plate, &year, &kms); err != nil {
			return nil, fmt.Errorf("scan vehicle kms: %w", err)
		}
		i, ok := index[plate]
		if !ok {
			continue
		}
		if out[i].AnnualKms == nil {
			out[i].AnnualKms = map[int]float64{}
		}
		out[i].AnnualKms[year] = kms
	}
	return out, kmRows.Err()
}

// ListIncome implements sheets.IncomeReader.
func (r *SQLiteRepository) ListIncome(ctx context.Context) ([]core.YearlyIncome, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT record_id, year, vehicle_id, license_plate, source, month, amount
		 FROM income_records ORDER BY year, id`)
	if err != nil {
		return nil, fmt.Errorf("query income records: %w", err)
	}
	defer rows.Close()

	byYear := map[int]*core.YearlyIncome{}
	recIndex := map[string]*core.VehicleIncome{}
	var order []int
	for rows.Next() {
		var recordID, vehicleID, plate, source string
		var year, month int
		var amount float64
		if err := rows.Scan(&recordID, &year, &vehicleID, &plate, &source, &month, &amount); err != nil {
			return nil, fmt.Errorf("scan income record: %w", err)
		}
		yearly, exists := byYear[year]
		if !exists {
			yearly = &core.YearlyIncome{Year: year, Subcontracted: core.MonthlyAmounts{}}
			byYear[year] = yearly
			order = append(order, year)
		}
		if source == "subcontracted" {
			yearly.Subcontracted[month] += amount
			continue
		}
		key := fmt.Sprintf("%d|%s|%s|%s", year, recordID, vehicleID, plate)
		rec, ok := recIndex[key]
		if !ok {
			yearly.OwnFleet = append(yearly.OwnFleet, core.VehicleIncome{
				ID: recordID, VehicleID: vehicleID, LicensePlate: plate, Income: core.MonthlyAmounts{},
			})
			rec = &yearly.OwnFleet[len(yearly.OwnFleet)-1]
			recIndex[key] = rec
		}
		rec.Income[month] += amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.YearlyIncome, 0, len(order))
	for _, year := range order {
		out = append(out, *byYear[year])
	}
	return out, nil
}

// ListAmortizations implements sheets.AmortizationReader.
func (r *SQLiteRepository) ListAmortizations(ctx context.Context) ([]core.AmortizationAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT account_id, name, fleet_related, annual_amount FROM amortization_accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query amortization accounts: %w", err)
	}
	defer rows.Close()

	var out []core.AmortizationAccount
	index := map[string]int{}
	for rows.Next() {
		var acc core.AmortizationAccount
		var fleetRelated int
		if err := rows.Scan(&acc.ID, &acc.Name, &fleetRelated, &acc.AnnualAmount); err != nil {
			return nil, fmt.Errorf("scan amortization account: %w", err)
		}
		acc.IsFleetRelated = fleetRelated != 0
		index[acc.Name] = len(out)
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	valRows, err := r.db.QueryContext(ctx, `SELECT account_name, year, amount FROM amortization_values`)
	if err != nil {
		return nil, fmt.Errorf("query amortization values: %w", err)
	}
	defer valRows.Close()
	for valRows.Next() {
		var name string
		var year int
		var amount float64
		if err := valRows.Scan(&name, &year, &amount); err != nil {
			return nil, fmt.Errorf("scan amortization value: %w", err)
		}
		i, ok := index[name]
		if !ok {
			continue
		}
		if out[i].AnnualValues == nil {
			out[i].AnnualValues = map[int]float64{}
		}
		out[i].AnnualValues[year] = amount
	}
	return out, valRows.Err()
}

// PendingSyncRow is the minimal payload the sync worker needs.
type PendingSyncRow struct {
	ID        int64
	Row       core.LedgerRow
	Synced    bool
	CreatedAt time.Time
}

// GetPendingSyncRows returns ledger rows not yet pushed to the sheet,
// oldest first.
func (r *SQLiteRepository) GetPendingSyncRows(ctx context.Context, limit int) ([]PendingSyncRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, year, month, document, concept, amount, created_at
		 FROM ledger_rows WHERE synced = 0 AND sync_error = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending sync rows: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncRow
	for rows.Next() {
		var p PendingSyncRow
		var document, amount string
		if err := rows.Scan(&p.ID, &p.Row.Year, &p.Row.Month, &document, &p.Row.Concept, &amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync row: %w", err)
		}
		p.Row.DocumentType = core.DocumentType(document)
		p.Row.Amount = amount
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetLedgerRow retrieves a single ledger row by ID.
func (r *SQLiteRepository) GetLedgerRow(ctx context.Context, id int64) (PendingSyncRow, error) {
	var p PendingSyncRow
	var document, amount string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, year, month, document, concept, amount, synced, created_at FROM ledger_rows WHERE id = ?`, id).
		Scan(&p.ID, &p.Row.Year, &p.Row.Month, &document, &p.Row.Concept, &amount, &p.Synced, &p.CreatedAt)
	if err != nil {
		return PendingSyncRow{}, fmt.Errorf("get ledger row %d: %w", id, err)
	}
	p.Row.DocumentType = core.DocumentType(document)
	p.Row.Amount = amount
	return p, nil
}

// MarkSynced marks a ledger row as successfully pushed to the sheet.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE ledger_rows SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark ledger row synced: %w", err)
	}
	slog.InfoContext(ctx, "Ledger row marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a ledger row as failed so the worker stops
// retrying it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE ledger_rows SET sync_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark ledger row sync error: %w", err)
	}
	slog.WarnContext(ctx, "Ledger row marked with sync error", "id", id)
	return nil
}

// ReplaceReferenceData rewrites the mirrored reference collections
// (classifications, fleet, income, amortizations) from a fresh
// snapshot. The ledger is kept: imported rows are the local source of
// truth until synced.
func (r *SQLiteRepository) ReplaceReferenceData(ctx context.Context, snap core.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"classifications", "vehicles", "vehicle_kms", "income_records", "amortization_accounts", "amortization_values"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, c := range snap.Classifications {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classifications (cost_type, cost_center, nature, distribution, basis) VALUES (?, ?, ?, ?, ?)`,
			c.CostType, string(c.CostCenter), string(c.Nature), c.Distribution, string(c.Basis)); err != nil {
			return fmt.Errorf("insert classification: %w", err)
		}
	}

	for _, v := range snap.Vehicles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vehicles (license_plate, vehicle_id, assigned_number, acquisition_date, sale_date,
			                       acquisition_value, sale_value, annual_amortization)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			v.LicensePlate, v.ID, v.AssignedNumber, v.AcquisitionDate, v.SaleDate,
			v.AcquisitionValue, v.SaleValue, v.AnnualAmortization); err != nil {
			return fmt.Errorf("insert vehicle: %w", err)
		}
		for year, kms := range v.AnnualKms {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vehicle_kms (license_plate, year, kms) VALUES (?, ?, ?)`,
				v.LicensePlate, year, kms); err != nil {
				return fmt.Errorf("insert vehicle kms: %w", err)
			}
		}
	}

	for _, yearly := range snap.Incomes {
		for _, rec := range yearly.OwnFleet {
			for month, amount := range rec.Income {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO income_records (record_id, year, vehicle_id, license_plate, source, month, amount)
					 VALUES (?, ?, ?, ?, 'own', ?, ?)`,
					rec.ID, yearly.Year, rec.VehicleID, rec.LicensePlate, month, amount); err != nil {
					return fmt.Errorf("insert income record: %w", err)
				}
			}
		}
		for month, amount := range yearly.Subcontracted {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO income_records (year, source, month, amount) VALUES (?, 'subcontracted', ?, ?)`,
				yearly.Year, month, amount); err != nil {
				return fmt.Errorf("insert subcontracted income: %w", err)
			}
		}
	}

	for _, acc := range snap.Amortizations {
		fleetRelated := 0
		if acc.IsFleetRelated {
			fleetRelated = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO amortization_accounts (account_id, name, fleet_related, annual_amount) VALUES (?, ?, ?, ?)`,
			acc.ID, acc.Name, fleetRelated, acc.AnnualAmount); err != nil {
			return fmt.Errorf("insert amortization account: %w", err)
		}
		for year, amount := range acc.AnnualValues {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO amortization_values (account_name, year, amount) VALUES (?, ?, ?)`,
				acc.Name, year, amount); err != nil {
				return fmt.Errorf("insert amortization value: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.InfoContext(ctx, "Reference data replaced",
		"classifications", len(snap.Classifications),
		"vehicles", len(snap.Vehicles),
		"income_years", len(snap.Incomes),
		"amortizations", len(snap.Amortizations))
	return nil
}
