// Package memory is an in-process store used for local development and
// tests. It serves a whole snapshot from memory and accepts ledger
// appends.
package memory

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"flotas/internal/core"
)

type Store struct {
	mu   sync.Mutex
	snap core.Snapshot
}

func New(snap core.Snapshot) *Store {
	return &Store{snap: snap}
}

// NewFromFile loads a snapshot from a JSON seed file. A missing or
// unreadable file falls back to the demo fleet.
func NewFromFile(path string) *Store {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewDemo()
	}
	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return NewDemo()
	}
	return New(snap)
}

// NewDemo returns a store seeded with a small two-vehicle fleet and one
// year of books, enough to exercise every endpoint locally.
func NewDemo() *Store {
	return New(core.Snapshot{
		Ledger: []core.LedgerRow{
			{Year: 2024, Month: 0, DocumentType: core.DocPyG, Concept: "76200000001 INGRESOS TRANSPORTE", Amount: 185000.0},
			{Year: 2024, Month: 0, DocumentType: core.DocPyG, Concept: "60100000000 COMPRAS COMBUSTIBLE", Amount: -52000.0},
			{Year: 2024, Month: 0, DocumentType: core.DocPyG, Concept: "62500000000 PRIMAS DE SEGUROS", Amount: -14400.0},
			{Year: 2024, Month: 0, DocumentType: core.DocPyG, Concept: "62200000001 REPARACIONES Y CONSERVACION", Amount: -9800.0},
			{Year: 2024, Month: 0, DocumentType: core.DocPyG, Concept: "62600000004 SERVICIOS BANCARIOS", Amount: -2300.0},
			{Year: 2024, Month: 0, DocumentType: core.DocPyG, Concept: "64000000000 SUELDOS Y SALARIOS", Amount: -61000.0},
		},
		Classifications: []core.Classification{
			{CostType: "60100000000 COMPRAS COMBUSTIBLE", CostCenter: core.CostCenterDirect, Nature: core.NatureVariable, Distribution: core.DistributionGeneral, Basis: core.BasisDistance},
			{CostType: "62500000000 PRIMAS DE SEGUROS", CostCenter: core.CostCenterDirect, Nature: core.NatureFixed, Distribution: core.DistributionGeneral, Basis: core.BasisTime},
			{CostType: "62200000001 REPARACIONES Y CONSERVACION", CostCenter: core.CostCenterDirect, Nature: core.NatureVariable, Distribution: core.DistributionGeneral, Basis: core.BasisDistance},
			{CostType: "62600000004 SERVICIOS BANCARIOS", CostCenter: core.CostCenterIndirect, Nature: core.NatureFixed, Distribution: core.DistributionGeneral, Basis: core.BasisTime},
			{CostType: "64000000000 SUELDOS Y SALARIOS", CostCenter: core.CostCenterDirect, Nature: core.NatureFixed, Distribution: core.DistributionGeneral, Basis: core.BasisTime},
		},
		Vehicles: []core.Vehicle{
			{ID: "demo-1", LicensePlate: "1234ABC", AssignedNumber: 1, AcquisitionDate: "2021-03-15", AnnualAmortization: 9500, AnnualKms: map[int]float64{2024: 92000}},
			{ID: "demo-2", LicensePlate: "5678DEF", AssignedNumber: 2, AcquisitionDate: "2024-07-01", AnnualAmortization: 11200, AnnualKms: map[int]float64{2024: 38000}},
		},
		Incomes: []core.YearlyIncome{
			{
				Year: 2024,
				OwnFleet: []core.VehicleIncome{
					{ID: "inc-1", LicensePlate: "1234ABC", Income: core.MonthlyAmounts{1: 9500, 2: 9100, 3: 9800, 4: 9400, 5: 10200, 6: 9900, 7: 10100, 8: 8800, 9: 9700, 10: 10300, 11: 9600, 12: 9200}},
					{ID: "inc-2", LicensePlate: "5678DEF", Income: core.MonthlyAmounts{7: 8200, 8: 7600, 9: 8400, 10: 8800, 11: 8100, 12: 7900}},
				},
				Subcontracted: core.MonthlyAmounts{3: 2500, 9: 3100},
			},
		},
		Amortizations: []core.AmortizationAccount{
			{ID: "am-1", Name: "Nave y oficinas", IsFleetRelated: false, AnnualAmount: 6000, AnnualValues: map[int]float64{2024: 6200}},
			{ID: "am-2", Name: "Flota", IsFleetRelated: true, AnnualAmount: 20700},
		},
	})
}

func (s *Store) ListLedger(_ context.Context) ([]core.LedgerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LedgerRow(nil), s.snap.Ledger...), nil
}

func (s *Store) ListClassifications(_ context.Context) ([]core.Classification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Classification(nil), s.snap.Classifications...), nil
}

func (s *Store) ListVehicles(_ context.Context) ([]core.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Vehicle(nil), s.snap.Vehicles...), nil
}

func (s *Store) ListIncome(_ context.Context) ([]core.YearlyIncome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.YearlyIncome(nil), s.snap.Incomes...), nil
}

func (s *Store) ListAmortizations(_ context.Context) ([]core.AmortizationAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.AmortizationAccount(nil), s.snap.Amortizations...), nil
}

// AppendLedger adds imported rows to the in-memory ledger.
func (s *Store) AppendLedger(_ context.Context, rows []core.LedgerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Ledger = append(s.snap.Ledger, rows...)
	return nil
}
