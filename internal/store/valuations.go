package store

import (
	"context"
	"encoding/json"
	"fmt"

	"dealbase/pkg/contracts/domain"
)

// CreateValuationRun persists one completed valuation with its merged
// assumptions and KPI vector.
func (s *Store) CreateValuationRun(ctx context.Context, run domain.ValuationRun) error {
	assumptions, err := json.Marshal(run.Assumptions)
	if err != nil {
		return fmt.Errorf("failed to encode assumptions: %w", err)
	}
	kpis, err := json.Marshal(run.KPIs)
	if err != nil {
		return fmt.Errorf("failed to encode kpis: %w", err)
	}
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO valuation_runs (id, deal_id, name, status, assumptions, kpis, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.DealID, run.Name, run.Status,
			string(assumptions), string(kpis), formatTime(run.CreatedAt))
		return err
	})
}

// ListValuationRuns returns a deal's runs, newest first.
func (s *Store) ListValuationRuns(ctx context.Context, dealID int64) ([]domain.ValuationRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deal_id, name, status, assumptions, kpis, created_at
		 FROM valuation_runs WHERE deal_id = ? ORDER BY created_at DESC`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list valuation runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ValuationRun
	for rows.Next() {
		var run domain.ValuationRun
		var assumptions, kpis, createdAt string
		if err := rows.Scan(&run.ID, &run.DealID, &run.Name, &run.Status, &assumptions, &kpis, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(assumptions), &run.Assumptions); err != nil {
			return nil, fmt.Errorf("failed to decode assumptions for run %s: %w", run.ID, err)
		}
		if err := json.Unmarshal([]byte(kpis), &run.KPIs); err != nil {
			return nil, fmt.Errorf("failed to decode kpis for run %s: %w", run.ID, err)
		}
		run.CreatedAt = parseTime(createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
