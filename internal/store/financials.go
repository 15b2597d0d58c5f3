package store

import (
	"context"
	"database/sql"
	"fmt"

	"dealbase/pkg/contracts/domain"
)

// ReplaceFinancialPeriods atomically replaces a deal's period financials.
func (s *Store) ReplaceFinancialPeriods(ctx context.Context, dealID int64, periods []domain.FinancialPeriod) error {
	return s.withRetry(ctx, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM financial_periods WHERE deal_id = ?`, dealID); err != nil {
				return fmt.Errorf("failed to clear financial periods: %w", err)
			}
			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO financial_periods (deal_id, month, year, gross_rent, other_income, total_income,
				 operating_expenses, net_operating_income)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("failed to prepare period insert: %w", err)
			}
			defer stmt.Close()

			for _, p := range periods {
				_, err := stmt.ExecContext(ctx,
					dealID, p.Month, p.Year, p.GrossRent, p.OtherIncome,
					p.TotalIncome, p.OperatingExpenses, p.NetOperatingIncome)
				if err != nil {
					return fmt.Errorf("failed to insert period %d-%02d: %w", p.Year, p.Month, err)
				}
			}
			return nil
		})
	})
}

// ListFinancialPeriods returns a deal's periods in chronological order.
func (s *Store) ListFinancialPeriods(ctx context.Context, dealID int64) ([]domain.FinancialPeriod, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deal_id, month, year, gross_rent, other_income, total_income, operating_expenses, net_operating_income
		 FROM financial_periods WHERE deal_id = ? ORDER BY year, month`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list financial periods: %w", err)
	}
	defer rows.Close()

	var periods []domain.FinancialPeriod
	for rows.Next() {
		var p domain.FinancialPeriod
		err := rows.Scan(&p.ID, &p.DealID, &p.Month, &p.Year, &p.GrossRent, &p.OtherIncome,
			&p.TotalIncome, &p.OperatingExpenses, &p.NetOperatingIncome)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}
