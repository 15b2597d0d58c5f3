package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apierrors "dealbase/internal/errors"
	"dealbase/pkg/contracts/domain"
)

// ReplaceRentRoll atomically replaces a deal's unit records and unit mix
// groups with the given sets. Readers either see the previous upload in full
// or the new one in full, never a blend.
func (s *Store) ReplaceRentRoll(ctx context.Context, dealID int64, records []domain.UnitRecord, groups []domain.UnitMixGroup) error {
	return s.withRetry(ctx, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM unit_records WHERE deal_id = ?`, dealID); err != nil {
				return fmt.Errorf("failed to clear unit records: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM unit_mix_groups WHERE deal_id = ?`, dealID); err != nil {
				return fmt.Errorf("failed to clear unit mix: %w", err)
			}
			if err := insertUnitRecords(ctx, tx, dealID, records); err != nil {
				return err
			}
			return insertUnitMixGroups(ctx, tx, dealID, groups)
		})
	})
}

func insertUnitRecords(ctx context.Context, tx *sql.Tx, dealID int64, records []domain.UnitRecord) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO unit_records (deal_id, unit_number, unit_label, unit_type, square_feet, bedrooms, bathrooms,
		 actual_rent, market_rent, lease_start, move_in_date, lease_expiration, tenant_name, lease_status,
		 is_duplicate, is_application, data_source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare unit insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			dealID, rec.UnitNumber, nullString(rec.UnitLabel), rec.UnitType,
			nullInt(rec.SquareFeet), nullInt(rec.Bedrooms), nullFloat(rec.Bathrooms),
			rec.ActualRent, rec.MarketRent,
			nullTime(rec.LeaseStart), nullTime(rec.MoveInDate), nullTime(rec.LeaseExpiration),
			rec.TenantName, rec.LeaseStatus, rec.IsDuplicate, rec.IsApplication, rec.DataSource)
		if err != nil {
			return fmt.Errorf("failed to insert unit %q: %w", rec.UnitNumber, err)
		}
	}
	return nil
}

// ListUnitRecords returns a deal's normalized units in insertion order.
func (s *Store) ListUnitRecords(ctx context.Context, dealID int64) ([]domain.UnitRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deal_id, unit_number, unit_label, unit_type, square_feet, bedrooms, bathrooms,
		 actual_rent, market_rent, lease_start, move_in_date, lease_expiration, tenant_name, lease_status,
		 is_duplicate, is_application, data_source
		 FROM unit_records WHERE deal_id = ? ORDER BY id`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit records: %w", err)
	}
	defer rows.Close()

	var records []domain.UnitRecord
	for rows.Next() {
		var rec domain.UnitRecord
		var label sql.NullString
		var sqft, beds sql.NullInt64
		var baths sql.NullFloat64
		var leaseStart, moveIn, leaseExp sql.NullString
		err := rows.Scan(&rec.ID, &rec.DealID, &rec.UnitNumber, &label, &rec.UnitType,
			&sqft, &beds, &baths, &rec.ActualRent, &rec.MarketRent,
			&leaseStart, &moveIn, &leaseExp, &rec.TenantName, &rec.LeaseStatus,
			&rec.IsDuplicate, &rec.IsApplication, &rec.DataSource)
		if err != nil {
			return nil, err
		}
		rec.UnitLabel = stringPtr(label)
		rec.SquareFeet = intPtr(sqft)
		rec.Bedrooms = intPtr(beds)
		rec.Bathrooms = floatPtr(baths)
		rec.LeaseStart = timePtr(leaseStart)
		rec.MoveInDate = timePtr(moveIn)
		rec.LeaseExpiration = timePtr(leaseExp)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func insertUnitMixGroups(ctx context.Context, tx *sql.Tx, dealID int64, groups []domain.UnitMixGroup) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO unit_mix_groups (deal_id, group_key, unit_type, unit_label, total_units, occupied_units,
		 vacant_units, avg_square_feet, total_square_feet, avg_bedrooms, avg_bathrooms,
		 avg_actual_rent, avg_market_rent, total_actual_rent, total_market_rent,
		 rent_premium, pro_forma_rent, total_pro_forma_rent, provenance, is_linked, source_name,
		 last_derived_at, last_manual_edit_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare mix insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range groups {
		_, err := stmt.ExecContext(ctx,
			dealID, g.GroupKey, g.UnitType, nullString(g.UnitLabel),
			g.TotalUnits, g.OccupiedUnits, g.VacantUnits,
			nullFloat(g.AvgSquareFeet), nullFloat(g.TotalSquareFeet),
			nullFloat(g.AvgBedrooms), nullFloat(g.AvgBathrooms),
			g.AvgActualRent, g.AvgMarketRent,
			g.TotalActualRent, g.TotalMarketRent, g.RentPremium,
			nullFloat(g.ProFormaRent), g.TotalProFormaRent,
			g.Provenance, g.IsLinked, nullString(g.SourceName),
			nullTime(g.LastDerivedAt), nullTime(g.LastManualEditAt))
		if err != nil {
			return fmt.Errorf("failed to insert mix group %q: %w", g.GroupKey, err)
		}
	}
	return nil
}

// ReplaceUnitMixGroups atomically replaces a deal's unit mix groups only,
// leaving its unit records untouched.
func (s *Store) ReplaceUnitMixGroups(ctx context.Context, dealID int64, groups []domain.UnitMixGroup) error {
	return s.withRetry(ctx, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM unit_mix_groups WHERE deal_id = ?`, dealID); err != nil {
				return fmt.Errorf("failed to clear unit mix: %w", err)
			}
			return insertUnitMixGroups(ctx, tx, dealID, groups)
		})
	})
}

// ListUnitMixGroups returns a deal's mix groups in insertion order.
func (s *Store) ListUnitMixGroups(ctx context.Context, dealID int64) ([]domain.UnitMixGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+unitMixColumns+` FROM unit_mix_groups WHERE deal_id = ? ORDER BY id`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit mix: %w", err)
	}
	defer rows.Close()

	var groups []domain.UnitMixGroup
	for rows.Next() {
		g, err := scanUnitMixGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetUnitMixGroup loads one mix group by ID.
func (s *Store) GetUnitMixGroup(ctx context.Context, id int64) (domain.UnitMixGroup, error) {
	g, err := scanUnitMixGroup(s.db.QueryRowContext(ctx,
		`SELECT `+unitMixColumns+` FROM unit_mix_groups WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UnitMixGroup{}, apierrors.NotFoundError("unit mix group")
	}
	if err != nil {
		return domain.UnitMixGroup{}, fmt.Errorf("failed to load mix group %d: %w", id, err)
	}
	return g, nil
}

// UpdateUnitMixGroup writes back an edited or unlinked group.
func (s *Store) UpdateUnitMixGroup(ctx context.Context, g domain.UnitMixGroup) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE unit_mix_groups SET group_key = ?, unit_type = ?, unit_label = ?, total_units = ?,
			 occupied_units = ?, vacant_units = ?, avg_square_feet = ?, total_square_feet = ?,
			 avg_bedrooms = ?, avg_bathrooms = ?, avg_actual_rent = ?, avg_market_rent = ?,
			 total_actual_rent = ?, total_market_rent = ?, rent_premium = ?, pro_forma_rent = ?,
			 total_pro_forma_rent = ?, provenance = ?, is_linked = ?, source_name = ?,
			 last_derived_at = ?, last_manual_edit_at = ?
			 WHERE id = ?`,
			g.GroupKey, g.UnitType, nullString(g.UnitLabel), g.TotalUnits,
			g.OccupiedUnits, g.VacantUnits, nullFloat(g.AvgSquareFeet), nullFloat(g.TotalSquareFeet),
			nullFloat(g.AvgBedrooms), nullFloat(g.AvgBathrooms), g.AvgActualRent, g.AvgMarketRent,
			g.TotalActualRent, g.TotalMarketRent, g.RentPremium, nullFloat(g.ProFormaRent),
			g.TotalProFormaRent, g.Provenance, g.IsLinked, nullString(g.SourceName),
			nullTime(g.LastDerivedAt), nullTime(g.LastManualEditAt), g.ID)
		return err
	})
}

// InsertUnitMixGroup adds one manual group and returns it with its ID.
func (s *Store) InsertUnitMixGroup(ctx context.Context, g domain.UnitMixGroup) (domain.UnitMixGroup, error) {
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO unit_mix_groups (deal_id, group_key, unit_type, unit_label, total_units, occupied_units,
			 vacant_units, avg_square_feet, total_square_feet, avg_bedrooms, avg_bathrooms,
			 avg_actual_rent, avg_market_rent, total_actual_rent, total_market_rent,
			 rent_premium, pro_forma_rent, total_pro_forma_rent, provenance, is_linked, source_name,
			 last_derived_at, last_manual_edit_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.DealID, g.GroupKey, g.UnitType, nullString(g.UnitLabel),
			g.TotalUnits, g.OccupiedUnits, g.VacantUnits,
			nullFloat(g.AvgSquareFeet), nullFloat(g.TotalSquareFeet),
			nullFloat(g.AvgBedrooms), nullFloat(g.AvgBathrooms),
			g.AvgActualRent, g.AvgMarketRent,
			g.TotalActualRent, g.TotalMarketRent, g.RentPremium,
			nullFloat(g.ProFormaRent), g.TotalProFormaRent,
			g.Provenance, g.IsLinked, nullString(g.SourceName),
			nullTime(g.LastDerivedAt), nullTime(g.LastManualEditAt))
		if err != nil {
			return err
		}
		g.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return domain.UnitMixGroup{}, fmt.Errorf("failed to insert mix group: %w", err)
	}
	return g, nil
}

// DeleteUnitMixGroup removes one group. Linked groups are immutable and
// the delete is rejected without touching the row.
func (s *Store) DeleteUnitMixGroup(ctx context.Context, id int64) error {
	return s.withRetry(ctx, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			var linked bool
			err := tx.QueryRowContext(ctx,
				`SELECT is_linked FROM unit_mix_groups WHERE id = ?`, id).Scan(&linked)
			if errors.Is(err, sql.ErrNoRows) {
				return apierrors.NotFoundError("unit mix group")
			}
			if err != nil {
				return fmt.Errorf("failed to load mix group %d: %w", id, err)
			}
			if linked {
				return apierrors.LinkedGroupImmutable()
			}
			_, err = tx.ExecContext(ctx, `DELETE FROM unit_mix_groups WHERE id = ?`, id)
			return err
		})
	})
}

const unitMixColumns = `id, deal_id, group_key, unit_type, unit_label, total_units, occupied_units,
	vacant_units, avg_square_feet, total_square_feet, avg_bedrooms, avg_bathrooms,
	avg_actual_rent, avg_market_rent, total_actual_rent, total_market_rent,
	rent_premium, pro_forma_rent, total_pro_forma_rent, provenance, is_linked, source_name,
	last_derived_at, last_manual_edit_at`

func scanUnitMixGroup(row rowScanner) (domain.UnitMixGroup, error) {
	var g domain.UnitMixGroup
	var label, sourceName, derivedAt, editedAt sql.NullString
	var avgSqft, totalSqft, avgBeds, avgBaths, proForma sql.NullFloat64
	err := row.Scan(&g.ID, &g.DealID, &g.GroupKey, &g.UnitType, &label,
		&g.TotalUnits, &g.OccupiedUnits, &g.VacantUnits,
		&avgSqft, &totalSqft, &avgBeds, &avgBaths,
		&g.AvgActualRent, &g.AvgMarketRent,
		&g.TotalActualRent, &g.TotalMarketRent, &g.RentPremium,
		&proForma, &g.TotalProFormaRent, &g.Provenance, &g.IsLinked,
		&sourceName, &derivedAt, &editedAt)
	if err != nil {
		return domain.UnitMixGroup{}, err
	}
	g.UnitLabel = stringPtr(label)
	g.AvgSquareFeet = floatPtr(avgSqft)
	g.TotalSquareFeet = floatPtr(totalSqft)
	g.AvgBedrooms = floatPtr(avgBeds)
	g.AvgBathrooms = floatPtr(avgBaths)
	g.ProFormaRent = floatPtr(proForma)
	g.SourceName = stringPtr(sourceName)
	g.LastDerivedAt = timePtr(derivedAt)
	g.LastManualEditAt = timePtr(editedAt)
	return g, nil
}
