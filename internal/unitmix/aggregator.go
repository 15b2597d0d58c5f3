package unitmix

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	apierrors "dealbase/internal/errors"
	"dealbase/pkg/contracts/domain"
)

// unlabeledKey groups units with no value on the chosen dimension. It always
// sorts after every labeled group.
const unlabeledKey = "UNLABELED"

// Aggregator derives and maintains unit mix groups from normalized unit
// records. Derivation is pure; the same records and dimension always produce
// the same groups in the same order.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger.With(slog.String("component", "unitmix_aggregator"))}
}

// DeriveFromUnits groups records along the requested dimension and computes
// each group's counts and averages. Derived groups are linked to their
// source and carry DERIVED provenance.
func (a *Aggregator) DeriveFromUnits(records []domain.UnitRecord, dealID int64, groupBy, sourceName string, now time.Time) ([]domain.UnitMixGroup, error) {
	if !domain.ValidGroupBy(groupBy) {
		return nil, apierrors.ErrValidation("group_by", fmt.Sprintf("unsupported grouping dimension %q", groupBy))
	}

	buckets := make(map[string][]domain.UnitRecord)
	for _, rec := range records {
		key := groupKey(rec, groupBy)
		buckets[key] = append(buckets[key], rec)
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	// Lexicographic order, unlabeled group always last.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == unlabeledKey {
			return false
		}
		if keys[j] == unlabeledKey {
			return true
		}
		return keys[i] < keys[j]
	})

	derivedAt := now
	src := sourceName
	groups := make([]domain.UnitMixGroup, 0, len(keys))
	for _, key := range keys {
		g := buildGroup(buckets[key], dealID, key, groupBy)
		g.Provenance = domain.ProvenanceDerived
		g.IsLinked = true
		g.LastDerivedAt = &derivedAt
		if src != "" {
			g.SourceName = &src
		}
		groups = append(groups, g)
	}

	a.logger.Debug("derived unit mix",
		slog.Int64("deal_id", dealID),
		slog.String("group_by", groupBy),
		slog.Int("groups", len(groups)),
		slog.Int("units", len(records)))
	return groups, nil
}

func groupKey(rec domain.UnitRecord, groupBy string) string {
	switch groupBy {
	case domain.GroupByUnitLabel:
		if rec.UnitLabel == nil || *rec.UnitLabel == "" {
			return unlabeledKey
		}
		return *rec.UnitLabel
	case domain.GroupBySquareFeet:
		if rec.SquareFeet == nil {
			return unlabeledKey
		}
		return sqftBucket(*rec.SquareFeet)
	default:
		if rec.UnitType == "" {
			return unlabeledKey
		}
		return rec.UnitType
	}
}

// sqftBucket bins a square footage into the same ranges used for unit type
// inference, so the two views stay comparable.
func sqftBucket(sqft int) string {
	switch {
	case sqft < 500:
		return "<500"
	case sqft < 800:
		return "500-799"
	case sqft < 1200:
		return "800-1199"
	case sqft < 1600:
		return "1200-1599"
	default:
		return "1600+"
	}
}

func buildGroup(units []domain.UnitRecord, dealID int64, key, groupBy string) domain.UnitMixGroup {
	g := domain.UnitMixGroup{
		DealID:     dealID,
		GroupKey:   key,
		UnitType:   key,
		TotalUnits: len(units),
	}
	if groupBy == domain.GroupByUnitLabel && key != unlabeledKey {
		label := key
		g.UnitLabel = &label
		g.UnitType = units[0].UnitType
	}

	var sqftSum, sqftCount, bedSum, bedCount, bathSum, bathCount float64
	for _, u := range units {
		if u.Occupied() {
			g.OccupiedUnits++
		}
		g.TotalActualRent += u.ActualRent
		g.TotalMarketRent += u.MarketRent
		if u.SquareFeet != nil {
			sqftSum += float64(*u.SquareFeet)
			sqftCount++
		}
		if u.Bedrooms != nil {
			bedSum += float64(*u.Bedrooms)
			bedCount++
		}
		if u.Bathrooms != nil {
			bathSum += *u.Bathrooms
			bathCount++
		}
	}
	g.VacantUnits = g.TotalUnits - g.OccupiedUnits
	if g.TotalUnits > 0 {
		g.AvgActualRent = g.TotalActualRent / float64(g.TotalUnits)
		g.AvgMarketRent = g.TotalMarketRent / float64(g.TotalUnits)
	}
	if sqftCount > 0 {
		avg := sqftSum / sqftCount
		total := sqftSum
		g.AvgSquareFeet = &avg
		g.TotalSquareFeet = &total
	}
	if bedCount > 0 {
		avg := bedSum / bedCount
		g.AvgBedrooms = &avg
	}
	if bathCount > 0 {
		avg := bathSum / bathCount
		g.AvgBathrooms = &avg
	}
	g.RentPremium = rentPremium(g.AvgActualRent, g.AvgMarketRent)
	// Pro forma defaults to actual until an explicit per-unit rent is set.
	g.TotalProFormaRent = g.TotalActualRent
	return g
}

// rentPremium is how far actual rents run above (positive) or below
// (negative) market. Zero when no market rent is known.
func rentPremium(avgActual, avgMarket float64) float64 {
	if avgMarket == 0 {
		return 0
	}
	return avgActual - avgMarket
}

// ManualEdit carries the editable fields of an unlinked group. Nil fields
// are left unchanged.
type ManualEdit struct {
	UnitType      *string  `json:"unit_type,omitempty"`
	UnitLabel     *string  `json:"unit_label,omitempty"`
	TotalUnits    *int     `json:"total_units,omitempty" validate:"omitempty,min=0"`
	OccupiedUnits *int     `json:"occupied_units,omitempty" validate:"omitempty,min=0"`
	AvgSquareFeet *float64 `json:"avg_square_feet,omitempty" validate:"omitempty,min=0"`
	AvgActualRent *float64 `json:"avg_actual_rent,omitempty" validate:"omitempty,min=0"`
	AvgMarketRent *float64 `json:"avg_market_rent,omitempty" validate:"omitempty,min=0"`
	ProFormaRent  *float64 `json:"pro_forma_rent,omitempty" validate:"omitempty,min=0"`
}

// ApplyManualEdit mutates an unlinked group and recomputes its dependent
// fields. Linked groups are immutable and must be unlinked first.
func (a *Aggregator) ApplyManualEdit(g *domain.UnitMixGroup, edit ManualEdit, now time.Time) error {
	if g.IsLinked {
		return apierrors.LinkedGroupImmutable()
	}

	if edit.UnitType != nil {
		g.UnitType = *edit.UnitType
	}
	if edit.UnitLabel != nil {
		g.UnitLabel = edit.UnitLabel
	}
	if edit.TotalUnits != nil {
		g.TotalUnits = *edit.TotalUnits
	}
	if edit.OccupiedUnits != nil {
		g.OccupiedUnits = *edit.OccupiedUnits
	}
	if edit.AvgSquareFeet != nil {
		g.AvgSquareFeet = edit.AvgSquareFeet
	}
	if edit.AvgActualRent != nil {
		g.AvgActualRent = *edit.AvgActualRent
	}
	if edit.AvgMarketRent != nil {
		g.AvgMarketRent = *edit.AvgMarketRent
	}
	if edit.ProFormaRent != nil {
		g.ProFormaRent = edit.ProFormaRent
	}

	if g.OccupiedUnits > g.TotalUnits {
		g.OccupiedUnits = g.TotalUnits
	}
	g.VacantUnits = g.TotalUnits - g.OccupiedUnits
	g.RentPremium = rentPremium(g.AvgActualRent, g.AvgMarketRent)
	g.TotalActualRent = g.AvgActualRent * float64(g.TotalUnits)
	g.TotalMarketRent = g.AvgMarketRent * float64(g.TotalUnits)
	if g.ProFormaRent != nil {
		g.TotalProFormaRent = *g.ProFormaRent * float64(g.TotalUnits)
	} else {
		g.TotalProFormaRent = g.TotalActualRent
	}

	g.Provenance = domain.ProvenanceManual
	editedAt := now
	g.LastManualEditAt = &editedAt
	return nil
}

// Unlink detaches a group from its source rent roll, freezing its current
// values and opening it to manual edits. The group becomes MANUAL in place.
func (a *Aggregator) Unlink(g *domain.UnitMixGroup, now time.Time) {
	g.IsLinked = false
	g.Provenance = domain.ProvenanceManual
	editedAt := now
	g.LastManualEditAt = &editedAt
}

// Totals aggregates the groups of one deal into the mix summary.
func (a *Aggregator) Totals(groups []domain.UnitMixGroup) domain.UnitMixTotals {
	var t domain.UnitMixTotals
	for _, g := range groups {
		t.TotalUnits += g.TotalUnits
		t.OccupiedUnits += g.OccupiedUnits
		t.VacantUnits += g.VacantUnits
		t.TotalActualRent += g.TotalActualRent
		t.TotalMarketRent += g.TotalMarketRent
		t.TotalProFormaRent += g.TotalProFormaRent
	}
	if t.TotalUnits > 0 {
		t.OccupancyRate = float64(t.OccupiedUnits) / float64(t.TotalUnits)
	}
	return t
}
