package domain

import "time"

// Provenance of a unit mix group.
const (
	ProvenanceDerived = "DERIVED"
	ProvenanceManual  = "MANUAL"
)

// Grouping dimensions the mix can be derived over.
const (
	GroupByUnitType   = "unit_type"
	GroupByUnitLabel  = "unit_label"
	GroupBySquareFeet = "square_feet"
)

// ValidGroupBy reports whether g names a supported grouping dimension.
func ValidGroupBy(g string) bool {
	switch g {
	case GroupByUnitType, GroupByUnitLabel, GroupBySquareFeet:
		return true
	}
	return false
}

// UnitMixGroup is one aggregated row of a deal's unit mix. While IsLinked is
// true the group tracks its source rent roll and is recomputed on read;
// manual edits require unlinking first.
type UnitMixGroup struct {
	ID                int64      `json:"id,omitempty"`
	DealID            int64      `json:"deal_id"`
	GroupKey          string     `json:"group_key"`
	UnitType          string     `json:"unit_type"`
	UnitLabel         *string    `json:"unit_label,omitempty"`
	TotalUnits        int        `json:"total_units"`
	OccupiedUnits     int        `json:"occupied_units"`
	VacantUnits       int        `json:"vacant_units"`
	AvgSquareFeet     *float64   `json:"avg_square_feet,omitempty"`
	TotalSquareFeet   *float64   `json:"total_square_feet,omitempty"`
	AvgBedrooms       *float64   `json:"avg_bedrooms,omitempty"`
	AvgBathrooms      *float64   `json:"avg_bathrooms,omitempty"`
	AvgActualRent     float64    `json:"avg_actual_rent"`
	AvgMarketRent     float64    `json:"avg_market_rent"`
	TotalActualRent   float64    `json:"total_actual_rent"`
	TotalMarketRent   float64    `json:"total_market_rent"`
	RentPremium       float64    `json:"rent_premium"`
	ProFormaRent      *float64   `json:"pro_forma_rent,omitempty"`
	TotalProFormaRent float64    `json:"total_pro_forma_rent"`
	Provenance        string     `json:"provenance"`
	IsLinked          bool       `json:"is_linked"`
	SourceName        *string    `json:"source_name,omitempty"`
	LastDerivedAt     *time.Time `json:"last_derived_at,omitempty"`
	LastManualEditAt  *time.Time `json:"last_manual_edit_at,omitempty"`
}

// UnitMixTotals aggregates the groups of one deal.
type UnitMixTotals struct {
	TotalUnits        int     `json:"total_units"`
	OccupiedUnits     int     `json:"occupied_units"`
	VacantUnits       int     `json:"vacant_units"`
	OccupancyRate     float64 `json:"occupancy_rate"`
	TotalActualRent   float64 `json:"total_actual_rent"`
	TotalMarketRent   float64 `json:"total_market_rent"`
	TotalProFormaRent float64 `json:"total_pro_forma_rent"`
}

// UnitMix is the read contract for a deal's mix: its groups plus totals.
type UnitMix struct {
	DealID  int64          `json:"deal_id"`
	GroupBy string         `json:"group_by"`
	Groups  []UnitMixGroup `json:"groups"`
	Totals  UnitMixTotals  `json:"totals"`
}
