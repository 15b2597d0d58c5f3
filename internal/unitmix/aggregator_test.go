package unitmix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "dealbase/internal/errors"
	"dealbase/pkg/contracts/domain"
)

func mixUnit(unitType string, sqft int, actual, market float64, status string) domain.UnitRecord {
	sf := sqft
	return domain.UnitRecord{
		UnitType:    unitType,
		SquareFeet:  &sf,
		ActualRent:  actual,
		MarketRent:  market,
		LeaseStatus: status,
	}
}

func TestDeriveFromUnitsByType(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.UnitRecord{
		mixUnit("2BR", 1100, 1500, 1550, domain.LeaseStatusOccupied),
		mixUnit("2BR", 1100, 1400, 1550, domain.LeaseStatusVacant),
		mixUnit("1BR", 700, 1200, 1250, domain.LeaseStatusOccupied),
	}

	agg := NewAggregator(nil)
	groups, err := agg.DeriveFromUnits(records, 7, domain.GroupByUnitType, "march.csv", now)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Lexicographic group order.
	assert.Equal(t, "1BR", groups[0].GroupKey)
	assert.Equal(t, "2BR", groups[1].GroupKey)

	twoBR := groups[1]
	assert.Equal(t, int64(7), twoBR.DealID)
	assert.Equal(t, 2, twoBR.TotalUnits)
	assert.Equal(t, 1, twoBR.OccupiedUnits)
	assert.Equal(t, 1, twoBR.VacantUnits)
	assert.InDelta(t, 1450, twoBR.AvgActualRent, 0.001)
	assert.InDelta(t, 1550, twoBR.AvgMarketRent, 0.001)
	assert.InDelta(t, 2900, twoBR.TotalActualRent, 0.001)
	// Actual rents run 100 below market here.
	assert.InDelta(t, -100, twoBR.RentPremium, 0.001)
	require.NotNil(t, twoBR.AvgSquareFeet)
	assert.InDelta(t, 1100, *twoBR.AvgSquareFeet, 0.001)
	require.NotNil(t, twoBR.TotalSquareFeet)
	assert.InDelta(t, 2200, *twoBR.TotalSquareFeet, 0.001)
	assert.Equal(t, domain.ProvenanceDerived, twoBR.Provenance)
	assert.True(t, twoBR.IsLinked)
	require.NotNil(t, twoBR.SourceName)
	assert.Equal(t, "march.csv", *twoBR.SourceName)
	require.NotNil(t, twoBR.LastDerivedAt)
	assert.Equal(t, now, *twoBR.LastDerivedAt)
	// Pro forma defaults to actual totals.
	assert.InDelta(t, twoBR.TotalActualRent, twoBR.TotalProFormaRent, 0.001)
}

func TestDerivePhysicalAverages(t *testing.T) {
	beds2, beds3 := 2, 3
	baths := 1.5
	sqft := 1100
	records := []domain.UnitRecord{
		{UnitType: "2BR", SquareFeet: &sqft, Bedrooms: &beds2, Bathrooms: &baths, ActualRent: 1500, MarketRent: 1550},
		{UnitType: "2BR", Bedrooms: &beds3, ActualRent: 1400, MarketRent: 1550},
		{UnitType: "2BR", ActualRent: 1450, MarketRent: 1550},
	}

	agg := NewAggregator(nil)
	groups, err := agg.DeriveFromUnits(records, 1, domain.GroupByUnitType, "", time.Now())
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	// Nulls are skipped, not counted as zero.
	require.NotNil(t, g.AvgBedrooms)
	assert.InDelta(t, 2.5, *g.AvgBedrooms, 0.001)
	require.NotNil(t, g.AvgBathrooms)
	assert.InDelta(t, 1.5, *g.AvgBathrooms, 0.001)
	require.NotNil(t, g.TotalSquareFeet)
	assert.InDelta(t, 1100, *g.TotalSquareFeet, 0.001)
	require.NotNil(t, g.AvgSquareFeet)
	assert.InDelta(t, 1100, *g.AvgSquareFeet, 0.001)
}

func TestDeriveRentPremiumZeroWithoutMarket(t *testing.T) {
	records := []domain.UnitRecord{
		{UnitType: "1BR", ActualRent: 1200, MarketRent: 0},
	}

	agg := NewAggregator(nil)
	groups, err := agg.DeriveFromUnits(records, 1, domain.GroupByUnitType, "", time.Now())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Zero(t, groups[0].RentPremium)
}

func TestDeriveUnlabeledSortsLast(t *testing.T) {
	label := "A1"
	records := []domain.UnitRecord{
		{UnitType: "2BR", ActualRent: 1500, MarketRent: 1500},
		{UnitType: "1BR", UnitLabel: &label, ActualRent: 1200, MarketRent: 1200},
	}

	agg := NewAggregator(nil)
	groups, err := agg.DeriveFromUnits(records, 1, domain.GroupByUnitLabel, "", time.Now())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "A1", groups[0].GroupKey)
	assert.Equal(t, "UNLABELED", groups[1].GroupKey)
}

func TestDeriveBySquareFeetBuckets(t *testing.T) {
	records := []domain.UnitRecord{
		mixUnit("Studio", 450, 900, 950, domain.LeaseStatusOccupied),
		mixUnit("1BR", 700, 1200, 1250, domain.LeaseStatusOccupied),
		mixUnit("2BR", 1100, 1500, 1550, domain.LeaseStatusOccupied),
		mixUnit("3BR", 1400, 1800, 1850, domain.LeaseStatusOccupied),
		mixUnit("4BR+", 1900, 2200, 2300, domain.LeaseStatusOccupied),
	}

	agg := NewAggregator(nil)
	groups, err := agg.DeriveFromUnits(records, 1, domain.GroupBySquareFeet, "", time.Now())
	require.NoError(t, err)
	require.Len(t, groups, 5)

	var keys []string
	for _, g := range groups {
		keys = append(keys, g.GroupKey)
	}
	assert.ElementsMatch(t, []string{"<500", "500-799", "800-1199", "1200-1599", "1600+"}, keys)
}

func TestDeriveRejectsUnknownDimension(t *testing.T) {
	agg := NewAggregator(nil)
	_, err := agg.DeriveFromUnits(nil, 1, "floor", "", time.Now())
	require.Error(t, err)
}

func TestDeriveDeterministic(t *testing.T) {
	records := []domain.UnitRecord{
		mixUnit("2BR", 1100, 1500, 1550, domain.LeaseStatusOccupied),
		mixUnit("1BR", 700, 1200, 1250, domain.LeaseStatusVacant),
	}
	now := time.Now()

	agg := NewAggregator(nil)
	first, err := agg.DeriveFromUnits(records, 1, domain.GroupByUnitType, "x.csv", now)
	require.NoError(t, err)
	second, err := agg.DeriveFromUnits(records, 1, domain.GroupByUnitType, "x.csv", now)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestApplyManualEditRejectsLinked(t *testing.T) {
	agg := NewAggregator(nil)
	g := domain.UnitMixGroup{IsLinked: true}

	err := agg.ApplyManualEdit(&g, ManualEdit{}, time.Now())
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeLinkedGroupImmutable))
}

func TestApplyManualEditRecomputes(t *testing.T) {
	now := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	g := domain.UnitMixGroup{
		UnitType:      "2BR",
		TotalUnits:    10,
		OccupiedUnits: 8,
		AvgActualRent: 1400,
		AvgMarketRent: 1500,
		Provenance:    domain.ProvenanceDerived,
		IsLinked:      false,
	}

	total := 12
	proForma := 1600.0
	agg := NewAggregator(nil)
	err := agg.ApplyManualEdit(&g, ManualEdit{TotalUnits: &total, ProFormaRent: &proForma}, now)
	require.NoError(t, err)

	assert.Equal(t, 12, g.TotalUnits)
	assert.Equal(t, 4, g.VacantUnits)
	assert.InDelta(t, 16800, g.TotalActualRent, 0.001)
	assert.InDelta(t, 18000, g.TotalMarketRent, 0.001)
	assert.InDelta(t, 19200, g.TotalProFormaRent, 0.001)
	assert.InDelta(t, -100, g.RentPremium, 0.001)
	assert.Equal(t, domain.ProvenanceManual, g.Provenance)
	require.NotNil(t, g.LastManualEditAt)
	assert.Equal(t, now, *g.LastManualEditAt)
}

func TestApplyManualEditDefaultsProFormaToActual(t *testing.T) {
	g := domain.UnitMixGroup{
		UnitType:      "1BR",
		TotalUnits:    4,
		AvgActualRent: 1200,
		AvgMarketRent: 1300,
	}

	agg := NewAggregator(nil)
	err := agg.ApplyManualEdit(&g, ManualEdit{}, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 4800, g.TotalProFormaRent, 0.001)
}

func TestUnlinkFlipsProvenance(t *testing.T) {
	now := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
	g := domain.UnitMixGroup{
		TotalUnits: 5,
		Provenance: domain.ProvenanceDerived,
		IsLinked:   true,
	}

	agg := NewAggregator(nil)
	agg.Unlink(&g, now)

	assert.False(t, g.IsLinked)
	assert.Equal(t, domain.ProvenanceManual, g.Provenance)
	require.NotNil(t, g.LastManualEditAt)
	assert.Equal(t, now, *g.LastManualEditAt)
	// Values are frozen, not recomputed.
	assert.Equal(t, 5, g.TotalUnits)
}

func TestTotals(t *testing.T) {
	agg := NewAggregator(nil)
	totals := agg.Totals([]domain.UnitMixGroup{
		{TotalUnits: 10, OccupiedUnits: 9, VacantUnits: 1, TotalActualRent: 14000, TotalMarketRent: 15000, TotalProFormaRent: 15000},
		{TotalUnits: 10, OccupiedUnits: 6, VacantUnits: 4, TotalActualRent: 12000, TotalMarketRent: 12500, TotalProFormaRent: 13000},
	})

	assert.Equal(t, 20, totals.TotalUnits)
	assert.Equal(t, 15, totals.OccupiedUnits)
	assert.InDelta(t, 0.75, totals.OccupancyRate, 0.001)
	assert.InDelta(t, 26000, totals.TotalActualRent, 0.001)
	assert.InDelta(t, 28000, totals.TotalProFormaRent, 0.001)
}

func TestTotalsEmpty(t *testing.T) {
	agg := NewAggregator(nil)
	totals := agg.Totals(nil)
	assert.Zero(t, totals.TotalUnits)
	assert.Zero(t, totals.OccupancyRate)
}
