package rentroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "dealbase/internal/errors"
)

func TestMapColumns(t *testing.T) {
	header := []string{"Unit", "Unit Type", "SF", "Actual Rent", "Market Rent", "Lease Start", "Lease End", "Tenant Name", "Status"}

	mapping, _, err := MapColumns(header)
	require.NoError(t, err)

	expect := map[string]string{
		FieldUnitNumber:      "Unit",
		FieldUnitType:        "Unit Type",
		FieldSquareFeet:      "SF",
		FieldActualRent:      "Actual Rent",
		FieldMarketRent:      "Market Rent",
		FieldLeaseStart:      "Lease Start",
		FieldLeaseExpiration: "Lease End",
		FieldTenantName:      "Tenant Name",
		FieldLeaseStatus:     "Status",
	}
	for field, label := range expect {
		col, ok := mapping[field]
		require.True(t, ok, "field %s not mapped", field)
		assert.Equal(t, label, col.Label, "field %s", field)
	}
}

func TestMapColumnsPrefersLongerPattern(t *testing.T) {
	// Both rent columns contain "rent"; the longer "actual" and "market"
	// patterns must decide the assignment.
	mapping, _, err := MapColumns([]string{"Unit", "Market Rent", "Actual Rent"})
	require.NoError(t, err)

	assert.Equal(t, "Actual Rent", mapping[FieldActualRent].Label)
	assert.Equal(t, "Market Rent", mapping[FieldMarketRent].Label)
}

func TestMapColumnsRentFallsBackToMarket(t *testing.T) {
	// A file with only a market rent column still maps actual_rent onto it.
	mapping, _, err := MapColumns([]string{"Unit", "Market Rent"})
	require.NoError(t, err)

	assert.Equal(t, "Market Rent", mapping[FieldActualRent].Label)
	assert.Equal(t, "Market Rent", mapping[FieldMarketRent].Label)
}

func TestMapColumnsUnitLabelExactMatchOnly(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   string
		mapped bool
	}{
		{"floorplan", []string{"Unit", "Floorplan", "Rent"}, "Floorplan", true},
		{"unit label beats floorplan", []string{"Unit", "Floorplan", "Unit Label", "Rent"}, "Unit Label", true},
		{"unit type as label", []string{"Unit", "Unit Type", "Rent"}, "Unit Type", true},
		{"no exact match", []string{"Unit", "Floorplan Code", "Rent"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapping, _, err := MapColumns(tt.header)
			require.NoError(t, err)
			col, ok := mapping[FieldUnitLabel]
			assert.Equal(t, tt.mapped, ok)
			if tt.mapped {
				assert.Equal(t, tt.want, col.Label)
			}
		})
	}
}

func TestMapColumnsMissingUnitNumber(t *testing.T) {
	_, _, err := MapColumns([]string{"Tenant", "Rent", "Status"})
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnmappableSchema))
}

func TestMapColumnsMissingRent(t *testing.T) {
	_, _, err := MapColumns([]string{"Unit", "Tenant Name", "Status"})
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnmappableSchema))
}
