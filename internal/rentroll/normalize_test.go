package rentroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealbase/internal/config"
	"dealbase/internal/tabular"
	"dealbase/pkg/contracts/domain"
)

func TestCleanUnitNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"101", "101"},
		{"101.0", "101"},
		{"0101.0", "0101"},
		{"  204 ", "204"},
		{"A-101", "A-101"},
		{"12.5", "12.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanUnitNumber(tt.in), "input %q", tt.in)
	}
}

func TestCleanUnitLabel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		nil_ bool
	}{
		{"simple", "a1", "A1", false},
		{"strips invalid chars", "B2 (renov.)", "B2RENOV", false},
		{"keeps dash and underscore", "c-3_x", "C-3_X", false},
		{"truncates to sixteen", "ABCDEFGHIJKLMNOPQRST", "ABCDEFGHIJKLMNOP", false},
		{"empty", "  ", "", true},
		{"placeholder", "nan", "", true},
		{"only invalid chars", "***", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanUnitLabel(tt.in)
			if tt.nil_ {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1500", 1500, true},
		{"$1,500.50", 1500.50, true},
		{"(250)", -250, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"two", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestInferUnitType(t *testing.T) {
	for beds, want := range map[int]string{0: "Studio", 1: "1BR", 3: "3BR", 5: "5BR"} {
		got, ok := inferUnitTypeFromBedrooms(beds)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := inferUnitTypeFromBedrooms(7)
	assert.False(t, ok)

	for sqft, want := range map[int]string{450: "Studio", 650: "1BR", 1000: "2BR", 1400: "3BR", 2000: "4BR+"} {
		assert.Equal(t, want, inferUnitTypeFromSqft(sqft), "sqft %d", sqft)
	}
}

func TestNormalizeRecords(t *testing.T) {
	table := &tabular.Table{
		Header: []string{"Unit", "Floorplan", "SF", "Beds", "Baths", "Actual Rent", "Market Rent", "Lease Start", "Tenant Name", "Status"},
		Rows: [][]string{
			{"101.0", "a1", "850", "2", "1.5", "$1,450", "1500", "2025-03-01", "J. Rivera", "Occupied"},
			{"102", "b2", "abc", "oops", "20", "", "1550", "bad-date", "", "Vacant"},
		},
	}
	mapping, _, err := MapColumns(table.Header)
	require.NoError(t, err)

	normalizer := NewNormalizer(config.DefaultParser(), nil)
	records, report := normalizer.Normalize(table, mapping, []int{0, 1})
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "101", first.UnitNumber)
	require.NotNil(t, first.UnitLabel)
	assert.Equal(t, "A1", *first.UnitLabel)
	require.NotNil(t, first.SquareFeet)
	assert.Equal(t, 850, *first.SquareFeet)
	require.NotNil(t, first.Bedrooms)
	assert.Equal(t, 2, *first.Bedrooms)
	require.NotNil(t, first.Bathrooms)
	assert.Equal(t, 1.5, *first.Bathrooms)
	assert.Equal(t, 1450.0, first.ActualRent)
	assert.Equal(t, 1500.0, first.MarketRent)
	require.NotNil(t, first.LeaseStart)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *first.LeaseStart)
	assert.Equal(t, domain.LeaseStatusOccupied, first.LeaseStatus)
	// No mapped type column; bedrooms drive the inference.
	assert.Equal(t, "2BR", first.UnitType)

	second := records[1]
	assert.Nil(t, second.SquareFeet, "unparsable square feet stay null")
	require.NotNil(t, second.Bedrooms)
	assert.Equal(t, 0, *second.Bedrooms, "mapped but unparsable bedrooms default to zero")
	assert.Nil(t, second.Bathrooms, "out-of-range bathrooms stay null")
	// Blank actual rent defaults to the market value.
	assert.Equal(t, 1550.0, second.ActualRent)
	assert.Equal(t, 1550.0, second.MarketRent)
	assert.Nil(t, second.LeaseStart)
	assert.Equal(t, domain.LeaseStatusVacant, second.LeaseStatus)
	assert.Equal(t, "Studio", second.UnitType, "zero bedrooms infer a studio")

	assert.Equal(t, 2, report.TotalRecords)
	assert.NotEmpty(t, report.Warnings)
}

func TestNormalizeLeaseStatusInference(t *testing.T) {
	// Without a status column, a tenant name implies occupancy.
	table := &tabular.Table{
		Header: []string{"Unit", "Rent", "Tenant"},
		Rows: [][]string{
			{"101", "1500", "M. Chen"},
			{"102", "1400", ""},
			{"103", "1300", "VACANT"},
		},
	}
	mapping, _, err := MapColumns(table.Header)
	require.NoError(t, err)

	normalizer := NewNormalizer(config.DefaultParser(), nil)
	records, _ := normalizer.Normalize(table, mapping, []int{0, 1, 2})
	require.Len(t, records, 3)

	assert.Equal(t, domain.LeaseStatusOccupied, records[0].LeaseStatus)
	assert.Equal(t, domain.LeaseStatusVacant, records[1].LeaseStatus)
	assert.Equal(t, domain.LeaseStatusVacant, records[2].LeaseStatus)
}
