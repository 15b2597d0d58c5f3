package rentroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealbase/internal/config"
	"dealbase/internal/tabular"
)

func classifierTable(t *testing.T, rows [][]string) (*tabular.Table, Mapping) {
	t.Helper()
	table := &tabular.Table{
		Header: []string{"Unit", "Type", "SF", "Rent", "Status"},
		Rows:   rows,
	}
	mapping, _, err := MapColumns(table.Header)
	require.NoError(t, err)
	return table, mapping
}

func TestClassifyDropRules(t *testing.T) {
	table, mapping := classifierTable(t, [][]string{
		{"101", "2BR", "1100", "1500", "Occupied"},
		{"", "", "", "", ""},
		{"102", "1BR", "700", "1400", "Vacant"},
		{"Total", "", "", "45000", ""},
		{"103", "1BR", "720", "0", "Applicant"},
		{"nan", "2BR", "800", "950", "Occupied"},
	})

	classifier := NewClassifier(config.DefaultParser())
	kept, dropped := classifier.Classify(table, mapping)

	assert.Equal(t, []int{0, 2}, kept)
	assert.Equal(t, 1, dropped.Blank)
	assert.Equal(t, 1, dropped.Total)
	assert.Equal(t, 1, dropped.Applicant)
	assert.Equal(t, 1, dropped.MissingUnitNumber)
	assert.Zero(t, dropped.HeaderRepeat)
}

func TestClassifyHeaderRepeats(t *testing.T) {
	// Page-break header rows repeat often enough here that the type and
	// status columns cross the keyword ratio and flag them.
	table, mapping := classifierTable(t, [][]string{
		{"101", "2BR", "1100", "1500", "Occupied"},
		{"Unit", "Type", "SF", "Rent", "Status"},
		{"102", "1BR", "700", "1400", "Vacant"},
		{"Unit", "Type", "SF", "Rent", "Status"},
	})

	classifier := NewClassifier(config.DefaultParser())
	kept, dropped := classifier.Classify(table, mapping)

	assert.Equal(t, []int{0, 2}, kept)
	assert.Equal(t, 2, dropped.HeaderRepeat)
	// The repeated header rows also carry an unparsable rent cell, so
	// they count under applicant as well.
	assert.Equal(t, 2, dropped.Applicant)
}

func TestClassifyTotalsByRentHeuristic(t *testing.T) {
	// No totals keyword anywhere; the round five-figure rent alone flags
	// the aggregate row.
	table, mapping := classifierTable(t, [][]string{
		{"101", "2BR", "1100", "1500", "Occupied"},
		{"999", "", "", "45000", ""},
	})

	classifier := NewClassifier(config.DefaultParser())
	kept, dropped := classifier.Classify(table, mapping)

	assert.Equal(t, []int{0}, kept)
	assert.Equal(t, 1, dropped.Total)
}

func TestClassifyRoundRentBelowFloorKept(t *testing.T) {
	// A 1000-multiple rent below the floor is a legitimate unit rent.
	table, mapping := classifierTable(t, [][]string{
		{"101", "2BR", "1100", "2000", "Occupied"},
	})

	classifier := NewClassifier(config.DefaultParser())
	kept, dropped := classifier.Classify(table, mapping)

	assert.Equal(t, []int{0}, kept)
	assert.Zero(t, dropped.Total)
}

func TestClassifyVacantWithMarketRentKept(t *testing.T) {
	// A vacant unit with zero actual rent survives when the market rent
	// column carries a value.
	table := &tabular.Table{
		Header: []string{"Unit", "Actual Rent", "Market Rent", "Status"},
		Rows: [][]string{
			{"101", "0", "1500", "Vacant"},
		},
	}
	mapping, _, err := MapColumns(table.Header)
	require.NoError(t, err)

	classifier := NewClassifier(config.DefaultParser())
	kept, dropped := classifier.Classify(table, mapping)

	assert.Equal(t, []int{0}, kept)
	assert.Zero(t, dropped.Applicant)
}

func TestClassifyNumericColumnExemptFromHeaderRepeat(t *testing.T) {
	// A mostly-numeric column never flags header repeats even when a few
	// of its values look like keywords.
	table, mapping := classifierTable(t, [][]string{
		{"101", "2BR", "1100", "1500", "Occupied"},
		{"102", "2BR", "1100", "1500", "Occupied"},
		{"103", "2BR", "1100", "1500", "Occupied"},
		{"104", "2BR", "1100", "1500", "Occupied"},
	})

	classifier := NewClassifier(config.DefaultParser())
	kept, dropped := classifier.Classify(table, mapping)

	assert.Len(t, kept, 4)
	assert.Zero(t, dropped.HeaderRepeat)
}
