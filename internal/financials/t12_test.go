package financials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealbase/internal/config"
	apierrors "dealbase/internal/errors"
	"dealbase/internal/tabular"
)

func TestParseT12(t *testing.T) {
	csv := "Month,Year,Gross Rent,Other Income,Operating Expenses\n" +
		"1,2025,\"$18,000\",500,\"$8,000\"\n" +
		"2,2025,18200,500,8100\n" +
		"summary row,,,,\n"

	parser := NewParser(config.DefaultParser(), nil)
	periods, report, err := parser.Parse(context.Background(), []byte(csv), tabular.KindCSV)
	require.NoError(t, err)
	require.Len(t, periods, 2)

	first := periods[0]
	assert.Equal(t, 1, first.Month)
	assert.Equal(t, 2025, first.Year)
	assert.InDelta(t, 18000, first.GrossRent, 0.001)
	assert.InDelta(t, 500, first.OtherIncome, 0.001)
	assert.InDelta(t, 18500, first.TotalIncome, 0.001)
	assert.InDelta(t, 8000, first.OperatingExpenses, 0.001)
	assert.InDelta(t, 10500, first.NetOperatingIncome, 0.001)

	require.NotNil(t, report)
	assert.Equal(t, 2, report.PeriodCount)
	assert.Equal(t, 1, report.SkippedRows)
	assert.Equal(t, 2025, report.YearMin)
	assert.Equal(t, 2025, report.YearMax)
	assert.Zero(t, report.MissingOtherIncome)
	assert.Zero(t, report.NegativeNOIMonths)

	// The unparsable summary row is skipped with a warning.
	found := false
	for _, issue := range report.Issues {
		if issue.Type == "warning" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestParseT12ReportFlags(t *testing.T) {
	csv := "Month,Year,Gross Rent,Other Income,Operating Expenses\n" +
		"12,2024,18000,,8000\n" +
		"1,2025,7000,200,8000\n"

	parser := NewParser(config.DefaultParser(), nil)
	periods, report, err := parser.Parse(context.Background(), []byte(csv), tabular.KindCSV)
	require.NoError(t, err)
	require.Len(t, periods, 2)

	require.NotNil(t, report)
	assert.Equal(t, 2024, report.YearMin)
	assert.Equal(t, 2025, report.YearMax)
	// December has a blank other-income cell; January runs at a loss.
	assert.Equal(t, 1, report.MissingOtherIncome)
	assert.Equal(t, 1, report.NegativeNOIMonths)
	assert.InDelta(t, -800, periods[1].NetOperatingIncome, 0.001)
}

func TestParseT12WithoutOtherIncome(t *testing.T) {
	csv := "Month,Year,Gross_Rent,Operating_Expenses\n3,2025,18000,8000\n"

	parser := NewParser(config.DefaultParser(), nil)
	periods, _, err := parser.Parse(context.Background(), []byte(csv), tabular.KindCSV)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Zero(t, periods[0].OtherIncome)
	assert.InDelta(t, 18000, periods[0].TotalIncome, 0.001)
	assert.InDelta(t, 10000, periods[0].NetOperatingIncome, 0.001)
}

func TestParseT12MissingRequiredColumns(t *testing.T) {
	csv := "Month,Gross Rent\n1,18000\n"

	parser := NewParser(config.DefaultParser(), nil)
	_, _, err := parser.Parse(context.Background(), []byte(csv), tabular.KindCSV)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnmappableSchema))
}

func TestParseT12RejectsInvalidMonths(t *testing.T) {
	csv := "Month,Year,Gross Rent,Operating Expenses\n13,2025,18000,8000\n"

	parser := NewParser(config.DefaultParser(), nil)
	_, _, err := parser.Parse(context.Background(), []byte(csv), tabular.KindCSV)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnreadableFile))
}
