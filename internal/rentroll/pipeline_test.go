package rentroll

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealbase/internal/config"
	apierrors "dealbase/internal/errors"
	"dealbase/internal/tabular"
)

func TestParseEndToEnd(t *testing.T) {
	csv := "Unit,Type,SF,Actual Rent,Market Rent,Status\n" +
		"101,2BR,1100,1500,1550,Occupied\n" +
		"101,2BR,1100,0,1550,Vacant\n" +
		",,,,,\n" +
		"102,1BR,700,1400,1450,Occupied\n" +
		"Total,,,45000,,\n" +
		"103,1BR,720,0,,Applicant\n"

	parser := NewParser(config.DefaultParser(), nil)
	result, err := parser.Parse(context.Background(), []byte(csv), tabular.KindCSV)
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	assert.Equal(t, "101", result.Records[0].UnitNumber)
	// The occupied row with rent wins the duplicate resolution.
	assert.Equal(t, 1500.0, result.Records[0].ActualRent)
	assert.True(t, result.Records[0].IsDuplicate)
	assert.Equal(t, "102", result.Records[1].UnitNumber)

	summary := result.Summary
	assert.Equal(t, 6, summary.TotalRowsRead)
	assert.Equal(t, 1, summary.RowsDropped.Blank)
	assert.Equal(t, 1, summary.RowsDropped.Total)
	assert.Equal(t, 1, summary.RowsDropped.Applicant)
	assert.Equal(t, 1, summary.RowsDropped.DuplicateResolved)
	assert.Equal(t, 2, summary.FinalUniqueUnits)
	require.Len(t, summary.DuplicateResolutionExamples, 1)
	assert.Equal(t, "101", summary.DuplicateResolutionExamples[0].UnitNumber)

	assert.Equal(t, "Unit", result.ColumnMapping[FieldUnitNumber])
	assert.Equal(t, "Actual Rent", result.ColumnMapping[FieldActualRent])
	assert.NotEmpty(t, result.Issues)
}

func TestParseDeterministic(t *testing.T) {
	csv := "Unit,Type,SF,Rent,Status\n" +
		"101,2BR,1100,1500,Occupied\n" +
		"102,1BR,700,1400,Vacant\n"

	parser := NewParser(config.DefaultParser(), nil)
	first, err := parser.Parse(context.Background(), []byte(csv), tabular.KindCSV)
	require.NoError(t, err)
	second, err := parser.Parse(context.Background(), []byte(csv), tabular.KindCSV)
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestParseUnmappableSchema(t *testing.T) {
	csv := "Name,Address,Phone\nAlice,1 Main St,555-0100\n"

	parser := NewParser(config.DefaultParser(), nil)
	_, err := parser.Parse(context.Background(), []byte(csv), tabular.KindCSV)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnmappableSchema))
}

func TestParseNoUnitRowsRemaining(t *testing.T) {
	csv := "Unit,Type,SF,Rent,Status\n" +
		",,,,\n" +
		"Total,,,45000,\n"

	parser := NewParser(config.DefaultParser(), nil)
	_, err := parser.Parse(context.Background(), []byte(csv), tabular.KindCSV)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeNoUnitRowsRemaining))

	apiErr := apierrors.AsAPIError(err)
	assert.Equal(t, 422, apiErr.StatusCode)
}

func TestParseCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	parser := NewParser(config.DefaultParser(), nil)
	_, err := parser.Parse(ctx, []byte("Unit,Rent\n101,1500\n"), tabular.KindCSV)
	assert.ErrorIs(t, err, context.Canceled)
}
