package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealbase/internal/config"
	apierrors "dealbase/internal/errors"
	"dealbase/pkg/contracts/domain"
)

// twelveMonths builds a flat T-12 with the given monthly figures.
func twelveMonths(totalIncome, expenses float64) []domain.FinancialPeriod {
	periods := make([]domain.FinancialPeriod, 0, 12)
	for month := 1; month <= 12; month++ {
		periods = append(periods, domain.FinancialPeriod{
			Month:              month,
			Year:               2025,
			GrossRent:          totalIncome,
			TotalIncome:        totalIncome,
			OperatingExpenses:  expenses,
			NetOperatingIncome: totalIncome - expenses,
		})
	}
	return periods
}

func TestDeriveAssumptionsRequiresFinancials(t *testing.T) {
	engine := NewEngine(config.DefaultValuation(), nil)

	_, err := engine.DeriveAssumptions(9, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeMissingFinancialData))
}

func TestDeriveAssumptions(t *testing.T) {
	engine := NewEngine(config.DefaultValuation(), nil)
	sqft := 900
	units := []domain.UnitRecord{
		{ActualRent: 1500, MarketRent: 1600, SquareFeet: &sqft, LeaseStatus: domain.LeaseStatusOccupied},
		{ActualRent: 1300, MarketRent: 1400, SquareFeet: &sqft, LeaseStatus: domain.LeaseStatusVacant},
	}

	a, err := engine.DeriveAssumptions(9, twelveMonths(18000, 8000), units, nil)
	require.NoError(t, err)

	assert.InDelta(t, 120000, a[KeyNOI], 0.01)
	assert.InDelta(t, 216000, a[KeyEGI], 0.01)
	assert.InDelta(t, 96000.0/216000.0, a[KeyExpenseRatio], 0.0001)
	// Implied price at the default cap rate, levered at the default LTV.
	assert.InDelta(t, 2181818.18, a[KeyPurchasePrice], 1)
	assert.InDelta(t, 1745454.55, a[KeyLoanAmount], 1)
	assert.InDelta(t, 0.055, a[KeyCapRate], 0.0001)

	assert.InDelta(t, 2, a[KeyTotalUnits], 0.001)
	assert.InDelta(t, 0.5, a[KeyOccupancyRate], 0.001)
	assert.InDelta(t, 1800, a[KeyTotalSquareFeet], 0.001)
	assert.InDelta(t, 1400, a[KeyAvgActualRent], 0.001)
	assert.InDelta(t, 1500, a[KeyAvgMarketRent], 0.001)
	assert.InDelta(t, 1500, a[KeyProFormaRent], 0.001)
}

func TestDeriveAssumptionsProFormaFromGroups(t *testing.T) {
	engine := NewEngine(config.DefaultValuation(), nil)
	proForma := 1700.0
	groups := []domain.UnitMixGroup{
		{TotalUnits: 2, ProFormaRent: &proForma, TotalProFormaRent: 3400},
	}

	a, err := engine.DeriveAssumptions(9, twelveMonths(18000, 8000), nil, groups)
	require.NoError(t, err)
	assert.InDelta(t, 1700, a[KeyProFormaRent], 0.001)
}

func TestMergeOverridesWin(t *testing.T) {
	engine := NewEngine(config.DefaultValuation(), nil)

	merged := engine.Merge(
		domain.Assumptions{KeyCapRate: 0.055, KeyNOI: 120000},
		domain.Assumptions{KeyCapRate: 0.06},
	)
	assert.InDelta(t, 0.06, merged[KeyCapRate], 0.0001)
	assert.InDelta(t, 120000, merged[KeyNOI], 0.001)
}

func TestComputeKPIs(t *testing.T) {
	engine := NewEngine(config.DefaultValuation(), nil)

	a, err := engine.DeriveAssumptions(9, twelveMonths(18000, 8000), nil, nil)
	require.NoError(t, err)
	k := engine.Compute(a)

	assert.InDelta(t, 120000, k.NOI, 0.01)
	assert.InDelta(t, 0.055, k.CapRate, 0.0001)
	assert.InDelta(t, 0.80, k.LTV, 0.0001)
	assert.InDelta(t, 87272.73, k.AnnualDebtService, 1)
	assert.InDelta(t, 120000/87272.73, k.DSCR, 0.001)
	assert.InDelta(t, 436363.64, k.Equity, 1)
	assert.InDelta(t, 32727.27, k.AnnualCashFlow, 1)
	assert.InDelta(t, 32727.27/436363.64, k.CashOnCash, 0.001)
	// With no units the pro forma falls back to the in-place NOI, so the
	// exit is that NOI grown at 3% over the 5-year hold.
	assert.InDelta(t, 120000, k.ProFormaNOI, 0.01)
	assert.InDelta(t, 139112.89, k.ExitNOI, 1)
	assert.InDelta(t, 2529325.25, k.ExitValue, 2)
	assert.InDelta(t, 511143.43, k.TotalReturn, 2)
	assert.InDelta(t, -0.2519, k.IRR, 0.001)
	assert.InDelta(t, 1.1714, k.EquityMultiple, 0.001)
	assert.InDelta(t, 120000/1745454.55, k.DebtYield, 0.001)
	assert.Zero(t, k.BreakEvenOccupancy, "no unit rents known")
	assert.InDelta(t, 1.25, k.DSCRMinimum, 0.0001)
	assert.InDelta(t, 0.80, k.LTVMaximum, 0.0001)
}

func TestComputeExitFromProFormaNOI(t *testing.T) {
	engine := NewEngine(config.DefaultValuation(), nil)

	a := domain.Assumptions{
		KeyNOI:              100000,
		KeyEGI:              200000,
		KeyExpenseRatio:     0.5,
		KeyPurchasePrice:    1000000,
		KeyLoanAmount:       800000,
		KeyInterestRate:     0.05,
		KeyExitCapRate:      0.06,
		KeyHoldPeriodYears:  5,
		KeyVacancyRate:      0.05,
		KeyMarketRentGrowth: 0.03,
		KeyProFormaRent:     1000,
		KeyTotalUnits:       10,
	}
	k := engine.Compute(a)

	// 1000 × 10 units × 12 × (1−0.05) × (1−0.5).
	assert.InDelta(t, 57000, k.ProFormaNOI, 0.01)
	assert.InDelta(t, 66078.62, k.ExitNOI, 1)
	assert.InDelta(t, 1101310.37, k.ExitValue, 1)
	// 60000 cash flow × 5 + exit value − purchase price.
	assert.InDelta(t, 401310.37, k.TotalReturn, 1)
}

func TestComputeBreakEvenOccupancy(t *testing.T) {
	engine := NewEngine(config.DefaultValuation(), nil)
	units := []domain.UnitRecord{
		{ActualRent: 1500, MarketRent: 1600, LeaseStatus: domain.LeaseStatusOccupied},
		{ActualRent: 1300, MarketRent: 1400, LeaseStatus: domain.LeaseStatusOccupied},
	}

	a, err := engine.DeriveAssumptions(9, twelveMonths(18000, 8000), units, nil)
	require.NoError(t, err)
	k := engine.Compute(a)

	// Debt service over annual actual rent (2800 × 12 = 33600).
	assert.InDelta(t, 87272.73/33600.0, k.BreakEvenOccupancy, 0.001)
}

func TestComputeZeroDenominators(t *testing.T) {
	engine := NewEngine(config.DefaultValuation(), nil)

	// A deal whose income exactly covers expenses: NOI 0 implies price 0,
	// and every ratio must report 0 rather than NaN or infinity.
	a, err := engine.DeriveAssumptions(9, twelveMonths(8000, 8000), nil, nil)
	require.NoError(t, err)
	k := engine.Compute(a)

	assert.Zero(t, k.CapRate)
	assert.Zero(t, k.LTV)
	assert.Zero(t, k.DSCR)
	assert.Zero(t, k.CashOnCash)
	assert.Zero(t, k.IRR)
	assert.Zero(t, k.EquityMultiple)
	assert.Zero(t, k.PricePerSquareFoot)
	assert.Zero(t, k.RentPerSquareFoot)
	assert.Zero(t, k.DebtYield)
}

func TestComputeOverriddenPrice(t *testing.T) {
	engine := NewEngine(config.DefaultValuation(), nil)

	derived, err := engine.DeriveAssumptions(9, twelveMonths(18000, 8000), nil, nil)
	require.NoError(t, err)
	merged := engine.Merge(derived, domain.Assumptions{
		KeyPurchasePrice: 2000000,
		KeyLoanAmount:    1500000,
	})
	k := engine.Compute(merged)

	assert.InDelta(t, 0.06, k.CapRate, 0.0001)
	assert.InDelta(t, 0.75, k.LTV, 0.0001)
}
