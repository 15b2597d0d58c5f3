package valuation

import (
	"log/slog"
	"math"

	"dealbase/internal/config"
	apierrors "dealbase/internal/errors"
	"dealbase/pkg/contracts/domain"
)

// Named assumption keys. Derived values populate all of them; callers may
// override any subset by name.
const (
	KeyPurchasePrice    = "purchase_price"
	KeyCapRate          = "cap_rate"
	KeyLoanAmount       = "loan_amount"
	KeyLTVRatio         = "ltv_ratio"
	KeyInterestRate     = "interest_rate"
	KeyExitCapRate      = "exit_cap_rate"
	KeyHoldPeriodYears  = "hold_period_years"
	KeyVacancyRate      = "vacancy_rate"
	KeyMarketRentGrowth = "market_rent_growth"
	KeyNOI              = "noi"
	KeyEGI              = "egi"
	KeyExpenseRatio     = "expense_ratio"
	KeyTotalUnits       = "total_units"
	KeyOccupancyRate    = "occupancy_rate"
	KeyTotalSquareFeet  = "total_square_feet"
	KeyTotalAnnualRent  = "total_annual_rent"
	KeyAvgActualRent    = "avg_actual_rent"
	KeyAvgMarketRent    = "avg_market_rent"
	KeyProFormaRent     = "pro_forma_rent"
)

// Engine derives valuation assumptions from a deal's data and computes the
// KPI vector. All computation is pure; the engine holds only defaults.
type Engine struct {
	cfg    config.ValuationConfig
	logger *slog.Logger
}

// NewEngine creates an engine with the given default assumptions.
func NewEngine(cfg config.ValuationConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger.With(slog.String("component", "valuation_engine"))}
}

// DeriveAssumptions builds the baseline assumption set from the deal's
// period financials and unit records. At least one financial period is
// required; units are optional and only enrich the per-unit figures.
func (e *Engine) DeriveAssumptions(dealID int64, periods []domain.FinancialPeriod, units []domain.UnitRecord, groups []domain.UnitMixGroup) (domain.Assumptions, error) {
	if len(periods) == 0 {
		return nil, apierrors.MissingFinancialData(dealID)
	}

	var noiSum, incomeSum float64
	for _, p := range periods {
		noiSum += p.NetOperatingIncome
		incomeSum += p.TotalIncome
	}
	months := float64(len(periods))
	noi := noiSum / months * 12
	egi := incomeSum / months * 12

	price := safeDiv(noi, e.cfg.DefaultCapRate)
	a := domain.Assumptions{
		KeyNOI:              noi,
		KeyEGI:              egi,
		KeyExpenseRatio:     safeDiv(egi-noi, egi),
		KeyPurchasePrice:    price,
		KeyCapRate:          e.cfg.DefaultCapRate,
		KeyLoanAmount:       price * e.cfg.DefaultLTVRatio,
		KeyLTVRatio:         e.cfg.DefaultLTVRatio,
		KeyInterestRate:     e.cfg.DefaultInterestRate,
		KeyExitCapRate:      e.cfg.DefaultExitCapRate,
		KeyHoldPeriodYears:  e.cfg.DefaultHoldPeriodYears,
		KeyVacancyRate:      e.cfg.DefaultVacancyRate,
		KeyMarketRentGrowth: e.cfg.DefaultMarketRentGrowth,
	}

	if len(units) > 0 {
		var actualSum, marketSum, sqftSum float64
		occupied := 0
		for _, u := range units {
			actualSum += u.ActualRent
			marketSum += u.MarketRent
			if u.SquareFeet != nil {
				sqftSum += float64(*u.SquareFeet)
			}
			if u.Occupied() {
				occupied++
			}
		}
		n := float64(len(units))
		a[KeyTotalUnits] = n
		a[KeyOccupancyRate] = float64(occupied) / n
		a[KeyTotalSquareFeet] = sqftSum
		a[KeyTotalAnnualRent] = actualSum * 12
		a[KeyAvgActualRent] = actualSum / n
		a[KeyAvgMarketRent] = marketSum / n
		a[KeyProFormaRent] = marketSum / n
	}

	// Per-unit pro forma rents set on the mix override the market average.
	if proForma, ok := proFormaFromGroups(groups); ok {
		a[KeyProFormaRent] = proForma
	}

	e.logger.Debug("derived assumptions",
		slog.Int64("deal_id", dealID),
		slog.Int("periods", len(periods)),
		slog.Int("units", len(units)),
		slog.Float64("noi", noi),
		slog.Float64("implied_price", price))
	return a, nil
}

// proFormaFromGroups returns the unit-weighted average pro forma rent when
// at least one group carries an explicit value.
func proFormaFromGroups(groups []domain.UnitMixGroup) (float64, bool) {
	var total float64
	units := 0
	explicit := false
	for _, g := range groups {
		if g.TotalUnits == 0 {
			continue
		}
		if g.ProFormaRent != nil {
			explicit = true
		}
		total += g.TotalProFormaRent
		units += g.TotalUnits
	}
	if !explicit || units == 0 {
		return 0, false
	}
	return total / float64(units), true
}

// Merge layers caller overrides on top of the derived baseline, key by key.
func (e *Engine) Merge(derived, overrides domain.Assumptions) domain.Assumptions {
	merged := make(domain.Assumptions, len(derived)+len(overrides))
	for k, v := range derived {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// Compute evaluates the full KPI vector over a merged assumption set. Every
// ratio guards its denominator and reports 0 instead of NaN or infinity.
func (e *Engine) Compute(a domain.Assumptions) domain.KPIVector {
	noi := a[KeyNOI]
	egi := a[KeyEGI]
	price := a[KeyPurchasePrice]
	loan := a[KeyLoanAmount]
	hold := a[KeyHoldPeriodYears]

	annualDebtService := loan * a[KeyInterestRate]
	equity := price - loan
	annualCashFlow := noi - annualDebtService

	// Exit is priced off the stabilized pro forma NOI, grown over the hold.
	proFormaNOI := e.proFormaNOI(a)
	exitNOI := proFormaNOI * math.Pow(1+a[KeyMarketRentGrowth], hold)
	exitValue := safeDiv(exitNOI, a[KeyExitCapRate])
	totalReturn := annualCashFlow*hold + exitValue - price

	k := domain.KPIVector{
		NOI:                noi,
		EGI:                egi,
		CapRate:            safeDiv(noi, price),
		LTV:                safeDiv(loan, price),
		AnnualDebtService:  annualDebtService,
		DSCR:               safeDiv(noi, annualDebtService),
		Equity:             equity,
		AnnualCashFlow:     annualCashFlow,
		CashOnCash:         safeDiv(annualCashFlow, equity),
		ProFormaNOI:        proFormaNOI,
		ExitNOI:            exitNOI,
		ExitValue:          exitValue,
		TotalReturn:        totalReturn,
		IRR:                simplifiedIRR(totalReturn, price, hold),
		EquityMultiple:     safeDiv(totalReturn, equity),
		OccupancyRate:      a[KeyOccupancyRate],
		RentPerSquareFoot:  safeDiv(a[KeyTotalAnnualRent], a[KeyTotalSquareFeet]),
		PricePerSquareFoot: safeDiv(price, a[KeyTotalSquareFeet]),
		DebtYield:          safeDiv(noi, loan),
		BreakEvenOccupancy: safeDiv(annualDebtService, a[KeyTotalAnnualRent]),
		DSCRMinimum:        e.cfg.MinimumDSCR,
		LTVMaximum:         e.cfg.MaximumLTV,
	}
	return k
}

// proFormaNOI projects NOI at pro forma rents, stabilized vacancy and the
// current expense ratio.
func (e *Engine) proFormaNOI(a domain.Assumptions) float64 {
	rent := a[KeyProFormaRent]
	units := a[KeyTotalUnits]
	if rent == 0 || units == 0 {
		return a[KeyNOI]
	}
	grossAnnual := rent * units * 12
	proFormaEGI := grossAnnual * (1 - a[KeyVacancyRate])
	return proFormaEGI * (1 - a[KeyExpenseRatio])
}

// simplifiedIRR annualizes the hold-period return against the purchase
// price. Negative and zero bases report 0 rather than a complex root.
func simplifiedIRR(totalReturn, price, hold float64) float64 {
	if price <= 0 || totalReturn <= 0 || hold <= 0 {
		return 0
	}
	return math.Pow(totalReturn/price, 1/hold) - 1
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
