package domain

import "time"

// Assumptions is the flat named-scalar set a valuation runs over. Derived
// values fill it first; caller overrides win key by key.
type Assumptions map[string]float64

// KPIVector is the full output of one valuation computation. Every ratio
// with a zero denominator is reported as 0 rather than NaN or infinity.
type KPIVector struct {
	NOI                float64 `json:"noi"`
	EGI                float64 `json:"egi"`
	CapRate            float64 `json:"cap_rate"`
	LTV                float64 `json:"ltv"`
	AnnualDebtService  float64 `json:"annual_debt_service"`
	DSCR               float64 `json:"dscr"`
	Equity             float64 `json:"equity"`
	AnnualCashFlow     float64 `json:"annual_cash_flow"`
	CashOnCash         float64 `json:"cash_on_cash"`
	ProFormaNOI        float64 `json:"pro_forma_noi"`
	ExitNOI            float64 `json:"exit_noi"`
	ExitValue          float64 `json:"exit_value"`
	TotalReturn        float64 `json:"total_return"`
	IRR                float64 `json:"irr"`
	EquityMultiple     float64 `json:"equity_multiple"`
	OccupancyRate      float64 `json:"occupancy_rate"`
	RentPerSquareFoot  float64 `json:"rent_per_square_foot"`
	PricePerSquareFoot float64 `json:"price_per_square_foot"`
	DebtYield          float64 `json:"debt_yield"`
	BreakEvenOccupancy float64 `json:"break_even_occupancy"`
	DSCRMinimum        float64 `json:"dscr_minimum"`
	LTVMaximum         float64 `json:"ltv_maximum"`
}

// Valuation run states.
const (
	ValuationStatusCompleted = "completed"
	ValuationStatusFailed    = "failed"
)

// ValuationRun is one persisted valuation: the merged assumptions it ran
// with and the KPI vector it produced.
type ValuationRun struct {
	ID          string      `json:"id"`
	DealID      int64       `json:"deal_id"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	Assumptions Assumptions `json:"assumptions"`
	KPIs        KPIVector   `json:"kpis"`
	CreatedAt   time.Time   `json:"created_at"`
}
