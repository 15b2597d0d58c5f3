package domain

// FinancialPeriod is one month of trailing operating results, typically
// loaded from a T-12 statement. NetOperatingIncome is derived at intake and
// stored, never recomputed downstream.
type FinancialPeriod struct {
	ID                 int64   `json:"id,omitempty"`
	DealID             int64   `json:"deal_id"`
	Month              int     `json:"month"`
	Year               int     `json:"year"`
	GrossRent          float64 `json:"gross_rent"`
	OtherIncome        float64 `json:"other_income"`
	TotalIncome        float64 `json:"total_income"`
	OperatingExpenses  float64 `json:"operating_expenses"`
	NetOperatingIncome float64 `json:"net_operating_income"`
}
