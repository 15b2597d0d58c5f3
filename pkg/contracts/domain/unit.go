package domain

import "time"

// Lease status classifications a normalized unit record may carry.
const (
	LeaseStatusOccupied = "occupied"
	LeaseStatusVacant   = "vacant"
	LeaseStatusOther    = "other"
)

// UnitRecord is one normalized rent roll row. Pointer fields are null when
// the source file had no usable value; non-pointer fields always carry a
// default instead.
type UnitRecord struct {
	ID              int64      `json:"id,omitempty"`
	DealID          int64      `json:"deal_id"`
	UnitNumber      string     `json:"unit_number"`
	UnitLabel       *string    `json:"unit_label,omitempty"`
	UnitType        string     `json:"unit_type"`
	SquareFeet      *int       `json:"square_feet,omitempty"`
	Bedrooms        *int       `json:"bedrooms,omitempty"`
	Bathrooms       *float64   `json:"bathrooms,omitempty"`
	ActualRent      float64    `json:"actual_rent"`
	MarketRent      float64    `json:"market_rent"`
	LeaseStart      *time.Time `json:"lease_start,omitempty"`
	MoveInDate      *time.Time `json:"move_in_date,omitempty"`
	LeaseExpiration *time.Time `json:"lease_expiration,omitempty"`
	TenantName      string     `json:"tenant_name,omitempty"`
	LeaseStatus     string     `json:"lease_status"`
	IsDuplicate     bool       `json:"is_duplicate"`
	IsApplication   bool       `json:"is_application"`
	DataSource      string     `json:"data_source"`
}

// Occupied reports whether the record's lease status is occupied.
func (u *UnitRecord) Occupied() bool {
	return u.LeaseStatus == LeaseStatusOccupied
}

// LeaseActiveAt reports whether the unit's lease window contains t. A record
// with no lease dates is never active.
func (u *UnitRecord) LeaseActiveAt(t time.Time) bool {
	if u.LeaseStart == nil {
		return false
	}
	if u.LeaseStart.After(t) {
		return false
	}
	if u.LeaseExpiration != nil && u.LeaseExpiration.Before(t) {
		return false
	}
	return true
}
