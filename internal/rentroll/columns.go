package rentroll

import (
	"fmt"
	"strings"

	apierrors "dealbase/internal/errors"
	"dealbase/pkg/contracts/domain"
)

// Canonical field names the mapper can resolve source columns onto.
const (
	FieldUnitNumber      = "unit_number"
	FieldUnitType        = "unit_type"
	FieldUnitLabel       = "unit_label"
	FieldSquareFeet      = "square_feet"
	FieldBedrooms        = "bedrooms"
	FieldBathrooms       = "bathrooms"
	FieldActualRent      = "actual_rent"
	FieldMarketRent      = "market_rent"
	FieldLeaseStart      = "lease_start"
	FieldLeaseExpiration = "lease_expiration"
	FieldTenantName      = "tenant_name"
	FieldLeaseStatus     = "lease_status"
)

// fieldPatterns is the ordered list of (canonical field, substring pattern
// list) pairs driving auto-detection. A match scores the pattern length plus
// one when the column label starts with the pattern; the highest score per
// field wins. Order within a list matters only for equal scores.
var fieldPatterns = []struct {
	field    string
	patterns []string
}{
	{FieldUnitNumber, []string{"unit", "apt", "apartment", "suite", "number", "unit_number", "unit number"}},
	{FieldUnitType, []string{"type", "bedroom", "bed", "br", "unit_type", "unit type"}},
	{FieldSquareFeet, []string{"sqft", "sq_ft", "sf", "square", "size", "area", "square feet"}},
	{FieldBedrooms, []string{"bedroom", "bed", "br", "beds"}},
	{FieldBathrooms, []string{"bath", "bathroom", "ba", "baths"}},
	{FieldActualRent, []string{"rent", "actual", "current", "in_place", "inplace", "paid", "amount", "market"}},
	{FieldMarketRent, []string{"market", "asking", "target", "proforma", "pro_forma", "market rent"}},
	{FieldLeaseStart, []string{"start", "begin", "commence", "move_in", "movein", "lease start"}},
	{FieldLeaseExpiration, []string{"end", "expire", "expiration", "expiry", "termination", "lease end"}},
	{FieldTenantName, []string{"tenant", "resident", "occupant", "lessee", "name"}},
	{FieldLeaseStatus, []string{"status", "occupied", "vacant", "available"}},
}

// unitLabelPriority is the exact-match priority list for unit_label. Unlike
// the substring patterns above, a label column is only accepted on a full
// case-insensitive match, evaluated in this order, so unit_label does not
// collide with unit_type on partial matches.
var unitLabelPriority = []string{"unit label", "floorplan", "plan", "unit type"}

// Column points a canonical field at one source column.
type Column struct {
	Index int
	Label string
}

// Mapping resolves canonical fields to source columns. At most one source
// column per field; a field absent from the map simply was not detected.
type Mapping map[string]Column

// Has reports whether the canonical field was detected.
func (m Mapping) Has(field string) bool {
	_, ok := m[field]
	return ok
}

// Index returns the source column index for field.
func (m Mapping) Index(field string) (int, bool) {
	c, ok := m[field]
	return c.Index, ok
}

// Labels returns the field → source label view surfaced in reports.
func (m Mapping) Labels() map[string]string {
	out := make(map[string]string, len(m))
	for field, col := range m {
		out[field] = col.Label
	}
	return out
}

// MapColumns detects the column mapping for a rent roll header. It fails
// with UnmappableSchema when unit_number is absent, or when neither rent
// field could be located.
func MapColumns(header []string) (Mapping, []domain.Issue, error) {
	lowered := make([]string, len(header))
	for i, label := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(label))
	}

	mapping := make(Mapping)
	var issues []domain.Issue

	for _, fp := range fieldPatterns {
		bestScore := 0
		bestIdx := -1
		// Patterns are iterated outermost so that on equal scores an
		// earlier, more specific pattern beats a later catch-all one.
		for _, pattern := range fp.patterns {
			for i, col := range lowered {
				if col == "" || !strings.Contains(col, pattern) {
					continue
				}
				score := len(pattern)
				if strings.HasPrefix(col, pattern) {
					score++
				}
				if score > bestScore {
					bestScore = score
					bestIdx = i
				}
			}
		}
		if bestIdx >= 0 {
			mapping[fp.field] = Column{Index: bestIdx, Label: header[bestIdx]}
			issues = append(issues, domain.Issue{
				Type:     domain.IssueInfo,
				Message:  fmt.Sprintf("Mapped %s to column %q", fp.field, header[bestIdx]),
				Severity: domain.SeverityLow,
			})
		} else {
			issues = append(issues, domain.Issue{
				Type:     domain.IssueWarning,
				Message:  fmt.Sprintf("Could not detect a column for %s", fp.field),
				Severity: domain.SeverityMedium,
			})
		}
	}

	for _, priority := range unitLabelPriority {
		found := false
		for i, col := range lowered {
			if col == priority {
				mapping[FieldUnitLabel] = Column{Index: i, Label: header[i]}
				issues = append(issues, domain.Issue{
					Type:     domain.IssueInfo,
					Message:  fmt.Sprintf("Mapped unit_label to column %q (priority %q)", header[i], priority),
					Severity: domain.SeverityLow,
				})
				found = true
				break
			}
		}
		if found {
			break
		}
	}

	if !mapping.Has(FieldUnitNumber) {
		return nil, issues, apierrors.UnmappableSchema(FieldUnitNumber)
	}
	if !mapping.Has(FieldActualRent) && !mapping.Has(FieldMarketRent) {
		return nil, issues, apierrors.UnmappableSchema(FieldActualRent, FieldMarketRent)
	}

	return mapping, issues, nil
}
