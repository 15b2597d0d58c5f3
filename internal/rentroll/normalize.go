package rentroll

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dealbase/internal/config"
	"dealbase/internal/tabular"
	"dealbase/pkg/contracts/domain"
)

// trailingZeroDecimal matches numbers that picked up a float artifact on the
// way through a spreadsheet, e.g. "101.0". Leading zeros are preserved.
var trailingZeroDecimal = regexp.MustCompile(`^(\d+)\.0+$`)

// unitLabelInvalid strips everything outside the canonical label alphabet.
var unitLabelInvalid = regexp.MustCompile(`[^A-Z0-9_-]`)

const maxUnitLabelLen = 16

// dateLayouts tried in order when coercing lease date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
	"2006/01/02",
	"Jan 2, 2006",
	"2-Jan-06",
	"Jan-06",
}

// CleanUnitNumber trims the raw identity cell and strips a trailing ".0"
// float artifact from numeric-looking values.
func CleanUnitNumber(s string) string {
	s = strings.TrimSpace(s)
	if m := trailingZeroDecimal.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// CleanUnitLabel canonicalizes a floorplan label: trim, uppercase, truncate,
// strip invalid characters. Returns nil for empty and placeholder values.
func CleanUnitLabel(s string) *string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || placeholderValues[strings.ToLower(s)] {
		return nil
	}
	if len(s) > maxUnitLabelLen {
		s = s[:maxUnitLabelLen]
	}
	s = unitLabelInvalid.ReplaceAllString(s, "")
	if s == "" {
		return nil
	}
	return &s
}

// parseNumber coerces a spreadsheet cell to a float, tolerating currency
// formatting. Parenthesized values are treated as negative.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || placeholderValues[strings.ToLower(s)] {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// parseDate coerces a cell to a date using the known layouts, nil on failure.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || placeholderValues[strings.ToLower(s)] {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// inferUnitTypeFromBedrooms maps a bedroom count to a display type. Counts
// outside [0, 5] are rejected as implausible.
func inferUnitTypeFromBedrooms(n int) (string, bool) {
	if n < 0 || n > 5 {
		return "", false
	}
	if n == 0 {
		return "Studio", true
	}
	return fmt.Sprintf("%dBR", n), true
}

// inferUnitTypeFromSqft bins a square footage into a display type.
func inferUnitTypeFromSqft(sqft int) string {
	switch {
	case sqft <= 0:
		return ""
	case sqft < 500:
		return "Studio"
	case sqft < 800:
		return "1BR"
	case sqft < 1200:
		return "2BR"
	case sqft < 1600:
		return "3BR"
	default:
		return "4BR+"
	}
}

// Normalizer coerces classified table rows into unit records, tracking every
// silent default for the validation report.
type Normalizer struct {
	cfg    config.ParserConfig
	logger *slog.Logger
}

// NewNormalizer creates a normalizer with the given thresholds.
func NewNormalizer(cfg config.ParserConfig, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{cfg: cfg, logger: logger.With(slog.String("component", "rentroll_normalizer"))}
}

// Normalize converts the kept rows of t into unit records, in row order. The
// returned validation report counts the coercions that fell back to nulls or
// defaults; none of them abort the parse.
func (n *Normalizer) Normalize(t *tabular.Table, m Mapping, kept []int) ([]domain.UnitRecord, domain.ValidationReport) {
	records := make([]domain.UnitRecord, 0, len(kept))
	var (
		sqftNulls     int
		bathroomNulls int
		dateNulls     int
		zeroRents     int
		typeUnknowns  int
	)

	cell := func(row int, field string) (string, bool) {
		col, ok := m.Index(field)
		if !ok {
			return "", false
		}
		return t.Cell(row, col), true
	}

	for _, row := range kept {
		rec := domain.UnitRecord{
			LeaseStatus: domain.LeaseStatusOther,
			DataSource:  "upload",
		}

		raw, _ := cell(row, FieldUnitNumber)
		rec.UnitNumber = CleanUnitNumber(raw)

		if raw, ok := cell(row, FieldUnitLabel); ok {
			rec.UnitLabel = CleanUnitLabel(raw)
		}

		if raw, ok := cell(row, FieldSquareFeet); ok {
			if v, ok := parseNumber(raw); ok && v > 0 {
				sqft := int(v)
				rec.SquareFeet = &sqft
			} else if raw != "" {
				sqftNulls++
			}
		}

		if raw, ok := cell(row, FieldBedrooms); ok {
			// A mapped bedrooms column always yields a count; unparsable
			// cells default to 0 rather than null.
			beds := 0
			if v, ok := parseNumber(raw); ok && v >= 0 {
				beds = int(v)
			}
			rec.Bedrooms = &beds
		}

		if raw, ok := cell(row, FieldBathrooms); ok {
			if v, ok := parseNumber(raw); ok && v >= 0 && v <= n.cfg.MaxBathrooms {
				rec.Bathrooms = &v
			} else if raw != "" {
				bathroomNulls++
			}
		}

		actualRaw, _ := cell(row, FieldActualRent)
		marketRaw, _ := cell(row, FieldMarketRent)
		actual, actualOK := parseNumber(actualRaw)
		market, marketOK := parseNumber(marketRaw)
		switch {
		case actualOK && marketOK:
			rec.ActualRent, rec.MarketRent = actual, market
		case actualOK:
			rec.ActualRent, rec.MarketRent = actual, actual
		case marketOK:
			rec.ActualRent, rec.MarketRent = market, market
		}
		if rec.ActualRent == 0 {
			zeroRents++
		}

		if raw, ok := cell(row, FieldLeaseStart); ok {
			rec.LeaseStart = parseDate(raw)
			rec.MoveInDate = rec.LeaseStart
			if raw != "" && rec.LeaseStart == nil {
				dateNulls++
			}
		}
		if raw, ok := cell(row, FieldLeaseExpiration); ok {
			rec.LeaseExpiration = parseDate(raw)
			if raw != "" && rec.LeaseExpiration == nil {
				dateNulls++
			}
		}

		if raw, ok := cell(row, FieldTenantName); ok {
			if !placeholderValues[strings.ToLower(strings.TrimSpace(raw))] {
				rec.TenantName = strings.TrimSpace(raw)
			}
		}

		rec.LeaseStatus = n.leaseStatus(row, m, rec.TenantName, cell)
		rec.UnitType = n.unitType(row, m, rec, cell)
		if rec.UnitType == "Unknown" {
			typeUnknowns++
		}

		records = append(records, rec)
	}

	report := domain.ValidationReport{TotalRecords: len(records)}
	addWarning := func(count int, format string) {
		if count > 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf(format, count))
		}
	}
	addWarning(sqftNulls, "%d square footage values could not be parsed and were left null")
	addWarning(bathroomNulls, "%d bathroom values were out of range or unparsable and were left null")
	addWarning(dateNulls, "%d lease dates could not be parsed and were left null")
	addWarning(zeroRents, "%d units have zero actual rent")
	addWarning(typeUnknowns, "%d units could not be assigned a unit type")

	n.logger.Debug("normalized rows",
		slog.Int("records", len(records)),
		slog.Int("warnings", len(report.Warnings)))

	return records, report
}

// leaseStatus normalizes the mapped status cell, or infers occupancy from
// the tenant name when no status column exists.
func (n *Normalizer) leaseStatus(row int, m Mapping, tenantName string, cell func(int, string) (string, bool)) string {
	if raw, ok := cell(row, FieldLeaseStatus); ok {
		lower := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case lower == "":
		case strings.Contains(lower, "occ") || strings.Contains(lower, "current"):
			return domain.LeaseStatusOccupied
		case strings.Contains(lower, "vac") || strings.Contains(lower, "available"):
			return domain.LeaseStatusVacant
		default:
			return domain.LeaseStatusOther
		}
	}
	if tenantName != "" && !strings.Contains(strings.ToLower(tenantName), "vacant") {
		return domain.LeaseStatusOccupied
	}
	return domain.LeaseStatusVacant
}

// unitType resolves the display type: the mapped column wins, then bedroom
// inference, then square footage bins, then "Unknown". When the type field
// landed on the same column as bedrooms the column holds counts, not display
// types, so the cell is skipped in favor of inference. A bare numeric type
// cell is likewise read as a bedroom count.
func (n *Normalizer) unitType(row int, m Mapping, rec domain.UnitRecord, cell func(int, string) (string, bool)) string {
	typeCol, typeMapped := m.Index(FieldUnitType)
	bedsCol, bedsMapped := m.Index(FieldBedrooms)
	if typeMapped && !(bedsMapped && typeCol == bedsCol) {
		raw, _ := cell(row, FieldUnitType)
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" && !placeholderValues[strings.ToLower(trimmed)] {
			if v, ok := parseNumber(trimmed); ok {
				if inferred, ok := inferUnitTypeFromBedrooms(int(v)); ok {
					return inferred
				}
			} else {
				return trimmed
			}
		}
	}
	if rec.Bedrooms != nil {
		if t, ok := inferUnitTypeFromBedrooms(*rec.Bedrooms); ok {
			return t
		}
	}
	if rec.SquareFeet != nil {
		if t := inferUnitTypeFromSqft(*rec.SquareFeet); t != "" {
			return t
		}
	}
	return "Unknown"
}
