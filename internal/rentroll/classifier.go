package rentroll

import (
	"math"
	"strings"

	"dealbase/internal/config"
	"dealbase/internal/tabular"
	"dealbase/pkg/contracts/domain"
)

// headerKeywords are terms that appear in column labels. A cell matching one
// of these in a text-dominated column is evidence of a repeated header row.
var headerKeywords = []string{
	"unit", "apt", "type", "rent", "sqft", "sq ft", "square", "bed", "bath",
	"tenant", "resident", "lease", "status", "market", "name", "number",
	"floorplan", "plan", "start", "expiration", "move-in", "movein", "deposit",
}

// dataValues are terms that look like header keywords by substring but are
// legitimate cell values, so they never flag a row as a repeated header.
var dataValues = map[string]bool{
	"occupied": true, "vacant": true, "occ": true, "vac": true,
	"studio": true, "1br": true, "2br": true, "3br": true, "4br": true,
	"current": true, "notice": true, "applicant": true, "model": true,
}

// totalsKeywords mark aggregate and summary rows.
var totalsKeywords = []string{"total", "subtotal", "grand total", "summary", "average", "count"}

// applicantKeywords in a lease status cell mark a future resident rather
// than a unit in place.
var applicantKeywords = []string{"applicant", "application", "pending", "future", "approved", "prospect"}

// placeholderValues are the strings treated as missing wherever an identity
// field is required.
var placeholderValues = map[string]bool{
	"nan": true, "none": true, "null": true, "n/a": true, "na": true,
}

// Classifier decides which raw rows are real unit rows. Each rule is
// independent; a row is dropped when any rule matches, and every matching
// rule's counter is incremented.
type Classifier struct {
	cfg config.ParserConfig
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg config.ParserConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify returns the indices of rows that survive all drop rules, with
// per-rule counts of the rows excluded.
func (c *Classifier) Classify(t *tabular.Table, m Mapping) ([]int, domain.RowsDropped) {
	headerCols := c.headerRepeatColumns(t)

	var kept []int
	var dropped domain.RowsDropped
	for i := range t.Rows {
		if t.RowEmpty(i) {
			dropped.Blank++
			continue
		}

		drop := false
		if c.isHeaderRepeat(t, i, headerCols) {
			dropped.HeaderRepeat++
			drop = true
		}
		if c.isTotals(t, i, m) {
			dropped.Total++
			drop = true
		}
		if c.isApplicant(t, i, m) {
			dropped.Applicant++
			drop = true
		}
		if c.missingUnitNumber(t, i, m) {
			dropped.MissingUnitNumber++
			drop = true
		}

		if !drop {
			kept = append(kept, i)
		}
	}
	return kept, dropped
}

// headerRepeatColumns finds columns suspicious enough to flag rows: columns
// that are not numeric-dominated and whose values look like header keywords
// more often than HeaderKeywordRatio allows.
func (c *Classifier) headerRepeatColumns(t *tabular.Table) []int {
	var cols []int
	for col := range t.Header {
		nonEmpty := 0
		numeric := 0
		headerish := 0
		for row := range t.Rows {
			cell := t.Cell(row, col)
			if cell == "" {
				continue
			}
			nonEmpty++
			if _, ok := parseNumber(cell); ok {
				numeric++
			}
			if matchesHeaderKeyword(cell) {
				headerish++
			}
		}
		if nonEmpty == 0 {
			continue
		}
		if float64(numeric)/float64(nonEmpty) > c.cfg.NumericDominanceRatio {
			continue
		}
		if float64(headerish)/float64(nonEmpty) > c.cfg.HeaderKeywordRatio {
			cols = append(cols, col)
		}
	}
	return cols
}

func (c *Classifier) isHeaderRepeat(t *tabular.Table, row int, headerCols []int) bool {
	for _, col := range headerCols {
		if matchesHeaderKeyword(t.Cell(row, col)) {
			return true
		}
	}
	return false
}

func matchesHeaderKeyword(cell string) bool {
	lower := strings.ToLower(strings.TrimSpace(cell))
	if lower == "" || dataValues[lower] {
		return false
	}
	for _, kw := range headerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isTotals flags aggregate rows: any cell carrying a totals keyword, or a
// rent that is an exact multiple of TotalsRentMultiple above TotalsRentFloor.
func (c *Classifier) isTotals(t *tabular.Table, row int, m Mapping) bool {
	for col := range t.Rows[row] {
		lower := strings.ToLower(t.Cell(row, col))
		if lower == "" {
			continue
		}
		for _, kw := range totalsKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	if rent, ok := c.rentValue(t, row, m); ok {
		if rent > c.cfg.TotalsRentFloor && math.Mod(rent, c.cfg.TotalsRentMultiple) == 0 {
			return true
		}
	}
	return false
}

// isApplicant flags future residents: an applicant-ish status, or a rent
// cell that is zero or unparsable.
func (c *Classifier) isApplicant(t *tabular.Table, row int, m Mapping) bool {
	if col, ok := m.Index(FieldLeaseStatus); ok {
		lower := strings.ToLower(t.Cell(row, col))
		for _, kw := range applicantKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	rent, ok := c.rentValue(t, row, m)
	if !ok || rent == 0 {
		return true
	}
	return false
}

func (c *Classifier) missingUnitNumber(t *tabular.Table, row int, m Mapping) bool {
	col, ok := m.Index(FieldUnitNumber)
	if !ok {
		return true
	}
	cell := strings.ToLower(t.Cell(row, col))
	return cell == "" || placeholderValues[cell]
}

// rentValue reads the row's mapped rent, preferring actual over market. A
// zero actual rent falls through to market so vacant units with an asking
// rent are not mistaken for applicants.
func (c *Classifier) rentValue(t *tabular.Table, row int, m Mapping) (float64, bool) {
	parsed := false
	if col, ok := m.Index(FieldActualRent); ok {
		if v, ok := parseNumber(t.Cell(row, col)); ok {
			if v != 0 {
				return v, true
			}
			parsed = true
		}
	}
	if col, ok := m.Index(FieldMarketRent); ok {
		if v, ok := parseNumber(t.Cell(row, col)); ok {
			return v, true
		}
	}
	return 0, parsed
}
