package financials

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dealbase/internal/config"
	apierrors "dealbase/internal/errors"
	"dealbase/internal/tabular"
	"dealbase/pkg/contracts/domain"
)

// Canonical T-12 column names. Statements are expected to carry these labels
// (case-insensitive, separators normalized); fuzzy pattern matching is
// deliberately not applied to financial figures.
const (
	colMonth             = "month"
	colYear              = "year"
	colGrossRent         = "gross_rent"
	colOtherIncome       = "other_income"
	colOperatingExpenses = "operating_expenses"
)

var requiredColumns = []string{colMonth, colYear, colGrossRent, colOperatingExpenses}

// Report summarizes one parsed statement for the caller: what was kept, what
// was skipped, and the data-quality flags worth surfacing.
type Report struct {
	PeriodCount        int            `json:"period_count"`
	SkippedRows        int            `json:"skipped_rows"`
	YearMin            int            `json:"year_min,omitempty"`
	YearMax            int            `json:"year_max,omitempty"`
	MissingOtherIncome int            `json:"missing_other_income"`
	NegativeNOIMonths  int            `json:"negative_noi_months"`
	Issues             []domain.Issue `json:"issues,omitempty"`
}

// Parser loads trailing-twelve-month statements into financial periods.
type Parser struct {
	cfg    config.ParserConfig
	reader *tabular.Reader
	logger *slog.Logger
}

// NewParser creates a T-12 parser with the given thresholds.
func NewParser(cfg config.ParserConfig, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "t12_parser"))
	return &Parser{cfg: cfg, reader: tabular.NewReader(cfg, logger), logger: logger}
}

// Parse reads a T-12 file into monthly periods, deriving total income and
// NOI per row. The loose header threshold applies; statements are narrower
// than rent rolls.
func (p *Parser) Parse(ctx context.Context, data []byte, kind tabular.Kind) ([]domain.FinancialPeriod, *Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	table, issues, err := p.reader.Read(data, kind, p.cfg.MinMeaningfulColumnsLoose)
	if err != nil {
		return nil, nil, err
	}

	cols, missing := mapColumns(table.Header)
	if len(missing) > 0 {
		return nil, nil, apierrors.UnmappableSchema(missing...)
	}

	report := &Report{}
	var periods []domain.FinancialPeriod
	for i := range table.Rows {
		period, missingOther, ok := p.parseRow(table, i, cols)
		if !ok {
			report.SkippedRows++
			continue
		}
		if missingOther {
			report.MissingOtherIncome++
		}
		if period.NetOperatingIncome < 0 {
			report.NegativeNOIMonths++
		}
		if report.YearMin == 0 || period.Year < report.YearMin {
			report.YearMin = period.Year
		}
		if period.Year > report.YearMax {
			report.YearMax = period.Year
		}
		periods = append(periods, period)
	}
	report.PeriodCount = len(periods)
	if report.SkippedRows > 0 {
		issues = append(issues, domain.Issue{
			Type:     domain.IssueWarning,
			Message:  fmt.Sprintf("Skipped %d rows with unparsable month, year or amounts", report.SkippedRows),
			Severity: domain.SeverityMedium,
		})
	}
	if report.NegativeNOIMonths > 0 {
		issues = append(issues, domain.Issue{
			Type:     domain.IssueWarning,
			Message:  fmt.Sprintf("%d months have negative net operating income", report.NegativeNOIMonths),
			Severity: domain.SeverityLow,
		})
	}
	report.Issues = issues
	if len(periods) == 0 {
		return nil, nil, apierrors.UnreadableFile([]string{"t12 (no parsable period rows)"})
	}

	p.logger.InfoContext(ctx, "t12 parsed",
		slog.Int("periods", len(periods)),
		slog.Int("skipped", report.SkippedRows))
	return periods, report, nil
}

// mapColumns matches normalized header labels to the canonical set. Returns
// the index per column and the required names that were not found.
func mapColumns(header []string) (map[string]int, []string) {
	cols := make(map[string]int)
	for i, label := range header {
		normalized := normalizeLabel(label)
		switch normalized {
		case colMonth, colYear, colGrossRent, colOtherIncome, colOperatingExpenses:
			if _, seen := cols[normalized]; !seen {
				cols[normalized] = i
			}
		}
	}
	var missing []string
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	return cols, missing
}

func normalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

func (p *Parser) parseRow(t *tabular.Table, row int, cols map[string]int) (period domain.FinancialPeriod, missingOther, ok bool) {
	month, ok := parseInt(t.Cell(row, cols[colMonth]))
	if !ok || month < 1 || month > 12 {
		return domain.FinancialPeriod{}, false, false
	}
	year, ok := parseInt(t.Cell(row, cols[colYear]))
	if !ok || year < 1900 || year > 2200 {
		return domain.FinancialPeriod{}, false, false
	}
	grossRent, ok := parseAmount(t.Cell(row, cols[colGrossRent]))
	if !ok {
		return domain.FinancialPeriod{}, false, false
	}
	expenses, ok := parseAmount(t.Cell(row, cols[colOperatingExpenses]))
	if !ok {
		return domain.FinancialPeriod{}, false, false
	}

	var otherIncome float64
	if col, mapped := cols[colOtherIncome]; mapped {
		if v, parsed := parseAmount(t.Cell(row, col)); parsed {
			otherIncome = v
		} else {
			missingOther = true
		}
	}

	totalIncome := grossRent + otherIncome
	return domain.FinancialPeriod{
		Month:              month,
		Year:               year,
		GrossRent:          grossRent,
		OtherIncome:        otherIncome,
		TotalIncome:        totalIncome,
		OperatingExpenses:  expenses,
		NetOperatingIncome: totalIncome - expenses,
	}, missingOther, true
}
