package domain

// Issue severities and types for the parsing issues report.
const (
	IssueInfo    = "info"
	IssueWarning = "warning"
	IssueError   = "error"

	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Issue is one diagnostic emitted while reading or mapping a file. Issues
// never abort the pipeline; they are returned to the caller alongside the
// parsed data.
type Issue struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ValidationReport summarizes data-quality findings over the normalized
// records: coercion failures, suspicious values, missing fields.
type ValidationReport struct {
	TotalRecords int      `json:"total_records"`
	Warnings     []string `json:"warnings"`
	Errors       []string `json:"errors"`
}

// RowsDropped counts, per classification rule, the raw rows excluded from
// the normalized output. A row matching several rules increments each.
type RowsDropped struct {
	Blank             int `json:"blank"`
	HeaderRepeat      int `json:"header"`
	Total             int `json:"total"`
	Applicant         int `json:"applicant"`
	MissingUnitNumber int `json:"missing_unit_number"`
	DuplicateResolved int `json:"duplicate_resolved"`
}

// DuplicateResolution records one tie-break decision for audit purposes.
type DuplicateResolution struct {
	UnitNumber string `json:"unit_number"`
	Candidates int    `json:"candidates"`
	KeptRow    int    `json:"kept_row"`
	Reason     string `json:"reason"`
}

// ParsingSummary describes what happened to the raw table on its way to the
// final unit records.
type ParsingSummary struct {
	TotalRowsRead               int                   `json:"total_rows_read"`
	RowsDropped                 RowsDropped           `json:"rows_dropped"`
	DuplicateResolutionExamples []DuplicateResolution `json:"duplicate_resolution_examples,omitempty"`
	FinalUniqueUnits            int                   `json:"final_unique_units"`
}

// ParseResult is the full output of one rent roll parse: normalized records
// plus the reports surfaced to the caller.
type ParseResult struct {
	Records       []UnitRecord      `json:"normalized_records"`
	ColumnMapping map[string]string `json:"column_mapping"`
	Issues        []Issue           `json:"issues_report"`
	Validation    ValidationReport  `json:"validation_report"`
	Summary       ParsingSummary    `json:"parsing_summary"`
}
