package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"dealbase/internal/config"
	apierrors "dealbase/internal/errors"
	"dealbase/pkg/contracts/domain"
)

// Reader loads raw spreadsheet bytes into a Table, choosing the header row
// and pruning empty rows and columns. Informational issues about those
// choices are returned alongside the table; they never affect its content.
type Reader struct {
	cfg    config.ParserConfig
	logger *slog.Logger
}

// NewReader creates a reader with the given parsing thresholds.
func NewReader(cfg config.ParserConfig, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{cfg: cfg, logger: logger.With(slog.String("component", "tabular_reader"))}
}

// Read parses data according to its declared kind. minMeaningful is the
// column count a candidate header row must reach to be accepted; pass the
// loose threshold for lower-confidence contexts such as financial-period
// files.
func (r *Reader) Read(data []byte, kind Kind, minMeaningful int) (*Table, []domain.Issue, error) {
	switch kind {
	case KindCSV:
		return r.readDelimited(data)
	case KindXLSX, KindXLS:
		return r.readWorkbook(data, kind, minMeaningful)
	default:
		return nil, nil, apierrors.UnreadableFile([]string{string(kind)})
	}
}

// csvEncodings is the ordered list of text encodings attempted for
// delimited files. The first that decodes without error wins.
var csvEncodings = []string{"utf-8", "latin-1", "windows-1252"}

func (r *Reader) readDelimited(data []byte) (*Table, []domain.Issue, error) {
	text, encoding, err := decodeText(data)
	if err != nil {
		return nil, nil, apierrors.UnreadableFile(csvEncodings)
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil || len(records) == 0 {
		return nil, nil, apierrors.UnreadableFile(csvEncodings)
	}

	r.logger.Debug("decoded delimited file",
		slog.String("encoding", encoding),
		slog.Int("rows", len(records)))

	table := &Table{Header: trimAll(records[0]), Rows: records[1:]}
	issues := []domain.Issue{{
		Type:     domain.IssueInfo,
		Message:  fmt.Sprintf("Decoded delimited file as %s with %d rows", encoding, len(records)-1),
		Severity: domain.SeverityLow,
	}}
	issues = append(issues, r.prune(table)...)
	return table, issues, nil
}

// decodeText tries each supported encoding in order and returns the first
// clean decode.
func decodeText(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}
	if out, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
		return string(out), "latin-1", nil
	}
	if out, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
		return string(out), "windows-1252", nil
	}
	return "", "", fmt.Errorf("no supported encoding could decode input")
}

func (r *Reader) readWorkbook(data []byte, kind Kind, minMeaningful int) (*Table, []domain.Issue, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		// The pure-Go engine only understands OOXML; legacy .xls ends
		// up here with the engines we tried named in the error.
		attempted := []string{"excelize"}
		if kind == KindXLS {
			attempted = []string{"excelize (xls is not supported; convert to xlsx)"}
		}
		return nil, nil, apierrors.UnreadableFile(attempted)
	}
	defer f.Close()

	var rows [][]string
	var sheetName string
	for _, name := range f.GetSheetList() {
		if sheetRows, err := f.GetRows(name); err == nil && len(sheetRows) > 0 {
			rows = sheetRows
			sheetName = name
			break
		}
	}
	if len(rows) == 0 {
		return nil, nil, apierrors.UnreadableFile([]string{"excelize"})
	}

	headerIdx, found := r.findHeaderRow(rows, minMeaningful)
	var issues []domain.Issue
	if found {
		issues = append(issues, domain.Issue{
			Type:     domain.IssueInfo,
			Message:  fmt.Sprintf("Using header row %d of sheet %q with %d meaningful columns", headerIdx, sheetName, countMeaningful(rows[headerIdx])),
			Severity: domain.SeverityLow,
		})
	} else {
		issues = append(issues, domain.Issue{
			Type:     domain.IssueWarning,
			Message:  "Could not find an optimal header row, using the first row",
			Severity: domain.SeverityMedium,
		})
	}

	header := trimAll(rows[headerIdx])
	table := &Table{Header: header, Rows: rows[headerIdx+1:]}
	issues = append(issues, r.prune(table)...)
	return table, issues, nil
}

// findHeaderRow scans the first HeaderScanRows candidates and accepts the
// first with at least minMeaningful meaningful labels. Falls back to row 0.
func (r *Reader) findHeaderRow(rows [][]string, minMeaningful int) (int, bool) {
	limit := r.cfg.HeaderScanRows
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		if countMeaningful(rows[i]) >= minMeaningful {
			return i, true
		}
	}
	return 0, false
}

// countMeaningful counts column labels that look like real headers: not
// blank, not a positional placeholder, longer than one character.
func countMeaningful(row []string) int {
	n := 0
	for _, label := range row {
		if meaningfulLabel(label) {
			n++
		}
	}
	return n
}

func meaningfulLabel(label string) bool {
	s := strings.TrimSpace(label)
	if len(s) <= 1 {
		return false
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "unnamed") {
		return false
	}
	switch lower {
	case "nan", "none", "null":
		return false
	}
	return true
}

// prune pads ragged rows to a uniform width and removes entirely empty
// columns in place. Blank rows are left for row classification to count.
func (r *Reader) prune(t *Table) []domain.Issue {
	width := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}

	for i, row := range t.Rows {
		for len(row) < width {
			row = append(row, "")
		}
		t.Rows[i] = row
	}
	for len(t.Header) < width {
		t.Header = append(t.Header, "")
	}

	// Identify entirely empty columns.
	emptyCol := make([]bool, width)
	droppedCols := 0
	for col := 0; col < width; col++ {
		empty := true
		for _, row := range t.Rows {
			if strings.TrimSpace(row[col]) != "" {
				empty = false
				break
			}
		}
		if empty {
			emptyCol[col] = true
			droppedCols++
		}
	}

	if droppedCols > 0 {
		header := make([]string, 0, width-droppedCols)
		for col, label := range t.Header {
			if !emptyCol[col] {
				header = append(header, label)
			}
		}
		t.Header = header
		for i, row := range t.Rows {
			next := make([]string, 0, width-droppedCols)
			for col, cell := range row {
				if !emptyCol[col] {
					next = append(next, cell)
				}
			}
			t.Rows[i] = next
		}
	}

	var issues []domain.Issue
	if droppedCols > 0 {
		issues = append(issues, domain.Issue{
			Type:     domain.IssueInfo,
			Message:  fmt.Sprintf("Dropped %d empty columns", droppedCols),
			Severity: domain.SeverityLow,
		})
	}
	issues = append(issues, domain.Issue{
		Type:     domain.IssueInfo,
		Message:  fmt.Sprintf("Read %d rows and %d columns", len(t.Rows), len(t.Header)),
		Severity: domain.SeverityLow,
	})
	return issues
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}
