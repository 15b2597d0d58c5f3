package rentroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dealbase/internal/config"
	apierrors "dealbase/internal/errors"
	"dealbase/internal/tabular"
	"dealbase/pkg/contracts/domain"
)

// Parser runs the full rent roll pipeline: read, map, classify, normalize,
// deduplicate. It is stateless between calls; the same bytes always produce
// the same result.
type Parser struct {
	cfg        config.ParserConfig
	reader     *tabular.Reader
	classifier *Classifier
	normalizer *Normalizer
	resolver   *Resolver
	logger     *slog.Logger
	now        func() time.Time
}

// NewParser creates a parser with the given thresholds.
func NewParser(cfg config.ParserConfig, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "rentroll_parser"))
	return &Parser{
		cfg:        cfg,
		reader:     tabular.NewReader(cfg, logger),
		classifier: NewClassifier(cfg),
		normalizer: NewNormalizer(cfg, logger),
		resolver:   NewResolver(cfg),
		logger:     logger,
		now:        time.Now,
	}
}

// Parse turns raw upload bytes into normalized unit records and the reports
// that explain every transformation. The four fatal conditions surface as
// coded errors; everything else degrades into issues and warnings.
func (p *Parser) Parse(ctx context.Context, data []byte, kind tabular.Kind) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, issues, err := p.reader.Read(data, kind, p.cfg.MinMeaningfulColumns)
	if err != nil {
		return nil, err
	}

	mapping, mapIssues, err := MapColumns(table.Header)
	issues = append(issues, mapIssues...)
	if err != nil {
		return nil, err
	}

	totalRows := len(table.Rows)
	kept, dropped := p.classifier.Classify(table, mapping)
	if len(kept) == 0 {
		return nil, apierrors.NoUnitRowsRemaining(dropped)
	}

	records, validation := p.normalizer.Normalize(table, mapping, kept)

	unique, resolved, examples := p.resolver.Resolve(records, p.now())
	dropped.DuplicateResolved = resolved
	if resolved > 0 {
		validation.Warnings = append(validation.Warnings,
			fmt.Sprintf("resolved %d duplicate unit rows down to %d unique units", resolved, len(unique)))
	}
	validation.TotalRecords = len(unique)

	p.logger.InfoContext(ctx, "rent roll parsed",
		slog.Int("rows_read", totalRows),
		slog.Int("unit_rows", len(kept)),
		slog.Int("duplicates_resolved", resolved),
		slog.Int("final_units", len(unique)))

	return &domain.ParseResult{
		Records:       unique,
		ColumnMapping: mapping.Labels(),
		Issues:        issues,
		Validation:    validation,
		Summary: domain.ParsingSummary{
			TotalRowsRead:               totalRows,
			RowsDropped:                 dropped,
			DuplicateResolutionExamples: examples,
			FinalUniqueUnits:            len(unique),
		},
	}, nil
}
