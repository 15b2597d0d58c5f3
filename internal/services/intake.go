package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dealbase/internal/config"
	apierrors "dealbase/internal/errors"
	"dealbase/internal/financials"
	"dealbase/internal/rentroll"
	"dealbase/internal/store"
	"dealbase/internal/tabular"
	"dealbase/internal/unitmix"
	"dealbase/pkg/contracts/domain"
)

// Upload is one file received for processing.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RentRollResult is the outcome of a rent roll upload.
type RentRollResult struct {
	Document   domain.Document     `json:"document"`
	Parse      *domain.ParseResult `json:"parse,omitempty"`
	UnitMix    domain.UnitMix      `json:"unit_mix"`
	Idempotent bool                `json:"idempotent"`
}

// FinancialsResult is the outcome of a T-12 upload.
type FinancialsResult struct {
	Document   domain.Document          `json:"document"`
	Periods    []domain.FinancialPeriod `json:"periods,omitempty"`
	Report     *financials.Report       `json:"report,omitempty"`
	Idempotent bool                     `json:"idempotent"`
}

// IntakeService processes document uploads end to end: registry, parsing,
// derivation and atomic persistence. A failed parse marks the document
// failed with the causal message; it never leaves partial data behind.
type IntakeService struct {
	store      *store.Store
	rentRolls  *rentroll.Parser
	statements *financials.Parser
	mixer      *unitmix.Aggregator
	metrics    *Metrics
	logger     *slog.Logger
}

// NewIntakeService wires the intake pipeline.
func NewIntakeService(st *store.Store, cfg config.ParserConfig, metrics *Metrics, logger *slog.Logger) *IntakeService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "intake_service"))
	return &IntakeService{
		store:      st,
		rentRolls:  rentroll.NewParser(cfg, logger),
		statements: financials.NewParser(cfg, logger),
		mixer:      unitmix.NewAggregator(logger),
		metrics:    metrics,
		logger:     logger,
	}
}

// ProcessRentRoll ingests one rent roll for a deal, replacing any previously
// stored units and derived mix. A byte-identical re-upload of an
// already-completed document is a no-op returning the existing document.
func (s *IntakeService) ProcessRentRoll(ctx context.Context, dealID int64, upload Upload) (*RentRollResult, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	kind, ok := tabular.KindForFilename(upload.Filename)
	if !ok {
		return nil, apierrors.ErrValidation("filename", fmt.Sprintf("unsupported file extension on %q", upload.Filename))
	}

	hash := contentHash(upload.Data)
	if existing, err := s.store.FindCompletedDocument(ctx, dealID, domain.DocumentKindRentRoll, hash); err != nil {
		return nil, err
	} else if existing != nil {
		s.logger.InfoContext(ctx, "duplicate rent roll upload, skipping",
			slog.Int64("deal_id", dealID),
			slog.String("document_id", existing.ID))
		mix, err := s.currentMix(ctx, dealID)
		if err != nil {
			return nil, err
		}
		return &RentRollResult{Document: *existing, UnitMix: mix, Idempotent: true}, nil
	}

	doc := s.newDocument(dealID, domain.DocumentKindRentRoll, upload, hash)
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	result, err := s.rentRolls.Parse(ctx, upload.Data, kind)
	if err != nil {
		s.failDocument(ctx, &doc, domain.DocumentKindRentRoll, err)
		return nil, err
	}

	for i := range result.Records {
		result.Records[i].DealID = dealID
	}
	groups, err := s.mixer.DeriveFromUnits(result.Records, dealID, domain.GroupByUnitType, upload.Filename, time.Now())
	if err != nil {
		s.failDocument(ctx, &doc, domain.DocumentKindRentRoll, err)
		return nil, err
	}

	if err := s.store.ReplaceRentRoll(ctx, dealID, result.Records, groups); err != nil {
		s.failDocument(ctx, &doc, domain.DocumentKindRentRoll, err)
		return nil, err
	}

	doc.Status = domain.DocumentStatusCompleted
	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, doc.Status, ""); err != nil {
		return nil, err
	}
	s.recordRentRollMetrics(result)
	s.audit(ctx, dealID, "rent_roll_processed",
		fmt.Sprintf("Processed rent roll %q: %d units", upload.Filename, len(result.Records)),
		map[string]string{"document_id": doc.ID})

	s.logger.InfoContext(ctx, "rent roll processed",
		slog.Int64("deal_id", deal.ID),
		slog.String("document_id", doc.ID),
		slog.Int("units", len(result.Records)),
		slog.Int("groups", len(groups)))

	stored, err := s.store.ListUnitMixGroups(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return &RentRollResult{
		Document: doc,
		Parse:    result,
		UnitMix: domain.UnitMix{
			DealID:  dealID,
			GroupBy: domain.GroupByUnitType,
			Groups:  stored,
			Totals:  s.mixer.Totals(stored),
		},
	}, nil
}

// ProcessFinancials ingests one T-12 statement for a deal, replacing any
// previously stored period financials.
func (s *IntakeService) ProcessFinancials(ctx context.Context, dealID int64, upload Upload) (*FinancialsResult, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}

	kind, ok := tabular.KindForFilename(upload.Filename)
	if !ok {
		return nil, apierrors.ErrValidation("filename", fmt.Sprintf("unsupported file extension on %q", upload.Filename))
	}

	hash := contentHash(upload.Data)
	if existing, err := s.store.FindCompletedDocument(ctx, dealID, domain.DocumentKindT12, hash); err != nil {
		return nil, err
	} else if existing != nil {
		return &FinancialsResult{Document: *existing, Idempotent: true}, nil
	}

	doc := s.newDocument(dealID, domain.DocumentKindT12, upload, hash)
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	periods, report, err := s.statements.Parse(ctx, upload.Data, kind)
	if err != nil {
		s.failDocument(ctx, &doc, domain.DocumentKindT12, err)
		return nil, err
	}
	for i := range periods {
		periods[i].DealID = dealID
	}

	if err := s.store.ReplaceFinancialPeriods(ctx, dealID, periods); err != nil {
		s.failDocument(ctx, &doc, domain.DocumentKindT12, err)
		return nil, err
	}

	doc.Status = domain.DocumentStatusCompleted
	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, doc.Status, ""); err != nil {
		return nil, err
	}
	s.metrics.UploadsTotal.WithLabelValues(domain.DocumentKindT12, "completed").Inc()
	s.audit(ctx, dealID, "financials_processed",
		fmt.Sprintf("Processed T-12 %q: %d periods", upload.Filename, len(periods)),
		map[string]string{"document_id": doc.ID})

	return &FinancialsResult{Document: doc, Periods: periods, Report: report}, nil
}

// ListDocuments returns a deal's document registry.
func (s *IntakeService) ListDocuments(ctx context.Context, dealID int64) ([]domain.Document, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, dealID)
}

// ListUnitRecords returns a deal's normalized rent roll.
func (s *IntakeService) ListUnitRecords(ctx context.Context, dealID int64) ([]domain.UnitRecord, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}
	return s.store.ListUnitRecords(ctx, dealID)
}

func (s *IntakeService) newDocument(dealID int64, kind string, upload Upload, hash string) domain.Document {
	return domain.Document{
		ID:               uuid.NewString(),
		DealID:           dealID,
		Kind:             kind,
		OriginalFilename: upload.Filename,
		FileSize:         int64(len(upload.Data)),
		ContentType:      upload.ContentType,
		ContentHash:      hash,
		Status:           domain.DocumentStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
}

func (s *IntakeService) failDocument(ctx context.Context, doc *domain.Document, kind string, cause error) {
	doc.Status = domain.DocumentStatusFailed
	doc.Error = cause.Error()
	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, doc.Status, doc.Error); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark document failed",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()))
	}
	s.metrics.UploadsTotal.WithLabelValues(kind, "failed").Inc()
	s.audit(ctx, doc.DealID, "document_failed",
		fmt.Sprintf("Processing failed for %q: %s", doc.OriginalFilename, cause.Error()),
		map[string]string{"document_id": doc.ID, "error_code": apierrors.Code(cause)})
}

func (s *IntakeService) recordRentRollMetrics(result *domain.ParseResult) {
	s.metrics.UploadsTotal.WithLabelValues(domain.DocumentKindRentRoll, "completed").Inc()
	dropped := result.Summary.RowsDropped
	for category, count := range map[string]int{
		"blank":               dropped.Blank,
		"header":              dropped.HeaderRepeat,
		"total":               dropped.Total,
		"applicant":           dropped.Applicant,
		"missing_unit_number": dropped.MissingUnitNumber,
	} {
		if count > 0 {
			s.metrics.RowsDroppedTotal.WithLabelValues(category).Add(float64(count))
		}
	}
	if dropped.DuplicateResolved > 0 {
		s.metrics.DuplicatesResolvedTotal.Add(float64(dropped.DuplicateResolved))
	}
}

func (s *IntakeService) currentMix(ctx context.Context, dealID int64) (domain.UnitMix, error) {
	groups, err := s.store.ListUnitMixGroups(ctx, dealID)
	if err != nil {
		return domain.UnitMix{}, err
	}
	return domain.UnitMix{
		DealID:  dealID,
		GroupBy: domain.GroupByUnitType,
		Groups:  groups,
		Totals:  s.mixer.Totals(groups),
	}, nil
}

func (s *IntakeService) audit(ctx context.Context, dealID int64, eventType, description string, metadata map[string]string) {
	err := s.store.AppendAuditEvent(ctx, domain.AuditEvent{
		DealID:      dealID,
		EventType:   eventType,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to append audit event",
			slog.Int64("deal_id", dealID),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}

func contentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
