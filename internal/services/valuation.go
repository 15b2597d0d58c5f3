package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dealbase/internal/config"
	"dealbase/internal/store"
	"dealbase/internal/valuation"
	"dealbase/pkg/contracts/domain"
)

// ValuationService derives assumptions from a deal's stored data, applies
// caller overrides and persists the resulting KPI vector as a run.
type ValuationService struct {
	store   *store.Store
	engine  *valuation.Engine
	metrics *Metrics
	logger  *slog.Logger
}

// NewValuationService wires the valuation operations.
func NewValuationService(st *store.Store, cfg config.ValuationConfig, metrics *Metrics, logger *slog.Logger) *ValuationService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "valuation_service"))
	return &ValuationService{
		store:   st,
		engine:  valuation.NewEngine(cfg, logger),
		metrics: metrics,
		logger:  logger,
	}
}

// Run executes one valuation for a deal. The deal must have period
// financials; unit records and mix groups enrich the derived assumptions
// when present. Overrides win key by key over derived values.
func (s *ValuationService) Run(ctx context.Context, dealID int64, name string, overrides domain.Assumptions) (domain.ValuationRun, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return domain.ValuationRun{}, err
	}

	periods, err := s.store.ListFinancialPeriods(ctx, dealID)
	if err != nil {
		return domain.ValuationRun{}, err
	}
	units, err := s.store.ListUnitRecords(ctx, dealID)
	if err != nil {
		return domain.ValuationRun{}, err
	}
	groups, err := s.store.ListUnitMixGroups(ctx, dealID)
	if err != nil {
		return domain.ValuationRun{}, err
	}

	derived, err := s.engine.DeriveAssumptions(dealID, periods, units, groups)
	if err != nil {
		s.metrics.ValuationRunsTotal.WithLabelValues(domain.ValuationStatusFailed).Inc()
		return domain.ValuationRun{}, err
	}
	merged := s.engine.Merge(derived, overrides)
	kpis := s.engine.Compute(merged)

	if name == "" {
		name = fmt.Sprintf("Valuation %s", time.Now().UTC().Format("2006-01-02 15:04"))
	}
	run := domain.ValuationRun{
		ID:          uuid.NewString(),
		DealID:      dealID,
		Name:        name,
		Status:      domain.ValuationStatusCompleted,
		Assumptions: merged,
		KPIs:        kpis,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateValuationRun(ctx, run); err != nil {
		return domain.ValuationRun{}, err
	}

	s.metrics.ValuationRunsTotal.WithLabelValues(domain.ValuationStatusCompleted).Inc()
	s.audit(ctx, dealID, run)
	s.logger.InfoContext(ctx, "valuation run completed",
		slog.Int64("deal_id", dealID),
		slog.String("run_id", run.ID),
		slog.Float64("cap_rate", kpis.CapRate),
		slog.Float64("dscr", kpis.DSCR),
		slog.Float64("irr", kpis.IRR))
	return run, nil
}

// List returns a deal's valuation runs, newest first.
func (s *ValuationService) List(ctx context.Context, dealID int64) ([]domain.ValuationRun, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}
	return s.store.ListValuationRuns(ctx, dealID)
}

func (s *ValuationService) audit(ctx context.Context, dealID int64, run domain.ValuationRun) {
	err := s.store.AppendAuditEvent(ctx, domain.AuditEvent{
		DealID:      dealID,
		EventType:   "valuation_run",
		Description: fmt.Sprintf("Completed valuation run %q", run.Name),
		Metadata:    map[string]string{"run_id": run.ID},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to append audit event",
			slog.Int64("deal_id", dealID),
			slog.String("error", err.Error()))
	}
}
