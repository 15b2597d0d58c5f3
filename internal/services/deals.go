package services

import (
	"context"
	"log/slog"

	"dealbase/internal/store"
	"dealbase/pkg/contracts/domain"
)

// DealService owns the deal registry.
type DealService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewDealService wires the deal registry operations.
func NewDealService(st *store.Store, logger *slog.Logger) *DealService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DealService{store: st, logger: logger.With(slog.String("component", "deal_service"))}
}

// Create registers a new deal.
func (s *DealService) Create(ctx context.Context, name, propertyType string) (domain.Deal, error) {
	deal, err := s.store.CreateDeal(ctx, domain.Deal{Name: name, PropertyType: propertyType})
	if err != nil {
		return domain.Deal{}, err
	}
	s.logger.InfoContext(ctx, "deal created",
		slog.Int64("deal_id", deal.ID),
		slog.String("name", deal.Name))
	return deal, nil
}

// Get loads one deal.
func (s *DealService) Get(ctx context.Context, id int64) (domain.Deal, error) {
	return s.store.GetDeal(ctx, id)
}

// List returns all deals, newest first.
func (s *DealService) List(ctx context.Context) ([]domain.Deal, error) {
	return s.store.ListDeals(ctx)
}

// AuditTrail returns a deal's audit events, newest first.
func (s *DealService) AuditTrail(ctx context.Context, dealID int64) ([]domain.AuditEvent, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}
	return s.store.ListAuditEvents(ctx, dealID)
}
