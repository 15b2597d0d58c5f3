package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dealbase/internal/store"
	"dealbase/internal/unitmix"
	"dealbase/pkg/contracts/domain"
)

// UnitMixService owns the unit mix lifecycle: derivation from the rent roll,
// the linked/unlinked distinction, and manual edits.
type UnitMixService struct {
	store  *store.Store
	mixer  *unitmix.Aggregator
	logger *slog.Logger
	now    func() time.Time
}

// NewUnitMixService wires the unit mix operations.
func NewUnitMixService(st *store.Store, logger *slog.Logger) *UnitMixService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "unitmix_service"))
	return &UnitMixService{store: st, mixer: unitmix.NewAggregator(logger), logger: logger, now: time.Now}
}

// Get returns a deal's current mix. Linked groups are recomputed from the
// stored unit records on every read so they can never drift from their
// source; unlinked groups are returned as stored.
func (s *UnitMixService) Get(ctx context.Context, dealID int64, groupBy string) (domain.UnitMix, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return domain.UnitMix{}, err
	}
	if groupBy == "" {
		groupBy = domain.GroupByUnitType
	}

	stored, err := s.store.ListUnitMixGroups(ctx, dealID)
	if err != nil {
		return domain.UnitMix{}, err
	}

	if hasLinked(stored) {
		stored, err = s.rederive(ctx, dealID, groupBy, stored)
		if err != nil {
			return domain.UnitMix{}, err
		}
	}

	return domain.UnitMix{
		DealID:  dealID,
		GroupBy: groupBy,
		Groups:  stored,
		Totals:  s.mixer.Totals(stored),
	}, nil
}

// Derive regenerates the deal's linked groups from its stored unit records
// along the requested dimension. Unlinked groups survive untouched.
func (s *UnitMixService) Derive(ctx context.Context, dealID int64, groupBy string) (domain.UnitMix, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return domain.UnitMix{}, err
	}
	if groupBy == "" {
		groupBy = domain.GroupByUnitType
	}

	stored, err := s.store.ListUnitMixGroups(ctx, dealID)
	if err != nil {
		return domain.UnitMix{}, err
	}
	groups, err := s.rederive(ctx, dealID, groupBy, stored)
	if err != nil {
		return domain.UnitMix{}, err
	}

	s.audit(ctx, dealID, "unit_mix_derived",
		fmt.Sprintf("Derived unit mix by %s: %d groups", groupBy, len(groups)))
	return domain.UnitMix{
		DealID:  dealID,
		GroupBy: groupBy,
		Groups:  groups,
		Totals:  s.mixer.Totals(groups),
	}, nil
}

// rederive rebuilds the linked portion of the mix from the current unit
// records, carries unlinked groups over, and persists the combined set.
func (s *UnitMixService) rederive(ctx context.Context, dealID int64, groupBy string, stored []domain.UnitMixGroup) ([]domain.UnitMixGroup, error) {
	records, err := s.store.ListUnitRecords(ctx, dealID)
	if err != nil {
		return nil, err
	}

	sourceName := ""
	var unlinked []domain.UnitMixGroup
	for _, g := range stored {
		if g.IsLinked {
			if sourceName == "" && g.SourceName != nil {
				sourceName = *g.SourceName
			}
		} else {
			unlinked = append(unlinked, g)
		}
	}

	var derived []domain.UnitMixGroup
	if len(records) > 0 {
		derived, err = s.mixer.DeriveFromUnits(records, dealID, groupBy, sourceName, s.now())
		if err != nil {
			return nil, err
		}
	}

	combined := append(derived, unlinked...)
	if err := s.store.ReplaceUnitMixGroups(ctx, dealID, combined); err != nil {
		return nil, err
	}
	return s.store.ListUnitMixGroups(ctx, dealID)
}

// AddManualGroup creates a new unlinked group from the given fields.
func (s *UnitMixService) AddManualGroup(ctx context.Context, dealID int64, edit unitmix.ManualEdit) (domain.UnitMixGroup, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return domain.UnitMixGroup{}, err
	}

	g := domain.UnitMixGroup{
		DealID:     dealID,
		Provenance: domain.ProvenanceManual,
		IsLinked:   false,
	}
	if err := s.mixer.ApplyManualEdit(&g, edit, s.now()); err != nil {
		return domain.UnitMixGroup{}, err
	}
	g.GroupKey = g.UnitType

	created, err := s.store.InsertUnitMixGroup(ctx, g)
	if err != nil {
		return domain.UnitMixGroup{}, err
	}
	s.audit(ctx, dealID, "unit_mix_group_added",
		fmt.Sprintf("Added manual unit mix group %q", created.GroupKey))
	return created, nil
}

// EditGroup applies a manual edit to an unlinked group. Linked groups are
// rejected with LINKED_GROUP_IMMUTABLE.
func (s *UnitMixService) EditGroup(ctx context.Context, groupID int64, edit unitmix.ManualEdit) (domain.UnitMixGroup, error) {
	g, err := s.store.GetUnitMixGroup(ctx, groupID)
	if err != nil {
		return domain.UnitMixGroup{}, err
	}
	if err := s.mixer.ApplyManualEdit(&g, edit, s.now()); err != nil {
		return domain.UnitMixGroup{}, err
	}
	if err := s.store.UpdateUnitMixGroup(ctx, g); err != nil {
		return domain.UnitMixGroup{}, err
	}
	s.audit(ctx, g.DealID, "unit_mix_group_edited",
		fmt.Sprintf("Edited unit mix group %q", g.GroupKey))
	return g, nil
}

// UnlinkGroup detaches a group from its source rent roll, freezing its
// current values and opening it to manual edits.
func (s *UnitMixService) UnlinkGroup(ctx context.Context, groupID int64) (domain.UnitMixGroup, error) {
	g, err := s.store.GetUnitMixGroup(ctx, groupID)
	if err != nil {
		return domain.UnitMixGroup{}, err
	}
	if !g.IsLinked {
		return g, nil
	}
	s.mixer.Unlink(&g, s.now())
	if err := s.store.UpdateUnitMixGroup(ctx, g); err != nil {
		return domain.UnitMixGroup{}, err
	}
	s.audit(ctx, g.DealID, "unit_mix_group_unlinked",
		fmt.Sprintf("Unlinked unit mix group %q", g.GroupKey))
	return g, nil
}

// DeleteGroup removes an unlinked group. Linked groups are rejected.
func (s *UnitMixService) DeleteGroup(ctx context.Context, groupID int64) error {
	g, err := s.store.GetUnitMixGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUnitMixGroup(ctx, groupID); err != nil {
		return err
	}
	s.audit(ctx, g.DealID, "unit_mix_group_deleted",
		fmt.Sprintf("Deleted unit mix group %q", g.GroupKey))
	return nil
}

func hasLinked(groups []domain.UnitMixGroup) bool {
	for _, g := range groups {
		if g.IsLinked {
			return true
		}
	}
	return false
}

func (s *UnitMixService) audit(ctx context.Context, dealID int64, eventType, description string) {
	err := s.store.AppendAuditEvent(ctx, domain.AuditEvent{
		DealID:      dealID,
		EventType:   eventType,
		Description: description,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to append audit event",
			slog.Int64("deal_id", dealID),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
