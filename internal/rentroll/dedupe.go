package rentroll

import (
	"time"

	"dealbase/internal/config"
	"dealbase/pkg/contracts/domain"
)

// Tie-break reasons recorded on duplicate resolutions, in rule order.
const (
	reasonNonZeroRent     = "non_zero_rent"
	reasonOccupiedStatus  = "occupied_status"
	reasonActiveLease     = "active_lease"
	reasonMostRecentLease = "most_recent_lease_start"
	reasonFirstRowOrder   = "first_row_order"
)

// Resolver collapses records sharing a unit number down to one survivor per
// unit, applying the tie-break rules in a fixed order.
type Resolver struct {
	cfg config.ParserConfig
}

// NewResolver creates a resolver with the given thresholds.
func NewResolver(cfg config.ParserConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve returns one record per unit number, preserving first-seen unit
// order. The count of discarded records and a bounded sample of the
// decisions made are returned for the parsing summary.
func (r *Resolver) Resolve(records []domain.UnitRecord, now time.Time) ([]domain.UnitRecord, int, []domain.DuplicateResolution) {
	type group struct {
		indices []int
	}
	byUnit := make(map[string]*group)
	var order []string
	for i, rec := range records {
		g, ok := byUnit[rec.UnitNumber]
		if !ok {
			g = &group{}
			byUnit[rec.UnitNumber] = g
			order = append(order, rec.UnitNumber)
		}
		g.indices = append(g.indices, i)
	}

	kept := make([]domain.UnitRecord, 0, len(order))
	resolved := 0
	var examples []domain.DuplicateResolution
	for _, unit := range order {
		g := byUnit[unit]
		if len(g.indices) == 1 {
			kept = append(kept, records[g.indices[0]])
			continue
		}

		winner, reason := r.pick(records, g.indices, now)
		rec := records[winner]
		rec.IsDuplicate = true
		kept = append(kept, rec)
		resolved += len(g.indices) - 1

		if len(examples) < r.cfg.DuplicateExampleLimit {
			examples = append(examples, domain.DuplicateResolution{
				UnitNumber: unit,
				Candidates: len(g.indices),
				KeptRow:    winner,
				Reason:     reason,
			})
		}
	}
	return kept, resolved, examples
}

// pick applies the tie-break rules over the candidate indices and returns
// the surviving index plus the rule that decided it.
func (r *Resolver) pick(records []domain.UnitRecord, candidates []int, now time.Time) (int, string) {
	withRent := filter(candidates, func(i int) bool { return records[i].ActualRent > 0 })
	if len(withRent) == 1 {
		return withRent[0], reasonNonZeroRent
	}
	if len(withRent) > 1 {
		occupied := filter(withRent, func(i int) bool { return records[i].Occupied() })
		if len(occupied) == 1 {
			return occupied[0], reasonOccupiedStatus
		}
		if len(occupied) > 1 {
			candidates = occupied
		} else {
			candidates = withRent
		}
	}

	active := filter(candidates, func(i int) bool { return records[i].LeaseActiveAt(now) })
	if len(active) == 1 {
		return active[0], reasonActiveLease
	}
	if len(active) > 1 {
		candidates = active
	}

	if best, ok := mostRecentLeaseStart(records, candidates); ok {
		if len(active) > 1 {
			return best, reasonActiveLease
		}
		return best, reasonMostRecentLease
	}
	return candidates[0], reasonFirstRowOrder
}

// mostRecentLeaseStart returns the candidate with the latest lease start,
// keeping earlier row order on exact ties. False when no candidate has one.
func mostRecentLeaseStart(records []domain.UnitRecord, candidates []int) (int, bool) {
	best := -1
	var bestStart time.Time
	for _, i := range candidates {
		start := records[i].LeaseStart
		if start == nil {
			continue
		}
		if best == -1 || start.After(bestStart) {
			best = i
			bestStart = *start
		}
	}
	return best, best != -1
}

func filter(indices []int, keep func(int) bool) []int {
	var out []int
	for _, i := range indices {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}
