package reporting

import (
	"context"
	"time"
)

// expiringSoonDays is the fixed lookahead for the occupancy snapshot.
const expiringSoonDays = 30

// OccupancySummary is a point-in-time snapshot of room usage.
type OccupancySummary struct {
	AsOf string `json:"asOf"`

	TotalRooms       int `json:"totalRooms"`
	OccupiedRooms    int `json:"occupiedRooms"`
	VacantRooms      int `json:"vacantRooms"`
	MaintenanceRooms int `json:"maintenanceRooms"`
	DepositedRooms   int `json:"depositedRooms"`

	ActiveContracts       int `json:"activeContracts"`
	ExpiringSoonContracts int `json:"expiringSoonContracts"`
	TotalTenants          int `json:"totalTenants"`

	RevenueLoss   float64 `json:"revenueLoss"`
	OccupancyRate float64 `json:"occupancyRate"`
}

// OccupancyInput is the current state of a scope.
type OccupancyInput struct {
	Rooms        []Room
	Contracts    []Contract
	TotalTenants int
}

// OccupancyAggregator computes the snapshot. It never drops its single result.
type OccupancyAggregator struct {
	store   Store
	periods *PeriodCalculator
	// DropIfEmpty is always false: an empty scope yields a zero-filled snapshot.
	DropIfEmpty bool
}

// NewOccupancyAggregator wires the aggregator. The calculator only supplies today.
func NewOccupancyAggregator(store Store, periods *PeriodCalculator) *OccupancyAggregator {
	return &OccupancyAggregator{store: store, periods: periods}
}

// Summarize returns exactly one snapshot for the scope.
func (a *OccupancyAggregator) Summarize(ctx context.Context, scope Scope) (OccupancySummary, error) {
	var input OccupancyInput
	filter, err := resolveFilter(ctx, a.store, scope)
	if err != nil {
		return OccupancySummary{}, err
	}
	if !filter.Empty() {
		if input.Rooms, err = a.store.Rooms(ctx, filter); err != nil {
			return OccupancySummary{}, unavailable("rooms", err)
		}
		if input.Contracts, err = a.store.Contracts(ctx, filter); err != nil {
			return OccupancySummary{}, unavailable("contracts", err)
		}
		if input.TotalTenants, err = a.store.ActiveTenantCount(ctx, filter); err != nil {
			return OccupancySummary{}, unavailable("tenants", err)
		}
	}
	return ComputeOccupancy(input, a.periods.Today()), nil
}

// ComputeOccupancy derives the snapshot. It performs no I/O.
func ComputeOccupancy(in OccupancyInput, today time.Time) OccupancySummary {
	s := OccupancySummary{AsOf: today.Format(dateLayout), TotalTenants: in.TotalTenants}
	var loss amount
	for _, r := range in.Rooms {
		switch r.Status {
		case RoomOccupied:
			s.OccupiedRooms++
		case RoomVacant:
			s.VacantRooms++
			loss.add(r.MonthlyRent)
		case RoomMaintenance:
			s.MaintenanceRooms++
		}
	}
	s.TotalRooms = s.OccupiedRooms + s.VacantRooms + s.MaintenanceRooms

	for _, c := range in.Contracts {
		switch c.Status {
		case ContractDraft:
			s.DepositedRooms++
		case ContractActive:
			s.ActiveContracts++
			if c.EndDate != nil {
				if days := daysBetween(today, *c.EndDate); days >= 0 && days <= expiringSoonDays {
					s.ExpiringSoonContracts++
				}
			}
		}
	}

	s.RevenueLoss = loss.float()
	s.OccupancyRate = percent(float64(s.OccupiedRooms), float64(s.TotalRooms))
	return s
}
