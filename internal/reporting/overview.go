package reporting

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Overview is the dashboard card set: the latest period of each series plus occupancy.
type Overview struct {
	Scope       Scope               `json:"scope"`
	PeriodType  PeriodType          `json:"periodType"`
	Financial   *FinancialSummary   `json:"financial"`
	Maintenance *MaintenanceSummary `json:"maintenance"`
	Contracts   *ContractSummary    `json:"contracts"`
	Occupancy   OccupancySummary    `json:"occupancy"`
}

// Trends bundles the three period series.
type Trends struct {
	Scope       Scope                `json:"scope"`
	PeriodType  PeriodType           `json:"periodType"`
	Financial   []FinancialSummary   `json:"financial"`
	Maintenance []MaintenanceSummary `json:"maintenance"`
	Contracts   []ContractSummary    `json:"contracts"`
}

// SummaryAssembler composes the four aggregators.
type SummaryAssembler struct {
	Financial   *FinancialAggregator
	Maintenance *MaintenanceAggregator
	Contracts   *ContractAggregator
	Occupancy   *OccupancyAggregator
}

// NewSummaryAssembler builds every aggregator over the same store and calendar.
func NewSummaryAssembler(store Store, periods *PeriodCalculator) *SummaryAssembler {
	return &SummaryAssembler{
		Financial:   NewFinancialAggregator(store, periods),
		Maintenance: NewMaintenanceAggregator(store, periods),
		Contracts:   NewContractAggregator(store, periods),
		Occupancy:   NewOccupancyAggregator(store, periods),
	}
}

// Trends runs the three period aggregations concurrently. Any failure fails the call.
func (a *SummaryAssembler) Trends(ctx context.Context, scope Scope, req PeriodRequest) (Trends, error) {
	if err := scope.Validate(); err != nil {
		return Trends{}, err
	}
	if !req.Type.Valid() {
		return Trends{}, invalidf("unknown period type %q", req.Type)
	}
	out := Trends{Scope: scope, PeriodType: req.Type}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		series, err := a.Financial.Summarize(gctx, scope, req)
		out.Financial = series
		return err
	})
	g.Go(func() error {
		series, err := a.Maintenance.Summarize(gctx, scope, req)
		out.Maintenance = series
		return err
	})
	g.Go(func() error {
		series, err := a.Contracts.Summarize(gctx, scope, req)
		out.Contracts = series
		return err
	})
	if err := g.Wait(); err != nil {
		return Trends{}, err
	}
	return out, nil
}

// Overview picks the most recent summary of each series and adds the occupancy snapshot.
func (a *SummaryAssembler) Overview(ctx context.Context, scope Scope, req PeriodRequest) (Overview, error) {
	if err := scope.Validate(); err != nil {
		return Overview{}, err
	}
	if !req.Type.Valid() {
		return Overview{}, invalidf("unknown period type %q", req.Type)
	}
	var (
		trends    Trends
		occupancy OccupancySummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trends, err = a.Trends(gctx, scope, req)
		return err
	})
	g.Go(func() error {
		var err error
		occupancy, err = a.Occupancy.Summarize(gctx, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return Overview{
		Scope:       scope,
		PeriodType:  req.Type,
		Financial:   latest(trends.Financial),
		Maintenance: latest(trends.Maintenance),
		Contracts:   latest(trends.Contracts),
		Occupancy:   occupancy,
	}, nil
}

func latest[T any](series []T) *T {
	if len(series) == 0 {
		return nil
	}
	v := series[0]
	return &v
}
