package reporting

import (
	"context"
	"strconv"
)

// Service fronts the SummaryAssembler with the versioned cache.
type Service struct {
	assembler *SummaryAssembler
	periods   *PeriodCalculator
	cache     *Cache
}

// NewService wires a Store and calendar with an optional Cache.
func NewService(store Store, periods *PeriodCalculator, cache *Cache) *Service {
	return &Service{
		assembler: NewSummaryAssembler(store, periods),
		periods:   periods,
		cache:     cache,
	}
}

// Assembler exposes the uncached engine.
func (s *Service) Assembler() *SummaryAssembler { return s.assembler }

// Financial returns the financial series for scope.
func (s *Service) Financial(ctx context.Context, scope Scope, req PeriodRequest) ([]FinancialSummary, error) {
	if err := validateRequest(scope, &req); err != nil {
		return nil, err
	}
	return load(ctx, s, "financial", seriesKey(scope, req, s.today()), func(ctx context.Context) ([]FinancialSummary, error) {
		return s.assembler.Financial.Summarize(ctx, scope, req)
	})
}

// Maintenance returns the maintenance series for scope.
func (s *Service) Maintenance(ctx context.Context, scope Scope, req PeriodRequest) ([]MaintenanceSummary, error) {
	if err := validateRequest(scope, &req); err != nil {
		return nil, err
	}
	return load(ctx, s, "maintenance", seriesKey(scope, req, s.today()), func(ctx context.Context) ([]MaintenanceSummary, error) {
		return s.assembler.Maintenance.Summarize(ctx, scope, req)
	})
}

// Contracts returns the contract series for scope.
func (s *Service) Contracts(ctx context.Context, scope Scope, req PeriodRequest) ([]ContractSummary, error) {
	if err := validateRequest(scope, &req); err != nil {
		return nil, err
	}
	return load(ctx, s, "contracts", seriesKey(scope, req, s.today()), func(ctx context.Context) ([]ContractSummary, error) {
		return s.assembler.Contracts.Summarize(ctx, scope, req)
	})
}

// Occupancy returns the occupancy snapshot for scope.
func (s *Service) Occupancy(ctx context.Context, scope Scope) (OccupancySummary, error) {
	if err := scope.Validate(); err != nil {
		return OccupancySummary{}, err
	}
	return load(ctx, s, "occupancy", []string{scope.Key(), s.today()}, func(ctx context.Context) (OccupancySummary, error) {
		return s.assembler.Occupancy.Summarize(ctx, scope)
	})
}

// Overview returns the dashboard cards for scope.
func (s *Service) Overview(ctx context.Context, scope Scope, req PeriodRequest) (Overview, error) {
	if err := validateRequest(scope, &req); err != nil {
		return Overview{}, err
	}
	return load(ctx, s, "overview", seriesKey(scope, req, s.today()), func(ctx context.Context) (Overview, error) {
		return s.assembler.Overview(ctx, scope, req)
	})
}

// Trends returns the three period series for scope.
func (s *Service) Trends(ctx context.Context, scope Scope, req PeriodRequest) (Trends, error) {
	if err := validateRequest(scope, &req); err != nil {
		return Trends{}, err
	}
	return load(ctx, s, "trends", seriesKey(scope, req, s.today()), func(ctx context.Context) (Trends, error) {
		return s.assembler.Trends(ctx, scope, req)
	})
}

// BumpCache invalidates every cached summary.
func (s *Service) BumpCache(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) today() string {
	return s.periods.Today().Format(dateLayout)
}

func validateRequest(scope Scope, req *PeriodRequest) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if !req.Type.Valid() {
		return invalidf("unknown period type %q", req.Type)
	}
	if req.Filter.IsZero() {
		req.Filter = nil
	}
	return req.Filter.validate()
}

// seriesKey includes today because expiry windows and weekly periods move with it.
func seriesKey(scope Scope, req PeriodRequest, today string) []string {
	filter := "-"
	if f := req.Filter; f != nil {
		filter = strconv.Itoa(f.Year) + "-" + strconv.Itoa(f.Month) + "-" + strconv.Itoa(f.Quarter)
	}
	return []string{scope.Key(), string(req.Type), strconv.Itoa(req.Count), filter, today}
}

func load[T any](ctx context.Context, s *Service, report string, parts []string, loader func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return loader(ctx)
	}
	var out T
	key, err := s.cache.BuildKey(ctx, append([]string{"reporting", report}, parts...)...)
	if err != nil {
		return loader(ctx)
	}
	err = s.cache.FetchJSON(ctx, report, key, &out, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	return out, err
}
