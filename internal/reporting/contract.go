package reporting

import (
	"context"
	"time"
)

// ContractSummary aggregates contract movement for one period.
type ContractSummary struct {
	Period Period `json:"period"`

	TotalContracts      int `json:"totalContracts"`
	DraftContracts      int `json:"draftContracts"`
	ActiveContracts     int `json:"activeContracts"`
	ExpiredContracts    int `json:"expiredContracts"`
	TerminatedContracts int `json:"terminatedContracts"`

	NewContracts        int `json:"newContracts"`
	Renewals            int `json:"renewals"`
	Terminations        int `json:"terminations"`
	ActiveAtPeriodStart int `json:"activeAtPeriodStart"`

	RenewalRate float64 `json:"renewalRate"`
	ChurnRate   float64 `json:"churnRate"`

	// Expiring counters are scope-wide and measured from today, not the period.
	Expiring30Days int `json:"expiring30Days"`
	Expiring60Days int `json:"expiring60Days"`
	Expiring90Days int `json:"expiring90Days"`
}

// ContractInput is the contract stream for a scope.
type ContractInput struct {
	Contracts []Contract
}

// ContractAggregator buckets contracts into every period they touch.
type ContractAggregator struct {
	store   Store
	periods *PeriodCalculator
	// DropIfEmpty removes periods without a relevant contract.
	DropIfEmpty bool
}

// NewContractAggregator wires the aggregator. Periods without contracts are dropped.
func NewContractAggregator(store Store, periods *PeriodCalculator) *ContractAggregator {
	return &ContractAggregator{store: store, periods: periods, DropIfEmpty: true}
}

// Summarize returns one summary per period with relevant contracts, most recent first.
func (a *ContractAggregator) Summarize(ctx context.Context, scope Scope, req PeriodRequest) ([]ContractSummary, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	periods, err := a.periods.ComputePeriods(req.Type, req.Count, req.Filter)
	if err != nil {
		return nil, err
	}
	var input ContractInput
	filter, err := resolveFilter(ctx, a.store, scope)
	if err != nil {
		return nil, err
	}
	if !filter.Empty() {
		if input.Contracts, err = a.store.Contracts(ctx, filter); err != nil {
			return nil, unavailable("contracts", err)
		}
	}
	return ComputeContracts(periods, input, a.periods.Today(), a.DropIfEmpty), nil
}

// ComputeContracts buckets the input into periods. today anchors the expiry windows.
// A contract counts toward every period it is relevant to, so one record can appear
// in several consecutive periods.
func ComputeContracts(periods []Period, in ContractInput, today time.Time, dropIfEmpty bool) []ContractSummary {
	exp30, exp60, exp90 := expiringCounts(in.Contracts, today)

	out := make([]ContractSummary, 0, len(periods))
	for _, p := range periods {
		s := summarizeContractPeriod(p, in.Contracts)
		if dropIfEmpty && s.TotalContracts == 0 {
			continue
		}
		s.Expiring30Days, s.Expiring60Days, s.Expiring90Days = exp30, exp60, exp90
		out = append(out, s)
	}
	return out
}

func contractRelevant(p Period, c Contract) bool {
	if p.ContainsTime(c.CreatedAt) || p.Contains(c.StartDate) {
		return true
	}
	if c.EndDate != nil && p.Contains(*c.EndDate) {
		return true
	}
	return p.Overlaps(c.StartDate, c.EndDate)
}

func summarizeContractPeriod(p Period, contracts []Contract) ContractSummary {
	s := ContractSummary{Period: p}
	periodStart := dateKey(p.Start)

	for _, c := range contracts {
		if c.Status == ContractActive && dateKey(c.StartDate) < periodStart &&
			(c.EndDate == nil || dateKey(*c.EndDate) >= periodStart) {
			s.ActiveAtPeriodStart++
		}
		if !contractRelevant(p, c) {
			continue
		}
		s.TotalContracts++
		switch c.Status {
		case ContractDraft:
			s.DraftContracts++
		case ContractActive:
			s.ActiveContracts++
			if p.Contains(c.StartDate) {
				s.Renewals++
			}
		case ContractExpired, ContractTerminated:
			if c.Status == ContractExpired {
				s.ExpiredContracts++
			} else {
				s.TerminatedContracts++
			}
			if c.EndDate != nil && p.Contains(*c.EndDate) {
				s.Terminations++
			}
		}
		if p.ContainsTime(c.CreatedAt) {
			s.NewContracts++
		}
	}

	s.RenewalRate = percent(float64(s.Renewals), float64(s.Renewals+s.Terminations))
	s.ChurnRate = percent(float64(s.Terminations), float64(s.ActiveAtPeriodStart))
	return s
}

// expiringCounts returns cumulative counts of active contracts ending within 30, 60
// and 90 days of today.
func expiringCounts(contracts []Contract, today time.Time) (int, int, int) {
	var in30, in60, in90 int
	for _, c := range contracts {
		if c.Status != ContractActive || c.EndDate == nil {
			continue
		}
		days := daysBetween(today, *c.EndDate)
		if days < 0 {
			continue
		}
		if days <= 30 {
			in30++
		}
		if days <= 60 {
			in60++
		}
		if days <= 90 {
			in90++
		}
	}
	return in30, in60, in90
}
