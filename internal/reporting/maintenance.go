package reporting

import "context"

// TypeCounts tallies tickets by maintenance type.
type TypeCounts struct {
	Building int `json:"building"`
	Room     int `json:"room"`
	Other    int `json:"other"`
}

// PriorityCounts tallies tickets by priority.
type PriorityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
	Urgent int `json:"urgent"`
}

// MaintenanceSummary aggregates requests and tickets raised in one period.
type MaintenanceSummary struct {
	Period Period `json:"period"`

	TotalRequestCount     int `json:"totalRequestCount"`
	PendingRequestCount   int `json:"pendingRequestCount"`
	ApprovedRequestCount  int `json:"approvedRequestCount"`
	RejectedRequestCount  int `json:"rejectedRequestCount"`
	CancelledRequestCount int `json:"cancelledRequestCount"`

	TotalTicketCount      int `json:"totalTicketCount"`
	PendingTicketCount    int `json:"pendingTicketCount"`
	InProgressTicketCount int `json:"inProgressTicketCount"`
	CompletedTicketCount  int `json:"completedTicketCount"`
	CancelledTicketCount  int `json:"cancelledTicketCount"`

	ByType     TypeCounts     `json:"byType"`
	ByPriority PriorityCounts `json:"byPriority"`

	CompletionRate           float64 `json:"completionRate"`
	TotalMaintenanceCost     float64 `json:"totalMaintenanceCost"`
	EstimatedMaintenanceCost float64 `json:"estimatedMaintenanceCost"`
	// AvgCostPerRequest divides ticket spend by the request count of the period.
	AvgCostPerRequest float64 `json:"avgCostPerRequest"`
	AvgResolutionDays float64 `json:"avgResolutionDays"`
}

// MaintenanceInput holds the two independent record streams.
type MaintenanceInput struct {
	Tickets  []MaintenanceTicket
	Requests []MaintenanceRequest
}

// MaintenanceAggregator buckets tickets and requests by creation date.
type MaintenanceAggregator struct {
	store   Store
	periods *PeriodCalculator
	// DropIfEmpty removes periods with neither tickets nor requests.
	DropIfEmpty bool
}

// NewMaintenanceAggregator wires the aggregator. Idle periods are dropped.
func NewMaintenanceAggregator(store Store, periods *PeriodCalculator) *MaintenanceAggregator {
	return &MaintenanceAggregator{store: store, periods: periods, DropIfEmpty: true}
}

// Summarize returns one summary per active period, most recent first.
func (a *MaintenanceAggregator) Summarize(ctx context.Context, scope Scope, req PeriodRequest) ([]MaintenanceSummary, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	periods, err := a.periods.ComputePeriods(req.Type, req.Count, req.Filter)
	if err != nil {
		return nil, err
	}
	var input MaintenanceInput
	filter, err := resolveFilter(ctx, a.store, scope)
	if err != nil {
		return nil, err
	}
	if !filter.Empty() {
		if input.Tickets, err = a.store.MaintenanceTickets(ctx, filter); err != nil {
			return nil, unavailable("maintenance tickets", err)
		}
		if input.Requests, err = a.store.MaintenanceRequests(ctx, filter); err != nil {
			return nil, unavailable("maintenance requests", err)
		}
	}
	return ComputeMaintenance(periods, input, a.DropIfEmpty), nil
}

// ComputeMaintenance buckets the input into periods. It performs no I/O.
func ComputeMaintenance(periods []Period, in MaintenanceInput, dropIfEmpty bool) []MaintenanceSummary {
	out := make([]MaintenanceSummary, 0, len(periods))
	for _, p := range periods {
		s := summarizeMaintenancePeriod(p, in)
		if dropIfEmpty && s.TotalTicketCount == 0 && s.TotalRequestCount == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

func summarizeMaintenancePeriod(p Period, in MaintenanceInput) MaintenanceSummary {
	s := MaintenanceSummary{Period: p}

	for _, r := range in.Requests {
		if !p.ContainsTime(r.CreatedAt) {
			continue
		}
		s.TotalRequestCount++
		switch r.Status {
		case RequestPending:
			s.PendingRequestCount++
		case RequestApproved:
			s.ApprovedRequestCount++
		case RequestRejected:
			s.RejectedRequestCount++
		case RequestCancelled:
			s.CancelledRequestCount++
		}
	}

	var spent, estimated amount
	var resolutionDays float64
	resolved := 0
	for _, t := range in.Tickets {
		if !p.ContainsTime(t.CreatedAt) {
			continue
		}
		s.TotalTicketCount++
		switch t.Status {
		case TicketPending:
			s.PendingTicketCount++
			estimated.add(t.Cost)
		case TicketInProgress:
			s.InProgressTicketCount++
			estimated.add(t.Cost)
		case TicketCompleted:
			s.CompletedTicketCount++
			spent.add(t.Cost)
			if t.CompletedAt != nil && !t.CompletedAt.IsZero() {
				resolutionDays += t.CompletedAt.Sub(t.CreatedAt).Hours() / 24
				resolved++
			}
		case TicketCancelled:
			s.CancelledTicketCount++
		}
		switch t.MaintenanceType {
		case MaintenanceBuilding:
			s.ByType.Building++
		case MaintenanceRoom:
			s.ByType.Room++
		case MaintenanceOther:
			s.ByType.Other++
		}
		switch t.Priority {
		case PriorityLow:
			s.ByPriority.Low++
		case PriorityMedium:
			s.ByPriority.Medium++
		case PriorityHigh:
			s.ByPriority.High++
		case PriorityUrgent:
			s.ByPriority.Urgent++
		}
	}

	s.TotalMaintenanceCost = spent.float()
	s.EstimatedMaintenanceCost = estimated.float()
	s.CompletionRate = percent(float64(s.CompletedTicketCount), float64(s.TotalTicketCount))
	s.AvgCostPerRequest = ratio(s.TotalMaintenanceCost, float64(s.TotalRequestCount))
	s.AvgResolutionDays = ratio(resolutionDays, float64(resolved))
	return s
}
