package reporting

import "context"

// FinancialSummary aggregates billing and maintenance spend for one period.
type FinancialSummary struct {
	Period Period `json:"period"`

	TotalPotentialRevenue float64 `json:"totalPotentialRevenue"`
	TotalRevenue          float64 `json:"totalRevenue"`
	RentRevenue           float64 `json:"rentRevenue"`
	ServiceRevenue        float64 `json:"serviceRevenue"`
	LateFeeRevenue        float64 `json:"lateFeeRevenue"`

	UnpaidAmount        float64 `json:"unpaidAmount"`
	OverdueAmount       float64 `json:"overdueAmount"`
	PartiallyPaidAmount float64 `json:"partiallyPaidAmount"`
	ProcessingAmount    float64 `json:"processingAmount"`
	TotalUnpaidAmount   float64 `json:"totalUnpaidAmount"`

	PaidBillsCount          int `json:"paidBillsCount"`
	UnpaidBillsCount        int `json:"unpaidBillsCount"`
	OverdueBillsCount       int `json:"overdueBillsCount"`
	PartiallyPaidBillsCount int `json:"partiallyPaidBillsCount"`
	ProcessingBillsCount    int `json:"processingBillsCount"`
	TotalBillsCount         int `json:"totalBillsCount"`

	MaintenanceCost          float64 `json:"maintenanceCost"`
	EstimatedMaintenanceCost float64 `json:"estimatedMaintenanceCost"`

	NetProfit      float64 `json:"netProfit"`
	ProfitMargin   float64 `json:"profitMargin"`
	CollectionRate float64 `json:"collectionRate"`
}

// FinancialInput is everything the financial computation reads. RentOnly selects the
// room-level calculation: paid bill totals count as rent, line items and maintenance
// are ignored.
type FinancialInput struct {
	Bills     []Bill
	LineItems []BillLineItem
	Tickets   []MaintenanceTicket
	RentOnly  bool
}

// FinancialAggregator buckets bills and ticket costs into periods.
type FinancialAggregator struct {
	store   Store
	periods *PeriodCalculator
	// DropIfEmpty removes periods without bills from the result.
	DropIfEmpty bool
}

// NewFinancialAggregator wires the aggregator. Periods without bills are dropped.
func NewFinancialAggregator(store Store, periods *PeriodCalculator) *FinancialAggregator {
	return &FinancialAggregator{store: store, periods: periods, DropIfEmpty: true}
}

// Summarize returns one summary per period with activity, most recent first.
func (a *FinancialAggregator) Summarize(ctx context.Context, scope Scope, req PeriodRequest) ([]FinancialSummary, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	periods, err := a.periods.ComputePeriods(req.Type, req.Count, req.Filter)
	if err != nil {
		return nil, err
	}
	input, err := a.fetch(ctx, scope)
	if err != nil {
		return nil, err
	}
	return ComputeFinancials(periods, input, a.DropIfEmpty), nil
}

func (a *FinancialAggregator) fetch(ctx context.Context, scope Scope) (FinancialInput, error) {
	input := FinancialInput{RentOnly: scope.Kind == ScopeRoom}
	filter, err := resolveFilter(ctx, a.store, scope)
	if err != nil {
		return input, err
	}
	if filter.Empty() {
		return input, nil
	}
	if input.Bills, err = a.store.Bills(ctx, filter); err != nil {
		return input, unavailable("bills", err)
	}
	if input.RentOnly {
		return input, nil
	}
	if len(input.Bills) > 0 {
		ids := make([]string, 0, len(input.Bills))
		for _, b := range input.Bills {
			ids = append(ids, b.ID)
		}
		if input.LineItems, err = a.store.BillLineItems(ctx, ids); err != nil {
			return input, unavailable("bill line items", err)
		}
	}
	if input.Tickets, err = a.store.MaintenanceTickets(ctx, filter); err != nil {
		return input, unavailable("maintenance tickets", err)
	}
	return input, nil
}

// ComputeFinancials buckets the input into periods. It performs no I/O.
func ComputeFinancials(periods []Period, in FinancialInput, dropIfEmpty bool) []FinancialSummary {
	lines := make(map[string][]BillLineItem, len(in.Bills))
	for _, li := range in.LineItems {
		lines[li.BillID] = append(lines[li.BillID], li)
	}

	out := make([]FinancialSummary, 0, len(periods))
	for _, p := range periods {
		s := summarizeFinancialPeriod(p, in, lines)
		if dropIfEmpty && s.TotalBillsCount == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

func summarizeFinancialPeriod(p Period, in FinancialInput, lines map[string][]BillLineItem) FinancialSummary {
	s := FinancialSummary{Period: p}
	var potential, rent, service, lateFee amount
	var unpaid, overdue, partial, processing amount

	for _, b := range in.Bills {
		if !p.Contains(b.PeriodStart) {
			continue
		}
		s.TotalBillsCount++
		potential.add(b.TotalAmount)
		switch b.Status {
		case BillPaid:
			s.PaidBillsCount++
			if in.RentOnly {
				rent.add(b.TotalAmount)
				continue
			}
			for _, li := range lines[b.ID] {
				if li.IsRent() {
					rent.add(li.Amount)
				} else {
					service.add(li.Amount)
				}
			}
			lateFee.add(b.LateFee)
		case BillUnpaid:
			s.UnpaidBillsCount++
			unpaid.add(b.TotalAmount)
		case BillOverdue:
			s.OverdueBillsCount++
			overdue.add(b.TotalAmount)
		case BillPartiallyPaid:
			s.PartiallyPaidBillsCount++
			partial.add(b.TotalAmount)
		case BillProcessing:
			s.ProcessingBillsCount++
			processing.add(b.TotalAmount)
		}
	}

	var spent, estimated amount
	if !in.RentOnly {
		for _, t := range in.Tickets {
			if !p.ContainsTime(t.CreatedAt) {
				continue
			}
			switch t.Status {
			case TicketCompleted:
				spent.add(t.Cost)
			case TicketPending, TicketInProgress:
				estimated.add(t.Cost)
			}
		}
	}

	s.TotalPotentialRevenue = potential.float()
	s.RentRevenue = rent.float()
	s.ServiceRevenue = service.float()
	s.LateFeeRevenue = lateFee.float()
	s.TotalRevenue = rent.sum.Add(service.sum).Add(lateFee.sum).InexactFloat64()

	s.UnpaidAmount = unpaid.float()
	s.OverdueAmount = overdue.float()
	s.PartiallyPaidAmount = partial.float()
	s.ProcessingAmount = processing.float()
	s.TotalUnpaidAmount = unpaid.sum.Add(overdue.sum).Add(partial.sum).Add(processing.sum).InexactFloat64()

	s.MaintenanceCost = spent.float()
	s.EstimatedMaintenanceCost = estimated.float()

	s.CollectionRate = percent(float64(s.PaidBillsCount), float64(s.TotalBillsCount))
	s.NetProfit = rent.sum.Add(service.sum).Add(lateFee.sum).Sub(spent.sum).InexactFloat64()
	s.ProfitMargin = percent(s.NetProfit, s.TotalRevenue)
	return s
}
