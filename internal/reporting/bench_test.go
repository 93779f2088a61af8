package reporting

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// largePortfolio builds 20 properties of 25 rooms with two years of monthly bills.
func largePortfolio() *memStore {
	store := newMemStore()
	var props []string
	for p := 0; p < 20; p++ {
		propID := fmt.Sprintf("prop-%02d", p)
		props = append(props, propID)
		for r := 0; r < 25; r++ {
			roomID := fmt.Sprintf("%s-room-%02d", propID, r)
			store.rooms = append(store.rooms, Room{ID: roomID, PropertyID: propID, Status: RoomOccupied, MonthlyRent: 3000000})
			store.contracts = append(store.contracts, Contract{
				ID: roomID + "-c", RoomID: roomID, Status: ContractActive,
				StartDate: day(2023, 1, 1), EndDate: ptr(day(2024, time.Month(1+r%12), 28)),
			})
			for m := 0; m < 24; m++ {
				start := day(2022, time.Month(4+m), 1)
				billID := fmt.Sprintf("%s-b%02d", roomID, m)
				store.bills = append(store.bills, Bill{
					ID: billID, RoomID: roomID, PeriodStart: start, Status: BillPaid,
					TotalAmount: 3250000, CreatedAt: start.Add(24 * time.Hour),
				})
				store.lines = append(store.lines,
					BillLineItem{BillID: billID, Amount: 3000000},
					BillLineItem{BillID: billID, ServiceID: ptr("svc-power"), Amount: 250000},
				)
			}
		}
	}
	store.owners["owner-big"] = props
	return store
}

func BenchmarkFinancialYearly(b *testing.B) {
	agg := NewFinancialAggregator(largePortfolio(), newTestCalculator())
	req := PeriodRequest{Type: PeriodMonthly, Count: 12}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := agg.Summarize(ctx, AllProperties("owner-big"), req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkOverview(b *testing.B) {
	assembler := NewSummaryAssembler(largePortfolio(), newTestCalculator())
	req := PeriodRequest{Type: PeriodQuarterly, Count: 4}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := assembler.Overview(ctx, AllProperties("owner-big"), req); err != nil {
			b.Fatal(err)
		}
	}
}
