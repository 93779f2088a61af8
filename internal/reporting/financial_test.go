package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func financialFixture() *memStore {
	store := newMemStore()
	store.owners["owner-1"] = []string{"prop-1", "prop-2"}
	store.rooms = []Room{
		{ID: "room-1", PropertyID: "prop-1", Status: RoomOccupied, MonthlyRent: 1000000},
		{ID: "room-2", PropertyID: "prop-1", Status: RoomVacant, MonthlyRent: 500000},
		{ID: "room-3", PropertyID: "prop-2", Status: RoomOccupied, MonthlyRent: 800000},
	}
	store.bills = []Bill{
		{ID: "bill-a", RoomID: "room-1", PeriodStart: day(2024, 3, 1), Status: BillPaid, TotalAmount: 1000000, CreatedAt: at(2024, 3, 1, 8)},
		{ID: "bill-b", RoomID: "room-2", PeriodStart: day(2024, 3, 1), Status: BillUnpaid, TotalAmount: 500000, CreatedAt: at(2024, 3, 1, 8)},
	}
	store.lines = []BillLineItem{
		{BillID: "bill-a", Amount: 1000000},
	}
	return store
}

func TestFinancialScenario(t *testing.T) {
	store := financialFixture()
	agg := NewFinancialAggregator(store, newTestCalculator())

	got, err := agg.Summarize(context.Background(), PropertyScope("prop-1"), PeriodRequest{Type: PeriodMonthly, Count: 3})
	require.NoError(t, err)
	require.Len(t, got, 1, "periods without bills are dropped")

	s := got[0]
	assert.Equal(t, "2024-03", s.Period.Label())
	assert.Equal(t, 1500000.0, s.TotalPotentialRevenue)
	assert.Equal(t, 1000000.0, s.TotalRevenue)
	assert.Equal(t, 1000000.0, s.RentRevenue)
	assert.Equal(t, 0.0, s.ServiceRevenue)
	assert.Equal(t, 500000.0, s.UnpaidAmount)
	assert.Equal(t, 500000.0, s.TotalUnpaidAmount)
	assert.Equal(t, 2, s.TotalBillsCount)
	assert.Equal(t, 1, s.PaidBillsCount)
	assert.Equal(t, 1, s.UnpaidBillsCount)
	assert.Equal(t, 50.0, s.CollectionRate)
	assert.Equal(t, 1000000.0, s.NetProfit)
	assert.Equal(t, 100.0, s.ProfitMargin)
}

func TestFinancialRevenueSplitAndMaintenance(t *testing.T) {
	store := financialFixture()
	store.bills = append(store.bills,
		Bill{ID: "bill-c", RoomID: "room-3", PeriodStart: day(2024, 3, 1), Status: BillPaid, TotalAmount: 950000, LateFee: 50000},
		Bill{ID: "bill-d", RoomID: "room-3", PeriodStart: day(2024, 2, 1), Status: BillOverdue, TotalAmount: 900000},
		Bill{ID: "bill-e", RoomID: "room-1", PeriodStart: day(2024, 2, 1), Status: BillPartiallyPaid, TotalAmount: 300000},
		Bill{ID: "bill-f", RoomID: "room-2", PeriodStart: day(2024, 2, 1), Status: BillProcessing, TotalAmount: 200000},
	)
	store.lines = append(store.lines,
		BillLineItem{BillID: "bill-c", Amount: 800000},
		BillLineItem{BillID: "bill-c", ServiceID: ptr("electricity"), Amount: 120000},
		BillLineItem{BillID: "bill-c", ServiceID: ptr("water"), Amount: 30000},
		BillLineItem{BillID: "bill-d", Amount: 900000},
	)
	store.tickets = []MaintenanceTicket{
		{ID: "t1", PropertyID: "prop-1", Status: TicketCompleted, Cost: 200000, CreatedAt: at(2024, 3, 5, 9)},
		{ID: "t2", PropertyID: "prop-2", Status: TicketInProgress, Cost: 75000, CreatedAt: at(2024, 3, 6, 9)},
		{ID: "t3", PropertyID: "prop-2", Status: TicketCancelled, Cost: 99000, CreatedAt: at(2024, 3, 7, 9)},
		{ID: "t4", PropertyID: "prop-1", Status: TicketCompleted, Cost: 10000, CreatedAt: at(2024, 1, 7, 9)},
	}
	agg := NewFinancialAggregator(store, newTestCalculator())

	got, err := agg.Summarize(context.Background(), AllProperties("owner-1"), PeriodRequest{Type: PeriodMonthly, Count: 3})
	require.NoError(t, err)
	require.Len(t, got, 2)

	march := got[0]
	assert.Equal(t, 1800000.0, march.RentRevenue)
	assert.Equal(t, 150000.0, march.ServiceRevenue)
	assert.Equal(t, 50000.0, march.LateFeeRevenue)
	assert.Equal(t, 2000000.0, march.TotalRevenue)
	assert.Equal(t, 200000.0, march.MaintenanceCost)
	assert.Equal(t, 75000.0, march.EstimatedMaintenanceCost)
	assert.Equal(t, 1800000.0, march.NetProfit)
	assert.Equal(t, 90.0, march.ProfitMargin)

	feb := got[1]
	assert.Equal(t, "2024-02", feb.Period.Label())
	assert.Equal(t, 3, feb.TotalBillsCount)
	assert.Equal(t, 900000.0, feb.OverdueAmount)
	assert.Equal(t, 300000.0, feb.PartiallyPaidAmount)
	assert.Equal(t, 200000.0, feb.ProcessingAmount)
	assert.Equal(t, 1400000.0, feb.TotalUnpaidAmount)
	assert.Equal(t, 0.0, feb.TotalRevenue)
	assert.Equal(t, 0.0, feb.CollectionRate)
	assert.Equal(t, 0.0, feb.ProfitMargin, "no revenue keeps margin at zero")
}

func TestFinancialRoomScopeCountsRentOnly(t *testing.T) {
	store := financialFixture()
	store.bills = append(store.bills, Bill{ID: "bill-c", RoomID: "room-1", PeriodStart: day(2024, 2, 1), Status: BillPaid, TotalAmount: 1100000, LateFee: 100000})
	store.lines = append(store.lines, BillLineItem{BillID: "bill-c", ServiceID: ptr("wifi"), Amount: 100000})
	store.tickets = []MaintenanceTicket{
		{ID: "t1", PropertyID: "prop-1", RoomID: ptr("room-1"), Status: TicketCompleted, Cost: 400000, CreatedAt: at(2024, 2, 5, 9)},
	}
	agg := NewFinancialAggregator(store, newTestCalculator())

	got, err := agg.Summarize(context.Background(), RoomScope("prop-1", "room-1"), PeriodRequest{Type: PeriodMonthly, Count: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)

	feb := got[1]
	assert.Equal(t, 1100000.0, feb.RentRevenue)
	assert.Equal(t, 1100000.0, feb.TotalRevenue)
	assert.Zero(t, feb.ServiceRevenue)
	assert.Zero(t, feb.LateFeeRevenue)
	assert.Zero(t, feb.MaintenanceCost)
	assert.Equal(t, 1100000.0, feb.NetProfit)

	assert.Zero(t, store.count("lines"), "room scope skips line items")
	assert.Zero(t, store.count("tickets"), "room scope skips maintenance")
}

func TestFinancialFetchesOncePerCall(t *testing.T) {
	store := financialFixture()
	agg := NewFinancialAggregator(store, newTestCalculator())

	_, err := agg.Summarize(context.Background(), AllProperties("owner-1"), PeriodRequest{Type: PeriodWeekly, Count: 12})
	require.NoError(t, err)
	assert.Equal(t, 1, store.count("properties"))
	assert.Equal(t, 1, store.count("bills"))
	assert.Equal(t, 1, store.count("lines"))
	assert.Equal(t, 1, store.count("tickets"))
}

func TestFinancialEmptyPeriodsAreDropped(t *testing.T) {
	store := financialFixture()
	agg := NewFinancialAggregator(store, newTestCalculator())
	assert.True(t, agg.DropIfEmpty)

	got, err := agg.Summarize(context.Background(), PropertyScope("prop-1"), PeriodRequest{Type: PeriodMonthly, Count: 2, Filter: &DateFilter{Year: 2023, Month: 6}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	fresh := financialFixture()
	none, err := NewFinancialAggregator(fresh, newTestCalculator()).Summarize(context.Background(), AllProperties("owner-without-properties"), PeriodRequest{Type: PeriodMonthly, Count: 2})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, 1, fresh.count("properties"))
	assert.Zero(t, fresh.count("bills"), "no properties means no bill read")
}

func TestFinancialZeroDivisionWhenKept(t *testing.T) {
	calc := newTestCalculator()
	periods, err := calc.ComputePeriods(PeriodMonthly, 2, nil)
	require.NoError(t, err)

	got := ComputeFinancials(periods, FinancialInput{}, false)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.Zero(t, s.TotalBillsCount)
		assert.Equal(t, 0.0, s.CollectionRate)
		assert.Equal(t, 0.0, s.ProfitMargin)
		assert.False(t, math.IsNaN(s.CollectionRate) || math.IsNaN(s.ProfitMargin))
	}
}

func TestFinancialNegativeProfitMargin(t *testing.T) {
	calc := newTestCalculator()
	periods, err := calc.ComputePeriods(PeriodMonthly, 1, nil)
	require.NoError(t, err)

	got := ComputeFinancials(periods, FinancialInput{
		Bills:     []Bill{{ID: "b", PeriodStart: day(2024, 3, 1), Status: BillPaid, TotalAmount: 100}},
		LineItems: []BillLineItem{{BillID: "b", Amount: 100}},
		Tickets:   []MaintenanceTicket{{Status: TicketCompleted, Cost: 150, CreatedAt: at(2024, 3, 2, 9)}},
	}, true)
	require.Len(t, got, 1)
	assert.Equal(t, -50.0, got[0].NetProfit)
	assert.Equal(t, -50.0, got[0].ProfitMargin)
}

func TestFinancialStoreFailureAborts(t *testing.T) {
	store := financialFixture()
	cause := errors.New("connection reset")
	store.errs["lines"] = cause
	agg := NewFinancialAggregator(store, newTestCalculator())

	got, err := agg.Summarize(context.Background(), PropertyScope("prop-1"), PeriodRequest{Type: PeriodMonthly, Count: 3})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, cause)

	var du *DataUnavailableError
	require.ErrorAs(t, err, &du)
	assert.Equal(t, "bill line items", du.Entity)
}

func TestFinancialInvalidParametersFailBeforeRead(t *testing.T) {
	store := financialFixture()
	agg := NewFinancialAggregator(store, newTestCalculator())

	_, err := agg.Summarize(context.Background(), PropertyScope("prop-1"), PeriodRequest{Type: "DAILY", Count: 3})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = agg.Summarize(context.Background(), RoomScope("", "room-1"), PeriodRequest{Type: PeriodMonthly, Count: 3})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = agg.Summarize(context.Background(), AllProperties(""), PeriodRequest{Type: PeriodMonthly, Count: 3})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	assert.Zero(t, store.count("properties"))
	assert.Zero(t, store.count("bills"))
}

func TestFinancialIdempotent(t *testing.T) {
	store := financialFixture()
	agg := NewFinancialAggregator(store, newTestCalculator())
	req := PeriodRequest{Type: PeriodQuarterly, Count: 4}

	first, err := agg.Summarize(context.Background(), AllProperties("owner-1"), req)
	require.NoError(t, err)
	second, err := agg.Summarize(context.Background(), AllProperties("owner-1"), req)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
