package reporting

import (
	"context"
	"slices"
	"sync"
	"time"
)

var testZone = time.FixedZone("ICT", 7*60*60)

// testNow is Friday 2024-03-15 10:00 ICT.
var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, testZone)

func newTestCalculator() *PeriodCalculator {
	return NewPeriodCalculator(testZone).WithNow(func() time.Time { return testNow })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, testZone)
}

func ptr[T any](v T) *T { return &v }

type memStore struct {
	mu sync.Mutex

	owners    map[string][]string
	rooms     []Room
	bills     []Bill
	lines     []BillLineItem
	tickets   []MaintenanceTicket
	requests  []MaintenanceRequest
	contracts []Contract
	tenants   map[string]int

	calls map[string]int
	errs  map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		owners:  map[string][]string{},
		tenants: map[string]int{},
		calls:   map[string]int{},
		errs:    map[string]error{},
	}
}

func (m *memStore) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.errs[op]
}

func (m *memStore) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memStore) roomMatches(f ScopeFilter, roomID string) bool {
	if len(f.RoomIDs) > 0 && !slices.Contains(f.RoomIDs, roomID) {
		return false
	}
	for _, r := range m.rooms {
		if r.ID == roomID {
			return slices.Contains(f.PropertyIDs, r.PropertyID)
		}
	}
	return false
}

func (m *memStore) recordMatches(f ScopeFilter, propertyID string, roomID *string) bool {
	if !slices.Contains(f.PropertyIDs, propertyID) {
		return false
	}
	if len(f.RoomIDs) == 0 {
		return true
	}
	return roomID != nil && slices.Contains(f.RoomIDs, *roomID)
}

func (m *memStore) OwnedPropertyIDs(ctx context.Context, ownerID string) ([]string, error) {
	if err := m.record("properties"); err != nil {
		return nil, err
	}
	return m.owners[ownerID], nil
}

func (m *memStore) Rooms(ctx context.Context, f ScopeFilter) ([]Room, error) {
	if err := m.record("rooms"); err != nil {
		return nil, err
	}
	var out []Room
	for _, r := range m.rooms {
		if m.roomMatches(f, r.ID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Bills(ctx context.Context, f ScopeFilter) ([]Bill, error) {
	if err := m.record("bills"); err != nil {
		return nil, err
	}
	var out []Bill
	for _, b := range m.bills {
		if m.roomMatches(f, b.RoomID) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) BillLineItems(ctx context.Context, billIDs []string) ([]BillLineItem, error) {
	if err := m.record("lines"); err != nil {
		return nil, err
	}
	var out []BillLineItem
	for _, li := range m.lines {
		if slices.Contains(billIDs, li.BillID) {
			out = append(out, li)
		}
	}
	return out, nil
}

func (m *memStore) MaintenanceTickets(ctx context.Context, f ScopeFilter) ([]MaintenanceTicket, error) {
	if err := m.record("tickets"); err != nil {
		return nil, err
	}
	var out []MaintenanceTicket
	for _, t := range m.tickets {
		if m.recordMatches(f, t.PropertyID, t.RoomID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) MaintenanceRequests(ctx context.Context, f ScopeFilter) ([]MaintenanceRequest, error) {
	if err := m.record("requests"); err != nil {
		return nil, err
	}
	var out []MaintenanceRequest
	for _, r := range m.requests {
		if m.recordMatches(f, r.PropertyID, r.RoomID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Contracts(ctx context.Context, f ScopeFilter) ([]Contract, error) {
	if err := m.record("contracts"); err != nil {
		return nil, err
	}
	var out []Contract
	for _, c := range m.contracts {
		if m.roomMatches(f, c.RoomID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ActiveTenantCount(ctx context.Context, f ScopeFilter) (int, error) {
	if err := m.record("tenants"); err != nil {
		return 0, err
	}
	total := 0
	for roomID, n := range m.tenants {
		if m.roomMatches(f, roomID) {
			total += n
		}
	}
	return total, nil
}
