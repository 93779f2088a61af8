// Package pgstore implements reporting.Store on PostgreSQL through pgx.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rentdash/rentdash/internal/reporting"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads reporting inputs. It never writes.
type Store struct {
	db Querier
}

var _ reporting.Store = (*Store)(nil)

// New constructs a Store over db.
func New(db Querier) *Store {
	return &Store{db: db}
}

const ownedPropertiesSQL = `
SELECT id::text
FROM properties
WHERE owner_id::text = $1
ORDER BY created_at, id`

// OwnedPropertyIDs lists the properties owned by ownerID.
func (s *Store) OwnedPropertyIDs(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.Query(ctx, ownedPropertiesSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: owned properties: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgstore: scan property: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const roomsSQL = `
SELECT id::text, property_id::text, status, COALESCE(monthly_rent, 0)::float8
FROM rooms
WHERE property_id::text = ANY($1)
  AND (cardinality($2::text[]) = 0 OR id::text = ANY($2))
ORDER BY property_id, id`

// Rooms lists rooms in scope.
func (s *Store) Rooms(ctx context.Context, f reporting.ScopeFilter) ([]reporting.Room, error) {
	if f.Empty() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, roomsSQL, f.PropertyIDs, roomIDs(f))
	if err != nil {
		return nil, fmt.Errorf("pgstore: rooms: %w", err)
	}
	defer rows.Close()

	var out []reporting.Room
	for rows.Next() {
		var (
			r      reporting.Room
			status string
		)
		if err := rows.Scan(&r.ID, &r.PropertyID, &status, &r.MonthlyRent); err != nil {
			return nil, fmt.Errorf("pgstore: scan room: %w", err)
		}
		r.Status = reporting.RoomStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

const billsSQL = `
SELECT b.id::text, b.room_id::text, b.period_start, b.status,
       COALESCE(b.total_amount, 0)::float8, COALESCE(b.late_fee, 0)::float8, b.created_at
FROM bills b
JOIN rooms r ON r.id = b.room_id
WHERE r.property_id::text = ANY($1)
  AND (cardinality($2::text[]) = 0 OR b.room_id::text = ANY($2))
ORDER BY b.period_start, b.id`

// Bills lists bills of rooms in scope.
func (s *Store) Bills(ctx context.Context, f reporting.ScopeFilter) ([]reporting.Bill, error) {
	if f.Empty() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, billsSQL, f.PropertyIDs, roomIDs(f))
	if err != nil {
		return nil, fmt.Errorf("pgstore: bills: %w", err)
	}
	defer rows.Close()

	var out []reporting.Bill
	for rows.Next() {
		var (
			b      reporting.Bill
			status string
		)
		if err := rows.Scan(&b.ID, &b.RoomID, &b.PeriodStart, &status, &b.TotalAmount, &b.LateFee, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgstore: scan bill: %w", err)
		}
		b.Status = reporting.BillStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

const lineItemsSQL = `
SELECT bill_id::text, service_id::text, COALESCE(amount, 0)::float8
FROM bill_line_items
WHERE bill_id::text = ANY($1)
ORDER BY bill_id, id`

// BillLineItems lists the line items of the given bills.
func (s *Store) BillLineItems(ctx context.Context, billIDs []string) ([]reporting.BillLineItem, error) {
	if len(billIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, lineItemsSQL, billIDs)
	if err != nil {
		return nil, fmt.Errorf("pgstore: bill line items: %w", err)
	}
	defer rows.Close()

	var out []reporting.BillLineItem
	for rows.Next() {
		var li reporting.BillLineItem
		if err := rows.Scan(&li.BillID, &li.ServiceID, &li.Amount); err != nil {
			return nil, fmt.Errorf("pgstore: scan line item: %w", err)
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

const ticketsSQL = `
SELECT id::text, property_id::text, room_id::text, status, COALESCE(cost, 0)::float8,
       maintenance_type, priority, created_at, completed_at
FROM maintenance_tickets
WHERE property_id::text = ANY($1)
  AND (cardinality($2::text[]) = 0 OR room_id::text = ANY($2))
ORDER BY created_at, id`

// MaintenanceTickets lists tickets in scope.
func (s *Store) MaintenanceTickets(ctx context.Context, f reporting.ScopeFilter) ([]reporting.MaintenanceTicket, error) {
	if f.Empty() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, ticketsSQL, f.PropertyIDs, roomIDs(f))
	if err != nil {
		return nil, fmt.Errorf("pgstore: maintenance tickets: %w", err)
	}
	defer rows.Close()

	var out []reporting.MaintenanceTicket
	for rows.Next() {
		var (
			t                      reporting.MaintenanceTicket
			status, kind, priority string
		)
		if err := rows.Scan(&t.ID, &t.PropertyID, &t.RoomID, &status, &t.Cost, &kind, &priority, &t.CreatedAt, &t.CompletedAt); err != nil {
			return nil, fmt.Errorf("pgstore: scan ticket: %w", err)
		}
		t.Status = reporting.TicketStatus(status)
		t.MaintenanceType = reporting.MaintenanceType(kind)
		t.Priority = reporting.Priority(priority)
		out = append(out, t)
	}
	return out, rows.Err()
}

const requestsSQL = `
SELECT id::text, property_id::text, room_id::text, status, created_at
FROM maintenance_requests
WHERE property_id::text = ANY($1)
  AND (cardinality($2::text[]) = 0 OR room_id::text = ANY($2))
ORDER BY created_at, id`

// MaintenanceRequests lists requests in scope.
func (s *Store) MaintenanceRequests(ctx context.Context, f reporting.ScopeFilter) ([]reporting.MaintenanceRequest, error) {
	if f.Empty() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, requestsSQL, f.PropertyIDs, roomIDs(f))
	if err != nil {
		return nil, fmt.Errorf("pgstore: maintenance requests: %w", err)
	}
	defer rows.Close()

	var out []reporting.MaintenanceRequest
	for rows.Next() {
		var (
			r      reporting.MaintenanceRequest
			status string
		)
		if err := rows.Scan(&r.ID, &r.PropertyID, &r.RoomID, &status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgstore: scan request: %w", err)
		}
		r.Status = reporting.RequestStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

const contractsSQL = `
SELECT c.id::text, c.room_id::text, c.status, c.start_date, c.end_date, c.created_at
FROM contracts c
JOIN rooms r ON r.id = c.room_id
WHERE r.property_id::text = ANY($1)
  AND (cardinality($2::text[]) = 0 OR c.room_id::text = ANY($2))
ORDER BY c.start_date, c.id`

// Contracts lists contracts of rooms in scope.
func (s *Store) Contracts(ctx context.Context, f reporting.ScopeFilter) ([]reporting.Contract, error) {
	if f.Empty() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, contractsSQL, f.PropertyIDs, roomIDs(f))
	if err != nil {
		return nil, fmt.Errorf("pgstore: contracts: %w", err)
	}
	defer rows.Close()

	var out []reporting.Contract
	for rows.Next() {
		var (
			c      reporting.Contract
			status string
		)
		if err := rows.Scan(&c.ID, &c.RoomID, &status, &c.StartDate, &c.EndDate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgstore: scan contract: %w", err)
		}
		c.Status = reporting.ContractStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

const activeTenantsSQL = `
SELECT COUNT(*)
FROM tenants t
JOIN rooms r ON r.id = t.room_id
WHERE t.is_active
  AND r.property_id::text = ANY($1)
  AND (cardinality($2::text[]) = 0 OR t.room_id::text = ANY($2))`

// ActiveTenantCount counts active tenants in scope.
func (s *Store) ActiveTenantCount(ctx context.Context, f reporting.ScopeFilter) (int, error) {
	if f.Empty() {
		return 0, nil
	}
	var n int64
	if err := s.db.QueryRow(ctx, activeTenantsSQL, f.PropertyIDs, roomIDs(f)).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgstore: active tenants: %w", err)
	}
	return int(n), nil
}

// OwnerIDs lists every owner with at least one property. The warmup job walks it.
func (s *Store) OwnerIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT owner_id::text FROM properties ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: owners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgstore: scan owner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func roomIDs(f reporting.ScopeFilter) []string {
	if f.RoomIDs == nil {
		return []string{}
	}
	return f.RoomIDs
}
