package reporting

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// ScopeKind selects which records an aggregation reads.
type ScopeKind string

const (
	ScopeAllProperties ScopeKind = "ALL_PROPERTIES"
	ScopeProperty      ScopeKind = "PROPERTY"
	ScopeRoom          ScopeKind = "ROOM"
)

// Scope restricts an aggregation to an owner, a property or a single room.
type Scope struct {
	Kind       ScopeKind `json:"kind"`
	OwnerID    string    `json:"ownerId,omitempty"`
	PropertyID string    `json:"propertyId,omitempty"`
	RoomID     string    `json:"roomId,omitempty"`
}

// AllProperties scopes to every property owned by ownerID.
func AllProperties(ownerID string) Scope {
	return Scope{Kind: ScopeAllProperties, OwnerID: ownerID}
}

// PropertyScope scopes to one property.
func PropertyScope(propertyID string) Scope {
	return Scope{Kind: ScopeProperty, PropertyID: propertyID}
}

// RoomScope scopes to one room of a property.
func RoomScope(propertyID, roomID string) Scope {
	return Scope{Kind: ScopeRoom, PropertyID: propertyID, RoomID: roomID}
}

// ScopeFromParams maps caller parameters: an empty propertyID means all properties
// of the owner, a roomID narrows to that room.
func ScopeFromParams(ownerID, propertyID, roomID string) Scope {
	propertyID = strings.TrimSpace(propertyID)
	roomID = strings.TrimSpace(roomID)
	switch {
	case roomID != "":
		s := RoomScope(propertyID, roomID)
		s.OwnerID = ownerID
		return s
	case propertyID != "":
		s := PropertyScope(propertyID)
		s.OwnerID = ownerID
		return s
	default:
		return AllProperties(ownerID)
	}
}

// Validate checks the identifiers required by the scope kind.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeAllProperties:
		if s.OwnerID == "" {
			return invalidf("all-properties scope requires an owner id")
		}
	case ScopeProperty:
		if s.PropertyID == "" {
			return invalidf("property scope requires a property id")
		}
	case ScopeRoom:
		if s.PropertyID == "" || s.RoomID == "" {
			return invalidf("room scope requires property and room ids")
		}
	default:
		return invalidf("unknown scope kind %q", s.Kind)
	}
	return nil
}

// Key renders a stable token for cache keys and logs. Narrow scopes carry the
// owner when one is set so cached entries never cross portfolios.
func (s Scope) Key() string {
	var key string
	switch s.Kind {
	case ScopeAllProperties:
		return "owner:" + s.OwnerID
	case ScopeProperty:
		key = "property:" + s.PropertyID
	case ScopeRoom:
		key = "room:" + s.PropertyID + "/" + s.RoomID
	default:
		return "unknown"
	}
	if s.OwnerID != "" {
		key = "owner:" + s.OwnerID + "/" + key
	}
	return key
}

// ScopeFilter is the resolved predicate handed to the Store. PropertyIDs always bounds
// the read and an empty slice matches nothing. RoomIDs narrows the read to those rooms
// when non-empty and is ignored otherwise.
type ScopeFilter struct {
	PropertyIDs []string
	RoomIDs     []string
}

// Empty reports whether the filter can match no record.
func (f ScopeFilter) Empty() bool { return len(f.PropertyIDs) == 0 }

// Store is the read capability the engine consumes. Every method returns rows matching
// the filter ordered by the entity's natural date column, oldest first.
type Store interface {
	OwnedPropertyIDs(ctx context.Context, ownerID string) ([]string, error)
	Rooms(ctx context.Context, filter ScopeFilter) ([]Room, error)
	Bills(ctx context.Context, filter ScopeFilter) ([]Bill, error)
	BillLineItems(ctx context.Context, billIDs []string) ([]BillLineItem, error)
	MaintenanceTickets(ctx context.Context, filter ScopeFilter) ([]MaintenanceTicket, error)
	MaintenanceRequests(ctx context.Context, filter ScopeFilter) ([]MaintenanceRequest, error)
	Contracts(ctx context.Context, filter ScopeFilter) ([]Contract, error)
	ActiveTenantCount(ctx context.Context, filter ScopeFilter) (int, error)
}

// resolveFilter validates the scope and turns it into a ScopeFilter. The store is
// read for the all-properties scope, and for narrower scopes that name an owner so
// the property can be checked against the portfolio.
func resolveFilter(ctx context.Context, store Store, scope Scope) (ScopeFilter, error) {
	if err := scope.Validate(); err != nil {
		return ScopeFilter{}, err
	}
	var filter ScopeFilter
	switch scope.Kind {
	case ScopeProperty:
		filter = ScopeFilter{PropertyIDs: []string{scope.PropertyID}}
	case ScopeRoom:
		filter = ScopeFilter{PropertyIDs: []string{scope.PropertyID}, RoomIDs: []string{scope.RoomID}}
	}
	if scope.Kind != ScopeAllProperties && scope.OwnerID == "" {
		return filter, nil
	}
	ids, err := store.OwnedPropertyIDs(ctx, scope.OwnerID)
	if err != nil {
		return ScopeFilter{}, unavailable("properties", err)
	}
	if scope.Kind == ScopeAllProperties {
		return ScopeFilter{PropertyIDs: ids}, nil
	}
	if !slices.Contains(ids, scope.PropertyID) {
		return ScopeFilter{}, fmt.Errorf("%w: property %s", ErrScopeNotFound, scope.PropertyID)
	}
	return filter, nil
}
