package reporting

import "time"

// BillStatus enumerates bill payment states.
type BillStatus string

const (
	BillUnpaid        BillStatus = "UNPAID"
	BillPaid          BillStatus = "PAID"
	BillOverdue       BillStatus = "OVERDUE"
	BillPartiallyPaid BillStatus = "PARTIALLY_PAID"
	BillProcessing    BillStatus = "PROCESSING"
)

// TicketStatus enumerates maintenance ticket states.
type TicketStatus string

const (
	TicketPending    TicketStatus = "PENDING"
	TicketInProgress TicketStatus = "IN_PROGRESS"
	TicketCompleted  TicketStatus = "COMPLETED"
	TicketCancelled  TicketStatus = "CANCELLED"
)

// RequestStatus enumerates maintenance request intake states.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestApproved  RequestStatus = "APPROVED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// MaintenanceType classifies where the work happens.
type MaintenanceType string

const (
	MaintenanceBuilding MaintenanceType = "BUILDING"
	MaintenanceRoom     MaintenanceType = "ROOM"
	MaintenanceOther    MaintenanceType = "OTHER"
)

// Priority of a maintenance ticket.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ContractStatus enumerates rental contract states.
type ContractStatus string

const (
	ContractDraft      ContractStatus = "DRAFT"
	ContractActive     ContractStatus = "ACTIVE"
	ContractExpired    ContractStatus = "EXPIRED"
	ContractTerminated ContractStatus = "TERMINATED"
)

// RoomStatus enumerates room availability.
type RoomStatus string

const (
	RoomOccupied    RoomStatus = "OCCUPIED"
	RoomVacant      RoomStatus = "VACANT"
	RoomMaintenance RoomStatus = "MAINTENANCE"
)

// Bill is a room invoice for one billing period. PeriodStart is a calendar date.
type Bill struct {
	ID          string
	RoomID      string
	PeriodStart time.Time
	Status      BillStatus
	TotalAmount float64
	LateFee     float64
	CreatedAt   time.Time
}

// BillLineItem belongs to exactly one bill. A nil ServiceID marks a rent line.
type BillLineItem struct {
	BillID    string
	ServiceID *string
	Amount    float64
}

// IsRent reports whether the line is the rent charge.
func (l BillLineItem) IsRent() bool { return l.ServiceID == nil }

// MaintenanceTicket is work scheduled against a property, optionally a single room.
type MaintenanceTicket struct {
	ID              string
	PropertyID      string
	RoomID          *string
	Status          TicketStatus
	Cost            float64
	MaintenanceType MaintenanceType
	Priority        Priority
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// MaintenanceRequest is the intake stage raised by tenants. It is not linked to tickets.
type MaintenanceRequest struct {
	ID         string
	PropertyID string
	RoomID     *string
	Status     RequestStatus
	CreatedAt  time.Time
}

// Contract is a rental agreement. StartDate and EndDate are calendar dates.
type Contract struct {
	ID        string
	RoomID    string
	Status    ContractStatus
	StartDate time.Time
	EndDate   *time.Time
	CreatedAt time.Time
}

// Room is a rentable unit.
type Room struct {
	ID          string
	PropertyID  string
	Status      RoomStatus
	MonthlyRent float64
}
