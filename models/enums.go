package models

type UserRole string

const (
	UserRoleAdmin UserRole = "A"
	UserRoleStaff UserRole = "S"
)

type TicketType string

const (
	TicketTypeReplenishment TicketType = "R"
	TicketTypeProduction    TicketType = "P"
)

type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "Pending"
	TicketStatusUrgent     TicketStatus = "Urgent"
	TicketStatusInProgress TicketStatus = "InProgress"
	TicketStatusFulfilled  TicketStatus = "Fulfilled"
	TicketStatusCancelled  TicketStatus = "Cancelled"
	TicketStatusClosed     TicketStatus = "Closed"
)

// OpenTicketStatuses are the non-terminal statuses. A ticket in one of these
// blocks auto-creation of another ticket for the same (item, destination) pair.
// Terminal statuses never suppress recreation.
var OpenTicketStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusUrgent,
	TicketStatusInProgress,
}

func (s TicketStatus) IsOpen() bool {
	for _, open := range OpenTicketStatuses {
		if s == open {
			return true
		}
	}
	return false
}

func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusPending, TicketStatusUrgent, TicketStatusInProgress,
		TicketStatusFulfilled, TicketStatusCancelled, TicketStatusClosed:
		return true
	}
	return false
}

type StockStatus string

const (
	StockStatusGreen   StockStatus = "green"
	StockStatusOrange  StockStatus = "orange"
	StockStatusRed     StockStatus = "red"
	StockStatusUnknown StockStatus = "unknown"
)

type SyncRunStatus string

const (
	SyncRunStatusRunning SyncRunStatus = "running"
	SyncRunStatusSuccess SyncRunStatus = "success"
	SyncRunStatusFailed  SyncRunStatus = "failed"
	SyncRunStatusPartial SyncRunStatus = "partial"
)
