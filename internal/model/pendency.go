package model

import (
	"time"

	"github.com/google/uuid"
)

type PendencyStatus string

const (
	PendencyStatusPending        PendencyStatus = "PENDING"
	PendencyStatusAwaitingReview PendencyStatus = "AWAITING_REVIEW"
	PendencyStatusConcluded      PendencyStatus = "CONCLUDED"
	PendencyStatusCancelled      PendencyStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition may leave the status.
func (s PendencyStatus) IsTerminal() bool {
	return s == PendencyStatusConcluded || s == PendencyStatusCancelled
}

type Pendency struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	Title       string
	Description string
	DueDate     time.Time
	Status      PendencyStatus
	CreatedBy   uuid.UUID
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StatusCounters aggregates pendencies per lifecycle status, optionally
// scoped to a single contract.
type StatusCounters struct {
	Pending        int64
	AwaitingReview int64
	Concluded      int64
	Cancelled      int64
	Overdue        int64
}
