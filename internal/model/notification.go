package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationContractExpiration  NotificationType = "CONTRACT_EXPIRATION"
	NotificationGuaranteeExpiration NotificationType = "GUARANTEE_EXPIRATION"
)

// LedgerEntry records a milestone notification that has already been sent.
// The (Type, EntityID, Milestone) triple is unique at the storage layer,
// which is what makes milestone alerts at-most-once across job runs.
type LedgerEntry struct {
	ID        uuid.UUID
	Type      NotificationType
	EntityID  uuid.UUID
	Milestone int
	CreatedAt time.Time
}

// NotificationSettings are the runtime-tunable knobs for the scheduled
// engines. A single row, seeded by migration, read at the start of each run.
type NotificationSettings struct {
	EscalationEnabled bool
	DaysToManager     int
	DaysToAdmin       int

	ReminderStartDays    int
	ReminderIntervalDays int

	GenerationIntervalDays int

	MilestoneAlertsEnabled bool
	MilestoneRecipients    []string
	MilestoneSendHour      int

	UpdatedAt time.Time
}
