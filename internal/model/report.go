package model

import (
	"time"

	"github.com/google/uuid"
)

type ReportStatus string

const (
	ReportStatusPendingReview        ReportStatus = "PENDING_REVIEW"
	ReportStatusApproved             ReportStatus = "APPROVED"
	ReportStatusRejectedWithPendency ReportStatus = "REJECTED_WITH_PENDENCY"
)

type ReviewDecision string

const (
	ReviewDecisionApprove ReviewDecision = "APPROVE"
	ReviewDecisionReject  ReviewDecision = "REJECT"
)

// Report is the artifact a fiscal submits against a pendency. A pendency has
// at most one report in PENDING_REVIEW; resubmission replaces the file and
// status of that row instead of inserting a new one.
type Report struct {
	ID          uuid.UUID
	PendencyID  uuid.UUID
	ContractID  uuid.UUID
	FiscalID    uuid.UUID
	FileRef     string
	Status      ReportStatus
	ReviewedBy  *uuid.UUID
	ReviewNotes *string
	SubmittedAt time.Time
	ReviewedAt  *time.Time
}
