package model

import (
	"time"

	"github.com/google/uuid"
)

// Contract is read-only to this service; the wider platform owns the table.
type Contract struct {
	ID                 uuid.UUID
	Number             string
	Description        string
	StartDate          time.Time
	EndDate            time.Time
	GuaranteeEndDate   *time.Time
	ManagerID          *uuid.UUID
	FiscalID           *uuid.UUID
	SubstituteFiscalID *uuid.UUID
	Status             string
	Active             bool
}

// Inspectors returns the assigned fiscal and substitute, skipping unset slots.
func (c Contract) Inspectors() []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	if c.FiscalID != nil {
		ids = append(ids, *c.FiscalID)
	}
	if c.SubstituteFiscalID != nil {
		ids = append(ids, *c.SubstituteFiscalID)
	}
	return ids
}
