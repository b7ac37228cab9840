package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fiscaldesk/pendency-service/internal/mailer"
	"github.com/fiscaldesk/pendency-service/internal/model"
)

// Store interfaces are satisfied by internal/repository; tests swap in
// in-memory fakes.

type PendencyStore interface {
	Create(ctx context.Context, p model.Pendency) (*model.Pendency, error)
	CreateBatch(ctx context.Context, batch []model.Pendency) ([]model.Pendency, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Pendency, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.PendencyStatus) (bool, error)
	ListPending(ctx context.Context) ([]model.Pendency, error)
	ListOverdue(ctx context.Context, today time.Time) ([]model.Pendency, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Pendency, error)
	StatusCounters(ctx context.Context, contractID *uuid.UUID) (*model.StatusCounters, error)
}

type ReportStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Report, error)
	GetUnresolved(ctx context.Context, pendencyID uuid.UUID) (*model.Report, error)
	GetLatestRejected(ctx context.Context, pendencyID uuid.UUID) (*model.Report, error)
	Create(ctx context.Context, report model.Report) (*model.Report, error)
	Resubmit(ctx context.Context, id uuid.UUID, fileRef string, fiscalID uuid.UUID) error
	Review(ctx context.Context, id uuid.UUID, status model.ReportStatus, reviewerID uuid.UUID, notes *string, reviewedAt time.Time) (bool, error)
}

type ContractStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	ListExpiringWithin(ctx context.Context, today time.Time, horizonDays int) ([]model.Contract, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListByRole(ctx context.Context, role string) ([]model.User, error)
}

type LedgerStore interface {
	Exists(ctx context.Context, notificationType model.NotificationType, entityID uuid.UUID, milestone int) (bool, error)
	Record(ctx context.Context, notificationType model.NotificationType, entityID uuid.UUID, milestone int) (bool, error)
}

type SettingsStore interface {
	Get(ctx context.Context) (*model.NotificationSettings, error)
	Update(ctx context.Context, settings model.NotificationSettings) error
}

// Dispatcher is the synchronous face of the mail subsystem.
type Dispatcher interface {
	Send(ctx context.Context, msg mailer.Message) mailer.Result
	SendBulk(ctx context.Context, msgs []mailer.Message) (delivered, failed int)
}

// Enqueuer defers non-urgent notifications to the periodic queue drain.
type Enqueuer interface {
	Enqueue(msg mailer.Message)
}
