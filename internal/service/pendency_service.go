package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fiscaldesk/pendency-service/internal/mailer"
	"github.com/fiscaldesk/pendency-service/internal/model"
)

// PendencyService owns the pendency/report lifecycle:
//
//	PENDING --submit report--> AWAITING_REVIEW
//	AWAITING_REVIEW --approve--> CONCLUDED
//	AWAITING_REVIEW --reject--> PENDING (report kept, fiscal may resubmit)
//	PENDING --cancel--> CANCELLED (blocked while a report is under review)
//
// CONCLUDED and CANCELLED are terminal. Notifications around transitions are
// best-effort; a delivery failure never undoes a transition.
type PendencyService struct {
	pendencies PendencyStore
	reports    ReportStore
	contracts  ContractStore
	users      UserStore
	dispatcher Dispatcher
	queue      Enqueuer
	log        zerolog.Logger
}

func NewPendencyService(
	pendencies PendencyStore,
	reports ReportStore,
	contracts ContractStore,
	users UserStore,
	dispatcher Dispatcher,
	queue Enqueuer,
	log zerolog.Logger,
) *PendencyService {
	return &PendencyService{
		pendencies: pendencies,
		reports:    reports,
		contracts:  contracts,
		users:      users,
		dispatcher: dispatcher,
		queue:      queue,
		log:        log.With().Str("component", "pendency-service").Logger(),
	}
}

type CreatePendencyInput struct {
	ContractID  uuid.UUID
	Title       string
	Description string
	DueDate     time.Time
	CreatedBy   uuid.UUID
}

func (s *PendencyService) Create(ctx context.Context, input CreatePendencyInput) (*model.Pendency, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due_date is required", ErrInvalidInput)
	}

	contract, err := s.contracts.GetByID(ctx, input.ContractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contract %s", ErrNotFound, input.ContractID)
		}
		return nil, err
	}
	if contract.StartDate.IsZero() || contract.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: contract %s has no start/end dates", ErrInvalidInput, contract.Number)
	}

	return s.pendencies.Create(ctx, model.Pendency{
		ContractID:  input.ContractID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		DueDate:     dateOnly(input.DueDate),
		Status:      model.PendencyStatusPending,
		CreatedBy:   input.CreatedBy,
	})
}

// Cancel inactivates a pendency that is not under review. The pendency row
// survives with status CANCELLED; nothing is physically deleted.
func (s *PendencyService) Cancel(ctx context.Context, pendencyID, adminID uuid.UUID) (*model.Pendency, error) {
	pendency, err := s.pendencies.GetByID(ctx, pendencyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: pendency %s", ErrNotFound, pendencyID)
		}
		return nil, err
	}

	if pendency.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: pendency is already %s", ErrStateConflict, pendency.Status)
	}
	if _, err := s.reports.GetUnresolved(ctx, pendencyID); err == nil {
		return nil, fmt.Errorf("%w: pendency has a report under review", ErrStateConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ok, err := s.pendencies.UpdateStatus(ctx, pendencyID, pendency.Status, model.PendencyStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: pendency changed concurrently", ErrStateConflict)
	}
	pendency.Status = model.PendencyStatusCancelled

	s.notifyInspectors(ctx, pendency.ContractID,
		fmt.Sprintf("Pendência cancelada: %s", pendency.Title),
		fmt.Sprintf("A pendência \"%s\" (vencimento %s) foi cancelada pela administração.",
			pendency.Title, pendency.DueDate.Format("02/01/2006")))

	s.log.Info().
		Str("pendency_id", pendencyID.String()).
		Str("admin_id", adminID.String()).
		Msg("pendency cancelled")
	return pendency, nil
}

type SubmitReportInput struct {
	PendencyID uuid.UUID
	FileRef    string
	FiscalID   uuid.UUID
}

// SubmitReport attaches the fiscal's report and moves the pendency under
// review. Resubmission after a rejection replaces the file and status of the
// rejected report instead of creating a new row.
func (s *PendencyService) SubmitReport(ctx context.Context, input SubmitReportInput) (*model.Report, error) {
	if strings.TrimSpace(input.FileRef) == "" {
		return nil, fmt.Errorf("%w: file reference is required", ErrInvalidInput)
	}

	pendency, err := s.pendencies.GetByID(ctx, input.PendencyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: pendency %s", ErrNotFound, input.PendencyID)
		}
		return nil, err
	}
	if pendency.Status != model.PendencyStatusPending {
		return nil, fmt.Errorf("%w: pendency is %s, expected PENDING", ErrStateConflict, pendency.Status)
	}

	contract, err := s.contracts.GetByID(ctx, pendency.ContractID)
	if err != nil {
		return nil, err
	}
	if !isAssignedInspector(contract, input.FiscalID) {
		return nil, fmt.Errorf("%w: user is not an inspector of contract %s", ErrPermissionDenied, contract.Number)
	}

	var report *model.Report
	rejected, err := s.reports.GetLatestRejected(ctx, input.PendencyID)
	switch {
	case err == nil:
		if err := s.reports.Resubmit(ctx, rejected.ID, input.FileRef, input.FiscalID); err != nil {
			return nil, err
		}
		report, err = s.reports.GetByID(ctx, rejected.ID)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		report, err = s.reports.Create(ctx, model.Report{
			PendencyID: input.PendencyID,
			ContractID: pendency.ContractID,
			FiscalID:   input.FiscalID,
			FileRef:    input.FileRef,
			Status:     model.ReportStatusPendingReview,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	ok, err := s.pendencies.UpdateStatus(ctx, input.PendencyID, model.PendencyStatusPending, model.PendencyStatusAwaitingReview)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: pendency changed concurrently", ErrStateConflict)
	}

	s.notifyAdministrators(ctx,
		fmt.Sprintf("Relatório enviado para análise: %s", pendency.Title),
		fmt.Sprintf("O fiscal enviou um relatório para a pendência \"%s\" do contrato %s. O documento aguarda análise.",
			pendency.Title, contract.Number))

	return report, nil
}

type ReviewReportInput struct {
	ReportID   uuid.UUID
	Decision   model.ReviewDecision
	ReviewerID uuid.UUID
	Notes      string
}

// ReviewReport applies the administrative verdict. Approval concludes the
// pendency; rejection keeps the report queryable as REJECTED_WITH_PENDENCY
// and reopens the pendency for resubmission.
func (s *PendencyService) ReviewReport(ctx context.Context, input ReviewReportInput) (*model.Report, error) {
	report, err := s.reports.GetByID(ctx, input.ReportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: report %s", ErrNotFound, input.ReportID)
		}
		return nil, err
	}
	if report.Status != model.ReportStatusPendingReview {
		return nil, fmt.Errorf("%w: report was already reviewed", ErrStateConflict)
	}

	var reportStatus model.ReportStatus
	var pendencyStatus model.PendencyStatus
	switch input.Decision {
	case model.ReviewDecisionApprove:
		reportStatus = model.ReportStatusApproved
		pendencyStatus = model.PendencyStatusConcluded
	case model.ReviewDecisionReject:
		reportStatus = model.ReportStatusRejectedWithPendency
		pendencyStatus = model.PendencyStatusPending
	default:
		return nil, fmt.Errorf("%w: unknown review decision %q", ErrInvalidInput, input.Decision)
	}

	var notes *string
	if trimmed := strings.TrimSpace(input.Notes); trimmed != "" {
		notes = &trimmed
	}

	ok, err := s.reports.Review(ctx, input.ReportID, reportStatus, input.ReviewerID, notes, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: report was already reviewed", ErrStateConflict)
	}

	ok, err = s.pendencies.UpdateStatus(ctx, report.PendencyID, model.PendencyStatusAwaitingReview, pendencyStatus)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Warn().
			Str("pendency_id", report.PendencyID.String()).
			Str("target_status", string(pendencyStatus)).
			Msg("pendency was not awaiting review during report review")
	}

	s.notifyReviewOutcome(ctx, report, input.Decision, input.Notes)

	updated, err := s.reports.GetByID(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PendencyService) StatusCounters(ctx context.Context, contractID *uuid.UUID) (*model.StatusCounters, error) {
	return s.pendencies.StatusCounters(ctx, contractID)
}

func (s *PendencyService) notifyReviewOutcome(ctx context.Context, report *model.Report, decision model.ReviewDecision, notes string) {
	fiscal, err := s.users.GetByID(ctx, report.FiscalID)
	if err != nil {
		s.log.Warn().Err(err).Str("fiscal_id", report.FiscalID.String()).Msg("review outcome notification skipped")
		return
	}

	var subject, body string
	if decision == model.ReviewDecisionApprove {
		subject = "Relatório aprovado"
		body = "Seu relatório foi analisado e aprovado. A pendência foi concluída."
	} else {
		subject = "Relatório devolvido com pendência"
		body = "Seu relatório foi analisado e devolvido. A pendência voltou a ficar aberta para reenvio."
		if strings.TrimSpace(notes) != "" {
			body += "\n\nObservações da análise:\n" + notes
		}
	}
	s.dispatcher.Send(ctx, mailer.Message{
		To:      fiscal.Email,
		ToName:  fiscal.Name,
		Subject: subject,
		Body:    body,
	})
}

func (s *PendencyService) notifyInspectors(ctx context.Context, contractID uuid.UUID, subject, body string) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		s.log.Warn().Err(err).Str("contract_id", contractID.String()).Msg("inspector notification skipped")
		return
	}
	for _, inspectorID := range contract.Inspectors() {
		user, err := s.users.GetByID(ctx, inspectorID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", inspectorID.String()).Msg("inspector lookup failed")
			continue
		}
		s.queue.Enqueue(mailer.Message{To: user.Email, ToName: user.Name, Subject: subject, Body: body})
	}
}

func (s *PendencyService) notifyAdministrators(ctx context.Context, subject, body string) {
	admins, err := s.users.ListByRole(ctx, model.RoleAdministrator)
	if err != nil {
		s.log.Warn().Err(err).Msg("administrator notification skipped")
		return
	}
	msgs := make([]mailer.Message, 0, len(admins))
	for _, admin := range admins {
		msgs = append(msgs, mailer.Message{To: admin.Email, ToName: admin.Name, Subject: subject, Body: body})
	}
	s.dispatcher.SendBulk(ctx, msgs)
}

func isAssignedInspector(contract *model.Contract, userID uuid.UUID) bool {
	for _, id := range contract.Inspectors() {
		if id == userID {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole days from a to b on date-only values.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}
