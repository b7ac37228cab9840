package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

type pendencyFixture struct {
	svc        *PendencyService
	pendencies *fakePendencyStore
	reports    *fakeReportStore
	contracts  *fakeContractStore
	users      *fakeUserStore
	dispatcher *fakeDispatcher
	queue      *fakeQueue

	contract model.Contract
	fiscal   model.User
	admin    model.User
}

func newPendencyFixture(t *testing.T) *pendencyFixture {
	t.Helper()

	pendencies := newFakePendencyStore()
	reports := newFakeReportStore()
	contracts := newFakeContractStore()
	users := newFakeUserStore()
	dispatcher := &fakeDispatcher{}
	queue := &fakeQueue{}

	fiscal := users.add("Maria Silva", "maria@example.gov.br", model.RoleFiscal)
	admin := users.add("Ana Costa", "ana@example.gov.br", model.RoleAdministrator)

	contract := contracts.add(model.Contract{
		Number:    "CT-2024-001",
		StartDate: mustDate("2024-01-01"),
		EndDate:   mustDate("2024-12-31"),
		FiscalID:  &fiscal.ID,
	})

	svc := NewPendencyService(pendencies, reports, contracts, users, dispatcher, queue, zerolog.Nop())
	return &pendencyFixture{
		svc:        svc,
		pendencies: pendencies,
		reports:    reports,
		contracts:  contracts,
		users:      users,
		dispatcher: dispatcher,
		queue:      queue,
		contract:   *contract,
		fiscal:     fiscal,
		admin:      admin,
	}
}

func (f *pendencyFixture) addPending(t *testing.T) *model.Pendency {
	t.Helper()
	return f.pendencies.add(model.Pendency{
		ContractID: f.contract.ID,
		Title:      "1º Relatório",
		DueDate:    mustDate("2024-03-01"),
		Status:     model.PendencyStatusPending,
		CreatedBy:  f.admin.ID,
	})
}

func TestCreatePendency(t *testing.T) {
	f := newPendencyFixture(t)

	pendency, err := f.svc.Create(context.Background(), CreatePendencyInput{
		ContractID: f.contract.ID,
		Title:      "Relatório extraordinário",
		DueDate:    mustDate("2024-06-15"),
		CreatedBy:  f.admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PendencyStatusPending, pendency.Status)
	assert.Equal(t, mustDate("2024-06-15"), pendency.DueDate)
}

func TestCreatePendencyUnknownContract(t *testing.T) {
	f := newPendencyFixture(t)

	_, err := f.svc.Create(context.Background(), CreatePendencyInput{
		ContractID: uuid.New(),
		Title:      "Relatório",
		DueDate:    mustDate("2024-06-15"),
		CreatedBy:  f.admin.ID,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePendencyMissingTitle(t *testing.T) {
	f := newPendencyFixture(t)

	_, err := f.svc.Create(context.Background(), CreatePendencyInput{
		ContractID: f.contract.ID,
		Title:      "  ",
		DueDate:    mustDate("2024-06-15"),
		CreatedBy:  f.admin.ID,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCancelPendingPendency(t *testing.T) {
	f := newPendencyFixture(t)
	pendency := f.addPending(t)

	cancelled, err := f.svc.Cancel(context.Background(), pendency.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PendencyStatusCancelled, cancelled.Status)

	stored, err := f.pendencies.GetByID(context.Background(), pendency.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PendencyStatusCancelled, stored.Status)

	// Cancellation notice goes to the assigned fiscal through the queue.
	require.Len(t, f.queue.queued, 1)
	assert.Equal(t, f.fiscal.Email, f.queue.queued[0].To)
}

func TestCancelBlockedWhileUnderReview(t *testing.T) {
	f := newPendencyFixture(t)
	pendency := f.addPending(t)

	_, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{
		PendencyID: pendency.ID,
		FileRef:    "files/relatorio-1.pdf",
		FiscalID:   f.fiscal.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), pendency.ID, f.admin.ID)
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestCancelTerminalPendency(t *testing.T) {
	f := newPendencyFixture(t)
	pendency := f.pendencies.add(model.Pendency{
		ContractID: f.contract.ID,
		Title:      "1º Relatório",
		DueDate:    mustDate("2024-03-01"),
		Status:     model.PendencyStatusConcluded,
		CreatedBy:  f.admin.ID,
	})

	_, err := f.svc.Cancel(context.Background(), pendency.ID, f.admin.ID)
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestSubmitReportMovesPendencyUnderReview(t *testing.T) {
	f := newPendencyFixture(t)
	pendency := f.addPending(t)

	report, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{
		PendencyID: pendency.ID,
		FileRef:    "files/relatorio-1.pdf",
		FiscalID:   f.fiscal.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusPendingReview, report.Status)

	stored, err := f.pendencies.GetByID(context.Background(), pendency.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PendencyStatusAwaitingReview, stored.Status)

	// Administrators are told a report awaits review.
	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, f.admin.Email, f.dispatcher.sent[0].To)
}

func TestSubmitReportRejectsOutsider(t *testing.T) {
	f := newPendencyFixture(t)
	pendency := f.addPending(t)
	outsider := f.users.add("Carlos Lima", "carlos@example.gov.br", model.RoleFiscal)

	_, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{
		PendencyID: pendency.ID,
		FileRef:    "files/relatorio-1.pdf",
		FiscalID:   outsider.ID,
	})
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestApproveReportConcludesPendency(t *testing.T) {
	f := newPendencyFixture(t)
	pendency := f.addPending(t)

	report, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{
		PendencyID: pendency.ID,
		FileRef:    "files/relatorio-1.pdf",
		FiscalID:   f.fiscal.ID,
	})
	require.NoError(t, err)

	reviewed, err := f.svc.ReviewReport(context.Background(), ReviewReportInput{
		ReportID:   report.ID,
		Decision:   model.ReviewDecisionApprove,
		ReviewerID: f.admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusApproved, reviewed.Status)

	stored, err := f.pendencies.GetByID(context.Background(), pendency.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PendencyStatusConcluded, stored.Status)
}

func TestRejectReportReopensPendencyAndKeepsHistory(t *testing.T) {
	f := newPendencyFixture(t)
	pendency := f.addPending(t)

	report, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{
		PendencyID: pendency.ID,
		FileRef:    "files/relatorio-1.pdf",
		FiscalID:   f.fiscal.ID,
	})
	require.NoError(t, err)

	reviewed, err := f.svc.ReviewReport(context.Background(), ReviewReportInput{
		ReportID:   report.ID,
		Decision:   model.ReviewDecisionReject,
		ReviewerID: f.admin.ID,
		Notes:      "Faltam os comprovantes de medição.",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusRejectedWithPendency, reviewed.Status)
	require.NotNil(t, reviewed.ReviewNotes)
	assert.Contains(t, *reviewed.ReviewNotes, "comprovantes")

	stored, err := f.pendencies.GetByID(context.Background(), pendency.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PendencyStatusPending, stored.Status)

	// The rejected report stays queryable.
	kept, err := f.reports.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusRejectedWithPendency, kept.Status)

	// Outcome notification reaches the submitting fiscal.
	var fiscalNotified bool
	for _, msg := range f.dispatcher.sent {
		if msg.To == f.fiscal.Email {
			fiscalNotified = true
		}
	}
	assert.True(t, fiscalNotified)
}

func TestResubmissionReplacesRejectedReport(t *testing.T) {
	f := newPendencyFixture(t)
	pendency := f.addPending(t)

	first, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{
		PendencyID: pendency.ID,
		FileRef:    "files/v1.pdf",
		FiscalID:   f.fiscal.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.ReviewReport(context.Background(), ReviewReportInput{
		ReportID:   first.ID,
		Decision:   model.ReviewDecisionReject,
		ReviewerID: f.admin.ID,
	})
	require.NoError(t, err)

	second, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{
		PendencyID: pendency.ID,
		FileRef:    "files/v2.pdf",
		FiscalID:   f.fiscal.ID,
	})
	require.NoError(t, err)

	// Same row, replaced file, verdict cleared.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "files/v2.pdf", second.FileRef)
	assert.Equal(t, model.ReportStatusPendingReview, second.Status)
	assert.Nil(t, second.ReviewedBy)
}

func TestDoubleReviewConflicts(t *testing.T) {
	f := newPendencyFixture(t)
	pendency := f.addPending(t)

	report, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{
		PendencyID: pendency.ID,
		FileRef:    "files/relatorio-1.pdf",
		FiscalID:   f.fiscal.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.ReviewReport(context.Background(), ReviewReportInput{
		ReportID:   report.ID,
		Decision:   model.ReviewDecisionApprove,
		ReviewerID: f.admin.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.ReviewReport(context.Background(), ReviewReportInput{
		ReportID:   report.ID,
		Decision:   model.ReviewDecisionApprove,
		ReviewerID: f.admin.ID,
	})
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestStatusCounters(t *testing.T) {
	f := newPendencyFixture(t)
	f.addPending(t)
	f.pendencies.add(model.Pendency{
		ContractID: f.contract.ID,
		Title:      "2º Relatório",
		DueDate:    mustDate("2024-04-30"),
		Status:     model.PendencyStatusConcluded,
		CreatedBy:  f.admin.ID,
	})

	counters, err := f.svc.StatusCounters(context.Background(), &f.contract.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters.Pending)
	assert.Equal(t, int64(1), counters.Concluded)
}
