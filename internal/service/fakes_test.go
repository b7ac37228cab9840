package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiscaldesk/pendency-service/internal/mailer"
	"github.com/fiscaldesk/pendency-service/internal/model"
)

type fakePendencyStore struct {
	items map[uuid.UUID]*model.Pendency
}

func newFakePendencyStore() *fakePendencyStore {
	return &fakePendencyStore{items: map[uuid.UUID]*model.Pendency{}}
}

func (f *fakePendencyStore) add(p model.Pendency) *model.Pendency {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Active = true
	copied := p
	f.items[p.ID] = &copied
	return &copied
}

func (f *fakePendencyStore) Create(_ context.Context, p model.Pendency) (*model.Pendency, error) {
	return f.add(p), nil
}

func (f *fakePendencyStore) CreateBatch(_ context.Context, batch []model.Pendency) ([]model.Pendency, error) {
	saved := make([]model.Pendency, 0, len(batch))
	for _, p := range batch {
		saved = append(saved, *f.add(p))
	}
	return saved, nil
}

func (f *fakePendencyStore) GetByID(_ context.Context, id uuid.UUID) (*model.Pendency, error) {
	p, ok := f.items[id]
	if !ok || !p.Active {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakePendencyStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.PendencyStatus) (bool, error) {
	p, ok := f.items[id]
	if !ok || !p.Active || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (f *fakePendencyStore) ListPending(_ context.Context) ([]model.Pendency, error) {
	var out []model.Pendency
	for _, p := range f.items {
		if p.Active && p.Status == model.PendencyStatusPending {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePendencyStore) ListOverdue(_ context.Context, today time.Time) ([]model.Pendency, error) {
	var out []model.Pendency
	for _, p := range f.items {
		if p.Active && p.Status == model.PendencyStatusPending && p.DueDate.Before(today) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePendencyStore) ListByContract(_ context.Context, contractID uuid.UUID) ([]model.Pendency, error) {
	var out []model.Pendency
	for _, p := range f.items {
		if p.Active && p.ContractID == contractID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePendencyStore) StatusCounters(_ context.Context, contractID *uuid.UUID) (*model.StatusCounters, error) {
	var counters model.StatusCounters
	for _, p := range f.items {
		if !p.Active {
			continue
		}
		if contractID != nil && p.ContractID != *contractID {
			continue
		}
		switch p.Status {
		case model.PendencyStatusPending:
			counters.Pending++
		case model.PendencyStatusAwaitingReview:
			counters.AwaitingReview++
		case model.PendencyStatusConcluded:
			counters.Concluded++
		case model.PendencyStatusCancelled:
			counters.Cancelled++
		}
	}
	return &counters, nil
}

type fakeReportStore struct {
	items map[uuid.UUID]*model.Report
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{items: map[uuid.UUID]*model.Report{}}
}

func (f *fakeReportStore) GetByID(_ context.Context, id uuid.UUID) (*model.Report, error) {
	r, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeReportStore) GetUnresolved(_ context.Context, pendencyID uuid.UUID) (*model.Report, error) {
	for _, r := range f.items {
		if r.PendencyID == pendencyID && r.Status == model.ReportStatusPendingReview {
			copied := *r
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeReportStore) GetLatestRejected(_ context.Context, pendencyID uuid.UUID) (*model.Report, error) {
	var latest *model.Report
	for _, r := range f.items {
		if r.PendencyID != pendencyID || r.Status != model.ReportStatusRejectedWithPendency {
			continue
		}
		if latest == nil || r.SubmittedAt.After(latest.SubmittedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeReportStore) Create(_ context.Context, report model.Report) (*model.Report, error) {
	report.ID = uuid.New()
	report.SubmittedAt = time.Now()
	copied := report
	f.items[report.ID] = &copied
	return &copied, nil
}

func (f *fakeReportStore) Resubmit(_ context.Context, id uuid.UUID, fileRef string, fiscalID uuid.UUID) error {
	r, ok := f.items[id]
	if !ok {
		return errors.New("report not found")
	}
	r.FileRef = fileRef
	r.FiscalID = fiscalID
	r.Status = model.ReportStatusPendingReview
	r.ReviewedBy = nil
	r.ReviewNotes = nil
	r.ReviewedAt = nil
	r.SubmittedAt = time.Now()
	return nil
}

func (f *fakeReportStore) Review(_ context.Context, id uuid.UUID, status model.ReportStatus, reviewerID uuid.UUID, notes *string, reviewedAt time.Time) (bool, error) {
	r, ok := f.items[id]
	if !ok || r.Status != model.ReportStatusPendingReview {
		return false, nil
	}
	r.Status = status
	r.ReviewedBy = &reviewerID
	r.ReviewNotes = notes
	r.ReviewedAt = &reviewedAt
	return true, nil
}

type fakeContractStore struct {
	items map[uuid.UUID]*model.Contract
}

func newFakeContractStore() *fakeContractStore {
	return &fakeContractStore{items: map[uuid.UUID]*model.Contract{}}
}

func (f *fakeContractStore) add(c model.Contract) *model.Contract {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Active = true
	copied := c
	f.items[c.ID] = &copied
	return &copied
}

func (f *fakeContractStore) GetByID(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeContractStore) ListExpiringWithin(_ context.Context, today time.Time, horizonDays int) ([]model.Contract, error) {
	horizon := today.AddDate(0, 0, horizonDays)
	var out []model.Contract
	for _, c := range f.items {
		if !c.Active {
			continue
		}
		endsInWindow := !c.EndDate.Before(today) && !c.EndDate.After(horizon)
		guaranteeInWindow := c.GuaranteeEndDate != nil &&
			!c.GuaranteeEndDate.Before(today) && !c.GuaranteeEndDate.After(horizon)
		if endsInWindow || guaranteeInWindow {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeUserStore struct {
	users map[uuid.UUID]model.User
	roles map[string][]model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users: map[uuid.UUID]model.User{},
		roles: map[string][]model.User{},
	}
}

func (f *fakeUserStore) add(name, email string, roleNames ...string) model.User {
	user := model.User{ID: uuid.New(), Name: name, Email: email}
	f.users[user.ID] = user
	for _, role := range roleNames {
		f.roles[role] = append(f.roles[role], user)
	}
	return user
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (f *fakeUserStore) ListByRole(_ context.Context, role string) ([]model.User, error) {
	return f.roles[role], nil
}

type ledgerKey struct {
	notificationType model.NotificationType
	entityID         uuid.UUID
	milestone        int
}

type fakeLedgerStore struct {
	rows map[ledgerKey]struct{}
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{rows: map[ledgerKey]struct{}{}}
}

func (f *fakeLedgerStore) Exists(_ context.Context, t model.NotificationType, entityID uuid.UUID, milestone int) (bool, error) {
	_, ok := f.rows[ledgerKey{t, entityID, milestone}]
	return ok, nil
}

func (f *fakeLedgerStore) Record(_ context.Context, t model.NotificationType, entityID uuid.UUID, milestone int) (bool, error) {
	key := ledgerKey{t, entityID, milestone}
	if _, ok := f.rows[key]; ok {
		return false, nil
	}
	f.rows[key] = struct{}{}
	return true, nil
}

type fakeSettingsStore struct {
	settings model.NotificationSettings
}

func defaultTestSettings() model.NotificationSettings {
	return model.NotificationSettings{
		EscalationEnabled:      true,
		DaysToManager:          7,
		DaysToAdmin:            14,
		ReminderStartDays:      15,
		ReminderIntervalDays:   5,
		GenerationIntervalDays: 60,
		MilestoneAlertsEnabled: true,
		MilestoneRecipients:    []string{model.RoleAdministrator},
		MilestoneSendHour:      8,
	}
}

func (f *fakeSettingsStore) Get(_ context.Context) (*model.NotificationSettings, error) {
	copied := f.settings
	return &copied, nil
}

func (f *fakeSettingsStore) Update(_ context.Context, settings model.NotificationSettings) error {
	f.settings = settings
	return nil
}

type fakeDispatcher struct {
	sent    []mailer.Message
	failAll bool
}

func (f *fakeDispatcher) Send(_ context.Context, msg mailer.Message) mailer.Result {
	if f.failAll {
		return mailer.Failed(errors.New("transport down"))
	}
	f.sent = append(f.sent, msg)
	return mailer.Delivered()
}

func (f *fakeDispatcher) SendBulk(ctx context.Context, msgs []mailer.Message) (int, int) {
	delivered, failed := 0, 0
	for _, msg := range msgs {
		if f.Send(ctx, msg).Delivered {
			delivered++
		} else {
			failed++
		}
	}
	return delivered, failed
}

type fakeQueue struct {
	queued []mailer.Message
}

func (f *fakeQueue) Enqueue(msg mailer.Message) {
	f.queued = append(f.queued, msg)
}

func fixedNow(date string) func() time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func fixedNowAt(date string, hour int) func() time.Time {
	t := mustDate(date).Add(time.Duration(hour) * time.Hour)
	return func() time.Time { return t }
}

func mustDate(date string) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t
}
