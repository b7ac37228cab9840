package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

func newReminderFixture(t *testing.T) (*ReminderService, *fakePendencyStore, *fakeQueue, model.Contract, model.User) {
	t.Helper()

	pendencies := newFakePendencyStore()
	contracts := newFakeContractStore()
	users := newFakeUserStore()
	settings := &fakeSettingsStore{settings: defaultTestSettings()}
	queue := &fakeQueue{}

	fiscal := users.add("Maria Silva", "maria@example.gov.br", model.RoleFiscal)
	contract := contracts.add(model.Contract{
		Number:    "CT-2024-001",
		StartDate: mustDate("2024-01-01"),
		EndDate:   mustDate("2024-12-31"),
		FiscalID:  &fiscal.ID,
	})

	svc := NewReminderService(pendencies, contracts, users, settings, queue, zerolog.Nop())
	svc.now = fixedNow("2024-06-01")
	return svc, pendencies, queue, *contract, fiscal
}

func TestReminderOffsets(t *testing.T) {
	offsets := reminderOffsets(15, 5)
	assert.Equal(t, map[int]struct{}{15: {}, 10: {}, 5: {}, 0: {}}, offsets)

	// Step larger than start still yields the start offset and zero.
	offsets = reminderOffsets(7, 10)
	assert.Equal(t, map[int]struct{}{7: {}, 0: {}}, offsets)

	// Degenerate config collapses to due-day only.
	offsets = reminderOffsets(0, 0)
	assert.Equal(t, map[int]struct{}{0: {}}, offsets)
}

func TestReminderFiresOnConfiguredOffsets(t *testing.T) {
	svc, pendencies, queue, contract, fiscal := newReminderFixture(t)

	pendencies.add(model.Pendency{
		ContractID: contract.ID,
		Title:      "1º Relatório",
		DueDate:    mustDate("2024-06-16"), // 15 days out
		Status:     model.PendencyStatusPending,
	})
	pendencies.add(model.Pendency{
		ContractID: contract.ID,
		Title:      "2º Relatório",
		DueDate:    mustDate("2024-06-13"), // 12 days out, off-offset
		Status:     model.PendencyStatusPending,
	})
	pendencies.add(model.Pendency{
		ContractID: contract.ID,
		Title:      "3º Relatório",
		DueDate:    mustDate("2024-06-01"), // due today
		Status:     model.PendencyStatusPending,
	})

	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, queue.queued, 2)
	for _, msg := range queue.queued {
		assert.Equal(t, fiscal.Email, msg.To)
	}
}

func TestReminderSkipsOverdue(t *testing.T) {
	svc, pendencies, queue, contract, _ := newReminderFixture(t)

	// Overdue pendencies belong to the escalation engine.
	pendencies.add(model.Pendency{
		ContractID: contract.ID,
		Title:      "1º Relatório",
		DueDate:    mustDate("2024-05-31"),
		Status:     model.PendencyStatusPending,
	})

	require.NoError(t, svc.Run(context.Background()))
	assert.Empty(t, queue.queued)
}

func TestReminderIncludesSubstitute(t *testing.T) {
	pendencies := newFakePendencyStore()
	contracts := newFakeContractStore()
	users := newFakeUserStore()
	settings := &fakeSettingsStore{settings: defaultTestSettings()}
	queue := &fakeQueue{}

	fiscal := users.add("Maria Silva", "maria@example.gov.br", model.RoleFiscal)
	substitute := users.add("João Souza", "joao@example.gov.br", model.RoleFiscal)
	contract := contracts.add(model.Contract{
		Number:             "CT-2024-002",
		StartDate:          mustDate("2024-01-01"),
		EndDate:            mustDate("2024-12-31"),
		FiscalID:           &fiscal.ID,
		SubstituteFiscalID: &substitute.ID,
	})

	svc := NewReminderService(pendencies, contracts, users, settings, queue, zerolog.Nop())
	svc.now = fixedNow("2024-06-01")

	pendencies.add(model.Pendency{
		ContractID: contract.ID,
		Title:      "1º Relatório",
		DueDate:    mustDate("2024-06-06"), // 5 days out
		Status:     model.PendencyStatusPending,
	})

	require.NoError(t, svc.Run(context.Background()))
	require.Len(t, queue.queued, 2)
}
