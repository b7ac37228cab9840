package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fiscaldesk/pendency-service/internal/mailer"
	"github.com/fiscaldesk/pendency-service/internal/model"
)

// ReminderService nudges inspectors about approaching due dates. It runs
// once daily; reminders fire when the days remaining fall on one of the
// configured offsets (start, start-step, ..., and always 0). Overdue
// pendencies are the escalation engine's territory and are skipped here.
//
// Reminders are intentionally not deduplicated through the ledger: a second
// run on the same day resends. Only milestone alerts carry the at-most-once
// guarantee.
type ReminderService struct {
	pendencies PendencyStore
	contracts  ContractStore
	users      UserStore
	settings   SettingsStore
	queue      Enqueuer
	log        zerolog.Logger
	now        func() time.Time
}

func NewReminderService(
	pendencies PendencyStore,
	contracts ContractStore,
	users UserStore,
	settings SettingsStore,
	queue Enqueuer,
	log zerolog.Logger,
) *ReminderService {
	return &ReminderService{
		pendencies: pendencies,
		contracts:  contracts,
		users:      users,
		settings:   settings,
		queue:      queue,
		log:        log.With().Str("component", "reminder-job").Logger(),
		now:        time.Now,
	}
}

func (s *ReminderService) Run(ctx context.Context) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	offsets := reminderOffsets(settings.ReminderStartDays, settings.ReminderIntervalDays)

	pendencies, err := s.pendencies.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending pendencies: %w", err)
	}

	today := dateOnly(s.now())
	reminded := 0
	for _, pendency := range pendencies {
		remaining := daysBetween(today, pendency.DueDate)
		if remaining < 0 {
			continue
		}
		if _, due := offsets[remaining]; !due {
			continue
		}
		if s.remind(ctx, pendency, remaining) {
			reminded++
		}
	}

	s.log.Info().
		Int("pending", len(pendencies)).
		Int("reminded", reminded).
		Msg("reminder run finished")
	return nil
}

func (s *ReminderService) remind(ctx context.Context, pendency model.Pendency, remaining int) bool {
	contract, err := s.contracts.GetByID(ctx, pendency.ContractID)
	if err != nil {
		s.log.Warn().Err(err).
			Str("pendency_id", pendency.ID.String()).
			Msg("contract lookup failed, reminder skipped")
		return false
	}

	subject := fmt.Sprintf("Lembrete de pendência: %s", pendency.Title)
	var body string
	if remaining == 0 {
		body = fmt.Sprintf("A pendência \"%s\" do contrato %s vence hoje (%s).",
			pendency.Title, contract.Number, pendency.DueDate.Format("02/01/2006"))
	} else {
		body = fmt.Sprintf("A pendência \"%s\" do contrato %s vence em %d dia(s), no dia %s.",
			pendency.Title, contract.Number, remaining, pendency.DueDate.Format("02/01/2006"))
	}

	sent := false
	for _, inspectorID := range contract.Inspectors() {
		user, err := s.users.GetByID(ctx, inspectorID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", inspectorID.String()).Msg("inspector lookup failed")
			continue
		}
		s.queue.Enqueue(mailer.Message{To: user.Email, ToName: user.Name, Subject: subject, Body: body})
		sent = true
	}
	return sent
}

// reminderOffsets builds the deduplicated offset set
// {start, start-step, start-2*step, ...} ∪ {0}.
func reminderOffsets(startDays, stepDays int) map[int]struct{} {
	offsets := map[int]struct{}{0: {}}
	if startDays < 1 || stepDays < 1 {
		return offsets
	}
	for offset := startDays; offset > 0; offset -= stepDays {
		offsets[offset] = struct{}{}
	}
	return offsets
}
