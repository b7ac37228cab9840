package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fiscaldesk/pendency-service/internal/mailer"
	"github.com/fiscaldesk/pendency-service/internal/model"
)

// EscalationService notifies up the chain when a pendency stays PENDING past
// its due date. Tiers are mutually exclusive: past days_to_admin only the
// administrators hear about it, past days_to_manager only the contract's
// manager does. There is no dedup ledger here; a pendency sitting in the
// same tier is renotified on every daily run, keeping pressure on until it
// is resolved.
type EscalationService struct {
	pendencies PendencyStore
	contracts  ContractStore
	users      UserStore
	settings   SettingsStore
	dispatcher Dispatcher
	log        zerolog.Logger
	now        func() time.Time
}

func NewEscalationService(
	pendencies PendencyStore,
	contracts ContractStore,
	users UserStore,
	settings SettingsStore,
	dispatcher Dispatcher,
	log zerolog.Logger,
) *EscalationService {
	return &EscalationService{
		pendencies: pendencies,
		contracts:  contracts,
		users:      users,
		settings:   settings,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "escalation-job").Logger(),
		now:        time.Now,
	}
}

func (s *EscalationService) Run(ctx context.Context) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !settings.EscalationEnabled {
		s.log.Debug().Msg("escalation disabled, skipping run")
		return nil
	}

	today := dateOnly(s.now())
	overdue, err := s.pendencies.ListOverdue(ctx, today)
	if err != nil {
		return fmt.Errorf("list overdue pendencies: %w", err)
	}

	toManager, toAdmins := 0, 0
	for _, pendency := range overdue {
		daysOverdue := daysBetween(pendency.DueDate, today)
		switch {
		case daysOverdue >= settings.DaysToAdmin:
			if s.escalateToAdministrators(ctx, pendency, daysOverdue) {
				toAdmins++
			}
		case daysOverdue >= settings.DaysToManager:
			if s.escalateToManager(ctx, pendency, daysOverdue) {
				toManager++
			}
		}
	}

	s.log.Info().
		Int("overdue", len(overdue)).
		Int("to_manager", toManager).
		Int("to_admins", toAdmins).
		Msg("escalation run finished")
	return nil
}

func (s *EscalationService) escalateToManager(ctx context.Context, pendency model.Pendency, daysOverdue int) bool {
	contract, err := s.contracts.GetByID(ctx, pendency.ContractID)
	if err != nil {
		s.log.Warn().Err(err).Str("pendency_id", pendency.ID.String()).Msg("contract lookup failed, escalation skipped")
		return false
	}
	if contract.ManagerID == nil {
		s.log.Warn().Str("contract_id", contract.ID.String()).Msg("contract has no manager, escalation skipped")
		return false
	}
	manager, err := s.users.GetByID(ctx, *contract.ManagerID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", contract.ManagerID.String()).Msg("manager lookup failed")
		return false
	}

	result := s.dispatcher.Send(ctx, mailer.Message{
		To:      manager.Email,
		ToName:  manager.Name,
		Subject: fmt.Sprintf("Pendência em atraso: %s", pendency.Title),
		Body: fmt.Sprintf("A pendência \"%s\" do contrato %s está %d dia(s) em atraso (vencimento %s) e segue sem relatório aprovado.",
			pendency.Title, contract.Number, daysOverdue, pendency.DueDate.Format("02/01/2006")),
	})
	return result.Delivered
}

func (s *EscalationService) escalateToAdministrators(ctx context.Context, pendency model.Pendency, daysOverdue int) bool {
	contract, err := s.contracts.GetByID(ctx, pendency.ContractID)
	if err != nil {
		s.log.Warn().Err(err).Str("pendency_id", pendency.ID.String()).Msg("contract lookup failed, escalation skipped")
		return false
	}
	admins, err := s.users.ListByRole(ctx, model.RoleAdministrator)
	if err != nil {
		s.log.Warn().Err(err).Msg("administrator lookup failed")
		return false
	}

	subject := fmt.Sprintf("Escalonamento: pendência %d dia(s) em atraso", daysOverdue)
	body := fmt.Sprintf("A pendência \"%s\" do contrato %s está %d dia(s) em atraso (vencimento %s) sem resolução pelo fiscal ou pelo gestor.",
		pendency.Title, contract.Number, daysOverdue, pendency.DueDate.Format("02/01/2006"))

	msgs := make([]mailer.Message, 0, len(admins))
	for _, admin := range admins {
		msgs = append(msgs, mailer.Message{To: admin.Email, ToName: admin.Name, Subject: subject, Body: body})
	}
	delivered, _ := s.dispatcher.SendBulk(ctx, msgs)
	return delivered > 0
}
