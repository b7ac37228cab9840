package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fiscaldesk/pendency-service/internal/mailer"
	"github.com/fiscaldesk/pendency-service/internal/model"
)

// Milestone bands, in days remaining. An item belongs to exactly one band:
// 90 covers 61..90, 60 covers 31..60, 30 covers 0..30.
var milestones = []int{90, 60, 30}

const milestoneHorizonDays = 90

// MilestoneService alerts about approaching contract and guarantee
// expirations. The scheduler invokes it hourly; a run only proceeds when the
// current hour matches the configured send hour, so the hour is tunable at
// runtime without rebuilding the cron. Unlike reminders and escalations it is
// idempotent: the notification ledger's unique (type, entity, milestone)
// index guarantees at-most-one alert per contract per milestone per subject,
// no matter how often the scan runs or how many scheduler instances race.
type MilestoneService struct {
	contracts  ContractStore
	users      UserStore
	ledger     LedgerStore
	settings   SettingsStore
	dispatcher Dispatcher
	log        zerolog.Logger
	now        func() time.Time
}

func NewMilestoneService(
	contracts ContractStore,
	users UserStore,
	ledger LedgerStore,
	settings SettingsStore,
	dispatcher Dispatcher,
	log zerolog.Logger,
) *MilestoneService {
	return &MilestoneService{
		contracts:  contracts,
		users:      users,
		ledger:     ledger,
		settings:   settings,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "milestone-job").Logger(),
		now:        time.Now,
	}
}

func (s *MilestoneService) Run(ctx context.Context) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !settings.MilestoneAlertsEnabled {
		s.log.Debug().Msg("milestone alerts disabled, skipping run")
		return nil
	}
	if hour := s.now().Hour(); hour != settings.MilestoneSendHour {
		s.log.Debug().
			Int("hour", hour).
			Int("send_hour", settings.MilestoneSendHour).
			Msg("outside configured send hour, skipping run")
		return nil
	}

	recipients, err := s.resolveRecipients(ctx, settings.MilestoneRecipients)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		s.log.Warn().Msg("no milestone alert recipients resolved, skipping run")
		return nil
	}

	today := dateOnly(s.now())
	contracts, err := s.contracts.ListExpiringWithin(ctx, today, milestoneHorizonDays)
	if err != nil {
		return fmt.Errorf("list expiring contracts: %w", err)
	}

	sent := 0
	for _, contract := range contracts {
		sent += s.alert(ctx, contract, model.NotificationContractExpiration, contract.EndDate, today, recipients)
		if contract.GuaranteeEndDate != nil {
			sent += s.alert(ctx, contract, model.NotificationGuaranteeExpiration, *contract.GuaranteeEndDate, today, recipients)
		}
	}

	s.log.Info().
		Int("contracts", len(contracts)).
		Int("alerts_sent", sent).
		Msg("milestone run finished")
	return nil
}

func (s *MilestoneService) alert(
	ctx context.Context,
	contract model.Contract,
	notificationType model.NotificationType,
	subjectDate time.Time,
	today time.Time,
	recipients []model.User,
) int {
	remaining := daysBetween(today, subjectDate)
	milestone, ok := milestoneFor(remaining)
	if !ok {
		return 0
	}

	exists, err := s.ledger.Exists(ctx, notificationType, contract.ID, milestone)
	if err != nil {
		s.log.Warn().Err(err).Str("contract_id", contract.ID.String()).Msg("ledger lookup failed, alert skipped")
		return 0
	}
	if exists {
		return 0
	}

	subject, body := milestoneText(notificationType, contract, subjectDate, remaining, milestone)
	msgs := make([]mailer.Message, 0, len(recipients))
	for _, user := range recipients {
		msgs = append(msgs, mailer.Message{To: user.Email, ToName: user.Name, Subject: subject, Body: body})
	}

	delivered, failed := s.dispatcher.SendBulk(ctx, msgs)
	if delivered == 0 {
		s.log.Warn().
			Str("contract_id", contract.ID.String()).
			Str("type", string(notificationType)).
			Int("milestone", milestone).
			Int("failed", failed).
			Msg("milestone alert not delivered, will retry next run")
		return 0
	}

	// Recorded only after at least one successful dispatch. A concurrent run
	// that recorded first collapses into this one.
	if _, err := s.ledger.Record(ctx, notificationType, contract.ID, milestone); err != nil {
		s.log.Error().Err(err).
			Str("contract_id", contract.ID.String()).
			Int("milestone", milestone).
			Msg("ledger write failed after dispatch")
	}
	return 1
}

func (s *MilestoneService) resolveRecipients(ctx context.Context, roles []string) ([]model.User, error) {
	seen := map[string]struct{}{}
	var recipients []model.User
	for _, role := range roles {
		users, err := s.users.ListByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			if _, dup := seen[user.Email]; dup {
				continue
			}
			seen[user.Email] = struct{}{}
			recipients = append(recipients, user)
		}
	}
	return recipients, nil
}

// milestoneFor places a remaining-days value in its half-open band.
func milestoneFor(remaining int) (int, bool) {
	if remaining < 0 {
		return 0, false
	}
	for i := len(milestones) - 1; i >= 0; i-- {
		if remaining <= milestones[i] {
			return milestones[i], true
		}
	}
	return 0, false
}

func milestoneText(
	notificationType model.NotificationType,
	contract model.Contract,
	subjectDate time.Time,
	remaining, milestone int,
) (string, string) {
	switch notificationType {
	case model.NotificationGuaranteeExpiration:
		return fmt.Sprintf("Garantia do contrato %s vence em até %d dias", contract.Number, milestone),
			fmt.Sprintf("A garantia do contrato %s vence em %s (%d dia(s) restantes).",
				contract.Number, subjectDate.Format("02/01/2006"), remaining)
	default:
		return fmt.Sprintf("Contrato %s vence em até %d dias", contract.Number, milestone),
			fmt.Sprintf("O contrato %s tem vigência até %s (%d dia(s) restantes).",
				contract.Number, subjectDate.Format("02/01/2006"), remaining)
	}
}
