package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fiscaldesk/pendency-service/internal/mailer"
	"github.com/fiscaldesk/pendency-service/internal/model"
)

// GeneratorService derives the periodic report obligations of a contract
// from its duration and the configured generation interval. Preview computes
// without persisting; Commit persists the same sequence and notifies the
// contract's inspectors once each with a batch summary.
type GeneratorService struct {
	contracts  ContractStore
	pendencies PendencyStore
	settings   SettingsStore
	users      UserStore
	dispatcher Dispatcher
	log        zerolog.Logger
}

func NewGeneratorService(
	contracts ContractStore,
	pendencies PendencyStore,
	settings SettingsStore,
	users UserStore,
	dispatcher Dispatcher,
	log zerolog.Logger,
) *GeneratorService {
	return &GeneratorService{
		contracts:  contracts,
		pendencies: pendencies,
		settings:   settings,
		users:      users,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "pendency-generator").Logger(),
	}
}

type GeneratedPendency struct {
	Ordinal int       `json:"ordinal"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// Preview computes the due-date sequence: cursor starts at start+interval
// and advances by the interval while it stays within the contract end date.
// A contract shorter than one interval is a validation error, never a silent
// empty batch.
func (s *GeneratorService) Preview(ctx context.Context, contractID uuid.UUID) ([]GeneratedPendency, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contract %s", ErrNotFound, contractID)
		}
		return nil, err
	}
	if contract.StartDate.IsZero() || contract.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: contract %s has no start/end dates", ErrInvalidInput, contract.Number)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	interval := settings.GenerationIntervalDays

	start := dateOnly(contract.StartDate)
	end := dateOnly(contract.EndDate)

	var entries []GeneratedPendency
	cursor := start.AddDate(0, 0, interval)
	for ordinal := 1; !cursor.After(end); ordinal++ {
		entries = append(entries, GeneratedPendency{
			Ordinal: ordinal,
			Title:   fmt.Sprintf("%dº Relatório", ordinal),
			DueDate: cursor,
		})
		cursor = cursor.AddDate(0, 0, interval)
	}

	if len(entries) == 0 {
		duration := daysBetween(start, end)
		return nil, fmt.Errorf(
			"%w: contract duration of %d days is shorter than the configured interval of %d days",
			ErrInvalidInput, duration, interval,
		)
	}
	return entries, nil
}

// Commit persists the preview as PENDING pendencies and sends one batch
// summary per assigned inspector (fiscal and substitute).
func (s *GeneratorService) Commit(ctx context.Context, contractID, adminID uuid.UUID) ([]model.Pendency, error) {
	entries, err := s.Preview(ctx, contractID)
	if err != nil {
		return nil, err
	}
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	batch := make([]model.Pendency, 0, len(entries))
	for _, entry := range entries {
		batch = append(batch, model.Pendency{
			ContractID: contractID,
			Title:      entry.Title,
			Description: fmt.Sprintf("Relatório periódico de fiscalização do contrato %s, vencimento em %s.",
				contract.Number, entry.DueDate.Format("02/01/2006")),
			DueDate:   entry.DueDate,
			Status:    model.PendencyStatusPending,
			CreatedBy: adminID,
		})
	}

	saved, err := s.pendencies.CreateBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	s.notifyBatch(ctx, contract, entries)

	s.log.Info().
		Str("contract_id", contractID.String()).
		Int("count", len(saved)).
		Msg("periodic pendencies generated")
	return saved, nil
}

func (s *GeneratorService) notifyBatch(ctx context.Context, contract *model.Contract, entries []GeneratedPendency) {
	subject := fmt.Sprintf("Pendências de fiscalização geradas para o contrato %s", contract.Number)
	body := fmt.Sprintf("Foram geradas %d pendências de relatório para o contrato %s:\n\n", len(entries), contract.Number)
	for _, entry := range entries {
		body += fmt.Sprintf("  %s - vencimento %s\n", entry.Title, entry.DueDate.Format("02/01/2006"))
	}

	msgs := make([]mailer.Message, 0, 2)
	for _, inspectorID := range contract.Inspectors() {
		user, err := s.users.GetByID(ctx, inspectorID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", inspectorID.String()).Msg("inspector lookup failed")
			continue
		}
		msgs = append(msgs, mailer.Message{To: user.Email, ToName: user.Name, Subject: subject, Body: body})
	}
	s.dispatcher.SendBulk(ctx, msgs)
}
