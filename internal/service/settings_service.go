package service

import (
	"context"
	"fmt"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

// SettingsService exposes the runtime-tunable notification knobs, with the
// configuration bounds enforced before anything is written.
type SettingsService struct {
	settings SettingsStore
}

func NewSettingsService(settings SettingsStore) *SettingsService {
	return &SettingsService{settings: settings}
}

func (s *SettingsService) Get(ctx context.Context) (*model.NotificationSettings, error) {
	return s.settings.Get(ctx)
}

func (s *SettingsService) Update(ctx context.Context, settings model.NotificationSettings) (*model.NotificationSettings, error) {
	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	if err := s.settings.Update(ctx, settings); err != nil {
		return nil, err
	}
	return s.settings.Get(ctx)
}

func validateSettings(settings model.NotificationSettings) error {
	if settings.DaysToManager < 1 {
		return fmt.Errorf("%w: days_to_manager must be at least 1", ErrInvalidInput)
	}
	if settings.DaysToAdmin <= settings.DaysToManager {
		return fmt.Errorf("%w: days_to_admin must be greater than days_to_manager", ErrInvalidInput)
	}
	if settings.ReminderStartDays < 1 || settings.ReminderStartDays > 90 {
		return fmt.Errorf("%w: reminder_start_days must be between 1 and 90", ErrInvalidInput)
	}
	if settings.ReminderIntervalDays < 1 || settings.ReminderIntervalDays > 30 {
		return fmt.Errorf("%w: reminder_interval_days must be between 1 and 30", ErrInvalidInput)
	}
	if settings.GenerationIntervalDays < 1 || settings.GenerationIntervalDays > 365 {
		return fmt.Errorf("%w: generation_interval_days must be between 1 and 365", ErrInvalidInput)
	}
	if settings.MilestoneSendHour < 0 || settings.MilestoneSendHour > 23 {
		return fmt.Errorf("%w: milestone_send_hour must be between 0 and 23", ErrInvalidInput)
	}
	if settings.MilestoneAlertsEnabled && len(settings.MilestoneRecipients) == 0 {
		return fmt.Errorf("%w: milestone alerts require at least one recipient role", ErrInvalidInput)
	}
	return nil
}
