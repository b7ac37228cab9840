package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (*model.NotificationSettings, error) {
	var row struct {
		EscalationEnabled      bool
		DaysToManager          int
		DaysToAdmin            int
		ReminderStartDays      int
		ReminderIntervalDays   int
		GenerationIntervalDays int
		MilestoneAlertsEnabled bool
		MilestoneRecipients    string
		MilestoneSendHour      int
		UpdatedAt              time.Time
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			escalation_enabled,
			days_to_manager,
			days_to_admin,
			reminder_start_days,
			reminder_interval_days,
			generation_interval_days,
			milestone_alerts_enabled,
			milestone_recipients,
			milestone_send_hour,
			updated_at
		FROM notification_settings
		WHERE id = 1
	`).Scan(&row).Error
	if err != nil {
		return nil, err
	}

	settings := model.NotificationSettings{
		EscalationEnabled:      row.EscalationEnabled,
		DaysToManager:          row.DaysToManager,
		DaysToAdmin:            row.DaysToAdmin,
		ReminderStartDays:      row.ReminderStartDays,
		ReminderIntervalDays:   row.ReminderIntervalDays,
		GenerationIntervalDays: row.GenerationIntervalDays,
		MilestoneAlertsEnabled: row.MilestoneAlertsEnabled,
		MilestoneRecipients:    parseRoles(row.MilestoneRecipients),
		MilestoneSendHour:      row.MilestoneSendHour,
		UpdatedAt:              row.UpdatedAt,
	}
	return &settings, nil
}

func (r *SettingsRepository) Update(ctx context.Context, settings model.NotificationSettings) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE notification_settings
		SET
			escalation_enabled = ?,
			days_to_manager = ?,
			days_to_admin = ?,
			reminder_start_days = ?,
			reminder_interval_days = ?,
			generation_interval_days = ?,
			milestone_alerts_enabled = ?,
			milestone_recipients = ?,
			milestone_send_hour = ?,
			updated_at = NOW()
		WHERE id = 1
	`,
		settings.EscalationEnabled,
		settings.DaysToManager,
		settings.DaysToAdmin,
		settings.ReminderStartDays,
		settings.ReminderIntervalDays,
		settings.GenerationIntervalDays,
		settings.MilestoneAlertsEnabled,
		strings.Join(settings.MilestoneRecipients, ","),
		settings.MilestoneSendHour,
	).Error
}

func parseRoles(raw string) []string {
	parts := strings.Split(raw, ",")
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			roles = append(roles, part)
		}
	}
	return roles
}
