package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'pendency_status') THEN
			CREATE TYPE pendency_status AS ENUM ('PENDING', 'AWAITING_REVIEW', 'CONCLUDED', 'CANCELLED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'report_status') THEN
			CREATE TYPE report_status AS ENUM ('PENDING_REVIEW', 'APPROVED', 'REJECTED_WITH_PENDENCY');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS pendencies (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id),
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date DATE NOT NULL,
		status pendency_status NOT NULL DEFAULT 'PENDING',
		created_by UUID NOT NULL REFERENCES users(id),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_pendencies_contract_id ON pendencies (contract_id);`,
	`CREATE INDEX IF NOT EXISTS idx_pendencies_status_due ON pendencies (status, due_date) WHERE active;`,
	`CREATE TABLE IF NOT EXISTS pendency_reports (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		pendency_id UUID NOT NULL REFERENCES pendencies(id),
		contract_id UUID NOT NULL REFERENCES contracts(id),
		fiscal_id UUID NOT NULL REFERENCES users(id),
		file_ref TEXT NOT NULL,
		status report_status NOT NULL DEFAULT 'PENDING_REVIEW',
		reviewed_by UUID REFERENCES users(id),
		review_notes TEXT,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		reviewed_at TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_pendency_reports_pendency_id ON pendency_reports (pendency_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_pendency_reports_unresolved
		ON pendency_reports (pendency_id) WHERE status = 'PENDING_REVIEW';`,
	`CREATE TABLE IF NOT EXISTS notification_ledger (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		notification_type VARCHAR(64) NOT NULL,
		entity_id UUID NOT NULL,
		milestone INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_notification_ledger_triple
		ON notification_ledger (notification_type, entity_id, milestone);`,
	`CREATE TABLE IF NOT EXISTS notification_settings (
		id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		escalation_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		days_to_manager INT NOT NULL DEFAULT 7,
		days_to_admin INT NOT NULL DEFAULT 14,
		reminder_start_days INT NOT NULL DEFAULT 15,
		reminder_interval_days INT NOT NULL DEFAULT 5,
		generation_interval_days INT NOT NULL DEFAULT 60,
		milestone_alerts_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		milestone_recipients TEXT NOT NULL DEFAULT 'Administrador',
		milestone_send_hour INT NOT NULL DEFAULT 8,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (days_to_admin > days_to_manager)
	);`,
	`INSERT INTO notification_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
