package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `
	id,
	pendency_id,
	contract_id,
	fiscal_id,
	file_ref,
	status,
	reviewed_by,
	review_notes,
	submitted_at,
	reviewed_at
`

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	var report model.Report
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+reportColumns+`
		FROM pendency_reports
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&report).Error
	if err != nil {
		return nil, err
	}
	if report.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &report, nil
}

// GetUnresolved returns the single PENDING_REVIEW report of a pendency, or
// gorm.ErrRecordNotFound when every report is finally resolved.
func (r *ReportRepository) GetUnresolved(ctx context.Context, pendencyID uuid.UUID) (*model.Report, error) {
	var report model.Report
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+reportColumns+`
		FROM pendency_reports
		WHERE pendency_id = ? AND status = 'PENDING_REVIEW'
		LIMIT 1
	`, pendencyID).Scan(&report).Error
	if err != nil {
		return nil, err
	}
	if report.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &report, nil
}

// GetLatestRejected returns the most recent rejected report for a pendency,
// used on resubmission to replace the file instead of stacking rows.
func (r *ReportRepository) GetLatestRejected(ctx context.Context, pendencyID uuid.UUID) (*model.Report, error) {
	var report model.Report
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+reportColumns+`
		FROM pendency_reports
		WHERE pendency_id = ? AND status = 'REJECTED_WITH_PENDENCY'
		ORDER BY submitted_at DESC
		LIMIT 1
	`, pendencyID).Scan(&report).Error
	if err != nil {
		return nil, err
	}
	if report.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &report, nil
}

func (r *ReportRepository) Create(ctx context.Context, report model.Report) (*model.Report, error) {
	var saved model.Report
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO pendency_reports (pendency_id, contract_id, fiscal_id, file_ref, status)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+reportColumns,
		report.PendencyID,
		report.ContractID,
		report.FiscalID,
		report.FileRef,
		report.Status,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Resubmit replaces the file of an existing report and puts it back under
// review, clearing the previous review verdict.
func (r *ReportRepository) Resubmit(ctx context.Context, id uuid.UUID, fileRef string, fiscalID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE pendency_reports
		SET
			file_ref = ?,
			fiscal_id = ?,
			status = 'PENDING_REVIEW',
			reviewed_by = NULL,
			review_notes = NULL,
			reviewed_at = NULL,
			submitted_at = NOW()
		WHERE id = ?
	`, fileRef, fiscalID, id).Error
}

// Review applies a verdict to a report still under review. Zero rows
// affected means the report was already reviewed.
func (r *ReportRepository) Review(
	ctx context.Context,
	id uuid.UUID,
	status model.ReportStatus,
	reviewerID uuid.UUID,
	notes *string,
	reviewedAt time.Time,
) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE pendency_reports
		SET status = ?, reviewed_by = ?, review_notes = ?, reviewed_at = ?
		WHERE id = ? AND status = 'PENDING_REVIEW'
	`, status, reviewerID, notes, reviewedAt, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
