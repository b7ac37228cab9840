package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

type PendencyRepository struct {
	db *gorm.DB
}

func NewPendencyRepository(db *gorm.DB) *PendencyRepository {
	return &PendencyRepository{db: db}
}

const pendencyColumns = `
	id,
	contract_id,
	title,
	description,
	due_date,
	status,
	created_by,
	active,
	created_at,
	updated_at
`

func (r *PendencyRepository) Create(ctx context.Context, p model.Pendency) (*model.Pendency, error) {
	var saved model.Pendency
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO pendencies (contract_id, title, description, due_date, status, created_by)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+pendencyColumns,
		p.ContractID,
		p.Title,
		p.Description,
		p.DueDate,
		p.Status,
		p.CreatedBy,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// CreateBatch persists a generated batch atomically; either every pendency of
// the batch exists afterwards or none does.
func (r *PendencyRepository) CreateBatch(ctx context.Context, batch []model.Pendency) ([]model.Pendency, error) {
	saved := make([]model.Pendency, 0, len(batch))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range batch {
			var row model.Pendency
			err := tx.Raw(`
				INSERT INTO pendencies (contract_id, title, description, due_date, status, created_by)
				VALUES (?, ?, ?, ?, ?, ?)
				RETURNING `+pendencyColumns,
				p.ContractID,
				p.Title,
				p.Description,
				p.DueDate,
				p.Status,
				p.CreatedBy,
			).Scan(&row).Error
			if err != nil {
				return err
			}
			saved = append(saved, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *PendencyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Pendency, error) {
	var p model.Pendency
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+pendencyColumns+`
		FROM pendencies
		WHERE id = ? AND active
		LIMIT 1
	`, id).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

// UpdateStatus transitions a pendency from an expected status. The WHERE
// clause is the compare-and-swap: zero rows affected means another writer
// got there first (or the status was never `from`).
func (r *PendencyRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.PendencyStatus,
) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE pendencies
		SET status = ?, updated_at = NOW()
		WHERE id = ? AND status = ? AND active
	`, to, id, from)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListPending returns active PENDING pendencies ordered by due date; used by
// the reminder and escalation jobs.
func (r *PendencyRepository) ListPending(ctx context.Context) ([]model.Pendency, error) {
	var pendencies []model.Pendency
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+pendencyColumns+`
		FROM pendencies
		WHERE status = 'PENDING' AND active
		ORDER BY due_date ASC, created_at ASC
	`).Scan(&pendencies).Error
	if err != nil {
		return nil, err
	}
	return pendencies, nil
}

// ListOverdue returns active PENDING pendencies whose due date is strictly
// before the given day.
func (r *PendencyRepository) ListOverdue(ctx context.Context, today time.Time) ([]model.Pendency, error) {
	var pendencies []model.Pendency
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+pendencyColumns+`
		FROM pendencies
		WHERE status = 'PENDING' AND active AND due_date < ?
		ORDER BY due_date ASC, created_at ASC
	`, today).Scan(&pendencies).Error
	if err != nil {
		return nil, err
	}
	return pendencies, nil
}

func (r *PendencyRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Pendency, error) {
	var pendencies []model.Pendency
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+pendencyColumns+`
		FROM pendencies
		WHERE contract_id = ? AND active
		ORDER BY due_date ASC
	`, contractID).Scan(&pendencies).Error
	if err != nil {
		return nil, err
	}
	return pendencies, nil
}

func (r *PendencyRepository) StatusCounters(ctx context.Context, contractID *uuid.UUID) (*model.StatusCounters, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
			COUNT(*) FILTER (WHERE status = 'AWAITING_REVIEW') AS awaiting_review,
			COUNT(*) FILTER (WHERE status = 'CONCLUDED') AS concluded,
			COUNT(*) FILTER (WHERE status = 'CANCELLED') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'PENDING' AND due_date < CURRENT_DATE) AS overdue
		FROM pendencies
		WHERE active
	`
	args := []interface{}{}
	if contractID != nil {
		query += " AND contract_id = ?"
		args = append(args, *contractID)
	}

	var counters model.StatusCounters
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&counters).Error; err != nil {
		return nil, err
	}
	return &counters, nil
}
