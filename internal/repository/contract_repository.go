package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

// ContractRepository reads the platform-owned contracts table. This service
// never writes to it.
type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = `
	id,
	number,
	description,
	start_date,
	end_date,
	guarantee_end_date,
	manager_id,
	fiscal_id,
	substitute_fiscal_id,
	status,
	active
`

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &contract, nil
}

// ListExpiringWithin returns active contracts whose end date or guarantee end
// date falls inside the scan horizon. The milestone engine narrows the result
// to exact bands in memory.
func (r *ContractRepository) ListExpiringWithin(ctx context.Context, today time.Time, horizonDays int) ([]model.Contract, error) {
	horizon := today.AddDate(0, 0, horizonDays)
	var contracts []model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE active
			AND (
				(end_date >= ? AND end_date <= ?)
				OR (guarantee_end_date IS NOT NULL AND guarantee_end_date >= ? AND guarantee_end_date <= ?)
			)
		ORDER BY end_date ASC
	`, today, horizon, today, horizon).Scan(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}
