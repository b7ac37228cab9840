package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

// UserRepository reads the platform-owned users and user_profiles tables.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, email
		FROM users
		WHERE id = ? AND active
		LIMIT 1
	`, id).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

// ListByRole resolves every active user holding the given profile, e.g. the
// administrator fan-out list for escalations and review notifications.
func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id, u.name, u.email
		FROM users u
		JOIN user_profiles up ON up.user_id = u.id
		WHERE up.profile = ? AND u.active
		ORDER BY u.name ASC
	`, role).Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
