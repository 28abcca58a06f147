package gormrepo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create создает нового пользователя. Повторная регистрация возвращает ErrConflict.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user #%d already registered", apperrors.ErrConflict, user.ID)
		}
		return err
	}
	return nil
}

// GetByID возвращает пользователя по Telegram ID
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

// Exists проверяет, зарегистрирован ли пользователь
func (r *UserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// TouchActivity обновляет время последней активности
func (r *UserRepo) TouchActivity(ctx context.Context, id int64, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", id).
		Update("last_activity_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListAll возвращает всех пользователей в порядке регистрации
func (r *UserRepo) ListAll(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).Order("registered_at ASC, id ASC").Find(&users).Error
	return users, err
}
