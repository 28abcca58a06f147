package gormrepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

// MaterialRepo реализует repository.MaterialRepository
type MaterialRepo struct {
	db *gorm.DB
}

// NewMaterialRepo создает новый репозиторий материалов
func NewMaterialRepo(db *gorm.DB) *MaterialRepo {
	return &MaterialRepo{db: db}
}

// Create создает новый материал
func (r *MaterialRepo) Create(ctx context.Context, material *entity.Material) error {
	return r.db.WithContext(ctx).Create(material).Error
}

// GetByID возвращает материал по ID без вопросов
func (r *MaterialRepo) GetByID(ctx context.Context, id uint) (*entity.Material, error) {
	var material entity.Material
	if err := r.db.WithContext(ctx).First(&material, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &material, nil
}

// List возвращает материалы, отсортированные по уровню и ID
func (r *MaterialRepo) List(ctx context.Context, level entity.Level) ([]entity.Material, error) {
	var materials []entity.Material
	query := r.db.WithContext(ctx).Model(&entity.Material{})
	if level != "" {
		query = query.Where("level = ?", level)
	}
	err := query.
		Order("CASE level WHEN 'basic' THEN 1 WHEN 'medium' THEN 2 WHEN 'advanced' THEN 3 ELSE 4 END, id ASC").
		Find(&materials).Error
	return materials, err
}

// Count возвращает общее количество материалов
func (r *MaterialRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Material{}).Count(&count).Error
	return count, err
}

// UpdateFields обновляет указанные поля материала
func (r *MaterialRepo) UpdateFields(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&entity.Material{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AppendBody дописывает текст в конец материала через пустую строку
func (r *MaterialRepo) AppendBody(ctx context.Context, id uint, text string) error {
	result := r.db.WithContext(ctx).Model(&entity.Material{}).
		Where("id = ?", id).
		Update("body", gorm.Expr("body || ?", "\n\n"+text))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет материал вместе с вопросами и ответами в одной транзакции.
// Записи об изучении и результаты тестов сохраняются.
func (r *MaterialRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		questionIDs := tx.Model(&entity.Question{}).Select("id").Where("material_id = ?", id)
		if err := tx.Where("question_id IN (?)", questionIDs).Delete(&entity.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("material_id = ?", id).Delete(&entity.Question{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entity.Material{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}
