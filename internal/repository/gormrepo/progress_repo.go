package gormrepo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/academy-bot/internal/domain/entity"
)

// ProgressRepo реализует repository.ProgressRepository
type ProgressRepo struct {
	db *gorm.DB
}

// NewProgressRepo создает новый репозиторий прогресса
func NewProgressRepo(db *gorm.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

// MarkStudied отмечает материал изученным. Повторная отметка ничего не меняет.
func (r *ProgressRepo) MarkStudied(ctx context.Context, userID int64, materialID uint) (bool, error) {
	return markStudied(r.db.WithContext(ctx), userID, materialID, time.Now())
}

func markStudied(db *gorm.DB, userID int64, materialID uint, at time.Time) (bool, error) {
	record := entity.StudyRecord{UserID: userID, MaterialID: materialID, StudiedAt: at}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordAttempt добавляет результат теста и отмечает материал изученным в одной транзакции
func (r *ProgressRepo) RecordAttempt(ctx context.Context, result *entity.TestResult) error {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(result).Error; err != nil {
			return err
		}
		_, err := markStudied(tx, result.UserID, result.MaterialID, result.CompletedAt)
		return err
	})
}

// StudiedMaterialIDs возвращает ID изученных материалов
func (r *ProgressRepo) StudiedMaterialIDs(ctx context.Context, userID int64) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&entity.StudyRecord{}).
		Where("user_id = ?", userID).
		Order("material_id ASC").
		Pluck("material_id", &ids).Error
	return ids, err
}

// CountStudied возвращает количество изученных материалов
func (r *ProgressRepo) CountStudied(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.StudyRecord{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// RecentStudied возвращает последние изученные материалы, которые ещё существуют
func (r *ProgressRepo) RecentStudied(ctx context.Context, userID int64, limit int) ([]entity.StudiedMaterialView, error) {
	var views []entity.StudiedMaterialView
	err := r.db.WithContext(ctx).
		Table("study_records AS s").
		Select("s.material_id, m.title, m.level, s.studied_at").
		Joins("JOIN materials m ON m.id = s.material_id").
		Where("s.user_id = ?", userID).
		Order("s.studied_at DESC, s.id DESC").
		Limit(limit).
		Scan(&views).Error
	return views, err
}

// ResultsByUser возвращает все попытки пользователя в порядке ID
func (r *ProgressRepo) ResultsByUser(ctx context.Context, userID int64) ([]entity.TestResult, error) {
	var results []entity.TestResult
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&results).Error
	return results, err
}

// RecentResults возвращает последние попытки с названиями материалов
func (r *ProgressRepo) RecentResults(ctx context.Context, userID int64, limit int) ([]entity.TestResultView, error) {
	var views []entity.TestResultView
	err := r.resultViews(ctx).
		Where("t.user_id = ?", userID).
		Order("t.completed_at DESC, t.id DESC").
		Limit(limit).
		Scan(&views).Error
	return views, err
}

// AllResults возвращает все попытки всех пользователей (для выгрузки)
func (r *ProgressRepo) AllResults(ctx context.Context) ([]entity.TestResultView, error) {
	var views []entity.TestResultView
	err := r.resultViews(ctx).Order("t.id ASC").Scan(&views).Error
	return views, err
}

func (r *ProgressRepo) resultViews(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("test_results AS t").
		Select("t.*, COALESCE(m.title, '') AS title").
		Joins("LEFT JOIN materials m ON m.id = t.material_id")
}
