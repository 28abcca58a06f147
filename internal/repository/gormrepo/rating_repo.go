package gormrepo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

// RatingRepo реализует repository.RatingRepository
type RatingRepo struct {
	db *gorm.DB
}

// NewRatingRepo создает новый репозиторий рейтинга
func NewRatingRepo(db *gorm.DB) *RatingRepo {
	return &RatingRepo{db: db}
}

const leaderboardColumns = "r.user_id, r.total_score, r.materials_studied, r.tests_completed, r.rank, r.updated_at, " +
	"u.name, u.username, u.age, u.country, u.city, u.registered_at"

// Upsert создает или обновляет запись рейтинга, ранг при этом не трогается
func (r *RatingRepo) Upsert(ctx context.Context, rating *entity.Rating) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_score", "materials_studied", "tests_completed", "updated_at"}),
	}).Create(rating).Error
}

// RankCandidates возвращает баллы всех пользователей с рейтингом
func (r *RatingRepo) RankCandidates(ctx context.Context) ([]entity.RankCandidate, error) {
	var candidates []entity.RankCandidate
	err := r.db.WithContext(ctx).
		Table("ratings AS r").
		Select("r.user_id, r.total_score AS score, u.registered_at").
		Joins("JOIN users u ON u.id = r.user_id").
		Scan(&candidates).Error
	return candidates, err
}

// SaveRanks записывает ранги; изменяются только строки, где ранг поменялся
func (r *RatingRepo) SaveRanks(ctx context.Context, ranks map[int64]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for userID, rank := range ranks {
			err := tx.Model(&entity.Rating{}).
				Where("user_id = ? AND rank <> ?", userID, rank).
				UpdateColumn("rank", rank).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByUserID возвращает строку лидерборда пользователя
func (r *RatingRepo) GetByUserID(ctx context.Context, userID int64) (*entity.LeaderboardEntry, error) {
	var entries []entity.LeaderboardEntry
	err := r.leaderboardQuery(ctx).
		Where("r.user_id = ?", userID).
		Limit(1).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &entries[0], nil
}

// GetLeaderboard возвращает страницу лидерборда в стабильном порядке
func (r *RatingRepo) GetLeaderboard(ctx context.Context, limit, offset int) ([]entity.LeaderboardEntry, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.Rating{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []entity.LeaderboardEntry
	err := r.leaderboardQuery(ctx).
		Order("r.rank ASC, r.total_score DESC, u.registered_at ASC, r.user_id ASC").
		Limit(limit).
		Offset(offset).
		Scan(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *RatingRepo) leaderboardQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("ratings AS r").
		Select(leaderboardColumns).
		Joins("JOIN users u ON u.id = r.user_id")
}
