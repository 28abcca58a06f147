package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// CreateWithAnswers создает вопрос и его ответы в одной транзакции.
// Ответы вставляются в порядке слайса, поэтому порядок по ID совпадает с порядком ввода.
func (r *QuestionRepo) CreateWithAnswers(ctx context.Context, question *entity.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.Material{}).Where("id = ?", question.MaterialID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: material #%d", apperrors.ErrNotFound, question.MaterialID)
		}

		answers := question.Answers
		question.Answers = nil
		if err := tx.Create(question).Error; err != nil {
			question.Answers = answers
			return err
		}
		for i := range answers {
			answers[i].QuestionID = question.ID
			if err := tx.Create(&answers[i]).Error; err != nil {
				question.Answers = answers
				return err
			}
		}
		question.Answers = answers
		return nil
	})
}

// AddAnswer добавляет вариант ответа к существующему вопросу
func (r *QuestionRepo) AddAnswer(ctx context.Context, answer *entity.Answer) error {
	var question entity.Question
	if err := r.db.WithContext(ctx).Select("id").First(&question, answer.QuestionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: question #%d", apperrors.ErrNotFound, answer.QuestionID)
		}
		return err
	}
	return r.db.WithContext(ctx).Create(answer).Error
}

// GetByMaterialID возвращает вопросы материала с ответами, всё упорядочено по ID
func (r *QuestionRepo) GetByMaterialID(ctx context.Context, materialID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.id ASC")
		}).
		Where("material_id = ?", materialID).
		Order("id ASC").
		Find(&questions).Error
	return questions, err
}

// CountByMaterialID возвращает количество вопросов материала
func (r *QuestionRepo) CountByMaterialID(ctx context.Context, materialID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Question{}).Where("material_id = ?", materialID).Count(&count).Error
	return count, err
}
