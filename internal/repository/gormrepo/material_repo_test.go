package gormrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

func TestMaterialRepo_ListByLevel(t *testing.T) {
	db := newTestDB(t)
	repo := NewMaterialRepo(db)
	ctx := context.Background()

	adv := seedMaterial(t, db, "Эксплойты", entity.LevelAdvanced)
	basic := seedMaterial(t, db, "Основы Linux", entity.LevelBasic)
	medium := seedMaterial(t, db, "Сети", entity.LevelMedium)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint{basic.ID, medium.ID, adv.ID},
		[]uint{all[0].ID, all[1].ID, all[2].ID}, "материалы упорядочены по уровню")

	onlyMedium, err := repo.List(ctx, entity.LevelMedium)
	require.NoError(t, err)
	require.Len(t, onlyMedium, 1)
	assert.Equal(t, medium.ID, onlyMedium[0].ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestMaterialRepo_UpdateAndAppend(t *testing.T) {
	db := newTestDB(t)
	repo := NewMaterialRepo(db)
	ctx := context.Background()
	m := seedMaterial(t, db, "Старое", entity.LevelBasic)

	require.NoError(t, repo.UpdateFields(ctx, m.ID, map[string]interface{}{"title": "Новое", "video_file_id": "vid"}))
	require.NoError(t, repo.AppendBody(ctx, m.ID, "ещё"))

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Новое", got.Title)
	assert.Equal(t, "vid", got.VideoFileID)
	assert.Equal(t, "text\n\nещё", got.Body)

	assert.ErrorIs(t, repo.AppendBody(ctx, 999, "x"), apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateFields(ctx, 999, map[string]interface{}{"title": "x"}), apperrors.ErrNotFound)
}

func TestMaterialRepo_DeleteCascadesQuestionsKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewMaterialRepo(db)
	ctx := context.Background()
	seedUser(t, db, 1, time.Now())
	m := seedMaterial(t, db, "Удаляемый", entity.LevelBasic)
	keep := seedMaterial(t, db, "Остаётся", entity.LevelBasic)
	seedQuestion(t, db, m.ID, "Вопрос 1?", []string{"a", "b"}, 0)
	seedQuestion(t, db, keep.ID, "Вопрос 2?", []string{"a", "b"}, 1)

	progress := NewProgressRepo(db)
	require.NoError(t, progress.RecordAttempt(ctx, &entity.TestResult{
		UserID: 1, MaterialID: m.ID, CorrectCount: 1, TotalCount: 1, Percentage: 100,
	}))

	require.NoError(t, repo.Delete(ctx, m.ID))

	_, err := repo.GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var questions, answers int64
	require.NoError(t, db.Model(&entity.Question{}).Count(&questions).Error)
	require.NoError(t, db.Model(&entity.Answer{}).Count(&answers).Error)
	assert.Equal(t, int64(1), questions, "вопросы удалённого материала удаляются")
	assert.Equal(t, int64(2), answers, "ответы удалённого материала удаляются")

	results, err := progress.ResultsByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1, "история тестов сохраняется")

	assert.ErrorIs(t, repo.Delete(ctx, m.ID), apperrors.ErrNotFound)
}
