package gormrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/pkg/database"
)

// newTestDB открывает чистую in-memory SQLite базу со схемой
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id int64, registeredAt time.Time) *entity.User {
	t.Helper()
	user := &entity.User{
		ID: id, Username: "user", Name: "Иван", Age: 20, Country: "RU", City: "Moscow",
		RegisteredAt: registeredAt, LastActivityAt: registeredAt,
	}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), user))
	return user
}

func seedMaterial(t *testing.T, db *gorm.DB, title string, level entity.Level) *entity.Material {
	t.Helper()
	m := &entity.Material{Title: title, Body: "text", Level: level}
	require.NoError(t, NewMaterialRepo(db).Create(context.Background(), m))
	return m
}

func seedQuestion(t *testing.T, db *gorm.DB, materialID uint, text string, answers []string, correct int) *entity.Question {
	t.Helper()
	q := &entity.Question{MaterialID: materialID, Text: text}
	for i, a := range answers {
		q.Answers = append(q.Answers, entity.Answer{Text: a, IsCorrect: i == correct})
	}
	require.NoError(t, NewQuestionRepo(db).CreateWithAnswers(context.Background(), q))
	return q
}
