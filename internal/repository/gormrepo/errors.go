package gormrepo

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

// isUniqueViolation проверяет нарушение уникальности для pgconn, lib/pq и SQLite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite возвращает текстовую ошибку
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapNotFound переводит gorm.ErrRecordNotFound в apperrors.ErrNotFound
func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return err
}
