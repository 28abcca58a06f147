package entity

import (
	"time"
)

// StudyRecord отмечает, что пользователь изучил материал.
// Пара (user_id, material_id) уникальна.
type StudyRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"not null;uniqueIndex:idx_study_user_material" json:"user_id"`
	MaterialID uint      `gorm:"not null;uniqueIndex:idx_study_user_material;index" json:"material_id"`
	StudiedAt  time.Time `gorm:"not null" json:"studied_at"`
}

// TableName определяет имя таблицы для GORM
func (StudyRecord) TableName() string {
	return "study_records"
}

// TestResult представляет итог одной попытки прохождения теста.
// История накопительная: каждая попытка — новая строка.
type TestResult struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       int64     `gorm:"not null;index" json:"user_id"`
	MaterialID   uint      `gorm:"not null;index" json:"material_id"`
	CorrectCount int       `gorm:"not null" json:"correct_count"`
	TotalCount   int       `gorm:"not null" json:"total_count"`
	Percentage   float64   `gorm:"not null" json:"percentage"`
	CompletedAt  time.Time `gorm:"not null;index" json:"completed_at"`
}

// TableName определяет имя таблицы для GORM
func (TestResult) TableName() string {
	return "test_results"
}

// Percentage возвращает 100·correct/total или 0, если вопросов нет
func Percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}

// IsPassed проверяет прохождение порога
func (r *TestResult) IsPassed(threshold float64) bool {
	return r.Percentage >= threshold
}

// TestResultView — результат теста с названием материала (для статистики и контекста LLM)
type TestResultView struct {
	TestResult
	Title string `json:"title"`
}

// StudiedMaterialView — изученный материал с датой изучения
type StudiedMaterialView struct {
	MaterialID uint      `json:"material_id"`
	Title      string    `json:"title"`
	Level      Level     `json:"level"`
	StudiedAt  time.Time `json:"studied_at"`
}
