package entity

import (
	"strings"
	"time"
)

// Level — уровень сложности материала
type Level string

const (
	LevelBasic    Level = "basic"
	LevelMedium   Level = "medium"
	LevelAdvanced Level = "advanced"
)

// Levels перечисляет уровни в порядке возрастания сложности
var Levels = []Level{LevelBasic, LevelMedium, LevelAdvanced}

// ParseLevel разбирает уровень, принимая также русские названия
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic", "базовый":
		return LevelBasic, true
	case "medium", "средний":
		return LevelMedium, true
	case "advanced", "продвинутый":
		return LevelAdvanced, true
	}
	return "", false
}

// Title возвращает русское название уровня
func (l Level) Title() string {
	switch l {
	case LevelBasic:
		return "Базовый"
	case LevelMedium:
		return "Средний"
	case LevelAdvanced:
		return "Продвинутый"
	}
	return string(l)
}

// Emoji возвращает значок уровня для интерфейса
func (l Level) Emoji() string {
	switch l {
	case LevelBasic:
		return "🔰"
	case LevelMedium:
		return "⚡"
	case LevelAdvanced:
		return "🔥"
	}
	return "📖"
}

// Material представляет учебный материал
type Material struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	Level       Level      `gorm:"size:20;not null;default:'basic';index" json:"level"`
	VideoFileID string     `gorm:"size:255;not null;default:''" json:"video_file_id,omitempty"`
	Questions   []Question `gorm:"foreignKey:MaterialID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Material) TableName() string {
	return "materials"
}

// HasVideo проверяет, прикреплено ли к материалу видео
func (m *Material) HasVideo() bool {
	return m.VideoFileID != ""
}
