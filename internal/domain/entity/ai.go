package entity

import (
	"time"
)

// Роли сообщений диалога с наставником
const (
	AIRoleUser      = "user"
	AIRoleAssistant = "assistant"
	AIRoleSystem    = "system"
)

// AIMessage — реплика диалога пользователя с ИИ-наставником
type AIMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (AIMessage) TableName() string {
	return "ai_messages"
}

// AISummary — свёрнутое краткое содержание диалога пользователя
type AISummary struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Summary   string    `gorm:"type:text;not null" json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (AISummary) TableName() string {
	return "ai_summaries"
}
