package entity

import (
	"time"
)

// User представляет зарегистрированного ученика.
// ID совпадает с Telegram ID пользователя.
type User struct {
	ID             int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username       string    `gorm:"size:64;not null;default:''" json:"username"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Age            int       `gorm:"not null" json:"age"`
	Country        string    `gorm:"size:100;not null" json:"country"`
	City           string    `gorm:"size:100;not null" json:"city"`
	RegisteredAt   time.Time `gorm:"not null;index" json:"registered_at"`
	LastActivityAt time.Time `gorm:"not null" json:"last_activity_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// Alias возвращает имя для обращения к пользователю
func (u *User) Alias() string {
	if u.Username != "" {
		return u.Username
	}
	if u.Name != "" {
		return u.Name
	}
	return "пользователь"
}
