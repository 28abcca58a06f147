package entity

import (
	"time"
)

// Question представляет вопрос теста к материалу
type Question struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MaterialID uint      `gorm:"not null;index" json:"material_id"`
	Text       string    `gorm:"size:1000;not null" json:"text"`
	Answers    []Answer  `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"answers"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// Answer представляет вариант ответа на вопрос
type Answer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	Text       string    `gorm:"size:500;not null" json:"text"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"-"` // Скрыто от клиента
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Answer) TableName() string {
	return "answers"
}

// IsValidAnswer проверяет, что индекс варианта ответа допустим
func (q *Question) IsValidAnswer(index int) bool {
	return index >= 0 && index < len(q.Answers)
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (q *Question) IsCorrect(index int) bool {
	return q.IsValidAnswer(index) && q.Answers[index].IsCorrect
}

// CorrectIndex возвращает индекс правильного ответа или -1
func (q *Question) CorrectIndex() int {
	for i, a := range q.Answers {
		if a.IsCorrect {
			return i
		}
	}
	return -1
}

// CorrectText возвращает текст правильного ответа
func (q *Question) CorrectText() string {
	if i := q.CorrectIndex(); i >= 0 {
		return q.Answers[i].Text
	}
	return ""
}

// IsAnswerable проверяет, что на вопрос можно ответить:
// есть варианты и ровно один из них правильный
func (q *Question) IsAnswerable() bool {
	if len(q.Answers) == 0 {
		return false
	}
	correct := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	return correct == 1
}
