package quizengine

import (
	"time"

	"github.com/yourusername/academy-bot/internal/domain/entity"
)

// Session — состояние прохождения теста одним пользователем.
// Живёт только в памяти процесса и теряется при перезапуске.
type Session struct {
	UserID     int64
	MaterialID uint
	Questions  []entity.Question // снимок вопросов на момент старта
	Current    int               // индекс вопроса, ожидающего ответа
	Answers    []int             // выбранные индексы ответов по порядку вопросов
	StartedAt  time.Time
}

// Completed сообщает, что ответы даны на все вопросы и пора вызывать Finish
func (s *Session) Completed() bool {
	return s.Current >= len(s.Questions)
}

// CorrectCount считает совпадения выбранных ответов с правильными
func (s *Session) CorrectCount() int {
	correct := 0
	for i, answer := range s.Answers {
		if i < len(s.Questions) && s.Questions[i].IsCorrect(answer) {
			correct++
		}
	}
	return correct
}

func (s *Session) view() *QuestionView {
	q := s.Questions[s.Current]
	options := make([]string, len(q.Answers))
	for i, a := range q.Answers {
		options[i] = a.Text
	}
	return &QuestionView{
		MaterialID: s.MaterialID,
		Index:      s.Current,
		Total:      len(s.Questions),
		Text:       q.Text,
		Options:    options,
	}
}

// QuestionView — вопрос, готовый к показу пользователю
type QuestionView struct {
	MaterialID uint
	Index      int // с нуля
	Total      int
	Text       string
	Options    []string
}

// AnswerOutcome — результат принятого ответа
type AnswerOutcome struct {
	Correct       bool
	CorrectAnswer string // текст правильного ответа, заполнен при ошибке
	Finished      bool   // ответ был последним, вызывающий обязан вызвать Finish
	Next          *QuestionView
}

// QuizOutcome — итог завершённого теста
type QuizOutcome struct {
	MaterialID uint
	Correct    int
	Total      int
	Percentage float64
	Passed     bool
}
