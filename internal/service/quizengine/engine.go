package quizengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

// DefaultPassThreshold — порог прохождения теста в процентах
const DefaultPassThreshold = 60.0

// QuestionSource отдаёт вопросы материала с упорядоченными ответами
type QuestionSource interface {
	GetByMaterialID(ctx context.Context, materialID uint) ([]entity.Question, error)
}

// ResultRecorder сохраняет попытку: добавляет TestResult, отмечает материал
// изученным и пересчитывает рейтинг пользователя
type ResultRecorder interface {
	RecordQuizResult(ctx context.Context, result *entity.TestResult) error
}

// Config содержит настройки движка тестов
type Config struct {
	PassThreshold float64
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{PassThreshold: DefaultPassThreshold}
}

// userSlot сериализует операции одного пользователя
type userSlot struct {
	mu      sync.Mutex
	session *Session
}

// Engine — конечный автомат прохождения тестов.
// Операции разных пользователей выполняются параллельно, операции одного
// пользователя строго последовательно под мьютексом его слота.
type Engine struct {
	questions QuestionSource
	recorder  ResultRecorder
	config    Config
	log       *logger.Logger
	now       func() time.Time

	mu    sync.Mutex // защищает только карту slots
	slots map[int64]*userSlot
}

// NewEngine создает движок тестов
func NewEngine(questions QuestionSource, recorder ResultRecorder, config Config, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		questions: questions,
		recorder:  recorder,
		config:    config,
		log:       log,
		now:       time.Now,
		slots:     make(map[int64]*userSlot),
	}
}

// PassThreshold возвращает порог прохождения
func (e *Engine) PassThreshold() float64 {
	return e.config.PassThreshold
}

func (e *Engine) slot(userID int64) *userSlot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slots[userID]
	if !ok {
		s = &userSlot{}
		e.slots[userID] = s
	}
	return s
}

// Start начинает тест по материалу и возвращает первый вопрос.
// Активная сессия пользователя молча заменяется новой.
func (e *Engine) Start(ctx context.Context, userID int64, materialID uint) (*QuestionView, error) {
	questions, err := e.questions.GetByMaterialID(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("load questions for material #%d: %w", materialID, err)
	}

	snapshot := make([]entity.Question, 0, len(questions))
	for _, q := range questions {
		if !q.IsAnswerable() {
			e.log.Warn("[QuizEngine] Вопрос пропущен: нет вариантов или правильный ответ не единственный",
				"question_id", q.ID, "material_id", materialID)
			continue
		}
		snapshot = append(snapshot, q)
	}
	if len(snapshot) == 0 {
		return nil, fmt.Errorf("%w: material #%d has no questions", apperrors.ErrNotFound, materialID)
	}

	session := &Session{
		UserID:     userID,
		MaterialID: materialID,
		Questions:  snapshot,
		Answers:    make([]int, 0, len(snapshot)),
		StartedAt:  e.now(),
	}

	slot := e.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if prev := slot.session; prev != nil {
		e.log.Debug("[QuizEngine] Предыдущая сессия заменена",
			"user_id", userID, "old_material_id", prev.MaterialID, "new_material_id", materialID)
	}
	slot.session = session
	return session.view(), nil
}

// Submit принимает ответ на вопрос questionIndex.
// Ответ на неактуальный вопрос или по другому материалу отклоняется с
// ErrStaleSubmission, индекс ответа вне диапазона с ErrValidation.
// В обоих случаях сессия не меняется.
func (e *Engine) Submit(userID int64, materialID uint, questionIndex, answerIndex int) (*AnswerOutcome, error) {
	slot := e.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	s := slot.session
	if s == nil || s.MaterialID != materialID {
		return nil, fmt.Errorf("%w: no active quiz for material #%d", apperrors.ErrStaleSubmission, materialID)
	}
	if s.Completed() || questionIndex != s.Current {
		return nil, fmt.Errorf("%w: question %d, current %d", apperrors.ErrStaleSubmission, questionIndex, s.Current)
	}

	q := &s.Questions[s.Current]
	if !q.IsValidAnswer(answerIndex) {
		return nil, fmt.Errorf("%w: answer index %d out of range [0, %d)", apperrors.ErrValidation, answerIndex, len(q.Answers))
	}

	s.Answers = append(s.Answers, answerIndex)
	s.Current++

	outcome := &AnswerOutcome{Correct: q.IsCorrect(answerIndex)}
	if !outcome.Correct {
		outcome.CorrectAnswer = q.CorrectText()
	}
	if s.Completed() {
		outcome.Finished = true
	} else {
		outcome.Next = s.view()
	}
	return outcome, nil
}

// Finish подводит итог теста, сохраняет попытку и удаляет сессию.
// Если сохранить не удалось, сессия остаётся и Finish можно повторить.
func (e *Engine) Finish(ctx context.Context, userID int64) (*QuizOutcome, error) {
	slot := e.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	s := slot.session
	if s == nil {
		return nil, fmt.Errorf("%w: no active quiz", apperrors.ErrNotFound)
	}
	if !s.Completed() {
		return nil, fmt.Errorf("%w: %d of %d questions answered", apperrors.ErrConflict, s.Current, len(s.Questions))
	}

	correct := s.CorrectCount()
	total := len(s.Questions)
	result := &entity.TestResult{
		UserID:       userID,
		MaterialID:   s.MaterialID,
		CorrectCount: correct,
		TotalCount:   total,
		Percentage:   entity.Percentage(correct, total),
		CompletedAt:  e.now(),
	}

	if err := e.recorder.RecordQuizResult(ctx, result); err != nil {
		e.log.Error("[QuizEngine] Не удалось сохранить результат теста, сессия сохранена для повтора",
			"user_id", userID, "material_id", s.MaterialID, "error", err)
		return nil, fmt.Errorf("record quiz result: %w", err)
	}

	slot.session = nil
	e.log.Info("[QuizEngine] Тест завершён",
		"user_id", userID, "material_id", result.MaterialID, "correct", correct, "total", total)

	return &QuizOutcome{
		MaterialID: result.MaterialID,
		Correct:    correct,
		Total:      total,
		Percentage: result.Percentage,
		Passed:     result.IsPassed(e.config.PassThreshold),
	}, nil
}

// Cancel удаляет сессию, только если она относится к materialID.
// Возвращает true, если сессия была удалена.
func (e *Engine) Cancel(userID int64, materialID uint) bool {
	slot := e.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.session == nil || slot.session.MaterialID != materialID {
		return false
	}
	slot.session = nil
	return true
}

// Current возвращает вопрос, ожидающий ответа
func (e *Engine) Current(userID int64) (*QuestionView, error) {
	slot := e.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	s := slot.session
	if s == nil {
		return nil, fmt.Errorf("%w: no active quiz", apperrors.ErrNotFound)
	}
	if s.Completed() {
		return nil, fmt.Errorf("%w: quiz awaits finish", apperrors.ErrConflict)
	}
	return s.view(), nil
}

// ActiveMaterial возвращает материал активной сессии пользователя
func (e *Engine) ActiveMaterial(userID int64) (uint, bool) {
	slot := e.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.session == nil {
		return 0, false
	}
	return slot.session.MaterialID, true
}
