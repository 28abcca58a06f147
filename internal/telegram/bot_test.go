package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/academy-bot/internal/config"
	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
	"github.com/yourusername/academy-bot/internal/service"
	"github.com/yourusername/academy-bot/internal/service/quizengine"
	"github.com/yourusername/academy-bot/internal/wizard"
)

// ============================================================================
// Фейки
// ============================================================================

// fakeSender запоминает всё, что бот отправил в Bot API
type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, c)
	return tgbotapi.Message{MessageID: 100 + len(s.sent)}, nil
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *fakeSender) lastCallback(t *testing.T) tgbotapi.CallbackConfig {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if cb, ok := s.requests[i].(tgbotapi.CallbackConfig); ok {
			return cb
		}
	}
	t.Fatal("no callback answer sent")
	return tgbotapi.CallbackConfig{}
}

func (s *fakeSender) lastEdit(t *testing.T) tgbotapi.EditMessageTextConfig {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if e, ok := s.requests[i].(tgbotapi.EditMessageTextConfig); ok {
			return e
		}
	}
	t.Fatal("no message edit sent")
	return tgbotapi.EditMessageTextConfig{}
}

func (s *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if m, ok := s.sent[i].(tgbotapi.MessageConfig); ok {
			return m.Text
		}
	}
	t.Fatal("no message sent")
	return ""
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]*entity.User
}

func newFakeUserRepo(ids ...int64) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int64]*entity.User)}
	for _, id := range ids {
		r.users[id] = &entity.User{ID: id, Name: fmt.Sprintf("Ученик %d", id), Age: 20, Country: "Россия", City: "Москва"}
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return fmt.Errorf("%w: duplicate", apperrors.ErrConflict)
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) Exists(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

func (r *fakeUserRepo) TouchActivity(context.Context, int64, time.Time) error { return nil }

func (r *fakeUserRepo) ListAll(context.Context) ([]entity.User, error) { return nil, nil }

type fakeRating struct{}

func (fakeRating) RecomputeUser(context.Context, int64) error { return nil }

type fakeQuestions map[uint][]entity.Question

func (f fakeQuestions) GetByMaterialID(_ context.Context, materialID uint) ([]entity.Question, error) {
	return f[materialID], nil
}

// fakeRecorder падает failures раз, затем сохраняет
type fakeRecorder struct {
	mu       sync.Mutex
	failures int
	results  []entity.TestResult
}

func (f *fakeRecorder) RecordQuizResult(_ context.Context, result *entity.TestResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("database is locked")
	}
	f.results = append(f.results, *result)
	return nil
}

// ============================================================================
// Хелперы
// ============================================================================

const (
	studentID int64 = 1001
	otherID   int64 = 1002
	adminID   int64 = 9000
)

// twoQuestions — тест из двух вопросов, правильные ответы 0 и 1
func twoQuestions() []entity.Question {
	var qs []entity.Question
	for i, correct := range []int{0, 1} {
		q := entity.Question{ID: uint(i + 1), MaterialID: 1, Text: fmt.Sprintf("Вопрос %d", i+1)}
		for a := 0; a < 3; a++ {
			q.Answers = append(q.Answers, entity.Answer{
				ID:        uint(i*10 + a + 1),
				Text:      fmt.Sprintf("Вариант %d", a+1),
				IsCorrect: a == correct,
			})
		}
		qs = append(qs, q)
	}
	return qs
}

type testBot struct {
	bot      *Bot
	sender   *fakeSender
	engine   *quizengine.Engine
	recorder *fakeRecorder
	users    *fakeUserRepo
	wizards  *wizard.Store
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	log := logger.Nop()
	users := newFakeUserRepo(studentID, otherID, adminID)
	recorder := &fakeRecorder{}
	engine := quizengine.NewEngine(fakeQuestions{1: twoQuestions()}, recorder, quizengine.DefaultConfig(), log)
	wizards := wizard.NewStore()
	sender := &fakeSender{}

	b := newBot(sender, Deps{
		Users:   service.NewUserService(users, fakeRating{}, log),
		Engine:  engine,
		Wizards: wizards,
		Admins:  config.AdminConfig{IDs: []int64{adminID}},
	}, log)
	return &testBot{bot: b, sender: sender, engine: engine, recorder: recorder, users: users, wizards: wizards}
}

func (tb *testBot) press(userID int64, data string) {
	tb.bot.handleUpdate(context.Background(), tgbotapi.Update{
		UpdateID: 1,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb",
			From: &tgbotapi.User{ID: userID},
			Message: &tgbotapi.Message{
				MessageID: 10,
				Chat:      &tgbotapi.Chat{ID: userID},
			},
			Data: data,
		},
	})
}

func (tb *testBot) say(userID int64, text string) {
	msg := &tgbotapi.Message{
		MessageID: 20,
		From:      &tgbotapi.User{ID: userID, UserName: "student"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmdLen := len(text)
		if i := strings.Index(text, " "); i > 0 {
			cmdLen = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}
	}
	tb.bot.handleUpdate(context.Background(), tgbotapi.Update{UpdateID: 2, Message: msg})
}

func answerData(userID int64, question, answer int) string {
	return AnswerPayload{UserID: userID, MaterialID: 1, Question: question, Answer: answer}.Encode()
}

// ============================================================================
// Тесты
// ============================================================================

func TestQuiz_FullFlowShowsResult(t *testing.T) {
	tb := newTestBot(t)

	tb.press(studentID, payload(tagTestStart, 1))
	assert.Contains(t, tb.sender.lastEdit(t).Text, "Вопрос 1 из 2")

	tb.press(studentID, answerData(studentID, 0, 0))
	assert.Equal(t, "✅ Правильно!", tb.sender.lastCallback(t).Text)
	assert.Contains(t, tb.sender.lastEdit(t).Text, "Вопрос 2 из 2")

	tb.press(studentID, answerData(studentID, 1, 2))
	cb := tb.sender.lastCallback(t)
	assert.True(t, cb.ShowAlert)
	assert.Contains(t, cb.Text, "Вариант 2")

	assert.Contains(t, tb.sender.lastEdit(t).Text, "Результаты теста")
	require.Len(t, tb.recorder.results, 1)
	assert.Equal(t, 1, tb.recorder.results[0].CorrectCount)
	assert.Equal(t, 2, tb.recorder.results[0].TotalCount)

	_, active := tb.engine.ActiveMaterial(studentID)
	assert.False(t, active)
}

func TestQuiz_OtherUsersPressIsForbidden(t *testing.T) {
	tb := newTestBot(t)
	_, err := tb.engine.Start(context.Background(), studentID, 1)
	require.NoError(t, err)

	// Чужая кнопка: payload выдан studentID, нажимает otherID
	tb.press(otherID, answerData(studentID, 0, 0))

	cb := tb.sender.lastCallback(t)
	assert.True(t, cb.ShowAlert)
	assert.Equal(t, userMessage(apperrors.ErrForbidden), cb.Text)

	view, err := tb.engine.Current(studentID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Index)
	_, active := tb.engine.ActiveMaterial(otherID)
	assert.False(t, active)
}

func TestQuiz_DoublePressIsStale(t *testing.T) {
	tb := newTestBot(t)
	_, err := tb.engine.Start(context.Background(), studentID, 1)
	require.NoError(t, err)

	tb.press(studentID, answerData(studentID, 0, 0))
	tb.press(studentID, answerData(studentID, 0, 1))

	cb := tb.sender.lastCallback(t)
	assert.False(t, cb.ShowAlert)
	assert.Equal(t, "⌛ Вопрос уже отвечен", cb.Text)

	// Экран возвращён к актуальному вопросу
	assert.Contains(t, tb.sender.lastEdit(t).Text, "Вопрос 2 из 2")
	view, err := tb.engine.Current(studentID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Index)
}

func TestQuiz_RecorderFailureOffersRetry(t *testing.T) {
	tb := newTestBot(t)
	tb.recorder.failures = 1
	_, err := tb.engine.Start(context.Background(), studentID, 1)
	require.NoError(t, err)

	tb.press(studentID, answerData(studentID, 0, 0))
	tb.press(studentID, answerData(studentID, 1, 1))

	edit := tb.sender.lastEdit(t)
	assert.Contains(t, edit.Text, "Не удалось сохранить результат")
	require.NotNil(t, edit.ReplyMarkup)
	assert.Equal(t, payload(tagTestFinish, studentID), *edit.ReplyMarkup.InlineKeyboard[0][0].CallbackData)

	_, active := tb.engine.ActiveMaterial(studentID)
	assert.True(t, active, "session is kept for retry")

	tb.press(studentID, payload(tagTestFinish, studentID))
	assert.Contains(t, tb.sender.lastEdit(t).Text, "Результаты теста")
	require.Len(t, tb.recorder.results, 1)
	assert.Equal(t, 2, tb.recorder.results[0].CorrectCount)

	// Повторное нажатие после сохранения
	tb.press(studentID, payload(tagTestFinish, studentID))
	assert.Equal(t, "Результат уже сохранён", tb.sender.lastCallback(t).Text)
	assert.Len(t, tb.recorder.results, 1)
}

func TestQuiz_CancelByOwner(t *testing.T) {
	tb := newTestBot(t)
	_, err := tb.engine.Start(context.Background(), studentID, 1)
	require.NoError(t, err)

	cancel := CancelPayload{UserID: studentID, MaterialID: 1}.Encode()
	tb.press(otherID, cancel)
	_, active := tb.engine.ActiveMaterial(studentID)
	assert.True(t, active)

	tb.press(studentID, cancel)
	_, active = tb.engine.ActiveMaterial(studentID)
	assert.False(t, active)
	assert.Contains(t, tb.sender.lastEdit(t).Text, "Тест отменён")
}

func TestCallback_MalformedData(t *testing.T) {
	cases := []string{"zz:1", "ta:1:2", "ts:abc", ""}
	for _, data := range cases {
		t.Run(data, func(t *testing.T) {
			tb := newTestBot(t)
			tb.press(studentID, data)

			cb := tb.sender.lastCallback(t)
			assert.True(t, cb.ShowAlert)
			assert.Equal(t, userMessage(apperrors.ErrValidation), cb.Text)
		})
	}
}

func TestCallback_UnregisteredUser(t *testing.T) {
	tb := newTestBot(t)
	tb.press(5555, payload(tagTestStart, 1))

	cb := tb.sender.lastCallback(t)
	assert.Equal(t, userMessage(errNotRegistered), cb.Text)
	_, active := tb.engine.ActiveMaterial(5555)
	assert.False(t, active)
}

func TestRegistration_ThroughMessages(t *testing.T) {
	tb := newTestBot(t)
	const newcomer int64 = 777

	tb.say(newcomer, "/start")
	st, ok := tb.wizards.Get(newcomer)
	require.True(t, ok)
	assert.Equal(t, wizard.StepName, st.Step)

	tb.say(newcomer, "Мария")
	tb.say(newcomer, "сто")
	assert.Equal(t, stepHints[wizard.StepAge], tb.sender.lastText(t))

	tb.say(newcomer, "31")
	tb.say(newcomer, "Беларусь")
	tb.say(newcomer, "Минск")

	assert.Contains(t, tb.sender.lastText(t), "Регистрация завершена")
	_, ok = tb.wizards.Get(newcomer)
	assert.False(t, ok)

	user, err := tb.users.GetByID(context.Background(), newcomer)
	require.NoError(t, err)
	assert.Equal(t, "Мария", user.Name)
	assert.Equal(t, 31, user.Age)
	assert.Equal(t, "student", user.Username)
}

func TestAdminCommands_ForbiddenForStudents(t *testing.T) {
	tb := newTestBot(t)

	tb.say(studentID, "/add_material")

	assert.Equal(t, userMessage(apperrors.ErrForbidden), tb.sender.lastText(t))
	_, ok := tb.wizards.Get(studentID)
	assert.False(t, ok)
}

func TestAdminAddMaterial_TextCollection(t *testing.T) {
	tb := newTestBot(t)

	tb.say(adminID, "/add_material")
	tb.say(adminID, "Основы сетей")
	tb.say(adminID, "Первая часть")
	tb.say(adminID, "Вторая часть")
	tb.say(adminID, "/done")

	st, ok := tb.wizards.Get(adminID)
	require.True(t, ok)
	assert.Equal(t, wizard.StepMaterialLevel, st.Step)
	assert.Equal(t, "Первая часть\nВторая часть", st.Draft.Body)

	tb.say(adminID, "/cancel")
	_, ok = tb.wizards.Get(adminID)
	assert.False(t, ok)
}

func TestCancel_StopsActiveQuiz(t *testing.T) {
	tb := newTestBot(t)
	_, err := tb.engine.Start(context.Background(), studentID, 1)
	require.NoError(t, err)

	tb.say(studentID, "/cancel")

	_, active := tb.engine.ActiveMaterial(studentID)
	assert.False(t, active)
	assert.Contains(t, tb.sender.lastText(t), "Тест отменён")
}

func TestHandleUpdate_RecoversFromPanic(t *testing.T) {
	tb := newTestBot(t)
	tb.bot.callbacks["boom"] = func(*request, *tgbotapi.CallbackQuery, Payload) (notice, error) {
		panic("boom")
	}

	assert.NotPanics(t, func() { tb.press(studentID, "boom") })
}
