package telegram

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/yourusername/academy-bot/internal/config"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
	"github.com/yourusername/academy-bot/internal/service"
	"github.com/yourusername/academy-bot/internal/service/quizengine"
	"github.com/yourusername/academy-bot/internal/wizard"
)

// updateTimeout ограничивает обработку одного обновления (включая запрос к LLM)
const updateTimeout = 2 * time.Minute

// Sender — часть Bot API, через которую бот отправляет запросы.
// *tgbotapi.BotAPI реализует его напрямую.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps — сервисы, которыми пользуются обработчики
type Deps struct {
	Users    *service.UserService
	Content  *service.ContentService
	Progress *service.ProgressService
	Rating   *service.RatingService
	Tutor    *service.TutorService
	Export   *service.ExportService
	Engine   *quizengine.Engine
	Wizards  *wizard.Store
	Admins   config.AdminConfig
}

// notice — всплывающий ответ на нажатие кнопки
type notice struct {
	text  string
	alert bool
}

type callbackHandler func(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error)

// request — контекст обработки одного обновления
type request struct {
	ctx    context.Context
	log    *logger.Logger
	userID int64
	chatID int64
	from   *tgbotapi.User
}

// Bot получает обновления long polling и обрабатывает каждое в своей горутине
type Bot struct {
	api         *tgbotapi.BotAPI
	sender      Sender
	deps        Deps
	log         *logger.Logger
	pollTimeout int

	callbacks map[string]callbackHandler
	videos    *videoTracker
	wg        sync.WaitGroup
}

// NewBot авторизуется в Bot API и создает бота
func NewBot(cfg config.TelegramConfig, deps Deps, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: telegram authorization: %v", apperrors.ErrUpstream, err)
	}
	api.Debug = cfg.Debug

	b := newBot(api, deps, log)
	b.api = api
	b.pollTimeout = cfg.PollTimeout
	log.Info("[Bot] Авторизован", "username", api.Self.UserName)
	return b, nil
}

func newBot(sender Sender, deps Deps, log *logger.Logger) *Bot {
	b := &Bot{
		sender:      sender,
		deps:        deps,
		log:         log,
		pollTimeout: 60,
		videos:      newVideoTracker(),
	}
	b.callbacks = map[string]callbackHandler{
		tagHome:         b.onHome,
		tagLevels:       b.onLevels,
		tagLevel:        b.onLevel,
		tagMaterial:     b.onMaterial,
		tagMaterialInfo: b.onMaterialInfo,
		tagLeaderboard:  b.onLeaderboard,
		tagStats:        b.onStats,
		tagTestStart:    b.onTestStart,
		tagTestAnswer:   b.onTestAnswer,
		tagTestCancel:   b.onTestCancel,
		tagTestFinish:   b.onTestFinish,

		tagNewLevel:      b.adminOnly(b.onNewLevel),
		tagEditPick:      b.adminOnly(b.onEditPick),
		tagEditAction:    b.adminOnly(b.onEditAction),
		tagDeletePick:    b.adminOnly(b.onDeletePick),
		tagDeleteConfirm: b.adminOnly(b.onDeleteConfirm),
		tagDeleteCancel:  b.adminOnly(b.onDeleteCancel),
		tagAddQuestionTo: b.adminOnly(b.onAddQuestionTo),
	}
	return b
}

// Run читает обновления до отмены ctx и дожидается обработки уже полученных
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)
	b.log.Info("[Bot] Запущен long polling", "timeout", b.pollTimeout)

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("[Bot] Остановка, ожидание обработки текущих обновлений")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	log := b.log.With("trace_id", uuid.NewString(), "update_id", update.UpdateID)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("[Bot] Паника при обработке обновления", "panic", rec, "stack", string(debug.Stack()))
		}
	}()

	// Остановка поллинга не прерывает уже начатую обработку
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), updateTimeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, log, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, log, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, log *logger.Logger, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	r := &request{
		ctx:    ctx,
		log:    log.With("user_id", msg.From.ID),
		userID: msg.From.ID,
		chatID: msg.Chat.ID,
		from:   msg.From,
	}

	var err error
	if msg.IsCommand() {
		r.log.Debug("[Bot] Команда", "command", msg.Command())
		err = b.dispatchCommand(r, msg)
	} else {
		err = b.handleInput(r, msg)
	}
	if err != nil {
		b.logError(r, err)
		b.sendText(r, userMessage(err))
	}
}

func (b *Bot) dispatchCommand(r *request, msg *tgbotapi.Message) error {
	switch cmd := msg.Command(); cmd {
	case "start":
		return b.cmdStart(r)
	case "help":
		b.sendText(r, userHelp)
		return nil
	case "cancel":
		return b.cmdCancel(r)
	case "materials":
		return b.cmdMaterials(r)
	case "leaderboard":
		return b.cmdLeaderboard(r)
	case "stats":
		return b.cmdStats(r)
	case "ask":
		return b.cmdAsk(r, msg.CommandArguments())
	case "done":
		return b.cmdDone(r)
	case "skip":
		return b.cmdSkip(r)
	case "add_material", "edit_material", "list_materials", "delete_material", "add_question", "export", "help_admin":
		if err := b.requireAdmin(r); err != nil {
			return err
		}
		return b.dispatchAdminCommand(r, cmd)
	default:
		b.sendText(r, "Неизвестная команда. /help — список команд")
		return nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, log *logger.Logger, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		return
	}
	if cq.Message == nil || cq.Message.Chat == nil {
		// Кнопки inline-режима бот не выдаёт
		b.answer(log, cq.ID, notice{})
		return
	}
	r := &request{
		ctx:    ctx,
		log:    log.With("user_id", cq.From.ID),
		userID: cq.From.ID,
		chatID: cq.Message.Chat.ID,
		from:   cq.From,
	}

	p, err := DecodePayload(cq.Data)
	var n notice
	if err == nil {
		r.log.Debug("[Bot] Callback", "tag", p.Tag)
		handler, ok := b.callbacks[p.Tag]
		if !ok {
			err = fmt.Errorf("%w: unknown callback tag %q", apperrors.ErrValidation, p.Tag)
		} else {
			n, err = handler(r, cq, p)
		}
	}
	if err != nil {
		b.logError(r, err)
		n = notice{text: userMessage(err), alert: true}
	}
	b.answer(r.log, cq.ID, n)
}

func (b *Bot) adminOnly(h callbackHandler) callbackHandler {
	return func(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
		if err := b.requireAdmin(r); err != nil {
			return notice{}, err
		}
		return h(r, cq, p)
	}
}

func (b *Bot) requireAdmin(r *request) error {
	if !b.deps.Admins.IsAdmin(r.userID) {
		return fmt.Errorf("%w: user %d is not an admin", apperrors.ErrForbidden, r.userID)
	}
	return nil
}

// requireRegistered пропускает только зарегистрированных и отмечает их активность
func (b *Bot) requireRegistered(r *request) error {
	ok, err := b.deps.Users.IsRegistered(r.ctx, r.userID)
	if err != nil {
		return err
	}
	if !ok {
		return errNotRegistered
	}
	b.deps.Users.Touch(r.ctx, r.userID)
	return nil
}

func (b *Bot) logError(r *request, err error) {
	if expected(err) {
		r.log.Info("[Bot] Запрос отклонён", "reason", err)
		return
	}
	r.log.Error("[Bot] Ошибка обработки", "error", err)
}

// --- отправка ---

func (b *Bot) sendText(r *request, text string) {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(r, msg)
}

func (b *Bot) sendWithKeyboard(r *request, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	b.send(r, msg)
}

// sendPlain отправляет текст без разметки, разбивая на сообщения по лимиту
func (b *Bot) sendPlain(r *request, text string) {
	for _, part := range SplitText(text, messageLen) {
		b.send(r, tgbotapi.NewMessage(r.chatID, part))
	}
}

func (b *Bot) send(r *request, c tgbotapi.Chattable) (tgbotapi.Message, bool) {
	sent, err := b.sender.Send(c)
	if err != nil {
		r.log.Warn("[Bot] Не удалось отправить сообщение", "error", err)
		return sent, false
	}
	return sent, true
}

// edit заменяет текст сообщения с кнопкой; если это невозможно (например,
// сообщение с видео), отправляет новое
func (b *Bot) edit(r *request, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	var cfg tgbotapi.EditMessageTextConfig
	if kb != nil {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(r.chatID, messageID, text, *kb)
	} else {
		cfg = tgbotapi.NewEditMessageText(r.chatID, messageID, text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML

	_, err := b.sender.Request(cfg)
	if err == nil || strings.Contains(err.Error(), "message is not modified") {
		return
	}
	r.log.Debug("[Bot] Не удалось отредактировать сообщение, отправляем новое", "error", err)
	if kb != nil {
		b.sendWithKeyboard(r, text, *kb)
		return
	}
	b.sendText(r, text)
}

func (b *Bot) deleteMessage(r *request, messageID int) {
	if _, err := b.sender.Request(tgbotapi.NewDeleteMessage(r.chatID, messageID)); err != nil {
		r.log.Debug("[Bot] Не удалось удалить сообщение", "message_id", messageID, "error", err)
	}
}

func (b *Bot) answer(log *logger.Logger, callbackID string, n notice) {
	cfg := tgbotapi.NewCallback(callbackID, n.text)
	if n.alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, n.text)
	}
	if _, err := b.sender.Request(cfg); err != nil {
		log.Warn("[Bot] Не удалось ответить на callback", "error", err)
	}
}

func kbPtr(kb tgbotapi.InlineKeyboardMarkup) *tgbotapi.InlineKeyboardMarkup {
	return &kb
}

// videoTracker помнит последнее видео материала в каждом чате, чтобы убрать
// его при переходе на другой экран
type videoTracker struct {
	mu       sync.Mutex
	messages map[int64]int
}

func newVideoTracker() *videoTracker {
	return &videoTracker{messages: make(map[int64]int)}
}

func (t *videoTracker) remember(chatID int64, messageID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages[chatID] = messageID
}

func (t *videoTracker) take(chatID int64) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.messages[chatID]
	delete(t.messages, chatID)
	return id, ok
}

func (b *Bot) dropVideo(r *request) {
	if id, ok := b.videos.take(r.chatID); ok {
		b.deleteMessage(r, id)
	}
}
