package telegram

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/wizard"
)

// stepHints — подсказки при некорректном вводе на шаге сценария
var stepHints = map[wizard.Step]string{
	wizard.StepName:          "❌ Имя должно содержать минимум 2 символа. Попробуйте снова:",
	wizard.StepAge:           "❌ Введите корректный возраст (число от 1 до 150):",
	wizard.StepCountry:       "❌ Название страны должно содержать минимум 2 символа:",
	wizard.StepCity:          "❌ Название города должно содержать минимум 2 символа:",
	wizard.StepMaterialTitle: "❌ Название должно содержать от 3 до 200 символов:",
	wizard.StepMaterialText:  "❌ Отправьте текст материала или /done, если текст уже введён",
	wizard.StepQuestionText:  "❌ Текст вопроса должен содержать от 5 до 1000 символов:",
	wizard.StepAnswers:       "❌ Нужно от 2 до 8 вариантов через запятую:",
	wizard.StepCorrect:       "❌ Введите номер правильного ответа из списка:",
	wizard.StepEditTitle:     "❌ Название должно содержать от 3 до 200 символов:",
	wizard.StepEditText:      "❌ Отправьте текст, который нужно добавить:",
	wizard.StepEditVideo:     "❌ Отправьте видеофайл:",
}

// updateWizard применяет переход к сценарию пользователя.
// Отсутствие сценария означает устаревшую кнопку или ввод после /cancel.
func (b *Bot) updateWizard(r *request, fn func(st *wizard.State) error) (wizard.State, error) {
	st, err := b.deps.Wizards.Update(r.userID, fn)
	if errors.Is(err, apperrors.ErrNotFound) {
		return st, fmt.Errorf("%w: no active wizard", apperrors.ErrConflict)
	}
	return st, err
}

func (b *Bot) cmdStart(r *request) error {
	ok, err := b.deps.Users.IsRegistered(r.ctx, r.userID)
	if err != nil {
		return err
	}
	if ok {
		user, err := b.deps.Users.Get(r.ctx, r.userID)
		if err != nil {
			return err
		}
		b.deps.Users.Touch(r.ctx, r.userID)
		b.sendWithKeyboard(r, formatWelcome(user.Name), mainMenuKeyboard())
		return nil
	}

	b.deps.Wizards.Set(r.userID, wizard.NewRegistration())
	b.sendText(r, "👋 Добро пожаловать в обучающий бот!\n\nДля начала пройдите короткую регистрацию.\n\n👤 Введите ваше имя:")
	return nil
}

func (b *Bot) cmdCancel(r *request) error {
	cleared := b.deps.Wizards.Clear(r.userID)
	cancelled := false
	if mid, ok := b.deps.Engine.ActiveMaterial(r.userID); ok {
		cancelled = b.deps.Engine.Cancel(r.userID, mid)
	}

	switch {
	case cancelled:
		b.sendText(r, "❌ Тест отменён. Результат не сохранён.")
	case cleared:
		b.sendText(r, "❌ Действие отменено.")
	default:
		b.sendText(r, "Нечего отменять.")
	}
	return nil
}

// handleInput обрабатывает обычное сообщение как ввод для активного сценария
func (b *Bot) handleInput(r *request, msg *tgbotapi.Message) error {
	st, ok := b.deps.Wizards.Get(r.userID)
	if !ok {
		b.sendText(r, "Используйте /start для главного меню или /help для списка команд.")
		return nil
	}

	var err error
	if st.Flow.Admin() {
		if err = b.requireAdmin(r); err != nil {
			b.deps.Wizards.Clear(r.userID)
			return err
		}
		err = b.adminInput(r, msg, st)
	} else {
		err = b.registrationInput(r, strings.TrimSpace(msg.Text), st)
	}

	if errors.Is(err, apperrors.ErrValidation) {
		if hint, ok := stepHints[st.Step]; ok {
			r.log.Debug("[Bot] Некорректный ввод", "flow", st.Flow, "step", st.Step, "reason", err)
			b.sendText(r, hint)
			return nil
		}
	}
	return err
}

func (b *Bot) registrationInput(r *request, text string, st wizard.State) error {
	if text == "" {
		b.sendText(r, "Отправьте ответ текстом.")
		return nil
	}

	switch st.Step {
	case wizard.StepName:
		if _, err := b.updateWizard(r, func(s *wizard.State) error { return s.AcceptName(text) }); err != nil {
			return err
		}
		b.sendText(r, "📅 Введите ваш возраст:")
	case wizard.StepAge:
		if _, err := b.updateWizard(r, func(s *wizard.State) error { return s.AcceptAge(text) }); err != nil {
			return err
		}
		b.sendText(r, "🌍 Введите вашу страну:")
	case wizard.StepCountry:
		if _, err := b.updateWizard(r, func(s *wizard.State) error { return s.AcceptCountry(text) }); err != nil {
			return err
		}
		b.sendText(r, "🏙️ Введите ваш город:")
	case wizard.StepCity:
		return b.completeRegistration(r, text)
	default:
		return fmt.Errorf("%w: unexpected registration step %s", apperrors.ErrConflict, st.Step)
	}
	return nil
}

func (b *Bot) completeRegistration(r *request, city string) error {
	st, ok := b.deps.Wizards.Get(r.userID)
	if !ok {
		return fmt.Errorf("%w: no active wizard", apperrors.ErrConflict)
	}
	reg, err := st.AcceptCity(city)
	if err != nil {
		return err
	}
	reg.UserID = r.userID
	reg.Username = r.from.UserName

	user, err := b.deps.Users.Register(r.ctx, reg)
	if errors.Is(err, apperrors.ErrConflict) {
		// Анкета отправлена повторно: пользователь уже есть
		b.deps.Wizards.Clear(r.userID)
		return b.cmdStart(r)
	}
	if err != nil {
		return err
	}

	b.deps.Wizards.Clear(r.userID)
	b.sendWithKeyboard(r, formatRegistered(user), mainMenuKeyboard())
	return nil
}

func (b *Bot) onHome(r *request, cq *tgbotapi.CallbackQuery, _ Payload) (notice, error) {
	if err := b.requireRegistered(r); err != nil {
		return notice{}, err
	}
	user, err := b.deps.Users.Get(r.ctx, r.userID)
	if err != nil {
		return notice{}, err
	}
	b.dropVideo(r)
	b.edit(r, cq.Message.MessageID, formatWelcome(user.Name), kbPtr(mainMenuKeyboard()))
	return notice{}, nil
}

func (b *Bot) cmdMaterials(r *request) error {
	if err := b.requireRegistered(r); err != nil {
		return err
	}
	b.sendWithKeyboard(r, formatLevels(), levelsKeyboard())
	return nil
}

func (b *Bot) onLevels(r *request, cq *tgbotapi.CallbackQuery, _ Payload) (notice, error) {
	if err := b.requireRegistered(r); err != nil {
		return notice{}, err
	}
	b.dropVideo(r)
	b.edit(r, cq.Message.MessageID, formatLevels(), kbPtr(levelsKeyboard()))
	return notice{}, nil
}

func (b *Bot) onLevel(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	if err := b.requireRegistered(r); err != nil {
		return notice{}, err
	}
	raw, err := p.Arg(0)
	if err != nil {
		return notice{}, err
	}
	var level entity.Level
	if raw != levelAll {
		parsed, ok := entity.ParseLevel(raw)
		if !ok {
			return notice{}, fmt.Errorf("%w: unknown level %q", apperrors.ErrValidation, raw)
		}
		level = parsed
	}

	materials, err := b.deps.Content.ListMaterials(r.ctx, level)
	if err != nil {
		return notice{}, err
	}
	b.dropVideo(r)
	if len(materials) == 0 {
		b.edit(r, cq.Message.MessageID, levelHeading(level)+"\n\n📭 Материалов пока нет.", kbPtr(levelsKeyboard()))
		return notice{}, nil
	}

	studied, err := b.deps.Progress.StudiedSet(r.ctx, r.userID)
	if err != nil {
		r.log.Warn("[Bot] Не удалось получить изученные материалы", "error", err)
		studied = map[uint]bool{}
	}
	b.edit(r, cq.Message.MessageID, levelHeading(level)+"\n\nВыберите материал:", kbPtr(materialsKeyboard(materials, studied)))
	return notice{}, nil
}

func (b *Bot) onMaterial(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	if err := b.requireRegistered(r); err != nil {
		return notice{}, err
	}
	mid, err := p.Uint(0)
	if err != nil {
		return notice{}, err
	}
	page, err := p.Int(1)
	if err != nil {
		return notice{}, err
	}
	return notice{}, b.showMaterial(r, cq.Message.MessageID, mid, page)
}

// showMaterial выводит страницу материала. Открытие первой страницы отмечает
// материал изученным.
func (b *Bot) showMaterial(r *request, messageID int, materialID uint, page int) error {
	m, err := b.deps.Content.GetMaterial(r.ctx, materialID)
	if err != nil {
		return err
	}
	pages := SplitText(m.Body, materialPageLen)
	if page < 0 || page >= len(pages) {
		return fmt.Errorf("%w: page %d of %d", apperrors.ErrValidation, page, len(pages))
	}

	justStudied := false
	if page == 0 {
		created, err := b.deps.Progress.MarkStudied(r.ctx, r.userID, m.ID)
		if err != nil {
			r.log.Warn("[Bot] Не удалось отметить материал изученным", "material_id", m.ID, "error", err)
		}
		justStudied = created
	}

	count, err := b.deps.Content.QuestionCount(r.ctx, m.ID)
	if err != nil {
		r.log.Warn("[Bot] Не удалось посчитать вопросы", "material_id", m.ID, "error", err)
	}
	text := formatMaterialPage(m, pages[page], page, len(pages), justStudied)
	kb := materialNavKeyboard(m.ID, count > 0, page, len(pages))

	b.dropVideo(r)
	if page != 0 || !m.HasVideo() {
		b.edit(r, messageID, text, &kb)
		return nil
	}

	// Видео отправляется новым сообщением; короткий материал целиком идёт в подпись
	video := tgbotapi.NewVideo(r.chatID, tgbotapi.FileID(m.VideoFileID))
	video.ParseMode = tgbotapi.ModeHTML
	short := utf8.RuneCountInString(text) <= captionLen
	if short {
		video.Caption = text
		video.ReplyMarkup = kb
	} else {
		video.Caption = materialHeader(m)
	}
	sent, ok := b.send(r, video)
	if !ok {
		b.edit(r, messageID, text, &kb)
		return nil
	}
	b.videos.remember(r.chatID, sent.MessageID)
	b.deleteMessage(r, messageID)
	if !short {
		b.sendWithKeyboard(r, text, kb)
	}
	return nil
}

func (b *Bot) onMaterialInfo(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	if err := b.requireRegistered(r); err != nil {
		return notice{}, err
	}
	mid, err := p.Uint(0)
	if err != nil {
		return notice{}, err
	}
	m, err := b.deps.Content.GetMaterial(r.ctx, mid)
	if err != nil {
		return notice{}, err
	}
	count, err := b.deps.Content.QuestionCount(r.ctx, mid)
	if err != nil {
		return notice{}, err
	}
	b.dropVideo(r)
	b.edit(r, cq.Message.MessageID, formatMaterialInfo(m, count), kbPtr(materialInfoKeyboard(mid)))
	return notice{}, nil
}

func (b *Bot) leaderboardText(r *request) (string, error) {
	page, err := b.deps.Rating.Leaderboard(r.ctx, 1, leaderboardTop)
	if err != nil {
		return "", err
	}
	own, err := b.deps.Rating.UserRating(r.ctx, r.userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			r.log.Warn("[Bot] Не удалось получить место пользователя", "error", err)
		}
		own = nil
	}
	return formatLeaderboard(page.Entries, own), nil
}

func (b *Bot) cmdLeaderboard(r *request) error {
	if err := b.requireRegistered(r); err != nil {
		return err
	}
	text, err := b.leaderboardText(r)
	if err != nil {
		return err
	}
	b.sendWithKeyboard(r, text, homeKeyboard())
	return nil
}

func (b *Bot) onLeaderboard(r *request, cq *tgbotapi.CallbackQuery, _ Payload) (notice, error) {
	if err := b.requireRegistered(r); err != nil {
		return notice{}, err
	}
	text, err := b.leaderboardText(r)
	if err != nil {
		return notice{}, err
	}
	b.dropVideo(r)
	b.edit(r, cq.Message.MessageID, text, kbPtr(homeKeyboard()))
	return notice{}, nil
}

func (b *Bot) cmdStats(r *request) error {
	if err := b.requireRegistered(r); err != nil {
		return err
	}
	stats, err := b.deps.Progress.Stats(r.ctx, r.userID)
	if err != nil {
		return err
	}
	b.sendWithKeyboard(r, formatStats(stats), statsKeyboard())
	return nil
}

func (b *Bot) onStats(r *request, cq *tgbotapi.CallbackQuery, _ Payload) (notice, error) {
	if err := b.requireRegistered(r); err != nil {
		return notice{}, err
	}
	stats, err := b.deps.Progress.Stats(r.ctx, r.userID)
	if err != nil {
		return notice{}, err
	}
	b.dropVideo(r)
	b.edit(r, cq.Message.MessageID, formatStats(stats), kbPtr(statsKeyboard()))
	return notice{}, nil
}

// cmdAsk передаёт вопрос наставнику Specter; ответ приходит обычным текстом
func (b *Bot) cmdAsk(r *request, question string) error {
	if err := b.requireRegistered(r); err != nil {
		return err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		b.sendText(r, "💬 Напишите вопрос после команды, например:\n/ask Что такое DNS?")
		return nil
	}

	user, err := b.deps.Users.Get(r.ctx, r.userID)
	if err != nil {
		return err
	}
	if _, err := b.sender.Request(tgbotapi.NewChatAction(r.chatID, tgbotapi.ChatTyping)); err != nil {
		r.log.Debug("[Bot] Не удалось отправить статус набора", "error", err)
	}

	reply, err := b.deps.Tutor.Ask(r.ctx, r.userID, user.Alias(), question)
	if err != nil {
		return err
	}
	b.sendPlain(r, "💬 Ответ Specter:\n\n"+reply)
	return nil
}
