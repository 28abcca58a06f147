package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/service"
	"github.com/yourusername/academy-bot/internal/wizard"
)

// adminListLimit — сколько материалов выводит /list_materials
const adminListLimit = 20

func (b *Bot) dispatchAdminCommand(r *request, cmd string) error {
	switch cmd {
	case "add_material":
		b.deps.Wizards.Set(r.userID, wizard.NewAddMaterial())
		b.sendText(r, "➕ <b>Новый материал</b>\n\nВведите название материала:\n\n/cancel - отмена")
	case "edit_material":
		return b.startPick(r, wizard.NewEditMaterial(), "✏️ Выберите материал для редактирования:", tagEditPick, payload(tagEditAction, editCancel))
	case "add_question":
		return b.startPick(r, wizard.NewAddQuestion(), "❓ Выберите материал, к которому добавить вопрос:", tagAddQuestionTo, "")
	case "delete_material":
		return b.startPick(r, wizard.State{}, "🗑️ Выберите материал для удаления:", tagDeletePick, tagDeleteCancel)
	case "list_materials":
		infos, total, err := b.deps.Content.ListWithCounts(r.ctx, adminListLimit)
		if err != nil {
			return err
		}
		b.sendText(r, formatAdminList(infos, total))
	case "export":
		return b.cmdExport(r)
	case "help_admin":
		b.sendText(r, adminHelp)
	}
	return nil
}

// startPick показывает список материалов для выбора и при необходимости
// начинает сценарий
func (b *Bot) startPick(r *request, st wizard.State, prompt, tag, cancelData string) error {
	materials, err := b.deps.Content.ListMaterials(r.ctx, "")
	if err != nil {
		return err
	}
	if len(materials) == 0 {
		b.sendText(r, "📭 Материалов пока нет. Добавьте первый: /add_material")
		return nil
	}
	if st.Flow != wizard.FlowNone {
		b.deps.Wizards.Set(r.userID, st)
	}
	if len(materials) > pickListLimit {
		prompt += fmt.Sprintf("\n\n<i>Показаны первые %d из %d</i>", pickListLimit, len(materials))
	}
	b.sendWithKeyboard(r, prompt, materialPickKeyboard(materials, tag, cancelData))
	return nil
}

func (b *Bot) cmdExport(r *request) error {
	buf, err := b.deps.Export.BuildWorkbook(r.ctx)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("academy_export_%s.xlsx", time.Now().Format("20060102_150405"))
	doc := tgbotapi.NewDocument(r.chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	doc.Caption = "📤 Рейтинг и результаты тестов"
	if _, ok := b.send(r, doc); ok {
		r.log.Info("[Bot] Выгрузка отправлена", "file", name, "bytes", buf.Len())
	}
	return nil
}

// adminInput обрабатывает ввод в административных сценариях
func (b *Bot) adminInput(r *request, msg *tgbotapi.Message, st wizard.State) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" && st.Step != wizard.StepEditVideo {
		b.sendText(r, "Отправьте ответ текстом.")
		return nil
	}

	switch st.Step {
	case wizard.StepMaterialTitle:
		if _, err := b.updateWizard(r, func(s *wizard.State) error { return s.AcceptTitle(text) }); err != nil {
			return err
		}
		b.sendText(r, "📝 Отправьте текст материала. Можно несколькими сообщениями.\n\nКогда закончите, отправьте /done")

	case wizard.StepMaterialText:
		var length int
		_, err := b.updateWizard(r, func(s *wizard.State) error {
			n, err := s.AppendBody(msg.Text)
			length = n
			return err
		})
		if err != nil {
			return err
		}
		b.sendText(r, fmt.Sprintf("✅ Текст добавлен (всего %d символов).\nПродолжайте или отправьте /done", length))

	case wizard.StepMaterialLevel:
		b.sendWithKeyboard(r, "📊 Выберите уровень сложности:", adminLevelKeyboard())

	case wizard.StepQuestionText:
		if _, err := b.updateWizard(r, func(s *wizard.State) error { return s.AcceptQuestionText(text) }); err != nil {
			return err
		}
		b.sendText(r, "📋 Введите варианты ответов через запятую.\n\nПример: Москва, Париж, Лондон")

	case wizard.StepAnswers:
		next, err := b.updateWizard(r, func(s *wizard.State) error { return s.AcceptAnswers(text) })
		if err != nil {
			return err
		}
		var list strings.Builder
		for i, a := range next.Draft.Answers {
			fmt.Fprintf(&list, "%d. %s\n", i+1, esc(a))
		}
		b.sendText(r, "Варианты:\n"+list.String()+"\n✅ Введите номер правильного ответа:")

	case wizard.StepCorrect:
		return b.saveQuestion(r, text)

	case wizard.StepEditTitle:
		title, err := st.AcceptNewTitle(text)
		if err != nil {
			return err
		}
		if err := b.deps.Content.RenameMaterial(r.ctx, st.Draft.MaterialID, title); err != nil {
			return err
		}
		b.deps.Wizards.Clear(r.userID)
		b.sendText(r, fmt.Sprintf("✅ Название изменено: <b>%s</b>", esc(title)))

	case wizard.StepEditText:
		extra, err := st.AcceptExtraText(msg.Text)
		if err != nil {
			return err
		}
		if err := b.deps.Content.AppendText(r.ctx, st.Draft.MaterialID, extra); err != nil {
			return err
		}
		b.deps.Wizards.Clear(r.userID)
		b.sendText(r, "✅ Текст материала дополнен")

	case wizard.StepEditVideo:
		var fileID string
		if msg.Video != nil {
			fileID = msg.Video.FileID
		}
		fileID, err := st.AcceptVideo(fileID)
		if err != nil {
			return err
		}
		if err := b.deps.Content.SetVideo(r.ctx, st.Draft.MaterialID, fileID); err != nil {
			return err
		}
		b.deps.Wizards.Clear(r.userID)
		b.sendText(r, "✅ Видео прикреплено к материалу")

	case wizard.StepSaving:
		b.sendText(r, "⏳ Идёт сохранение, подождите...")

	default:
		b.sendText(r, "👆 Выберите вариант кнопкой выше или /cancel")
	}
	return nil
}

// saveQuestion сохраняет введённый вопрос; при ошибке сценарий возвращается
// к вводу номера правильного ответа
func (b *Bot) saveQuestion(r *request, raw string) error {
	var draft service.QuestionDraft
	st, err := b.updateWizard(r, func(s *wizard.State) error {
		d, err := s.AcceptCorrect(raw)
		draft = d
		return err
	})
	if err != nil {
		return err
	}

	if _, err := b.deps.Content.AddQuestion(r.ctx, st.Draft.MaterialID, draft); err != nil {
		b.retryWizard(r)
		return err
	}
	st, err = b.updateWizard(r, func(s *wizard.State) error {
		s.QuestionSaved()
		return nil
	})
	if err != nil {
		// Сценарий отменён во время сохранения, вопрос уже в базе
		b.sendText(r, "✅ Вопрос сохранён")
		return nil
	}
	b.sendText(r, fmt.Sprintf(
		"✅ Вопрос добавлен (всего в этой сессии: %d).\n\nВведите следующий вопрос или /done для завершения",
		st.Draft.QuestionsAdded,
	))
	return nil
}

func (b *Bot) retryWizard(r *request) {
	_, _ = b.deps.Wizards.Update(r.userID, func(s *wizard.State) error {
		s.Retry()
		return nil
	})
}

func (b *Bot) cmdDone(r *request) error {
	st, ok := b.deps.Wizards.Get(r.userID)
	if !ok || !st.Flow.Admin() {
		b.sendText(r, "Нечего завершать.")
		return nil
	}
	if err := b.requireAdmin(r); err != nil {
		return err
	}

	if st.Flow == wizard.FlowAddMaterial && st.Step == wizard.StepMaterialText {
		if _, err := b.updateWizard(r, func(s *wizard.State) error { return s.FinishBody() }); err != nil {
			return err
		}
		b.sendWithKeyboard(r, "📊 Выберите уровень сложности:", adminLevelKeyboard())
		return nil
	}
	return b.finishQuestions(r, st)
}

func (b *Bot) cmdSkip(r *request) error {
	st, ok := b.deps.Wizards.Get(r.userID)
	if !ok || !st.Flow.Admin() {
		b.sendText(r, "Нечего пропускать.")
		return nil
	}
	if err := b.requireAdmin(r); err != nil {
		return err
	}
	return b.finishQuestions(r, st)
}

func (b *Bot) finishQuestions(r *request, st wizard.State) error {
	if !st.CanFinishQuestions() {
		return fmt.Errorf("%w: cannot finish questions at %s", apperrors.ErrConflict, st.Step)
	}
	b.deps.Wizards.Clear(r.userID)

	if st.Draft.QuestionsAdded == 0 {
		b.sendText(r, fmt.Sprintf("✅ Готово. Материал #%d сохранён без новых вопросов.", st.Draft.MaterialID))
		return nil
	}
	b.sendText(r, fmt.Sprintf("✅ Готово! К материалу #%d добавлено вопросов: %d", st.Draft.MaterialID, st.Draft.QuestionsAdded))
	return nil
}

func (b *Bot) onNewLevel(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	raw, err := p.Arg(0)
	if err != nil {
		return notice{}, err
	}
	level, ok := entity.ParseLevel(raw)
	if !ok {
		return notice{}, fmt.Errorf("%w: unknown level %q", apperrors.ErrValidation, raw)
	}

	var draft service.MaterialDraft
	if _, err := b.updateWizard(r, func(s *wizard.State) error {
		d, err := s.ChooseLevel(level)
		draft = d
		return err
	}); err != nil {
		return notice{}, err
	}

	m, err := b.deps.Content.AddMaterial(r.ctx, draft)
	if err != nil {
		b.retryWizard(r)
		return notice{}, err
	}
	_, _ = b.deps.Wizards.Update(r.userID, func(s *wizard.State) error {
		s.MaterialCreated(m.ID)
		return nil
	})

	b.edit(r, cq.Message.MessageID, fmt.Sprintf(
		"✅ Материал <b>%s</b> создан (ID %d, %s уровень).\n\n"+
			"❓ Теперь добавьте вопросы для теста. Введите текст первого вопроса\n"+
			"или /skip, чтобы пропустить.",
		esc(m.Title), m.ID, m.Level.Title(),
	), nil)
	return notice{text: "Материал сохранён"}, nil
}

func (b *Bot) onEditPick(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	mid, err := p.Uint(0)
	if err != nil {
		return notice{}, err
	}
	m, err := b.deps.Content.GetMaterial(r.ctx, mid)
	if err != nil {
		return notice{}, err
	}
	if _, err := b.updateWizard(r, func(s *wizard.State) error { return s.SelectForEdit(m.ID, m.Title) }); err != nil {
		return notice{}, err
	}

	video := "нет"
	if m.HasVideo() {
		video = "есть"
	}
	b.edit(r, cq.Message.MessageID, fmt.Sprintf(
		"✏️ <b>%s</b>\n📊 Уровень: %s\n📹 Видео: %s\n\nЧто изменить?",
		esc(m.Title), m.Level.Title(), video,
	), kbPtr(editActionKeyboard()))
	return notice{}, nil
}

func (b *Bot) onEditAction(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	raw, err := p.Arg(0)
	if err != nil {
		return notice{}, err
	}
	if raw == editCancel {
		b.deps.Wizards.Clear(r.userID)
		b.edit(r, cq.Message.MessageID, "❌ Редактирование отменено", nil)
		return notice{}, nil
	}

	action, err := wizard.ParseEditAction(raw)
	if err != nil {
		return notice{}, err
	}
	st, err := b.updateWizard(r, func(s *wizard.State) error { return s.ChooseEditAction(action) })
	if err != nil {
		return notice{}, err
	}

	var prompt string
	switch action {
	case wizard.EditRename:
		prompt = fmt.Sprintf("📝 Текущее название: <b>%s</b>\n\nВведите новое название:", esc(st.Draft.Title))
	case wizard.EditAppend:
		prompt = "➕ Отправьте текст, который нужно добавить в конец материала:"
	case wizard.EditVideo:
		prompt = "📹 Отправьте видео для материала:"
	}
	b.edit(r, cq.Message.MessageID, prompt, nil)
	return notice{}, nil
}

func (b *Bot) onAddQuestionTo(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	mid, err := p.Uint(0)
	if err != nil {
		return notice{}, err
	}
	m, err := b.deps.Content.GetMaterial(r.ctx, mid)
	if err != nil {
		return notice{}, err
	}
	if _, err := b.updateWizard(r, func(s *wizard.State) error { return s.PickMaterial(m.ID, m.Title) }); err != nil {
		return notice{}, err
	}
	count, err := b.deps.Content.QuestionCount(r.ctx, m.ID)
	if err != nil {
		r.log.Warn("[Bot] Не удалось посчитать вопросы", "material_id", m.ID, "error", err)
	}
	b.edit(r, cq.Message.MessageID, fmt.Sprintf(
		"❓ Материал: <b>%s</b> (вопросов: %d)\n\nВведите текст нового вопроса:",
		esc(m.Title), count,
	), nil)
	return notice{}, nil
}

func (b *Bot) onDeletePick(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	mid, err := p.Uint(0)
	if err != nil {
		return notice{}, err
	}
	m, err := b.deps.Content.GetMaterial(r.ctx, mid)
	if err != nil {
		return notice{}, err
	}
	b.edit(r, cq.Message.MessageID, fmt.Sprintf(
		"🗑️ Удалить материал <b>%s</b> вместе с вопросами?\n\nРезультаты тестов останутся в истории.",
		esc(m.Title),
	), kbPtr(deleteConfirmKeyboard(m.ID)))
	return notice{}, nil
}

func (b *Bot) onDeleteConfirm(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	mid, err := p.Uint(0)
	if err != nil {
		return notice{}, err
	}
	if err := b.deps.Content.DeleteMaterial(r.ctx, mid); err != nil {
		return notice{}, err
	}
	r.log.Info("[Bot] Материал удалён администратором", "material_id", mid)

	// Число изученных материалов могло уменьшиться
	if err := b.deps.Rating.RecomputeAll(r.ctx); err != nil {
		r.log.Error("[Bot] Не удалось пересчитать рейтинг после удаления", "error", err)
	}
	b.edit(r, cq.Message.MessageID, fmt.Sprintf("✅ Материал #%d удалён", mid), nil)
	return notice{text: "Удалено"}, nil
}

func (b *Bot) onDeleteCancel(r *request, cq *tgbotapi.CallbackQuery, _ Payload) (notice, error) {
	b.edit(r, cq.Message.MessageID, "❌ Удаление отменено", nil)
	return notice{}, nil
}
