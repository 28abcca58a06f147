package telegram

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

func (b *Bot) onTestStart(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	if err := b.requireRegistered(r); err != nil {
		return notice{}, err
	}
	mid, err := p.Uint(0)
	if err != nil {
		return notice{}, err
	}

	view, err := b.deps.Engine.Start(r.ctx, r.userID, mid)
	if errors.Is(err, apperrors.ErrNotFound) {
		return notice{text: "❌ Тест для этого материала не найден", alert: true}, nil
	}
	if err != nil {
		return notice{}, err
	}

	r.log.Info("[Bot] Тест начат", "material_id", mid, "questions", view.Total)
	b.dropVideo(r)
	b.edit(r, cq.Message.MessageID, formatQuestion(view), kbPtr(answerKeyboard(r.userID, view)))
	return notice{text: "📝 Тест начался!"}, nil
}

func (b *Bot) onTestAnswer(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	ap, err := DecodeAnswer(p)
	if err != nil {
		return notice{}, err
	}
	if err := checkActor(ap.UserID, r.userID); err != nil {
		return notice{}, err
	}

	out, err := b.deps.Engine.Submit(r.userID, ap.MaterialID, ap.Question, ap.Answer)
	if errors.Is(err, apperrors.ErrStaleSubmission) {
		r.log.Debug("[Bot] Устаревший ответ", "material_id", ap.MaterialID, "question", ap.Question)
		b.redrawCurrent(r, cq.Message.MessageID, ap.MaterialID)
		return notice{text: "⌛ Вопрос уже отвечен"}, nil
	}
	if err != nil {
		return notice{}, err
	}

	n := notice{text: "✅ Правильно!"}
	if !out.Correct {
		n = notice{text: "❌ Неправильно!\nПравильный ответ: " + truncate(out.CorrectAnswer, buttonTextLen), alert: true}
	}

	if out.Finished {
		if err := b.finishQuiz(r, cq.Message.MessageID); err != nil {
			return notice{}, err
		}
		return n, nil
	}
	b.edit(r, cq.Message.MessageID, formatQuestion(out.Next), kbPtr(answerKeyboard(r.userID, out.Next)))
	return n, nil
}

// redrawCurrent возвращает на экран актуальный вопрос, если сообщение
// относится к идущему тесту
func (b *Bot) redrawCurrent(r *request, messageID int, materialID uint) {
	active, ok := b.deps.Engine.ActiveMaterial(r.userID)
	if !ok || active != materialID {
		return
	}
	view, err := b.deps.Engine.Current(r.userID)
	if err != nil {
		return
	}
	b.edit(r, messageID, formatQuestion(view), kbPtr(answerKeyboard(r.userID, view)))
}

// finishQuiz сохраняет результат и показывает итог. Если сохранить не удалось,
// сессия остаётся в движке и пользователь получает кнопку повтора.
func (b *Bot) finishQuiz(r *request, messageID int) error {
	outcome, err := b.deps.Engine.Finish(r.ctx, r.userID)
	if err != nil {
		if expected(err) {
			return err
		}
		b.logError(r, err)
		b.edit(r, messageID, "⚠️ Не удалось сохранить результат теста. Попробуйте ещё раз.", kbPtr(finishRetryKeyboard(r.userID)))
		return nil
	}

	b.deps.Users.Touch(r.ctx, r.userID)
	r.log.Info("[Bot] Тест завершён",
		"material_id", outcome.MaterialID, "correct", outcome.Correct, "total", outcome.Total, "passed", outcome.Passed)
	b.edit(r, messageID, formatOutcome(outcome), kbPtr(resultKeyboard(outcome.MaterialID)))
	return nil
}

func (b *Bot) onTestFinish(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	uid, err := p.Int64(0)
	if err != nil {
		return notice{}, err
	}
	if err := checkActor(uid, r.userID); err != nil {
		return notice{}, err
	}

	err = b.finishQuiz(r, cq.Message.MessageID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return notice{text: "Результат уже сохранён"}, nil
	}
	return notice{}, err
}

func (b *Bot) onTestCancel(r *request, cq *tgbotapi.CallbackQuery, p Payload) (notice, error) {
	cp, err := DecodeCancel(p)
	if err != nil {
		return notice{}, err
	}
	if err := checkActor(cp.UserID, r.userID); err != nil {
		return notice{}, err
	}

	if !b.deps.Engine.Cancel(r.userID, cp.MaterialID) {
		return notice{text: "Этот тест уже завершён"}, nil
	}
	r.log.Info("[Bot] Тест отменён", "material_id", cp.MaterialID)
	b.edit(r, cq.Message.MessageID, "❌ Тест отменён. Результат не сохранён.", kbPtr(materialInfoKeyboard(cp.MaterialID)))
	return notice{text: "Тест отменён"}, nil
}
