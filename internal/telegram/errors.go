package telegram

import (
	"errors"

	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

// errNotRegistered — пользователь ещё не прошёл /start
var errNotRegistered = errors.New("user is not registered")

// userMessage превращает ошибку в текст для пользователя.
// Все обработчики сообщают об ошибках только через неё.
func userMessage(err error) string {
	switch {
	case errors.Is(err, errNotRegistered):
		return "❌ Вы не зарегистрированы. Используйте /start"
	case errors.Is(err, apperrors.ErrForbidden):
		return "⛔ Это действие вам недоступно"
	case errors.Is(err, apperrors.ErrStaleSubmission):
		return "⌛ Вопрос уже отвечен или тест сменился"
	case errors.Is(err, apperrors.ErrNotFound):
		return "🔍 Не найдено. Возможно, запись уже удалена"
	case errors.Is(err, apperrors.ErrValidation):
		return "❌ Некорректный ввод"
	case errors.Is(err, apperrors.ErrConflict):
		return "⚠️ Сейчас это действие недоступно"
	case errors.Is(err, apperrors.ErrTooManyRequests):
		return "⏳ Слишком много запросов. Попробуйте через минуту"
	case errors.Is(err, apperrors.ErrUpstream):
		return "🚨 ИИ-наставник временно недоступен. Попробуйте позже"
	}
	return "⚠️ Произошла ошибка. Попробуйте позже"
}

// expected сообщает, является ли ошибка следствием действий пользователя,
// а не сбоем, который нужно логировать как ошибку
func expected(err error) bool {
	for _, target := range []error{
		errNotRegistered,
		apperrors.ErrForbidden,
		apperrors.ErrStaleSubmission,
		apperrors.ErrNotFound,
		apperrors.ErrValidation,
		apperrors.ErrConflict,
		apperrors.ErrTooManyRequests,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
