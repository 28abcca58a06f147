package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда материал, вопрос, пользователь или сессия теста не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrStaleSubmission используется, когда ответ пришёл не на текущий вопрос
	// (повторное нажатие, устаревшая клавиатура или тест уже сменился).
	ErrStaleSubmission = errors.New("stale submission")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream используется для сбоев внешних сервисов (LLM, Telegram).
	ErrUpstream = errors.New("upstream failure")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия
	// или callback-данные принадлежат другому пользователю.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict используется для конфликтов состояния (например, завершение теста,
	// на который ещё не даны все ответы, или нарушение уникальности).
	ErrConflict = errors.New("resource state conflict")

	// ErrTooManyRequests используется при превышении лимита запросов.
	ErrTooManyRequests = errors.New("too many requests")
)
