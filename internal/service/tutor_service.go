package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/academy-bot/internal/config"
	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/domain/repository"
	"github.com/yourusername/academy-bot/internal/llm"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

const (
	maxQuestionRunes = 2000
	contextItems     = 3
	askWindow        = time.Minute
)

// ChatCompleter отправляет диалог в LLM
type ChatCompleter interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// TutorService — ИИ-наставник Specter с памятью о пользователе
type TutorService struct {
	client       ChatCompleter
	aiRepo       repository.AIRepository
	userRepo     repository.UserRepository
	progressRepo repository.ProgressRepository
	cacheRepo    repository.CacheRepository
	cfg          config.LLMConfig
	log          *logger.Logger
}

// NewTutorService создает сервис наставника
func NewTutorService(
	client ChatCompleter,
	aiRepo repository.AIRepository,
	userRepo repository.UserRepository,
	progressRepo repository.ProgressRepository,
	cacheRepo repository.CacheRepository,
	cfg config.LLMConfig,
	log *logger.Logger,
) *TutorService {
	return &TutorService{
		client:       client,
		aiRepo:       aiRepo,
		userRepo:     userRepo,
		progressRepo: progressRepo,
		cacheRepo:    cacheRepo,
		cfg:          cfg,
		log:          log,
	}
}

// Ask задаёт вопрос наставнику и сохраняет обмен репликами в историю
func (s *TutorService) Ask(ctx context.Context, userID int64, alias, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", apperrors.ErrValidation)
	}
	if len([]rune(question)) > maxQuestionRunes {
		return "", fmt.Errorf("%w: question is longer than %d characters", apperrors.ErrValidation, maxQuestionRunes)
	}
	if err := s.checkRate(ctx, userID); err != nil {
		return "", err
	}

	messages, err := s.buildMessages(ctx, userID, alias, question)
	if err != nil {
		return "", err
	}

	askCtx, cancel := withOptionalTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	reply, err := s.client.Complete(askCtx, messages)
	if err != nil {
		return "", err
	}

	if err := s.aiRepo.LogMessage(ctx, &entity.AIMessage{UserID: userID, Role: entity.AIRoleUser, Content: question}); err != nil {
		s.log.Warn("[TutorService] Не удалось сохранить вопрос", "user_id", userID, "error", err)
	}
	if err := s.aiRepo.LogMessage(ctx, &entity.AIMessage{UserID: userID, Role: entity.AIRoleAssistant, Content: reply}); err != nil {
		s.log.Warn("[TutorService] Не удалось сохранить ответ", "user_id", userID, "error", err)
	}
	s.refreshSummary(ctx, userID)

	return reply, nil
}

// checkRate ограничивает число вопросов в минуту; при сбое кеша запрос пропускается
func (s *TutorService) checkRate(ctx context.Context, userID int64) error {
	if s.cfg.AsksPerMinute <= 0 {
		return nil
	}
	key := fmt.Sprintf("rl:ask:%d", userID)
	count, err := s.cacheRepo.IncrementWindow(ctx, key, askWindow)
	if err != nil {
		s.log.Warn("[TutorService] Ошибка rate limiter, запрос пропущен", "key", key, "error", err)
		return nil
	}
	if count > int64(s.cfg.AsksPerMinute) {
		return fmt.Errorf("%w: %d asks per minute", apperrors.ErrTooManyRequests, s.cfg.AsksPerMinute)
	}
	return nil
}

func (s *TutorService) buildMessages(ctx context.Context, userID int64, alias, question string) ([]llm.Message, error) {
	contextText, err := s.userContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.aiRepo.History(ctx, userID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages,
		llm.Message{Role: entity.AIRoleSystem, Content: personaPrompt(alias)},
		llm.Message{Role: entity.AIRoleSystem, Content: contextText},
	)
	for _, h := range history {
		if h.Content == "" {
			continue
		}
		messages = append(messages, llm.Message{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, llm.Message{Role: entity.AIRoleUser, Content: question})
	return messages, nil
}

func personaPrompt(alias string) string {
	return "Ты Specter, ИИ-наставник академии. Отвечай кратко, мрачно и по делу. " +
		"Темы: компьютеры, Kali Linux, информационная безопасность, анонимность. " +
		"На другие темы не отвлекайся. Поддерживай ученика, но будь требовательным. " +
		"Ученик: " + alias + "."
}

// userContext собирает снимок профиля и прогресса для системного сообщения
func (s *TutorService) userContext(ctx context.Context, userID int64) (string, error) {
	var lines []string

	user, err := s.userRepo.GetByID(ctx, userID)
	switch {
	case err == nil:
		lines = append(lines, fmt.Sprintf("Профиль: %s / %d, %d лет, %s, %s",
			user.Name, user.ID, user.Age, user.Country, user.City))
	case !errors.Is(err, apperrors.ErrNotFound):
		return "", fmt.Errorf("load user: %w", err)
	}

	studied, err := s.progressRepo.CountStudied(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("count studied: %w", err)
	}
	lines = append(lines, fmt.Sprintf("Изучено материалов: %d", studied))

	recentStudied, err := s.progressRepo.RecentStudied(ctx, userID, contextItems)
	if err != nil {
		return "", fmt.Errorf("recent studied: %w", err)
	}
	if len(recentStudied) > 0 {
		titles := make([]string, len(recentStudied))
		for i, m := range recentStudied {
			titles[i] = fmt.Sprintf("%s (%s)", m.Title, m.Level.Title())
		}
		lines = append(lines, "Недавно изучал: "+strings.Join(titles, "; "))
	}

	recentResults, err := s.progressRepo.RecentResults(ctx, userID, contextItems)
	if err != nil {
		return "", fmt.Errorf("recent results: %w", err)
	}
	if len(recentResults) > 0 {
		tests := make([]string, len(recentResults))
		for i, r := range recentResults {
			title := r.Title
			if title == "" {
				title = "Материал"
			}
			tests[i] = fmt.Sprintf("%s: %d/%d (%.1f%%)", title, r.CorrectCount, r.TotalCount, r.Percentage)
		}
		lines = append(lines, "Последние тесты: "+strings.Join(tests, "; "))
	}

	summary, err := s.aiRepo.GetSummary(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load summary: %w", err)
	}
	if summary != "" {
		lines = append(lines, "Краткое содержание прошлых бесед: "+summary)
	}

	return "Контекст ученика:\n" + strings.Join(lines, "\n"), nil
}

// refreshSummary пересчитывает краткое содержание, когда в окне накопилось достаточно реплик.
// Ошибки только логируются.
func (s *TutorService) refreshSummary(ctx context.Context, userID int64) {
	history, err := s.aiRepo.History(ctx, userID, s.cfg.SummaryWindow)
	if err != nil {
		s.log.Warn("[TutorService] Не удалось загрузить историю для summary", "user_id", userID, "error", err)
		return
	}
	if len(history) < s.cfg.SummaryThreshold {
		return
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{
		Role: entity.AIRoleSystem,
		Content: "Сделай краткое содержание диалога в 3-5 тезисах. " +
			"Фокус: интересы, цели и проблемы ученика, данные о прогрессе. " +
			"Формат: маркированные строки без лишнего текста.",
	})
	for _, h := range history {
		messages = append(messages, llm.Message{Role: h.Role, Content: h.Content})
	}

	sumCtx, cancel := withOptionalTimeout(ctx, s.cfg.SummaryTimeout)
	defer cancel()
	summary, err := s.client.Complete(sumCtx, messages)
	if err != nil {
		s.log.Warn("[TutorService] Не удалось обновить summary", "user_id", userID, "error", err)
		return
	}
	if err := s.aiRepo.UpsertSummary(ctx, userID, summary); err != nil {
		s.log.Warn("[TutorService] Не удалось сохранить summary", "user_id", userID, "error", err)
	}
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
