package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/domain/repository"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

// Ограничения анкеты регистрации
const (
	minNameLength  = 2
	minPlaceLength = 2
	minAge         = 1
	maxAge         = 150
	maxFieldLength = 100
)

// Registration — данные анкеты, собранные мастером регистрации
type Registration struct {
	UserID   int64
	Username string
	Name     string
	Age      int
	Country  string
	City     string
}

// UserService предоставляет методы для работы с пользователями
type UserService struct {
	userRepo repository.UserRepository
	rating   RatingUpdater
	log      *logger.Logger
	now      func() time.Time
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository, rating RatingUpdater, log *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		rating:   rating,
		log:      log,
		now:      time.Now,
	}
}

// IsRegistered проверяет, прошёл ли пользователь регистрацию
func (s *UserService) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	return s.userRepo.Exists(ctx, userID)
}

// Get возвращает пользователя
func (s *UserService) Get(ctx context.Context, userID int64) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// Register создает пользователя и его пустую запись рейтинга
func (s *UserService) Register(ctx context.Context, reg Registration) (*entity.User, error) {
	if _, err := ValidateName(reg.Name); err != nil {
		return nil, err
	}
	if reg.Age < minAge || reg.Age > maxAge {
		return nil, fmt.Errorf("%w: age must be within [%d, %d]", apperrors.ErrValidation, minAge, maxAge)
	}
	if _, err := ValidatePlace(reg.Country); err != nil {
		return nil, err
	}
	if _, err := ValidatePlace(reg.City); err != nil {
		return nil, err
	}

	now := s.now()
	user := &entity.User{
		ID:             reg.UserID,
		Username:       reg.Username,
		Name:           strings.TrimSpace(reg.Name),
		Age:            reg.Age,
		Country:        strings.TrimSpace(reg.Country),
		City:           strings.TrimSpace(reg.City),
		RegisteredAt:   now,
		LastActivityAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("[UserService] Пользователь зарегистрирован", "user_id", user.ID)

	if err := s.rating.RecomputeUser(ctx, user.ID); err != nil {
		s.log.Error("[UserService] Ошибка создания записи рейтинга", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// Touch обновляет время последней активности. Незарегистрированные пользователи игнорируются.
func (s *UserService) Touch(ctx context.Context, userID int64) {
	if err := s.userRepo.TouchActivity(ctx, userID, s.now()); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.log.Warn("[UserService] Не удалось обновить активность", "user_id", userID, "error", err)
	}
}

// ValidateName проверяет имя (не короче 2 символов)
func ValidateName(raw string) (string, error) {
	return validateText(raw, minNameLength, "name")
}

// ValidatePlace проверяет страну или город (не короче 2 символов)
func ValidatePlace(raw string) (string, error) {
	return validateText(raw, minPlaceLength, "place")
}

// ParseAge разбирает возраст в диапазоне 1..150
func ParseAge(raw string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: age must be a number", apperrors.ErrValidation)
	}
	if age < minAge || age > maxAge {
		return 0, fmt.Errorf("%w: age must be within [%d, %d]", apperrors.ErrValidation, minAge, maxAge)
	}
	return age, nil
}

func validateText(raw string, minLen int, field string) (string, error) {
	value := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(value)
	if length < minLen {
		return "", fmt.Errorf("%w: %s must be at least %d characters", apperrors.ErrValidation, field, minLen)
	}
	if length > maxFieldLength {
		return "", fmt.Errorf("%w: %s must be at most %d characters", apperrors.ErrValidation, field, maxFieldLength)
	}
	return value, nil
}
