package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

func TestParseAge(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"25", 25, false},
		{" 1 ", 1, false},
		{"150", 150, false},
		{"0", 0, true},
		{"151", 0, true},
		{"двадцать", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		age, err := ParseAge(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, apperrors.ErrValidation, "вход %q", tc.in)
			continue
		}
		require.NoError(t, err, "вход %q", tc.in)
		assert.Equal(t, tc.want, age)
	}
}

func TestValidateNameAndPlace(t *testing.T) {
	name, err := ValidateName("  Ян ")
	require.NoError(t, err)
	assert.Equal(t, "Ян", name, "кириллица считается по символам, а не байтам")

	_, err = ValidateName("Я")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ValidatePlace("  ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	city, err := ValidatePlace("Тверь")
	require.NoError(t, err)
	assert.Equal(t, "Тверь", city)
}

func TestUserService_Register(t *testing.T) {
	// Arrange
	users := new(MockUserRepository)
	updater := new(MockRatingUpdater)
	svc := NewUserService(users, updater, logger.Nop())
	ctx := context.Background()

	users.On("Create", ctx, mock.MatchedBy(func(u *entity.User) bool {
		return u.ID == 42 && u.Name == "Иван" && u.City == "Казань" && !u.RegisteredAt.IsZero() &&
			u.RegisteredAt.Equal(u.LastActivityAt)
	})).Return(nil).Once()
	updater.On("RecomputeUser", ctx, int64(42)).Return(nil).Once()

	// Act
	user, err := svc.Register(ctx, Registration{
		UserID: 42, Username: "ivan", Name: " Иван ", Age: 30, Country: "Россия", City: "Казань",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Иван", user.Name)
	users.AssertExpectations(t)
	updater.AssertExpectations(t)
}

func TestUserService_RegisterRejectsInvalidAge(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewUserService(users, new(MockRatingUpdater), logger.Nop())

	_, err := svc.Register(context.Background(), Registration{UserID: 1, Name: "Иван", Age: 200, Country: "RU", City: "Омск"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_TouchIgnoresUnknownUser(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewUserService(users, new(MockRatingUpdater), logger.Nop())
	users.On("TouchActivity", mock.Anything, int64(9), mock.Anything).Return(apperrors.ErrNotFound).Once()

	svc.Touch(context.Background(), 9)
	users.AssertExpectations(t)
}
