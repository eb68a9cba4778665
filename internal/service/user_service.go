package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID int64
	Role   models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Ensure upserts the user described by verified token claims.
func (s *UserService) Ensure(ctx context.Context, id int64, email string, role models.Role) (*models.User, bool, error) {
	if id <= 0 {
		return nil, false, invalid("sub", "must be a positive user id")
	}
	switch role {
	case models.RoleMember, models.RoleCoach, models.RoleAdmin:
	case "":
		role = models.RoleMember
	default:
		return nil, false, invalid("role", fmt.Sprintf("unknown role %q", role))
	}
	user, created, err := s.users.Ensure(ctx, id, strings.TrimSpace(email), role)
	if err != nil {
		return nil, false, fmt.Errorf("ensure user: %w", err)
	}
	return user, created, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return user, nil
}

func (s *UserService) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.users.FindByTelegramID(ctx, telegramID)
}

// LinkTelegram attaches a Telegram chat to the user for push delivery. A chat
// already linked to another account is a conflict.
func (s *UserService) LinkTelegram(ctx context.Context, userID, telegramID int64) (*models.User, error) {
	if telegramID == 0 {
		return nil, invalid("telegram_id", "is required")
	}
	if err := s.users.SetTelegramID(ctx, userID, &telegramID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: telegram chat already linked", ErrConflict)
		}
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *UserService) SetDisplayName(ctx context.Context, userID int64, name string) error {
	return s.users.SetDisplayName(ctx, userID, strings.TrimSpace(name))
}
