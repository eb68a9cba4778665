package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
)

// Sender pushes a message to a linked chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// NotificationService is the fire-and-forget notification sink. Messages are
// always stored; push delivery is best effort.
type NotificationService struct {
	repo  *repository.NotificationRepository
	users *repository.UserRepository
	log   *slog.Logger

	mu     sync.RWMutex
	sender Sender
}

func NewNotificationService(repo *repository.NotificationRepository, users *repository.UserRepository, log *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, users: users, log: log}
}

// SetSender enables push delivery. The bot is built after the services, so
// it registers itself here.
func (s *NotificationService) SetSender(sender Sender) {
	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()
}

func (s *NotificationService) Notify(ctx context.Context, userID int64, kind models.NotificationKind, message string) (*models.Notification, error) {
	n := &models.Notification{UserID: userID, Kind: kind, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	s.push(ctx, userID, message)
	return n, nil
}

// Emit is Notify for callers that must not fail because of a notification.
func (s *NotificationService) Emit(ctx context.Context, userID int64, kind models.NotificationKind, message string) {
	if _, err := s.Notify(ctx, userID, kind, message); err != nil {
		s.log.Error("store notification", "err", err, "user_id", userID, "kind", kind)
	}
}

func (s *NotificationService) push(ctx context.Context, userID int64, message string) {
	s.mu.RLock()
	sender := s.sender
	s.mu.RUnlock()
	if sender == nil {
		return
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.log.Warn("load user for push", "err", err, "user_id", userID)
		return
	}
	if user == nil || user.TelegramID == nil {
		return
	}
	if err := sender.Send(ctx, *user.TelegramID, message); err != nil {
		s.log.Warn("push notification", "err", err, "user_id", userID)
	}
}

func (s *NotificationService) List(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListForUser(ctx, userID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.MarkRead(ctx, userID, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: notification %d", ErrNotFound, id)
	}
	return nil
}
