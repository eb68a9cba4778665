package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
)

type BadgeService struct {
	badges   *repository.BadgeRepository
	progress *repository.ProgressRepository
	notifier *NotificationService
	log      *slog.Logger
}

type CreateBadgeInput struct {
	Name        string
	Description string
	Condition   models.BadgeCondition
	ProOnly     bool
}

func NewBadgeService(badges *repository.BadgeRepository, progress *repository.ProgressRepository, notifier *NotificationService, log *slog.Logger) *BadgeService {
	return &BadgeService{badges: badges, progress: progress, notifier: notifier, log: log}
}

func (s *BadgeService) List(ctx context.Context) ([]models.Badge, error) {
	return s.badges.List(ctx)
}

func (s *BadgeService) ListForUser(ctx context.Context, userID int64) ([]models.UserBadge, error) {
	return s.badges.ListForUser(ctx, userID)
}

func (s *BadgeService) Create(ctx context.Context, input CreateBadgeInput) (*models.Badge, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, invalid("name", "is required")
	}
	if !input.Condition.Type.Valid() {
		return nil, invalid("condition.type", "must be no_smoke_days or money_saved")
	}
	if input.Condition.Value < 0 {
		return nil, invalid("condition.value", "must not be negative")
	}
	badge := &models.Badge{
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
		Condition:   input.Condition,
		ProOnly:     input.ProOnly,
	}
	if err := s.badges.Create(ctx, badge); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: badge %q already exists", ErrConflict, input.Name)
		}
		return nil, err
	}
	return badge, nil
}

// Evaluate grants every badge the user now qualifies for on planID and
// returns only the grants made by this call. Pro-only badges are skipped for
// non-pro users. The (user, badge) unique constraint makes repeated or
// concurrent evaluation grant each badge at most once.
func (s *BadgeService) Evaluate(ctx context.Context, userID, planID int64, isPro bool) ([]models.UserBadge, error) {
	badges, err := s.badges.List(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.progress.TotalsForPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	owned, err := s.badges.GrantedBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var granted []models.UserBadge
	for i := range badges {
		badge := badges[i]
		if badge.ProOnly && !isPro {
			continue
		}
		if owned[badge.ID] || !qualifies(badge.Condition, totals) {
			continue
		}
		grant := models.UserBadge{
			UserID:    userID,
			BadgeID:   badge.ID,
			PlanID:    &planID,
			GrantedAt: time.Now().UTC(),
			Badge:     &badge,
		}
		if err := s.badges.Grant(ctx, &grant); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return granted, err
		}
		granted = append(granted, grant)
		s.log.Info("badge granted", "user_id", userID, "plan_id", planID, "badge_id", badge.ID)
		s.notifier.Emit(ctx, userID, models.NotifyBadge, fmt.Sprintf("You earned the badge %q!", badge.Name))
	}
	return granted, nil
}

func qualifies(cond models.BadgeCondition, totals repository.PlanTotals) bool {
	switch cond.Type {
	case models.ConditionNoSmokeDays:
		return float64(totals.NoSmokeDays) >= cond.Value
	case models.ConditionMoneySaved:
		return totals.TotalMoneySpent >= cond.Value
	}
	return false
}

// DefaultBadges is the catalogue installed by the seed command.
var DefaultBadges = []CreateBadgeInput{
	{Name: "First smoke-free day", Description: "One day without a cigarette.", Condition: models.BadgeCondition{Type: models.ConditionNoSmokeDays, Value: 1, Unit: "days"}},
	{Name: "Three smoke-free days", Description: "Three days without a cigarette.", Condition: models.BadgeCondition{Type: models.ConditionNoSmokeDays, Value: 3, Unit: "days"}},
	{Name: "One smoke-free week", Description: "Seven days without a cigarette.", Condition: models.BadgeCondition{Type: models.ConditionNoSmokeDays, Value: 7, Unit: "days"}},
	{Name: "One smoke-free month", Description: "Thirty days without a cigarette.", Condition: models.BadgeCondition{Type: models.ConditionNoSmokeDays, Value: 30, Unit: "days"}, ProOnly: true},
	{Name: "First 100k tracked", Description: "Tracked 100,000 in cigarette spending.", Condition: models.BadgeCondition{Type: models.ConditionMoneySaved, Value: 100000, Unit: "VND"}},
	{Name: "Half a million tracked", Description: "Tracked 500,000 in cigarette spending.", Condition: models.BadgeCondition{Type: models.ConditionMoneySaved, Value: 500000, Unit: "VND"}, ProOnly: true},
}

// SeedDefaults installs DefaultBadges, skipping names that already exist.
func (s *BadgeService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, input := range DefaultBadges {
		if _, err := s.Create(ctx, input); err != nil {
			if errors.Is(err, ErrConflict) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
