package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
)

type MembershipService struct {
	cal         *clock.Calendar
	memberships *repository.MembershipRepository
	users       *repository.UserRepository
}

type GrantMembershipInput struct {
	UserID        int64
	Tier          string
	IsPro         bool
	CanCreatePlan bool
	Days          int
}

func NewMembershipService(cal *clock.Calendar, memberships *repository.MembershipRepository, users *repository.UserRepository) *MembershipService {
	return &MembershipService{cal: cal, memberships: memberships, users: users}
}

// Active returns the caller's current membership, or nil when none is active.
func (s *MembershipService) Active(ctx context.Context, userID int64) (*models.Membership, error) {
	return s.memberships.ActiveForUser(ctx, userID, s.cal.Now())
}

func (s *MembershipService) IsPro(ctx context.Context, userID int64) (bool, error) {
	m, err := s.Active(ctx, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.IsPro, nil
}

func (s *MembershipService) CanCreatePlan(ctx context.Context, userID int64) (bool, error) {
	m, err := s.Active(ctx, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.CanCreatePlan, nil
}

// Grant records a membership that payment processing settled elsewhere.
func (s *MembershipService) Grant(ctx context.Context, input GrantMembershipInput) (*models.Membership, error) {
	input.Tier = strings.TrimSpace(input.Tier)
	if input.Tier == "" {
		return nil, invalid("tier", "is required")
	}
	if input.Days <= 0 {
		return nil, invalid("days", "must be positive")
	}
	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, input.UserID)
	}
	m := &models.Membership{
		UserID:        input.UserID,
		Tier:          input.Tier,
		IsPro:         input.IsPro,
		CanCreatePlan: input.CanCreatePlan,
		ExpiresAt:     s.cal.Now().Add(time.Duration(input.Days) * 24 * time.Hour),
	}
	if err := s.memberships.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
