package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
)

// BaselineService stores what a user reports before a plan exists: the
// smoking status snapshot and the goal draft.
type BaselineService struct {
	statuses *repository.SmokingStatusRepository
	plans    *repository.PlanRepository
}

type SmokingStatusInput struct {
	CigaretteCount   int
	PricePerPack     float64
	SuctionFrequency models.Frequency
}

func NewBaselineService(statuses *repository.SmokingStatusRepository, plans *repository.PlanRepository) *BaselineService {
	return &BaselineService{statuses: statuses, plans: plans}
}

func (s *BaselineService) RecordStatus(ctx context.Context, userID int64, input SmokingStatusInput) (*models.SmokingStatus, error) {
	if input.CigaretteCount < 0 {
		return nil, invalid("cigarette_count", "must not be negative")
	}
	if input.PricePerPack < 0 {
		return nil, invalid("price_per_pack", "must not be negative")
	}
	input.SuctionFrequency = models.Frequency(strings.ToLower(string(input.SuctionFrequency)))
	if !input.SuctionFrequency.Valid() {
		return nil, invalid("suction_frequency", "must be light, medium or heavy")
	}
	status := &models.SmokingStatus{
		UserID:           userID,
		CigaretteCount:   input.CigaretteCount,
		PricePerPack:     input.PricePerPack,
		SuctionFrequency: input.SuctionFrequency,
	}
	if err := s.statuses.Create(ctx, status); err != nil {
		return nil, err
	}
	return status, nil
}

// LatestStatus returns the newest baseline that is not yet attached to a plan.
func (s *BaselineService) LatestStatus(ctx context.Context, userID int64) (*models.SmokingStatus, error) {
	status, err := s.statuses.LatestPrePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("%w: no smoking status recorded", ErrNotFound)
	}
	return status, nil
}

func (s *BaselineService) SaveGoalDraft(ctx context.Context, userID int64, goal, reasons string) (*models.GoalDraft, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, invalid("goal", "is required")
	}
	draft := &models.GoalDraft{UserID: userID, Goal: goal, Reasons: strings.TrimSpace(reasons)}
	if err := s.plans.SaveGoalDraft(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}
