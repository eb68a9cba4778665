package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/digkill/QuitCoachAPI/internal/database"
	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
)

type CoachService struct {
	db          *sql.DB
	coaches     *repository.CoachRepository
	plans       *repository.PlanRepository
	users       *repository.UserRepository
	memberships *MembershipService
	notifier    *NotificationService
	log         *slog.Logger
}

func NewCoachService(db *sql.DB, coaches *repository.CoachRepository, plans *repository.PlanRepository, users *repository.UserRepository, memberships *MembershipService, notifier *NotificationService, log *slog.Logger) *CoachService {
	return &CoachService{db: db, coaches: coaches, plans: plans, users: users, memberships: memberships, notifier: notifier, log: log}
}

func (s *CoachService) List(ctx context.Context) ([]models.Coach, error) {
	return s.coaches.List(ctx)
}

// Register creates or updates a coach profile. Roles come from the identity
// provider, so the user's role is left untouched.
func (s *CoachService) Register(ctx context.Context, userID int64, bio string, maxUsers int) (*models.Coach, error) {
	if maxUsers <= 0 {
		return nil, invalid("max_users", "must be positive")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err := s.coaches.Upsert(ctx, userID, strings.TrimSpace(bio), maxUsers); err != nil {
		return nil, err
	}
	return s.coaches.Get(ctx, userID)
}

// Assign attaches a coach to an ongoing plan. The coach's load is counted
// from ongoing plans inside the same transaction that writes the assignment,
// with the coach row locked so two assignments cannot both take the last slot.
func (s *CoachService) Assign(ctx context.Context, actor Actor, planID, coachID int64) (*models.QuitPlan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: plan %d", ErrNotFound, planID)
	}
	if plan.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: plan %d belongs to another user", ErrForbidden, planID)
	}
	if plan.Status != models.PlanOngoing {
		return nil, fmt.Errorf("%w: plan is %s", ErrConflict, plan.Status)
	}
	pro, err := s.memberships.IsPro(ctx, plan.UserID)
	if err != nil {
		return nil, err
	}
	if !pro {
		return nil, fmt.Errorf("%w: coach assignment requires a pro membership", ErrForbidden)
	}
	if plan.CoachID != nil && *plan.CoachID == coachID {
		return plan, nil
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		coaches := s.coaches.WithTx(tx)
		exists, err := coaches.Lock(ctx, coachID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: coach %d", ErrNotFound, coachID)
		}
		coach, err := coaches.Get(ctx, coachID)
		if err != nil {
			return err
		}
		if coach.CurrentUsers >= coach.MaxUsers {
			return fmt.Errorf("%w: coach %d has no free slots", ErrConflict, coachID)
		}
		return s.plans.WithTx(tx).SetCoach(ctx, plan.ID, &coachID)
	})
	if err != nil {
		return nil, err
	}
	plan.CoachID = &coachID

	s.log.Info("coach assigned", "plan_id", plan.ID, "coach_id", coachID)
	s.notifier.Emit(ctx, plan.UserID, models.NotifyPlan, "A coach has been assigned to your quit plan.")
	s.notifier.Emit(ctx, coachID, models.NotifyPlan, fmt.Sprintf("You have been assigned to quit plan #%d.", plan.ID))
	return plan, nil
}
