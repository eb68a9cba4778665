// Package jobs holds the periodic background work: skipping stages that
// elapsed without progress and reminding users to log today.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
	"github.com/digkill/QuitCoachAPI/internal/service"
)

// StageSkipSweeper marks open stages whose last civil day has passed with no
// progress recorded inside their range as skipped.
type StageSkipSweeper struct {
	cal      *clock.Calendar
	stages   *repository.StageRepository
	plans    *repository.PlanRepository
	progress *repository.ProgressRepository
	notifier *service.NotificationService
	log      *slog.Logger
}

func NewStageSkipSweeper(cal *clock.Calendar, stages *repository.StageRepository, plans *repository.PlanRepository, progress *repository.ProgressRepository, notifier *service.NotificationService, log *slog.Logger) *StageSkipSweeper {
	return &StageSkipSweeper{cal: cal, stages: stages, plans: plans, progress: progress, notifier: notifier, log: log}
}

// Sweep runs one pass and returns how many stages it skipped. Re-running it
// changes nothing for stages it already handled.
func (s *StageSkipSweeper) Sweep(ctx context.Context) (int, error) {
	today := s.cal.Today()
	candidates, err := s.stages.ListOpenEndedBefore(ctx, today)
	if err != nil {
		return 0, err
	}
	skipped := 0
	for _, st := range candidates {
		if err := ctx.Err(); err != nil {
			return skipped, err
		}
		recorded, err := s.progress.ExistsInRange(ctx, st.ID, st.StartDate, st.EndDate)
		if err != nil {
			return skipped, err
		}
		if recorded {
			continue
		}
		changed, err := s.stages.MarkSkippedIfOpen(ctx, st.ID)
		if err != nil {
			return skipped, err
		}
		if !changed {
			continue
		}
		skipped++
		s.log.Info("stage skipped", "stage_id", st.ID, "plan_id", st.PlanID, "end_date", clock.FormatDate(st.EndDate))
		s.notifyOwner(ctx, st)
	}
	return skipped, nil
}

func (s *StageSkipSweeper) notifyOwner(ctx context.Context, st models.QuitStage) {
	if s.notifier == nil {
		return
	}
	plan, err := s.plans.GetByID(ctx, st.PlanID)
	if err != nil || plan == nil || plan.Status != models.PlanOngoing {
		return
	}
	s.notifier.Emit(ctx, plan.UserID, models.NotifyStage, fmt.Sprintf("Stage %q ended without any progress and was skipped.", st.Name))
}

// Run adapts Sweep to the Runner task signature.
func (s *StageSkipSweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}
