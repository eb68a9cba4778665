package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/config"
	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
)

// RecorderSettings are the tunables of the daily progress rules.
type RecorderSettings struct {
	FallbackPackPrice float64
	CigarettesPerPack int
	StrikeLimit       int
}

func SettingsFromConfig(cfg config.Config) RecorderSettings {
	return RecorderSettings{
		FallbackPackPrice: cfg.FallbackPackPrice,
		CigarettesPerPack: cfg.CigarettesPerPack,
		StrikeLimit:       cfg.StrikeLimit,
	}
}

// ProgressService records daily progress and drives stage and plan status.
type ProgressService struct {
	settings    RecorderSettings
	cal         *clock.Calendar
	plans       *repository.PlanRepository
	stages      *repository.StageRepository
	progress    *repository.ProgressRepository
	statuses    *repository.SmokingStatusRepository
	memberships *MembershipService
	badges      *BadgeService
	archiver    *ReportArchiver
	notifier    *NotificationService
	log         *slog.Logger
}

type ProgressServiceDeps struct {
	Settings    RecorderSettings
	Calendar    *clock.Calendar
	Plans       *repository.PlanRepository
	Stages      *repository.StageRepository
	Progress    *repository.ProgressRepository
	Statuses    *repository.SmokingStatusRepository
	Memberships *MembershipService
	Badges      *BadgeService
	Archiver    *ReportArchiver
	Notifier    *NotificationService
	Log         *slog.Logger
}

type RecordInput struct {
	UserID         int64
	PlanID         int64
	StageID        int64
	CigaretteCount int
	Note           string
}

// RecordResult is returned for every persisted record. Warning and Cancelled
// are domain outcomes, not errors.
type RecordResult struct {
	Record         *models.ProgressRecord `json:"record"`
	Stage          *models.QuitStage      `json:"stage"`
	Plan           *models.QuitPlan       `json:"plan"`
	Warning        bool                   `json:"warning"`
	Cancelled      bool                   `json:"cancelled"`
	OverLimitCount int                    `json:"over_limit_count,omitempty"`
	Message        string                 `json:"message,omitempty"`
	NewBadges      []models.UserBadge     `json:"new_badges"`
}

func NewProgressService(deps ProgressServiceDeps) *ProgressService {
	if deps.Settings.CigarettesPerPack <= 0 {
		deps.Settings.CigarettesPerPack = 20
	}
	if deps.Settings.StrikeLimit <= 0 {
		deps.Settings.StrikeLimit = 3
	}
	return &ProgressService{
		settings:    deps.Settings,
		cal:         deps.Calendar,
		plans:       deps.Plans,
		stages:      deps.Stages,
		progress:    deps.Progress,
		statuses:    deps.Statuses,
		memberships: deps.Memberships,
		badges:      deps.Badges,
		archiver:    deps.Archiver,
		notifier:    deps.Notifier,
		log:         deps.Log,
	}
}

// Record stores today's entry for a stage and advances the state machine:
// over-limit strikes, activation, completion, plan completion, then badges.
// A second entry for the same civil day is ErrConflict with no side effects.
func (s *ProgressService) Record(ctx context.Context, input RecordInput) (*RecordResult, error) {
	if input.CigaretteCount < 0 {
		return nil, invalid("cigarette_count", "must not be negative")
	}
	plan, err := s.plans.GetByID(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil || plan.UserID != input.UserID {
		return nil, fmt.Errorf("%w: plan %d", ErrNotFound, input.PlanID)
	}
	if plan.Status != models.PlanOngoing {
		return nil, fmt.Errorf("%w: plan is %s", ErrConflict, plan.Status)
	}
	stage, err := s.stages.GetByID(ctx, input.StageID)
	if err != nil {
		return nil, err
	}
	if stage == nil || stage.PlanID != plan.ID {
		return nil, fmt.Errorf("%w: stage %d", ErrNotFound, input.StageID)
	}

	today := s.cal.Today()
	if today.Before(stage.StartDate) || today.After(stage.EndDate) {
		return nil, invalid("stage_id", fmt.Sprintf("stage runs %s to %s, today is %s",
			clock.FormatDate(stage.StartDate), clock.FormatDate(stage.EndDate), clock.FormatDate(today)))
	}

	price, err := s.packPrice(ctx, plan)
	if err != nil {
		return nil, err
	}
	record := &models.ProgressRecord{
		UserID:         input.UserID,
		PlanID:         plan.ID,
		StageID:        stage.ID,
		RecordDay:      today,
		RecordedAt:     s.cal.Now(),
		CigaretteCount: input.CigaretteCount,
		Note:           strings.TrimSpace(input.Note),
		MoneySpent:     float64(input.CigaretteCount) * price / float64(s.settings.CigarettesPerPack),
	}
	if err := s.progress.Insert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: progress already recorded for %s", ErrConflict, clock.FormatDate(today))
		}
		return nil, err
	}

	result := &RecordResult{Record: record, Stage: stage, Plan: plan, NewBadges: []models.UserBadge{}}
	if stage.MaxDailyCigarette != nil && input.CigaretteCount > *stage.MaxDailyCigarette {
		return s.overLimit(ctx, result)
	}

	if stage.Status == models.StageNotStarted {
		if err := s.stages.UpdateStatus(ctx, stage.ID, models.StageInProgress); err != nil {
			return nil, err
		}
		stage.Status = models.StageInProgress
	}

	if err := s.checkCompletion(ctx, plan, stage); err != nil {
		return nil, err
	}

	isPro, err := s.memberships.IsPro(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	granted, err := s.badges.Evaluate(ctx, input.UserID, plan.ID, isPro)
	if err != nil {
		return nil, err
	}
	if granted != nil {
		result.NewBadges = granted
	}
	return result, nil
}

func (s *ProgressService) overLimit(ctx context.Context, result *RecordResult) (*RecordResult, error) {
	stage, plan := result.Stage, result.Plan
	ceiling := *stage.MaxDailyCigarette
	strikes, err := s.progress.CountOverLimit(ctx, plan.UserID, plan.ID, stage.ID, ceiling)
	if err != nil {
		return nil, err
	}
	result.OverLimitCount = strikes

	if strikes < s.settings.StrikeLimit {
		result.Warning = true
		result.Message = fmt.Sprintf("You went over today's limit of %d cigarettes (%d of %d).", ceiling, strikes, s.settings.StrikeLimit)
		s.log.Info("progress over limit", "user_id", plan.UserID, "plan_id", plan.ID, "stage_id", stage.ID, "strikes", strikes)
		return result, nil
	}

	if err := s.stages.UpdateStatus(ctx, stage.ID, models.StageFailed); err != nil {
		return nil, err
	}
	stage.Status = models.StageFailed
	if err := s.plans.UpdateStatus(ctx, plan.ID, models.PlanCancelled); err != nil {
		return nil, err
	}
	plan.Status = models.PlanCancelled
	result.Cancelled = true
	result.Message = fmt.Sprintf("You went over the limit of %d cigarettes on %d days. This plan has been cancelled; you can start a new one.", ceiling, strikes)

	s.log.Info("plan cancelled", "user_id", plan.UserID, "plan_id", plan.ID, "stage_id", stage.ID, "strikes", strikes)
	s.notifier.Emit(ctx, plan.UserID, models.NotifyWarning, result.Message)
	s.archiver.archiveQuietly(ctx, plan)
	return result, nil
}

// checkCompletion completes the stage once it has a record for every day of
// its span, then completes the plan when no stage is left unfinished.
func (s *ProgressService) checkCompletion(ctx context.Context, plan *models.QuitPlan, stage *models.QuitStage) error {
	span := clock.SpanDays(stage.StartDate, stage.EndDate)
	recorded, err := s.progress.CountForStage(ctx, plan.UserID, plan.ID, stage.ID)
	if err != nil {
		return err
	}
	if recorded >= span && stage.Status != models.StageCompleted {
		if err := s.stages.UpdateStatus(ctx, stage.ID, models.StageCompleted); err != nil {
			return err
		}
		stage.Status = models.StageCompleted
		s.notifier.Emit(ctx, plan.UserID, models.NotifyStage, fmt.Sprintf("Stage %q completed. Well done!", stage.Name))
	}

	stages, err := s.stages.ListByPlan(ctx, plan.ID)
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		return nil
	}
	for _, st := range stages {
		if st.Status != models.StageCompleted {
			return nil
		}
	}
	if err := s.plans.UpdateStatus(ctx, plan.ID, models.PlanCompleted); err != nil {
		return err
	}
	plan.Status = models.PlanCompleted
	s.log.Info("plan completed", "user_id", plan.UserID, "plan_id", plan.ID)
	s.notifier.Emit(ctx, plan.UserID, models.NotifyPlan, "Congratulations, you completed your quit plan!")
	s.archiver.archiveQuietly(ctx, plan)
	return nil
}

// packPrice prefers the baseline attached to the plan, then any newer
// pre-plan baseline, then the configured fallback.
func (s *ProgressService) packPrice(ctx context.Context, plan *models.QuitPlan) (float64, error) {
	status, err := s.statuses.LatestForPlan(ctx, plan.ID)
	if err != nil {
		return 0, err
	}
	if status == nil {
		if status, err = s.statuses.LatestPrePlan(ctx, plan.UserID); err != nil {
			return 0, err
		}
	}
	if status == nil {
		return s.settings.FallbackPackPrice, nil
	}
	return status.PricePerPack, nil
}

// List returns the user's records for one stage in day order.
func (s *ProgressService) List(ctx context.Context, userID, planID, stageID int64) ([]models.ProgressRecord, error) {
	stage, err := s.stages.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil || stage.PlanID != planID {
		return nil, fmt.Errorf("%w: stage %d", ErrNotFound, stageID)
	}
	return s.progress.ListForStage(ctx, userID, planID, stageID)
}
