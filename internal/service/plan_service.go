package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/database"
	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
	"github.com/digkill/QuitCoachAPI/internal/stageplan"
)

type PlanService struct {
	db          *sql.DB
	cal         *clock.Calendar
	plans       *repository.PlanRepository
	stages      *repository.StageRepository
	statuses    *repository.SmokingStatusRepository
	progress    *repository.ProgressRepository
	memberships *MembershipService
	notifier    *NotificationService
	log         *slog.Logger
}

type PlanServiceDeps struct {
	DB          *sql.DB
	Calendar    *clock.Calendar
	Plans       *repository.PlanRepository
	Stages      *repository.StageRepository
	Statuses    *repository.SmokingStatusRepository
	Progress    *repository.ProgressRepository
	Memberships *MembershipService
	Notifier    *NotificationService
	Log         *slog.Logger
}

// PlanDetail is a plan together with its ordered stages.
type PlanDetail struct {
	Plan   *models.QuitPlan   `json:"plan"`
	Stages []models.QuitStage `json:"stages"`
}

// Preview is the stage layout a plan would get if created now.
type Preview struct {
	Baseline   *models.SmokingStatus    `json:"baseline"`
	Suggestion stageplan.Suggestion     `json:"suggestion"`
	Stages     []stageplan.PlannedStage `json:"stages"`
}

// StageView annotates a stage with progress computed against today.
type StageView struct {
	models.QuitStage
	TotalDays       int  `json:"total_days"`
	DaysRecorded    int  `json:"days_recorded"`
	DaysElapsed     int  `json:"days_elapsed"`
	IsCurrent       bool `json:"is_current"`
	ProgressPercent int  `json:"progress_percent"`
}

type UpdateStageInput struct {
	Name              *string
	Description       *string
	StartDate         *string
	EndDate           *string
	Status            *models.StageStatus
	MaxDailyCigarette *int
	ClearCeiling      bool
}

func NewPlanService(deps PlanServiceDeps) *PlanService {
	return &PlanService{
		db:          deps.DB,
		cal:         deps.Calendar,
		plans:       deps.Plans,
		stages:      deps.Stages,
		statuses:    deps.Statuses,
		progress:    deps.Progress,
		memberships: deps.Memberships,
		notifier:    deps.Notifier,
		log:         deps.Log,
	}
}

// Authorize is the ownership guard: the owner, an admin or the assigned coach
// may act on a plan.
func (s *PlanService) Authorize(ctx context.Context, actor Actor, planID int64) (*models.QuitPlan, error) {
	plan, err := s.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.UserID == actor.UserID || actor.IsAdmin() {
		return plan, nil
	}
	if plan.CoachID != nil && *plan.CoachID == actor.UserID {
		return plan, nil
	}
	return nil, fmt.Errorf("%w: plan %d belongs to another user", ErrForbidden, planID)
}

func (s *PlanService) Get(ctx context.Context, planID int64) (*models.QuitPlan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: plan %d", ErrNotFound, planID)
	}
	return plan, nil
}

func (s *PlanService) ListForUser(ctx context.Context, userID int64) ([]models.QuitPlan, error) {
	return s.plans.ListByUser(ctx, userID)
}

func (s *PlanService) Ongoing(ctx context.Context, userID int64) (*models.QuitPlan, error) {
	plan, err := s.plans.GetOngoingForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: no ongoing plan", ErrNotFound)
	}
	return plan, nil
}

// Preview runs the stage generator against the user's latest pre-plan
// baseline without persisting anything. A nil start means today.
func (s *PlanService) Preview(ctx context.Context, userID int64, start *time.Time) (*Preview, error) {
	baseline, err := s.statuses.LatestPrePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	day := s.cal.Today()
	if start != nil {
		day = *start
	}
	suggestion := stageplan.Generate(toBaseline(baseline))
	return &Preview{Baseline: baseline, Suggestion: suggestion, Stages: suggestion.Layout(day)}, nil
}

// Create starts a plan from the user's goal draft and latest baseline. The
// plan, its stages and the baseline attachment commit together.
func (s *PlanService) Create(ctx context.Context, userID int64, startDate string) (*PlanDetail, error) {
	allowed, err := s.memberships.CanCreatePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: an active membership is required to create a plan", ErrForbidden)
	}

	draft, err := s.plans.GetGoalDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	if draft == nil || strings.TrimSpace(draft.Goal) == "" {
		return nil, invalid("goal", "save a goal draft before creating a plan")
	}

	start := s.cal.Today()
	if strings.TrimSpace(startDate) != "" {
		start, err = clock.ParseDate(startDate)
		if err != nil {
			return nil, invalid("start_date", "must be YYYY-MM-DD")
		}
	}

	existing, err := s.plans.GetOngoingForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: plan %d is still ongoing", ErrConflict, existing.ID)
	}

	baseline, err := s.statuses.LatestPrePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	planned := stageplan.Generate(toBaseline(baseline)).Layout(start)

	plan := &models.QuitPlan{
		UserID:    userID,
		Goal:      draft.Goal,
		Reasons:   draft.Reasons,
		StartDate: start,
		Status:    models.PlanOngoing,
	}
	stages := make([]models.QuitStage, len(planned))
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.plans.WithTx(tx).Create(ctx, plan); err != nil {
			return err
		}
		for i, p := range planned {
			stages[i] = models.QuitStage{
				PlanID:            plan.ID,
				Position:          i + 1,
				Name:              p.Name,
				Description:       p.Description,
				StartDate:         p.StartDate,
				EndDate:           p.EndDate,
				Status:            models.StageNotStarted,
				MaxDailyCigarette: p.MaxDailyCigarette,
			}
		}
		if err := s.stages.WithTx(tx).CreateBatch(ctx, stages); err != nil {
			return err
		}
		if baseline != nil {
			return s.statuses.WithTx(tx).AttachToPlan(ctx, baseline.ID, plan.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: another plan is already ongoing", ErrConflict)
		}
		return nil, fmt.Errorf("create plan: %w", err)
	}

	s.log.Info("plan created", "user_id", userID, "plan_id", plan.ID, "stages", len(stages))
	s.notifier.Emit(ctx, userID, models.NotifyPlan, fmt.Sprintf("Your quit plan starts on %s with %d stages. You can do this!", clock.FormatDate(start), len(stages)))
	return &PlanDetail{Plan: plan, Stages: stages}, nil
}

// Stages lists a plan's stages annotated with today's progress.
func (s *PlanService) Stages(ctx context.Context, planID int64) ([]StageView, error) {
	stages, err := s.stages.ListByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	counts, err := s.progress.CountByStage(ctx, planID)
	if err != nil {
		return nil, err
	}
	today := s.cal.Today()
	views := make([]StageView, 0, len(stages))
	for _, st := range stages {
		views = append(views, annotate(st, counts[st.ID], today))
	}
	return views, nil
}

func annotate(st models.QuitStage, recorded int, today time.Time) StageView {
	total := clock.SpanDays(st.StartDate, st.EndDate)
	elapsed := 0
	if !today.Before(st.StartDate) {
		last := today
		if last.After(st.EndDate) {
			last = st.EndDate
		}
		elapsed = clock.SpanDays(st.StartDate, last)
	}
	percent := 0
	if total > 0 {
		percent = min(100, recorded*100/total)
	}
	return StageView{
		QuitStage:       st,
		TotalDays:       total,
		DaysRecorded:    recorded,
		DaysElapsed:     elapsed,
		IsCurrent:       !today.Before(st.StartDate) && !today.After(st.EndDate),
		ProgressPercent: percent,
	}
}

// UpdateStage applies a coach or admin edit to one stage of a plan.
func (s *PlanService) UpdateStage(ctx context.Context, actor Actor, planID, stageID int64, input UpdateStageInput) (*models.QuitStage, error) {
	plan, err := s.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	isCoach := plan.CoachID != nil && *plan.CoachID == actor.UserID
	if !actor.IsAdmin() && !isCoach {
		return nil, fmt.Errorf("%w: only the assigned coach can edit stages", ErrForbidden)
	}
	stage, err := s.stages.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil || stage.PlanID != plan.ID {
		return nil, fmt.Errorf("%w: stage %d", ErrNotFound, stageID)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		stage.Name = name
	}
	if input.Description != nil {
		stage.Description = strings.TrimSpace(*input.Description)
	}
	if input.StartDate != nil {
		if stage.StartDate, err = clock.ParseDate(*input.StartDate); err != nil {
			return nil, invalid("start_date", "must be YYYY-MM-DD")
		}
	}
	if input.EndDate != nil {
		if stage.EndDate, err = clock.ParseDate(*input.EndDate); err != nil {
			return nil, invalid("end_date", "must be YYYY-MM-DD")
		}
	}
	if stage.EndDate.Before(stage.StartDate) {
		return nil, invalid("end_date", "must not precede start_date")
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, invalid("status", fmt.Sprintf("unknown stage status %q", *input.Status))
		}
		stage.Status = *input.Status
	}
	switch {
	case input.ClearCeiling:
		stage.MaxDailyCigarette = nil
	case input.MaxDailyCigarette != nil:
		if *input.MaxDailyCigarette < 0 {
			return nil, invalid("max_daily_cigarette", "must not be negative")
		}
		v := *input.MaxDailyCigarette
		stage.MaxDailyCigarette = &v
	}

	if err := s.stages.Update(ctx, stage); err != nil {
		return nil, err
	}
	s.log.Info("stage edited", "plan_id", plan.ID, "stage_id", stage.ID, "actor_id", actor.UserID)
	return stage, nil
}

func toBaseline(status *models.SmokingStatus) *stageplan.Baseline {
	if status == nil {
		return nil
	}
	return &stageplan.Baseline{CigaretteCount: status.CigaretteCount, Frequency: status.SuctionFrequency}
}
