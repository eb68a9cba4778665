package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
)

// Uploader stores a blob and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// PlanReport is the archived summary of a finished plan.
type PlanReport struct {
	Plan            models.QuitPlan    `json:"plan"`
	Stages          []models.QuitStage `json:"stages"`
	Records         int                `json:"records"`
	NoSmokeDays     int                `json:"no_smoke_days"`
	TotalCigarettes int                `json:"total_cigarettes"`
	TotalMoneySpent float64            `json:"total_money_spent"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// ReportArchiver uploads a JSON report when a plan leaves the ongoing state.
// A nil uploader disables archiving.
type ReportArchiver struct {
	plans    *repository.PlanRepository
	stages   *repository.StageRepository
	progress *repository.ProgressRepository
	uploader Uploader
	log      *slog.Logger
}

func NewReportArchiver(plans *repository.PlanRepository, stages *repository.StageRepository, progress *repository.ProgressRepository, uploader Uploader, log *slog.Logger) *ReportArchiver {
	return &ReportArchiver{plans: plans, stages: stages, progress: progress, uploader: uploader, log: log}
}

func (a *ReportArchiver) Build(ctx context.Context, plan *models.QuitPlan) (*PlanReport, error) {
	stages, err := a.stages.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	totals, err := a.progress.TotalsForPlan(ctx, plan.UserID, plan.ID)
	if err != nil {
		return nil, err
	}
	return &PlanReport{
		Plan:            *plan,
		Stages:          stages,
		Records:         totals.Records,
		NoSmokeDays:     totals.NoSmokeDays,
		TotalCigarettes: totals.TotalCigarettes,
		TotalMoneySpent: totals.TotalMoneySpent,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// Archive uploads the report and stores its URL on the plan.
func (a *ReportArchiver) Archive(ctx context.Context, plan *models.QuitPlan) (string, error) {
	if a == nil || a.uploader == nil {
		return "", nil
	}
	report, err := a.Build(ctx, plan)
	if err != nil {
		return "", fmt.Errorf("build plan report: %w", err)
	}
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode plan report: %w", err)
	}
	url, err := a.uploader.Upload(ctx, data, "application/json")
	if err != nil {
		return "", fmt.Errorf("upload plan report: %w", err)
	}
	if err := a.plans.SetReportURL(ctx, plan.ID, url); err != nil {
		return "", err
	}
	plan.ReportURL = url
	return url, nil
}

// archiveQuietly never fails the caller; finished plans stay finished.
func (a *ReportArchiver) archiveQuietly(ctx context.Context, plan *models.QuitPlan) {
	if a == nil || a.uploader == nil {
		return
	}
	if _, err := a.Archive(ctx, plan); err != nil {
		a.log.Error("archive plan report", "err", err, "plan_id", plan.ID)
	}
}
