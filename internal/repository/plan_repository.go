package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/models"
)

type PlanRepository struct {
	db Querier
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *PlanRepository) WithTx(tx *sql.Tx) *PlanRepository {
	return &PlanRepository{db: tx}
}

const planColumns = `id, user_id, goal, COALESCE(reasons, ''), start_date, status, coach_id, COALESCE(report_url, ''), created_at, updated_at`

func scanPlan(row scanner) (*models.QuitPlan, error) {
	var p models.QuitPlan
	var startDate, status string
	var coachID sql.NullInt64
	if err := row.Scan(&p.ID, &p.UserID, &p.Goal, &p.Reasons, &startDate, &status, &coachID, &p.ReportURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := parseDay(startDate)
	if err != nil {
		return nil, err
	}
	p.StartDate = d
	p.Status = models.PlanStatus(status)
	p.CoachID = int64Ptr(coachID)
	return &p, nil
}

func (r *PlanRepository) queryOne(ctx context.Context, what, query string, args ...any) (*models.QuitPlan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return p, nil
}

func (r *PlanRepository) queryMany(ctx context.Context, what, query string, args ...any) ([]models.QuitPlan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	var plans []models.QuitPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// Create inserts an ongoing plan. A second ongoing plan for the same owner
// fails with ErrDuplicate through the active_owner unique column.
func (r *PlanRepository) Create(ctx context.Context, plan *models.QuitPlan) error {
	const query = `
INSERT INTO quit_plans (user_id, goal, reasons, start_date, status, active_owner, coach_id, created_at, updated_at)
VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	var activeOwner sql.NullInt64
	if plan.Status == models.PlanOngoing {
		activeOwner = sql.NullInt64{Int64: plan.UserID, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, query, plan.UserID, plan.Goal, plan.Reasons, clock.FormatDate(plan.StartDate), string(plan.Status), activeOwner, nullInt64(plan.CoachID), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert quit plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("quit plan last insert id: %w", err)
	}
	plan.ID = id
	plan.CreatedAt = now
	plan.UpdatedAt = now
	return nil
}

func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*models.QuitPlan, error) {
	return r.queryOne(ctx, "get quit plan", `SELECT `+planColumns+` FROM quit_plans WHERE id = ?`, id)
}

func (r *PlanRepository) GetOngoingForUser(ctx context.Context, userID int64) (*models.QuitPlan, error) {
	return r.queryOne(ctx, "get ongoing plan", `SELECT `+planColumns+` FROM quit_plans WHERE user_id = ? AND status = ? ORDER BY id DESC LIMIT 1`, userID, string(models.PlanOngoing))
}

func (r *PlanRepository) ListByUser(ctx context.Context, userID int64) ([]models.QuitPlan, error) {
	return r.queryMany(ctx, "list user plans", `SELECT `+planColumns+` FROM quit_plans WHERE user_id = ? ORDER BY id DESC`, userID)
}

func (r *PlanRepository) ListOngoing(ctx context.Context) ([]models.QuitPlan, error) {
	return r.queryMany(ctx, "list ongoing plans", `SELECT `+planColumns+` FROM quit_plans WHERE status = ? ORDER BY id ASC`, string(models.PlanOngoing))
}

// UpdateStatus moves a plan to status and releases the owner's active slot
// when the plan is no longer ongoing.
func (r *PlanRepository) UpdateStatus(ctx context.Context, id int64, status models.PlanStatus) error {
	query := `UPDATE quit_plans SET status = ?, active_owner = NULL, updated_at = ? WHERE id = ?`
	if status == models.PlanOngoing {
		query = `UPDATE quit_plans SET status = ?, active_owner = user_id, updated_at = ? WHERE id = ?`
	}
	if _, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), id); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update plan status: %w", err)
	}
	return nil
}

func (r *PlanRepository) SetCoach(ctx context.Context, planID int64, coachID *int64) error {
	const query = `UPDATE quit_plans SET coach_id = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, nullInt64(coachID), time.Now().UTC(), planID); err != nil {
		return fmt.Errorf("set plan coach: %w", err)
	}
	return nil
}

// CountOngoingForCoach is the derived number of users a coach currently serves.
func (r *PlanRepository) CountOngoingForCoach(ctx context.Context, coachID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM quit_plans WHERE coach_id = ? AND status = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, coachID, string(models.PlanOngoing)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count coach plans: %w", err)
	}
	return count, nil
}

func (r *PlanRepository) SetReportURL(ctx context.Context, planID int64, url string) error {
	const query = `UPDATE quit_plans SET report_url = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, url, time.Now().UTC(), planID); err != nil {
		return fmt.Errorf("set plan report url: %w", err)
	}
	return nil
}

func (r *PlanRepository) SaveGoalDraft(ctx context.Context, draft *models.GoalDraft) error {
	draft.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE goal_drafts SET goal = ?, reasons = NULLIF(?, ''), updated_at = ? WHERE user_id = ?`, draft.Goal, draft.Reasons, draft.UpdatedAt, draft.UserID)
	if err != nil {
		return fmt.Errorf("update goal draft: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO goal_drafts (user_id, goal, reasons, updated_at) VALUES (?, ?, NULLIF(?, ''), ?)`, draft.UserID, draft.Goal, draft.Reasons, draft.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent save inserted first; the update path wins next time.
			return nil
		}
		return fmt.Errorf("insert goal draft: %w", err)
	}
	return nil
}

func (r *PlanRepository) GetGoalDraft(ctx context.Context, userID int64) (*models.GoalDraft, error) {
	const query = `SELECT user_id, goal, COALESCE(reasons, ''), updated_at FROM goal_drafts WHERE user_id = ?`
	var d models.GoalDraft
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&d.UserID, &d.Goal, &d.Reasons, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get goal draft: %w", err)
	}
	return &d, nil
}
