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

type StageRepository struct {
	db Querier
}

func NewStageRepository(db *sql.DB) *StageRepository {
	return &StageRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *StageRepository) WithTx(tx *sql.Tx) *StageRepository {
	return &StageRepository{db: tx}
}

const stageColumns = `id, plan_id, position, name, COALESCE(description, ''), start_date, end_date, status, max_daily_cigarette, created_at, updated_at`

func scanStage(row scanner) (*models.QuitStage, error) {
	var s models.QuitStage
	var start, end, status string
	var ceiling sql.NullInt64
	if err := row.Scan(&s.ID, &s.PlanID, &s.Position, &s.Name, &s.Description, &start, &end, &status, &ceiling, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if s.StartDate, err = parseDay(start); err != nil {
		return nil, err
	}
	if s.EndDate, err = parseDay(end); err != nil {
		return nil, err
	}
	s.Status = models.StageStatus(status)
	s.MaxDailyCigarette = intPtr(ceiling)
	return &s, nil
}

func (r *StageRepository) queryMany(ctx context.Context, what, query string, args ...any) ([]models.QuitStage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	var stages []models.QuitStage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, *s)
	}
	return stages, rows.Err()
}

// CreateBatch inserts the stages of one plan in order, filling their ids.
func (r *StageRepository) CreateBatch(ctx context.Context, stages []models.QuitStage) error {
	const query = `
INSERT INTO quit_stages (plan_id, position, name, description, start_date, end_date, status, max_daily_cigarette, created_at, updated_at)
VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	for i := range stages {
		s := &stages[i]
		res, err := r.db.ExecContext(ctx, query, s.PlanID, s.Position, s.Name, s.Description, clock.FormatDate(s.StartDate), clock.FormatDate(s.EndDate), string(s.Status), nullInt(s.MaxDailyCigarette), now, now)
		if err != nil {
			return fmt.Errorf("insert stage %d: %w", s.Position, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("stage last insert id: %w", err)
		}
		s.ID = id
		s.CreatedAt = now
		s.UpdatedAt = now
	}
	return nil
}

func (r *StageRepository) GetByID(ctx context.Context, id int64) (*models.QuitStage, error) {
	s, err := scanStage(r.db.QueryRowContext(ctx, `SELECT `+stageColumns+` FROM quit_stages WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stage: %w", err)
	}
	return s, nil
}

func (r *StageRepository) ListByPlan(ctx context.Context, planID int64) ([]models.QuitStage, error) {
	return r.queryMany(ctx, "list plan stages", `SELECT `+stageColumns+` FROM quit_stages WHERE plan_id = ? ORDER BY position ASC, id ASC`, planID)
}

func (r *StageRepository) UpdateStatus(ctx context.Context, id int64, status models.StageStatus) error {
	const query = `UPDATE quit_stages SET status = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update stage status: %w", err)
	}
	return nil
}

// MarkSkippedIfOpen flips an open stage to skipped. It reports whether the
// row changed, so a stage that progressed in the meantime is left alone.
func (r *StageRepository) MarkSkippedIfOpen(ctx context.Context, id int64) (bool, error) {
	const query = `UPDATE quit_stages SET status = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)`
	res, err := r.db.ExecContext(ctx, query, string(models.StageSkipped), time.Now().UTC(), id, string(models.StageNotStarted), string(models.StageInProgress))
	if err != nil {
		return false, fmt.Errorf("mark stage skipped: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("stage rows affected: %w", err)
	}
	return affected > 0, nil
}

// Update persists coach edits to a stage.
func (r *StageRepository) Update(ctx context.Context, s *models.QuitStage) error {
	const query = `
UPDATE quit_stages
SET name = ?, description = NULLIF(?, ''), start_date = ?, end_date = ?, status = ?, max_daily_cigarette = ?, updated_at = ?
WHERE id = ?`
	s.UpdatedAt = time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, s.Name, s.Description, clock.FormatDate(s.StartDate), clock.FormatDate(s.EndDate), string(s.Status), nullInt(s.MaxDailyCigarette), s.UpdatedAt, s.ID); err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	return nil
}

// ListOpenEndedBefore returns not-started or in-progress stages whose last
// civil day is strictly before day.
func (r *StageRepository) ListOpenEndedBefore(ctx context.Context, day time.Time) ([]models.QuitStage, error) {
	query := `SELECT ` + stageColumns + ` FROM quit_stages WHERE status IN (?, ?) AND end_date < ? ORDER BY id ASC`
	return r.queryMany(ctx, "list elapsed stages", query, string(models.StageNotStarted), string(models.StageInProgress), clock.FormatDate(day))
}

// ListActiveOn returns open stages of ongoing plans whose range contains day.
func (r *StageRepository) ListActiveOn(ctx context.Context, day time.Time) ([]models.QuitStage, error) {
	query := `
SELECT s.id, s.plan_id, s.position, s.name, COALESCE(s.description, ''), s.start_date, s.end_date, s.status, s.max_daily_cigarette, s.created_at, s.updated_at
FROM quit_stages s
JOIN quit_plans p ON p.id = s.plan_id
WHERE p.status = ? AND s.status IN (?, ?) AND s.start_date <= ? AND s.end_date >= ?
ORDER BY s.id ASC`
	d := clock.FormatDate(day)
	return r.queryMany(ctx, "list active stages", query, string(models.PlanOngoing), string(models.StageNotStarted), string(models.StageInProgress), d, d)
}
