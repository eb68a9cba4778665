package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/models"
)

type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// PlanTotals aggregates every record a user logged against one plan.
type PlanTotals struct {
	Records         int
	NoSmokeDays     int
	TotalCigarettes int
	TotalMoneySpent float64
}

// Insert stores one daily record. A second record for the same user, plan,
// stage and civil day returns ErrDuplicate.
func (r *ProgressRepository) Insert(ctx context.Context, rec *models.ProgressRecord) error {
	const query = `
INSERT INTO progress_records (user_id, plan_id, stage_id, record_day, recorded_at, cigarette_count, note, money_spent)
VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)`
	res, err := r.db.ExecContext(ctx, query, rec.UserID, rec.PlanID, rec.StageID, clock.FormatDate(rec.RecordDay), rec.RecordedAt.UTC(), rec.CigaretteCount, rec.Note, rec.MoneySpent)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert progress record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("progress last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

func (r *ProgressRepository) ListForStage(ctx context.Context, userID, planID, stageID int64) ([]models.ProgressRecord, error) {
	const query = `
SELECT id, user_id, plan_id, stage_id, record_day, recorded_at, cigarette_count, COALESCE(note, ''), money_spent
FROM progress_records
WHERE user_id = ? AND plan_id = ? AND stage_id = ?
ORDER BY record_day ASC`
	rows, err := r.db.QueryContext(ctx, query, userID, planID, stageID)
	if err != nil {
		return nil, fmt.Errorf("list progress records: %w", err)
	}
	defer rows.Close()

	var out []models.ProgressRecord
	for rows.Next() {
		var rec models.ProgressRecord
		var day string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.PlanID, &rec.StageID, &day, &rec.RecordedAt, &rec.CigaretteCount, &rec.Note, &rec.MoneySpent); err != nil {
			return nil, fmt.Errorf("scan progress record: %w", err)
		}
		if rec.RecordDay, err = parseDay(day); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *ProgressRepository) CountForStage(ctx context.Context, userID, planID, stageID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM progress_records WHERE user_id = ? AND plan_id = ? AND stage_id = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, planID, stageID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count stage records: %w", err)
	}
	return count, nil
}

// CountOverLimit counts every record of the stage, over its whole history,
// whose cigarette count exceeds ceiling.
func (r *ProgressRepository) CountOverLimit(ctx context.Context, userID, planID, stageID int64, ceiling int) (int, error) {
	const query = `
SELECT COUNT(*) FROM progress_records
WHERE user_id = ? AND plan_id = ? AND stage_id = ? AND cigarette_count > ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, planID, stageID, ceiling).Scan(&count); err != nil {
		return 0, fmt.Errorf("count over-limit records: %w", err)
	}
	return count, nil
}

// ExistsInRange reports whether any record of the stage falls on a civil day
// inside [start, end].
func (r *ProgressRepository) ExistsInRange(ctx context.Context, stageID int64, start, end time.Time) (bool, error) {
	const query = `
SELECT COUNT(*) FROM progress_records
WHERE stage_id = ? AND record_day >= ? AND record_day <= ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, stageID, clock.FormatDate(start), clock.FormatDate(end)).Scan(&count); err != nil {
		return false, fmt.Errorf("check stage records in range: %w", err)
	}
	return count > 0, nil
}

// ExistsOnDay reports whether the stage already has a record for day.
func (r *ProgressRepository) ExistsOnDay(ctx context.Context, stageID int64, day time.Time) (bool, error) {
	return r.ExistsInRange(ctx, stageID, day, day)
}

func (r *ProgressRepository) TotalsForPlan(ctx context.Context, userID, planID int64) (PlanTotals, error) {
	const query = `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN cigarette_count = 0 THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(cigarette_count), 0),
       COALESCE(SUM(money_spent), 0)
FROM progress_records
WHERE user_id = ? AND plan_id = ?`
	var t PlanTotals
	if err := r.db.QueryRowContext(ctx, query, userID, planID).Scan(&t.Records, &t.NoSmokeDays, &t.TotalCigarettes, &t.TotalMoneySpent); err != nil {
		return PlanTotals{}, fmt.Errorf("plan totals: %w", err)
	}
	return t, nil
}

// CountByStage maps stage id to the number of records for a plan.
func (r *ProgressRepository) CountByStage(ctx context.Context, planID int64) (map[int64]int, error) {
	const query = `SELECT stage_id, COUNT(*) FROM progress_records WHERE plan_id = ? GROUP BY stage_id`
	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("count records by stage: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var stageID int64
		var count int
		if err := rows.Scan(&stageID, &count); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		counts[stageID] = count
	}
	return counts, rows.Err()
}
