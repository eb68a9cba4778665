package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/models"
)

type SmokingStatusRepository struct {
	db Querier
}

func NewSmokingStatusRepository(db *sql.DB) *SmokingStatusRepository {
	return &SmokingStatusRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *SmokingStatusRepository) WithTx(tx *sql.Tx) *SmokingStatusRepository {
	return &SmokingStatusRepository{db: tx}
}

func (r *SmokingStatusRepository) Create(ctx context.Context, s *models.SmokingStatus) error {
	const query = `
INSERT INTO smoking_statuses (user_id, plan_id, cigarette_count, price_per_pack, suction_frequency, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, query, s.UserID, nullInt64(s.PlanID), s.CigaretteCount, s.PricePerPack, string(s.SuctionFrequency), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert smoking status: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("smoking status last insert id: %w", err)
	}
	s.ID = id
	return nil
}

// LatestPrePlan returns the newest baseline not yet attached to a plan.
func (r *SmokingStatusRepository) LatestPrePlan(ctx context.Context, userID int64) (*models.SmokingStatus, error) {
	const query = `
SELECT id, user_id, plan_id, cigarette_count, price_per_pack, suction_frequency, created_at
FROM smoking_statuses
WHERE user_id = ? AND plan_id IS NULL
ORDER BY created_at DESC, id DESC
LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, userID)
	var s models.SmokingStatus
	var planID sql.NullInt64
	var freq string
	if err := row.Scan(&s.ID, &s.UserID, &planID, &s.CigaretteCount, &s.PricePerPack, &freq, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan smoking status: %w", err)
	}
	s.PlanID = int64Ptr(planID)
	s.SuctionFrequency = models.Frequency(freq)
	return &s, nil
}

// AttachToPlan links a baseline to the plan created from it.
func (r *SmokingStatusRepository) AttachToPlan(ctx context.Context, statusID, planID int64) error {
	const query = `UPDATE smoking_statuses SET plan_id = ? WHERE id = ? AND plan_id IS NULL`
	if _, err := r.db.ExecContext(ctx, query, planID, statusID); err != nil {
		return fmt.Errorf("attach smoking status: %w", err)
	}
	return nil
}

// LatestForPlan returns the newest baseline attached to planID.
func (r *SmokingStatusRepository) LatestForPlan(ctx context.Context, planID int64) (*models.SmokingStatus, error) {
	const query = `
SELECT id, user_id, plan_id, cigarette_count, price_per_pack, suction_frequency, created_at
FROM smoking_statuses
WHERE plan_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, planID)
	var s models.SmokingStatus
	var pid sql.NullInt64
	var freq string
	if err := row.Scan(&s.ID, &s.UserID, &pid, &s.CigaretteCount, &s.PricePerPack, &freq, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan plan smoking status: %w", err)
	}
	s.PlanID = int64Ptr(pid)
	s.SuctionFrequency = models.Frequency(freq)
	return &s, nil
}
