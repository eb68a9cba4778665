package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/QuitCoachAPI/internal/models"
)

type CoachRepository struct {
	db Querier
}

func NewCoachRepository(db *sql.DB) *CoachRepository {
	return &CoachRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *CoachRepository) WithTx(tx *sql.Tx) *CoachRepository {
	return &CoachRepository{db: tx}
}

// current_users is always derived from ongoing plans, never stored.
const coachSelect = `
SELECT c.user_id, COALESCE(u.display_name, ''), COALESCE(c.bio, ''), c.max_users,
       (SELECT COUNT(*) FROM quit_plans p WHERE p.coach_id = c.user_id AND p.status = ?) AS current_users
FROM coaches c
JOIN users u ON u.id = c.user_id`

func scanCoach(row scanner) (*models.Coach, error) {
	var c models.Coach
	if err := row.Scan(&c.UserID, &c.DisplayName, &c.Bio, &c.MaxUsers, &c.CurrentUsers); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CoachRepository) Get(ctx context.Context, userID int64) (*models.Coach, error) {
	c, err := scanCoach(r.db.QueryRowContext(ctx, coachSelect+` WHERE c.user_id = ?`, string(models.PlanOngoing), userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coach: %w", err)
	}
	return c, nil
}

func (r *CoachRepository) List(ctx context.Context) ([]models.Coach, error) {
	rows, err := r.db.QueryContext(ctx, coachSelect+` ORDER BY c.user_id ASC`, string(models.PlanOngoing))
	if err != nil {
		return nil, fmt.Errorf("list coaches: %w", err)
	}
	defer rows.Close()

	var coaches []models.Coach
	for rows.Next() {
		c, err := scanCoach(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coach: %w", err)
		}
		coaches = append(coaches, *c)
	}
	return coaches, rows.Err()
}

// Upsert creates or updates a coach profile.
func (r *CoachRepository) Upsert(ctx context.Context, userID int64, bio string, maxUsers int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE coaches SET bio = NULLIF(?, ''), max_users = ? WHERE user_id = ?`, bio, maxUsers, userID)
	if err != nil {
		return fmt.Errorf("update coach: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO coaches (user_id, bio, max_users) VALUES (?, NULLIF(?, ''), ?)`, userID, bio, maxUsers); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("insert coach: %w", err)
	}
	return nil
}

// Lock takes a write lock on the coach row for the rest of the transaction,
// serialising concurrent assignments to the same coach. It reports whether
// the coach exists.
func (r *CoachRepository) Lock(ctx context.Context, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE coaches SET max_users = max_users WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("lock coach: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("coach rows affected: %w", err)
	}
	return affected > 0, nil
}
