package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/models"
)

type BadgeRepository struct {
	db *sql.DB
}

func NewBadgeRepository(db *sql.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

func (r *BadgeRepository) List(ctx context.Context) ([]models.Badge, error) {
	const query = `
SELECT id, name, COALESCE(description, ''), condition_type, condition_value, COALESCE(condition_unit, ''), pro_only, created_at
FROM badges
ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []models.Badge
	for rows.Next() {
		var b models.Badge
		var condType string
		var proOnly int
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &condType, &b.Condition.Value, &b.Condition.Unit, &proOnly, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		b.Condition.Type = models.BadgeConditionType(condType)
		b.ProOnly = proOnly != 0
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// Create inserts a badge definition. Names are unique.
func (r *BadgeRepository) Create(ctx context.Context, b *models.Badge) error {
	const query = `
INSERT INTO badges (name, description, condition_type, condition_value, condition_unit, pro_only, created_at)
VALUES (?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), ?, ?)`
	b.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query, b.Name, b.Description, string(b.Condition.Type), b.Condition.Value, b.Condition.Unit, boolInt(b.ProOnly), b.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert badge: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("badge last insert id: %w", err)
	}
	b.ID = id
	return nil
}

// Grant records that a user earned a badge. A repeated grant returns
// ErrDuplicate and leaves the original untouched.
func (r *BadgeRepository) Grant(ctx context.Context, ub *models.UserBadge) error {
	const query = `
INSERT INTO user_badges (user_id, badge_id, plan_id, granted_at)
VALUES (?, ?, ?, ?)`
	if ub.GrantedAt.IsZero() {
		ub.GrantedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, query, ub.UserID, ub.BadgeID, nullInt64(ub.PlanID), ub.GrantedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("grant badge: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user badge last insert id: %w", err)
	}
	ub.ID = id
	return nil
}

func (r *BadgeRepository) GrantedBadgeIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT badge_id FROM user_badges WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list granted badges: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan granted badge: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (r *BadgeRepository) ListForUser(ctx context.Context, userID int64) ([]models.UserBadge, error) {
	const query = `
SELECT ub.id, ub.user_id, ub.badge_id, ub.plan_id, ub.granted_at,
       b.name, COALESCE(b.description, ''), b.condition_type, b.condition_value, COALESCE(b.condition_unit, ''), b.pro_only, b.created_at
FROM user_badges ub
JOIN badges b ON b.id = ub.badge_id
WHERE ub.user_id = ?
ORDER BY ub.granted_at ASC, ub.id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	defer rows.Close()

	var out []models.UserBadge
	for rows.Next() {
		var ub models.UserBadge
		var b models.Badge
		var planID sql.NullInt64
		var condType string
		var proOnly int
		if err := rows.Scan(&ub.ID, &ub.UserID, &ub.BadgeID, &planID, &ub.GrantedAt,
			&b.Name, &b.Description, &condType, &b.Condition.Value, &b.Condition.Unit, &proOnly, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user badge: %w", err)
		}
		b.ID = ub.BadgeID
		b.Condition.Type = models.BadgeConditionType(condType)
		b.ProOnly = proOnly != 0
		ub.PlanID = int64Ptr(planID)
		ub.Badge = &b
		out = append(out, ub)
	}
	return out, rows.Err()
}
