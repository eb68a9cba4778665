package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/models"
)

type MembershipRepository struct {
	db *sql.DB
}

func NewMembershipRepository(db *sql.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	const query = `
INSERT INTO memberships (user_id, tier, is_pro, can_create_plan, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	m.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query, m.UserID, m.Tier, boolInt(m.IsPro), boolInt(m.CanCreatePlan), m.ExpiresAt.UTC(), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("membership last insert id: %w", err)
	}
	m.ID = id
	return nil
}

// ActiveForUser returns the membership expiring last among those still valid
// at now, or nil when the user has none.
func (r *MembershipRepository) ActiveForUser(ctx context.Context, userID int64, now time.Time) (*models.Membership, error) {
	const query = `
SELECT id, user_id, tier, is_pro, can_create_plan, expires_at, created_at
FROM memberships
WHERE user_id = ? AND expires_at > ?
ORDER BY expires_at DESC, id DESC
LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, userID, now.UTC())
	var m models.Membership
	var isPro, canCreate int
	if err := row.Scan(&m.ID, &m.UserID, &m.Tier, &isPro, &canCreate, &m.ExpiresAt, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	m.IsPro = isPro != 0
	m.CanCreatePlan = canCreate != 0
	return &m, nil
}
