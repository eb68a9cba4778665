package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, COALESCE(email, ''), COALESCE(display_name, ''), role, telegram_id, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var role string
	var telegramID sql.NullInt64
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &role, &telegramID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.TelegramID = int64Ptr(telegramID)
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user by telegram id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	const query = `
INSERT INTO users (id, email, display_name, role, created_at, updated_at)
VALUES (?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)`
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.DisplayName, string(user.Role), now, now); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, email string, role models.Role) error {
	const query = `
UPDATE users SET email = COALESCE(NULLIF(?, ''), email), role = ?, updated_at = ?
WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, email, string(role), time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// Ensure returns the user with the given id, creating it from the
// authenticated identity when missing. Role and email follow the identity.
func (r *UserRepository) Ensure(ctx context.Context, id int64, email string, role models.Role) (*models.User, bool, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		if (email != "" && user.Email != email) || user.Role != role {
			if err := r.UpdateProfile(ctx, id, email, role); err != nil {
				return nil, false, err
			}
			if email != "" {
				user.Email = email
			}
			user.Role = role
		}
		return user, false, nil
	}
	created, err := r.Create(ctx, &models.User{ID: id, Email: email, Role: role})
	if errors.Is(err, ErrDuplicate) {
		// Lost a race with a concurrent request for the same identity.
		existing, findErr := r.FindByID(ctx, id)
		return existing, false, findErr
	}
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (r *UserRepository) SetTelegramID(ctx context.Context, userID int64, telegramID *int64) error {
	const query = `UPDATE users SET telegram_id = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, nullInt64(telegramID), time.Now().UTC(), userID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("set telegram id: %w", err)
	}
	return nil
}

func (r *UserRepository) SetDisplayName(ctx context.Context, userID int64, name string) error {
	const query = `UPDATE users SET display_name = NULLIF(?, ''), updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, name, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("set display name: %w", err)
	}
	return nil
}
