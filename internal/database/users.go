package database

import (
	"context"
	"fmt"
	"time"

	"consultdesk/internal/models"
)

const userColumns = `id, email, phone, is_admin, created_at, updated_at`

func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id).Scan(
		&u.ID, &u.Email, &u.Phone, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// InsertUserIfNotExists never touches an existing row, so a stored admin flag
// survives re-authentication.
func (db *DB) InsertUserIfNotExists(ctx context.Context, user *models.User) (bool, error) {
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, phone, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		user.ID, user.Email, user.Phone, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		user.CreatedAt = now
		user.UpdatedAt = now
		user.IsAdmin = false
	}
	return n > 0, nil
}

func (db *DB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Phone, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetUserAdmin is an operator action; the HTTP API never calls it.
func (db *DB) SetUserAdmin(ctx context.Context, id string, isAdmin bool) error {
	res, err := db.ExecContext(ctx, `UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ?`,
		isAdmin, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	return requireAffected(res, "user")
}
