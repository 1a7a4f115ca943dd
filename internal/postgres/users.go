package postgres

import (
	"context"
	"fmt"

	"consultdesk/internal/models"
)

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, phone, is_admin, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Phone, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (s *Store) InsertUserIfNotExists(ctx context.Context, user *models.User) (bool, error) {
	rows, err := s.pool.Query(ctx, `
		INSERT INTO users (id, email, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
		RETURNING is_admin, created_at, updated_at
	`, user.ID, user.Email, user.Phone)
	if err != nil {
		return false, fmt.Errorf("failed to insert user: %w", err)
	}
	defer rows.Close()

	created := false
	for rows.Next() {
		if err := rows.Scan(&user.IsAdmin, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return false, fmt.Errorf("failed to scan inserted user: %w", err)
		}
		created = true
	}
	return created, rows.Err()
}

func (s *Store) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, phone, is_admin, created_at, updated_at
		FROM users ORDER BY created_at DESC
	`)
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
func (s *Store) SetUserAdmin(ctx context.Context, id string, isAdmin bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET is_admin = $2, updated_at = now() WHERE id = $1`, id, isAdmin)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	return requireAffected(tag, "user")
}
