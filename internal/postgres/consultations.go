package postgres

import (
	"context"
	"fmt"

	"consultdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const consultationColumns = `c.id, c.user_id, c.fullname, c.email, c.consultation_type, c.date, c.time,
	c.address, c.contact, c.detailed_message, c.has_paid, c.status, c.slot_id,
	c.created_at, c.updated_at`

func scanConsultation(row pgx.Row, extra ...any) (*models.Consultation, error) {
	c := &models.Consultation{}
	var slotID *string
	dest := []any{
		&c.ID, &c.UserID, &c.FullName, &c.Email, &c.ConsultationType, &c.Date, &c.Time,
		&c.Address, &c.Contact, &c.DetailedMessage, &c.HasPaid, &c.Status, &slotID,
		&c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	c.SlotID = deref(slotID)
	return c, nil
}

func (s *Store) CreateConsultation(ctx context.Context, c *models.Consultation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO consultations (
			id, user_id, fullname, email, consultation_type, date, time,
			address, contact, detailed_message, has_paid, status, slot_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.FullName, c.Email, c.ConsultationType, c.Date, c.Time,
		c.Address, c.Contact, c.DetailedMessage, c.HasPaid, c.Status, nullable(c.SlotID),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	return nil
}

func (s *Store) GetConsultation(ctx context.Context, id string) (*models.Consultation, error) {
	c, err := scanConsultation(s.pool.QueryRow(ctx,
		`SELECT `+consultationColumns+` FROM consultations c WHERE c.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "consultation")
	}
	return c, nil
}

func (s *Store) GetConsultationsByUser(ctx context.Context, userID string) ([]*models.Consultation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+consultationColumns+` FROM consultations c
		 WHERE c.user_id = $1 ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user consultations: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Consultation, 0)
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consultation: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (s *Store) GetAllConsultations(ctx context.Context) ([]*models.Consultation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+consultationColumns+`, COALESCE(u.email, '') FROM consultations c
		 LEFT JOIN users u ON u.id = c.user_id
		 ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get consultations: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Consultation, 0)
	for rows.Next() {
		var ownerEmail string
		c, err := scanConsultation(rows, &ownerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consultation: %w", err)
		}
		c.UserEmail = ownerEmail
		list = append(list, c)
	}
	return list, rows.Err()
}

// UpdateConsultation applies the non-nil fields of patch in one statement.
func (s *Store) UpdateConsultation(ctx context.Context, id string, patch models.ConsultationPatch) error {
	tag, err := s.pool.Exec(ctx, `UPDATE consultations
		SET status = COALESCE($2::text, status), has_paid = COALESCE($3::boolean, has_paid), updated_at = now()
		WHERE id = $1`, id, patch.Status, patch.HasPaid)
	if err != nil {
		return fmt.Errorf("failed to update consultation: %w", err)
	}
	return requireAffected(tag, "consultation")
}

func (s *Store) DeleteConsultation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM consultations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete consultation: %w", err)
	}
	return requireAffected(tag, "consultation")
}
