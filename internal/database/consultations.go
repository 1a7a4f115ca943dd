package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"consultdesk/internal/models"

	"github.com/google/uuid"
)

const consultationColumns = `c.id, c.user_id, c.fullname, c.email, c.consultation_type, c.date, c.time,
	c.address, c.contact, c.detailed_message, c.has_paid, c.status, c.slot_id,
	c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConsultation(row rowScanner, extra ...interface{}) (*models.Consultation, error) {
	c := &models.Consultation{}
	var slotID sql.NullString
	dest := []interface{}{
		&c.ID, &c.UserID, &c.FullName, &c.Email, &c.ConsultationType, &c.Date, &c.Time,
		&c.Address, &c.Contact, &c.DetailedMessage, &c.HasPaid, &c.Status, &slotID,
		&c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	c.SlotID = slotID.String
	return c, nil
}

func (db *DB) CreateConsultation(ctx context.Context, c *models.Consultation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx,
		`INSERT INTO consultations (
			id, user_id, fullname, email, consultation_type, date, time,
			address, contact, detailed_message, has_paid, status, slot_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.FullName, c.Email, c.ConsultationType, c.Date, c.Time,
		c.Address, c.Contact, c.DetailedMessage, c.HasPaid, c.Status, nullString(c.SlotID),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (db *DB) GetConsultation(ctx context.Context, id string) (*models.Consultation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+consultationColumns+` FROM consultations c WHERE c.id = ?`, id)
	c, err := scanConsultation(row)
	if err != nil {
		return nil, notFound(err, "consultation")
	}
	return c, nil
}

func (db *DB) GetConsultationsByUser(ctx context.Context, userID string) ([]*models.Consultation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+consultationColumns+` FROM consultations c
		 WHERE c.user_id = ? ORDER BY c.created_at DESC, c.rowid DESC`, userID)
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

func (db *DB) GetAllConsultations(ctx context.Context) ([]*models.Consultation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+consultationColumns+`, COALESCE(u.email, '') FROM consultations c
		 LEFT JOIN users u ON u.id = c.user_id
		 ORDER BY c.created_at DESC, c.rowid DESC`)
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
func (db *DB) UpdateConsultation(ctx context.Context, id string, patch models.ConsultationPatch) error {
	var status sql.NullString
	if patch.Status != nil {
		status = sql.NullString{String: *patch.Status, Valid: true}
	}
	var paid sql.NullBool
	if patch.HasPaid != nil {
		paid = sql.NullBool{Bool: *patch.HasPaid, Valid: true}
	}
	res, err := db.ExecContext(ctx, `UPDATE consultations
		SET status = COALESCE(?, status), has_paid = COALESCE(?, has_paid), updated_at = ?
		WHERE id = ?`, status, paid, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update consultation: %w", err)
	}
	return requireAffected(res, "consultation")
}

func (db *DB) DeleteConsultation(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM consultations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete consultation: %w", err)
	}
	return requireAffected(res, "consultation")
}
