package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"

	"github.com/google/uuid"
)

const slotColumns = `id, date, time, is_booked, consultation_id, created_at`

func scanSlot(row rowScanner) (*models.AvailabilitySlot, error) {
	s := &models.AvailabilitySlot{}
	var consultationID sql.NullString
	if err := row.Scan(&s.ID, &s.Date, &s.Time, &s.IsBooked, &consultationID, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.ConsultationID = consultationID.String
	return s, nil
}

func (db *DB) GetAllAvailability(ctx context.Context) ([]*models.AvailabilitySlot, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+slotColumns+` FROM availability ORDER BY date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	defer rows.Close()

	slots := make([]*models.AvailabilitySlot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	models.SortSlots(slots)
	return slots, nil
}

func (db *DB) GetAvailabilitySlot(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	s, err := scanSlot(db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM availability WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "availability slot")
	}
	return s, nil
}

func (db *DB) CreateAvailabilitySlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx,
		`INSERT INTO availability (id, date, time, is_booked, consultation_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		slot.ID, slot.Date, slot.Time, slot.IsBooked, nullString(slot.ConsultationID), now,
	)
	if err != nil {
		return fmt.Errorf("failed to create availability slot: %w", err)
	}
	slot.CreatedAt = now
	return nil
}

// DeleteAvailabilitySlot refuses to remove a booked slot.
func (db *DB) DeleteAvailabilitySlot(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM availability WHERE id = ? AND is_booked = 0`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.GetAvailabilitySlot(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("availability slot is booked: %w", domain.ErrConflict)
}

// MarkAvailabilityAsBooked only claims a free slot; a concurrent claim loses
// with ErrConflict.
func (db *DB) MarkAvailabilityAsBooked(ctx context.Context, id string, consultationID string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE availability SET is_booked = 1, consultation_id = ? WHERE id = ? AND is_booked = 0`,
		nullString(consultationID), id)
	if err != nil {
		return fmt.Errorf("failed to book availability slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.GetAvailabilitySlot(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("availability slot already booked: %w", domain.ErrConflict)
}

func (db *DB) ReleaseAvailabilitySlot(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE availability SET is_booked = 0, consultation_id = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to release availability slot: %w", err)
	}
	return requireAffected(res, "availability slot")
}
