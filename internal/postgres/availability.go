package postgres

import (
	"context"
	"fmt"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, date, time, is_booked, consultation_id, created_at`

func scanSlot(row pgx.Row) (*models.AvailabilitySlot, error) {
	slot := &models.AvailabilitySlot{}
	var consultationID *string
	if err := row.Scan(&slot.ID, &slot.Date, &slot.Time, &slot.IsBooked, &consultationID, &slot.CreatedAt); err != nil {
		return nil, err
	}
	slot.ConsultationID = deref(consultationID)
	return slot, nil
}

func (s *Store) GetAllAvailability(ctx context.Context) ([]*models.AvailabilitySlot, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+slotColumns+` FROM availability ORDER BY date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	defer rows.Close()

	slots := make([]*models.AvailabilitySlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	models.SortSlots(slots)
	return slots, nil
}

func (s *Store) GetAvailabilitySlot(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	slot, err := scanSlot(s.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM availability WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "availability slot")
	}
	return slot, nil
}

func (s *Store) CreateAvailabilitySlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO availability (id, date, time, is_booked, consultation_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, slot.ID, slot.Date, slot.Time, slot.IsBooked, nullable(slot.ConsultationID)).Scan(&slot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create availability slot: %w", err)
	}
	return nil
}

func (s *Store) DeleteAvailabilitySlot(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM availability WHERE id = $1 AND NOT is_booked`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability slot: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.GetAvailabilitySlot(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("availability slot is booked: %w", domain.ErrConflict)
}

func (s *Store) MarkAvailabilityAsBooked(ctx context.Context, id string, consultationID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE availability SET is_booked = TRUE, consultation_id = $2
		WHERE id = $1 AND NOT is_booked
	`, id, nullable(consultationID))
	if err != nil {
		return fmt.Errorf("failed to book availability slot: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.GetAvailabilitySlot(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("availability slot already booked: %w", domain.ErrConflict)
}

func (s *Store) ReleaseAvailabilitySlot(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE availability SET is_booked = FALSE, consultation_id = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to release availability slot: %w", err)
	}
	return requireAffected(tag, "availability slot")
}
