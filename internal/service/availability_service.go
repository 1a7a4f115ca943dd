package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"

	"github.com/rs/zerolog"
)

type AvailabilityService struct {
	users  domain.UserStore
	slots  domain.AvailabilityStore
	logger *zerolog.Logger
}

func NewAvailabilityService(users domain.UserStore, slots domain.AvailabilityStore, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{users: users, slots: slots, logger: nopIfNil(logger)}
}

// List is public and ordered by date.
func (s *AvailabilityService) List(ctx context.Context) ([]*models.AvailabilitySlot, error) {
	slots, err := s.slots.GetAllAvailability(ctx)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return slots, nil
}

func (s *AvailabilityService) Create(ctx context.Context, caller *models.Identity, date, slotTime string) (*models.AvailabilitySlot, error) {
	if _, err := requireAdmin(ctx, s.users, caller); err != nil {
		return nil, err
	}
	date = strings.TrimSpace(date)
	slotTime = strings.TrimSpace(slotTime)
	if date == "" || slotTime == "" {
		return nil, invalid("date", "Date and time are required")
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, invalid("date", "Invalid date, expected YYYY-MM-DD")
	}

	slot := &models.AvailabilitySlot{Date: date, Time: slotTime}
	if err := s.slots.CreateAvailabilitySlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	s.logger.Info().Str("slot_id", slot.ID).Str("date", date).Str("time", slotTime).Msg("availability slot created")
	return slot, nil
}

// Delete removes a free slot. Booked slots are refused.
func (s *AvailabilityService) Delete(ctx context.Context, caller *models.Identity, id string) error {
	if _, err := requireAdmin(ctx, s.users, caller); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("id", "Slot id is required")
	}

	err := s.slots.DeleteAvailabilitySlot(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return newError(ErrNotFound, "Availability slot not found")
	case errors.Is(err, domain.ErrConflict):
		return newError(ErrPreconditionFailed, "Booked slots cannot be deleted")
	default:
		return fmt.Errorf("delete slot: %w", err)
	}
}
