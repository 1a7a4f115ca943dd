package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"consultdesk/internal/domain"
	"consultdesk/internal/events"
	"consultdesk/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ConsultationStores groups the record kinds the booking lifecycle touches.
type ConsultationStores struct {
	Users         domain.UserStore
	Consultations domain.ConsultationStore
	Availability  domain.AvailabilityStore
}

type ConsultationService struct {
	users         domain.UserStore
	consultations domain.ConsultationStore
	slots         domain.AvailabilityStore
	eventBus      domain.EventPublisher
	sheetsWorker  domain.SyncWorker
	logger        *zerolog.Logger
}

func NewConsultationService(
	stores ConsultationStores,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	logger *zerolog.Logger,
) *ConsultationService {
	return &ConsultationService{
		users:         stores.Users,
		consultations: stores.Consultations,
		slots:         stores.Availability,
		eventBus:      eventBus,
		sheetsWorker:  sheetsWorker,
		logger:        nopIfNil(logger),
	}
}

// Create books a consultation for the caller. The submitted owner id must be
// the caller's own id.
func (s *ConsultationService) Create(ctx context.Context, caller *models.Identity, in models.ConsultationInput) (*models.Consultation, error) {
	if caller == nil {
		return nil, newError(ErrUnauthorized, "Unauthorized or invalid user")
	}
	in = in.Normalize()

	if in.UserID != caller.ID {
		return nil, newError(ErrForbidden, "Forbidden: user mismatch")
	}
	if in.ConsultationType == "" || in.Date == "" || in.Time == "" {
		return nil, invalid("consultation_type", "Missing required fields")
	}
	if !models.IsValidConsultationType(in.ConsultationType) {
		return nil, invalid("consultation_type", "Invalid consultation type")
	}
	if _, err := time.Parse(models.DateLayout, in.Date); err != nil {
		return nil, invalid("date", "Invalid date, expected YYYY-MM-DD")
	}

	status := models.StatusPending
	if in.Status != nil && *in.Status != "" {
		if !models.IsValidStatus(*in.Status) {
			return nil, invalid("status", "Invalid status")
		}
		status = *in.Status
	}
	hasPaid := false
	if in.HasPaid != nil {
		hasPaid = *in.HasPaid
	}

	if in.SlotID != "" {
		slot, err := s.slots.GetAvailabilitySlot(ctx, in.SlotID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, newError(ErrNotFound, "Availability slot not found")
		}
		if err != nil {
			return nil, fmt.Errorf("load slot: %w", err)
		}
		if slot.IsBooked {
			return nil, newError(ErrPreconditionFailed, "Availability slot is already booked")
		}
	}

	c := &models.Consultation{
		ID:               uuid.NewString(),
		UserID:           caller.ID,
		FullName:         in.FullName,
		Email:            in.Email,
		ConsultationType: in.ConsultationType,
		Date:             in.Date,
		Time:             in.Time,
		Address:          in.Address,
		Contact:          in.Contact,
		DetailedMessage:  in.DetailedMessage,
		HasPaid:          hasPaid,
		Status:           status,
		SlotID:           in.SlotID,
	}
	if err := s.consultations.CreateConsultation(ctx, c); err != nil {
		return nil, fmt.Errorf("create consultation: %w", err)
	}

	if c.SlotID != "" {
		if err := s.slots.MarkAvailabilityAsBooked(ctx, c.SlotID, c.ID); err != nil {
			// Lost the slot between the check and the claim; undo the insert.
			if delErr := s.consultations.DeleteConsultation(ctx, c.ID); delErr != nil {
				s.logger.Error().Err(delErr).Str("consultation_id", c.ID).Msg("rollback after slot claim failed")
			}
			if errors.Is(err, domain.ErrConflict) {
				return nil, newError(ErrPreconditionFailed, "Availability slot is already booked")
			}
			return nil, fmt.Errorf("book slot: %w", err)
		}
		s.publishEvent(events.EventSlotBooked, c, caller.ID, "")
	}

	s.publishEvent(events.EventConsultationCreated, c, caller.ID, "")
	s.enqueueSync(ctx, models.SyncTaskUpsert, c)
	return c, nil
}

// ListForCaller returns the consultations visible to the caller, newest first.
func (s *ConsultationService) ListForCaller(ctx context.Context, caller *models.Identity) ([]*models.Consultation, ListScope, error) {
	user, err := loadProfile(ctx, s.users, caller)
	if err != nil {
		return nil, ListScope{}, err
	}

	scope := ScopeFor(caller, user)
	var list []*models.Consultation
	if scope.All {
		list, err = s.consultations.GetAllConsultations(ctx)
	} else {
		list, err = s.consultations.GetConsultationsByUser(ctx, scope.OwnerID)
	}
	if err != nil {
		return nil, scope, fmt.Errorf("list consultations: %w", err)
	}

	visible := make([]*models.Consultation, 0, len(list))
	for _, c := range list {
		if scope.Allows(c) {
			visible = append(visible, c)
		}
	}
	return visible, scope, nil
}

// Dashboard shapes the personal dashboard. Admins also get every slot with
// its linked consultation attached.
func (s *ConsultationService) Dashboard(ctx context.Context, caller *models.Identity) (*models.Dashboard, error) {
	list, scope, err := s.ListForCaller(ctx, caller)
	if err != nil {
		return nil, err
	}

	dash := &models.Dashboard{IsAdmin: scope.All, Consultations: list}
	if !scope.All {
		return dash, nil
	}

	slots, err := s.slots.GetAllAvailability(ctx)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	byID := make(map[string]*models.Consultation, len(list))
	for _, c := range list {
		byID[c.ID] = c
	}
	for _, slot := range slots {
		if slot.ConsultationID != "" {
			slot.Consultation = byID[slot.ConsultationID]
		}
	}
	dash.Availability = slots
	return dash, nil
}

// CancelOwn withdraws the caller's own pending booking. Checks run in order:
// existence, ownership, then status.
func (s *ConsultationService) CancelOwn(ctx context.Context, caller *models.Identity, id string) error {
	if caller == nil {
		return newError(ErrUnauthorized, "Unauthorized or invalid user")
	}
	if id == "" {
		return invalid("id", "Consultation id is required")
	}

	c, err := s.consultations.GetConsultation(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return newError(ErrNotFound, "Consultation not found")
	}
	if err != nil {
		return fmt.Errorf("load consultation: %w", err)
	}
	if c.UserID != caller.ID {
		return newError(ErrForbidden, "Forbidden: not your consultation")
	}
	if !c.OwnerCanCancel() {
		return newError(ErrPreconditionFailed, "Only pending consultations can be cancelled")
	}

	if err := s.consultations.DeleteConsultation(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return newError(ErrNotFound, "Consultation not found")
		}
		return fmt.Errorf("delete consultation: %w", err)
	}
	if c.SlotID != "" {
		if err := s.slots.ReleaseAvailabilitySlot(ctx, c.SlotID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("slot_id", c.SlotID).Msg("failed to release slot")
		}
	}

	c.Status = models.StatusCancelled
	s.publishEvent(events.EventConsultationCancelled, c, caller.ID, models.StatusPending)
	s.enqueueSync(ctx, models.SyncTaskDelete, c)
	return nil
}

// AdminUpdate is a partial admin mutation.
type AdminUpdate = models.ConsultationPatch

// Update applies an admin mutation in a single store write and returns the
// fresh record.
func (s *ConsultationService) Update(ctx context.Context, caller *models.Identity, id string, upd AdminUpdate) (*models.Consultation, error) {
	admin, err := requireAdmin(ctx, s.users, caller)
	if err != nil {
		return nil, err
	}
	if upd.Empty() {
		return nil, invalid("status", "Nothing to update")
	}
	if upd.Status != nil && !models.IsValidStatus(*upd.Status) {
		return nil, invalid("status", "Invalid status")
	}

	before, err := s.consultations.GetConsultation(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, newError(ErrNotFound, "Consultation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load consultation: %w", err)
	}

	if err := s.consultations.UpdateConsultation(ctx, id, upd); err != nil {
		return nil, s.mutationError(err)
	}

	after := *before
	if upd.Status != nil {
		after.Status = *upd.Status
	}
	if upd.HasPaid != nil {
		after.HasPaid = *upd.HasPaid
	}
	if after.Status != before.Status {
		s.publishEvent(events.EventConsultationStatusChanged, &after, admin.ID, before.Status)
	}
	if after.HasPaid != before.HasPaid {
		s.publishEvent(events.EventConsultationPaid, &after, admin.ID, "")
	}

	s.enqueueSync(ctx, models.SyncTaskUpsert, &after)
	return &after, nil
}

// UpdateStatus sets the status of any consultation. Admin only.
func (s *ConsultationService) UpdateStatus(ctx context.Context, caller *models.Identity, id, status string) (*models.Consultation, error) {
	return s.Update(ctx, caller, id, AdminUpdate{Status: &status})
}

// MarkPaid sets the payment flag of any consultation. Admin only.
func (s *ConsultationService) MarkPaid(ctx context.Context, caller *models.Identity, id string, paid bool) (*models.Consultation, error) {
	return s.Update(ctx, caller, id, AdminUpdate{HasPaid: &paid})
}

// ExportAll returns every consultation for an admin export.
func (s *ConsultationService) ExportAll(ctx context.Context, caller *models.Identity) ([]*models.Consultation, error) {
	if _, err := requireAdmin(ctx, s.users, caller); err != nil {
		return nil, err
	}
	list, err := s.consultations.GetAllConsultations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	return list, nil
}

func (s *ConsultationService) mutationError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return newError(ErrNotFound, "Consultation not found")
	}
	return fmt.Errorf("update consultation: %w", err)
}

func (s *ConsultationService) publishEvent(eventType string, c *models.Consultation, changedBy, previousStatus string) {
	if s.eventBus == nil {
		return
	}

	payload := events.ConsultationEventPayload{
		ConsultationID:   c.ID,
		UserID:           c.UserID,
		FullName:         c.FullName,
		Email:            c.Email,
		Contact:          c.Contact,
		ConsultationType: c.ConsultationType,
		Date:             c.Date,
		Time:             c.Time,
		Status:           c.Status,
		PreviousStatus:   previousStatus,
		HasPaid:          c.HasPaid,
		SlotID:           c.SlotID,
		ChangedBy:        changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("consultation_id", c.ID).Msg("publish event error")
	}
}

func (s *ConsultationService) enqueueSync(ctx context.Context, taskType string, c *models.Consultation) {
	if s.sheetsWorker == nil {
		return
	}
	snapshot := *c
	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, c.ID, &snapshot); err != nil {
		s.logger.Error().Err(err).Str("consultation_id", c.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
