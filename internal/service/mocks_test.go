package service

import (
	"context"

	"consultdesk/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockStore) InsertUserIfNotExists(ctx context.Context, u *models.User) (bool, error) {
	args := m.Called(ctx, u)
	return args.Bool(0), args.Error(1)
}
func (m *mockStore) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}
func (m *mockStore) CreateConsultation(ctx context.Context, c *models.Consultation) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockStore) GetConsultation(ctx context.Context, id string) (*models.Consultation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Consultation), args.Error(1)
}
func (m *mockStore) GetConsultationsByUser(ctx context.Context, userID string) ([]*models.Consultation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Consultation), args.Error(1)
}
func (m *mockStore) GetAllConsultations(ctx context.Context) ([]*models.Consultation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Consultation), args.Error(1)
}
func (m *mockStore) UpdateConsultation(ctx context.Context, id string, patch models.ConsultationPatch) error {
	return m.Called(ctx, id, patch).Error(0)
}
func (m *mockStore) DeleteConsultation(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) GetAllAvailability(ctx context.Context) ([]*models.AvailabilitySlot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AvailabilitySlot), args.Error(1)
}
func (m *mockStore) GetAvailabilitySlot(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AvailabilitySlot), args.Error(1)
}
func (m *mockStore) CreateAvailabilitySlot(ctx context.Context, s *models.AvailabilitySlot) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockStore) DeleteAvailabilitySlot(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) MarkAvailabilityAsBooked(ctx context.Context, id, consultationID string) error {
	return m.Called(ctx, id, consultationID).Error(0)
}
func (m *mockStore) ReleaseAvailabilitySlot(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) GetAllStotras(ctx context.Context) ([]*models.Stotra, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Stotra), args.Error(1)
}
func (m *mockStore) UpsertStotra(ctx context.Context, s *models.Stotra) error {
	return m.Called(ctx, s).Error(0)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType, consultationID string, c *models.Consultation) error {
	return m.Called(ctx, taskType, consultationID, c).Error(0)
}
