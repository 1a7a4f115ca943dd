package domain

import (
	"context"
	"time"

	"consultdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// InsertUserIfNotExists creates the user unless a row with the same id is
	// already present. It reports whether a row was created.
	InsertUserIfNotExists(ctx context.Context, user *models.User) (bool, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
}

type ConsultationStore interface {
	CreateConsultation(ctx context.Context, c *models.Consultation) error
	GetConsultation(ctx context.Context, id string) (*models.Consultation, error)
	GetConsultationsByUser(ctx context.Context, userID string) ([]*models.Consultation, error)
	// GetAllConsultations returns every row, newest first, with UserEmail set.
	GetAllConsultations(ctx context.Context) ([]*models.Consultation, error)
	// UpdateConsultation writes the non-nil fields of patch atomically.
	UpdateConsultation(ctx context.Context, id string, patch models.ConsultationPatch) error
	DeleteConsultation(ctx context.Context, id string) error
}

type AvailabilityStore interface {
	GetAllAvailability(ctx context.Context) ([]*models.AvailabilitySlot, error)
	GetAvailabilitySlot(ctx context.Context, id string) (*models.AvailabilitySlot, error)
	CreateAvailabilitySlot(ctx context.Context, slot *models.AvailabilitySlot) error
	DeleteAvailabilitySlot(ctx context.Context, id string) error
	MarkAvailabilityAsBooked(ctx context.Context, id string, consultationID string) error
	ReleaseAvailabilitySlot(ctx context.Context, id string) error
}

type StotraStore interface {
	GetAllStotras(ctx context.Context) ([]*models.Stotra, error)
	UpsertStotra(ctx context.Context, s *models.Stotra) error
}

// Store is the hosted-store capability injected into services.
type Store interface {
	UserStore
	ConsultationStore
	AvailabilityStore
	StotraStore
	Ping(ctx context.Context) error
	Close() error
}

// TokenVerifier validates a bearer token against the auth provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.Identity, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type RateLimitRepository interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	UpsertConsultation(ctx context.Context, c *models.Consultation) error
	DeleteConsultationRow(ctx context.Context, consultationID string) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, consultationID string, c *models.Consultation) error
}

// CacheRepository stores opaque values with a TTL. A miss returns ok=false.
type CacheRepository interface {
	GetCache(ctx context.Context, key string) (value []byte, ok bool, err error)
	SetCache(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteCache(ctx context.Context, key string) error
}

// CounterRepository is the full capability of a repository backend.
type CounterRepository interface {
	RateLimitRepository
	CacheRepository
}
