package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/supabase-community/postgrest-go"
)

const (
	tableUsers         = "users"
	tableConsultations = "consultations"
	tableAvailability  = "availability"
	tableStotras       = "stotras"

	returnRepresentation = "representation"
	catalogCacheKey      = "stotras:all"
)

// Store implements domain.Store on top of PostgREST.
type Store struct {
	client   *Client
	cache    domain.CacheRepository
	cacheTTL time.Duration
	logger   zerolog.Logger
}

var _ domain.Store = (*Store)(nil)

func NewStore(client *Client) *Store {
	return &Store{client: client, logger: client.logger}
}

// UseCache enables a read-through cache for the content catalog.
func (s *Store) UseCache(cache domain.CacheRepository, ttl time.Duration) {
	s.cache = cache
	s.cacheTTL = ttl
}

var (
	newestFirst = &postgrest.OrderOpts{Ascending: false}
	oldestFirst = &postgrest.OrderOpts{Ascending: true}
)

func (s *Store) from(table string) *postgrest.QueryBuilder {
	return s.client.rest.From(table)
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *Store) Close() error { return s.client.Close() }

// Users

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var rows []*models.User
	q := s.from(tableUsers).Select("*", "", false).Eq("id", id)
	if err := s.client.exec(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	return rows[0], nil
}

type userInsert struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// InsertUserIfNotExists treats a primary key violation as an existing row.
func (s *Store) InsertUserIfNotExists(ctx context.Context, user *models.User) (bool, error) {
	var rows []*models.User
	q := s.from(tableUsers).Insert([]userInsert{{ID: user.ID, Email: user.Email, Phone: user.Phone}},
		false, "", returnRepresentation, "")
	err := s.client.exec(ctx, q, &rows)
	if errors.Is(err, domain.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert user: %w", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	*user = *rows[0]
	return true, nil
}

func (s *Store) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	rows := make([]*models.User, 0)
	q := s.from(tableUsers).Select("*", "", false).Order("created_at", newestFirst)
	if err := s.client.exec(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	return rows, nil
}

// Consultations

type consultationInsert struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	FullName         string  `json:"fullname"`
	Email            string  `json:"email"`
	ConsultationType string  `json:"consultation_type"`
	Date             string  `json:"date"`
	Time             string  `json:"time"`
	Address          string  `json:"address"`
	Contact          string  `json:"contact"`
	DetailedMessage  string  `json:"detailed_message"`
	HasPaid          bool    `json:"has_paid"`
	Status           string  `json:"status"`
	SlotID           *string `json:"slot_id,omitempty"`
}

// consultationRow is the admin listing shape with the owner embedded.
type consultationRow struct {
	models.Consultation
	Owner *struct {
		Email string `json:"email"`
	} `json:"users"`
}

func (s *Store) CreateConsultation(ctx context.Context, c *models.Consultation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := consultationInsert{
		ID:               c.ID,
		UserID:           c.UserID,
		FullName:         c.FullName,
		Email:            c.Email,
		ConsultationType: c.ConsultationType,
		Date:             c.Date,
		Time:             c.Time,
		Address:          c.Address,
		Contact:          c.Contact,
		DetailedMessage:  c.DetailedMessage,
		HasPaid:          c.HasPaid,
		Status:           c.Status,
	}
	if c.SlotID != "" {
		row.SlotID = &c.SlotID
	}

	var created []*models.Consultation
	q := s.from(tableConsultations).Insert([]consultationInsert{row}, false, "", returnRepresentation, "")
	if err := s.client.exec(ctx, q, &created); err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	if len(created) > 0 {
		c.CreatedAt = created[0].CreatedAt
		c.UpdatedAt = created[0].UpdatedAt
	}
	return nil
}

func (s *Store) GetConsultation(ctx context.Context, id string) (*models.Consultation, error) {
	var rows []*models.Consultation
	q := s.from(tableConsultations).Select("*", "", false).Eq("id", id)
	if err := s.client.exec(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("consultation: %w", domain.ErrNotFound)
	}
	return rows[0], nil
}

func (s *Store) GetConsultationsByUser(ctx context.Context, userID string) ([]*models.Consultation, error) {
	rows := make([]*models.Consultation, 0)
	q := s.from(tableConsultations).Select("*", "", false).Eq("user_id", userID).Order("created_at", newestFirst)
	if err := s.client.exec(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get user consultations: %w", err)
	}
	return rows, nil
}

func (s *Store) GetAllConsultations(ctx context.Context) ([]*models.Consultation, error) {
	var rows []consultationRow
	q := s.from(tableConsultations).Select("*,users:user_id(email)", "", false).Order("created_at", newestFirst)
	if err := s.client.exec(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get consultations: %w", err)
	}
	list := make([]*models.Consultation, 0, len(rows))
	for i := range rows {
		c := rows[i].Consultation
		if rows[i].Owner != nil {
			c.UserEmail = rows[i].Owner.Email
		}
		list = append(list, &c)
	}
	return list, nil
}

// affected runs a mutation and reports how many rows came back.
func (s *Store) affected(ctx context.Context, q *postgrest.FilterBuilder) (int, error) {
	var rows []json.RawMessage
	err := s.client.exec(ctx, q, &rows)
	return len(rows), err
}

// UpdateConsultation writes the non-nil fields of patch in one request.
func (s *Store) UpdateConsultation(ctx context.Context, id string, patch models.ConsultationPatch) error {
	body := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Status != nil {
		body["status"] = *patch.Status
	}
	if patch.HasPaid != nil {
		body["has_paid"] = *patch.HasPaid
	}
	n, err := s.affected(ctx, s.from(tableConsultations).Update(body, returnRepresentation, "").Eq("id", id))
	if err != nil {
		return fmt.Errorf("failed to update consultation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("consultation: %w", domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteConsultation(ctx context.Context, id string) error {
	n, err := s.affected(ctx, s.from(tableConsultations).Delete(returnRepresentation, "").Eq("id", id))
	if err != nil {
		return fmt.Errorf("failed to delete consultation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("consultation: %w", domain.ErrNotFound)
	}
	return nil
}

// Availability

type slotInsert struct {
	ID             string  `json:"id"`
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	IsBooked       bool    `json:"is_booked"`
	ConsultationID *string `json:"consultation_id,omitempty"`
}

func (s *Store) GetAllAvailability(ctx context.Context) ([]*models.AvailabilitySlot, error) {
	rows := make([]*models.AvailabilitySlot, 0)
	q := s.from(tableAvailability).Select("*", "", false).
		Order("date", oldestFirst).
		Order("created_at", oldestFirst)
	if err := s.client.exec(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	models.SortSlots(rows)
	return rows, nil
}

func (s *Store) GetAvailabilitySlot(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	var rows []*models.AvailabilitySlot
	q := s.from(tableAvailability).Select("*", "", false).Eq("id", id)
	if err := s.client.exec(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get availability slot: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("availability slot: %w", domain.ErrNotFound)
	}
	return rows[0], nil
}

func (s *Store) CreateAvailabilitySlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	row := slotInsert{ID: slot.ID, Date: slot.Date, Time: slot.Time, IsBooked: slot.IsBooked}
	if slot.ConsultationID != "" {
		row.ConsultationID = &slot.ConsultationID
	}

	var created []*models.AvailabilitySlot
	q := s.from(tableAvailability).Insert([]slotInsert{row}, false, "", returnRepresentation, "")
	if err := s.client.exec(ctx, q, &created); err != nil {
		return fmt.Errorf("failed to create availability slot: %w", err)
	}
	if len(created) > 0 {
		slot.CreatedAt = created[0].CreatedAt
	}
	return nil
}

func (s *Store) DeleteAvailabilitySlot(ctx context.Context, id string) error {
	n, err := s.affected(ctx, s.from(tableAvailability).Delete(returnRepresentation, "").
		Eq("id", id).Eq("is_booked", "false"))
	if err != nil {
		return fmt.Errorf("failed to delete availability slot: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetAvailabilitySlot(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("availability slot is booked: %w", domain.ErrConflict)
}

func (s *Store) MarkAvailabilityAsBooked(ctx context.Context, id string, consultationID string) error {
	var link any
	if consultationID != "" {
		link = consultationID
	}
	n, err := s.affected(ctx, s.from(tableAvailability).
		Update(map[string]any{"is_booked": true, "consultation_id": link}, returnRepresentation, "").
		Eq("id", id).Eq("is_booked", "false"))
	if err != nil {
		return fmt.Errorf("failed to book availability slot: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetAvailabilitySlot(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("availability slot already booked: %w", domain.ErrConflict)
}

func (s *Store) ReleaseAvailabilitySlot(ctx context.Context, id string) error {
	n, err := s.affected(ctx, s.from(tableAvailability).
		Update(map[string]any{"is_booked": false, "consultation_id": nil}, returnRepresentation, "").
		Eq("id", id))
	if err != nil {
		return fmt.Errorf("failed to release availability slot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("availability slot: %w", domain.ErrNotFound)
	}
	return nil
}

// Stotras

func (s *Store) GetAllStotras(ctx context.Context) ([]*models.Stotra, error) {
	rows := make([]*models.Stotra, 0)
	if s.readCache(ctx, catalogCacheKey, &rows) {
		return rows, nil
	}

	q := s.from(tableStotras).Select("*", "", false).Order("created_at", newestFirst)
	if err := s.client.exec(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get stotras: %w", err)
	}
	s.writeCache(ctx, catalogCacheKey, rows)
	return rows, nil
}

func (s *Store) UpsertStotra(ctx context.Context, st *models.Stotra) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	body := map[string]any{
		"id":          st.ID,
		"title":       st.Title,
		"description": st.Description,
		"content":     st.Content,
		"category":    st.Category,
		"symptoms":    nonNil(st.Symptoms),
		"benefits":    nonNil(st.Benefits),
	}
	var rows []*models.Stotra
	q := s.from(tableStotras).Upsert([]map[string]any{body}, "id", returnRepresentation, "")
	if err := s.client.exec(ctx, q, &rows); err != nil {
		return fmt.Errorf("failed to upsert stotra: %w", err)
	}
	if len(rows) > 0 {
		st.CreatedAt = rows[0].CreatedAt
	}
	if s.cache != nil {
		if err := s.cache.DeleteCache(ctx, catalogCacheKey); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
		}
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func (s *Store) readCache(ctx context.Context, key string, out any) bool {
	if s.cache == nil || s.cacheTTL <= 0 {
		return false
	}
	raw, ok, err := s.cache.GetCache(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (s *Store) writeCache(ctx context.Context, key string, val any) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := s.cache.SetCache(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to write cache")
	}
}
