package models

import (
	"strings"
	"time"
)

type Consultation struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	FullName         string    `json:"fullname"`
	Email            string    `json:"email"`
	ConsultationType string    `json:"consultation_type"` // astrology, vastu
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	Address          string    `json:"address"`
	Contact          string    `json:"contact"`
	DetailedMessage  string    `json:"detailed_message"`
	HasPaid          bool      `json:"has_paid"`
	Status           string    `json:"status"` // pending, confirmed, completed, cancelled
	SlotID           string    `json:"slot_id,omitempty"`
	UserEmail        string    `json:"user_email,omitempty"` // joined owner email, admin listings only
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OwnerCanCancel reports whether the owner may still withdraw the booking.
func (c *Consultation) OwnerCanCancel() bool {
	return c.Status == StatusPending
}

// ConsultationPatch is a partial admin update. Nil fields are left unchanged.
type ConsultationPatch struct {
	Status  *string
	HasPaid *bool
}

func (p ConsultationPatch) Empty() bool {
	return p.Status == nil && p.HasPaid == nil
}

// ConsultationInput is the booking request body. It accepts both the canonical
// keys and the older browser-form keys (name, preferred_date, preferred_time,
// phone, message).
type ConsultationInput struct {
	UserID           string  `json:"user_id"`
	FullName         string  `json:"fullname"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	ConsultationType string  `json:"consultation_type"`
	Date             string  `json:"date"`
	PreferredDate    string  `json:"preferred_date"`
	Time             string  `json:"time"`
	PreferredTime    string  `json:"preferred_time"`
	Address          string  `json:"address"`
	Contact          string  `json:"contact"`
	Phone            string  `json:"phone"`
	DetailedMessage  string  `json:"detailed_message"`
	Message          string  `json:"message"`
	Status           *string `json:"status"`
	HasPaid          *bool   `json:"has_paid"`
	SlotID           string  `json:"slot_id"`
}

// Normalize trims every field and folds legacy keys into the canonical ones.
// Canonical keys win when both are present.
func (in ConsultationInput) Normalize() ConsultationInput {
	out := ConsultationInput{
		UserID:           strings.TrimSpace(in.UserID),
		FullName:         firstNonEmpty(in.FullName, in.Name),
		Email:            strings.TrimSpace(in.Email),
		ConsultationType: strings.ToLower(strings.TrimSpace(in.ConsultationType)),
		Date:             firstNonEmpty(in.Date, in.PreferredDate),
		Time:             firstNonEmpty(in.Time, in.PreferredTime),
		Address:          strings.TrimSpace(in.Address),
		Contact:          firstNonEmpty(in.Contact, in.Phone),
		DetailedMessage:  firstNonEmpty(in.DetailedMessage, in.Message),
		HasPaid:          in.HasPaid,
		SlotID:           strings.TrimSpace(in.SlotID),
	}
	if in.Status != nil {
		s := strings.ToLower(strings.TrimSpace(*in.Status))
		out.Status = &s
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
