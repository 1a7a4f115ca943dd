package models

import "time"

type User struct {
	ID        string    `json:"id"`    // identity id issued by the auth provider
	Email     string    `json:"email"` // may be empty for phone-only sign-ins
	Phone     string    `json:"phone"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is the verified caller extracted from a bearer token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
