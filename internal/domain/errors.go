package domain

import "errors"

// Store backends and verifiers translate their driver-specific errors into these.
var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record state conflict")
	ErrInvalidToken = errors.New("invalid token")
)
