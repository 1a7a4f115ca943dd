package models

import "time"

// SyncTask represents a queued synchronization job for Sheets.
type SyncTask struct {
	TaskType       string        `json:"task_type"`
	ConsultationID string        `json:"consultation_id"`
	Consultation   *Consultation `json:"consultation,omitempty"`
	RetryCount     int           `json:"retry_count"`
	LastError      string        `json:"last_error,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	NextRetryAt    time.Time     `json:"next_retry_at"`
}

// Sync task kinds understood by the spreadsheet worker.
const (
	SyncTaskUpsert = "upsert"
	SyncTaskDelete = "delete"
)
