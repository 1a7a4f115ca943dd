package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"consultdesk/internal/models"

	"github.com/google/uuid"
)

func (db *DB) GetAllStotras(ctx context.Context) ([]*models.Stotra, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, title, description, content, category, symptoms, benefits, created_at
		 FROM stotras ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get stotras: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Stotra, 0)
	for rows.Next() {
		s := &models.Stotra{}
		var symptoms, benefits string
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Content, &s.Category,
			&symptoms, &benefits, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stotra: %w", err)
		}
		if err := json.Unmarshal([]byte(symptoms), &s.Symptoms); err != nil {
			return nil, fmt.Errorf("failed to decode symptoms of %s: %w", s.ID, err)
		}
		if err := json.Unmarshal([]byte(benefits), &s.Benefits); err != nil {
			return nil, fmt.Errorf("failed to decode benefits of %s: %w", s.ID, err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// UpsertStotra inserts or replaces a catalog entry, keeping its created_at.
func (db *DB) UpsertStotra(ctx context.Context, s *models.Stotra) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	symptoms, err := json.Marshal(nonNil(s.Symptoms))
	if err != nil {
		return fmt.Errorf("failed to encode symptoms: %w", err)
	}
	benefits, err := json.Marshal(nonNil(s.Benefits))
	if err != nil {
		return fmt.Errorf("failed to encode benefits: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO stotras (id, title, description, content, category, symptoms, benefits, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			content = excluded.content,
			category = excluded.category,
			symptoms = excluded.symptoms,
			benefits = excluded.benefits`,
		s.ID, s.Title, s.Description, s.Content, s.Category, string(symptoms), string(benefits), s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stotra: %w", err)
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
