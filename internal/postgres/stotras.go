package postgres

import (
	"context"
	"fmt"

	"consultdesk/internal/models"

	"github.com/google/uuid"
)

func (s *Store) GetAllStotras(ctx context.Context) ([]*models.Stotra, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, description, content, category, symptoms, benefits, created_at
		FROM stotras ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get stotras: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Stotra, 0)
	for rows.Next() {
		st := &models.Stotra{}
		if err := rows.Scan(&st.ID, &st.Title, &st.Description, &st.Content, &st.Category,
			&st.Symptoms, &st.Benefits, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stotra: %w", err)
		}
		list = append(list, st)
	}
	return list, rows.Err()
}

func (s *Store) UpsertStotra(ctx context.Context, st *models.Stotra) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	symptoms := st.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}
	benefits := st.Benefits
	if benefits == nil {
		benefits = []string{}
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO stotras (id, title, description, content, category, symptoms, benefits)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			content = EXCLUDED.content,
			category = EXCLUDED.category,
			symptoms = EXCLUDED.symptoms,
			benefits = EXCLUDED.benefits
		RETURNING created_at
	`, st.ID, st.Title, st.Description, st.Content, st.Category, symptoms, benefits).Scan(&st.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert stotra: %w", err)
	}
	return nil
}
