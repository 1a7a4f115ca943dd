package service

import (
	"context"
	"fmt"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"
)

type StotraService struct {
	stotras domain.StotraStore
}

func NewStotraService(stotras domain.StotraStore) *StotraService {
	return &StotraService{stotras: stotras}
}

// Catalog filters the content catalog. Facets are computed over the whole
// catalog so the filter controls do not shrink as filters are applied.
func (s *StotraService) Catalog(ctx context.Context, filter models.StotraFilter) (*models.StotraCatalog, error) {
	all, err := s.stotras.GetAllStotras(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stotras: %w", err)
	}

	matched := make([]*models.Stotra, 0, len(all))
	for _, st := range all {
		if filter.Match(st) {
			matched = append(matched, st)
		}
	}

	categories := append([]string{models.AllCategories}, models.UniqueCategories(all)...)
	return &models.StotraCatalog{
		Stotras:    matched,
		Symptoms:   models.UniqueSymptoms(all),
		Categories: categories,
	}, nil
}
