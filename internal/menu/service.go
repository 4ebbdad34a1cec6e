package menu

import (
	"context"

	"pizzeria/internal/domain"
)

type menuService struct {
	repo   Repository
	pricer Pricer
}

func NewService(repo Repository, pricer Pricer) Service {
	return &menuService{repo: repo, pricer: pricer}
}

func (s *menuService) ListMenu(ctx context.Context, category domain.MenuCategory) (*MenuResponse, error) {
	items, err := s.repo.List(ctx, category)
	if err != nil {
		return nil, err
	}

	resp := &MenuResponse{Items: make([]MenuItemDTO, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, MenuItemDTO{
			ID:           item.ID,
			Name:         item.Name,
			Category:     string(item.Category),
			BasePrice:    item.BasePrice,
			FinalPrice:   s.pricer.FinalUnitPrice(item.BasePrice),
			IsVegetarian: item.IsVegetarian,
			IsVegan:      item.IsVegan,
		})
	}
	return resp, nil
}
