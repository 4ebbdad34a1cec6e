package menu

import (
	"context"

	"github.com/shopspring/decimal"

	"pizzeria/internal/domain"
)

type Service interface {
	ListMenu(ctx context.Context, category domain.MenuCategory) (*MenuResponse, error)
}

type Repository interface {
	List(ctx context.Context, category domain.MenuCategory) ([]domain.MenuItem, error)
}

type Pricer interface {
	FinalUnitPrice(basePrice decimal.Decimal) decimal.Decimal
}
