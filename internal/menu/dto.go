package menu

import "github.com/shopspring/decimal"

type MenuResponse struct {
	Items []MenuItemDTO `json:"items"`
}

type MenuItemDTO struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	BasePrice    decimal.Decimal `json:"basePrice"`
	FinalPrice   decimal.Decimal `json:"finalPrice"`
	IsVegetarian bool            `json:"isVegetarian"`
	IsVegan      bool            `json:"isVegan"`
}
