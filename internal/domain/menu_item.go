package domain

import "github.com/shopspring/decimal"

type MenuCategory string

const (
	CategoryPizza   MenuCategory = "PIZZA"
	CategoryDrink   MenuCategory = "DRINK"
	CategoryDessert MenuCategory = "DESSERT"
)

func (c MenuCategory) Valid() bool {
	switch c {
	case CategoryPizza, CategoryDrink, CategoryDessert:
		return true
	}
	return false
}

type MenuItem struct {
	ID           uint
	Name         string
	Category     MenuCategory
	BasePrice    decimal.Decimal
	IsVegetarian bool
	IsVegan      bool
}
