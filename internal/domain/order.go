package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending            OrderStatus = "PENDING"
	OrderStatusBeingPrepared      OrderStatus = "BEING_PREPARED"
	OrderStatusWaitingForDelivery OrderStatus = "WAITING_FOR_DELIVERY_PERSONNEL"
	OrderStatusBeingDelivered     OrderStatus = "BEING_DELIVERED"
	OrderStatusDelivered          OrderStatus = "DELIVERED"
	OrderStatusCancelled          OrderStatus = "CANCELLED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// IsActive reports whether a delivery in this status still holds its courier.
func (s OrderStatus) IsActive() bool {
	return s == OrderStatusBeingPrepared || s == OrderStatusBeingDelivered
}

type Order struct {
	ID                 uint
	CustomerID         uint
	Status             OrderStatus
	TotalPrice         decimal.Decimal
	DiscountPercentage decimal.Decimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Items              []OrderItem
}

type OrderItem struct {
	ID         uint
	OrderID    uint
	MenuItemID uint
	Name       string
	Category   MenuCategory
	Quantity   int
	UnitPrice  decimal.Decimal
	IsFree     bool
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PaidPizzaQuantity counts pizzas that feed the loyalty counter. Birthday
// items are excluded.
func (o Order) PaidPizzaQuantity() int {
	total := 0
	for _, item := range o.Items {
		if item.Category == CategoryPizza && !item.IsFree {
			total += item.Quantity
		}
	}
	return total
}

// PreparedUnits counts pizza and dessert units for the kitchen estimate.
func (o Order) PreparedUnits() int {
	total := 0
	for _, item := range o.Items {
		if item.Category == CategoryPizza || item.Category == CategoryDessert {
			total += item.Quantity
		}
	}
	return total
}

// OrderSummary is a history row: the order with its courier, if any.
type OrderSummary struct {
	ID                    uint
	Status                OrderStatus
	TotalPrice            decimal.Decimal
	DiscountPercentage    decimal.Decimal
	CreatedAt             time.Time
	CourierName           *string
	EstimatedDeliveryTime *time.Time
	DeliveryTime          *time.Time
}
