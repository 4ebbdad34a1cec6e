package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountCode struct {
	Code               string
	DiscountPercentage decimal.Decimal
	CreatedAt          time.Time
}

type DiscountCodeUsage struct {
	CustomerID uint
	Code       string
	IsUsed     bool
}

type OrderConfirmation struct {
	ID                    uint
	OrderID               uint
	Reference             string
	Message               string
	EstimatedDeliveryTime time.Time
	CreatedAt             time.Time
}
