package domain

import "time"

type Delivery struct {
	ID                    uint
	OrderID               uint
	CourierID             *uint
	Status                OrderStatus
	AssignedAt            *time.Time
	EstimatedDeliveryTime *time.Time
	DeliveryTime          *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (d Delivery) HasCourier() bool {
	return d.CourierID != nil
}

type Courier struct {
	ID               uint
	Name             string
	PostalCode       *string
	IsAvailable      bool
	LastDeliveryTime *time.Time
}
