package controller

import (
	"time"

	"github.com/shopspring/decimal"

	"pizzeria/internal/domain"
	"pizzeria/internal/order/service"
)

type CreateOrderRequest struct {
	Items        []OrderLineRequest `json:"items"`
	DiscountCode string             `json:"discountCode"`
}

type OrderLineRequest struct {
	MenuItemID uint `json:"menuItemId"`
	Quantity   int  `json:"quantity"`
}

type OrderItemResponse struct {
	MenuItemID uint            `json:"menuItemId"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	IsFree     bool            `json:"isFree"`
}

type DeliveryResponse struct {
	ID                    uint       `json:"id"`
	CourierID             *uint      `json:"courierId"`
	Status                string     `json:"status"`
	AssignedAt            *time.Time `json:"assignedAt,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimatedDeliveryTime,omitempty"`
	DeliveryTime          *time.Time `json:"deliveryTime,omitempty"`
}

type ConfirmationResponse struct {
	Reference             string    `json:"reference"`
	Message               string    `json:"message"`
	EstimatedDeliveryTime time.Time `json:"estimatedDeliveryTime"`
}

type OrderResponse struct {
	ID                 uint                  `json:"id"`
	CustomerID         uint                  `json:"customerId"`
	Status             string                `json:"status"`
	TotalPrice         decimal.Decimal       `json:"totalPrice"`
	DiscountPercentage decimal.Decimal       `json:"discountPercentage"`
	CreatedAt          time.Time             `json:"createdAt"`
	Items              []OrderItemResponse   `json:"items"`
	Delivery           *DeliveryResponse     `json:"delivery,omitempty"`
	Confirmation       *ConfirmationResponse `json:"confirmation,omitempty"`
}

type StatusResponse struct {
	OrderID               uint       `json:"orderId"`
	Status                string     `json:"status"`
	DeliveryPersonnel     string     `json:"deliveryPersonnel"`
	EstimatedDeliveryTime *time.Time `json:"estimatedDeliveryTime"`
	TimeTillDelivery      string     `json:"timeTillDelivery"`
}

type OrderSummaryResponse struct {
	ID                    uint            `json:"id"`
	Status                string          `json:"status"`
	TotalPrice            decimal.Decimal `json:"totalPrice"`
	DiscountPercentage    decimal.Decimal `json:"discountPercentage"`
	CreatedAt             time.Time       `json:"createdAt"`
	DeliveryPersonnel     *string         `json:"deliveryPersonnel"`
	EstimatedDeliveryTime *time.Time      `json:"estimatedDeliveryTime,omitempty"`
	DeliveryTime          *time.Time      `json:"deliveryTime,omitempty"`
}

type ListOrdersResponse struct {
	Orders []OrderSummaryResponse `json:"orders"`
}

func toOrderResponse(order *domain.Order, delivery *domain.Delivery, confirmation *domain.OrderConfirmation) OrderResponse {
	resp := OrderResponse{
		ID:                 order.ID,
		CustomerID:         order.CustomerID,
		Status:             string(order.Status),
		TotalPrice:         order.TotalPrice,
		DiscountPercentage: order.DiscountPercentage,
		CreatedAt:          order.CreatedAt,
		Items:              make([]OrderItemResponse, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Category:   string(item.Category),
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			IsFree:     item.IsFree,
		})
	}
	if delivery != nil {
		resp.Delivery = toDeliveryResponse(delivery)
	}
	if confirmation != nil {
		resp.Confirmation = &ConfirmationResponse{
			Reference:             confirmation.Reference,
			Message:               confirmation.Message,
			EstimatedDeliveryTime: confirmation.EstimatedDeliveryTime,
		}
	}
	return resp
}

func toDeliveryResponse(d *domain.Delivery) *DeliveryResponse {
	return &DeliveryResponse{
		ID:                    d.ID,
		CourierID:             d.CourierID,
		Status:                string(d.Status),
		AssignedAt:            d.AssignedAt,
		EstimatedDeliveryTime: d.EstimatedDeliveryTime,
		DeliveryTime:          d.DeliveryTime,
	}
}

func toStatusResponse(v *service.StatusView) StatusResponse {
	return StatusResponse{
		OrderID:               v.OrderID,
		Status:                string(v.Status),
		DeliveryPersonnel:     v.CourierName,
		EstimatedDeliveryTime: v.EstimatedDeliveryTime,
		TimeTillDelivery:      v.TimeTillDelivery,
	}
}

func toListResponse(summaries []domain.OrderSummary) ListOrdersResponse {
	resp := ListOrdersResponse{Orders: make([]OrderSummaryResponse, 0, len(summaries))}
	for _, s := range summaries {
		resp.Orders = append(resp.Orders, OrderSummaryResponse{
			ID:                    s.ID,
			Status:                string(s.Status),
			TotalPrice:            s.TotalPrice,
			DiscountPercentage:    s.DiscountPercentage,
			CreatedAt:             s.CreatedAt,
			DeliveryPersonnel:     s.CourierName,
			EstimatedDeliveryTime: s.EstimatedDeliveryTime,
			DeliveryTime:          s.DeliveryTime,
		})
	}
	return resp
}
