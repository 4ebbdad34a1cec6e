package service

import (
	"context"
	"fmt"
	"time"

	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
)

const (
	AwaitingAssignment = "Awaiting assignment"
	Calculating        = "Calculating..."
	AnyMinuteNow       = "Any minute now!"
)

type OrderDetails struct {
	Order        *domain.Order
	Delivery     *domain.Delivery
	Confirmation *domain.OrderConfirmation
}

type StatusView struct {
	OrderID               uint
	Status                domain.OrderStatus
	CourierName           string
	EstimatedDeliveryTime *time.Time
	TimeTillDelivery      string
}

func (s *LifecycleService) ownedOrder(ctx context.Context, orderID, customerID uint) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, apperrors.NewPermissionError(fmt.Sprintf("order %d belongs to another customer", orderID))
	}
	return order, nil
}

// optionalDelivery returns nil when the order has no delivery row.
func (s *LifecycleService) optionalDelivery(ctx context.Context, orderID uint) (*domain.Delivery, error) {
	delivery, err := s.deliveries.FindByOrderID(ctx, orderID)
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return nil, nil
	}
	return delivery, err
}

func (s *LifecycleService) GetOrder(ctx context.Context, orderID, customerID uint) (*OrderDetails, error) {
	order, err := s.ownedOrder(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}

	order.Items, err = s.items.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	delivery, err := s.optionalDelivery(ctx, orderID)
	if err != nil {
		return nil, err
	}

	confirmation, err := s.confirmations.FindByOrderID(ctx, orderID)
	if _, ok := apperrors.IsNotFoundError(err); ok {
		confirmation, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &OrderDetails{Order: order, Delivery: delivery, Confirmation: confirmation}, nil
}

func (s *LifecycleService) StatusView(ctx context.Context, orderID, customerID uint) (*StatusView, error) {
	order, err := s.ownedOrder(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}

	view := &StatusView{OrderID: order.ID, Status: order.Status, CourierName: AwaitingAssignment}

	delivery, err := s.optionalDelivery(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if delivery != nil {
		view.EstimatedDeliveryTime = delivery.EstimatedDeliveryTime
		if delivery.HasCourier() {
			courier, err := s.couriers.FindByID(ctx, *delivery.CourierID)
			if err != nil {
				return nil, err
			}
			view.CourierName = courier.Name
		}
	}
	view.TimeTillDelivery = TimeTillDelivery(view.EstimatedDeliveryTime, s.clock())

	return view, nil
}

// TimeTillDelivery renders the remaining time as "1h 5m" or "12m".
func TimeTillDelivery(eta *time.Time, now time.Time) string {
	if eta == nil {
		return Calculating
	}
	remaining := eta.Sub(now)
	if remaining <= 0 {
		return AnyMinuteNow
	}

	total := int(remaining.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func (s *LifecycleService) ListCustomerOrders(ctx context.Context, customerID uint) ([]domain.OrderSummary, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}
