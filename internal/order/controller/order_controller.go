package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"pizzeria/internal/commons"
	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
	"pizzeria/internal/order/service"
)

type OrderUseCase interface {
	CreateOrder(ctx context.Context, input service.CreateOrderInput) (*service.CreateOrderResult, error)
	CancelOrder(ctx context.Context, orderID, customerID uint) (*domain.Order, error)
	CompleteDelivery(ctx context.Context, deliveryID uint) (*domain.Delivery, error)
	GetOrder(ctx context.Context, orderID, customerID uint) (*service.OrderDetails, error)
	OrderStatus(ctx context.Context, orderID, customerID uint) (*service.StatusView, error)
	ListCustomerOrders(ctx context.Context, customerID uint) ([]domain.OrderSummary, error)
}

type OrderController struct {
	useCase OrderUseCase
	logger  *zap.Logger
}

func NewOrderController(useCase OrderUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	customerID, err := commons.CustomerID(r)
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		commons.WriteValidationError(w, traceID, logger, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	lines := make([]service.LineItem, len(req.Items))
	for i, item := range req.Items {
		lines[i] = service.LineItem{MenuItemID: item.MenuItemID, Quantity: item.Quantity}
	}

	result, err := c.useCase.CreateOrder(r.Context(), service.CreateOrderInput{
		CustomerID:   customerID,
		Lines:        lines,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Delivery, result.Confirmation), logger)
}

func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	orderID, customerID, ok := c.orderAndCaller(w, r, traceID)
	if !ok {
		return
	}

	details, err := c.useCase.GetOrder(r.Context(), orderID, customerID)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, toOrderResponse(details.Order, details.Delivery, details.Confirmation), c.logger)
}

func (c *OrderController) OrderStatus(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	orderID, customerID, ok := c.orderAndCaller(w, r, traceID)
	if !ok {
		return
	}

	view, err := c.useCase.OrderStatus(r.Context(), orderID, customerID)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, toStatusResponse(view), c.logger)
}

func (c *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	orderID, customerID, ok := c.orderAndCaller(w, r, traceID)
	if !ok {
		return
	}

	order, err := c.useCase.CancelOrder(r.Context(), orderID, customerID)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, toOrderResponse(order, nil, nil), c.logger)
}

// ListCustomerOrders serves GET /customers/{customerId}/orders. Customers
// only see their own history.
func (c *OrderController) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	customerID, err := commons.PathID(r, "customerId")
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}
	callerID, err := commons.CustomerID(r)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}
	if callerID != customerID {
		commons.WriteError(w, traceID, apperrors.NewForbiddenError("cannot read another customer's orders"), c.logger)
		return
	}

	summaries, err := c.useCase.ListCustomerOrders(r.Context(), customerID)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, toListResponse(summaries), c.logger)
}

func (c *OrderController) CompleteDelivery(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	deliveryID, err := commons.PathID(r, "deliveryId")
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	delivery, err := c.useCase.CompleteDelivery(r.Context(), deliveryID)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, toDeliveryResponse(delivery), c.logger)
}

func (c *OrderController) orderAndCaller(w http.ResponseWriter, r *http.Request, traceID string) (uint, uint, bool) {
	orderID, err := commons.PathID(r, "orderId")
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return 0, 0, false
	}
	customerID, err := commons.CustomerID(r)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return 0, 0, false
	}
	return orderID, customerID, true
}
