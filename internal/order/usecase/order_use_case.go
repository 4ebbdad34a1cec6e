package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
	"pizzeria/internal/infrastructure/mysql"
	"pizzeria/internal/order/service"
)

const (
	maxLines    = 50
	maxQuantity = 99
)

type Lifecycle interface {
	Create(ctx context.Context, input service.CreateOrderInput) (*service.CreateOrderResult, error)
	Cancel(ctx context.Context, orderID, customerID uint) (*domain.Order, error)
	CompleteDelivery(ctx context.Context, deliveryID uint) (*domain.Delivery, error)
	GetOrder(ctx context.Context, orderID, customerID uint) (*service.OrderDetails, error)
	StatusView(ctx context.Context, orderID, customerID uint) (*service.StatusView, error)
	ListCustomerOrders(ctx context.Context, customerID uint) ([]domain.OrderSummary, error)
}

// OrderUseCase validates input outside any transaction and retries the
// lifecycle writes on deadlocks.
type OrderUseCase struct {
	lifecycle        Lifecycle
	logger           *zap.Logger
	maxRetryAttempts int
	backoffs         []time.Duration
}

func NewOrderUseCase(lifecycle Lifecycle, logger *zap.Logger, maxRetryAttempts int) *OrderUseCase {
	if maxRetryAttempts <= 0 {
		maxRetryAttempts = 1
	}
	return &OrderUseCase{
		lifecycle:        lifecycle,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		// attempt 1 (0ms), attempt 2 (100ms), attempt 3 (200ms), then 200ms
		backoffs: []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond},
	}
}

func (uc *OrderUseCase) CreateOrder(ctx context.Context, input service.CreateOrderInput) (*service.CreateOrderResult, error) {
	uc.logger.Info("create order started", zap.Uint("customerId", input.CustomerID), zap.Int("lineCount", len(input.Lines)))

	lines, err := normalizeLines(input.Lines)
	if err != nil {
		return nil, err
	}
	input.Lines = lines

	return withRetry(ctx, uc, "create order", func() (*service.CreateOrderResult, error) {
		return uc.lifecycle.Create(ctx, input)
	})
}

// normalizeLines merges repeated menu items and sorts by id so concurrent
// orders read menu rows in the same order.
func normalizeLines(lines []service.LineItem) ([]service.LineItem, error) {
	if len(lines) == 0 {
		return nil, apperrors.NewValidationError("items is required", apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}
	if len(lines) > maxLines {
		msg := fmt.Sprintf("items exceeds maximum of %d", maxLines)
		return nil, apperrors.NewValidationError(msg, apperrors.ValidationDetail{Field: "items", Message: msg})
	}

	merged := make(map[uint]int, len(lines))
	for i, line := range lines {
		if line.MenuItemID == 0 {
			return nil, apperrors.NewValidationError("invalid menu item", apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d].menuItemId", i),
				Message: "menuItemId must be a positive integer",
			})
		}
		if line.Quantity <= 0 || line.Quantity > maxQuantity {
			return nil, apperrors.NewValidationError("invalid quantity", apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: fmt.Sprintf("quantity must be between 1 and %d", maxQuantity),
			})
		}
		merged[line.MenuItemID] += line.Quantity
	}

	out := make([]service.LineItem, 0, len(merged))
	for id, qty := range merged {
		if qty > maxQuantity {
			msg := fmt.Sprintf("menu item %d ordered %d times, maximum is %d", id, qty, maxQuantity)
			return nil, apperrors.NewValidationError("invalid quantity", apperrors.ValidationDetail{
				Field:   "items",
				Message: msg,
			})
		}
		out = append(out, service.LineItem{MenuItemID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MenuItemID < out[j].MenuItemID })
	return out, nil
}

func (uc *OrderUseCase) CancelOrder(ctx context.Context, orderID, customerID uint) (*domain.Order, error) {
	return withRetry(ctx, uc, "cancel order", func() (*domain.Order, error) {
		return uc.lifecycle.Cancel(ctx, orderID, customerID)
	})
}

func (uc *OrderUseCase) CompleteDelivery(ctx context.Context, deliveryID uint) (*domain.Delivery, error) {
	return withRetry(ctx, uc, "complete delivery", func() (*domain.Delivery, error) {
		return uc.lifecycle.CompleteDelivery(ctx, deliveryID)
	})
}

func (uc *OrderUseCase) GetOrder(ctx context.Context, orderID, customerID uint) (*service.OrderDetails, error) {
	return uc.lifecycle.GetOrder(ctx, orderID, customerID)
}

func (uc *OrderUseCase) OrderStatus(ctx context.Context, orderID, customerID uint) (*service.StatusView, error) {
	return uc.lifecycle.StatusView(ctx, orderID, customerID)
}

func (uc *OrderUseCase) ListCustomerOrders(ctx context.Context, customerID uint) ([]domain.OrderSummary, error) {
	return uc.lifecycle.ListCustomerOrders(ctx, customerID)
}

func withRetry[T any](ctx context.Context, uc *OrderUseCase, op string, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 1; attempt <= uc.maxRetryAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !mysql.IsRetryable(err) {
			return zero, err
		}
		if attempt == uc.maxRetryAttempts {
			break
		}

		uc.logger.Warn("deadlock detected, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", uc.maxRetryAttempts),
		)
		if err := uc.sleep(ctx, attempt); err != nil {
			return zero, err
		}
	}

	return zero, apperrors.NewDeadlockError(fmt.Sprintf("%s: max retries exceeded", op))
}

// sleep waits the backoff for attempt with ±20% jitter.
func (uc *OrderUseCase) sleep(ctx context.Context, attempt int) error {
	base := uc.backoffs[len(uc.backoffs)-1]
	if attempt < len(uc.backoffs) {
		base = uc.backoffs[attempt]
	}
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(float64(base) * (rand.Float64()*0.4 - 0.2))

	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
