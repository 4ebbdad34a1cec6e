package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	deliveryservice "pizzeria/internal/delivery/service"
	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
	"pizzeria/internal/infrastructure/mysql"
	"pizzeria/internal/notification"
	"pizzeria/internal/pricing"
	"pizzeria/internal/scheduler"
)

type TxManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (mysql.Tx, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, tx mysql.Tx, order domain.Order) (uint, error)
	FindByID(ctx context.Context, id uint) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, tx mysql.Tx, id uint) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tx mysql.Tx, id uint, status domain.OrderStatus) error
	ListByCustomer(ctx context.Context, customerID uint) ([]domain.OrderSummary, error)
	ListActive(ctx context.Context) ([]domain.OrderSummary, error)
}

type OrderItemRepository interface {
	Insert(ctx context.Context, tx mysql.Tx, item domain.OrderItem) (uint, error)
	ListByOrder(ctx context.Context, orderID uint) ([]domain.OrderItem, error)
	ListByOrderTx(ctx context.Context, tx mysql.Tx, orderID uint) ([]domain.OrderItem, error)
}

type ConfirmationRepository interface {
	Insert(ctx context.Context, tx mysql.Tx, confirmation domain.OrderConfirmation) (uint, error)
	FindByOrderID(ctx context.Context, orderID uint) (*domain.OrderConfirmation, error)
}

type CustomerRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Customer, error)
	FindByIDForUpdate(ctx context.Context, tx mysql.Tx, id uint) (*domain.Customer, error)
	UpdateLoyalty(ctx context.Context, tx mysql.Tx, id uint, totalPizzasOrdered int, birthdayPizzaClaimed bool) error
}

type MenuRepository interface {
	FindByIDs(ctx context.Context, tx mysql.Tx, ids []uint) ([]domain.MenuItem, error)
	FindFirstByCategory(ctx context.Context, tx mysql.Tx, category domain.MenuCategory) (*domain.MenuItem, error)
}

type DeliveryRepository interface {
	FindByOrderID(ctx context.Context, orderID uint) (*domain.Delivery, error)
	FindByID(ctx context.Context, tx mysql.Tx, id uint) (*domain.Delivery, error)
	FindByOrderIDForUpdate(ctx context.Context, tx mysql.Tx, orderID uint) (*domain.Delivery, error)
	Insert(ctx context.Context, tx mysql.Tx, delivery domain.Delivery) (uint, error)
	Update(ctx context.Context, tx mysql.Tx, delivery domain.Delivery) error
}

type CourierRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Courier, error)
}

type Assigner interface {
	Assign(ctx context.Context, tx mysql.Tx, req deliveryservice.AssignmentRequest) (*domain.Delivery, error)
	EstimateDeliveryInterval(ctx context.Context, tx mysql.Tx, req deliveryservice.AssignmentRequest, courierID *uint) (time.Duration, error)
	Release(ctx context.Context, tx mysql.Tx, courierID uint, excludeDeliveryID uint) (bool, error)
	MarkDispatched(ctx context.Context, tx mysql.Tx, courierID uint) error
}

type Ledger interface {
	Redeem(ctx context.Context, tx mysql.Tx, customerID uint, code string) (decimal.Decimal, error)
	LoyaltyPercentageFor(totalPizzasOrdered int) decimal.Decimal
}

type Pricer interface {
	FinalUnitPrice(basePrice decimal.Decimal) decimal.Decimal
}

type Scheduler interface {
	Schedule(ctx context.Context, key string, runAt time.Time, job scheduler.Job) (bool, error)
	Cancel(ctx context.Context, key string) bool
}

type LifecycleDeps struct {
	TxManager     TxManager
	Orders        OrderRepository
	Items         OrderItemRepository
	Confirmations ConfirmationRepository
	Customers     CustomerRepository
	Menu          MenuRepository
	Deliveries    DeliveryRepository
	Couriers      CourierRepository
	Assigner      Assigner
	Ledger        Ledger
	Pricer        Pricer
	Scheduler     Scheduler
	Notifier      notification.Notifier
	Logger        *zap.Logger

	DispatchDelay        time.Duration
	TxTimeout            time.Duration
	WaitingRetryInterval time.Duration
	NotifyTimeout        time.Duration

	Clock        func() time.Time
	NewReference func() string
}

type LineItem struct {
	MenuItemID uint
	Quantity   int
}

type CreateOrderInput struct {
	CustomerID   uint
	Lines        []LineItem
	DiscountCode string
}

type CreateOrderResult struct {
	Order        *domain.Order
	Delivery     *domain.Delivery
	Confirmation *domain.OrderConfirmation
}

// LifecycleService owns the order state machine. Every mutation runs in one
// transaction that locks the order row before checking its status.
type LifecycleService struct {
	txManager     TxManager
	orders        OrderRepository
	items         OrderItemRepository
	confirmations ConfirmationRepository
	customers     CustomerRepository
	menu          MenuRepository
	deliveries    DeliveryRepository
	couriers      CourierRepository
	assigner      Assigner
	ledger        Ledger
	pricer        Pricer
	scheduler     Scheduler
	notifier      notification.Notifier
	logger        *zap.Logger

	dispatchDelay        time.Duration
	txTimeout            time.Duration
	waitingRetryInterval time.Duration
	notifyTimeout        time.Duration

	clock        func() time.Time
	newReference func() string
}

func NewLifecycleService(deps LifecycleDeps) (*LifecycleService, error) {
	switch {
	case deps.TxManager == nil:
		return nil, errors.New("order lifecycle: transaction manager is required")
	case deps.Orders == nil || deps.Items == nil || deps.Confirmations == nil:
		return nil, errors.New("order lifecycle: order repositories are required")
	case deps.Customers == nil || deps.Menu == nil:
		return nil, errors.New("order lifecycle: customer and menu repositories are required")
	case deps.Deliveries == nil || deps.Couriers == nil || deps.Assigner == nil:
		return nil, errors.New("order lifecycle: delivery collaborators are required")
	case deps.Ledger == nil:
		return nil, errors.New("order lifecycle: discount ledger is required")
	case deps.Scheduler == nil:
		return nil, errors.New("order lifecycle: scheduler is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pricer := deps.Pricer
	if pricer == nil {
		pricer = pricing.NewDefaultEngine()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notification.NewLogNotifier(logger)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newReference := deps.NewReference
	if newReference == nil {
		newReference = func() string {
			return ulid.Make().String()
		}
	}

	return &LifecycleService{
		txManager:            deps.TxManager,
		orders:               deps.Orders,
		items:                deps.Items,
		confirmations:        deps.Confirmations,
		customers:            deps.Customers,
		menu:                 deps.Menu,
		deliveries:           deps.Deliveries,
		couriers:             deps.Couriers,
		assigner:             deps.Assigner,
		ledger:               deps.Ledger,
		pricer:               pricer,
		scheduler:            deps.Scheduler,
		notifier:             notifier,
		logger:               logger,
		dispatchDelay:        durationOr(deps.DispatchDelay, 10*time.Minute),
		txTimeout:            durationOr(deps.TxTimeout, 5*time.Second),
		waitingRetryInterval: durationOr(deps.WaitingRetryInterval, time.Minute),
		notifyTimeout:        durationOr(deps.NotifyTimeout, 10*time.Second),
		clock:                clock,
		newReference:         newReference,
	}, nil
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func (s *LifecycleService) begin(ctx context.Context) (context.Context, context.CancelFunc, mysql.Tx, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	tx, err := s.txManager.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		cancel()
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, nil, nil, err
	}
	return txCtx, cancel, tx, nil
}

// Create prices, persists and assigns a new order, then registers its
// forward transitions. Nothing is visible unless every step succeeds.
func (s *LifecycleService) Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	txCtx, cancel, tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	// MySQL ignores rollback after commit.
	defer tx.Rollback()

	customer, err := s.customers.FindByIDForUpdate(txCtx, tx, input.CustomerID)
	if err != nil {
		return nil, err
	}

	items, err := s.priceLines(txCtx, tx, input.Lines)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	codePercentage := decimal.Zero
	if input.DiscountCode != "" {
		codePercentage, err = s.ledger.Redeem(txCtx, tx, customer.ID, input.DiscountCode)
		if err != nil {
			return nil, err
		}
	}
	percentage := pricing.CombinePercentages(codePercentage, s.ledger.LoyaltyPercentageFor(customer.TotalPizzasOrdered))
	_, total := pricing.ApplyDiscount(subtotal, percentage)

	now := s.clock()
	if customer.BirthdayOfferAvailable(now) {
		free, err := s.birthdayItems(txCtx, tx)
		if err != nil {
			return nil, err
		}
		items = append(items, free...)
		customer.BirthdayPizzaClaimed = true
		s.logger.Info("birthday offer applied", zap.Uint("customerId", customer.ID))
	}

	order := domain.Order{
		CustomerID:         customer.ID,
		Status:             domain.OrderStatusPending,
		TotalPrice:         total,
		DiscountPercentage: percentage,
		Items:              items,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	order.ID, err = s.orders.Insert(txCtx, tx, order)
	if err != nil {
		return nil, err
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		order.Items[i].ID, err = s.items.Insert(txCtx, tx, order.Items[i])
		if err != nil {
			s.logger.Error("failed to insert order item", zap.Uint("orderId", order.ID), zap.Uint("menuItemId", order.Items[i].MenuItemID), zap.Error(err))
			return nil, err
		}
	}

	customer.TotalPizzasOrdered += order.PaidPizzaQuantity()
	if err := s.customers.UpdateLoyalty(txCtx, tx, customer.ID, customer.TotalPizzasOrdered, customer.BirthdayPizzaClaimed); err != nil {
		return nil, err
	}

	req := deliveryservice.AssignmentRequest{
		OrderID:       order.ID,
		PostalCode:    customer.PostalCode,
		PreparedUnits: order.PreparedUnits(),
	}
	delivery, err := s.assigner.Assign(txCtx, tx, req)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		delivery = &domain.Delivery{OrderID: order.ID, Status: domain.OrderStatusWaitingForDelivery}
		delivery.ID, err = s.deliveries.Insert(txCtx, tx, *delivery)
		if err != nil {
			return nil, err
		}
	}

	interval, err := s.assigner.EstimateDeliveryInterval(txCtx, tx, req, delivery.CourierID)
	if err != nil {
		return nil, err
	}
	eta := now.Add(interval)
	if delivery.EstimatedDeliveryTime != nil {
		eta = *delivery.EstimatedDeliveryTime
	}

	confirmation := domain.OrderConfirmation{
		OrderID:               order.ID,
		Reference:             s.newReference(),
		Message:               ConfirmationMessage(customer.Name, order.ID, eta),
		EstimatedDeliveryTime: eta,
		CreatedAt:             now,
	}
	confirmation.ID, err = s.confirmations.Insert(txCtx, tx, confirmation)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint("orderId", order.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("order created",
		zap.Uint("orderId", order.ID),
		zap.Uint("customerId", customer.ID),
		zap.String("totalPrice", total.StringFixed(2)),
		zap.String("discountPercentage", percentage.String()),
		zap.Bool("courierAssigned", delivery.HasCourier()),
	)

	s.scheduleForward(ctx, order.ID, now, eta)

	notification.Dispatch(s.notifier, notification.Message{
		Email:   customer.Email,
		Subject: fmt.Sprintf("Order #%d confirmed", order.ID),
		Body:    confirmation.Message,
	}, s.notifyTimeout, s.logger)

	return &CreateOrderResult{Order: &order, Delivery: delivery, Confirmation: &confirmation}, nil
}

// priceLines loads the referenced menu items and prices each line. Lines are
// expected to be merged and positive already.
func (s *LifecycleService) priceLines(ctx context.Context, tx mysql.Tx, lines []LineItem) ([]domain.OrderItem, error) {
	if len(lines) == 0 {
		return nil, apperrors.NewInvalidOrderError("order must contain at least one item")
	}

	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.MenuItemID)
	}
	menuItems, err := s.menu.FindByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]domain.MenuItem, len(menuItems))
	for _, m := range menuItems {
		byID[m.ID] = m
	}

	var (
		items    []domain.OrderItem
		unknown  []apperrors.ValidationDetail
		hasPizza bool
	)
	for _, line := range lines {
		m, ok := byID[line.MenuItemID]
		if !ok {
			unknown = append(unknown, apperrors.ValidationDetail{
				Field:   "items",
				Message: fmt.Sprintf("menu item %d does not exist", line.MenuItemID),
			})
			continue
		}
		if m.Category == domain.CategoryPizza {
			hasPizza = true
		}
		items = append(items, domain.OrderItem{
			MenuItemID: m.ID,
			Name:       m.Name,
			Category:   m.Category,
			Quantity:   line.Quantity,
			UnitPrice:  s.pricer.FinalUnitPrice(m.BasePrice),
		})
	}

	if len(unknown) > 0 {
		return nil, apperrors.NewInvalidOrderError("order references unknown menu items", unknown...)
	}
	if !hasPizza {
		return nil, apperrors.NewInvalidOrderError("order must contain at least one pizza")
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].MenuItemID < items[j].MenuItemID })
	return items, nil
}

func (s *LifecycleService) birthdayItems(ctx context.Context, tx mysql.Tx) ([]domain.OrderItem, error) {
	var free []domain.OrderItem
	for _, category := range []domain.MenuCategory{domain.CategoryPizza, domain.CategoryDrink} {
		m, err := s.menu.FindFirstByCategory(ctx, tx, category)
		if _, ok := apperrors.IsNotFoundError(err); ok {
			s.logger.Warn("birthday item unavailable", zap.String("category", string(category)))
			continue
		}
		if err != nil {
			return nil, err
		}
		free = append(free, domain.OrderItem{
			MenuItemID: m.ID,
			Name:       m.Name,
			Category:   m.Category,
			Quantity:   1,
			UnitPrice:  decimal.Zero,
			IsFree:     true,
		})
	}
	return free, nil
}

func ConfirmationMessage(customerName string, orderID uint, eta time.Time) string {
	return fmt.Sprintf("Thank you for your order, %s! Your order #%d will be delivered by %s.",
		customerName, orderID, eta.Format("15:04"))
}

// Cancel diverts a non-terminal order owned by customerID to Cancelled,
// returns its pizzas to the loyalty counter and frees its courier.
func (s *LifecycleService) Cancel(ctx context.Context, orderID, customerID uint) (*domain.Order, error) {
	txCtx, cancel, tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer tx.Rollback()

	order, err := s.orders.FindByIDForUpdate(txCtx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, apperrors.NewPermissionError(fmt.Sprintf("order %d belongs to another customer", orderID))
	}
	if order.Status.IsTerminal() {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("order %d cannot be cancelled in status %s", orderID, order.Status), string(order.Status))
	}

	order.Items, err = s.items.ListByOrderTx(txCtx, tx, orderID)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByIDForUpdate(txCtx, tx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	remaining := customer.TotalPizzasOrdered - order.PaidPizzaQuantity()
	if remaining < 0 {
		remaining = 0
	}
	if err := s.customers.UpdateLoyalty(txCtx, tx, customer.ID, remaining, customer.BirthdayPizzaClaimed); err != nil {
		return nil, err
	}

	delivery, err := s.deliveries.FindByOrderIDForUpdate(txCtx, tx, orderID)
	switch _, missing := apperrors.IsNotFoundError(err); {
	case missing:
		s.logger.Warn("cancelling order without delivery", zap.Uint("orderId", orderID))
	case err != nil:
		return nil, err
	default:
		delivery.Status = domain.OrderStatusCancelled
		if err := s.deliveries.Update(txCtx, tx, *delivery); err != nil {
			return nil, err
		}
		if delivery.HasCourier() {
			if _, err := s.assigner.Release(txCtx, tx, *delivery.CourierID, delivery.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := s.orders.UpdateStatus(txCtx, tx, orderID, domain.OrderStatusCancelled); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint("orderId", orderID), zap.Error(err))
		return nil, err
	}

	s.cancelJobs(ctx, orderID)
	s.logger.Info("order cancelled", zap.Uint("orderId", orderID), zap.Uint("customerId", customerID))

	order.Status = domain.OrderStatusCancelled
	return order, nil
}

// CompleteDelivery marks a delivery and its order Delivered ahead of the
// scheduled transition.
func (s *LifecycleService) CompleteDelivery(ctx context.Context, deliveryID uint) (*domain.Delivery, error) {
	txCtx, cancel, tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer tx.Rollback()

	found, err := s.deliveries.FindByID(txCtx, tx, deliveryID)
	if err != nil {
		return nil, err
	}

	// Order row first, matching the transition jobs.
	order, err := s.orders.FindByIDForUpdate(txCtx, tx, found.OrderID)
	if err != nil {
		return nil, err
	}
	delivery, err := s.deliveries.FindByOrderIDForUpdate(txCtx, tx, order.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case delivery.Status == domain.OrderStatusDelivered || order.Status == domain.OrderStatusDelivered:
		return nil, apperrors.NewAlreadyCompletedError(delivery.ID)
	case delivery.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusCancelled:
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("delivery %d belongs to a cancelled order", delivery.ID), string(domain.OrderStatusCancelled))
	}

	if err := s.markDelivered(txCtx, tx, order.ID, delivery); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint("deliveryId", deliveryID), zap.Error(err))
		return nil, err
	}

	s.cancelJobs(ctx, order.ID)
	s.logger.Info("delivery completed", zap.Uint("deliveryId", delivery.ID), zap.Uint("orderId", order.ID))
	return delivery, nil
}

// markDelivered stamps delivery_time on both rows and runs courier release.
// The caller holds the order and delivery locks.
func (s *LifecycleService) markDelivered(ctx context.Context, tx mysql.Tx, orderID uint, delivery *domain.Delivery) error {
	now := s.clock()
	delivery.Status = domain.OrderStatusDelivered
	delivery.DeliveryTime = &now
	if err := s.deliveries.Update(ctx, tx, *delivery); err != nil {
		return err
	}
	if err := s.orders.UpdateStatus(ctx, tx, orderID, domain.OrderStatusDelivered); err != nil {
		return err
	}
	if delivery.HasCourier() {
		if _, err := s.assigner.Release(ctx, tx, *delivery.CourierID, delivery.ID); err != nil {
			return err
		}
	}
	return nil
}
