package order

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"pizzeria/internal/config"
	"pizzeria/internal/customer"
	"pizzeria/internal/delivery"
	"pizzeria/internal/discount"
	"pizzeria/internal/infrastructure/mysql"
	"pizzeria/internal/menu"
	"pizzeria/internal/notification"
	"pizzeria/internal/order/controller"
	orderrepo "pizzeria/internal/order/repository"
	"pizzeria/internal/order/service"
	"pizzeria/internal/order/usecase"
	"pizzeria/internal/pricing"
)

type Module struct {
	Lifecycle  *service.LifecycleService
	UseCase    *usecase.OrderUseCase
	Controller *controller.OrderController
}

// Dependencies are the sibling modules the order lifecycle drives.
type Dependencies struct {
	Customers *customer.Module
	Menu      *menu.Module
	Delivery  *delivery.Module
	Discounts *discount.Module
	Pricer    *pricing.Engine
	Scheduler service.Scheduler
	Notifier  notification.Notifier
}

func NewModule(db *sql.DB, cfg *config.Config, deps Dependencies, logger *zap.Logger) (*Module, error) {
	lifecycle, err := service.NewLifecycleService(service.LifecycleDeps{
		TxManager:     mysql.NewTxManager(db),
		Orders:        orderrepo.NewMySQLOrderRepository(db),
		Items:         orderrepo.NewMySQLOrderItemRepository(db),
		Confirmations: orderrepo.NewMySQLConfirmationRepository(db),
		Customers:     deps.Customers.Repository,
		Menu:          deps.Menu.Repository,
		Deliveries:    deps.Delivery.Deliveries,
		Couriers:      deps.Delivery.Couriers,
		Assigner:      deps.Delivery.Assignment,
		Ledger:        deps.Discounts.Ledger,
		Pricer:        deps.Pricer,
		Scheduler:     deps.Scheduler,
		Notifier:      deps.Notifier,
		Logger:        logger,

		DispatchDelay:        cfg.Order.DispatchDelay,
		TxTimeout:            cfg.Order.TxTimeout,
		WaitingRetryInterval: cfg.Order.WaitingRetryInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("building order lifecycle: %w", err)
	}

	useCase := usecase.NewOrderUseCase(lifecycle, logger, cfg.Order.MaxRetryAttempts)

	return &Module{
		Lifecycle:  lifecycle,
		UseCase:    useCase,
		Controller: controller.NewOrderController(useCase, logger),
	}, nil
}
