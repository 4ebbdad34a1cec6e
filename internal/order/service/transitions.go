package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	deliveryservice "pizzeria/internal/delivery/service"
	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
	"pizzeria/internal/infrastructure/mysql"
)

const (
	TransitionBeingPrepared  = "being_prepared"
	TransitionBeingDelivered = "being_delivered"
	TransitionDelivered      = "delivered"
)

var transitions = []string{TransitionBeingPrepared, TransitionBeingDelivered, TransitionDelivered}

func JobKey(orderID uint, transition string) string {
	return fmt.Sprintf("order:%d:%s", orderID, transition)
}

func (s *LifecycleService) scheduleForward(ctx context.Context, orderID uint, now, eta time.Time) {
	s.schedule(ctx, orderID, TransitionBeingPrepared, now)
	s.schedule(ctx, orderID, TransitionBeingDelivered, now.Add(s.dispatchDelay))
	s.schedule(ctx, orderID, TransitionDelivered, eta)
}

// schedule registers one transition. Failures are logged; the order stays
// where it is until someone completes it by hand.
func (s *LifecycleService) schedule(ctx context.Context, orderID uint, transition string, runAt time.Time) {
	key := JobKey(orderID, transition)
	ok, err := s.scheduler.Schedule(ctx, key, runAt, s.job(orderID, transition))
	if err != nil {
		s.logger.Error("failed to schedule transition", zap.String("jobKey", key), zap.Error(err))
		return
	}
	if !ok {
		s.logger.Debug("transition already scheduled", zap.String("jobKey", key))
	}
}

// ResumeTransitions re-registers the pending transitions of every order that
// has not reached a terminal status, so a restart does not strand them. Jobs
// that are already due run immediately; the predecessor checks in each
// transition make a duplicate registration harmless.
func (s *LifecycleService) ResumeTransitions(ctx context.Context) (int, error) {
	active, err := s.orders.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active orders: %w", err)
	}

	now := s.clock()
	for _, order := range active {
		dispatchAt := order.CreatedAt.Add(s.dispatchDelay)

		switch order.Status {
		case domain.OrderStatusPending:
			s.schedule(ctx, order.ID, TransitionBeingPrepared, now)
			s.schedule(ctx, order.ID, TransitionBeingDelivered, dispatchAt)
		case domain.OrderStatusBeingPrepared:
			s.schedule(ctx, order.ID, TransitionBeingDelivered, dispatchAt)
		case domain.OrderStatusWaitingForDelivery:
			s.schedule(ctx, order.ID, TransitionBeingDelivered, now)
		case domain.OrderStatusBeingDelivered:
			eta := now
			if order.EstimatedDeliveryTime != nil {
				eta = *order.EstimatedDeliveryTime
			}
			s.schedule(ctx, order.ID, TransitionDelivered, eta)
		}
	}

	s.logger.Info("order transitions resumed", zap.Int("orders", len(active)))
	return len(active), nil
}

func (s *LifecycleService) job(orderID uint, transition string) func(ctx context.Context) error {
	switch transition {
	case TransitionBeingPrepared:
		return func(ctx context.Context) error { return s.AdvanceToBeingPrepared(ctx, orderID) }
	case TransitionBeingDelivered:
		return func(ctx context.Context) error { return s.AdvanceToBeingDelivered(ctx, orderID) }
	default:
		return func(ctx context.Context) error { return s.AdvanceToDelivered(ctx, orderID) }
	}
}

func (s *LifecycleService) cancelJobs(ctx context.Context, orderID uint) {
	for _, transition := range transitions {
		if s.scheduler.Cancel(ctx, JobKey(orderID, transition)) {
			s.logger.Debug("transition cancelled", zap.String("jobKey", JobKey(orderID, transition)))
		}
	}
}

func (s *LifecycleService) skip(orderID uint, transition string, status domain.OrderStatus) {
	s.logger.Info("transition skipped",
		zap.Uint("orderId", orderID),
		zap.String("transition", transition),
		zap.String("status", string(status)),
	)
}

// AdvanceToBeingPrepared moves a Pending order into the kitchen.
func (s *LifecycleService) AdvanceToBeingPrepared(ctx context.Context, orderID uint) error {
	txCtx, cancel, tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer tx.Rollback()

	order, err := s.orders.FindByIDForUpdate(txCtx, tx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusPending {
		s.skip(orderID, TransitionBeingPrepared, order.Status)
		return nil
	}

	if err := s.orders.UpdateStatus(txCtx, tx, orderID, domain.OrderStatusBeingPrepared); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("order being prepared", zap.Uint("orderId", orderID))
	return nil
}

// AdvanceToBeingDelivered dispatches a prepared order. A delivery still
// waiting for a courier gets one more assignment attempt; when that fails
// the order waits and the dispatch is retried later.
func (s *LifecycleService) AdvanceToBeingDelivered(ctx context.Context, orderID uint) error {
	txCtx, cancel, tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer tx.Rollback()

	order, err := s.orders.FindByIDForUpdate(txCtx, tx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusBeingPrepared && order.Status != domain.OrderStatusWaitingForDelivery {
		s.skip(orderID, TransitionBeingDelivered, order.Status)
		return nil
	}

	delivery, err := s.deliveries.FindByOrderIDForUpdate(txCtx, tx, orderID)
	if err != nil {
		return err
	}

	reassigned := false
	if !delivery.HasCourier() {
		assigned, err := s.retryAssignment(txCtx, tx, order)
		if err != nil {
			return err
		}
		if assigned == nil {
			if order.Status != domain.OrderStatusWaitingForDelivery {
				delivery.Status = domain.OrderStatusWaitingForDelivery
				if err := s.deliveries.Update(txCtx, tx, *delivery); err != nil {
					return err
				}
				if err := s.orders.UpdateStatus(txCtx, tx, orderID, domain.OrderStatusWaitingForDelivery); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
			}
			s.logger.Info("order waiting for courier", zap.Uint("orderId", orderID), zap.Duration("retryIn", s.waitingRetryInterval))
			s.schedule(ctx, orderID, TransitionBeingDelivered, s.clock().Add(s.waitingRetryInterval))
			return nil
		}
		delivery = assigned
		reassigned = true
	}

	delivery.Status = domain.OrderStatusBeingDelivered
	if err := s.deliveries.Update(txCtx, tx, *delivery); err != nil {
		return err
	}
	if err := s.orders.UpdateStatus(txCtx, tx, orderID, domain.OrderStatusBeingDelivered); err != nil {
		return err
	}
	if err := s.assigner.MarkDispatched(txCtx, tx, *delivery.CourierID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("order being delivered", zap.Uint("orderId", orderID), zap.Uint("courierId", *delivery.CourierID))

	deliverAt := s.clock()
	if delivery.EstimatedDeliveryTime != nil && delivery.EstimatedDeliveryTime.After(deliverAt) {
		deliverAt = *delivery.EstimatedDeliveryTime
	}
	if reassigned {
		s.scheduler.Cancel(ctx, JobKey(orderID, TransitionDelivered))
	}
	s.schedule(ctx, orderID, TransitionDelivered, deliverAt)
	return nil
}

func (s *LifecycleService) retryAssignment(ctx context.Context, tx mysql.Tx, order *domain.Order) (*domain.Delivery, error) {
	customer, err := s.customers.FindByID(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByOrderTx(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return s.assigner.Assign(ctx, tx, deliveryservice.AssignmentRequest{
		OrderID:       order.ID,
		PostalCode:    customer.PostalCode,
		PreparedUnits: order.PreparedUnits(),
	})
}

// AdvanceToDelivered completes an order that is out for delivery.
func (s *LifecycleService) AdvanceToDelivered(ctx context.Context, orderID uint) error {
	txCtx, cancel, tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer tx.Rollback()

	order, err := s.orders.FindByIDForUpdate(txCtx, tx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusBeingDelivered {
		s.skip(orderID, TransitionDelivered, order.Status)
		return nil
	}

	delivery, err := s.deliveries.FindByOrderIDForUpdate(txCtx, tx, orderID)
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return fmt.Errorf("order %d is being delivered without a delivery record: %w", orderID, err)
	}
	if err != nil {
		return err
	}

	if err := s.markDelivered(txCtx, tx, orderID, delivery); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("order delivered", zap.Uint("orderId", orderID))
	return nil
}
