package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
	"pizzeria/internal/infrastructure/mysql"
)

const (
	basePrepMinutes         = 5
	perUnitMinutes          = 1
	unknownDistanceMinutes  = 10
	workloadPenaltyMinutes  = 5
	DefaultRestaurantPostal = "6211"
)

type CourierRepository interface {
	FindAvailableByPostalCodeForUpdate(ctx context.Context, tx mysql.Tx, postalCode string) (*domain.Courier, error)
	FindAvailableUnassignedForUpdate(ctx context.Context, tx mysql.Tx) (*domain.Courier, error)
	FindByIDForUpdate(ctx context.Context, tx mysql.Tx, id uint) (*domain.Courier, error)
	Update(ctx context.Context, tx mysql.Tx, courier domain.Courier) error
}

type DeliveryRepository interface {
	FindByOrderIDForUpdate(ctx context.Context, tx mysql.Tx, orderID uint) (*domain.Delivery, error)
	Insert(ctx context.Context, tx mysql.Tx, delivery domain.Delivery) (uint, error)
	Update(ctx context.Context, tx mysql.Tx, delivery domain.Delivery) error
	CountActiveByCourier(ctx context.Context, tx mysql.Tx, courierID uint, excludeDeliveryID uint) (int, error)
	CountPreparingByCourier(ctx context.Context, tx mysql.Tx, courierID uint, excludeOrderID uint) (int, error)
}

type AssignmentRequest struct {
	OrderID       uint
	PostalCode    string
	PreparedUnits int
}

// AssignmentService binds orders to couriers and keeps courier availability
// in step with their active deliveries. Every method runs inside the
// caller's transaction.
type AssignmentService struct {
	couriers             CourierRepository
	deliveries           DeliveryRepository
	logger               *zap.Logger
	restaurantPostalCode string
	now                  func() time.Time
}

func NewAssignmentService(
	couriers CourierRepository,
	deliveries DeliveryRepository,
	logger *zap.Logger,
	restaurantPostalCode string,
) *AssignmentService {
	if restaurantPostalCode == "" {
		restaurantPostalCode = DefaultRestaurantPostal
	}
	return &AssignmentService{
		couriers:             couriers,
		deliveries:           deliveries,
		logger:               logger,
		restaurantPostalCode: restaurantPostalCode,
		now:                  time.Now,
	}
}

// Assign binds the first matching available courier to the order and moves
// its delivery to Being_Prepared. It returns nil when nobody is free; the
// caller then keeps the delivery waiting.
func (s *AssignmentService) Assign(ctx context.Context, tx mysql.Tx, req AssignmentRequest) (*domain.Delivery, error) {
	courier, err := s.findCourier(ctx, tx, req.PostalCode)
	if err != nil {
		return nil, err
	}
	if courier == nil {
		s.logger.Info("no courier available", zap.Uint("orderId", req.OrderID), zap.String("postalCode", req.PostalCode))
		return nil, nil
	}

	now := s.now()
	if courier.PostalCode == nil {
		postalCode := req.PostalCode
		courier.PostalCode = &postalCode
	}
	courier.LastDeliveryTime = &now
	if err := s.couriers.Update(ctx, tx, *courier); err != nil {
		return nil, err
	}

	interval, err := s.EstimateDeliveryInterval(ctx, tx, req, &courier.ID)
	if err != nil {
		return nil, err
	}
	eta := now.Add(interval)

	delivery, err := s.deliveries.FindByOrderIDForUpdate(ctx, tx, req.OrderID)
	if _, ok := apperrors.IsNotFoundError(err); ok {
		delivery = &domain.Delivery{OrderID: req.OrderID}
	} else if err != nil {
		return nil, err
	}

	delivery.CourierID = &courier.ID
	delivery.Status = domain.OrderStatusBeingPrepared
	delivery.AssignedAt = &now
	delivery.EstimatedDeliveryTime = &eta

	if delivery.ID == 0 {
		id, err := s.deliveries.Insert(ctx, tx, *delivery)
		if err != nil {
			return nil, err
		}
		delivery.ID = id
	} else if err := s.deliveries.Update(ctx, tx, *delivery); err != nil {
		return nil, err
	}

	s.logger.Info("courier assigned",
		zap.Uint("orderId", req.OrderID),
		zap.Uint("courierId", courier.ID),
		zap.Uint("deliveryId", delivery.ID),
		zap.Duration("estimate", interval),
	)
	return delivery, nil
}

func (s *AssignmentService) findCourier(ctx context.Context, tx mysql.Tx, postalCode string) (*domain.Courier, error) {
	courier, err := s.couriers.FindAvailableByPostalCodeForUpdate(ctx, tx, postalCode)
	if err == nil {
		return courier, nil
	}
	if _, ok := apperrors.IsNotFoundError(err); !ok {
		return nil, err
	}

	courier, err = s.couriers.FindAvailableUnassignedForUpdate(ctx, tx)
	if err == nil {
		return courier, nil
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return nil, nil
	}
	return nil, err
}

// EstimateDeliveryInterval applies EstimateInterval with the courier's current
// Being_Prepared workload. A nil courier carries no workload.
func (s *AssignmentService) EstimateDeliveryInterval(ctx context.Context, tx mysql.Tx, req AssignmentRequest, courierID *uint) (time.Duration, error) {
	workload := 0
	if courierID != nil {
		count, err := s.deliveries.CountPreparingByCourier(ctx, tx, *courierID, req.OrderID)
		if err != nil {
			return 0, err
		}
		workload = count
	}
	return EstimateInterval(req.PreparedUnits, req.PostalCode, s.restaurantPostalCode, workload), nil
}

// EstimateInterval is base prep time, plus a minute per pizza or dessert
// unit, plus half the postal code distance to the restaurant, plus a penalty
// per delivery the courier is already preparing.
func EstimateInterval(preparedUnits int, postalCode, restaurantPostalCode string, workload int) time.Duration {
	minutes := basePrepMinutes + perUnitMinutes*preparedUnits
	minutes += distanceMinutes(postalCode, restaurantPostalCode)
	minutes += workloadPenaltyMinutes * workload
	return time.Duration(minutes) * time.Minute
}

func distanceMinutes(postalCode, restaurantPostalCode string) int {
	customer, err := strconv.Atoi(strings.TrimSpace(postalCode))
	if err != nil {
		return unknownDistanceMinutes
	}
	restaurant, err := strconv.Atoi(strings.TrimSpace(restaurantPostalCode))
	if err != nil {
		return unknownDistanceMinutes
	}

	diff := customer - restaurant
	if diff < 0 {
		diff = -diff
	}
	return diff / 2
}

// Release frees the courier once no active delivery other than
// excludeDeliveryID remains. It reports whether the courier was freed.
func (s *AssignmentService) Release(ctx context.Context, tx mysql.Tx, courierID uint, excludeDeliveryID uint) (bool, error) {
	active, err := s.deliveries.CountActiveByCourier(ctx, tx, courierID, excludeDeliveryID)
	if err != nil {
		return false, err
	}
	if active > 0 {
		s.logger.Debug("courier still busy", zap.Uint("courierId", courierID), zap.Int("activeDeliveries", active))
		return false, nil
	}

	courier, err := s.couriers.FindByIDForUpdate(ctx, tx, courierID)
	if err != nil {
		return false, err
	}

	now := s.now()
	courier.IsAvailable = true
	courier.PostalCode = nil
	courier.LastDeliveryTime = &now
	if err := s.couriers.Update(ctx, tx, *courier); err != nil {
		return false, err
	}

	s.logger.Info("courier released", zap.Uint("courierId", courierID))
	return true, nil
}

// MarkDispatched takes the courier off the available pool while it is on
// the road.
func (s *AssignmentService) MarkDispatched(ctx context.Context, tx mysql.Tx, courierID uint) error {
	courier, err := s.couriers.FindByIDForUpdate(ctx, tx, courierID)
	if err != nil {
		return err
	}

	courier.IsAvailable = false
	return s.couriers.Update(ctx, tx, *courier)
}
