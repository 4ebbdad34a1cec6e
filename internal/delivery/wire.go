package delivery

import (
	"database/sql"

	"go.uber.org/zap"

	"pizzeria/internal/delivery/repository"
	"pizzeria/internal/delivery/service"
)

type Module struct {
	Deliveries *repository.MySQLDeliveryRepository
	Couriers   *repository.MySQLCourierRepository
	Assignment *service.AssignmentService
}

func NewModule(db *sql.DB, restaurantPostalCode string, logger *zap.Logger) *Module {
	deliveries := repository.NewMySQLDeliveryRepository(db)
	couriers := repository.NewMySQLCourierRepository(db)

	return &Module{
		Deliveries: deliveries,
		Couriers:   couriers,
		Assignment: service.NewAssignmentService(couriers, deliveries, logger, restaurantPostalCode),
	}
}
