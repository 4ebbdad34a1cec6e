package customer

import (
	"database/sql"

	"go.uber.org/zap"

	"pizzeria/internal/customer/controller"
	"pizzeria/internal/customer/repository"
	"pizzeria/internal/customer/service"
)

type Module struct {
	Repository *repository.MySQLCustomerRepository
	Service    *service.CustomerService
	Controller *controller.CustomerController
}

func NewModule(db *sql.DB, logger *zap.Logger) *Module {
	repo := repository.NewMySQLCustomerRepository(db)
	svc := service.NewCustomerService(repo, logger)

	return &Module{
		Repository: repo,
		Service:    svc,
		Controller: controller.NewCustomerController(svc, logger),
	}
}
