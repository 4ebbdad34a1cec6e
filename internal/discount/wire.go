package discount

import (
	"database/sql"

	"go.uber.org/zap"

	"pizzeria/internal/discount/controller"
	"pizzeria/internal/discount/repository"
	"pizzeria/internal/discount/service"
)

type Module struct {
	Ledger     *service.LedgerService
	Controller *controller.DiscountController
}

func NewModule(db *sql.DB, logger *zap.Logger) *Module {
	repo := repository.NewMySQLDiscountRepository(db)
	ledger := service.NewLedgerService(repo, logger)

	return &Module{
		Ledger:     ledger,
		Controller: controller.NewDiscountController(ledger, logger),
	}
}
