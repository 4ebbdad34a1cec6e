package menu

import (
	"database/sql"

	"go.uber.org/zap"

	"pizzeria/internal/menu/repository"
)

type Module struct {
	Repository *repository.MySQLMenuRepository
	Controller *Controller
}

func NewModule(db *sql.DB, pricer Pricer, logger *zap.Logger) *Module {
	repo := repository.NewMySQLMenuRepository(db)
	svc := NewService(repo, pricer)
	return &Module{Repository: repo, Controller: NewController(svc, logger)}
}
