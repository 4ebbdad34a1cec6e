package menu

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"pizzeria/internal/commons"
	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
)

type Controller struct {
	service Service
	logger  *zap.Logger
}

func NewController(service Service, logger *zap.Logger) *Controller {
	return &Controller{
		service: service,
		logger:  logger,
	}
}

// HandleListMenu serves GET /menu with an optional ?category= filter.
func (c *Controller) HandleListMenu(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	category := domain.MenuCategory(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("category"))))
	if category != "" && !category.Valid() {
		commons.WriteValidationError(w, traceID, c.logger, "invalid category", apperrors.ValidationDetail{
			Field:   "category",
			Message: "category must be one of PIZZA, DRINK, DESSERT",
		})
		return
	}

	resp, err := c.service.ListMenu(r.Context(), category)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, resp, c.logger)
}
