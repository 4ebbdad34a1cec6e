package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pizzeria/internal/commons"
	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
)

type Ledger interface {
	RegisterCode(ctx context.Context, code string, percentage decimal.Decimal) (*domain.DiscountCode, error)
	Check(ctx context.Context, customerID uint, code string) (*domain.DiscountCode, error)
}

type RegisterCodeRequest struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
}

type DiscountCodeResponse struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
}

type DiscountController struct {
	ledger Ledger
	logger *zap.Logger
}

func NewDiscountController(ledger Ledger, logger *zap.Logger) *DiscountController {
	return &DiscountController{ledger: ledger, logger: logger}
}

func (c *DiscountController) RegisterCode(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	var req RegisterCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		commons.WriteValidationError(w, traceID, c.logger, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	dc, err := c.ledger.RegisterCode(r.Context(), req.Code, req.DiscountPercentage)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusCreated, DiscountCodeResponse{
		Code:               dc.Code,
		DiscountPercentage: dc.DiscountPercentage,
	}, c.logger)
}

func (c *DiscountController) CheckCode(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	customerID, err := commons.CustomerID(r)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	dc, err := c.ledger.Check(r.Context(), customerID, chi.URLParam(r, "code"))
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, DiscountCodeResponse{
		Code:               dc.Code,
		DiscountPercentage: dc.DiscountPercentage,
	}, c.logger)
}
