package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"pizzeria/internal/commons"
	"pizzeria/internal/customer/service"
	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
)

type CustomerService interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.Customer, error)
	Authenticate(ctx context.Context, email, password string) (*domain.Customer, error)
	UpdateInfo(ctx context.Context, customerID uint, in service.UpdateInput) (*domain.Customer, error)
}

type RegisterRequest struct {
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	Birthdate  string `json:"birthdate"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateRequest struct {
	Name       *string `json:"name"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	PostalCode *string `json:"postalCode"`
	Email      *string `json:"email"`
}

type CustomerResponse struct {
	ID                   uint    `json:"id"`
	Name                 string  `json:"name"`
	Email                string  `json:"email"`
	Phone                string  `json:"phone"`
	Address              string  `json:"address"`
	PostalCode           string  `json:"postalCode"`
	Birthdate            *string `json:"birthdate,omitempty"`
	TotalPizzasOrdered   int     `json:"totalPizzasOrdered"`
	BirthdayPizzaClaimed bool    `json:"birthdayPizzaClaimed"`
}

type CustomerController struct {
	service CustomerService
	logger  *zap.Logger
}

func NewCustomerController(service CustomerService, logger *zap.Logger) *CustomerController {
	return &CustomerController{service: service, logger: logger}
}

func (c *CustomerController) Register(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	var req RegisterRequest
	if !c.decode(w, r, traceID, &req) {
		return
	}

	customer, err := c.service.Register(r.Context(), service.RegisterInput{
		Name:       req.Name,
		Gender:     req.Gender,
		Birthdate:  req.Birthdate,
		Phone:      req.Phone,
		Address:    req.Address,
		PostalCode: req.PostalCode,
		Email:      req.Email,
		Password:   req.Password,
	})
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusCreated, toResponse(customer), c.logger)
}

func (c *CustomerController) Login(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	var req LoginRequest
	if !c.decode(w, r, traceID, &req) {
		return
	}

	customer, err := c.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, toResponse(customer), c.logger)
}

func (c *CustomerController) Update(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()

	customerID, err := commons.PathID(r, "customerId")
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}
	callerID, err := commons.CustomerID(r)
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}
	if callerID != customerID {
		commons.WriteError(w, traceID, apperrors.NewForbiddenError("cannot update another customer"), c.logger)
		return
	}

	var req UpdateRequest
	if !c.decode(w, r, traceID, &req) {
		return
	}

	customer, err := c.service.UpdateInfo(r.Context(), customerID, service.UpdateInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		PostalCode: req.PostalCode,
		Email:      req.Email,
	})
	if err != nil {
		commons.WriteError(w, traceID, err, c.logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, toResponse(customer), c.logger)
}

// decode rejects unknown fields so profile updates cannot reach columns
// outside the whitelist.
func (c *CustomerController) decode(w http.ResponseWriter, r *http.Request, traceID string, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		c.logger.Warn("invalid JSON body", zap.String("traceId", traceID), zap.Error(err))
		commons.WriteValidationError(w, traceID, c.logger, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON with known fields only",
		})
		return false
	}
	return true
}

func toResponse(c *domain.Customer) CustomerResponse {
	resp := CustomerResponse{
		ID:                   c.ID,
		Name:                 c.Name,
		Email:                c.Email,
		Phone:                c.Phone,
		Address:              c.Address,
		PostalCode:           c.PostalCode,
		TotalPizzasOrdered:   c.TotalPizzasOrdered,
		BirthdayPizzaClaimed: c.BirthdayPizzaClaimed,
	}
	if c.Birthdate != nil {
		b := c.Birthdate.Format("2006-01-02")
		resp.Birthdate = &b
	}
	return resp
}
