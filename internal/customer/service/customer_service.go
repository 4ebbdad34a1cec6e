package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
)

const (
	birthdateLayout   = "2006-01-02"
	minPasswordLength = 8
)

type Repository interface {
	Insert(ctx context.Context, c domain.Customer) (uint, error)
	FindByID(ctx context.Context, id uint) (*domain.Customer, error)
	FindByEmail(ctx context.Context, email string) (*domain.Customer, error)
	UpdateProfile(ctx context.Context, c domain.Customer) error
}

type RegisterInput struct {
	Name       string
	Gender     string
	Birthdate  string
	Phone      string
	Address    string
	PostalCode string
	Email      string
	Password   string
}

// UpdateInput lists the only fields a customer may change. Nil means keep.
type UpdateInput struct {
	Name       *string
	Phone      *string
	Address    *string
	PostalCode *string
	Email      *string
}

type CustomerService struct {
	repo       Repository
	logger     *zap.Logger
	bcryptCost int
}

func NewCustomerService(repo Repository, logger *zap.Logger) *CustomerService {
	return &CustomerService{repo: repo, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

func (s *CustomerService) Register(ctx context.Context, in RegisterInput) (*domain.Customer, error) {
	var details []apperrors.ValidationDetail

	c := domain.Customer{
		Name:       strings.TrimSpace(in.Name),
		Gender:     strings.TrimSpace(in.Gender),
		Phone:      strings.TrimSpace(in.Phone),
		Address:    strings.TrimSpace(in.Address),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Email:      normalizeEmail(in.Email),
	}

	details = append(details, validateName(c.Name)...)
	details = append(details, validatePostalCode(c.PostalCode)...)
	details = append(details, validateEmail(c.Email)...)
	if len(in.Password) < minPasswordLength {
		details = append(details, apperrors.ValidationDetail{Field: "password", Message: "password must be at least 8 characters"})
	}
	if in.Birthdate != "" {
		birthdate, err := time.Parse(birthdateLayout, in.Birthdate)
		if err != nil {
			details = append(details, apperrors.ValidationDetail{Field: "birthdate", Message: "birthdate must be YYYY-MM-DD"})
		} else {
			c.Birthdate = &birthdate
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError("hashing password", err)
	}
	c.PasswordHash = string(hash)

	id, err := s.repo.Insert(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id

	s.logger.Info("customer registered", zap.Uint("customerId", id))
	return &c, nil
}

// Authenticate returns the same error for an unknown email and a wrong
// password.
func (s *CustomerService) Authenticate(ctx context.Context, email, password string) (*domain.Customer, error) {
	invalid := apperrors.NewValidationError("invalid email or password")

	c, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, invalid
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}

	return c, nil
}

func (s *CustomerService) Get(ctx context.Context, id uint) (*domain.Customer, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *CustomerService) UpdateInfo(ctx context.Context, customerID uint, in UpdateInput) (*domain.Customer, error) {
	c, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var details []apperrors.ValidationDetail
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
		details = append(details, validateName(c.Name)...)
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		c.Address = strings.TrimSpace(*in.Address)
	}
	if in.PostalCode != nil {
		c.PostalCode = strings.TrimSpace(*in.PostalCode)
		details = append(details, validatePostalCode(c.PostalCode)...)
	}
	if in.Email != nil {
		c.Email = normalizeEmail(*in.Email)
		details = append(details, validateEmail(c.Email)...)
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	if err := s.repo.UpdateProfile(ctx, *c); err != nil {
		return nil, err
	}

	s.logger.Info("customer updated", zap.Uint("customerId", customerID))
	return c, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(name string) []apperrors.ValidationDetail {
	if name == "" || len(name) > 100 {
		return []apperrors.ValidationDetail{{Field: "name", Message: "name must be 1 to 100 characters"}}
	}
	return nil
}

func validatePostalCode(postalCode string) []apperrors.ValidationDetail {
	if postalCode == "" || len(postalCode) > 20 {
		return []apperrors.ValidationDetail{{Field: "postalCode", Message: "postalCode must be 1 to 20 characters"}}
	}
	return nil
}

func validateEmail(email string) []apperrors.ValidationDetail {
	if _, err := mail.ParseAddress(email); err != nil || len(email) > 150 {
		return []apperrors.ValidationDetail{{Field: "email", Message: "email must be a valid address"}}
	}
	return nil
}
