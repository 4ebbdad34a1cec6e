package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
	"pizzeria/internal/infrastructure/mysql"
)

const LoyaltyThreshold = 10

var (
	LoyaltyPercentage = decimal.NewFromInt(10)

	maxPercentage = decimal.NewFromInt(100)
)

type Repository interface {
	InsertCode(ctx context.Context, code domain.DiscountCode) error
	FindCode(ctx context.Context, code string) (*domain.DiscountCode, error)
	FindCodeForShare(ctx context.Context, tx mysql.Tx, code string) (*domain.DiscountCode, error)
	FindUsage(ctx context.Context, customerID uint, code string) (*domain.DiscountCodeUsage, error)
	FindUsageForUpdate(ctx context.Context, tx mysql.Tx, customerID uint, code string) (*domain.DiscountCodeUsage, error)
	UpsertUsage(ctx context.Context, tx mysql.Tx, usage domain.DiscountCodeUsage) error
}

// LedgerService owns discount code definitions and enforces one redemption
// per customer and code.
type LedgerService struct {
	repo   Repository
	logger *zap.Logger
}

func NewLedgerService(repo Repository, logger *zap.Logger) *LedgerService {
	return &LedgerService{repo: repo, logger: logger}
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *LedgerService) RegisterCode(ctx context.Context, code string, percentage decimal.Decimal) (*domain.DiscountCode, error) {
	code = NormalizeCode(code)

	var details []apperrors.ValidationDetail
	if code == "" || len(code) > 50 {
		details = append(details, apperrors.ValidationDetail{Field: "code", Message: "code must be 1 to 50 characters"})
	}
	if !percentage.IsPositive() || percentage.GreaterThan(maxPercentage) {
		details = append(details, apperrors.ValidationDetail{Field: "discountPercentage", Message: "discountPercentage must be greater than 0 and at most 100"})
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid discount code", details...)
	}

	dc := domain.DiscountCode{Code: code, DiscountPercentage: percentage.Round(2)}
	if err := s.repo.InsertCode(ctx, dc); err != nil {
		return nil, err
	}

	s.logger.Info("discount code registered", zap.String("code", code), zap.String("percentage", dc.DiscountPercentage.String()))
	return &dc, nil
}

// Redeem marks the code used by the customer inside tx and returns its
// percentage. The mark only persists if tx commits.
func (s *LedgerService) Redeem(ctx context.Context, tx mysql.Tx, customerID uint, code string) (decimal.Decimal, error) {
	code = NormalizeCode(code)

	dc, err := s.repo.FindCodeForShare(ctx, tx, code)
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return decimal.Zero, apperrors.NewUnknownCodeError(code)
	}
	if err != nil {
		return decimal.Zero, err
	}

	usage, err := s.repo.FindUsageForUpdate(ctx, tx, customerID, code)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); !ok {
			return decimal.Zero, err
		}
	} else if usage.IsUsed {
		return decimal.Zero, apperrors.NewAlreadyUsedError(code, customerID)
	}

	err = s.repo.UpsertUsage(ctx, tx, domain.DiscountCodeUsage{CustomerID: customerID, Code: code, IsUsed: true})
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("discount code redeemed", zap.Uint("customerId", customerID), zap.String("code", code))
	return dc.DiscountPercentage, nil
}

// Check validates a code for the customer without redeeming it.
func (s *LedgerService) Check(ctx context.Context, customerID uint, code string) (*domain.DiscountCode, error) {
	code = NormalizeCode(code)

	dc, err := s.repo.FindCode(ctx, code)
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return nil, apperrors.NewUnknownCodeError(code)
	}
	if err != nil {
		return nil, err
	}

	usage, err := s.repo.FindUsage(ctx, customerID, code)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); !ok {
			return nil, err
		}
		return dc, nil
	}
	if usage.IsUsed {
		return nil, apperrors.NewAlreadyUsedError(code, customerID)
	}

	return dc, nil
}

// LoyaltyPercentageFor returns the loyalty discount earned by a pizza count
// taken before the current order is added.
func (s *LedgerService) LoyaltyPercentageFor(totalPizzasOrdered int) decimal.Decimal {
	if totalPizzasOrdered >= LoyaltyThreshold {
		return LoyaltyPercentage
	}
	return decimal.Zero
}
