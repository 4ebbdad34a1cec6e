package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
	"pizzeria/internal/infrastructure/mysql"
)

type MySQLDiscountRepository struct {
	db *sql.DB
}

func NewMySQLDiscountRepository(db *sql.DB) *MySQLDiscountRepository {
	return &MySQLDiscountRepository{db: db}
}

func (r *MySQLDiscountRepository) InsertCode(ctx context.Context, code domain.DiscountCode) error {
	query := `INSERT INTO DiscountCodes (code, discountPercentage) VALUES (?, ?)`

	_, err := r.db.ExecContext(ctx, query, code.Code, code.DiscountPercentage)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			return apperrors.NewDuplicateCodeError(code.Code)
		}
		return fmt.Errorf("inserting discount code: %w", err)
	}

	return nil
}

func (r *MySQLDiscountRepository) FindCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	query := `SELECT code, discountPercentage, createdAt FROM DiscountCodes WHERE code = ?`
	return scanCode(r.db.QueryRowContext(ctx, query, code), code)
}

// FindCodeForShare keeps the code row stable until the redeeming transaction
// ends.
func (r *MySQLDiscountRepository) FindCodeForShare(ctx context.Context, tx mysql.Tx, code string) (*domain.DiscountCode, error) {
	query := `SELECT code, discountPercentage, createdAt FROM DiscountCodes WHERE code = ? LOCK IN SHARE MODE`
	return scanCode(tx.QueryRowContext(ctx, query, code), code)
}

func (r *MySQLDiscountRepository) FindUsage(ctx context.Context, customerID uint, code string) (*domain.DiscountCodeUsage, error) {
	query := `SELECT customerId, code, isUsed FROM DiscountCodeUsages WHERE customerId = ? AND code = ?`
	return scanUsage(r.db.QueryRowContext(ctx, query, customerID, code))
}

func (r *MySQLDiscountRepository) FindUsageForUpdate(ctx context.Context, tx mysql.Tx, customerID uint, code string) (*domain.DiscountCodeUsage, error) {
	query := `SELECT customerId, code, isUsed FROM DiscountCodeUsages WHERE customerId = ? AND code = ? FOR UPDATE`
	return scanUsage(tx.QueryRowContext(ctx, query, customerID, code))
}

func (r *MySQLDiscountRepository) UpsertUsage(ctx context.Context, tx mysql.Tx, usage domain.DiscountCodeUsage) error {
	query := `
		INSERT INTO DiscountCodeUsages (customerId, code, isUsed)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE isUsed = VALUES(isUsed)`

	if _, err := tx.ExecContext(ctx, query, usage.CustomerID, usage.Code, usage.IsUsed); err != nil {
		return fmt.Errorf("upserting discount usage: %w", err)
	}

	return nil
}

func scanCode(row *sql.Row, code string) (*domain.DiscountCode, error) {
	var dc domain.DiscountCode

	err := row.Scan(&dc.Code, &dc.DiscountPercentage, &dc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("discount code %s not found", code))
	}
	if err != nil {
		return nil, fmt.Errorf("scanning discount code: %w", err)
	}

	return &dc, nil
}

func scanUsage(row *sql.Row) (*domain.DiscountCodeUsage, error) {
	var usage domain.DiscountCodeUsage

	err := row.Scan(&usage.CustomerID, &usage.Code, &usage.IsUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("discount usage not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning discount usage: %w", err)
	}

	return &usage, nil
}
