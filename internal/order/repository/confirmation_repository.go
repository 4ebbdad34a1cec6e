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

type MySQLConfirmationRepository struct {
	db *sql.DB
}

func NewMySQLConfirmationRepository(db *sql.DB) *MySQLConfirmationRepository {
	return &MySQLConfirmationRepository{db: db}
}

func (r *MySQLConfirmationRepository) Insert(ctx context.Context, tx mysql.Tx, c domain.OrderConfirmation) (uint, error) {
	query := `INSERT INTO OrderConfirmations (orderId, reference, message, estimatedDeliveryTime) VALUES (?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query, c.OrderID, c.Reference, c.Message, c.EstimatedDeliveryTime)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			return 0, apperrors.NewConflictError(fmt.Sprintf("order %d already has a confirmation", c.OrderID))
		}
		return 0, fmt.Errorf("inserting order confirmation: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLConfirmationRepository) FindByOrderID(ctx context.Context, orderID uint) (*domain.OrderConfirmation, error) {
	query := `
		SELECT id, orderId, reference, message, estimatedDeliveryTime, createdAt
		FROM OrderConfirmations
		WHERE orderId = ?`

	var c domain.OrderConfirmation
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&c.ID, &c.OrderID, &c.Reference, &c.Message, &c.EstimatedDeliveryTime, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("confirmation for order %d not found", orderID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order confirmation: %w", err)
	}

	return &c, nil
}
