package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
	"pizzeria/internal/infrastructure/mysql"
)

const orderColumns = `id, customerId, status, totalPrice, discountPercentage, createdAt, updatedAt`

type MySQLOrderRepository struct {
	db  *sql.DB
	dbx *sqlx.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db, dbx: sqlx.NewDb(db, "mysql")}
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, tx mysql.Tx, order domain.Order) (uint, error) {
	query := `INSERT INTO Orders (customerId, status, totalPrice, discountPercentage) VALUES (?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query, order.CustomerID, string(order.Status), order.TotalPrice, order.DiscountPercentage)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE id = ?`
	return scanOrder(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *MySQLOrderRepository) FindByIDForUpdate(ctx context.Context, tx mysql.Tx, id uint) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE id = ? FOR UPDATE`
	return scanOrder(tx.QueryRowContext(ctx, query, id), id)
}

func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, tx mysql.Tx, id uint, status domain.OrderStatus) error {
	query := `UPDATE Orders SET status = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}

	return nil
}

type orderSummaryRow struct {
	ID                    uint            `db:"id"`
	Status                string          `db:"status"`
	TotalPrice            decimal.Decimal `db:"totalPrice"`
	DiscountPercentage    decimal.Decimal `db:"discountPercentage"`
	CreatedAt             time.Time       `db:"createdAt"`
	CourierName           sql.NullString  `db:"courierName"`
	EstimatedDeliveryTime sql.NullTime    `db:"estimatedDeliveryTime"`
	DeliveryTime          sql.NullTime    `db:"deliveryTime"`
}

// ListByCustomer returns the customer's orders, newest first.
func (r *MySQLOrderRepository) ListByCustomer(ctx context.Context, customerID uint) ([]domain.OrderSummary, error) {
	query := `
		SELECT o.id, o.status, o.totalPrice, o.discountPercentage, o.createdAt,
		       p.name AS courierName, d.estimatedDeliveryTime, d.deliveryTime
		FROM Orders o
		LEFT JOIN Deliveries d ON d.orderId = o.id
		LEFT JOIN DeliveryPersonnel p ON p.id = d.courierId
		WHERE o.customerId = ?
		ORDER BY o.createdAt DESC, o.id DESC`

	var rows []orderSummaryRow
	if err := r.dbx.SelectContext(ctx, &rows, query, customerID); err != nil {
		return nil, fmt.Errorf("listing customer orders: %w", err)
	}

	return toSummaries(rows), nil
}

// ListActive returns every order that has not reached a terminal status,
// oldest first, with its delivery estimate.
func (r *MySQLOrderRepository) ListActive(ctx context.Context) ([]domain.OrderSummary, error) {
	query := `
		SELECT o.id, o.status, o.totalPrice, o.discountPercentage, o.createdAt,
		       p.name AS courierName, d.estimatedDeliveryTime, d.deliveryTime
		FROM Orders o
		LEFT JOIN Deliveries d ON d.orderId = o.id
		LEFT JOIN DeliveryPersonnel p ON p.id = d.courierId
		WHERE o.status NOT IN (?, ?)
		ORDER BY o.id`

	var rows []orderSummaryRow
	if err := r.dbx.SelectContext(ctx, &rows, query,
		string(domain.OrderStatusDelivered), string(domain.OrderStatusCancelled)); err != nil {
		return nil, fmt.Errorf("listing active orders: %w", err)
	}

	return toSummaries(rows), nil
}

func toSummaries(rows []orderSummaryRow) []domain.OrderSummary {
	summaries := make([]domain.OrderSummary, 0, len(rows))
	for _, row := range rows {
		summary := domain.OrderSummary{
			ID:                 row.ID,
			Status:             domain.OrderStatus(row.Status),
			TotalPrice:         row.TotalPrice,
			DiscountPercentage: row.DiscountPercentage,
			CreatedAt:          row.CreatedAt,
		}
		if row.CourierName.Valid {
			name := row.CourierName.String
			summary.CourierName = &name
		}
		if row.EstimatedDeliveryTime.Valid {
			eta := row.EstimatedDeliveryTime.Time
			summary.EstimatedDeliveryTime = &eta
		}
		if row.DeliveryTime.Valid {
			delivered := row.DeliveryTime.Time
			summary.DeliveryTime = &delivered
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func scanOrder(row *sql.Row, id uint) (*domain.Order, error) {
	var (
		order  domain.Order
		status string
	)

	err := row.Scan(
		&order.ID, &order.CustomerID, &status, &order.TotalPrice,
		&order.DiscountPercentage, &order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	order.Status = domain.OrderStatus(status)
	return &order, nil
}
