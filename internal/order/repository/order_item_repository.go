package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pizzeria/internal/domain"
	"pizzeria/internal/infrastructure/mysql"
)

type rowsQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type MySQLOrderItemRepository struct {
	db *sql.DB
}

func NewMySQLOrderItemRepository(db *sql.DB) *MySQLOrderItemRepository {
	return &MySQLOrderItemRepository{db: db}
}

func (r *MySQLOrderItemRepository) Insert(ctx context.Context, tx mysql.Tx, item domain.OrderItem) (uint, error) {
	query := `INSERT INTO OrderItems (orderId, menuItemId, quantity, unitPrice, isFree) VALUES (?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query, item.OrderID, item.MenuItemID, item.Quantity, item.UnitPrice, item.IsFree)
	if err != nil {
		return 0, fmt.Errorf("inserting order item: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLOrderItemRepository) ListByOrder(ctx context.Context, orderID uint) ([]domain.OrderItem, error) {
	return listItems(ctx, r.db, orderID)
}

func (r *MySQLOrderItemRepository) ListByOrderTx(ctx context.Context, tx mysql.Tx, orderID uint) ([]domain.OrderItem, error) {
	return listItems(ctx, tx, orderID)
}

func listItems(ctx context.Context, q rowsQuerier, orderID uint) ([]domain.OrderItem, error) {
	query := `
		SELECT oi.id, oi.orderId, oi.menuItemId, m.name, m.category, oi.quantity, oi.unitPrice, oi.isFree
		FROM OrderItems oi
		JOIN MenuItems m ON m.id = oi.menuItemId
		WHERE oi.orderId = ?
		ORDER BY oi.id`

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item     domain.OrderItem
			category string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name, &category,
			&item.Quantity, &item.UnitPrice, &item.IsFree); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		item.Category = domain.MenuCategory(category)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order items: %w", err)
	}

	return items, nil
}
