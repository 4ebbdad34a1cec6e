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

const deliveryColumns = `id, orderId, courierId, status, assignedAt, estimatedDeliveryTime, deliveryTime, createdAt, updatedAt`

type MySQLDeliveryRepository struct {
	db *sql.DB
}

func NewMySQLDeliveryRepository(db *sql.DB) *MySQLDeliveryRepository {
	return &MySQLDeliveryRepository{db: db}
}

func (r *MySQLDeliveryRepository) FindByOrderID(ctx context.Context, orderID uint) (*domain.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM Deliveries WHERE orderId = ?`
	return scanDelivery(r.db.QueryRowContext(ctx, query, orderID), fmt.Sprintf("delivery for order %d not found", orderID))
}

// FindByID reads without locking; callers lock the owning order first and
// then re-read the delivery with FindByOrderIDForUpdate.
func (r *MySQLDeliveryRepository) FindByID(ctx context.Context, tx mysql.Tx, id uint) (*domain.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM Deliveries WHERE id = ?`
	return scanDelivery(tx.QueryRowContext(ctx, query, id), fmt.Sprintf("delivery with id %d not found", id))
}

func (r *MySQLDeliveryRepository) FindByOrderIDForUpdate(ctx context.Context, tx mysql.Tx, orderID uint) (*domain.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM Deliveries WHERE orderId = ? FOR UPDATE`
	return scanDelivery(tx.QueryRowContext(ctx, query, orderID), fmt.Sprintf("delivery for order %d not found", orderID))
}

func (r *MySQLDeliveryRepository) Insert(ctx context.Context, tx mysql.Tx, delivery domain.Delivery) (uint, error) {
	query := `
		INSERT INTO Deliveries (orderId, courierId, status, assignedAt, estimatedDeliveryTime, deliveryTime)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		delivery.OrderID, delivery.CourierID, string(delivery.Status),
		delivery.AssignedAt, delivery.EstimatedDeliveryTime, delivery.DeliveryTime,
	)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			return 0, apperrors.NewConflictError(fmt.Sprintf("order %d already has a delivery", delivery.OrderID))
		}
		return 0, fmt.Errorf("inserting delivery: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLDeliveryRepository) Update(ctx context.Context, tx mysql.Tx, delivery domain.Delivery) error {
	query := `
		UPDATE Deliveries
		SET courierId = ?, status = ?, assignedAt = ?, estimatedDeliveryTime = ?, deliveryTime = ?
		WHERE id = ?`

	result, err := tx.ExecContext(ctx, query,
		delivery.CourierID, string(delivery.Status), delivery.AssignedAt,
		delivery.EstimatedDeliveryTime, delivery.DeliveryTime, delivery.ID,
	)
	if err != nil {
		return fmt.Errorf("updating delivery: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("delivery with id %d not found", delivery.ID))
	}

	return nil
}

// CountActiveByCourier counts Being_Prepared and Being_Delivered deliveries
// bound to courierID, ignoring excludeDeliveryID.
func (r *MySQLDeliveryRepository) CountActiveByCourier(ctx context.Context, tx mysql.Tx, courierID uint, excludeDeliveryID uint) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM Deliveries
		WHERE courierId = ? AND id <> ? AND status IN (?, ?)`

	var count int
	err := tx.QueryRowContext(ctx, query, courierID, excludeDeliveryID,
		string(domain.OrderStatusBeingPrepared), string(domain.OrderStatusBeingDelivered),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting active deliveries: %w", err)
	}

	return count, nil
}

func (r *MySQLDeliveryRepository) CountPreparingByCourier(ctx context.Context, tx mysql.Tx, courierID uint, excludeOrderID uint) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM Deliveries
		WHERE courierId = ? AND orderId <> ? AND status = ?`

	var count int
	err := tx.QueryRowContext(ctx, query, courierID, excludeOrderID, string(domain.OrderStatusBeingPrepared)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting preparing deliveries: %w", err)
	}

	return count, nil
}

func scanDelivery(row *sql.Row, notFoundMessage string) (*domain.Delivery, error) {
	var (
		delivery     domain.Delivery
		status       string
		courierID    sql.NullInt64
		assignedAt   sql.NullTime
		estimatedAt  sql.NullTime
		deliveryTime sql.NullTime
	)

	err := row.Scan(
		&delivery.ID, &delivery.OrderID, &courierID, &status,
		&assignedAt, &estimatedAt, &deliveryTime,
		&delivery.CreatedAt, &delivery.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFoundMessage)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning delivery: %w", err)
	}

	delivery.Status = domain.OrderStatus(status)
	if courierID.Valid {
		id := uint(courierID.Int64)
		delivery.CourierID = &id
	}
	if assignedAt.Valid {
		delivery.AssignedAt = &assignedAt.Time
	}
	if estimatedAt.Valid {
		delivery.EstimatedDeliveryTime = &estimatedAt.Time
	}
	if deliveryTime.Valid {
		delivery.DeliveryTime = &deliveryTime.Time
	}

	return &delivery, nil
}
