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

const courierColumns = `id, name, postalCode, isAvailable, lastDeliveryTime`

type MySQLCourierRepository struct {
	db *sql.DB
}

func NewMySQLCourierRepository(db *sql.DB) *MySQLCourierRepository {
	return &MySQLCourierRepository{db: db}
}

func (r *MySQLCourierRepository) FindByID(ctx context.Context, id uint) (*domain.Courier, error) {
	query := `SELECT ` + courierColumns + ` FROM DeliveryPersonnel WHERE id = ?`
	return scanCourier(r.db.QueryRowContext(ctx, query, id), fmt.Sprintf("courier with id %d not found", id))
}

func (r *MySQLCourierRepository) FindByIDForUpdate(ctx context.Context, tx mysql.Tx, id uint) (*domain.Courier, error) {
	query := `SELECT ` + courierColumns + ` FROM DeliveryPersonnel WHERE id = ? FOR UPDATE`
	return scanCourier(tx.QueryRowContext(ctx, query, id), fmt.Sprintf("courier with id %d not found", id))
}

// FindAvailableByPostalCodeForUpdate locks the first available courier already
// bound to postalCode.
func (r *MySQLCourierRepository) FindAvailableByPostalCodeForUpdate(ctx context.Context, tx mysql.Tx, postalCode string) (*domain.Courier, error) {
	query := `
		SELECT ` + courierColumns + `
		FROM DeliveryPersonnel
		WHERE isAvailable = 1 AND postalCode = ?
		ORDER BY id
		LIMIT 1
		FOR UPDATE`
	return scanCourier(tx.QueryRowContext(ctx, query, postalCode), "no available courier for postal code "+postalCode)
}

func (r *MySQLCourierRepository) FindAvailableUnassignedForUpdate(ctx context.Context, tx mysql.Tx) (*domain.Courier, error) {
	query := `
		SELECT ` + courierColumns + `
		FROM DeliveryPersonnel
		WHERE isAvailable = 1 AND postalCode IS NULL
		ORDER BY id
		LIMIT 1
		FOR UPDATE`
	return scanCourier(tx.QueryRowContext(ctx, query), "no unassigned courier available")
}

func (r *MySQLCourierRepository) Update(ctx context.Context, tx mysql.Tx, courier domain.Courier) error {
	query := `
		UPDATE DeliveryPersonnel
		SET postalCode = ?, isAvailable = ?, lastDeliveryTime = ?
		WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, courier.PostalCode, courier.IsAvailable, courier.LastDeliveryTime, courier.ID)
	if err != nil {
		return fmt.Errorf("updating courier: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("courier with id %d not found", courier.ID))
	}

	return nil
}

func scanCourier(row *sql.Row, notFoundMessage string) (*domain.Courier, error) {
	var (
		courier    domain.Courier
		postalCode sql.NullString
		lastTime   sql.NullTime
	)

	err := row.Scan(&courier.ID, &courier.Name, &postalCode, &courier.IsAvailable, &lastTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFoundMessage)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning courier: %w", err)
	}

	if postalCode.Valid {
		courier.PostalCode = &postalCode.String
	}
	if lastTime.Valid {
		courier.LastDeliveryTime = &lastTime.Time
	}

	return &courier, nil
}
