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

const customerColumns = `
	id, name, gender, birthdate, phone, address, postalCode, email, passwordHash,
	totalPizzasOrdered, birthdayPizzaClaimed, isAdmin, createdAt, updatedAt`

type MySQLCustomerRepository struct {
	db *sql.DB
}

func NewMySQLCustomerRepository(db *sql.DB) *MySQLCustomerRepository {
	return &MySQLCustomerRepository{db: db}
}

func (r *MySQLCustomerRepository) Insert(ctx context.Context, c domain.Customer) (uint, error) {
	query := `
		INSERT INTO Customers (name, gender, birthdate, phone, address, postalCode, email, passwordHash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.Gender, c.Birthdate, c.Phone, c.Address, c.PostalCode, c.Email, c.PasswordHash,
	)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			return 0, apperrors.NewConflictError("email is already registered")
		}
		return 0, fmt.Errorf("inserting customer: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLCustomerRepository) FindByID(ctx context.Context, id uint) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM Customers WHERE id = ?`
	return scanCustomer(r.db.QueryRowContext(ctx, query, id), fmt.Sprintf("customer with id %d not found", id))
}

func (r *MySQLCustomerRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM Customers WHERE email = ?`
	return scanCustomer(r.db.QueryRowContext(ctx, query, email), "customer not found")
}

func (r *MySQLCustomerRepository) FindByIDForUpdate(ctx context.Context, tx mysql.Tx, id uint) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM Customers WHERE id = ? FOR UPDATE`
	return scanCustomer(tx.QueryRowContext(ctx, query, id), fmt.Sprintf("customer with id %d not found", id))
}

func (r *MySQLCustomerRepository) UpdateProfile(ctx context.Context, c domain.Customer) error {
	query := `
		UPDATE Customers
		SET name = ?, phone = ?, address = ?, postalCode = ?, email = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, c.Name, c.Phone, c.Address, c.PostalCode, c.Email, c.ID)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			return apperrors.NewConflictError("email is already registered")
		}
		return fmt.Errorf("updating customer profile: %w", err)
	}

	return expectOneRow(result, c.ID)
}

// UpdateLoyalty writes the pizza counter and birthday flag. A negative count
// is rejected by the table constraint, callers clamp first.
func (r *MySQLCustomerRepository) UpdateLoyalty(ctx context.Context, tx mysql.Tx, id uint, totalPizzasOrdered int, birthdayPizzaClaimed bool) error {
	query := `UPDATE Customers SET totalPizzasOrdered = ?, birthdayPizzaClaimed = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, totalPizzasOrdered, birthdayPizzaClaimed, id)
	if err != nil {
		return fmt.Errorf("updating customer loyalty: %w", err)
	}

	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id uint) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("customer with id %d not found", id))
	}

	return nil
}

func scanCustomer(row *sql.Row, notFoundMessage string) (*domain.Customer, error) {
	var (
		c         domain.Customer
		birthdate sql.NullTime
	)

	err := row.Scan(
		&c.ID, &c.Name, &c.Gender, &birthdate, &c.Phone, &c.Address, &c.PostalCode,
		&c.Email, &c.PasswordHash, &c.TotalPizzasOrdered, &c.BirthdayPizzaClaimed,
		&c.IsAdmin, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFoundMessage)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning customer: %w", err)
	}

	if birthdate.Valid {
		c.Birthdate = &birthdate.Time
	}

	return &c, nil
}
