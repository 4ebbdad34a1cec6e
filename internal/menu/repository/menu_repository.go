package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
	"pizzeria/internal/infrastructure/mysql"
)

const menuColumns = `id, name, category, basePrice, isVegetarian, isVegan`

type menuItemRow struct {
	ID           uint            `db:"id"`
	Name         string          `db:"name"`
	Category     string          `db:"category"`
	BasePrice    decimal.Decimal `db:"basePrice"`
	IsVegetarian bool            `db:"isVegetarian"`
	IsVegan      bool            `db:"isVegan"`
}

func (r menuItemRow) toDomain() domain.MenuItem {
	return domain.MenuItem{
		ID:           r.ID,
		Name:         r.Name,
		Category:     domain.MenuCategory(r.Category),
		BasePrice:    r.BasePrice,
		IsVegetarian: r.IsVegetarian,
		IsVegan:      r.IsVegan,
	}
}

type MySQLMenuRepository struct {
	db *sqlx.DB
}

func NewMySQLMenuRepository(db *sql.DB) *MySQLMenuRepository {
	return &MySQLMenuRepository{db: sqlx.NewDb(db, "mysql")}
}

// List returns the menu ordered by category and name. An empty category
// returns every item.
func (r *MySQLMenuRepository) List(ctx context.Context, category domain.MenuCategory) ([]domain.MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM MenuItems`
	var args []interface{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY category, name`

	var rows []menuItemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing menu items: %w", err)
	}

	items := make([]domain.MenuItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

// FindByIDs reads the requested items inside tx. Missing ids are simply
// absent from the result.
func (r *MySQLMenuRepository) FindByIDs(ctx context.Context, tx mysql.Tx, ids []uint) ([]domain.MenuItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT `+menuColumns+` FROM MenuItems WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("building menu item query: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying menu items: %w", err)
	}
	defer rows.Close()

	var found []menuItemRow
	if err := sqlx.StructScan(rows, &found); err != nil {
		return nil, fmt.Errorf("scanning menu items: %w", err)
	}

	items := make([]domain.MenuItem, 0, len(found))
	for _, row := range found {
		items = append(items, row.toDomain())
	}
	return items, nil
}

// FindFirstByCategory picks the lowest id item of a category. The birthday
// offer uses it to choose its free pizza and drink.
func (r *MySQLMenuRepository) FindFirstByCategory(ctx context.Context, tx mysql.Tx, category domain.MenuCategory) (*domain.MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM MenuItems WHERE category = ? ORDER BY id LIMIT 1`

	var row menuItemRow
	err := tx.QueryRowContext(ctx, query, string(category)).Scan(
		&row.ID, &row.Name, &row.Category, &row.BasePrice, &row.IsVegetarian, &row.IsVegan,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no menu item in category %s", category))
	}
	if err != nil {
		return nil, fmt.Errorf("querying menu item by category: %w", err)
	}

	item := row.toDomain()
	return &item, nil
}
