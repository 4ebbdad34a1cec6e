package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria/internal/domain"
	"pizzeria/internal/errors"
	"pizzeria/internal/testutil"
)

func TestNewMySQLMenuRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLMenuRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db.DB)
}

// Integration Tests

func TestMenuRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	testutil.InsertMenuItem(t, db, "Margherita", "PIZZA", "5.00")
	testutil.InsertMenuItem(t, db, "Cola", "DRINK", "2.00")
	testutil.InsertMenuItem(t, db, "Tiramisu", "DESSERT", "3.50")

	repo := NewMySQLMenuRepository(db)

	all, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pizzas, err := repo.List(context.Background(), domain.CategoryPizza)
	require.NoError(t, err)
	require.Len(t, pizzas, 1)
	assert.Equal(t, "Margherita", pizzas[0].Name)
	assert.True(t, decimal.RequireFromString("5.00").Equal(pizzas[0].BasePrice))
}

func TestMenuRepository_FindByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	pizzaID := testutil.InsertMenuItem(t, db, "Funghi", "PIZZA", "6.00")
	drinkID := testutil.InsertMenuItem(t, db, "Water", "DRINK", "1.00")

	repo := NewMySQLMenuRepository(db)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	items, err := repo.FindByIDs(ctx, tx, []uint{pizzaID, drinkID, 9999})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.CategoryPizza, items[0].Category)
}

func TestMenuRepository_FindFirstByCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	firstID := testutil.InsertMenuItem(t, db, "Marinara", "PIZZA", "4.50")
	testutil.InsertMenuItem(t, db, "Diavola", "PIZZA", "7.00")

	repo := NewMySQLMenuRepository(db)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	item, err := repo.FindFirstByCategory(ctx, tx, domain.CategoryPizza)
	require.NoError(t, err)
	assert.Equal(t, firstID, item.ID)

	_, err = repo.FindFirstByCategory(ctx, tx, domain.CategoryDessert)
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}
