package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"pizzeria/internal/infrastructure/mysql"
)

// SetupTestDB opens the test database, by default pizzeria_test on
// localhost:3306. Tests are skipped when it is unreachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = "root:@tcp(localhost:3306)/pizzeria_test?parseTime=true&multiStatements=true&clientFoundRows=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.Ping()
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties every table, children first.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{
		"OrderConfirmations", "DiscountCodeUsages", "DiscountCodes", "Deliveries",
		"OrderItems", "Orders", "DeliveryPersonnel", "MenuItems", "Customers",
	}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables applies the embedded migrations.
func SetupTestTables(t *testing.T, db *sql.DB) {
	if err := mysql.Migrate(db, zap.NewNop()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
}

func InsertCustomer(t *testing.T, db *sql.DB, email, postalCode string, totalPizzas int) uint {
	result, err := db.Exec(`
		INSERT INTO Customers (name, email, postalCode, passwordHash, totalPizzasOrdered)
		VALUES ('Test Customer', ?, ?, 'hash', ?)`, email, postalCode, totalPizzas)
	if err != nil {
		t.Fatalf("failed to insert customer: %v", err)
	}
	return lastID(t, result)
}

func InsertMenuItem(t *testing.T, db *sql.DB, name, category, basePrice string) uint {
	result, err := db.Exec(`INSERT INTO MenuItems (name, category, basePrice) VALUES (?, ?, ?)`, name, category, basePrice)
	if err != nil {
		t.Fatalf("failed to insert menu item: %v", err)
	}
	return lastID(t, result)
}

func InsertCourier(t *testing.T, db *sql.DB, name string, postalCode *string, available bool) uint {
	result, err := db.Exec(`INSERT INTO DeliveryPersonnel (name, postalCode, isAvailable) VALUES (?, ?, ?)`, name, postalCode, available)
	if err != nil {
		t.Fatalf("failed to insert courier: %v", err)
	}
	return lastID(t, result)
}

func InsertOrder(t *testing.T, db *sql.DB, customerID uint, status string) uint {
	result, err := db.Exec(`INSERT INTO Orders (customerId, status, totalPrice) VALUES (?, ?, 10.00)`, customerID, status)
	if err != nil {
		t.Fatalf("failed to insert order: %v", err)
	}
	return lastID(t, result)
}

func lastID(t *testing.T, result sql.Result) uint {
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read last insert id: %v", err)
	}
	return uint(id)
}
