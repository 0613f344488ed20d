package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationFilesExist(t *testing.T) {
	migrationsDir := "../../migrations"

	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	expectedMigrations := []string{
		"00001_create_users_table.sql",
		"00002_create_addresses_table.sql",
		"00003_create_products_table.sql",
		"00004_create_wishlist_items_table.sql",
		"00005_create_cart_items_table.sql",
		"00006_create_orders_table.sql",
		"00007_create_order_items_table.sql",
		"00008_create_order_status_history_table.sql",
		"00009_create_updated_at_trigger.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	migrationsDir := "../../migrations"

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", file.Name(), err)
			continue
		}

		contentStr := string(content)

		if !strings.Contains(contentStr, "-- +goose Up") {
			t.Errorf("Migration file %s missing '-- +goose Up' directive", file.Name())
		}

		if !strings.Contains(contentStr, "-- +goose Down") {
			t.Errorf("Migration file %s missing '-- +goose Down' directive", file.Name())
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	migrationsDir := "../../migrations"

	expectedTables := map[string]string{
		"users":                "00001_create_users_table.sql",
		"addresses":            "00002_create_addresses_table.sql",
		"products":             "00003_create_products_table.sql",
		"wishlist_items":       "00004_create_wishlist_items_table.sql",
		"cart_items":           "00005_create_cart_items_table.sql",
		"orders":               "00006_create_orders_table.sql",
		"order_items":          "00007_create_order_items_table.sql",
		"order_status_history": "00008_create_order_status_history_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		path := filepath.Join(migrationsDir, migrationFile)
		content, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", migrationFile, err)
			continue
		}

		contentStr := string(content)

		if !strings.Contains(contentStr, "CREATE TABLE "+tableName) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}

		if !strings.Contains(contentStr, "DROP TABLE "+tableName) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestUsersTableHasRequiredColumns(t *testing.T) {
	path := filepath.Join("../../migrations", "00001_create_users_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read users migration: %v", err)
	}

	contentStr := string(content)
	requiredColumns := []string{
		"id UUID PRIMARY KEY",
		"name VARCHAR",
		"phone VARCHAR(20) UNIQUE NOT NULL",
		"email VARCHAR",
		"password_hash VARCHAR",
		"is_admin BOOLEAN",
		"is_verified BOOLEAN",
		"verify_token_hash VARCHAR",
		"reset_token_hash VARCHAR",
		"created_at TIMESTAMP",
		"updated_at TIMESTAMP",
	}

	for _, col := range requiredColumns {
		if !strings.Contains(contentStr, col) {
			t.Errorf("Users migration missing column definition: %s", col)
		}
	}
}

func TestOrdersTableConstrainsStatus(t *testing.T) {
	path := filepath.Join("../../migrations", "00006_create_orders_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read orders migration: %v", err)
	}

	contentStr := string(content)

	if !strings.Contains(contentStr, "CHECK (status IN") {
		t.Error("Orders migration missing status CHECK constraint")
	}

	for _, status := range []string{"'Pending'", "'Ordered'", "'Packed'", "'Shipped'", "'Delivered'", "'Cancelled'"} {
		if !strings.Contains(contentStr, status) {
			t.Errorf("Orders migration status constraint missing %s", status)
		}
	}
}

func TestOrderItemsTableKeepsSnapshots(t *testing.T) {
	path := filepath.Join("../../migrations", "00007_create_order_items_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read order items migration: %v", err)
	}

	contentStr := string(content)

	// Snapshot columns must exist so deleted products keep their history.
	for _, col := range []string{"product_id UUID", "name VARCHAR", "qty INT", "price DECIMAL"} {
		if !strings.Contains(contentStr, col) {
			t.Errorf("Order items migration missing column definition: %s", col)
		}
	}

	if strings.Contains(contentStr, "product_id UUID NOT NULL REFERENCES") {
		t.Error("Order items must not hold a foreign key to products")
	}
}
