package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for the local sqlite mode. Column
// types are loosened to what sqlite understands; constraints that the state
// manager relies on (unique cart/wishlist rows, positive quantities) are kept.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		image TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS subcategories (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL REFERENCES categories (id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (category_id, slug)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		price NUMERIC NOT NULL,
		mrp NUMERIC NOT NULL,
		discount INTEGER NOT NULL DEFAULT 0,
		rating REAL NOT NULL DEFAULT 0,
		rating_count INTEGER,
		seller TEXT NOT NULL,
		category_id TEXT NOT NULL,
		subcategory_id TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		CHECK (price <= mrp)
	)`,
	`CREATE TABLE IF NOT EXISTS product_images (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		image_url TEXT NOT NULL,
		display_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS product_sizes (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		size TEXT NOT NULL,
		stock_quantity INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS product_colors (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		color TEXT NOT NULL,
		hex_code TEXT,
		stock_quantity INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		full_name TEXT,
		email TEXT,
		phone TEXT,
		address TEXT,
		city TEXT,
		state TEXT,
		pincode TEXT,
		display_name TEXT,
		avatar_url TEXT,
		bio TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
		selected_size TEXT,
		selected_color TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (user_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS wishlist_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (user_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		address TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		pincode TEXT NOT NULL,
		total_amount NUMERIC NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		product_image TEXT,
		product_price NUMERIC NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		selected_size TEXT,
		selected_color TEXT,
		subtotal NUMERIC NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// ApplySQLite creates every table on a sqlite connection. It is idempotent.
func ApplySQLite(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
