package postgres

import (
	"context"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"puntoventa/backend/internal/identity"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		color TEXT,
		icon TEXT,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL UNIQUE,
		barcode TEXT,
		name TEXT NOT NULL,
		description TEXT,
		category_id TEXT REFERENCES categories(id),
		price NUMERIC(12,2) NOT NULL,
		cost NUMERIC(12,2) NOT NULL DEFAULT 0,
		stock NUMERIC(12,3) NOT NULL DEFAULT 0,
		min_stock NUMERIC(12,3) NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT 'unit',
		tax_rate NUMERIC(6,4) NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		address TEXT,
		loyalty_points NUMERIC(12,2) NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL,
		full_name TEXT,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS cash_registers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		location TEXT,
		active BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		register_id TEXT NOT NULL REFERENCES cash_registers(id),
		opening_balance NUMERIC(12,2) NOT NULL,
		closing_balance NUMERIC(12,2),
		expected_balance NUMERIC(12,2),
		difference NUMERIC(12,2),
		notes TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		opened_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		closed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS shifts_one_open_per_user
		ON shifts (user_id) WHERE status = 'open'`,
	`CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		sale_number TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		customer_id TEXT REFERENCES customers(id),
		shift_id TEXT REFERENCES shifts(id),
		subtotal NUMERIC(12,2) NOT NULL,
		tax_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		total NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		payment_status TEXT NOT NULL DEFAULT 'paid',
		payment_method TEXT NOT NULL DEFAULT 'cash',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS sales_shift_idx ON sales (shift_id)`,
	`CREATE INDEX IF NOT EXISTS sales_created_idx ON sales (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		id TEXT PRIMARY KEY,
		sale_id TEXT NOT NULL REFERENCES sales(id),
		product_id TEXT NOT NULL REFERENCES products(id),
		quantity NUMERIC(12,3) NOT NULL,
		unit_price NUMERIC(12,2) NOT NULL,
		discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		tax_rate NUMERIC(6,4) NOT NULL DEFAULT 0,
		subtotal NUMERIC(12,2) NOT NULL,
		total NUMERIC(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		sale_id TEXT NOT NULL REFERENCES sales(id),
		method TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id),
		kind TEXT NOT NULL,
		quantity NUMERIC(12,3) NOT NULL,
		reference_id TEXT,
		note TEXT,
		user_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS stock_movements_product_idx ON stock_movements (product_id, created_at DESC)`,
}

// Migrate creates the schema if it does not exist yet and seeds the minimum
// rows a fresh installation needs: one cash register, and an admin account
// when SEED_ADMIN_PASSWORD is set and the users table is empty.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_registers (id, name, location, active)
		VALUES ($1, 'Main Register', 'Front counter', true)
		ON CONFLICT (name) DO NOTHING
	`, identity.New())
	if err != nil {
		return err
	}

	return s.seedAdmin(ctx)
}

func (s *Store) seedAdmin(ctx context.Context) error {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Println("[postgres] users table is empty and SEED_ADMIN_PASSWORD is unset, skipping admin seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password, role, full_name, active, created_at)
		VALUES ($1, 'admin', $2, 'admin', 'Administrator', true, $3)
		ON CONFLICT (username) DO NOTHING
	`, identity.New(), string(hash), time.Now().UTC())
	return err
}
