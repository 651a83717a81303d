package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Products and variants carry their own active flags; a variant is orderable
// only when both are true. Inventories are 1:1 with variants and hold the
// quantity the reserve path decrements under FOR UPDATE.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS variants (
		id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(id),
		sku TEXT NOT NULL UNIQUE,
		size TEXT NOT NULL,
		color TEXT NOT NULL,
		price BIGINT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS inventories (
		variant_id BIGINT PRIMARY KEY REFERENCES variants(id),
		quantity INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT,
		status TEXT NOT NULL DEFAULT 'draft',
		total_amount BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_orders_user ON orders(user_id)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		variant_id BIGINT NOT NULL,
		sku TEXT NOT NULL,
		title TEXT NOT NULL,
		size TEXT NOT NULL,
		color TEXT NOT NULL,
		unit_price BIGINT NOT NULL,
		quantity INT NOT NULL,
		line_total BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_order_items_order ON order_items(order_id)`,
	`CREATE TABLE IF NOT EXISTS payment_transactions (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		amount BIGINT NOT NULL,
		gateway TEXT NOT NULL DEFAULT 'mock',
		status TEXT NOT NULL DEFAULT 'initiated',
		authority TEXT NOT NULL UNIQUE,
		ref_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
