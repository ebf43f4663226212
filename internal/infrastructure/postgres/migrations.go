package postgres

import (
	"context"
	"fmt"
)

// schema tablas del núcleo POS. Idempotente (IF NOT EXISTS), se aplica en orden al arrancar.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS drugs (
		id                    TEXT PRIMARY KEY,
		name                  TEXT NOT NULL,
		generic_name          TEXT NOT NULL DEFAULT '',
		category_id           TEXT,
		manufacturer          TEXT NOT NULL DEFAULT '',
		suggested_price       NUMERIC(14,2) NOT NULL DEFAULT 0,
		requires_prescription BOOLEAN NOT NULL DEFAULT FALSE,
		packaging_unit        TEXT NOT NULL DEFAULT 'unidad',
		units_per_package     INTEGER NOT NULL DEFAULT 1 CHECK (units_per_package > 0),
		packages_per_box      INTEGER NOT NULL DEFAULT 1 CHECK (packages_per_box > 0),
		packaging_description TEXT NOT NULL DEFAULT '',
		created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_drugs_category ON drugs (category_id)`,
	`CREATE TABLE IF NOT EXISTS shop_drug_packaging (
		shop_id           TEXT NOT NULL,
		drug_id           TEXT NOT NULL REFERENCES drugs(id),
		unit              TEXT NOT NULL,
		units_per_package INTEGER NOT NULL CHECK (units_per_package > 0),
		packages_per_box  INTEGER NOT NULL CHECK (packages_per_box > 0),
		description       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (shop_id, drug_id)
	)`,
	`CREATE TABLE IF NOT EXISTS shop_drugs (
		shop_id           TEXT NOT NULL,
		drug_id           TEXT NOT NULL REFERENCES drugs(id),
		reorder_point     INTEGER NOT NULL DEFAULT 0 CHECK (reorder_point >= 0),
		is_available      BOOLEAN NOT NULL DEFAULT TRUE,
		last_restock_date TIMESTAMPTZ,
		cost_price        NUMERIC(14,4) NOT NULL DEFAULT 0,
		selling_price     NUMERIC(14,2) NOT NULL DEFAULT 0,
		currency          TEXT NOT NULL DEFAULT '',
		tax_rate          NUMERIC(6,4) NOT NULL DEFAULT 0,
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (shop_id, drug_id)
	)`,
	`CREATE TABLE IF NOT EXISTS drug_batches (
		shop_id              TEXT NOT NULL,
		drug_id              TEXT NOT NULL,
		batch_number         TEXT NOT NULL,
		supplier_id          TEXT,
		quantity_on_hand     INTEGER NOT NULL CHECK (quantity_on_hand >= 0),
		reserved_quantity    INTEGER NOT NULL DEFAULT 0 CHECK (reserved_quantity >= 0),
		quarantined_quantity INTEGER NOT NULL DEFAULT 0 CHECK (quarantined_quantity >= 0),
		received_date        TIMESTAMPTZ NOT NULL,
		expiry_date          TIMESTAMPTZ NOT NULL,
		purchase_price       NUMERIC(14,4) NOT NULL DEFAULT 0,
		selling_price        NUMERIC(14,2) NOT NULL DEFAULT 0,
		location             TEXT NOT NULL,
		storage_location     TEXT NOT NULL DEFAULT '',
		status               TEXT NOT NULL,
		PRIMARY KEY (shop_id, drug_id, batch_number),
		FOREIGN KEY (shop_id, drug_id) REFERENCES shop_drugs(shop_id, drug_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_drug_batches_expiry ON drug_batches (shop_id, expiry_date)`,
	`CREATE TABLE IF NOT EXISTS allocation_plans (
		id         TEXT PRIMARY KEY,
		shop_id    TEXT NOT NULL,
		drug_id    TEXT NOT NULL,
		strategy   TEXT NOT NULL,
		status     TEXT NOT NULL,
		lines      JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		settled_at TIMESTAMPTZ,
		FOREIGN KEY (shop_id, drug_id) REFERENCES shop_drugs(shop_id, drug_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_allocation_plans_ledger ON allocation_plans (shop_id, drug_id)`,
	`CREATE TABLE IF NOT EXISTS shop_order_counters (
		shop_id    TEXT PRIMARY KEY,
		last_value BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales_orders (
		id                       TEXT PRIMARY KEY,
		order_number             TEXT NOT NULL,
		shop_id                  TEXT NOT NULL,
		cashier_id               TEXT NOT NULL,
		customer_id              TEXT,
		status                   TEXT NOT NULL,
		sub_total                NUMERIC(14,2) NOT NULL DEFAULT 0,
		tax_amount               NUMERIC(14,2) NOT NULL DEFAULT 0,
		discount_amount          NUMERIC(14,2) NOT NULL DEFAULT 0,
		total_amount             NUMERIC(14,2) NOT NULL DEFAULT 0,
		amount_paid              NUMERIC(14,2) NOT NULL DEFAULT 0,
		change_given             NUMERIC(14,2) NOT NULL DEFAULT 0,
		balance_due              NUMERIC(14,2) NOT NULL DEFAULT 0,
		refund_amount            NUMERIC(14,2) NOT NULL DEFAULT 0,
		payment_method           TEXT,
		payment_reference        TEXT,
		is_prescription_required BOOLEAN NOT NULL DEFAULT FALSE,
		prescription_number      TEXT,
		order_date               TIMESTAMPTZ NOT NULL,
		paid_at                  TIMESTAMPTZ,
		completed_at             TIMESTAMPTZ,
		cancelled_at             TIMESTAMPTZ,
		cancellation_reason      TEXT,
		cancelled_by             TEXT,
		notes                    TEXT,
		created_at               TIMESTAMPTZ NOT NULL,
		updated_at               TIMESTAMPTZ NOT NULL,
		UNIQUE (shop_id, order_number),
		CHECK (completed_at IS NULL OR cancelled_at IS NULL)
	)`,
	`CREATE TABLE IF NOT EXISTS sales_order_items (
		id                  TEXT PRIMARY KEY,
		order_id            TEXT NOT NULL REFERENCES sales_orders(id) ON DELETE CASCADE,
		position            INTEGER NOT NULL,
		drug_id             TEXT NOT NULL,
		batch_number        TEXT NOT NULL,
		quantity            INTEGER NOT NULL CHECK (quantity > 0),
		unit_price          NUMERIC(14,2) NOT NULL,
		discount_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
		discount_amount     NUMERIC(14,2) NOT NULL DEFAULT 0,
		tax_rate            NUMERIC(6,4) NOT NULL DEFAULT 0,
		total_price         NUMERIC(14,2) NOT NULL,
		tax_amount          NUMERIC(14,2) NOT NULL DEFAULT 0,
		plan_id             TEXT NOT NULL REFERENCES allocation_plans(id),
		committed_at        TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_order_items_order ON sales_order_items (order_id, position)`,
}

// Migrate crea el esquema si no existe.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migración %d: %w", i+1, err)
		}
	}
	return nil
}
