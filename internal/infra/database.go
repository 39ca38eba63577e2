package infra

import (
	"fmt"
	"time"

	"akppos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the GORM connection and, when migrate is set, brings the
// schema up to date with RunMigrations.
func NewDatabase(dsn string, migrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if migrate {
		if err := RunMigrations(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// RunMigrations runs AutoMigrate for every model and then the schema patches
// GORM tags cannot express. Safe to run repeatedly.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches adds constraints and partial indexes. Every statement is
// guarded so re-running on a patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	for _, p := range schemaPatches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

var schemaPatches = []struct{ descr, sql string }{
	// Last line of defence behind the conditional decrement.
	{"products stock non-negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_products_stock_non_negative') THEN
    ALTER TABLE products ADD CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0);
  END IF;
END $$`},
	// A non-positive line would turn a sale into a restock.
	{"order items positive quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_order_items_quantity_positive') THEN
    ALTER TABLE order_items ADD CONSTRAINT chk_order_items_quantity_positive CHECK (quantity > 0);
  END IF;
END $$`},
	{"categories unique name per tenant",
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_tenant_lower_name
    ON categories (tenant_id, lower(name))`},
	{"products unique barcode per tenant",
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_tenant_barcode
    ON products (tenant_id, barcode)
    WHERE barcode IS NOT NULL AND barcode <> ''`},
	{"inventory logs newest first",
		`CREATE INDEX IF NOT EXISTS idx_inventory_logs_tenant_created
    ON inventory_logs (tenant_id, created_at DESC)`},
	// Retry cron query.
	{"invoices pending email retry",
		`CREATE INDEX IF NOT EXISTS idx_invoices_pending_retry
    ON invoices (next_retry_at)
    WHERE email_status = 'failed' AND next_retry_at IS NOT NULL`},
}
