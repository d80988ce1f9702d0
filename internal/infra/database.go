package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/weps89/lb-electronica/internal/model"
)

// NewDatabase establishes a GORM connection backed by pgx. Migrations are a
// separate step (RunMigrations) so tests and tooling can connect without
// touching the schema.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
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

	return db, nil
}

// RunMigrations creates / updates all tables and applies idempotent SQL
// patches. Also used by the integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Customer{},
		&model.Product{},
		&model.ExchangeRate{},
		&model.StockEntry{},
		&model.StockEntryItem{},
		&model.LedgerMovement{},
		&model.Sale{},
		&model.SaleItem{},
		&model.CashSession{},
		&model.CashMovement{},
		&model.AuditLog{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that GORM cannot express. Each
// statement uses IF NOT EXISTS semantics so re-running is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Lot batch codes ("LOTE-000001") draw from a dedicated sequence so
		// retried ingestions may leave gaps but never duplicate.
		{"stock entry lot number sequence",
			`CREATE SEQUENCE IF NOT EXISTS stock_entries_lot_seq START 1`},
		// Belt-and-braces for the one-open-session rule: the service checks
		// inside the opening transaction, this index rejects the race loser.
		{"single open cash session per user", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cash_sessions_one_open') THEN
    CREATE UNIQUE INDEX idx_cash_sessions_one_open
        ON cash_sessions (user_id)
        WHERE is_open;
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
