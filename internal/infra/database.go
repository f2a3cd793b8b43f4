package infra

import (
	"fmt"

	"tallerops/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, migrates the
// schema and applies the idempotent SQL patches that AutoMigrate cannot
// express (partial unique indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Unique violations must surface as gorm.ErrDuplicatedKey so the
		// repository can map the open-session conflict to a domain error.
		TranslateError: true,
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

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// applySchemaPatches runs idempotent DDL that GORM AutoMigrate cannot handle.
//
// The single-open-session invariant lives here, in the database, NOT in
// application code: uq_cash_sessions_open is a partial unique index over
// status='open', so the INSERT of a second open session fails atomically no
// matter how many service instances race. The repository maps that unique
// violation to the domain error.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`DO $$ BEGIN
		  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'cash_sessions')
		    AND NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uq_cash_sessions_open') THEN
		    CREATE UNIQUE INDEX uq_cash_sessions_open
		        ON cash_sessions (status)
		        WHERE status = 'open';
		  END IF;
		END $$`,
		// Reconciliation reads "all movements / sales of session X" constantly.
		`DO $$ BEGIN
		  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'cash_movements')
		    AND NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cash_movements_session') THEN
		    CREATE INDEX idx_cash_movements_session
		        ON cash_movements (session_id, created_at);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'sales')
		    AND NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_sales_session') THEN
		    CREATE INDEX idx_sales_session
		        ON sales (session_id, created_at);
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}

// RunMigrations creates or updates the ledger schema. AutoMigrate first, so
// the tables exist before the patch guards check for them.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.CashSession{},
		&model.CashMovement{},
		&model.Sale{},
		&model.SalePayment{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}
