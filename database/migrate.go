package database

import (
	"fmt"

	"contable-backend/config"
	"contable-backend/models"

	"gorm.io/gorm"
)

// Migrate applies (idempotent) schema migrations:
// - AutoMigrate tables/columns
// - Money column types (NUMERIC(12,2))
// - The partial unique index guaranteeing at most one open statement session
// - Basic CHECK constraints on monetary columns
func Migrate() error {
	log := config.GetLogger()

	err := DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.Invoice{},
			&models.Payment{},
			&models.PaymentAllocation{},
			&models.AppTransaction{},
			&models.BankStatementSession{},
			&models.BankTransaction{},
			&models.SequenceCounter{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		// --- Enforce money columns as NUMERIC(12,2) (idempotent ALTERs) ---
		alters := []string{
			`ALTER TABLE invoices            ALTER COLUMN total_amount      TYPE numeric(12,2)`,
			`ALTER TABLE invoices            ALTER COLUMN remaining_balance TYPE numeric(12,2)`,
			`ALTER TABLE payments            ALTER COLUMN total_amount      TYPE numeric(12,2)`,
			`ALTER TABLE payment_allocations ALTER COLUMN amount_applied    TYPE numeric(12,2)`,
			`ALTER TABLE app_transactions    ALTER COLUMN amount            TYPE numeric(12,2)`,
			`ALTER TABLE bank_transactions   ALTER COLUMN amount            TYPE numeric(12,2)`,
		}
		for _, stmt := range alters {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("money type migration failed on: %s - %w", stmt, err)
			}
		}

		// --- One open session, enforced in the schema as well as in code ---
		indexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_one_open_statement_session
				ON bank_statement_sessions (is_finalized) WHERE NOT is_finalized`,
			`CREATE INDEX IF NOT EXISTS idx_bank_transactions_session_pending
				ON bank_transactions (session_id, is_reconciled)`,
			`CREATE INDEX IF NOT EXISTS idx_app_transactions_pending
				ON app_transactions (is_reconciled, kind, date)`,
			`CREATE INDEX IF NOT EXISTS idx_payment_allocations_invoice
				ON payment_allocations (invoice_id)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Basic CHECK constraints (idempotent) ---
		checks := []string{
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'invoices'::regclass
					  AND conname  = 'chk_invoices_balance_range'
				) THEN
					ALTER TABLE invoices
					ADD CONSTRAINT chk_invoices_balance_range
					CHECK (remaining_balance >= 0 AND remaining_balance <= total_amount);
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'payments'::regclass
					  AND conname  = 'chk_payments_amount_positive'
				) THEN
					ALTER TABLE payments
					ADD CONSTRAINT chk_payments_amount_positive
					CHECK (total_amount > 0);
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'app_transactions'::regclass
					  AND conname  = 'chk_app_transactions_amount_positive'
				) THEN
					ALTER TABLE app_transactions
					ADD CONSTRAINT chk_app_transactions_amount_positive
					CHECK (amount > 0);
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}
	log.Info("database migrated")
	return nil
}
