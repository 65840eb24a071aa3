package database

import (
	"fmt"

	"minerfix-backend/models"

	"gorm.io/gorm"
)

// checkConstraint renders an idempotent ADD CONSTRAINT ... CHECK block.
func checkConstraint(table, name, expr string) string {
	return fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = '%[1]s'::regclass
		  AND conname  = '%[2]s'
	) THEN
		ALTER TABLE %[1]s ADD CONSTRAINT %[2]s CHECK (%[3]s);
	END IF;
END $$;`, table, name, expr)
}

// Migrate applies (idempotent) schema migrations:
// - AutoMigrate (tables/columns/index tags)
// - composite indexes the tags cannot express
// - CHECK constraints keeping money rollups consistent
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.SetupJoinTable(&models.Role{}, "Permissions", &models.RolePermission{}); err != nil {
			return fmt.Errorf("setup role_permissions join table failed: %w", err)
		}

		if err := tx.AutoMigrate(
			&models.Permission{},
			&models.Role{},
			&models.RolePermission{},
			&models.User{},
			&models.Customer{},
			&models.Technician{},
			&models.MinerModel{},
			&models.WorkOrder{},
			&models.Invoice{},
			&models.InvoiceItem{},
			&models.Payment{},
			&models.AuditLog{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_work_orders_customer_status ON work_orders (customer_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_invoices_customer_status ON invoices (customer_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_invoices_due_date ON invoices (due_date)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs (resource, resource_id)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		checks := []string{
			checkConstraint("invoice_items", "chk_invoice_items_quantity_pos", "quantity > 0"),
			checkConstraint("invoice_items", "chk_invoice_items_unit_price_nonneg", "unit_price >= 0"),
			checkConstraint("invoices", "chk_invoices_total_nonneg", "total_amount >= 0"),
			checkConstraint("invoices", "chk_invoices_paid_nonneg", "paid_amount >= 0"),
			checkConstraint("invoices", "chk_invoices_paid_le_total", "paid_amount <= total_amount"),
			checkConstraint("invoices", "chk_invoices_balance_nonneg", "balance_amount >= 0"),
			checkConstraint("payments", "chk_payments_amount_pos", "amount > 0"),
			checkConstraint("technicians", "chk_technicians_rate_nonneg", "hourly_rate >= 0"),
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}

		return nil
	})
}
