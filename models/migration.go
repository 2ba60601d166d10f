package models

import (
	"os"

	"github.com/mizanpos/pos_backend/config"
)

// Migrate runs schema auto-migration. SKIP_MIGRATIONS=true skips it for
// environments where the schema is managed externally.
func Migrate() error {
	if os.Getenv("SKIP_MIGRATIONS") == "true" {
		return nil
	}

	db := config.GetDB()
	return db.AutoMigrate(
		&User{},
		&Branch{},
		&Warehouse{},
		&Category{},
		&Product{},
		&Inventory{},
		&ProductVariant{},
		&Order{},
		&OrderItem{},
		&SaleItem{},
		&PurchaseInvoiceItem{},
	)
}
