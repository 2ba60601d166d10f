package models

import (
	"context"
	"time"

	"github.com/mizanpos/pos_backend/config"
	"github.com/shopspring/decimal"
)

// SaleItem is one POS receipt line. Written by the tills, read-only here;
// it feeds the sales report and the product delete guard.
type SaleItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	BranchId  int             `gorm:"index;not null" json:"branch_id"`
	Qty       int             `gorm:"not null" json:"qty"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	SoldAt    time.Time       `gorm:"index;not null" json:"sold_at"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// PurchaseInvoiceItem is a supplier invoice line; only consulted by the
// product delete guard.
type PurchaseInvoiceItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Qty       int             `gorm:"not null" json:"qty"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// SaleLine is the joined shape the report query scans into.
type SaleLine struct {
	ProductId   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	BranchId    int             `json:"branch_id"`
	BranchName  string          `json:"branch_name"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SoldAt      time.Time       `json:"sold_at"`
}

func FetchSaleLines(ctx context.Context, from, to time.Time, branchIds []int) ([]*SaleLine, error) {
	db := config.GetDB()

	query := `
		SELECT si.product_id,
		       p.name   AS product_name,
		       si.branch_id,
		       b.name   AS branch_name,
		       si.qty,
		       si.unit_price,
		       si.sold_at
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		LEFT JOIN branches b ON b.id = si.branch_id
		WHERE si.sold_at >= ? AND si.sold_at < ?`
	args := []interface{}{from, to}

	if len(branchIds) > 0 {
		query += " AND si.branch_id IN ?"
		args = append(args, branchIds)
	}
	query += " ORDER BY si.sold_at ASC, si.id ASC"

	var lines []*SaleLine
	err := db.WithContext(ctx).Raw(query, args...).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}
