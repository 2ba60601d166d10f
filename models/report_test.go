package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func saleAt(productId int, name string, qty int, price string) *SaleLine {
	p, _ := decimal.NewFromString(price)
	return &SaleLine{
		ProductId:   productId,
		ProductName: name,
		BranchId:    1,
		Qty:         qty,
		UnitPrice:   p,
		SoldAt:      time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuildSalesReport_Breakdown(t *testing.T) {
	lines := []*SaleLine{
		saleAt(1, "قميص", 2, "10"),
		saleAt(1, "قميص", 3, "10.00"),
		saleAt(1, "قميص", 1, "12"),
	}

	rows := BuildSalesReport(lines)
	if len(rows) != 1 {
		t.Fatalf("expected one product row, got %d", len(rows))
	}
	row := rows[0]

	if row.TotalQty != 6 {
		t.Fatalf("expected 6 units, got %d", row.TotalQty)
	}
	if !row.TotalAmount.Equal(decimal.NewFromInt(62)) {
		t.Fatalf("expected amount 62, got %s", row.TotalAmount)
	}
	// 10 and 10.00 are the same price bucket
	if got := row.Breakdown.Qty(decimal.NewFromInt(10)); got != 5 {
		t.Fatalf("expected 5 units at price 10, got %d", got)
	}
	if got := row.Breakdown.Qty(decimal.NewFromInt(12)); got != 1 {
		t.Fatalf("expected 1 unit at price 12, got %d", got)
	}
	if got := row.Breakdown.Qty(decimal.NewFromInt(99)); got != 0 {
		t.Fatalf("unseen price must report 0, got %d", got)
	}
}

func TestBuildSalesReport_SortsByQtyDesc(t *testing.T) {
	lines := []*SaleLine{
		saleAt(1, "قميص", 2, "10"),
		saleAt(2, "بنطال", 9, "30"),
		saleAt(3, "حذاء", 4, "50"),
		saleAt(1, "قميص", 1, "10"),
	}

	rows := BuildSalesReport(lines)
	if len(rows) != 3 {
		t.Fatalf("expected 3 product rows, got %d", len(rows))
	}
	if rows[0].ProductId != 2 || rows[1].ProductId != 3 || rows[2].ProductId != 1 {
		t.Fatalf("expected best sellers first, got %d,%d,%d",
			rows[0].ProductId, rows[1].ProductId, rows[2].ProductId)
	}
}

func TestBuildSalesReport_Empty(t *testing.T) {
	if rows := BuildSalesReport(nil); len(rows) != 0 {
		t.Fatalf("no lines means no rows, got %d", len(rows))
	}
}

func TestTierBreakdown_MatchesCurrentPrices(t *testing.T) {
	product := &Product{
		RetailPrice:    decimal.NewFromInt(10),
		WholesalePrice: decimal.NewFromInt(8),
		Price1:         decimal.NewFromInt(12),
	}
	lines := []*SaleLine{
		saleAt(1, "قميص", 5, "10"),
		saleAt(1, "قميص", 2, "12"),
		saleAt(1, "قميص", 3, "7"), // sold at a price no tier currently has
	}

	row := BuildSalesReport(lines)[0]
	tiers := row.TierBreakdown(product)

	byTier := map[string]int{}
	for _, tier := range tiers {
		byTier[tier.Tier] = tier.Qty
	}
	if byTier["retail"] != 5 {
		t.Fatalf("expected 5 at the retail price, got %d", byTier["retail"])
	}
	if byTier["price1"] != 2 {
		t.Fatalf("expected 2 at price1, got %d", byTier["price1"])
	}
	if byTier["wholesale"] != 0 {
		t.Fatalf("no sales at the wholesale price, got %d", byTier["wholesale"])
	}
}

func TestExportSalesReportExcel(t *testing.T) {
	lines := []*SaleLine{
		saleAt(1, "قميص", 5, "10"),
		saleAt(2, "بنطال", 2, "30"),
	}
	rows := BuildSalesReport(lines)

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	buf, err := ExportSalesReportExcel(rows, from, to)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a non-empty workbook")
	}
}
