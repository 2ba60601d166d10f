package models

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// PriceBreakdown counts sold units per observed unit price. Keys are the
// normalized decimal strings, so 10, 10.0 and 10.00 land in one bucket.
type PriceBreakdown map[string]int

func (b PriceBreakdown) add(price decimal.Decimal, qty int) {
	b[price.String()] += qty
}

// Qty answers "how many units went out at exactly this price".
func (b PriceBreakdown) Qty(price decimal.Decimal) int {
	return b[price.String()]
}

type SalesReportRow struct {
	ProductId   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	TotalQty    int             `json:"total_qty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Breakdown   PriceBreakdown  `json:"breakdown"`
}

// TierSales resolves a tier's sold quantity by looking the tier's current
// price up in the breakdown. Tiers whose price changed since the sale will
// not match; that is the known caveat of price-keyed attribution.
type TierSales struct {
	Tier  string          `json:"tier"`
	Price decimal.Decimal `json:"price"`
	Qty   int             `json:"qty"`
}

func (r *SalesReportRow) TierBreakdown(p *Product) []TierSales {
	tiers := p.PriceTiers()
	out := make([]TierSales, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, TierSales{
			Tier:  tier.Tier,
			Price: tier.Price,
			Qty:   r.Breakdown.Qty(tier.Price),
		})
	}
	return out
}

// BuildSalesReport folds sale lines into one row per product: summed
// quantity, summed amount, and the per-price breakdown. Rows come back
// sorted by quantity sold, best seller first; ties break on name.
func BuildSalesReport(lines []*SaleLine) []*SalesReportRow {
	byProduct := map[int]*SalesReportRow{}
	var order []int

	for _, line := range lines {
		row, ok := byProduct[line.ProductId]
		if !ok {
			row = &SalesReportRow{
				ProductId:   line.ProductId,
				ProductName: line.ProductName,
				Breakdown:   PriceBreakdown{},
			}
			byProduct[line.ProductId] = row
			order = append(order, line.ProductId)
		}
		row.TotalQty += line.Qty
		row.TotalAmount = row.TotalAmount.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))))
		row.Breakdown.add(line.UnitPrice, line.Qty)
	}

	rows := make([]*SalesReportRow, 0, len(byProduct))
	for _, id := range order {
		rows = append(rows, byProduct[id])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalQty != rows[j].TotalQty {
			return rows[i].TotalQty > rows[j].TotalQty
		}
		return rows[i].ProductName < rows[j].ProductName
	})
	return rows
}

func GetSalesReport(ctx context.Context, from, to time.Time, branchIds []int) ([]*SalesReportRow, error) {
	lines, err := FetchSaleLines(ctx, from, to, branchIds)
	if err != nil {
		return nil, err
	}
	return BuildSalesReport(lines), nil
}

// ExportSalesReportExcel renders the report as an xlsx workbook for the
// dashboard's download button.
func ExportSalesReportExcel(rows []*SalesReportRow, from, to time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sales"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"#", "Product", "Qty Sold", "Total Amount", "Prices"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		prices := make([]string, 0, len(row.Breakdown))
		for price := range row.Breakdown {
			prices = append(prices, price)
		}
		sort.Strings(prices)
		priceSummary := ""
		for _, price := range prices {
			if priceSummary != "" {
				priceSummary += ", "
			}
			priceSummary += fmt.Sprintf("%s×%d", price, row.Breakdown[price])
		}

		values := []interface{}{i + 1, row.ProductName, row.TotalQty, row.TotalAmount.StringFixed(2), priceSummary}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	title := fmt.Sprintf("Sales %s - %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err := f.SetDocProps(&excelize.DocProperties{Title: title}); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
