package models

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductView is the denormalized row the dashboard renders: one product,
// its decoded description, stock everywhere, variants, every image we can
// find, and the effective discounted price. Built purely from loaded rows.
type ProductView struct {
	Product     *Product                         `json:"product"`
	Description string                           `json:"description"`
	Palette     []ProductColor                   `json:"palette"`
	TotalQty    int                              `json:"total_qty"`
	Levels      map[LocationRef]InventoryLevel   `json:"levels"`
	Variants    map[LocationRef][]*ProductVariant `json:"variants"`
	Images      []string                         `json:"images"`
	FinalPrice  decimal.Decimal                  `json:"final_price"`
	Discounted  bool                             `json:"discounted"`
	Label       string                           `json:"discount_label"`
}

func BuildProductView(p *Product, inventory []*Inventory, variants []*ProductVariant, now time.Time) *ProductView {
	view := ProductView{
		Product:  p,
		Levels:   map[LocationRef]InventoryLevel{},
		Variants: map[LocationRef][]*ProductVariant{},
	}

	view.Description, view.Palette = DecodeDescription(p.Description)

	for _, row := range inventory {
		loc := row.Location()
		level := view.Levels[loc]
		level.Qty += row.Qty
		if row.MinStock > level.MinStock {
			level.MinStock = row.MinStock
		}
		view.Levels[loc] = level
		view.TotalQty += row.Qty
	}

	for _, v := range variants {
		loc := v.Location()
		view.Variants[loc] = append(view.Variants[loc], v)
	}

	view.Images = collectImages(p, variants)
	view.FinalPrice, view.Label, view.Discounted = ComputeDiscount(
		p.RetailPrice, p.DiscountPercent, p.DiscountAmount, p.DiscountStart, p.DiscountEnd, now)

	return &view
}

// QtyIn sums stock over the operator's location filter; a nil or empty set
// means everywhere.
func (v *ProductView) QtyIn(selected LocationSet) int {
	total := 0
	for loc, level := range v.Levels {
		if selected.Contains(loc) {
			total += level.Qty
		}
	}
	return total
}

// Status classifies the filtered stock: nothing anywhere is zero; any
// selected location sitting at or under its floor flags low; otherwise good.
func (v *ProductView) Status(selected LocationSet) StockStatus {
	if v.QtyIn(selected) == 0 {
		return StockStatusZero
	}
	for loc, level := range v.Levels {
		if !selected.Contains(loc) {
			continue
		}
		if LevelIsLow(level) {
			return StockStatusLow
		}
	}
	return StockStatusGood
}

// VariantsIn flattens the filtered variant rows.
func (v *ProductView) VariantsIn(selected LocationSet) []*ProductVariant {
	var out []*ProductVariant
	for loc, rows := range v.Variants {
		if selected.Contains(loc) {
			out = append(out, rows...)
		}
	}
	return out
}

// collectImages gathers every image URL tied to a product, in display
// order: main image, variant images, images buried in variant value JSON,
// the video_url column legacy clients abused as a JSON list of extra image
// URLs, then the sub image. Duplicates and blanks are dropped.
func collectImages(p *Product, variants []*ProductVariant) []string {
	var out []string
	seen := map[string]bool{}
	add := func(url string) {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		out = append(out, url)
	}

	add(p.MainImage)
	for _, v := range variants {
		add(v.ImageUrl)
	}
	for _, v := range variants {
		for _, url := range v.ExtraImages() {
			add(url)
		}
	}
	for _, url := range decodeAuxImages(p.VideoUrl) {
		add(url)
	}
	add(p.SubImage)
	return out
}

// decodeAuxImages reads the video_url column. When it holds a JSON array
// the entries are extra image URLs; anything else is ignored here.
func decodeAuxImages(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(trimmed), &urls); err != nil {
		return nil
	}
	return urls
}

// ComputeDiscount resolves the effective price. A discount applies when a
// percent or amount is set and now falls inside the window; missing bounds
// leave that side open.
func ComputeDiscount(price, percent, amount decimal.Decimal, start, end *time.Time, now time.Time) (decimal.Decimal, string, bool) {
	hasDiscount := percent.IsPositive() || amount.IsPositive()
	if !hasDiscount {
		return price, "", false
	}
	if start != nil && now.Before(*start) {
		return price, "", false
	}
	if end != nil && now.After(*end) {
		return price, "", false
	}

	if percent.IsPositive() {
		factor := decimal.NewFromInt(1).Sub(percent.Div(decimal.NewFromInt(100)))
		return price.Mul(factor).Round(2), "-" + percent.String() + "%", true
	}

	final := price.Sub(amount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	return final, "-" + amount.String(), true
}

// GetProductView loads everything one dashboard row needs.
func GetProductView(ctx context.Context, productId int) (*ProductView, error) {
	product, err := GetProduct(ctx, productId)
	if err != nil {
		return nil, err
	}
	inventory, err := GetProductInventory(ctx, productId)
	if err != nil {
		return nil, err
	}
	variants, err := GetAllVariants(ctx, productId)
	if err != nil {
		return nil, err
	}
	return BuildProductView(product, inventory, variants, time.Now()), nil
}
