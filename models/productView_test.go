package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the view-model
// math the dashboard depends on: description round-trips, stock aggregation,
// status classification, image collection and discount resolution.

func TestDecodeDescription_RoundTrip(t *testing.T) {
	colors := []ProductColor{
		{Name: "أحمر", Code: "#ff0000", Image: "https://cdn.test/red.jpg"},
		{Name: "أزرق", Code: "#0000ff"},
	}

	encoded := EncodeDescription("قماش قطني", colors)
	text, decoded := DecodeDescription(encoded)

	if text != "قماش قطني" {
		t.Fatalf("expected text to round-trip, got %q", text)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 colors, got %d", len(decoded))
	}
	if decoded[0] != colors[0] || decoded[1] != colors[1] {
		t.Fatalf("palette did not round-trip: %+v", decoded)
	}
}

func TestDecodeDescription_PlainText(t *testing.T) {
	text, colors := DecodeDescription("منتج عادي بدون ألوان")
	if text != "منتج عادي بدون ألوان" {
		t.Fatalf("plain text must pass through, got %q", text)
	}
	if colors != nil {
		t.Fatalf("expected no palette, got %+v", colors)
	}
}

func TestDecodeDescription_MalformedJSON(t *testing.T) {
	raw := `{"text": "broken`
	text, colors := DecodeDescription(raw)
	if text != raw {
		t.Fatalf("malformed JSON must fall back to the raw string, got %q", text)
	}
	if colors != nil {
		t.Fatalf("expected no palette on parse failure, got %+v", colors)
	}
}

func TestDecodeDescription_JSONWithoutColors(t *testing.T) {
	raw := `{"text": "looks structured but has no palette"}`
	text, colors := DecodeDescription(raw)
	if text != raw {
		t.Fatalf("JSON without a colors array is plain text, got %q", text)
	}
	if colors != nil {
		t.Fatalf("expected no palette, got %+v", colors)
	}
}

func TestEncodeDescription_NoPaletteStaysPlain(t *testing.T) {
	if got := EncodeDescription("نص فقط", nil); got != "نص فقط" {
		t.Fatalf("expected plain text, got %q", got)
	}
}

func testProduct() *Product {
	return &Product{ID: 1, Name: "تيشيرت", RetailPrice: decimal.NewFromInt(100)}
}

func TestBuildProductView_SumInvariant(t *testing.T) {
	branch1 := LocationRef{Type: LocationTypeBranch, Id: 1}
	branch2 := LocationRef{Type: LocationTypeBranch, Id: 2}
	warehouse := LocationRef{Type: LocationTypeWarehouse, Id: 1}

	inventory := []*Inventory{
		{ProductId: 1, LocationType: LocationTypeBranch, LocationId: 1, Qty: 7, MinStock: 2},
		{ProductId: 1, LocationType: LocationTypeBranch, LocationId: 2, Qty: 3},
		{ProductId: 1, LocationType: LocationTypeWarehouse, LocationId: 1, Qty: 10},
	}

	view := BuildProductView(testProduct(), inventory, nil, time.Now())

	if view.TotalQty != 20 {
		t.Fatalf("expected unfiltered total 20, got %d", view.TotalQty)
	}
	if got := view.QtyIn(nil); got != 20 {
		t.Fatalf("nil selection must mean all locations, got %d", got)
	}
	if got := view.QtyIn(NewLocationSet(branch1, warehouse)); got != 17 {
		t.Fatalf("expected filtered total 17, got %d", got)
	}
	if got := view.QtyIn(NewLocationSet(branch2)); got != 3 {
		t.Fatalf("expected filtered total 3, got %d", got)
	}
}

func TestBuildProductView_Serializes(t *testing.T) {
	inventory := []*Inventory{
		{ProductId: 1, LocationType: LocationTypeBranch, LocationId: 1, Qty: 12, MinStock: 3},
	}
	variants := []*ProductVariant{
		{ID: 1, ProductId: 1, LocationType: LocationTypeBranch, LocationId: 1,
			Type: VariantTypeColor, Name: "أحمر", Qty: 4},
	}

	view := BuildProductView(testProduct(), inventory, variants, time.Now())

	data, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("a built view must serialize whole: %v", err)
	}
	if !strings.Contains(string(data), `"B1"`) {
		t.Fatalf("expected the per-location maps keyed by location, got %s", data)
	}
}

func TestProductView_StatusClassification(t *testing.T) {
	cases := []struct {
		name      string
		inventory []*Inventory
		want      StockStatus
	}{
		{
			name:      "no stock anywhere",
			inventory: []*Inventory{{LocationType: LocationTypeBranch, LocationId: 1, Qty: 0}},
			want:      StockStatusZero,
		},
		{
			name:      "under the floor",
			inventory: []*Inventory{{LocationType: LocationTypeBranch, LocationId: 1, Qty: 5, MinStock: 10}},
			want:      StockStatusLow,
		},
		{
			name: "no floor configured",
			inventory: []*Inventory{
				{LocationType: LocationTypeBranch, LocationId: 1, Qty: 5},
				{LocationType: LocationTypeBranch, LocationId: 2, Qty: 3},
			},
			want: StockStatusGood,
		},
	}

	for _, tc := range cases {
		view := BuildProductView(testProduct(), tc.inventory, nil, time.Now())
		if got := view.Status(nil); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestProductView_StatusRespectsSelection(t *testing.T) {
	inventory := []*Inventory{
		{LocationType: LocationTypeBranch, LocationId: 1, Qty: 2, MinStock: 5},
		{LocationType: LocationTypeBranch, LocationId: 2, Qty: 50},
	}
	view := BuildProductView(testProduct(), inventory, nil, time.Now())

	healthyOnly := NewLocationSet(LocationRef{Type: LocationTypeBranch, Id: 2})
	if got := view.Status(healthyOnly); got != StockStatusGood {
		t.Fatalf("low branch outside the selection must not flag low, got %s", got)
	}
	if got := view.Status(nil); got != StockStatusLow {
		t.Fatalf("unfiltered view must flag the low branch, got %s", got)
	}
}

func TestCollectImages_OrderAndDedup(t *testing.T) {
	p := &Product{
		MainImage: "https://cdn.test/main.jpg",
		SubImage:  "https://cdn.test/sub.jpg",
		VideoUrl:  `["https://cdn.test/aux1.jpg", "https://cdn.test/main.jpg"]`,
	}
	variants := []*ProductVariant{
		{Name: "أحمر", ImageUrl: "https://cdn.test/red.jpg", Value: `{"images": ["https://cdn.test/red2.jpg"]}`},
		{Name: "أزرق", ImageUrl: "", Value: `{"image": "https://cdn.test/blue.jpg"}`},
	}

	images := collectImages(p, variants)
	want := []string{
		"https://cdn.test/main.jpg",
		"https://cdn.test/red.jpg",
		"https://cdn.test/red2.jpg",
		"https://cdn.test/blue.jpg",
		"https://cdn.test/aux1.jpg",
		"https://cdn.test/sub.jpg",
	}
	if len(images) != len(want) {
		t.Fatalf("expected %d images, got %d: %v", len(want), len(images), images)
	}
	for i := range want {
		if images[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], images[i])
		}
	}
}

func TestCollectImages_IgnoresPlainVideoUrl(t *testing.T) {
	p := &Product{VideoUrl: "https://youtube.com/watch?v=abc"}
	if images := collectImages(p, nil); len(images) != 0 {
		t.Fatalf("a real video url is not an image list, got %v", images)
	}
}

func TestComputeDiscount(t *testing.T) {
	price := decimal.NewFromInt(200)
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, -1, 0)
	future := now.AddDate(0, 1, 0)

	t.Run("percent", func(t *testing.T) {
		final, label, active := ComputeDiscount(price, decimal.NewFromInt(25), decimal.Zero, nil, nil, now)
		if !active || label != "-25%" {
			t.Fatalf("expected active -25%%, got active=%v label=%q", active, label)
		}
		if !final.Equal(decimal.NewFromInt(150)) {
			t.Fatalf("expected 150, got %s", final)
		}
	})

	t.Run("amount floors at zero", func(t *testing.T) {
		final, _, active := ComputeDiscount(price, decimal.Zero, decimal.NewFromInt(500), nil, nil, now)
		if !active || !final.Equal(decimal.Zero) {
			t.Fatalf("expected active zero price, got active=%v final=%s", active, final)
		}
	})

	t.Run("window not started", func(t *testing.T) {
		_, _, active := ComputeDiscount(price, decimal.NewFromInt(10), decimal.Zero, &future, nil, now)
		if active {
			t.Fatal("discount before its window must be inactive")
		}
	})

	t.Run("window expired", func(t *testing.T) {
		_, _, active := ComputeDiscount(price, decimal.NewFromInt(10), decimal.Zero, nil, &past, now)
		if active {
			t.Fatal("discount after its window must be inactive")
		}
	})

	t.Run("open bounds", func(t *testing.T) {
		_, _, active := ComputeDiscount(price, decimal.NewFromInt(10), decimal.Zero, &past, &future, now)
		if !active {
			t.Fatal("discount inside its window must be active")
		}
	})

	t.Run("no discount configured", func(t *testing.T) {
		final, label, active := ComputeDiscount(price, decimal.Zero, decimal.Zero, nil, nil, now)
		if active || label != "" || !final.Equal(price) {
			t.Fatalf("expected passthrough, got final=%s label=%q active=%v", final, label, active)
		}
	})
}
