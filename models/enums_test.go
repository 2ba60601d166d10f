package models

import (
	"encoding/json"
	"testing"
)

func TestLocationRefLevelsMapSerializes(t *testing.T) {
	levels := map[LocationRef]InventoryLevel{
		{Type: LocationTypeBranch, Id: 1}:    {Qty: 12, MinStock: 3},
		{Type: LocationTypeWarehouse, Id: 2}: {Qty: 40},
	}

	data, err := json.Marshal(levels)
	if err != nil {
		t.Fatalf("per-location levels must be serializable: %v", err)
	}

	var decoded map[LocationRef]InventoryLevel
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	branch := LocationRef{Type: LocationTypeBranch, Id: 1}
	if decoded[branch].Qty != 12 || decoded[branch].MinStock != 3 {
		t.Fatalf("expected branch level 12/3 back, got %+v", decoded[branch])
	}
	warehouse := LocationRef{Type: LocationTypeWarehouse, Id: 2}
	if decoded[warehouse].Qty != 40 {
		t.Fatalf("expected warehouse qty 40 back, got %+v", decoded[warehouse])
	}
}

func TestLocationRefTextForm(t *testing.T) {
	ref := LocationRef{Type: LocationTypeBranch, Id: 7}

	data, err := json.Marshal(ref)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"B7"` {
		t.Fatalf("expected compact form \"B7\", got %s", data)
	}

	var decoded LocationRef
	if err := json.Unmarshal([]byte(`"W31"`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Type != LocationTypeWarehouse || decoded.Id != 31 {
		t.Fatalf("expected warehouse 31, got %+v", decoded)
	}
}

func TestLocationRefRejectsMalformedText(t *testing.T) {
	for _, raw := range []string{"", "B", "X5", "B0", "Bxyz", "12"} {
		var ref LocationRef
		if err := ref.UnmarshalText([]byte(raw)); err == nil {
			t.Errorf("%q: expected an error", raw)
		}
	}
}
