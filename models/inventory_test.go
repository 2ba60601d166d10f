package models

import (
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestCountedQty(t *testing.T) {
	level := Inventory{Qty: 9}

	if qty, err := countedQty(&level, nil); err != nil || qty != 9 {
		t.Fatalf("found row must yield its qty, got %d, %v", qty, err)
	}

	// never counted at this location
	if qty, err := countedQty(&level, gorm.ErrRecordNotFound); err != nil || qty != 0 {
		t.Fatalf("missing row means zero, got %d, %v", qty, err)
	}

	// a transient failure must surface, not masquerade as empty stock
	boom := errors.New("connection reset")
	if _, err := countedQty(&level, boom); !errors.Is(err, boom) {
		t.Fatalf("expected the lookup error back, got %v", err)
	}
}
