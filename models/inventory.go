package models

import (
	"context"
	"errors"
	"time"

	"github.com/mizanpos/pos_backend/config"
	"github.com/mizanpos/pos_backend/utils"
	"gorm.io/gorm"
)

// Inventory keeps one quantity row per (product, location).
type Inventory struct {
	ID           int          `gorm:"primary_key" json:"id"`
	ProductId    int          `gorm:"index;not null" json:"product_id"`
	LocationType LocationType `gorm:"size:1;not null" json:"location_type"`
	LocationId   int          `gorm:"not null" json:"location_id"`
	Qty          int          `gorm:"not null;default:0" json:"qty"`
	MinStock     int          `gorm:"not null;default:0" json:"min_stock"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Inventory) TableName() string {
	return "inventory"
}

func (inv *Inventory) Location() LocationRef {
	return LocationRef{Type: inv.LocationType, Id: inv.LocationId}
}

// InventoryLevel is the qty/min pair the dashboard shows per location.
type InventoryLevel struct {
	Qty      int `json:"qty"`
	MinStock int `json:"min_stock"`
}

// LevelIsLow reports the per-location restock signal: at or under the
// minimum, and a minimum is actually set.
func LevelIsLow(level InventoryLevel) bool {
	return level.MinStock > 0 && level.Qty <= level.MinStock
}

type NewInventory struct {
	ProductId    int          `json:"product_id" binding:"required"`
	LocationType LocationType `json:"location_type" binding:"required"`
	LocationId   int          `json:"location_id" binding:"required"`
	Qty          int          `json:"qty"`
	MinStock     int          `json:"min_stock"`
}

func (input *NewInventory) validate(ctx context.Context) error {
	if !input.LocationType.IsValid() {
		return errors.New("invalid location type")
	}
	if err := utils.ValidateResourceId[Product](ctx, input.ProductId); err != nil {
		return errors.New("product not found")
	}
	switch input.LocationType {
	case LocationTypeBranch:
		if err := utils.ValidateResourceId[Branch](ctx, input.LocationId); err != nil {
			return errors.New("branch not found")
		}
	case LocationTypeWarehouse:
		if err := utils.ValidateResourceId[Warehouse](ctx, input.LocationId); err != nil {
			return errors.New("warehouse not found")
		}
	}
	if input.Qty < 0 {
		return errors.New("qty cannot be negative")
	}
	if input.MinStock < 0 {
		return errors.New("min stock cannot be negative")
	}
	return nil
}

// UpsertInventory creates or replaces the row for (product, location).
func UpsertInventory(ctx context.Context, input *NewInventory) (*Inventory, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()

	var row Inventory
	err := db.WithContext(ctx).
		Where("product_id = ? AND location_type = ? AND location_id = ?",
			input.ProductId, input.LocationType, input.LocationId).
		First(&row).Error

	switch {
	case err == nil:
		old := row
		row.Qty = input.Qty
		row.MinStock = input.MinStock
		if err := db.WithContext(ctx).Save(&row).Error; err != nil {
			return nil, err
		}
		PublishChange(ctx, "inventory", ChangeActionUpdate, &row, &old)
		return &row, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		row = Inventory{
			ProductId:    input.ProductId,
			LocationType: input.LocationType,
			LocationId:   input.LocationId,
			Qty:          input.Qty,
			MinStock:     input.MinStock,
		}
		if err := db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, err
		}
		PublishChange(ctx, "inventory", ChangeActionInsert, &row, nil)
		return &row, nil

	default:
		return nil, err
	}
}

func GetProductInventory(ctx context.Context, productId int) ([]*Inventory, error) {
	db := config.GetDB()
	var rows []*Inventory
	err := db.WithContext(ctx).
		Where("product_id = ?", productId).
		Order("location_type ASC, location_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func GetLocationInventory(ctx context.Context, loc LocationRef) ([]*Inventory, error) {
	db := config.GetDB()
	var rows []*Inventory
	err := db.WithContext(ctx).
		Where("location_type = ? AND location_id = ?", loc.Type, loc.Id).
		Order("product_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AdjustInventoryQty shifts a location's quantity by delta, clamping at zero.
func AdjustInventoryQty(ctx context.Context, productId int, loc LocationRef, delta int) (*Inventory, error) {
	db := config.GetDB()

	var row Inventory
	err := db.WithContext(ctx).
		Where("product_id = ? AND location_type = ? AND location_id = ?", productId, loc.Type, loc.Id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	old := row

	row.Qty += delta
	if row.Qty < 0 {
		row.Qty = 0
	}
	if err := db.WithContext(ctx).Save(&row).Error; err != nil {
		return nil, err
	}
	PublishChange(ctx, "inventory", ChangeActionUpdate, &row, &old)
	return &row, nil
}

// countedQty maps a First(&level) lookup to the location's counted total.
// A missing row means nothing was ever counted there, so zero; any other
// error is a real failure and propagates.
func countedQty(level *Inventory, err error) (int, error) {
	switch {
	case err == nil:
		return level.Qty, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return 0, nil
	default:
		return 0, err
	}
}

func TotalQty(rows []*Inventory) int {
	total := 0
	for _, row := range rows {
		total += row.Qty
	}
	return total
}
