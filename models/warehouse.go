package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mizanpos/pos_backend/config"
	"github.com/mizanpos/pos_backend/utils"
)

type Warehouse struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone         string    `gorm:"size:20" json:"phone"`
	Address       string    `gorm:"type:text" json:"address"`
	City          string    `gorm:"size:100" json:"city"`
	AllowVariants *bool     `gorm:"not null;default:true" json:"allow_variants"`
	IsActive      *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (w *Warehouse) Location() LocationRef {
	return LocationRef{Type: LocationTypeWarehouse, Id: w.ID}
}

type NewWarehouse struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	AllowVariants *bool  `json:"allow_variants"`
	IsActive      *bool  `json:"is_active"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewWarehouse) validate(ctx context.Context, id int) error {
	// name
	if err := utils.ValidateUnique[Warehouse](ctx, "name", input.Name, id); err != nil {
		return err
	}
	// phone
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
		if err := utils.ValidateUnique[Warehouse](ctx, "phone", input.Phone, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateWarehouse(ctx context.Context, input *NewWarehouse) (*Warehouse, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	warehouse := Warehouse{
		Name:          input.Name,
		Phone:         input.Phone,
		Address:       input.Address,
		City:          input.City,
		AllowVariants: utils.NewTrue(),
		IsActive:      utils.NewTrue(),
	}
	if input.AllowVariants != nil {
		warehouse.AllowVariants = input.AllowVariants
	}
	if input.IsActive != nil {
		warehouse.IsActive = input.IsActive
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&warehouse).Error
	if err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Warehouse](warehouse.ID)
	PublishChange(ctx, "warehouses", ChangeActionInsert, &warehouse, nil)
	return &warehouse, nil
}

func UpdateWarehouse(ctx context.Context, id int, input *NewWarehouse) (*Warehouse, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	warehouse, err := utils.FetchModel[Warehouse](ctx, id)
	if err != nil {
		return nil, err
	}
	old := *warehouse

	warehouse.Name = input.Name
	warehouse.Phone = input.Phone
	warehouse.Address = input.Address
	warehouse.City = input.City
	if input.AllowVariants != nil {
		warehouse.AllowVariants = input.AllowVariants
	}
	if input.IsActive != nil {
		warehouse.IsActive = input.IsActive
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Save(warehouse).Error
	if err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Warehouse](warehouse.ID)
	PublishChange(ctx, "warehouses", ChangeActionUpdate, warehouse, &old)
	return warehouse, nil
}

func GetWarehouse(ctx context.Context, id int) (*Warehouse, error) {
	return utils.FetchModel[Warehouse](ctx, id)
}

func GetWarehouses(ctx context.Context) ([]*Warehouse, error) {
	if cached, err := utils.RetrieveRedisList[Warehouse](); err == nil && cached != nil {
		return cached, nil
	}

	warehouses, err := utils.FetchAllModels[Warehouse](ctx)
	if err != nil {
		return nil, err
	}
	utils.StoreRedisList(warehouses)
	return warehouses, nil
}

func DeleteWarehouse(ctx context.Context, id int) (*Warehouse, error) {

	warehouse, err := utils.FetchModel[Warehouse](ctx, id)
	if err != nil {
		return nil, errors.New("warehouse not found")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	loc := warehouse.Location()
	if err := tx.Where("location_type = ? AND location_id = ?", loc.Type, loc.Id).Delete(&Inventory{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("location_type = ? AND location_id = ?", loc.Type, loc.Id).Delete(&ProductVariant{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(warehouse).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Warehouse](warehouse.ID)
	PublishChange(ctx, "warehouses", ChangeActionDelete, nil, warehouse)
	return warehouse, nil
}

// LocationInfo is the combined branch + warehouse listing used by
// location pickers on the dashboard.
type LocationInfo struct {
	Ref           LocationRef `json:"ref"`
	Name          string      `json:"name"`
	AllowVariants bool        `json:"allow_variants"`
	IsActive      bool        `json:"is_active"`
}

func GetLocations(ctx context.Context) ([]*LocationInfo, error) {
	branches, err := GetBranches(ctx)
	if err != nil {
		return nil, err
	}
	warehouses, err := GetWarehouses(ctx)
	if err != nil {
		return nil, err
	}

	locations := make([]*LocationInfo, 0, len(branches)+len(warehouses))
	for _, b := range branches {
		locations = append(locations, &LocationInfo{
			Ref:           b.Location(),
			Name:          b.Name,
			AllowVariants: utils.DereferencePtr(b.AllowVariants),
			IsActive:      utils.DereferencePtr(b.IsActive),
		})
	}
	for _, w := range warehouses {
		locations = append(locations, &LocationInfo{
			Ref:           w.Location(),
			Name:          w.Name,
			AllowVariants: utils.DereferencePtr(w.AllowVariants),
			IsActive:      utils.DereferencePtr(w.IsActive),
		})
	}
	return locations, nil
}

// LocationName resolves a ref against the cached lists; unknown refs keep
// a printable fallback so reports never render blank columns.
func LocationName(ctx context.Context, ref LocationRef) string {
	locations, err := GetLocations(ctx)
	if err != nil {
		return ref.String()
	}
	for _, loc := range locations {
		if loc.Ref == ref {
			return loc.Name
		}
	}
	return ref.String()
}
