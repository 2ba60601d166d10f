package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mizanpos/pos_backend/config"
	"github.com/mizanpos/pos_backend/utils"
)

type Branch struct {
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

func (b *Branch) Location() LocationRef {
	return LocationRef{Type: LocationTypeBranch, Id: b.ID}
}

type NewBranch struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	AllowVariants *bool  `json:"allow_variants"`
	IsActive      *bool  `json:"is_active"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewBranch) validate(ctx context.Context, id int) error {
	// name
	if err := utils.ValidateUnique[Branch](ctx, "name", input.Name, id); err != nil {
		return err
	}
	// phone
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
		if err := utils.ValidateUnique[Branch](ctx, "phone", input.Phone, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateBranch(ctx context.Context, input *NewBranch) (*Branch, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	branch := Branch{
		Name:          input.Name,
		Phone:         input.Phone,
		Address:       input.Address,
		City:          input.City,
		AllowVariants: utils.NewTrue(),
		IsActive:      utils.NewTrue(),
	}
	if input.AllowVariants != nil {
		branch.AllowVariants = input.AllowVariants
	}
	if input.IsActive != nil {
		branch.IsActive = input.IsActive
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&branch).Error
	if err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Branch](branch.ID)
	PublishChange(ctx, "branches", ChangeActionInsert, &branch, nil)
	return &branch, nil
}

func UpdateBranch(ctx context.Context, id int, input *NewBranch) (*Branch, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	branch, err := utils.FetchModel[Branch](ctx, id)
	if err != nil {
		return nil, err
	}
	old := *branch

	branch.Name = input.Name
	branch.Phone = input.Phone
	branch.Address = input.Address
	branch.City = input.City
	if input.AllowVariants != nil {
		branch.AllowVariants = input.AllowVariants
	}
	if input.IsActive != nil {
		branch.IsActive = input.IsActive
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Save(branch).Error
	if err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Branch](branch.ID)
	PublishChange(ctx, "branches", ChangeActionUpdate, branch, &old)
	return branch, nil
}

func GetBranch(ctx context.Context, id int) (*Branch, error) {
	return utils.FetchModel[Branch](ctx, id)
}

func GetBranches(ctx context.Context) ([]*Branch, error) {
	if cached, err := utils.RetrieveRedisList[Branch](); err == nil && cached != nil {
		return cached, nil
	}

	branches, err := utils.FetchAllModels[Branch](ctx)
	if err != nil {
		return nil, err
	}
	utils.StoreRedisList(branches)
	return branches, nil
}

// DeleteBranch removes the branch and its stock rows. Historic orders and
// sale lines keep their branch id for reporting.
func DeleteBranch(ctx context.Context, id int) (*Branch, error) {

	branch, err := utils.FetchModel[Branch](ctx, id)
	if err != nil {
		return nil, errors.New("branch not found")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	loc := branch.Location()
	if err := tx.Where("location_type = ? AND location_id = ?", loc.Type, loc.Id).Delete(&Inventory{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("location_type = ? AND location_id = ?", loc.Type, loc.Id).Delete(&ProductVariant{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(branch).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Branch](branch.ID)
	PublishChange(ctx, "branches", ChangeActionDelete, nil, branch)
	return branch, nil
}
