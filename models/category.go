package models

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mizanpos/pos_backend/config"
	"github.com/mizanpos/pos_backend/utils"
)

// RootCategoryName labels the synthesized top node when the table has no
// explicit root row. Legacy data stores top-level categories with a zero
// parent id.
const RootCategoryName = "منتجات"

type Category struct {
	ID               int       `gorm:"primary_key" json:"id"`
	Name             string    `gorm:"size:100;not null" json:"name" binding:"required"`
	ParentCategoryId int       `gorm:"index;not null;default:0" json:"parent_category_id"`
	ImageUrl         string    `gorm:"type:text" json:"image_url"`
	SortOrder        int       `gorm:"not null;default:0" json:"sort_order"`
	IsActive         *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCategory struct {
	Name             string `json:"name" binding:"required"`
	ParentCategoryId int    `json:"parent_category_id"`
	ImageUrl         string `json:"image_url"`
	SortOrder        int    `json:"sort_order"`
	IsActive         *bool  `json:"is_active"`
}

type CategoryNode struct {
	Category *Category       `json:"category"`
	Children []*CategoryNode `json:"children"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewCategory) validate(ctx context.Context, id int) error {
	// siblings may not share a name across the whole tree either; legacy data relied on that
	if err := utils.ValidateUnique[Category](ctx, "name", input.Name, id); err != nil {
		return err
	}
	if input.ParentCategoryId != 0 {
		if id != 0 && input.ParentCategoryId == id {
			return errors.New("category cannot be its own parent")
		}
		if err := utils.ValidateResourceId[Category](ctx, input.ParentCategoryId); err != nil {
			return errors.New("parent category not found")
		}
	}
	return nil
}

func CreateCategory(ctx context.Context, input *NewCategory) (*Category, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	category := Category{
		Name:             input.Name,
		ParentCategoryId: input.ParentCategoryId,
		ImageUrl:         input.ImageUrl,
		SortOrder:        input.SortOrder,
		IsActive:         utils.NewTrue(),
	}
	if input.IsActive != nil {
		category.IsActive = input.IsActive
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&category).Error
	if err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Category](category.ID)
	PublishChange(ctx, "categories", ChangeActionInsert, &category, nil)
	return &category, nil
}

func UpdateCategory(ctx context.Context, id int, input *NewCategory) (*Category, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	category, err := utils.FetchModel[Category](ctx, id)
	if err != nil {
		return nil, err
	}
	old := *category

	// reject cycles: the new parent may not sit underneath this category
	if input.ParentCategoryId != 0 && input.ParentCategoryId != old.ParentCategoryId {
		descendants, err := descendantIds(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, did := range descendants {
			if did == input.ParentCategoryId {
				return nil, errors.New("parent category cannot be a descendant")
			}
		}
	}

	category.Name = input.Name
	category.ParentCategoryId = input.ParentCategoryId
	category.ImageUrl = input.ImageUrl
	category.SortOrder = input.SortOrder
	if input.IsActive != nil {
		category.IsActive = input.IsActive
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Save(category).Error
	if err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Category](category.ID)
	PublishChange(ctx, "categories", ChangeActionUpdate, category, &old)
	return category, nil
}

func GetCategory(ctx context.Context, id int) (*Category, error) {
	return utils.FetchModel[Category](ctx, id)
}

func GetCategories(ctx context.Context) ([]*Category, error) {
	if cached, err := utils.RetrieveRedisList[Category](); err == nil && cached != nil {
		return cached, nil
	}

	categories, err := utils.FetchAllModels[Category](ctx)
	if err != nil {
		return nil, err
	}
	utils.StoreRedisList(categories)
	return categories, nil
}

// DeleteCategory refuses when the category still has child categories or
// products pointing at it.
func DeleteCategory(ctx context.Context, id int) (*Category, error) {

	category, err := utils.FetchModel[Category](ctx, id)
	if err != nil {
		return nil, errors.New("category not found")
	}

	childCount, err := utils.ResourceCountWhere[Category](ctx, "parent_category_id = ?", id)
	if err != nil {
		return nil, err
	}
	if childCount > 0 {
		return nil, errors.New("لا يمكن حذف قسم يحتوي على أقسام فرعية")
	}

	productCount, err := utils.ResourceCountWhere[Product](ctx, "category_id = ?", id)
	if err != nil {
		return nil, err
	}
	if productCount > 0 {
		return nil, errors.New("لا يمكن حذف قسم يحتوي على منتجات")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Delete(category).Error
	if err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Category](id)
	PublishChange(ctx, "categories", ChangeActionDelete, nil, category)
	return category, nil
}

func descendantIds(ctx context.Context, id int) ([]int, error) {
	categories, err := GetCategories(ctx)
	if err != nil {
		return nil, err
	}

	children := map[int][]int{}
	for _, c := range categories {
		children[c.ParentCategoryId] = append(children[c.ParentCategoryId], c.ID)
	}

	var out []int
	queue := []int{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, cid := range children[next] {
			out = append(out, cid)
			queue = append(queue, cid)
		}
	}
	return out, nil
}

// BuildCategoryTree arranges flat rows into a tree under a single root.
// When no stored row acts as the root, a virtual one is synthesized so the
// sidebar always has a top node to expand. Orphans whose parent row is
// missing are attached to the root rather than dropped.
func BuildCategoryTree(categories []*Category) *CategoryNode {
	byId := map[int]*CategoryNode{}
	for _, c := range categories {
		byId[c.ID] = &CategoryNode{Category: c}
	}

	root := &CategoryNode{Category: &Category{ID: 0, Name: RootCategoryName}}
	for _, c := range categories {
		node := byId[c.ID]
		parent, ok := byId[c.ParentCategoryId]
		if !ok || c.ParentCategoryId == c.ID {
			root.Children = append(root.Children, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortCategoryNodes(root)
	return root
}

func sortCategoryNodes(node *CategoryNode) {
	sort.SliceStable(node.Children, func(i, j int) bool {
		a, b := node.Children[i].Category, node.Children[j].Category
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.Name < b.Name
	})
	for _, child := range node.Children {
		sortCategoryNodes(child)
	}
}

func GetCategoryTree(ctx context.Context) (*CategoryNode, error) {
	categories, err := GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	return BuildCategoryTree(categories), nil
}
