package models

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mizanpos/pos_backend/config"
	"github.com/mizanpos/pos_backend/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID               int             `gorm:"primary_key" json:"id"`
	Name             string          `gorm:"size:200;not null" json:"name" binding:"required"`
	Description      string          `gorm:"type:text" json:"description"`
	CategoryId       int             `gorm:"index;not null;default:0" json:"category_id"`
	Barcode          string          `gorm:"size:100;index" json:"barcode"`
	Unit             string          `gorm:"size:50" json:"unit"`
	RetailPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"retail_price"`
	WholesalePrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"wholesale_price"`
	Price1           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price1"`
	Price2           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price2"`
	Price3           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price3"`
	Price4           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price4"`
	CostPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost_price"`
	MainImage        string          `gorm:"type:text" json:"main_image"`
	SubImage         string          `gorm:"type:text" json:"sub_image"`
	VideoUrl         string          `gorm:"type:text" json:"video_url"`
	IsActive         *bool           `gorm:"not null;default:true" json:"is_active"`
	IsHidden         *bool           `gorm:"not null;default:false" json:"is_hidden"`
	IsFeatured       *bool           `gorm:"not null;default:false" json:"is_featured"`
	Rating           decimal.Decimal `gorm:"type:decimal(3,2);not null;default:0" json:"rating"`
	RatingCount      int             `gorm:"not null;default:0" json:"rating_count"`
	DiscountPercent  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"`
	DiscountAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	DiscountStart    *time.Time      `json:"discount_start"`
	DiscountEnd      *time.Time      `json:"discount_end"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// PriceTier pairs a tier label with the product's current price at it.
type PriceTier struct {
	Tier  string          `json:"tier"`
	Price decimal.Decimal `json:"price"`
}

func (p *Product) PriceTiers() []PriceTier {
	return []PriceTier{
		{Tier: "retail", Price: p.RetailPrice},
		{Tier: "wholesale", Price: p.WholesalePrice},
		{Tier: "price1", Price: p.Price1},
		{Tier: "price2", Price: p.Price2},
		{Tier: "price3", Price: p.Price3},
		{Tier: "price4", Price: p.Price4},
	}
}

type NewProduct struct {
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	CategoryId      int             `json:"category_id"`
	Barcode         string          `json:"barcode"`
	Unit            string          `json:"unit"`
	RetailPrice     decimal.Decimal `json:"retail_price"`
	WholesalePrice  decimal.Decimal `json:"wholesale_price"`
	Price1          decimal.Decimal `json:"price1"`
	Price2          decimal.Decimal `json:"price2"`
	Price3          decimal.Decimal `json:"price3"`
	Price4          decimal.Decimal `json:"price4"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	MainImage       string          `json:"main_image"`
	SubImage        string          `json:"sub_image"`
	VideoUrl        string          `json:"video_url"`
	IsActive        *bool           `json:"is_active"`
	IsHidden        *bool           `json:"is_hidden"`
	IsFeatured      *bool           `json:"is_featured"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	DiscountStart   *time.Time      `json:"discount_start"`
	DiscountEnd     *time.Time      `json:"discount_end"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewProduct) validate(ctx context.Context, id int) error {
	// name
	if err := utils.ValidateUnique[Product](ctx, "name", input.Name, id); err != nil {
		return err
	}
	// barcode
	if len(strings.TrimSpace(input.Barcode)) > 0 {
		if err := utils.ValidateUnique[Product](ctx, "barcode", input.Barcode, id); err != nil {
			return err
		}
	}
	// category
	if input.CategoryId != 0 {
		if err := utils.ValidateResourceId[Category](ctx, input.CategoryId); err != nil {
			return errors.New("category not found")
		}
	}
	if input.DiscountPercent.IsNegative() || input.DiscountAmount.IsNegative() {
		return errors.New("discount cannot be negative")
	}
	if input.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("discount percent cannot exceed 100")
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	product := Product{
		Name:            input.Name,
		Description:     input.Description,
		CategoryId:      input.CategoryId,
		Barcode:         input.Barcode,
		Unit:            input.Unit,
		RetailPrice:     input.RetailPrice,
		WholesalePrice:  input.WholesalePrice,
		Price1:          input.Price1,
		Price2:          input.Price2,
		Price3:          input.Price3,
		Price4:          input.Price4,
		CostPrice:       input.CostPrice,
		MainImage:       input.MainImage,
		SubImage:        input.SubImage,
		VideoUrl:        input.VideoUrl,
		IsActive:        utils.NewTrue(),
		IsHidden:        utils.NewFalse(),
		IsFeatured:      utils.NewFalse(),
		DiscountPercent: input.DiscountPercent,
		DiscountAmount:  input.DiscountAmount,
		DiscountStart:   input.DiscountStart,
		DiscountEnd:     input.DiscountEnd,
	}
	if input.IsActive != nil {
		product.IsActive = input.IsActive
	}
	if input.IsHidden != nil {
		product.IsHidden = input.IsHidden
	}
	if input.IsFeatured != nil {
		product.IsFeatured = input.IsFeatured
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&product).Error
	if err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Product](product.ID)
	PublishChange(ctx, "products", ChangeActionInsert, &product, nil)
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}
	old := *product

	product.Name = input.Name
	product.Description = input.Description
	product.CategoryId = input.CategoryId
	product.Barcode = input.Barcode
	product.Unit = input.Unit
	product.RetailPrice = input.RetailPrice
	product.WholesalePrice = input.WholesalePrice
	product.Price1 = input.Price1
	product.Price2 = input.Price2
	product.Price3 = input.Price3
	product.Price4 = input.Price4
	product.CostPrice = input.CostPrice
	product.MainImage = input.MainImage
	product.SubImage = input.SubImage
	product.VideoUrl = input.VideoUrl
	product.DiscountPercent = input.DiscountPercent
	product.DiscountAmount = input.DiscountAmount
	product.DiscountStart = input.DiscountStart
	product.DiscountEnd = input.DiscountEnd
	if input.IsActive != nil {
		product.IsActive = input.IsActive
	}
	if input.IsHidden != nil {
		product.IsHidden = input.IsHidden
	}
	if input.IsFeatured != nil {
		product.IsFeatured = input.IsFeatured
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Save(product).Error
	if err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Product](product.ID)
	PublishChange(ctx, "products", ChangeActionUpdate, product, &old)
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	var cached Product
	if found, err := utils.RetrieveRedis[Product](id, &cached); err == nil && found {
		return &cached, nil
	}

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}
	utils.StoreRedis[Product](product, product.ID)
	return product, nil
}

type ProductFilter struct {
	Keyword    string `form:"keyword" json:"keyword"`
	CategoryId int    `form:"category_id" json:"category_id"`
	Limit      int    `form:"limit" json:"limit"`
	After      string `form:"after" json:"after"`
}

func ListProducts(ctx context.Context, filter *ProductFilter) (*Connection[Product], error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Product{})

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		pattern := "%" + keyword + "%"
		dbCtx = dbCtx.Where("name ILIKE ? OR barcode ILIKE ?", pattern, pattern)
	}
	if filter.CategoryId != 0 {
		dbCtx = dbCtx.Where("category_id = ?", filter.CategoryId)
	}
	if filter.After != "" {
		afterId, err := DecodeCursor(filter.After)
		if err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("id > ?", afterId)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = config.SearchLimit
	}

	var products []*Product
	err := dbCtx.Order("id ASC").Limit(limit + 1).Find(&products).Error
	if err != nil {
		return nil, err
	}

	return buildConnection(products, limit, func(p *Product) string {
		return EncodeCursor(p.ID)
	}), nil
}

// DeleteProduct refuses while any invoice, order or purchase line still
// references the product; the error text is shown verbatim on the dashboard.
func DeleteProduct(ctx context.Context, id int) (*Product, error) {

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, errors.New("product not found")
	}

	referenced, err := productIsReferenced(ctx, id)
	if err != nil {
		return nil, err
	}
	if referenced {
		return nil, errors.New("لا يمكن حذف المنتج لوجود حركات مرتبطة به (مبيعات أو طلبات أو مشتريات)")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := tx.Where("product_id = ?", id).Delete(&Inventory{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("product_id = ?", id).Delete(&ProductVariant{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(product).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Product](id)
	PublishChange(ctx, "products", ChangeActionDelete, nil, product)
	return product, nil
}

func productIsReferenced(ctx context.Context, id int) (bool, error) {
	saleCount, err := utils.ResourceCountWhere[SaleItem](ctx, "product_id = ?", id)
	if err != nil {
		return false, err
	}
	if saleCount > 0 {
		return true, nil
	}

	orderCount, err := utils.ResourceCountWhere[OrderItem](ctx, "product_id = ?", id)
	if err != nil {
		return false, err
	}
	if orderCount > 0 {
		return true, nil
	}

	purchaseCount, err := utils.ResourceCountWhere[PurchaseInvoiceItem](ctx, "product_id = ?", id)
	if err != nil {
		return false, err
	}
	return purchaseCount > 0, nil
}

/* legacy description codec */

// ProductColor is one palette entry. Legacy rows keep the palette embedded
// in the description column as {"text": ..., "colors": [...]}.
type ProductColor struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Image string `json:"image,omitempty"`
}

type descriptionDoc struct {
	Text   string         `json:"text"`
	Colors []ProductColor `json:"colors"`
}

// DecodeDescription splits a stored description into display text and the
// color palette. Anything that does not parse as the embedded JSON shape is
// treated as plain text; decode errors are swallowed.
func DecodeDescription(raw string) (string, []ProductColor) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw, nil
	}

	var doc descriptionDoc
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return raw, nil
	}
	if doc.Colors == nil {
		return raw, nil
	}
	return doc.Text, doc.Colors
}

// EncodeDescription is the inverse: plain text stays plain unless a palette
// exists, so decode(encode(text, colors)) round-trips.
func EncodeDescription(text string, colors []ProductColor) string {
	if len(colors) == 0 {
		return text
	}
	raw, err := json.Marshal(descriptionDoc{Text: text, Colors: colors})
	if err != nil {
		return text
	}
	return string(raw)
}

func (p *Product) Palette() []ProductColor {
	_, colors := DecodeDescription(p.Description)
	return colors
}

func (p *Product) DisplayDescription() string {
	text, _ := DecodeDescription(p.Description)
	return text
}

// SavePalette rewrites the description column keeping the display text.
func SavePalette(ctx context.Context, productId int, colors []ProductColor) (*Product, error) {
	product, err := utils.FetchModel[Product](ctx, productId)
	if err != nil {
		return nil, err
	}
	old := *product

	text, _ := DecodeDescription(product.Description)
	product.Description = EncodeDescription(text, colors)

	db := config.GetDB()
	err = db.WithContext(ctx).Save(product).Error
	if err != nil {
		return nil, err
	}

	utils.InvalidateRedis[Product](productId)
	PublishChange(ctx, "products", ChangeActionUpdate, product, &old)
	return product, nil
}
