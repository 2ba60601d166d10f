package models

import (
	"context"
	"errors"
	"time"

	"github.com/mizanpos/pos_backend/config"
	"github.com/mizanpos/pos_backend/utils"
	"github.com/shopspring/decimal"
)

// Order is a customer order placed through the storefront. The dashboard
// reads the history and moves orders along the status chain.
type Order struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BranchId      int             `gorm:"index" json:"branch_id"`
	CustomerName  string          `gorm:"size:200" json:"customer_name"`
	CustomerPhone string          `gorm:"size:20" json:"customer_phone"`
	Address       string          `gorm:"type:text" json:"address"`
	Status        OrderStatus     `gorm:"size:1;not null;default:P" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	Items         []OrderItem     `gorm:"foreignKey:OrderId" json:"items"`
	CreatedAt     time.Time       `gorm:"index;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	OrderId   int             `gorm:"index;not null" json:"order_id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Qty       int             `gorm:"not null" json:"qty"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
}

type OrderFilter struct {
	From     *time.Time `form:"from" json:"from"`
	To       *time.Time `form:"to" json:"to"`
	BranchId int        `form:"branch_id" json:"branch_id"`
	Status   string     `form:"status" json:"status"`
	Limit    int        `form:"limit" json:"limit"`
	After    string     `form:"after" json:"after"`
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	return utils.FetchModel[Order](ctx, id, "Items")
}

func ListOrders(ctx context.Context, filter *OrderFilter) (*Connection[Order], error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Order{}).Preload("Items")

	if filter.From != nil {
		dbCtx = dbCtx.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("created_at < ?", *filter.To)
	}
	if filter.BranchId != 0 {
		dbCtx = dbCtx.Where("branch_id = ?", filter.BranchId)
	}
	if filter.Status != "" {
		status := OrderStatus(filter.Status)
		if !status.IsValid() {
			return nil, errors.New("invalid order status")
		}
		dbCtx = dbCtx.Where("status = ?", status)
	}
	if filter.After != "" {
		afterId, err := DecodeCursor(filter.After)
		if err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("id < ?", afterId)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = config.SearchLimit
	}

	var orders []*Order
	err := dbCtx.Order("id DESC").Limit(limit + 1).Find(&orders).Error
	if err != nil {
		return nil, err
	}

	return buildConnection(orders, limit, func(o *Order) string {
		return EncodeCursor(o.ID)
	}), nil
}

// UpdateOrderStatus moves an order along pending → confirmed → delivered,
// or cancels it at any point before delivery.
func UpdateOrderStatus(ctx context.Context, id int, status OrderStatus) (*Order, error) {
	if !status.IsValid() {
		return nil, errors.New("invalid order status")
	}

	order, err := utils.FetchModel[Order](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	old := *order

	if order.Status == OrderStatusDelivered || order.Status == OrderStatusCancelled {
		return nil, errors.New("order is already closed")
	}

	order.Status = status

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&Order{}).Where("id = ?", id).Update("status", status).Error
	if err != nil {
		return nil, err
	}

	PublishChange(ctx, "orders", ChangeActionUpdate, order, &old)
	return order, nil
}
