package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusProcessed OrderStatus = "processed"
)

type Order struct {
	ID         int64       `gorm:"primaryKey" json:"id,string"`
	UserID     int64       `gorm:"index;not null" json:"user_id,string"`
	Status     OrderStatus `gorm:"size:32;not null;default:pending" json:"status"`
	TotalCents int64       `gorm:"not null" json:"total_cents"`
	Items      []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        int64  `gorm:"index;not null" json:"-"`
	ProductID      string `gorm:"size:64;not null" json:"product_id"`
	Quantity       int    `gorm:"not null" json:"quantity"`
	UnitPriceCents int64  `gorm:"not null" json:"unit_price_cents"`
}

type CreateOrderRequest struct {
	UserID int64             `json:"user_id,string"`
	Items  []CreateOrderItem `json:"items"`
}

type CreateOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
