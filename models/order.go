package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"    // placed, awaiting payment confirmation
	OrderStatusProcessing OrderStatus = "PROCESSING" // paid, being prepared
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

type Order struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	Reference         string      `gorm:"uniqueIndex;not null" json:"reference"`
	UserID            uint        `gorm:"not null;index" json:"userId"`
	User              *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items             []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount       int64       `gorm:"not null" json:"totalAmount"`
	DeliveryFee       int64       `gorm:"not null" json:"deliveryFee"`
	Address           string      `gorm:"not null" json:"address"`
	Phone             string      `gorm:"not null" json:"phone"`
	Status            OrderStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	PaystackReference string      `gorm:"index" json:"paystackReference,omitempty"`
	CreatedAt         time.Time   `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// Subtotal is the snapshot sum of item prices, excluding delivery.
func (o Order) Subtotal() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += item.Price * int64(item.Quantity)
	}
	return sum
}

type OrderItem struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	OrderID   uint     `gorm:"not null;index" json:"orderId"`
	ProductID uint     `gorm:"not null;index" json:"productId"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Name      string   `json:"name"`                  // product name at order time
	Price     int64    `gorm:"not null" json:"price"` // product price at order time
	Quantity  int      `gorm:"not null" json:"quantity"`
}
