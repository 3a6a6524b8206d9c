package models

import "time"

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"

	// Eski istemcilerin gönderdiği değer, preparing ile aynı anlamda
	OrderStatusInKitchen OrderStatus = "in_kitchen"
)

// IsTerminal - paid ve cancelled durumlarından çıkış yok
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

type PaymentType string

const (
	PaymentCash    PaymentType = "cash"
	PaymentCard    PaymentType = "card"
	PaymentVoucher PaymentType = "voucher"
	PaymentOther   PaymentType = "other"
)

func (p PaymentType) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentVoucher, PaymentOther:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID    string `json:"productId" bson:"productId"`
	Qty          int64  `json:"qty" bson:"qty"`
	PriceAtOrder int64  `json:"priceAtOrder" bson:"priceAtOrder"`
}

type Payment struct {
	Type   PaymentType `json:"type" bson:"type"`
	Amount int64       `json:"amount" bson:"amount"`
}

// Order - number, SequenceScope içinde tekildir (gün + şube).
type Order struct {
	ID            string      `gorm:"type:uuid;primaryKey" json:"id" bson:"_id"`
	Number        int64       `gorm:"not null;uniqueIndex:idx_orders_scope_number" json:"number" bson:"number"`
	SequenceScope string      `gorm:"size:128;not null;uniqueIndex:idx_orders_scope_number" json:"-" bson:"sequenceScope"`
	DateKey       string      `gorm:"size:10;not null;index" json:"dateKey" bson:"dateKey"`
	LocationID    *string     `gorm:"type:uuid;index" json:"locationId" bson:"locationId"`
	Table         *string     `gorm:"column:table_label;size:50" json:"table" bson:"table"`
	Items         []OrderItem `gorm:"serializer:json;type:jsonb;not null" json:"items" bson:"items"`
	Status        OrderStatus `gorm:"size:20;not null;index" json:"status" bson:"status"`
	Subtotal      int64       `gorm:"not null" json:"subtotal" bson:"subtotal"`
	Tax           int64       `gorm:"not null" json:"tax" bson:"tax"`
	Total         int64       `gorm:"not null" json:"total" bson:"total"`
	Payments      []Payment   `gorm:"serializer:json;type:jsonb" json:"payments" bson:"payments"`
	CreatedBy     string      `gorm:"type:uuid;not null" json:"createdBy" bson:"createdBy"`
	CreatedAt     time.Time   `gorm:"index" json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt" bson:"updatedAt"`
}
