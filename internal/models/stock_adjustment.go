package models

import "time"

// StockAdjustment - stok hareket kaydı. Sadece eklenir, güncellenmez.
type StockAdjustment struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id" bson:"_id"`
	StockItemID string    `gorm:"type:uuid;index;not null" json:"stockItemId" bson:"stockItemId"`
	ProductID   *string   `gorm:"type:uuid" json:"productId" bson:"productId"`
	OrderID     *string   `gorm:"type:uuid;index" json:"orderId" bson:"orderId"`
	UserID      *string   `gorm:"type:uuid" json:"userId" bson:"userId"`
	LocationID  *string   `gorm:"type:uuid;index" json:"locationId" bson:"locationId"`
	Delta       int64     `gorm:"not null" json:"delta" bson:"delta"`
	Reason      string    `gorm:"size:255" json:"reason" bson:"reason"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt" bson:"createdAt"`
}
