package models

import "time"

// Ingredient - reçete satırı: satılan bir birim ürün için tüketilen stok miktarı.
type Ingredient struct {
	StockItemID string `json:"stockItemId" bson:"stockItemId"`
	QtyPerUnit  int64  `json:"qtyPerUnit" bson:"qtyPerUnit"`
}

type Variant struct {
	Name       string `json:"name" bson:"name"`
	PriceDelta int64  `json:"priceDelta" bson:"priceDelta"`
}

// Product - satılabilir menü kalemi. Silinmez, Active=false ile pasife alınır.
type Product struct {
	ID          string       `gorm:"type:uuid;primaryKey" json:"id" bson:"_id"`
	Name        string       `gorm:"size:150;not null" json:"name" bson:"name"`
	SKU         string       `gorm:"size:64;index" json:"sku" bson:"sku"`
	Description string       `gorm:"size:500" json:"description" bson:"description"`
	Category    string       `gorm:"size:100;index" json:"category" bson:"category"`
	Price       int64        `gorm:"not null;default:0" json:"price" bson:"price"`
	Ingredients []Ingredient `gorm:"serializer:json;type:jsonb" json:"ingredients" bson:"ingredients"`
	Variants    []Variant    `gorm:"serializer:json;type:jsonb" json:"variants" bson:"variants"`
	TrackStock  bool         `gorm:"not null;default:false" json:"trackStock" bson:"trackStock"`
	LocationID  *string      `gorm:"type:uuid;index" json:"locationId" bson:"locationId"`
	Active      bool         `gorm:"not null;default:true" json:"active" bson:"active"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`
}
