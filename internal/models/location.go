package models

import "time"

// Location - restoranın bir şubesi. Stok, ürün ve sipariş numaraları şube bazlıdır.
type Location struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id" bson:"_id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name" bson:"name"`
	Address   string    `gorm:"size:255" json:"address" bson:"address"`
	City      string    `gorm:"size:100" json:"city" bson:"city"`
	Country   string    `gorm:"size:100;not null;default:France" json:"country" bson:"country"`
	Phone     string    `gorm:"size:50" json:"phone" bson:"phone"`
	Active    bool      `gorm:"not null;default:true" json:"active" bson:"active"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
