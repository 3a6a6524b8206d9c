package models

import "time"

// StockItem - şube bazlı stok kalemi. Quantity sadece ledger üzerinden değişir ve asla negatif olmaz.
type StockItem struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id" bson:"_id"`
	Name        string    `gorm:"size:150;not null" json:"name" bson:"name"`
	ProductID   *string   `gorm:"type:uuid;index" json:"productId" bson:"productId"`
	Quantity    int64     `gorm:"not null;default:0;check:quantity >= 0" json:"quantity" bson:"quantity"`
	Unit        string    `gorm:"size:20;not null;default:pcs" json:"unit" bson:"unit"`
	LocationID  *string   `gorm:"type:uuid;index" json:"locationId" bson:"locationId"`
	TrackStock  bool      `gorm:"not null;default:true" json:"trackStock" bson:"trackStock"`
	LastUpdated time.Time `json:"lastUpdated" bson:"lastUpdated"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}
