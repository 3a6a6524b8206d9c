package models

// SequenceCounter - ID = scope anahtarı (ör. orders:2024-05-01:<locationId|default>)
type SequenceCounter struct {
	ID  string `gorm:"size:128;primaryKey" json:"id" bson:"_id"`
	Seq int64  `gorm:"not null;default:0" json:"seq" bson:"seq"`
}
