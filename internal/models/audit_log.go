package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionUndo   AuditAction = "undo"
)

type AuditLog struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id" bson:"_id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt" bson:"createdAt"`

	// Hangi şube?
	LocationID *string `gorm:"type:uuid;index" json:"locationId" bson:"locationId"`

	// Hangi kullanıcı?
	UserID   string `gorm:"type:uuid" json:"userId" bson:"userId"`
	UserName string `gorm:"size:100" json:"userName" bson:"userName"` // denormalize

	// Hangi entity? (ör: "product", "stock_item", "location")
	EntityType string `gorm:"size:50;index" json:"entityType" bson:"entityType"`
	EntityID   string `gorm:"size:64;index" json:"entityId" bson:"entityId"`

	Action      AuditAction `gorm:"size:20" json:"action" bson:"action"`
	Description string      `gorm:"size:255" json:"description" bson:"description"`

	// Önceki ve sonraki hal (JSON)
	BeforeData string `gorm:"type:jsonb" json:"beforeData" bson:"beforeData"`
	AfterData  string `gorm:"type:jsonb" json:"afterData" bson:"afterData"`

	// Geri alındı mı?
	IsUndone bool       `gorm:"not null;default:false" json:"isUndone" bson:"isUndone"`
	UndoneBy *string    `gorm:"type:uuid" json:"undoneBy" bson:"undoneBy"`
	UndoneAt *time.Time `json:"undoneAt" bson:"undoneAt"`
}
