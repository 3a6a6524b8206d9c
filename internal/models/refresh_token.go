package models

import "time"

type RefreshToken struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id" bson:"_id"`
	Token           string     `gorm:"size:128;uniqueIndex;not null" json:"-" bson:"token"`
	UserID          string     `gorm:"type:uuid;index;not null" json:"userId" bson:"userId"`
	ExpiresAt       time.Time  `gorm:"not null" json:"expiresAt" bson:"expiresAt"`
	CreatedByIP     string     `gorm:"size:64" json:"createdByIp" bson:"createdByIp"`
	RevokedAt       *time.Time `json:"revokedAt" bson:"revokedAt"`
	RevokedByIP     string     `gorm:"size:64" json:"revokedByIp" bson:"revokedByIp"`
	ReplacedByToken string     `gorm:"size:128" json:"-" bson:"replacedByToken"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive - iptal edilmemiş ve süresi dolmamış token
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && !t.IsExpired(now)
}
