package models

import "time"

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleWaiter  UserRole = "waiter"
	RoleChef    UserRole = "chef"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleWaiter, RoleChef:
		return true
	}
	return false
}

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id" bson:"_id"`
	LocationID   *string   `gorm:"type:uuid;index" json:"locationId" bson:"locationId"`
	Name         string    `gorm:"size:100;not null" json:"name" bson:"name"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email" bson:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-" bson:"passwordHash"`
	Role         UserRole  `gorm:"size:20;not null" json:"role" bson:"role"`
	Active       bool      `gorm:"not null;default:true" json:"active" bson:"active"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}
