package model

import (
	"time"

	"gorm.io/gorm"
)

// Role is the single role model of the platform.
type Role string

const (
	RoleResident Role = "RESIDENT"
	RoleAdmin    Role = "ADMIN"
)

// User is a registered resident or administrator.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FirstName    string    `gorm:"size:100" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	Phone        string    `gorm:"size:32" json:"phone,omitempty"`
	Role         Role      `gorm:"size:16;not null" json:"role"`
	Verified     bool      `gorm:"not null" json:"verified"`
	Points       int64     `gorm:"not null" json:"points"`
	BuildingID   *string   `gorm:"size:36;index" json:"building_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	if u.Role == "" {
		u.Role = RoleResident
	}
	return nil
}
