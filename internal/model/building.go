package model

import (
	"time"

	"gorm.io/gorm"
)

// Building is a physical property that owns parking spots.
type Building struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Address   string    `gorm:"size:255" json:"address"`
	City      string    `gorm:"size:100" json:"city"`
	OwnerID   *string   `gorm:"size:36;index" json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Spots []ParkingSpot `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (b *Building) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}
