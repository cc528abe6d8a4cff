package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SpotSize string

const (
	SpotSizeCompact SpotSize = "COMPACT"
	SpotSizeRegular SpotSize = "REGULAR"
	SpotSizeLarge   SpotSize = "LARGE"
)

// Valid reports whether s is one of the known sizes.
func (s SpotSize) Valid() bool {
	switch s {
	case SpotSizeCompact, SpotSizeRegular, SpotSizeLarge:
		return true
	}
	return false
}

type SpotType string

const (
	SpotTypeGarage  SpotType = "GARAGE"
	SpotTypeCovered SpotType = "COVERED"
	SpotTypeOutdoor SpotType = "OUTDOOR"
)

// Valid reports whether t is one of the known spot types.
func (t SpotType) Valid() bool {
	switch t {
	case SpotTypeGarage, SpotTypeCovered, SpotTypeOutdoor:
		return true
	}
	return false
}

// ParkingSpot is a bookable unit inside a building.
// It is searchable and bookable only while both Approved and Available are set.
type ParkingSpot struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	BuildingID  string          `gorm:"size:36;not null;uniqueIndex:idx_spot_building_number" json:"building_id"`
	SpotNumber  string          `gorm:"size:32;not null;uniqueIndex:idx_spot_building_number" json:"spot_number"`
	Floor       int             `gorm:"not null" json:"floor"`
	Size        SpotSize        `gorm:"size:16;not null" json:"size"`
	Type        SpotType        `gorm:"size:16;not null" json:"type"`
	Description string          `gorm:"size:500" json:"description,omitempty"`
	HourlyRate  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"hourly_rate"`
	DailyRate   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"daily_rate"`
	Approved    bool            `gorm:"not null;index" json:"approved"`
	Available   bool            `gorm:"not null" json:"available"`
	OwnerID     string          `gorm:"size:36;not null;index" json:"owner_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Associations
	Building *Building `gorm:"foreignKey:BuildingID" json:"building,omitempty"`
}

func (s *ParkingSpot) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// Bookable reports whether the spot may be searched for and booked.
func (s ParkingSpot) Bookable() bool {
	return s.Approved && s.Available
}
