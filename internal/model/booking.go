package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingActive    BookingStatus = "ACTIVE"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// BlockingStatuses hold a spot's time range against other bookings.
var BlockingStatuses = []BookingStatus{BookingConfirmed, BookingActive}

// OpenStatuses prevent a spot from being deleted.
var OpenStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingActive}

// Booking reserves a spot for the half-open range [StartTime, EndTime).
type Booking struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	SpotID       string          `gorm:"size:36;not null;index:idx_booking_spot_range" json:"spot_id"`
	UserID       string          `gorm:"size:36;not null;index" json:"user_id"`
	StartTime    time.Time       `gorm:"not null;index:idx_booking_spot_range" json:"start_time"`
	EndTime      time.Time       `gorm:"not null;index:idx_booking_spot_range" json:"end_time"`
	BasePrice    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"base_price"`
	Commission   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"commission"`
	TotalPrice   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_price"`
	Status       BookingStatus   `gorm:"size:16;not null;index" json:"status"`
	Notes        string          `gorm:"size:500" json:"notes,omitempty"`
	CarModel     string          `gorm:"size:100" json:"car_model,omitempty"`
	LicensePlate string          `gorm:"size:32" json:"license_plate,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Associations
	Spot *ParkingSpot `gorm:"foreignKey:SpotID;constraint:OnDelete:CASCADE" json:"spot,omitempty"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}
