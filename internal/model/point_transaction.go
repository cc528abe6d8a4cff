package model

import (
	"time"

	"gorm.io/gorm"
)

type PointTransactionType string

const (
	PointsEarnedParkingApproval PointTransactionType = "EARNED_PARKING_APPROVAL"
	PointsAdjustment            PointTransactionType = "ADJUSTMENT"
)

// PointTransaction is an append-only ledger entry on a user's points balance.
type PointTransaction struct {
	ID        string               `gorm:"primaryKey;size:36" json:"id"`
	UserID    string               `gorm:"size:36;not null;index" json:"user_id"`
	Amount    int64                `gorm:"not null" json:"amount"`
	Reason    string               `gorm:"size:255;not null" json:"reason"`
	Type      PointTransactionType `gorm:"size:32;not null" json:"type"`
	CreatedAt time.Time            `json:"created_at"`
}

func (p *PointTransaction) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
