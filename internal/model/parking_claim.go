package model

import (
	"time"

	"gorm.io/gorm"
)

type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "PENDING"
	ClaimApproved ClaimStatus = "APPROVED"
	ClaimRejected ClaimStatus = "REJECTED"
)

// ParkingClaim is a resident's request to be recognised as the holder of a
// physical floor and spot number pair.
type ParkingClaim struct {
	ID             string      `gorm:"primaryKey;size:36" json:"id"`
	UserID         string      `gorm:"size:36;not null;index" json:"user_id"`
	Floor          string      `gorm:"size:16;not null;index:idx_claim_spot_key" json:"floor"`
	SpotNumber     string      `gorm:"size:32;not null;index:idx_claim_spot_key" json:"spot_number"`
	AdditionalInfo string      `gorm:"size:1000" json:"additional_info,omitempty"`
	Status         ClaimStatus `gorm:"size:16;not null;index" json:"status"`
	ApprovedBy     *string     `gorm:"size:36" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time  `json:"approved_at,omitempty"`
	RejectedAt     *time.Time  `json:"rejected_at,omitempty"`
	RejectReason   string      `gorm:"size:500" json:"reject_reason,omitempty"`
	SpotID         *string     `gorm:"size:36" json:"spot_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (c *ParkingClaim) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}
