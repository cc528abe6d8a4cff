package store

import (
	"context"
	"fmt"

	"parking-share-backend/internal/model"
)

func (s *gormStore) CreateClaim(ctx context.Context, claim *model.ParkingClaim) error {
	if err := s.db.WithContext(ctx).Create(claim).Error; err != nil {
		return fmt.Errorf("failed to create parking claim: %w", err)
	}
	return nil
}

func (s *gormStore) GetClaim(ctx context.Context, id string) (*model.ParkingClaim, error) {
	var claim model.ParkingClaim
	if err := first(s.db.WithContext(ctx).Where("id = ?", id), &claim, "parking claim"); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (s *gormStore) FindPendingClaimByUser(ctx context.Context, userID string) (*model.ParkingClaim, error) {
	var claim model.ParkingClaim
	q := s.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, model.ClaimPending)
	if err := first(q, &claim, "parking claim"); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (s *gormStore) FindClaimsBySpotKey(ctx context.Context, floor, spotNumber string) ([]model.ParkingClaim, error) {
	var claims []model.ParkingClaim
	if err := s.db.WithContext(ctx).
		Where("floor = ? AND spot_number = ?", floor, spotNumber).
		Find(&claims).Error; err != nil {
		return nil, fmt.Errorf("failed to look up claims for %s-%s: %w", floor, spotNumber, err)
	}
	return claims, nil
}

func (s *gormStore) LatestClaimByUser(ctx context.Context, userID string) (*model.ParkingClaim, error) {
	var claim model.ParkingClaim
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if err := first(q, &claim, "parking claim"); err != nil {
		return nil, err
	}
	return &claim, nil
}

// UpdateClaimStatus applies fields only while the claim is still in status
// `from` and reports whether a row changed.
func (s *gormStore) UpdateClaimStatus(ctx context.Context, id string, from model.ClaimStatus, fields map[string]any) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.ParkingClaim{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update parking claim %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) ListPendingClaims(ctx context.Context) ([]model.ParkingClaim, error) {
	var claims []model.ParkingClaim
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.ClaimPending).
		Order("created_at DESC").
		Find(&claims).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending claims: %w", err)
	}
	return claims, nil
}
