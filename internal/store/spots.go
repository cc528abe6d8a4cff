package store

import (
	"context"
	"fmt"

	"parking-share-backend/internal/model"
)

func (s *gormStore) CreateSpot(ctx context.Context, spot *model.ParkingSpot) error {
	if err := s.db.WithContext(ctx).Create(spot).Error; err != nil {
		return fmt.Errorf("failed to create parking spot %s: %w", spot.SpotNumber, err)
	}
	return nil
}

func (s *gormStore) GetSpot(ctx context.Context, id string) (*model.ParkingSpot, error) {
	var spot model.ParkingSpot
	if err := first(s.db.WithContext(ctx).Preload("Building").Where("id = ?", id), &spot, "parking spot"); err != nil {
		return nil, err
	}
	return &spot, nil
}

// LockSpot loads a spot and holds a row lock on it until the surrounding
// transaction ends. Booking writes for one spot are serialised through it.
func (s *gormStore) LockSpot(ctx context.Context, id string) (*model.ParkingSpot, error) {
	var spot model.ParkingSpot
	q := s.forUpdate(s.db.WithContext(ctx).Where("id = ?", id))
	if err := first(q, &spot, "parking spot"); err != nil {
		return nil, err
	}
	return &spot, nil
}

func (s *gormStore) UpdateSpot(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.ParkingSpot{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update parking spot %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeleteSpot(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ParkingSpot{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete parking spot %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) SpotNumberExists(ctx context.Context, buildingID, spotNumber string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.ParkingSpot{}).
		Where("building_id = ? AND spot_number = ?", buildingID, spotNumber).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check spot number: %w", err)
	}
	return count > 0, nil
}

// SearchSpots lists bookable spots, cheapest first.
func (s *gormStore) SearchSpots(ctx context.Context, filter SpotFilter) ([]model.ParkingSpot, error) {
	q := s.db.WithContext(ctx).Preload("Building").
		Where("approved = ? AND available = ?", true, true)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Size != "" {
		q = q.Where("size = ?", filter.Size)
	}
	if filter.BuildingID != "" {
		q = q.Where("building_id = ?", filter.BuildingID)
	}
	if filter.Start != nil && filter.End != nil {
		q = q.Where("NOT EXISTS (?)", s.db.Model(&model.Booking{}).
			Select("1").
			Where("bookings.spot_id = parking_spots.id").
			Where("bookings.status IN ?", model.BlockingStatuses).
			Where("bookings.start_time < ? AND bookings.end_time > ?", filter.End.UTC(), filter.Start.UTC()))
	}

	var spots []model.ParkingSpot
	if err := q.Order("hourly_rate ASC").Find(&spots).Error; err != nil {
		return nil, fmt.Errorf("failed to search parking spots: %w", err)
	}
	return spots, nil
}

func (s *gormStore) ListSpotsByOwner(ctx context.Context, ownerID string) ([]model.ParkingSpot, error) {
	var spots []model.ParkingSpot
	if err := s.db.WithContext(ctx).Preload("Building").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&spots).Error; err != nil {
		return nil, fmt.Errorf("failed to list spots for owner %s: %w", ownerID, err)
	}
	return spots, nil
}

func (s *gormStore) ListSpotsPendingApproval(ctx context.Context) ([]model.ParkingSpot, error) {
	var spots []model.ParkingSpot
	if err := s.db.WithContext(ctx).Preload("Building").
		Where("approved = ?", false).
		Order("created_at ASC").
		Find(&spots).Error; err != nil {
		return nil, fmt.Errorf("failed to list spots pending approval: %w", err)
	}
	return spots, nil
}
