package store

import (
	"context"
	"fmt"
	"time"

	"parking-share-backend/internal/model"
)

func (s *gormStore) CreateBooking(ctx context.Context, booking *model.Booking) error {
	if err := s.db.WithContext(ctx).Create(booking).Error; err != nil {
		if isExclusionViolation(err) {
			return ErrOverlap
		}
		return fmt.Errorf("failed to create booking on spot %s: %w", booking.SpotID, err)
	}
	return nil
}

func (s *gormStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	if err := first(s.db.WithContext(ctx).Where("id = ?", id), &booking, "booking"); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *gormStore) UpdateBooking(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.Booking{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isExclusionViolation(res.Error) {
			return ErrOverlap
		}
		return fmt.Errorf("failed to update booking %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionBooking moves a booking to status `to` only while its current
// status is one of `from`. It reports false when the row was not in an
// allowed status, which happens when a concurrent writer got there first.
func (s *gormStore) TransitionBooking(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		if isExclusionViolation(res.Error) {
			return false, ErrOverlap
		}
		return false, fmt.Errorf("failed to move booking %s to %s: %w", id, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CountOverlapping counts confirmed or active bookings on a spot whose
// half-open range intersects [start, end). excludeID, when set, is skipped.
func (s *gormStore) CountOverlapping(ctx context.Context, spotID string, start, end time.Time, excludeID string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Booking{}).
		Where("spot_id = ?", spotID).
		Where("status IN ?", model.BlockingStatuses).
		Where("start_time < ? AND end_time > ?", end.UTC(), start.UTC())
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

func (s *gormStore) CountOpenBookings(ctx context.Context, spotID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Booking{}).
		Where("spot_id = ? AND status IN ?", spotID, model.OpenStatuses).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count open bookings: %w", err)
	}
	return count, nil
}

// CompleteExpiredActive completes every active booking that ended before now
// in one statement and returns the number of rows moved.
func (s *gormStore) CompleteExpiredActive(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Booking{}).
		Where("status = ? AND end_time < ?", model.BookingActive, now.UTC()).
		Update("status", model.BookingCompleted)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to complete expired bookings: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) ListBookingsByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := s.db.WithContext(ctx).Preload("Spot").Preload("Spot.Building").
		Where("user_id = ?", userID).
		Order("start_time DESC").
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings for user %s: %w", userID, err)
	}
	return bookings, nil
}

func (s *gormStore) ListBookingsBySpot(ctx context.Context, spotID string) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := s.db.WithContext(ctx).
		Where("spot_id = ?", spotID).
		Order("start_time ASC").
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings for spot %s: %w", spotID, err)
	}
	return bookings, nil
}
