// Package spot manages parking spot listings. A spot can only become
// discoverable once an administrator has approved it.
package spot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"parking-share-backend/internal/apperr"
	"parking-share-backend/internal/authz"
	"parking-share-backend/internal/model"
	"parking-share-backend/internal/store"
)

// Service handles spot listings.
type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// CreateInput describes a new listing.
type CreateInput struct {
	BuildingID  string
	SpotNumber  string
	Floor       int
	Size        model.SpotSize
	Type        model.SpotType
	Description string
	HourlyRate  decimal.Decimal
	DailyRate   decimal.Decimal
}

// UpdateInput carries the fields to change. Nil fields are left alone.
type UpdateInput struct {
	Description *string
	Size        *model.SpotSize
	Type        *model.SpotType
	HourlyRate  *decimal.Decimal
	DailyRate   *decimal.Decimal
	Available   *bool
}

// CreateSpot lists a new spot for the owner. It starts unapproved and
// unavailable.
func (s *Service) CreateSpot(ctx context.Context, ownerID string, in CreateInput) (*model.ParkingSpot, error) {
	owner, err := s.store.GetUser(ctx, ownerID)
	if err != nil {
		return nil, translate(err, apperr.ErrUserNotFound)
	}
	if !authz.Resolve(owner).Has(authz.CapOffer) {
		return nil, apperr.ErrForbidden
	}

	number := strings.ToUpper(strings.TrimSpace(in.SpotNumber))
	if number == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "spot number is required")
	}
	if in.Size == "" {
		in.Size = model.SpotSizeRegular
	}
	if in.Type == "" {
		in.Type = model.SpotTypeGarage
	}
	if !in.Size.Valid() || !in.Type.Valid() {
		return nil, apperr.New(apperr.KindInvalidInput, "unknown spot size or type")
	}
	if !in.HourlyRate.IsPositive() || !in.DailyRate.IsPositive() {
		return nil, apperr.ErrInvalidRate
	}

	var created *model.ParkingSpot
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetBuilding(ctx, in.BuildingID); err != nil {
			return translate(err, apperr.ErrBuildingNotFound)
		}
		taken, err := tx.SpotNumberExists(ctx, in.BuildingID, number)
		if err != nil {
			return err
		}
		if taken {
			return apperr.ErrSpotNumberTaken
		}

		spot := &model.ParkingSpot{
			BuildingID:  in.BuildingID,
			SpotNumber:  number,
			Floor:       in.Floor,
			Size:        in.Size,
			Type:        in.Type,
			Description: strings.TrimSpace(in.Description),
			HourlyRate:  in.HourlyRate,
			DailyRate:   in.DailyRate,
			Approved:    false,
			Available:   false,
			OwnerID:     owner.ID,
		}
		if err := tx.CreateSpot(ctx, spot); err != nil {
			return err
		}
		created = spot
		return nil
	})
	if err != nil {
		return nil, translate(err, nil)
	}
	return created, nil
}

// ApproveSpot marks a listing approved. It stays unavailable until the
// owner turns it on.
func (s *Service) ApproveSpot(ctx context.Context, spotID string) (*model.ParkingSpot, error) {
	spot, err := s.store.GetSpot(ctx, spotID)
	if err != nil {
		return nil, translate(err, apperr.ErrSpotNotFound)
	}
	if spot.Approved {
		return nil, apperr.ErrSpotAlreadyApproved
	}
	if err := s.store.UpdateSpot(ctx, spotID, map[string]any{"approved": true}); err != nil {
		return nil, translate(err, apperr.ErrSpotNotFound)
	}
	spot.Approved = true
	return spot, nil
}

// SetAvailability lists or unlists an owned spot.
func (s *Service) SetAvailability(ctx context.Context, ownerID, spotID string, available bool) (*model.ParkingSpot, error) {
	return s.UpdateSpot(ctx, ownerID, spotID, UpdateInput{Available: &available})
}

// UpdateSpot edits an owned spot. Enabling availability on an unapproved
// spot fails with SpotNotApproved.
func (s *Service) UpdateSpot(ctx context.Context, ownerID, spotID string, in UpdateInput) (*model.ParkingSpot, error) {
	spot, err := s.owned(ctx, ownerID, spotID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Size != nil {
		if !in.Size.Valid() {
			return nil, apperr.New(apperr.KindInvalidInput, "unknown spot size")
		}
		fields["size"] = *in.Size
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, apperr.New(apperr.KindInvalidInput, "unknown spot type")
		}
		fields["type"] = *in.Type
	}
	if in.HourlyRate != nil {
		if !in.HourlyRate.IsPositive() {
			return nil, apperr.ErrInvalidRate
		}
		fields["hourly_rate"] = *in.HourlyRate
	}
	if in.DailyRate != nil {
		if !in.DailyRate.IsPositive() {
			return nil, apperr.ErrInvalidRate
		}
		fields["daily_rate"] = *in.DailyRate
	}
	if in.Available != nil {
		if *in.Available && !spot.Approved {
			return nil, apperr.ErrSpotNotApproved
		}
		fields["available"] = *in.Available
	}

	if len(fields) > 0 {
		if err := s.store.UpdateSpot(ctx, spotID, fields); err != nil {
			return nil, translate(err, apperr.ErrSpotNotFound)
		}
	}
	return s.GetSpot(ctx, spotID)
}

// DeleteSpot removes an owned spot that has no open bookings.
func (s *Service) DeleteSpot(ctx context.Context, ownerID, spotID string) error {
	return s.store.WithTx(ctx, func(tx store.Store) error {
		spot, err := tx.LockSpot(ctx, spotID)
		if err != nil {
			return translate(err, apperr.ErrSpotNotFound)
		}
		if spot.OwnerID != ownerID {
			return apperr.ErrSpotNotFound
		}
		open, err := tx.CountOpenBookings(ctx, spotID)
		if err != nil {
			return translate(err, nil)
		}
		if open > 0 {
			return apperr.ErrSpotHasOpenBookings
		}
		return translate(tx.DeleteSpot(ctx, spotID), apperr.ErrSpotNotFound)
	})
}

// SearchSpots lists bookable spots matching the filter, cheapest first.
func (s *Service) SearchSpots(ctx context.Context, filter store.SpotFilter) ([]model.ParkingSpot, error) {
	if filter.Start != nil && filter.End != nil && !filter.Start.Before(*filter.End) {
		return nil, apperr.ErrInvalidDateRange
	}
	if filter.Size != "" && !filter.Size.Valid() {
		return nil, apperr.New(apperr.KindInvalidInput, "unknown spot size")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperr.New(apperr.KindInvalidInput, "unknown spot type")
	}
	return s.store.SearchSpots(ctx, filter)
}

func (s *Service) GetSpot(ctx context.Context, spotID string) (*model.ParkingSpot, error) {
	spot, err := s.store.GetSpot(ctx, spotID)
	if err != nil {
		return nil, translate(err, apperr.ErrSpotNotFound)
	}
	return spot, nil
}

func (s *Service) ListMySpots(ctx context.Context, ownerID string) ([]model.ParkingSpot, error) {
	return s.store.ListSpotsByOwner(ctx, ownerID)
}

func (s *Service) ListPendingApproval(ctx context.Context) ([]model.ParkingSpot, error) {
	return s.store.ListSpotsPendingApproval(ctx)
}

// owned loads a spot and hides it from anyone but its owner.
func (s *Service) owned(ctx context.Context, ownerID, spotID string) (*model.ParkingSpot, error) {
	spot, err := s.GetSpot(ctx, spotID)
	if err != nil {
		return nil, err
	}
	if spot.OwnerID != ownerID {
		return nil, apperr.ErrSpotNotFound
	}
	return spot, nil
}

func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) && notFound != nil {
		return notFound
	}
	var domain *apperr.Error
	if errors.As(err, &domain) {
		return err
	}
	return fmt.Errorf("spot: %w", err)
}
