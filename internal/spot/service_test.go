package spot

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-share-backend/internal/apperr"
	"parking-share-backend/internal/model"
	"parking-share-backend/internal/store"
	"parking-share-backend/internal/storetest"
)

func newInput(buildingID, number string) CreateInput {
	return CreateInput{
		BuildingID: buildingID,
		SpotNumber: number,
		Floor:      -1,
		Size:       model.SpotSizeCompact,
		Type:       model.SpotTypeCovered,
		HourlyRate: decimal.NewFromInt(4),
		DailyRate:  decimal.NewFromInt(25),
	}
}

func TestCreateSpot_StartsHidden(t *testing.T) {
	s, _ := storetest.Open(t)
	svc := NewService(s)
	ctx := context.Background()
	owner := storetest.User(t, s, "owner@example.com", model.RoleResident, true)
	b := storetest.Building(t, s, "Tower A")

	spot, err := svc.CreateSpot(ctx, owner.ID, newInput(b.ID, " b1-04 "))
	require.NoError(t, err)
	assert.Equal(t, "B1-04", spot.SpotNumber)
	assert.False(t, spot.Approved)
	assert.False(t, spot.Available)

	found, err := svc.SearchSpots(ctx, store.SpotFilter{})
	require.NoError(t, err)
	assert.Empty(t, found)

	pending, err := svc.ListPendingApproval(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, spot.ID, pending[0].ID)
}

func TestCreateSpot_Errors(t *testing.T) {
	s, _ := storetest.Open(t)
	svc := NewService(s)
	ctx := context.Background()
	owner := storetest.User(t, s, "owner@example.com", model.RoleResident, true)
	unverified := storetest.User(t, s, "new@example.com", model.RoleResident, false)
	b := storetest.Building(t, s, "Tower A")
	_, err := svc.CreateSpot(ctx, owner.ID, newInput(b.ID, "1"))
	require.NoError(t, err)

	zeroRate := newInput(b.ID, "2")
	zeroRate.HourlyRate = decimal.Zero
	badSize := newInput(b.ID, "3")
	badSize.Size = "HUGE"

	tests := []struct {
		name    string
		owner   string
		in      CreateInput
		wantErr error
	}{
		{"unknown owner", "missing", newInput(b.ID, "2"), apperr.ErrUserNotFound},
		{"unverified owner", unverified.ID, newInput(b.ID, "2"), apperr.ErrForbidden},
		{"unknown building", owner.ID, newInput("missing", "2"), apperr.ErrBuildingNotFound},
		{"zero rate", owner.ID, zeroRate, apperr.ErrInvalidRate},
		{"bad size", owner.ID, badSize, apperr.ErrInvalidInput},
		{"empty number", owner.ID, newInput(b.ID, " "), apperr.ErrInvalidInput},
		{"duplicate number", owner.ID, newInput(b.ID, "1"), apperr.ErrSpotNumberTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSpot(ctx, tt.owner, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApprovalGate(t *testing.T) {
	s, _ := storetest.Open(t)
	svc := NewService(s)
	ctx := context.Background()
	owner := storetest.User(t, s, "owner@example.com", model.RoleResident, true)
	other := storetest.User(t, s, "other@example.com", model.RoleResident, true)
	b := storetest.Building(t, s, "Tower A")

	spot, err := svc.CreateSpot(ctx, owner.ID, newInput(b.ID, "9"))
	require.NoError(t, err)

	_, err = svc.SetAvailability(ctx, owner.ID, spot.ID, true)
	assert.ErrorIs(t, err, apperr.ErrSpotNotApproved)

	// unlisting is always allowed
	_, err = svc.SetAvailability(ctx, owner.ID, spot.ID, false)
	require.NoError(t, err)

	approved, err := svc.ApproveSpot(ctx, spot.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	assert.False(t, approved.Available)

	_, err = svc.ApproveSpot(ctx, spot.ID)
	assert.ErrorIs(t, err, apperr.ErrSpotAlreadyApproved)

	_, err = svc.SetAvailability(ctx, other.ID, spot.ID, true)
	assert.ErrorIs(t, err, apperr.ErrSpotNotFound)

	listed, err := svc.SetAvailability(ctx, owner.ID, spot.ID, true)
	require.NoError(t, err)
	assert.True(t, listed.Bookable())

	found, err := svc.SearchSpots(ctx, store.SpotFilter{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, spot.ID, found[0].ID)

	_, err = svc.ApproveSpot(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrSpotNotFound)
}

func TestUpdateSpot(t *testing.T) {
	s, _ := storetest.Open(t)
	svc := NewService(s)
	ctx := context.Background()
	owner := storetest.User(t, s, "owner@example.com", model.RoleResident, true)
	b := storetest.Building(t, s, "Tower A")
	spot := storetest.Spot(t, s, owner, b, "7")

	rate := decimal.RequireFromString("6.50")
	desc := "next to the lift"
	updated, err := svc.UpdateSpot(ctx, owner.ID, spot.ID, UpdateInput{HourlyRate: &rate, Description: &desc})
	require.NoError(t, err)
	assert.True(t, rate.Equal(updated.HourlyRate), "rate %s", updated.HourlyRate)
	assert.Equal(t, desc, updated.Description)

	negative := decimal.NewFromInt(-1)
	_, err = svc.UpdateSpot(ctx, owner.ID, spot.ID, UpdateInput{DailyRate: &negative})
	assert.ErrorIs(t, err, apperr.ErrInvalidRate)
}

func TestDeleteSpot(t *testing.T) {
	s, _ := storetest.Open(t)
	svc := NewService(s)
	ctx := context.Background()
	owner := storetest.User(t, s, "owner@example.com", model.RoleResident, true)
	renter := storetest.User(t, s, "renter@example.com", model.RoleResident, true)
	b := storetest.Building(t, s, "Tower A")
	spot := storetest.Spot(t, s, owner, b, "7")

	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	booking := storetest.Booking(t, s, spot, renter, start, start.Add(time.Hour), model.BookingConfirmed)

	assert.ErrorIs(t, svc.DeleteSpot(ctx, renter.ID, spot.ID), apperr.ErrSpotNotFound)
	assert.ErrorIs(t, svc.DeleteSpot(ctx, owner.ID, spot.ID), apperr.ErrSpotHasOpenBookings)

	ok, err := s.TransitionBooking(ctx, booking.ID, []model.BookingStatus{model.BookingConfirmed}, model.BookingCancelled)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.DeleteSpot(ctx, owner.ID, spot.ID))
	_, err = svc.GetSpot(ctx, spot.ID)
	assert.ErrorIs(t, err, apperr.ErrSpotNotFound)
}

func TestSearchSpots_ExcludesBookedRanges(t *testing.T) {
	s, _ := storetest.Open(t)
	svc := NewService(s)
	ctx := context.Background()
	owner := storetest.User(t, s, "owner@example.com", model.RoleResident, true)
	b := storetest.Building(t, s, "Tower A")
	busy := storetest.Spot(t, s, owner, b, "1")
	free := storetest.Spot(t, s, owner, b, "2")

	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	storetest.Booking(t, s, busy, owner, start, end, model.BookingConfirmed)

	found, err := svc.SearchSpots(ctx, store.SpotFilter{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, free.ID, found[0].ID)

	_, err = svc.SearchSpots(ctx, store.SpotFilter{Start: &end, End: &start})
	assert.ErrorIs(t, err, apperr.ErrInvalidDateRange)

	_, err = svc.SearchSpots(ctx, store.SpotFilter{Type: "ROOFTOP"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	mine, err := svc.ListMySpots(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
