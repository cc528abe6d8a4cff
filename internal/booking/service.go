// Package booking implements the booking lifecycle and the availability
// checks that keep confirmed bookings of one spot from overlapping.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking-share-backend/internal/apperr"
	"parking-share-backend/internal/model"
	"parking-share-backend/internal/notification"
	"parking-share-backend/internal/pricing"
	"parking-share-backend/internal/store"
)

// Service runs booking operations against a store.
type Service struct {
	store    store.Store
	notifier notification.Notifier
	now      func() time.Time
}

// NewService creates a booking service. A nil notifier discards events.
func NewService(s store.Store, n notification.Notifier) *Service {
	if n == nil {
		n = notification.Nop{}
	}
	return &Service{
		store:    s,
		notifier: n,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for past-start and sweep checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInput describes a booking request.
type CreateInput struct {
	UserID       string
	SpotID       string
	Start        time.Time
	End          time.Time
	Notes        string
	CarModel     string
	LicensePlate string
}

// UpdateInput carries the fields to change. Nil fields are left alone.
type UpdateInput struct {
	Start        *time.Time
	End          *time.Time
	Notes        *string
	CarModel     *string
	LicensePlate *string
}

// Overlaps reports whether the half-open ranges [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching ranges do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// HasConflict reports whether a confirmed or active booking on the spot
// overlaps [start, end). excludeID skips one booking, normally the one being
// edited.
func (s *Service) HasConflict(ctx context.Context, spotID string, start, end time.Time, excludeID string) (bool, error) {
	return hasConflict(ctx, s.store, spotID, start, end, excludeID)
}

func hasConflict(ctx context.Context, st store.Store, spotID string, start, end time.Time, excludeID string) (bool, error) {
	count, err := st.CountOverlapping(ctx, spotID, start.UTC(), end.UTC(), excludeID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CheckAvailability reports whether the spot exists, is listed, and is free
// for [start, end).
func (s *Service) CheckAvailability(ctx context.Context, spotID string, start, end time.Time) (bool, error) {
	if !start.Before(end) {
		return false, apperr.ErrInvalidDateRange
	}
	spot, err := s.store.GetSpot(ctx, spotID)
	if err != nil {
		return false, translate(err, apperr.ErrSpotNotFound)
	}
	if !spot.Bookable() {
		return false, nil
	}
	conflict, err := s.HasConflict(ctx, spotID, start, end, "")
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

// Quote prices [start, end) on a spot without booking it.
func (s *Service) Quote(ctx context.Context, spotID string, start, end time.Time) (pricing.Quote, error) {
	spot, err := s.store.GetSpot(ctx, spotID)
	if err != nil {
		return pricing.Quote{}, translate(err, apperr.ErrSpotNotFound)
	}
	return pricing.Calculate(start.UTC(), end.UTC(), spot.HourlyRate, spot.DailyRate)
}

// CreateBooking validates the request and stores a PENDING booking priced
// from the spot's rates. The conflict check and the insert share one
// transaction holding the spot row lock.
func (s *Service) CreateBooking(ctx context.Context, in CreateInput) (*model.Booking, error) {
	start, end := in.Start.UTC(), in.End.UTC()

	var created *model.Booking
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetUser(ctx, in.UserID); err != nil {
			return translate(err, apperr.ErrUserNotFound)
		}
		spot, err := tx.LockSpot(ctx, in.SpotID)
		if err != nil {
			return translate(err, apperr.ErrSpotNotFound)
		}
		if !spot.Bookable() {
			return apperr.ErrSpotNotAvailable
		}
		if !start.Before(end) {
			return apperr.ErrInvalidDateRange
		}
		if start.Before(s.now()) {
			return apperr.ErrStartInPast
		}

		conflict, err := hasConflict(ctx, tx, spot.ID, start, end, "")
		if err != nil {
			return err
		}
		if conflict {
			return apperr.ErrTimeConflict
		}

		quote, err := pricing.Calculate(start, end, spot.HourlyRate, spot.DailyRate)
		if err != nil {
			return err
		}

		booking := &model.Booking{
			SpotID:       spot.ID,
			UserID:       in.UserID,
			StartTime:    start,
			EndTime:      end,
			BasePrice:    quote.BasePrice,
			Commission:   quote.Commission,
			TotalPrice:   quote.FinalPrice,
			Status:       model.BookingPending,
			Notes:        in.Notes,
			CarModel:     in.CarModel,
			LicensePlate: in.LicensePlate,
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return translate(err, nil)
		}
		created = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(notification.EventBookingCreated, created, "Booking request received")
	return created, nil
}

// UpdateBooking edits a PENDING or CONFIRMED booking. A changed range is
// re-validated, re-checked against other bookings and re-priced.
func (s *Service) UpdateBooking(ctx context.Context, id string, in UpdateInput) (*model.Booking, error) {
	var updated *model.Booking
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		current, err := tx.GetBooking(ctx, id)
		if err != nil {
			return translate(err, apperr.ErrBookingNotFound)
		}
		if current.Status != model.BookingPending && current.Status != model.BookingConfirmed {
			return apperr.ErrBookingCannotBeUpdated
		}

		fields := map[string]any{}
		start, end := current.StartTime.UTC(), current.EndTime.UTC()
		if in.Start != nil {
			start = in.Start.UTC()
		}
		if in.End != nil {
			end = in.End.UTC()
		}

		if !start.Equal(current.StartTime) || !end.Equal(current.EndTime) {
			if !start.Before(end) {
				return apperr.ErrInvalidDateRange
			}
			spot, err := tx.LockSpot(ctx, current.SpotID)
			if err != nil {
				return translate(err, apperr.ErrSpotNotFound)
			}
			conflict, err := hasConflict(ctx, tx, spot.ID, start, end, current.ID)
			if err != nil {
				return err
			}
			if conflict {
				return apperr.ErrTimeConflict
			}
			quote, err := pricing.Calculate(start, end, spot.HourlyRate, spot.DailyRate)
			if err != nil {
				return err
			}
			fields["start_time"] = start
			fields["end_time"] = end
			fields["base_price"] = quote.BasePrice
			fields["commission"] = quote.Commission
			fields["total_price"] = quote.FinalPrice
		}
		if in.Notes != nil {
			fields["notes"] = *in.Notes
		}
		if in.CarModel != nil {
			fields["car_model"] = *in.CarModel
		}
		if in.LicensePlate != nil {
			fields["license_plate"] = *in.LicensePlate
		}

		if len(fields) > 0 {
			if err := tx.UpdateBooking(ctx, id, fields); err != nil {
				return translate(err, apperr.ErrBookingNotFound)
			}
		}
		updated, err = tx.GetBooking(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ConfirmBooking moves a PENDING booking to CONFIRMED. Pending bookings do
// not block each other, so the range is checked again under the spot lock.
func (s *Service) ConfirmBooking(ctx context.Context, id string) (*model.Booking, error) {
	var confirmed *model.Booking
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		current, err := tx.GetBooking(ctx, id)
		if err != nil {
			return translate(err, apperr.ErrBookingNotFound)
		}
		if current.Status != model.BookingPending {
			return apperr.ErrInvalidStatusTransition
		}
		if _, err := tx.LockSpot(ctx, current.SpotID); err != nil {
			return translate(err, apperr.ErrSpotNotFound)
		}
		conflict, err := hasConflict(ctx, tx, current.SpotID, current.StartTime, current.EndTime, current.ID)
		if err != nil {
			return err
		}
		if conflict {
			return apperr.ErrTimeConflict
		}

		if err := transition(ctx, tx, id, []model.BookingStatus{model.BookingPending}, model.BookingConfirmed); err != nil {
			return err
		}
		current.Status = model.BookingConfirmed
		confirmed = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(notification.EventBookingConfirmed, confirmed, "Booking confirmed")
	return confirmed, nil
}

// CancelBooking cancels a PENDING or CONFIRMED booking.
func (s *Service) CancelBooking(ctx context.Context, id string) (*model.Booking, error) {
	current, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, translate(err, apperr.ErrBookingNotFound)
	}
	switch current.Status {
	case model.BookingActive:
		return nil, apperr.ErrCannotCancelActiveBooking
	case model.BookingCompleted, model.BookingCancelled:
		return nil, apperr.ErrInvalidStatusTransition
	}

	if err := transition(ctx, s.store, id, []model.BookingStatus{model.BookingPending, model.BookingConfirmed}, model.BookingCancelled); err != nil {
		return nil, err
	}
	current.Status = model.BookingCancelled

	s.notify(notification.EventBookingCancelled, current, "Booking cancelled")
	return current, nil
}

// StartBooking activates a CONFIRMED booking once its start time is reached.
func (s *Service) StartBooking(ctx context.Context, id string) (*model.Booking, error) {
	current, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, translate(err, apperr.ErrBookingNotFound)
	}
	if current.Status != model.BookingConfirmed {
		return nil, apperr.ErrBookingNotConfirmed
	}
	if s.now().Before(current.StartTime) {
		return nil, apperr.ErrBookingNotStartedYet
	}

	if err := transition(ctx, s.store, id, []model.BookingStatus{model.BookingConfirmed}, model.BookingActive); err != nil {
		return nil, err
	}
	current.Status = model.BookingActive
	return current, nil
}

// CompleteBooking finishes an ACTIVE booking.
func (s *Service) CompleteBooking(ctx context.Context, id string) (*model.Booking, error) {
	current, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, translate(err, apperr.ErrBookingNotFound)
	}
	if current.Status != model.BookingActive {
		return nil, apperr.ErrInvalidStatusTransition
	}

	if err := transition(ctx, s.store, id, []model.BookingStatus{model.BookingActive}, model.BookingCompleted); err != nil {
		return nil, err
	}
	current.Status = model.BookingCompleted
	return current, nil
}

// SweepExpiredActive completes every ACTIVE booking whose end has passed
// and returns how many were moved. Running it again right away moves none.
func (s *Service) SweepExpiredActive(ctx context.Context) (int64, error) {
	return s.store.CompleteExpiredActive(ctx, s.now())
}

// GetBooking loads a booking.
func (s *Service) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, translate(err, apperr.ErrBookingNotFound)
	}
	return b, nil
}

// ListUserBookings returns the user's bookings, newest first.
func (s *Service) ListUserBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	return s.store.ListBookingsByUser(ctx, userID)
}

// ListSpotBookings returns every booking on a spot in start order.
func (s *Service) ListSpotBookings(ctx context.Context, spotID string) ([]model.Booking, error) {
	if _, err := s.store.GetSpot(ctx, spotID); err != nil {
		return nil, translate(err, apperr.ErrSpotNotFound)
	}
	return s.store.ListBookingsBySpot(ctx, spotID)
}

// transition applies a guarded status change. If the row has moved on since
// it was read, the change is reported as an invalid transition.
func transition(ctx context.Context, st store.Store, id string, from []model.BookingStatus, to model.BookingStatus) error {
	ok, err := st.TransitionBooking(ctx, id, from, to)
	if err != nil {
		return translate(err, nil)
	}
	if !ok {
		return apperr.ErrInvalidStatusTransition
	}
	return nil
}

// translate maps store sentinels onto domain errors. Anything else is an
// infrastructure fault and is returned wrapped.
func translate(err error, notFound error) error {
	switch {
	case errors.Is(err, store.ErrNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, store.ErrOverlap):
		return apperr.ErrTimeConflict
	}
	var domain *apperr.Error
	if errors.As(err, &domain) {
		return err
	}
	return fmt.Errorf("booking: %w", err)
}

func (s *Service) notify(t notification.EventType, b *model.Booking, title string) {
	s.notifier.Notify(notification.Event{
		Type:   t,
		UserID: b.UserID,
		Title:  title,
		Body: fmt.Sprintf("%s to %s, total %s",
			b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339), b.TotalPrice.StringFixed(2)),
		Data: map[string]string{"booking_id": b.ID, "spot_id": b.SpotID, "status": string(b.Status)},
	})
}
