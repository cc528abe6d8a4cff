package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parking-share-backend/internal/apperr"
	"parking-share-backend/internal/authz"
	"parking-share-backend/internal/booking"
	"parking-share-backend/internal/model"
	"parking-share-backend/internal/mw"
)

type createBookingRequest struct {
	SpotID       string    `json:"spot_id" binding:"required"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
	Notes        string    `json:"notes"`
	CarModel     string    `json:"car_model"`
	LicensePlate string    `json:"license_plate"`
}

// CreateBooking handles POST /bookings.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	b, err := h.svc.Bookings.CreateBooking(c.Request.Context(), booking.CreateInput{
		UserID:       mw.CurrentUser(c).ID,
		SpotID:       req.SpotID,
		Start:        req.StartTime,
		End:          req.EndTime,
		Notes:        req.Notes,
		CarModel:     req.CarModel,
		LicensePlate: req.LicensePlate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type quoteRequest struct {
	SpotID    string    `json:"spot_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

// QuoteBooking handles POST /bookings/quote.
func (h *Handler) QuoteBooking(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	q, err := h.svc.Bookings.Quote(c.Request.Context(), req.SpotID, req.StartTime, req.EndTime)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// ListMyBookings handles GET /bookings/mine.
func (h *Handler) ListMyBookings(c *gin.Context) {
	bookings, err := h.svc.Bookings.ListUserBookings(c.Request.Context(), mw.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// bookingParty says who may act on a booking besides administrators.
type bookingParty int

const (
	partyRenter bookingParty = 1 << iota
	partySpotOwner
)

// authorizeBooking loads the booking named by :id and checks that the
// caller is an administrator or one of the allowed parties.
func (h *Handler) authorizeBooking(c *gin.Context, allowed bookingParty) (*model.Booking, bool) {
	ctx := c.Request.Context()
	user := mw.CurrentUser(c)

	b, err := h.svc.Bookings.GetBooking(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if authz.Resolve(user).Has(authz.CapApprove) {
		return b, true
	}
	if allowed&partyRenter != 0 && b.UserID == user.ID {
		return b, true
	}
	if allowed&partySpotOwner != 0 {
		spot, err := h.store.GetSpot(ctx, b.SpotID)
		if err == nil && spot.OwnerID == user.ID {
			return b, true
		}
	}
	respondError(c, apperr.ErrForbidden)
	return nil, false
}

// GetBooking handles GET /bookings/:id.
func (h *Handler) GetBooking(c *gin.Context) {
	b, ok := h.authorizeBooking(c, partyRenter|partySpotOwner)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b)
}

type updateBookingRequest struct {
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Notes        *string    `json:"notes"`
	CarModel     *string    `json:"car_model"`
	LicensePlate *string    `json:"license_plate"`
}

// UpdateBooking handles PATCH /bookings/:id.
func (h *Handler) UpdateBooking(c *gin.Context) {
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, ok := h.authorizeBooking(c, partyRenter)
	if !ok {
		return
	}

	updated, err := h.svc.Bookings.UpdateBooking(c.Request.Context(), b.ID, booking.UpdateInput{
		Start:        req.StartTime,
		End:          req.EndTime,
		Notes:        req.Notes,
		CarModel:     req.CarModel,
		LicensePlate: req.LicensePlate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.spotCache.Flush()
	c.JSON(http.StatusOK, updated)
}

// transition runs one lifecycle action on the booking named by :id.
func (h *Handler) transition(c *gin.Context, allowed bookingParty, action func(ctx context.Context, id string) (*model.Booking, error)) {
	b, ok := h.authorizeBooking(c, allowed)
	if !ok {
		return
	}
	updated, err := action(c.Request.Context(), b.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.spotCache.Flush()
	c.JSON(http.StatusOK, updated)
}

// ConfirmBooking handles POST /bookings/:id/confirm. The spot owner accepts
// the request.
func (h *Handler) ConfirmBooking(c *gin.Context) {
	h.transition(c, partySpotOwner, h.svc.Bookings.ConfirmBooking)
}

// CancelBooking handles POST /bookings/:id/cancel.
func (h *Handler) CancelBooking(c *gin.Context) {
	h.transition(c, partyRenter, h.svc.Bookings.CancelBooking)
}

// StartBooking handles POST /bookings/:id/start.
func (h *Handler) StartBooking(c *gin.Context) {
	h.transition(c, partyRenter, h.svc.Bookings.StartBooking)
}

// CompleteBooking handles POST /bookings/:id/complete. Administrators only.
func (h *Handler) CompleteBooking(c *gin.Context) {
	h.transition(c, 0, h.svc.Bookings.CompleteBooking)
}

// SweepBookings handles POST /admin/bookings/sweep.
func (h *Handler) SweepBookings(c *gin.Context) {
	n, err := h.svc.Bookings.SweepExpiredActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if n > 0 {
		h.spotCache.Flush()
	}
	c.JSON(http.StatusOK, gin.H{"completed": n})
}
