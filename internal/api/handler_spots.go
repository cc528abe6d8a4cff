package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"parking-share-backend/internal/apperr"
	"parking-share-backend/internal/authz"
	"parking-share-backend/internal/model"
	"parking-share-backend/internal/mw"
	"parking-share-backend/internal/spot"
	"parking-share-backend/internal/store"
)

// SearchSpots handles GET /parking-spots/available.
func (h *Handler) SearchSpots(c *gin.Context) {
	start, err := parseTimeQuery(c, "start_time")
	if err != nil {
		respondError(c, err)
		return
	}
	end, err := parseTimeQuery(c, "end_time")
	if err != nil {
		respondError(c, err)
		return
	}
	if (start == nil) != (end == nil) {
		respondError(c, apperr.New(apperr.KindInvalidInput, "start_time and end_time must be given together"))
		return
	}

	spots, err := h.svc.Spots.SearchSpots(c.Request.Context(), store.SpotFilter{
		Type:       model.SpotType(c.Query("type")),
		Size:       model.SpotSize(c.Query("size")),
		BuildingID: c.Query("building_id"),
		Start:      start,
		End:        end,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spots)
}

// GetSpot handles GET /parking-spots/:id.
func (h *Handler) GetSpot(c *gin.Context) {
	s, err := h.svc.Spots.GetSpot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// CheckSpotAvailability handles GET /parking-spots/:id/availability.
func (h *Handler) CheckSpotAvailability(c *gin.Context) {
	start, err := parseTimeQuery(c, "start_time")
	if err != nil {
		respondError(c, err)
		return
	}
	end, err := parseTimeQuery(c, "end_time")
	if err != nil {
		respondError(c, err)
		return
	}
	if start == nil || end == nil {
		respondError(c, apperr.New(apperr.KindInvalidInput, "start_time and end_time are required"))
		return
	}

	ok, err := h.svc.Bookings.CheckAvailability(c.Request.Context(), c.Param("id"), *start, *end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": ok})
}

type createSpotRequest struct {
	BuildingID  string          `json:"building_id" binding:"required"`
	SpotNumber  string          `json:"spot_number" binding:"required"`
	Floor       int             `json:"floor"`
	Size        model.SpotSize  `json:"size"`
	Type        model.SpotType  `json:"type"`
	Description string          `json:"description"`
	HourlyRate  decimal.Decimal `json:"hourly_rate"`
	DailyRate   decimal.Decimal `json:"daily_rate"`
}

// CreateSpot handles POST /parking-spots.
func (h *Handler) CreateSpot(c *gin.Context) {
	var req createSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	created, err := h.svc.Spots.CreateSpot(c.Request.Context(), mw.CurrentUser(c).ID, spot.CreateInput{
		BuildingID:  req.BuildingID,
		SpotNumber:  req.SpotNumber,
		Floor:       req.Floor,
		Size:        req.Size,
		Type:        req.Type,
		Description: req.Description,
		HourlyRate:  req.HourlyRate,
		DailyRate:   req.DailyRate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListMySpots handles GET /parking-spots/my-spots.
func (h *Handler) ListMySpots(c *gin.Context) {
	spots, err := h.svc.Spots.ListMySpots(c.Request.Context(), mw.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spots)
}

// ListPendingSpots handles GET /parking-spots/pending-approval.
func (h *Handler) ListPendingSpots(c *gin.Context) {
	spots, err := h.svc.Spots.ListPendingApproval(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spots)
}

type updateSpotRequest struct {
	Description *string          `json:"description"`
	Size        *model.SpotSize  `json:"size"`
	Type        *model.SpotType  `json:"type"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate"`
	DailyRate   *decimal.Decimal `json:"daily_rate"`
	Available   *bool            `json:"available"`
}

// UpdateSpot handles PUT /parking-spots/:id.
func (h *Handler) UpdateSpot(c *gin.Context) {
	var req updateSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.svc.Spots.UpdateSpot(c.Request.Context(), mw.CurrentUser(c).ID, c.Param("id"), spot.UpdateInput{
		Description: req.Description,
		Size:        req.Size,
		Type:        req.Type,
		HourlyRate:  req.HourlyRate,
		DailyRate:   req.DailyRate,
		Available:   req.Available,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.spotCache.Flush()
	c.JSON(http.StatusOK, updated)
}

type availabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// SetSpotAvailability handles POST /parking-spots/:id/availability.
func (h *Handler) SetSpotAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.svc.Spots.SetAvailability(c.Request.Context(), mw.CurrentUser(c).ID, c.Param("id"), *req.Available)
	if err != nil {
		respondError(c, err)
		return
	}
	h.spotCache.Flush()
	c.JSON(http.StatusOK, updated)
}

// DeleteSpot handles DELETE /parking-spots/:id.
func (h *Handler) DeleteSpot(c *gin.Context) {
	if err := h.svc.Spots.DeleteSpot(c.Request.Context(), mw.CurrentUser(c).ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	h.spotCache.Flush()
	c.Status(http.StatusNoContent)
}

// ApproveSpot handles PUT /parking-spots/:id/approve.
func (h *Handler) ApproveSpot(c *gin.Context) {
	approved, err := h.svc.Spots.ApproveSpot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, approved)
}

// ListSpotBookings handles GET /parking-spots/:id/bookings. Only the owner
// and administrators see a spot's bookings.
func (h *Handler) ListSpotBookings(c *gin.Context) {
	ctx := c.Request.Context()
	user := mw.CurrentUser(c)

	s, err := h.svc.Spots.GetSpot(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if s.OwnerID != user.ID && !authz.Resolve(user).Has(authz.CapApprove) {
		respondError(c, apperr.ErrForbidden)
		return
	}

	bookings, err := h.svc.Bookings.ListSpotBookings(ctx, s.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}
