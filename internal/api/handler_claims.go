package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-share-backend/internal/claim"
	"parking-share-backend/internal/mw"
)

type submitClaimRequest struct {
	Floor          string `json:"floor" binding:"required"`
	SpotNumber     string `json:"spot_number" binding:"required"`
	AdditionalInfo string `json:"additional_info"`
}

// SubmitClaim handles POST /parking-claims.
func (h *Handler) SubmitClaim(c *gin.Context) {
	var req submitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	created, err := h.svc.Claims.Submit(c.Request.Context(), claim.SubmitInput{
		UserID:         mw.CurrentUser(c).ID,
		Floor:          req.Floor,
		SpotNumber:     req.SpotNumber,
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetMyClaim handles GET /parking-claims/my-claim. A user without a claim
// gets has_claim=false, not an error.
func (h *Handler) GetMyClaim(c *gin.Context) {
	mine, err := h.svc.Claims.GetMyClaim(c.Request.Context(), mw.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"has_claim": mine != nil, "claim": mine})
}

// ListPendingClaims handles GET /parking-claims/pending.
func (h *Handler) ListPendingClaims(c *gin.Context) {
	claims, err := h.svc.Claims.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claims)
}

// ApproveClaim handles POST /parking-claims/:id/approve.
func (h *Handler) ApproveClaim(c *gin.Context) {
	approved, spot, err := h.svc.Claims.Approve(c.Request.Context(), c.Param("id"), mw.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": approved, "spot": spot})
}

type rejectClaimRequest struct {
	Reason string `json:"reason"`
}

// RejectClaim handles POST /parking-claims/:id/reject. The body is optional.
func (h *Handler) RejectClaim(c *gin.Context) {
	var req rejectClaimRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	rejected, err := h.svc.Claims.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rejected)
}
