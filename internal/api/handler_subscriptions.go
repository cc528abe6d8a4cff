package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-share-backend/internal/model"
	"parking-share-backend/internal/mw"
	"parking-share-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription creates or replaces the caller's push subscription for an
// endpoint.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
		UserID:   mw.CurrentUser(c).ID,
	}
	if err := h.store.UpsertSubscription(c.Request.Context(), &subscription); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if _, ok := h.ownedSubscription(c, req.Endpoint); !ok {
		return
	}
	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription reports whether the caller is subscribed on an endpoint.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	sub, ok := h.ownedSubscription(c, endpoint)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "created_at": sub.CreatedAt})
}

// ListSubscriptions returns every endpoint the caller is subscribed on.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	subs, err := h.store.ListSubscriptionsByUser(c.Request.Context(), mw.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	endpoints := make([]string, len(subs))
	for i, s := range subs {
		endpoints[i] = s.Endpoint
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": endpoints})
}

// ownedSubscription loads a subscription and hides other users' entries.
func (h *Handler) ownedSubscription(c *gin.Context, endpoint string) (*model.PushSubscription, bool) {
	sub, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respondError(c, err)
		return nil, false
	}
	if err != nil || sub.UserID != mw.CurrentUser(c).ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return nil, false
	}
	return sub, true
}
