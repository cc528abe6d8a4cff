package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"parking-share-backend/internal/apperr"
	"parking-share-backend/internal/auth"
	"parking-share-backend/internal/booking"
	"parking-share-backend/internal/claim"
	"parking-share-backend/internal/spot"
	"parking-share-backend/internal/store"
)

// Services bundles the domain services the handlers call into.
// SearchCache is optional; NewRouter creates one when it is nil.
type Services struct {
	Issuer      *auth.Issuer
	Accounts    *auth.Service
	Bookings    *booking.Service
	Claims      *claim.Service
	Spots       *spot.Service
	SearchCache *cache.Cache
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	svc       Services
	webpush   *webpush.Options
	spotCache *cache.Cache
}

// NewHandler creates a new API handler. spotCache backs the public spot
// search and is flushed whenever spots or bookings change.
func NewHandler(s store.Store, svc Services, webpushOptions *webpush.Options, spotCache *cache.Cache) *Handler {
	if spotCache == nil {
		spotCache = cache.New(30*time.Second, time.Minute)
	}
	return &Handler{
		store:     s,
		svc:       svc,
		webpush:   webpushOptions,
		spotCache: spotCache,
	}
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError renders a domain error with its status and kind. Anything
// else is logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	var domain *apperr.Error
	if errors.As(err, &domain) {
		c.AbortWithStatusJSON(apperr.HTTPStatus(domain), gin.H{"error": domain.Message, "code": domain.Kind})
		return
	}
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperr.KindInvalidInput})
}

// parseTimeQuery reads an optional RFC3339 query parameter.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "invalid '"+key+"' timestamp format. Use RFC3339.")
	}
	return &t, nil
}
