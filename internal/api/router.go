package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"parking-share-backend/config"
	"parking-share-backend/internal/authz"
	"parking-share-backend/internal/mw"
	"parking-share-backend/internal/store"
)

// NewSearchCache builds the store behind GET /parking-spots/available.
// Passing it in Services lets background jobs flush it too.
func NewSearchCache(cfg config.ServerConfig) *cache.Cache {
	ttl := searchTTL(cfg)
	return cache.New(ttl, 2*ttl)
}

func searchTTL(cfg config.ServerConfig) time.Duration {
	if cfg.CacheTTL <= 0 {
		return 30 * time.Second
	}
	return cfg.CacheTTL
}

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, svc Services, cfg config.ServerConfig, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	ttl := searchTTL(cfg)
	spotCache := svc.SearchCache
	if spotCache == nil {
		spotCache = NewSearchCache(cfg)
	}
	handler := NewHandler(s, svc, webpushOptions, spotCache)

	limit, burst := rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst
	if limit <= 0 || burst <= 0 {
		limit, burst = rate.Inf, 1
	}
	rateLimiter := mw.RateLimiter(limit, burst, svc.Issuer)
	caching := mw.Cache(spotCache, ttl)
	authed := mw.Auth(svc.Issuer, s)
	admin := mw.RequireCapability(authz.CapApprove)

	r.GET("/healthz", handler.Healthz)

	v1 := r.Group("/api/v1")
	v1.Use(rateLimiter)
	{
		v1.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		v1.POST("/auth/register", handler.Register)
		v1.POST("/auth/login", handler.Login)
		v1.GET("/auth/me", authed, handler.Me)
		v1.GET("/points/transactions", authed, handler.ListPointTransactions)

		bookings := v1.Group("/bookings", authed)
		bookings.POST("", mw.RequireCapability(authz.CapBook), handler.CreateBooking)
		bookings.POST("/quote", handler.QuoteBooking)
		bookings.GET("/mine", handler.ListMyBookings)
		bookings.GET("/:id", handler.GetBooking)
		bookings.PATCH("/:id", handler.UpdateBooking)
		bookings.POST("/:id/confirm", handler.ConfirmBooking)
		bookings.POST("/:id/cancel", handler.CancelBooking)
		bookings.POST("/:id/start", handler.StartBooking)
		bookings.POST("/:id/complete", admin, handler.CompleteBooking)

		claims := v1.Group("/parking-claims", authed)
		claims.POST("", handler.SubmitClaim)
		claims.GET("/my-claim", handler.GetMyClaim)
		claims.GET("/pending", admin, handler.ListPendingClaims)
		claims.POST("/:id/approve", admin, handler.ApproveClaim)
		claims.POST("/:id/reject", admin, handler.RejectClaim)

		spots := v1.Group("/parking-spots")
		spots.GET("/available", caching, handler.SearchSpots)
		spots.GET("/:id", handler.GetSpot)
		spots.GET("/:id/availability", handler.CheckSpotAvailability)
		spots.POST("", authed, handler.CreateSpot)
		spots.GET("/my-spots", authed, handler.ListMySpots)
		spots.GET("/pending-approval", authed, admin, handler.ListPendingSpots)
		spots.PUT("/:id", authed, handler.UpdateSpot)
		spots.DELETE("/:id", authed, handler.DeleteSpot)
		spots.POST("/:id/availability", authed, handler.SetSpotAvailability)
		spots.PUT("/:id/approve", authed, admin, handler.ApproveSpot)
		spots.GET("/:id/bookings", authed, handler.ListSpotBookings)

		adminGroup := v1.Group("/admin", authed, admin)
		adminGroup.POST("/users/:id/verify", handler.VerifyUser)
		adminGroup.POST("/bookings/sweep", handler.SweepBookings)

		subs := v1.Group("/subscriptions", authed)
		subs.GET("", handler.GetSubscription)
		subs.GET("/all", handler.ListSubscriptions)
		subs.PUT("", handler.PutSubscription)
		subs.DELETE("", handler.DeleteSubscription)
	}

	return r
}
