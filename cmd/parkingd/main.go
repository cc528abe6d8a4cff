package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"parking-share-backend/config"
	"parking-share-backend/internal/api"
	"parking-share-backend/internal/auth"
	"parking-share-backend/internal/booking"
	"parking-share-backend/internal/claim"
	"parking-share-backend/internal/db"
	"parking-share-backend/internal/notification"
	"parking-share-backend/internal/queue"
	"parking-share-backend/internal/spot"
	"parking-share-backend/internal/store"
	"parking-share-backend/internal/sweeper"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "parking-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatalf("failed to get sql.DB: %v", err)
	}
	defer sqlDB.Close()
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	// Notification fan-out: web push when VAPID keys exist, otherwise log only.
	var webpushOptions *webpush.Options
	notifiers := notification.Multi{}
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		pool.Start(ctx)
		notifiers = append(notifiers, pool)
	} else {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
		notifiers = append(notifiers, notification.LogNotifier{})
	}

	if cfg.Queue.Enabled {
		publisher, err := queue.Dial(cfg.Queue.URL, cfg.Queue.Exchange)
		if err != nil {
			logger.Fatalf("failed to connect to message broker: %v", err)
		}
		go publisher.Run(ctx)
		notifiers = append(notifiers, publisher)
		logger.Printf("publishing events to exchange %q", cfg.Queue.Exchange)
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	bookingSvc := booking.NewService(appStore, notifiers)
	searchCache := api.NewSearchCache(cfg.Server)
	services := api.Services{
		Issuer:      issuer,
		Accounts:    auth.NewService(appStore, issuer, notifiers, cfg.Auth.BcryptCost),
		Bookings:    bookingSvc,
		Claims:      claim.NewService(appStore, notifiers, cfg.Claims),
		Spots:       spot.NewService(appStore),
		SearchCache: searchCache,
	}

	// completed bookings free their ranges in search results
	sweeperSvc := sweeper.NewService(cfg.Sweeper, bookingSvc).
		OnSwept(func(int64) { searchCache.Flush() })
	go sweeperSvc.Run(ctx)

	router := api.NewRouter(appStore, services, cfg.Server, webpushOptions)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}
	cancel()

	logger.Println("Server gracefully stopped")
}
