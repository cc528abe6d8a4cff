package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-share-backend/internal/model"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// ErrOverlap is returned when the database rejects a booking range that
// overlaps another confirmed or active booking on the same spot.
var ErrOverlap = errors.New("booking range overlaps an existing booking")

// Store defines the interface for all database operations.
type Store interface {
	// WithTx runs fn against a Store bound to a single transaction. Returning
	// an error from fn rolls every write back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	DB() *gorm.DB

	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SetUserVerified(ctx context.Context, id string, verified bool) error
	SetUserBuilding(ctx context.Context, userID, buildingID string) error
	IncrementPoints(ctx context.Context, userID string, amount int64) error
	AppendPointTransaction(ctx context.Context, entry *model.PointTransaction) error
	ListPointTransactions(ctx context.Context, userID string) ([]model.PointTransaction, error)

	CreateBuilding(ctx context.Context, building *model.Building) error
	GetBuilding(ctx context.Context, id string) (*model.Building, error)
	GetBuildingByName(ctx context.Context, name string) (*model.Building, error)

	CreateSpot(ctx context.Context, spot *model.ParkingSpot) error
	GetSpot(ctx context.Context, id string) (*model.ParkingSpot, error)
	LockSpot(ctx context.Context, id string) (*model.ParkingSpot, error)
	UpdateSpot(ctx context.Context, id string, fields map[string]any) error
	DeleteSpot(ctx context.Context, id string) error
	SpotNumberExists(ctx context.Context, buildingID, spotNumber string) (bool, error)
	SearchSpots(ctx context.Context, filter SpotFilter) ([]model.ParkingSpot, error)
	ListSpotsByOwner(ctx context.Context, ownerID string) ([]model.ParkingSpot, error)
	ListSpotsPendingApproval(ctx context.Context) ([]model.ParkingSpot, error)

	CreateBooking(ctx context.Context, booking *model.Booking) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	UpdateBooking(ctx context.Context, id string, fields map[string]any) error
	TransitionBooking(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus) (bool, error)
	CountOverlapping(ctx context.Context, spotID string, start, end time.Time, excludeID string) (int64, error)
	CountOpenBookings(ctx context.Context, spotID string) (int64, error)
	CompleteExpiredActive(ctx context.Context, now time.Time) (int64, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]model.Booking, error)
	ListBookingsBySpot(ctx context.Context, spotID string) ([]model.Booking, error)

	CreateClaim(ctx context.Context, claim *model.ParkingClaim) error
	GetClaim(ctx context.Context, id string) (*model.ParkingClaim, error)
	FindPendingClaimByUser(ctx context.Context, userID string) (*model.ParkingClaim, error)
	FindClaimsBySpotKey(ctx context.Context, floor, spotNumber string) ([]model.ParkingClaim, error)
	LatestClaimByUser(ctx context.Context, userID string) (*model.ParkingClaim, error)
	UpdateClaimStatus(ctx context.Context, id string, from model.ClaimStatus, fields map[string]any) (bool, error)
	ListPendingClaims(ctx context.Context) ([]model.ParkingClaim, error)

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// forUpdate adds a row lock on dialects that support one.
func (s *gormStore) forUpdate(q *gorm.DB) *gorm.DB {
	if s.db.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// first loads a single row into dest, translating a miss to ErrNotFound.
func first(q *gorm.DB, dest any, what string) error {
	if err := q.First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load %s: %w", what, err)
	}
	return nil
}

// isExclusionViolation reports whether err is a postgres exclusion
// constraint violation (SQLSTATE 23P01).
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
