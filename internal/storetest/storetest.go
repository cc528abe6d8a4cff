// Package storetest provides an in-memory SQLite store and fixtures for
// service tests.
package storetest

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parking-share-backend/internal/db"
	"parking-share-backend/internal/model"
	"parking-share-backend/internal/notification"
	"parking-share-backend/internal/store"
)

var nonWord = regexp.MustCompile(`\W`)

// Open returns a store over a private in-memory database named after the
// test. A single connection keeps every statement on the same database.
func Open(t *testing.T) (store.Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", nonWord.ReplaceAllString(t.Name(), "_"))
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(testDB))
	return store.NewGormStore(testDB), testDB
}

// User inserts a user with the given role and verification state.
func User(t *testing.T, s store.Store, email string, role model.Role, verified bool) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "x", Role: role, Verified: verified}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// Building inserts a building.
func Building(t *testing.T, s store.Store, name string) *model.Building {
	t.Helper()
	b := &model.Building{Name: name}
	require.NoError(t, s.CreateBuilding(context.Background(), b))
	return b
}

// Spot inserts an approved, available spot priced at 5/hour and 30/day.
func Spot(t *testing.T, s store.Store, owner *model.User, building *model.Building, number string) *model.ParkingSpot {
	t.Helper()
	spot := &model.ParkingSpot{
		BuildingID: building.ID,
		SpotNumber: number,
		Floor:      1,
		Size:       model.SpotSizeRegular,
		Type:       model.SpotTypeGarage,
		HourlyRate: decimal.NewFromInt(5),
		DailyRate:  decimal.NewFromInt(30),
		Approved:   true,
		Available:  true,
		OwnerID:    owner.ID,
	}
	require.NoError(t, s.CreateSpot(context.Background(), spot))
	return spot
}

// Booking inserts a booking directly, bypassing the lifecycle checks.
func Booking(t *testing.T, s store.Store, spot *model.ParkingSpot, user *model.User, start, end time.Time, status model.BookingStatus) *model.Booking {
	t.Helper()
	b := &model.Booking{
		SpotID:    spot.ID,
		UserID:    user.ID,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Status:    status,
	}
	require.NoError(t, s.CreateBooking(context.Background(), b))
	return b
}

// Recorder is a notifier that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	Events []notification.Event
}

func (r *Recorder) Notify(e notification.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
}

// Types lists the received event types in order.
func (r *Recorder) Types() []notification.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]notification.EventType, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.Type)
	}
	return types
}
