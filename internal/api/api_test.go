package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"parking-share-backend/config"
	"parking-share-backend/internal/auth"
	"parking-share-backend/internal/booking"
	"parking-share-backend/internal/claim"
	"parking-share-backend/internal/model"
	"parking-share-backend/internal/spot"
	"parking-share-backend/internal/store"
	"parking-share-backend/internal/storetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router *gin.Engine
	store  store.Store
	svc    Services
	issuer *auth.Issuer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	s, _ := storetest.Open(t)
	issuer := auth.NewIssuer("test-secret", time.Hour)
	svc := Services{
		Issuer:   issuer,
		Accounts: auth.NewService(s, issuer, nil, bcrypt.MinCost),
		Bookings: booking.NewService(s, nil),
		Claims: claim.NewService(s, nil, config.ClaimsConfig{
			ApprovalBonusPoints: 100,
			DefaultBuildingName: "Main Building",
			DefaultHourlyRate:   decimal.NewFromInt(15),
			DefaultDailyRate:    decimal.NewFromInt(80),
		}),
		Spots: spot.NewService(s),
	}
	cfg := config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTL: time.Minute}
	opts := &webpush.Options{VAPIDPublicKey: "public-key"}
	return &testAPI{router: NewRouter(s, svc, cfg, opts), store: s, svc: svc, issuer: issuer}
}

func (a *testAPI) token(t *testing.T, u *model.User) string {
	t.Helper()
	tok, err := a.issuer.Issue(u.ID, string(u.Role))
	require.NoError(t, err)
	return tok.Token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthzAndVAPID(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/vapid_public_key", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"public-key","subscribe_path":"/api/v1/subscriptions"}`, w.Body.String())

	disabled := NewRouter(a.store, a.svc, config.ServerConfig{}, nil)
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vapid_public_key", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "PUSH_DISABLED")
}

func TestRegisterLoginMe(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "carol@example.com", "password": "longenough"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "carol@example.com", "password": "longenough"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"EMAIL_TAKEN"`)

	w = a.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "carol@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "carol@example.com", "password": "longenough"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		AccessToken auth.Token `json:"access_token"`
	}
	decode(t, w, &login)

	w = a.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		User         model.User `json:"user"`
		Capabilities struct {
			CanBook bool `json:"can_book"`
		} `json:"capabilities"`
	}
	decode(t, w, &profile)
	assert.Equal(t, "carol@example.com", profile.User.Email)
	assert.False(t, profile.Capabilities.CanBook)

	w = a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "not-an-email", "password": "longenough"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `'email' tag`)
	assert.Contains(t, w.Body.String(), `"code":"INVALID_INPUT"`)

	w = a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "y@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `'min' tag`)
}

func TestBookingRoutes(t *testing.T) {
	a := newTestAPI(t)
	owner := storetest.User(t, a.store, "owner@example.com", model.RoleResident, true)
	renter := storetest.User(t, a.store, "renter@example.com", model.RoleResident, true)
	stranger := storetest.User(t, a.store, "stranger@example.com", model.RoleResident, true)
	unverified := storetest.User(t, a.store, "new@example.com", model.RoleResident, false)
	building := storetest.Building(t, a.store, "Tower A")
	s := storetest.Spot(t, a.store, owner, building, "1-01")

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	req := gin.H{"spot_id": s.ID, "start_time": start, "end_time": start.Add(2 * time.Hour)}

	w := a.do(t, http.MethodPost, "/api/v1/bookings", a.token(t, unverified), req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/bookings", "", req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/bookings", a.token(t, renter), req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.Booking
	decode(t, w, &created)
	assert.Equal(t, model.BookingPending, created.Status)
	assert.True(t, decimal.NewFromInt(11).Equal(created.TotalPrice))

	path := "/api/v1/bookings/" + created.ID

	w = a.do(t, http.MethodGet, path, a.token(t, stranger), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(t, http.MethodGet, path, a.token(t, owner), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// the renter cannot confirm their own request
	w = a.do(t, http.MethodPost, path+"/confirm", a.token(t, renter), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(t, http.MethodPost, path+"/confirm", a.token(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// a request overlapping the confirmed booking is refused
	w = a.do(t, http.MethodPost, "/api/v1/bookings", a.token(t, stranger),
		gin.H{"spot_id": s.ID, "start_time": start.Add(time.Hour), "end_time": start.Add(3 * time.Hour)})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"TIME_CONFLICT"`)

	w = a.do(t, http.MethodPost, path+"/start", a.token(t, renter), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "BOOKING_NOT_STARTED_YET")

	w = a.do(t, http.MethodPost, path+"/complete", a.token(t, renter), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, path+"/cancel", a.token(t, renter), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cancelled model.Booking
	decode(t, w, &cancelled)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)

	w = a.do(t, http.MethodPatch, path, a.token(t, renter), gin.H{"notes": "late"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "BOOKING_CANNOT_BE_UPDATED")

	w = a.do(t, http.MethodGet, "/api/v1/bookings/mine", a.token(t, renter), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []model.Booking
	decode(t, w, &mine)
	assert.Len(t, mine, 1)

	w = a.do(t, http.MethodGet, "/api/v1/bookings/missing", a.token(t, renter), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuoteAndAvailability(t *testing.T) {
	a := newTestAPI(t)
	owner := storetest.User(t, a.store, "owner@example.com", model.RoleResident, true)
	building := storetest.Building(t, a.store, "Tower A")
	s := storetest.Spot(t, a.store, owner, building, "1-01")
	start := time.Date(2030, 7, 28, 10, 0, 0, 0, time.UTC)

	w := a.do(t, http.MethodPost, "/api/v1/bookings/quote", a.token(t, owner),
		gin.H{"spot_id": s.ID, "start_time": start, "end_time": start.Add(24 * time.Hour)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var q struct {
		Hours      int64           `json:"hours"`
		Days       int64           `json:"days"`
		FinalPrice decimal.Decimal `json:"final_price"`
	}
	decode(t, w, &q)
	assert.EqualValues(t, 24, q.Hours)
	assert.EqualValues(t, 1, q.Days)
	assert.True(t, decimal.NewFromInt(33).Equal(q.FinalPrice))

	storetest.Booking(t, a.store, s, owner, start, start.Add(2*time.Hour), model.BookingConfirmed)

	check := func(from, to time.Time) bool {
		t.Helper()
		w := a.do(t, http.MethodGet, "/api/v1/parking-spots/"+s.ID+"/availability?start_time="+
			from.Format(time.RFC3339)+"&end_time="+to.Format(time.RFC3339), "", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res struct {
			Available bool `json:"available"`
		}
		decode(t, w, &res)
		return res.Available
	}
	assert.False(t, check(start.Add(time.Hour), start.Add(3*time.Hour)))
	assert.True(t, check(start.Add(2*time.Hour), start.Add(4*time.Hour)))

	w = a.do(t, http.MethodGet, "/api/v1/parking-spots/"+s.ID+"/availability?start_time=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSpotRoutes(t *testing.T) {
	a := newTestAPI(t)
	owner := storetest.User(t, a.store, "owner@example.com", model.RoleResident, true)
	admin := storetest.User(t, a.store, "admin@example.com", model.RoleAdmin, true)
	building := storetest.Building(t, a.store, "Tower A")

	w := a.do(t, http.MethodPost, "/api/v1/parking-spots", a.token(t, owner), gin.H{
		"building_id": building.ID, "spot_number": "B1-22", "floor": -1,
		"hourly_rate": "3.50", "daily_rate": 20,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.ParkingSpot
	decode(t, w, &created)
	path := "/api/v1/parking-spots/" + created.ID

	w = a.do(t, http.MethodGet, "/api/v1/parking-spots/available", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var none []model.ParkingSpot
	decode(t, w, &none)
	assert.Empty(t, none)

	w = a.do(t, http.MethodPost, path+"/availability", a.token(t, owner), gin.H{"available": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SPOT_NOT_APPROVED")

	w = a.do(t, http.MethodPut, path+"/approve", a.token(t, owner), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/parking-spots/pending-approval", a.token(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []model.ParkingSpot
	decode(t, w, &pending)
	assert.Len(t, pending, 1)

	w = a.do(t, http.MethodPut, path+"/approve", a.token(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, path+"/availability", a.token(t, owner), gin.H{"available": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the listing change must not be hidden by the cached empty search
	w = a.do(t, http.MethodGet, "/api/v1/parking-spots/available", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found []model.ParkingSpot
	decode(t, w, &found)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	w = a.do(t, http.MethodGet, "/api/v1/parking-spots/available?size=TINY", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPut, path, a.token(t, owner), gin.H{"description": "near exit"})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/parking-spots/my-spots", a.token(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, path+"/bookings", a.token(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodDelete, path, a.token(t, admin), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(t, http.MethodDelete, path, a.token(t, owner), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestClaimRoutes(t *testing.T) {
	a := newTestAPI(t)
	resident := storetest.User(t, a.store, "res@example.com", model.RoleResident, true)
	admin := storetest.User(t, a.store, "admin@example.com", model.RoleAdmin, true)

	w := a.do(t, http.MethodGet, "/api/v1/parking-claims/my-claim", a.token(t, resident), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"has_claim":false,"claim":null}`, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/v1/parking-claims", a.token(t, resident), gin.H{"floor": "2F", "spot_number": "#18"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c model.ParkingClaim
	decode(t, w, &c)

	w = a.do(t, http.MethodPost, "/api/v1/parking-claims", a.token(t, resident), gin.H{"floor": "3", "spot_number": "1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "DUPLICATE_CLAIM")

	w = a.do(t, http.MethodGet, "/api/v1/parking-claims/pending", a.token(t, resident), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/parking-claims/"+c.ID+"/approve", a.token(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/v1/parking-claims/"+c.ID+"/reject", a.token(t, admin), gin.H{"reason": "dup"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ALREADY_PROCESSED")

	w = a.do(t, http.MethodGet, "/api/v1/points/transactions", a.token(t, resident), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var points struct {
		Balance      int64                    `json:"balance"`
		Transactions []model.PointTransaction `json:"transactions"`
	}
	decode(t, w, &points)
	assert.EqualValues(t, 100, points.Balance)
	assert.Len(t, points.Transactions, 1)
}

func TestAdminRoutes(t *testing.T) {
	a := newTestAPI(t)
	resident := storetest.User(t, a.store, "res@example.com", model.RoleResident, false)
	admin := storetest.User(t, a.store, "admin@example.com", model.RoleAdmin, true)

	w := a.do(t, http.MethodPost, "/api/v1/admin/users/"+resident.ID+"/verify", a.token(t, resident), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/admin/users/"+resident.ID+"/verify", a.token(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var u model.User
	decode(t, w, &u)
	assert.True(t, u.Verified)

	w = a.do(t, http.MethodPost, "/api/v1/admin/bookings/sweep", a.token(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"completed":0}`, w.Body.String())
}

func TestSubscriptionRoutes(t *testing.T) {
	a := newTestAPI(t)
	alice := storetest.User(t, a.store, "alice@example.com", model.RoleResident, true)
	bob := storetest.User(t, a.store, "bob@example.com", model.RoleResident, true)

	w := a.do(t, http.MethodPut, "/api/v1/subscriptions", a.token(t, alice), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	sub := gin.H{"endpoint": "https://push.example.com/abc", "p256dh": "key", "auth": "secret"}
	w = a.do(t, http.MethodPut, "/api/v1/subscriptions", a.token(t, alice), sub)
	assert.Equal(t, http.StatusCreated, w.Code)

	query := "/api/v1/subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fabc"
	w = a.do(t, http.MethodGet, query, a.token(t, alice), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, http.MethodGet, query, a.token(t, bob), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/subscriptions/all", a.token(t, alice), nil)
	assert.JSONEq(t, `{"endpoints":["https://push.example.com/abc"]}`, w.Body.String())

	w = a.do(t, http.MethodDelete, "/api/v1/subscriptions", a.token(t, bob), gin.H{"endpoint": "https://push.example.com/abc"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(t, http.MethodDelete, "/api/v1/subscriptions", a.token(t, alice), gin.H{"endpoint": "https://push.example.com/abc"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitIsPerUser(t *testing.T) {
	a := newTestAPI(t)
	alice := storetest.User(t, a.store, "alice@example.com", model.RoleResident, true)
	bob := storetest.User(t, a.store, "bob@example.com", model.RoleResident, true)

	limited := &testAPI{
		router: NewRouter(a.store, a.svc, config.ServerConfig{RateLimitPerSec: 0.001, RateLimitBurst: 1}, nil),
		store:  a.store,
		svc:    a.svc,
		issuer: a.issuer,
	}

	assert.Equal(t, http.StatusOK, limited.do(t, http.MethodGet, "/api/v1/auth/me", a.token(t, alice), nil).Code)
	assert.Equal(t, http.StatusOK, limited.do(t, http.MethodGet, "/api/v1/auth/me", a.token(t, bob), nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, limited.do(t, http.MethodGet, "/api/v1/auth/me", a.token(t, alice), nil).Code)
}
