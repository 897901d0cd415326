package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelbooking/internal/app/dto"
	"travelbooking/internal/app/workflow"
	"travelbooking/internal/domain/cancellation"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainpricing "travelbooking/internal/domain/pricing"
	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/money"
	domainuser "travelbooking/internal/domain/user"
	"travelbooking/internal/infra/config"
	"travelbooking/internal/infra/obs"
	infrapricing "travelbooking/internal/infra/pricing"
	"travelbooking/internal/infra/storage/memory"
)

var clock = time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	tokens Tokens
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.PutUnit(ctx, &domaincatalog.Unit{
		ID: "unit-1", HostID: "host-1", Title: "Harbour loft", MaxGuests: 4,
		BasePrice: money.Must("100", "USD"), ApprovalStatus: domaincatalog.ApprovalApproved,
		CancellationPolicy: cancellation.Moderate(),
	}))
	require.NoError(t, store.PutUser(ctx, domainuser.Profile{ID: "guest-1", Roles: []domainuser.Role{domainuser.RoleGuest}}))
	require.NoError(t, store.PutUser(ctx, domainuser.Profile{ID: "guest-2", Roles: []domainuser.Role{domainuser.RoleGuest}}))

	engine, err := infrapricing.NewEngine(domainpricing.DefaultFeeConfig(), infrapricing.ClampConfig{}, nil)
	require.NoError(t, err)
	var (
		mu  sync.Mutex
		seq int
	)
	wf, err := workflow.New(workflow.Deps{
		UoWFactory:  store.Factory(),
		Pricing:     engine,
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Now:         func() time.Time { return clock },
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	})
	require.NoError(t, err)

	tokens := Tokens{Secret: []byte("test-secret"), Issuer: "travelbooking", TTL: time.Hour, Now: func() time.Time { return clock }}
	cfg := config.Config{Env: "test"}
	configureGinMode(cfg.Env)
	router := NewRouter(cfg, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Booking:        BookingHandler{Workflow: wf},
		Payment:        PaymentHandler{Workflow: wf},
		Availability:   AvailabilityHandler{Reader: wf},
		AuthMiddleware: AuthMiddleware{Tokens: tokens}.Handle,
	})
	return testServer{router: router, tokens: tokens}
}

func (s testServer) do(t *testing.T, method, path, subject string, roles []domainuser.Role, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		token, err := s.tokens.Issue(subject, roles...)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

var (
	guest = []domainuser.Role{domainuser.RoleGuest}
	host  = []domainuser.Role{domainuser.RoleHost}
	admin = []domainuser.Role{domainuser.RoleAdmin}
)

func bookingBody(checkIn, checkOut string, total int) map[string]any {
	return map[string]any{
		"unit_id":   "unit-1",
		"check_in":  checkIn,
		"check_out": checkOut,
		"guests":    map[string]int{"total": total},
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCreateBookingEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", guest, bookingBody("2030-02-01", "2030-02-04", 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[dto.BookingDTO](t, rec)
	assert.Equal(t, "guest-1", b.GuestID)
	assert.Equal(t, "PENDING", b.Status)
	assert.Equal(t, "381.40", b.Price.Total.Amount)

	rec = s.do(t, http.MethodPost, "/api/v1/bookings", "guest-2", guest, bookingBody("2030-02-03", "2030-02-05", 2))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(apperr.KindUnavailable), decode[errorBody](t, rec).Code)
}

func TestCreateBookingErrorMapping(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name   string
		body   any
		status int
	}{
		{"capacity", bookingBody("2030-02-01", "2030-02-03", 9), http.StatusUnprocessableEntity},
		{"past check-in", bookingBody("2029-12-01", "2029-12-03", 2), http.StatusBadRequest},
		{"bad date", bookingBody("first of feb", "2030-02-03", 2), http.StatusBadRequest},
		{"unknown unit", map[string]any{"unit_id": "nope", "check_in": "2030-02-01", "check_out": "2030-02-03", "guests": map[string]int{"total": 1}}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", guest, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestAuthIsEnforced(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/bookings", "", nil, bookingBody("2030-02-01", "2030-02-03", 1))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/bookings/x/confirm", "guest-1", guest, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/bookings", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	bad := httptest.NewRecorder()
	s.router.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestPaymentAndCancellationFlow(t *testing.T) {
	s := newTestServer(t)
	created := decode[dto.BookingDTO](t, s.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", guest, bookingBody("2030-02-01", "2030-02-04", 2)))
	base := "/api/v1/bookings/" + created.ID

	rec := s.do(t, http.MethodPost, base+"/payment/start", "guest-1", guest, map[string]string{"method": "card"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PROCESSING", decode[dto.BookingDTO](t, rec).Payment.Status)

	rec = s.do(t, http.MethodPost, base+"/payment/complete", "gateway", admin, map[string]string{"transaction_id": "tx-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[dto.BookingDTO](t, rec)
	assert.Equal(t, "COMPLETED", paid.Payment.Status)
	assert.Equal(t, "CONFIRMED", paid.Status)

	rec = s.do(t, http.MethodPost, base+"/cancel", "guest-2", guest, map[string]string{"reason": "not mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/cancel", "guest-1", guest, map[string]string{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[dto.CancelBookingResult](t, rec)
	assert.Equal(t, "CANCELLED", cancelled.Booking.Status)
	assert.Equal(t, "381.40", cancelled.Refund.Amount)
	assert.Equal(t, "REFUNDED", cancelled.Booking.Payment.Status)

	rec = s.do(t, http.MethodPost, base+"/confirm", "host-1", host, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(apperr.KindInvalidState), decode[errorBody](t, rec).Code)
}

func TestHostTransitionsAndVisibility(t *testing.T) {
	s := newTestServer(t)
	created := decode[dto.BookingDTO](t, s.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", guest, bookingBody("2030-02-01", "2030-02-04", 2)))
	base := "/api/v1/bookings/" + created.ID

	rec := s.do(t, http.MethodPost, base+"/confirm", "host-9", host, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/confirm", "host-1", host, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, base+"/complete", "host-1", host, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "COMPLETED", decode[dto.BookingDTO](t, rec).Status)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, base, "guest-1", guest, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, base, "host-1", host, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, base, "guest-2", guest, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/bookings/missing", "guest-1", guest, nil).Code)

	rec = s.do(t, http.MethodGet, "/api/v1/me/bookings", "guest-1", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.GuestBookingCollection](t, rec).Items, 1)
}

func TestIdempotencyKeyReplaysCreate(t *testing.T) {
	s := newTestServer(t)
	body := bookingBody("2030-03-01", "2030-03-03", 1)
	first := s.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", guest, body, "Idempotency-Key", "k-1")
	second := s.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", guest, body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Equal(t, decode[dto.BookingDTO](t, first).ID, decode[dto.BookingDTO](t, second).ID)
}

func TestQuoteAndOccupancyArePublic(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/quotes", "", nil, map[string]any{
		"unit_id": "unit-1", "check_in": "2030-02-01", "check_out": "2030-02-04", "guests": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "381.40", decode[dto.QuoteDTO](t, rec).Price.Total.Amount)

	s.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", guest, bookingBody("2030-02-01", "2030-02-04", 2))
	rec = s.do(t, http.MethodGet, "/api/v1/units/unit-1/occupancy?from=2030-02-01&to=2030-02-28", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	occ := decode[dto.Occupancy](t, rec)
	require.Len(t, occ.Nights, 1)
	assert.Equal(t, "2030-02-01", occ.Nights[0].From)
	assert.Equal(t, "2030-02-03", occ.Nights[0].To)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/livez", "", nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/readyz", "", nil, nil).Code)
}

func TestStatusForKinds(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:       http.StatusBadRequest,
		apperr.KindNotFound:         http.StatusNotFound,
		apperr.KindCapacityExceeded: http.StatusUnprocessableEntity,
		apperr.KindUnavailable:      http.StatusConflict,
		apperr.KindUnauthorized:     http.StatusForbidden,
		apperr.KindInvalidState:     http.StatusConflict,
		apperr.KindCurrencyMismatch: http.StatusInternalServerError,
		apperr.KindConflict:         http.StatusConflict,
		apperr.KindTransient:        http.StatusServiceUnavailable,
	}
	for kind, status := range cases {
		assert.Equal(t, status, statusFor(apperr.New(kind, "x")), string(kind))
	}
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("boom")))
}

func TestTokensRejectExpiredAndForeignTokens(t *testing.T) {
	issued := Tokens{Secret: []byte("a"), Issuer: "travelbooking", TTL: time.Minute, Now: func() time.Time { return clock }}
	raw, err := issued.Issue("guest-1", domainuser.RoleGuest)
	require.NoError(t, err)

	later := issued
	later.Now = func() time.Time { return clock.Add(time.Hour) }
	_, err = later.Parse(raw)
	require.Error(t, err)

	foreign := issued
	foreign.Secret = []byte("b")
	_, err = foreign.Parse(raw)
	require.Error(t, err)

	claims, err := issued.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "guest-1", claims.Subject)
	assert.Equal(t, []string{"guest"}, claims.Roles)
}

func TestRateLimitRejectsBurst(t *testing.T) {
	l, err := NewRateLimiter("2-M")
	require.NoError(t, err)
	r := gin.New()
	r.Use(RateLimit(l, nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
