package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spacehub/internal/api"
	"spacehub/internal/auth"
	"spacehub/internal/config"
	"spacehub/internal/database"
	"spacehub/internal/events"
	"spacehub/internal/models"
	"spacehub/internal/repository"
	"spacehub/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse"

type site struct {
	db  *database.DB
	svc api.Services
	ts  *httptest.Server
}

func newSite(t *testing.T) *site {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.APIConfig{
		HTTP: config.APIHTTPConfig{
			CookieName: "spacehub_token",
			SessionKey: "0123456789abcdef0123456789abcdef",
		},
		Auth:      config.APIAuthConfig{JWTSecret: "test-secret-0123456789", TokenTTL: time.Hour},
		RateLimit: config.APIRateLimitConfig{RPS: 1000, Burst: 1000},
	}

	cache := repository.NewMemoryStore()
	bus := events.NewEventBus()
	invoices := service.NewInvoiceService(db, bus, 7, 0.1, &logger)
	svc := api.Services{
		Users:     service.NewUserService(db, cache, 4, &logger),
		Spaces:    service.NewSpaceService(db, bus, 0.1, &logger),
		Bookings:  service.NewBookingService(db, invoices, bus, nil, config.BookingConfig{TaxRate: 0.1, MaxAdvanceDays: 365}, &logger),
		Invoices:  invoices,
		Reviews:   service.NewReviewService(db, &logger),
		Favorites: service.NewFavoriteService(db),
		Dashboard: service.NewDashboardService(db, &logger),
	}
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	pages, err := NewPages(cfg.HTTP, svc, issuer, &logger)
	require.NoError(t, err)
	srv := api.NewHTTPServer(cfg, svc, issuer, db, cache, pages.Handler(), &logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &site{db: db, svc: svc, ts: ts}
}

func (s *site) register(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := s.svc.Users.Register(context.Background(), service.RegisterInput{
		Name:     strings.Split(email, "@")[0],
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return u
}

func (s *site) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (s *site) login(t *testing.T, c *http.Client, email string) {
	t.Helper()
	resp, err := c.PostForm(s.ts.URL+"/login", url.Values{"email": {email}, "password": {testPassword}, "return": {"/dashboard"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Request.URL.Path)
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func pendingBooking(t *testing.T, s *site, hostID, guestID string) *models.Booking {
	t.Helper()
	space := &models.Space{
		UserID: hostID, Title: "Harbor Loft", Description: "Bright", SpaceType: models.SpaceTypeWorkspace,
		Category: "Meeting Room", Capacity: 8, MinCapacity: 1, LocationValue: "US", Address: "1 Main St",
		City: "Springfield", Country: "United States", MinBookingHours: 1, CancellationPolicy: models.PolicyFlexible,
		RequiresApproval: true, IsActive: true,
		Pricing: []models.PricingTier{{PricingType: models.PricingHourly, Price: 40, Currency: "USD"}},
	}
	require.NoError(t, s.db.CreateSpace(context.Background(), space))

	start := time.Now().UTC().Truncate(time.Hour).Add(48 * time.Hour)
	end := start.Add(2 * time.Hour)
	attendees := 3
	b, err := s.svc.Bookings.Create(context.Background(), guestID, service.BookingInput{
		SpaceID: space.ID, StartDateTime: &start, EndDateTime: &end, AttendeeCount: &attendees,
	})
	require.NoError(t, err)
	return b
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	s := newSite(t)
	c := s.client(t)
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	for _, path := range []string{"/trips", "/dashboard", "/invoices", "/analytics?timeframe=week"} {
		resp, _ := get(t, c, s.ts.URL+path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login?return="+url.QueryEscape(path), resp.Header.Get("Location"))
	}
}

func TestLoginFailureShowsFlash(t *testing.T) {
	s := newSite(t)
	s.register(t, "ana@example.com")
	c := s.client(t)

	resp, err := c.PostForm(s.ts.URL+"/login", url.Values{"email": {"ana@example.com"}, "password": {"nope-nope"}})
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Contains(t, string(body), "Unauthorized")

	// flashes are shown once
	_, again := get(t, c, s.ts.URL+"/login")
	assert.NotContains(t, again, `class="flash"`)
}

func TestHostApprovesFromDashboard(t *testing.T) {
	s := newSite(t)
	host := s.register(t, "host@example.com")
	guest := s.register(t, "guest@example.com")
	booking := pendingBooking(t, s, host.ID, guest.ID)

	c := s.client(t)
	s.login(t, c, "host@example.com")

	_, body := get(t, c, s.ts.URL+"/dashboard/bookings?status=pending")
	assert.Contains(t, body, "Harbor Loft")
	assert.Contains(t, body, "/dashboard/bookings/"+booking.ID+"/approve")
	assert.Contains(t, body, "Dashboard (1)")

	resp, err := c.PostForm(s.ts.URL+"/dashboard/bookings/"+booking.ID+"/approve", nil)
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "/dashboard/bookings", resp.Request.URL.Path)
	assert.Contains(t, string(page), "Booking approved for")

	got, err := s.svc.Bookings.Get(context.Background(), host.ID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	// approving twice reports the service error instead of failing the page
	resp, err = c.PostForm(s.ts.URL+"/dashboard/bookings/"+booking.ID+"/approve", nil)
	require.NoError(t, err)
	page, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(page), "Booking is not pending approval")
}

func TestGuestCannotRejectFromDashboard(t *testing.T) {
	s := newSite(t)
	host := s.register(t, "host@example.com")
	guest := s.register(t, "guest@example.com")
	booking := pendingBooking(t, s, host.ID, guest.ID)

	c := s.client(t)
	s.login(t, c, "guest@example.com")

	resp, err := c.PostForm(s.ts.URL+"/dashboard/bookings/"+booking.ID+"/reject", url.Values{"reason": {"no"}})
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(page), "You are not authorized to reject this booking")

	_, trips := get(t, c, s.ts.URL+"/trips")
	assert.Contains(t, trips, "Harbor Loft")
	assert.Contains(t, trips, "PENDING")
}

func TestPublicPages(t *testing.T) {
	s := newSite(t)
	host := s.register(t, "host@example.com")
	guest := s.register(t, "guest@example.com")
	booking := pendingBooking(t, s, host.ID, guest.ID)

	c := s.client(t)
	resp, body := get(t, c, s.ts.URL+"/?city=Springfield")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Harbor Loft")
	assert.Contains(t, body, "Wedding Venue")

	_, body = get(t, c, s.ts.URL+"/?minCapacity=lots")
	assert.Contains(t, body, "invalid minCapacity parameter")

	resp, body = get(t, c, s.ts.URL+"/spaces/"+booking.SpaceID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Hosted by host")
	assert.Contains(t, body, "No reviews yet.")

	resp, _ = get(t, c, s.ts.URL+"/spaces/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSafeReturn(t *testing.T) {
	assert.Equal(t, "/trips", safeReturn("/trips"))
	assert.Equal(t, "/", safeReturn("https://evil.example.com"))
	assert.Equal(t, "/", safeReturn("//evil.example.com"))
	assert.Equal(t, "/", safeReturn(""))
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2030, 1, 8, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "Tue 08 Jan 2030 10:30", formatDateTime(ts))
	assert.Equal(t, "Tue 08 Jan 2030 10:30", formatDateTime(&ts))
	var none *time.Time
	assert.Equal(t, "-", formatDateTime(none))
	assert.Equal(t, "$12.50", money(12.5))
}
