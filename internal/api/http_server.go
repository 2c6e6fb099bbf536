package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"spacehub/internal/auth"
	"spacehub/internal/config"
	"spacehub/internal/domain"
	"spacehub/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services bundles everything the handlers call into.
type Services struct {
	Users     *service.UserService
	Spaces    *service.SpaceService
	Bookings  *service.BookingService
	Invoices  *service.InvoiceService
	Reviews   *service.ReviewService
	Favorites *service.FavoriteService
	Dashboard *service.DashboardService
}

// HTTPServer serves the JSON API and, when given, the HTML pages on one port.
type HTTPServer struct {
	cfg    config.APIConfig
	svc    Services
	issuer *auth.Issuer
	db     Pinger
	cache  *responseCache
	server *http.Server
	logger *zerolog.Logger
	now    func() time.Time
}

// NewHTTPServer builds the router. pages may be nil.
func NewHTTPServer(cfg config.APIConfig, svc Services, issuer *auth.Issuer, db Pinger, cache domain.CacheStore, pages http.Handler, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:    cfg,
		svc:    svc,
		issuer: issuer,
		db:     db,
		cache:  newResponseCache(cache, cfg.Cache, logger),
		logger: logger,
		now:    time.Now,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(pages),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return srv
}

func (s *HTTPServer) routes(pages http.Handler) http.Handler {
	limiter := newRateLimiter(s.cfg.RateLimit)

	r := chi.NewRouter()
	r.Use(RequestLogger(s.logger))
	r.Use(Recoverer(s.logger))
	r.Use(Authenticate(s.issuer, s.cfg.HTTP.CookieName))
	r.Use(limiter.middleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/categories", s.handleCategories)

		r.With(s.cache.middleware(listingScope)).Get("/spaces", s.handleSearchSpaces)
		r.Get("/spaces/{id}", s.handleGetSpace)
		r.Get("/spaces/{id}/slots", s.handleSlots)
		r.Get("/spaces/{id}/quote", s.handleQuote)
		r.Get("/spaces/{id}/reviews", s.handleListReviews)
		r.Get("/bookings/pending-count", s.handlePendingCount)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)

			r.Get("/me", s.handleMe)
			r.Patch("/me", s.handleUpdateMe)
			r.Post("/me/telegram-code", s.handleTelegramCode)

			r.Post("/spaces", s.handleCreateSpace)
			r.Patch("/spaces/{id}", s.handleUpdateSpace)
			r.Delete("/spaces/{id}", s.handleDeleteSpace)
			r.Post("/spaces/{id}/reviews", s.handleCreateReview)

			r.Get("/favorites", s.handleListFavorites)
			r.Post("/favorites/{spaceId}", s.handleAddFavorite)
			r.Delete("/favorites/{spaceId}", s.handleRemoveFavorite)

			r.Post("/bookings", s.handleCreateBooking)
			r.Get("/bookings", s.handleListBookings)
			r.Get("/reservations", s.handleListReservations)
			r.Get("/bookings/{id}", s.handleGetBooking)
			r.Patch("/bookings/{id}", s.handleUpdateBooking)
			r.Delete("/bookings/{id}", s.handleDeleteBooking)
			r.Post("/bookings/{id}/approve", s.handleApproveBooking)
			r.Post("/bookings/{id}/reject", s.handleRejectBooking)

			r.Get("/invoices", s.handleListInvoices)
			r.Get("/invoices/{id}", s.handleGetInvoice)
			r.Patch("/invoices/{id}", s.handleUpdateInvoice)

			r.Get("/dashboard/stats", s.handleDashboardStats)
			r.Get("/dashboard/analytics", s.handleAnalytics)
			r.Get("/dashboard/export", s.handleExport)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "Not found")
		})
	})

	if pages != nil {
		r.Mount("/", pages)
	}
	return r
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) log(r *http.Request) *zerolog.Logger {
	return LoggerFromContext(r.Context(), s.logger)
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, s.log(r), err)
}

func callerID(r *http.Request) string {
	if c := ClaimsFromContext(r.Context()); c != nil {
		return c.UserID()
	}
	return ""
}
