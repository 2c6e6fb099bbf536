// Package web renders the server-side HTML pages. It shares authentication
// with the JSON API: the same access token cookie identifies the user.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spacehub/internal/api"
	"spacehub/internal/auth"
	"spacehub/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

const (
	sessionName = "spacehub-session"
	flashKey    = "flash"
)

var pageNames = []string{
	"index", "space", "login", "trips", "favorites",
	"invoices", "invoice", "dashboard", "dashboard_spaces", "dashboard_bookings", "analytics",
}

// Pages serves the HTML front end.
type Pages struct {
	svc    api.Services
	issuer *auth.Issuer
	cfg    config.APIHTTPConfig
	store  *sessions.CookieStore
	pages  map[string]*template.Template
	logger *zerolog.Logger
	now    func() time.Time

	afterBookingChange func(context.Context)
}

type pageData struct {
	Title   string
	User    *auth.Claims
	Flashes []string
	Pending int
	Data    any
}

func NewPages(cfg config.APIHTTPConfig, svc api.Services, issuer *auth.Issuer, logger *zerolog.Logger) (*Pages, error) {
	if cfg.SessionKey == "" {
		return nil, errors.New("session key is empty")
	}
	if len(cfg.SessionKey) < 32 {
		logger.Warn().Int("length", len(cfg.SessionKey)).Msg("session key is short; 32+ chars recommended")
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	p := &Pages{
		svc:    svc,
		issuer: issuer,
		cfg:    cfg,
		store:  store,
		pages:  make(map[string]*template.Template, len(pageNames)),
		logger: logger,
		now:    time.Now,
	}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.gohtml", "templates/"+name+".gohtml")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		p.pages[name] = t
	}
	return p, nil
}

// OnBookingChange registers fn to run after an owner approves or rejects a booking.
func (p *Pages) OnBookingChange(fn func(context.Context)) {
	p.afterBookingChange = fn
}

func (p *Pages) bookingChanged(ctx context.Context) {
	if p.afterBookingChange != nil {
		p.afterBookingChange(ctx)
	}
}

// Handler returns the page router. It expects api.Authenticate to run before it.
func (p *Pages) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/", p.index)
	r.Get("/spaces/{id}", p.spaceDetail)
	r.Get("/login", p.loginForm)
	r.Post("/login", p.login)
	r.Post("/logout", p.logout)

	r.Group(func(r chi.Router) {
		r.Use(requireSignedIn)

		r.Get("/trips", p.trips)
		r.Get("/favorites", p.favorites)
		r.Get("/invoices", p.invoices)
		r.Get("/invoices/{id}", p.invoice)
		r.Get("/dashboard", p.dashboard)
		r.Get("/dashboard/spaces", p.dashboardSpaces)
		r.Get("/dashboard/bookings", p.dashboardBookings)
		r.Post("/dashboard/bookings/{id}/approve", p.approve)
		r.Post("/dashboard/bookings/{id}/reject", p.reject)
		r.Get("/analytics", p.analytics)
	})
	return r
}

// requireSignedIn sends anonymous visitors to the login form, keeping their destination.
func requireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.ClaimsFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		ret := url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
	})
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	pd := pageData{
		Title:   title,
		User:    api.ClaimsFromContext(r.Context()),
		Flashes: p.popFlashes(w, r),
		Data:    data,
	}
	if pd.User != nil {
		if n, err := p.svc.Bookings.PendingCount(r.Context(), pd.User.UserID()); err == nil {
			pd.Pending = n
		}
	}

	var buf bytes.Buffer
	if err := p.pages[name].ExecuteTemplate(&buf, "layout", pd); err != nil {
		p.log(r).Error().Err(err).Str("page", name).Msg("render failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// fail shows the error message on a redirect target, or a plain error page when there is none.
func (p *Pages) fail(w http.ResponseWriter, r *http.Request, err error, redirectTo string) {
	status, msg := api.ErrorStatus(err)
	if status == http.StatusInternalServerError {
		p.log(r).Error().Err(err).Msg("page request failed")
	}
	if redirectTo != "" {
		p.flash(w, r, msg)
		http.Redirect(w, r, redirectTo, http.StatusSeeOther)
		return
	}
	http.Error(w, msg, status)
}

func (p *Pages) flash(w http.ResponseWriter, r *http.Request, msg string) {
	sess, _ := p.store.Get(r, sessionName)
	sess.AddFlash(msg, flashKey)
	if err := sess.Save(r, w); err != nil {
		p.log(r).Warn().Err(err).Msg("save session")
	}
}

func (p *Pages) popFlashes(w http.ResponseWriter, r *http.Request) []string {
	sess, err := p.store.Get(r, sessionName)
	if err != nil {
		return nil
	}
	raw := sess.Flashes(flashKey)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	_ = sess.Save(r, w)
	return out
}

func (p *Pages) log(r *http.Request) *zerolog.Logger {
	return api.LoggerFromContext(r.Context(), p.logger)
}

func callerID(r *http.Request) string {
	if c := api.ClaimsFromContext(r.Context()); c != nil {
		return c.UserID()
	}
	return ""
}

// safeReturn accepts only local paths.
func safeReturn(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}
