package web

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"spacehub/internal/api"
	"spacehub/internal/models"
	"spacehub/internal/service"

	"github.com/go-chi/chi/v5"
)

type indexView struct {
	Categories []models.Category
	Query      map[string]string
	Spaces     []*models.SpaceSummary
	Error      string
}

type spaceView struct {
	*service.SpaceDetail
	Date  time.Time
	Slots []models.TimeSlot
}

type tripsView struct {
	Upcoming []*models.Booking
	Past     []*models.Booking
}

type bookingsView struct {
	Status   string
	Bookings []*models.Booking
}

type dashboardView struct {
	Stats    *models.DashboardStats
	Upcoming []*models.Booking
}

func (p *Pages) index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := indexView{
		Categories: models.Categories,
		Query: map[string]string{
			"category":    q.Get("category"),
			"city":        q.Get("city"),
			"minCapacity": q.Get("minCapacity"),
			"maxPrice":    q.Get("maxPrice"),
		},
	}

	filter, err := api.ParseSpaceFilter(q)
	if err != nil {
		view.Error = err.Error()
		p.render(w, r, "index", "Find a space", view)
		return
	}
	spaces, err := p.svc.Spaces.Search(r.Context(), filter)
	if err != nil {
		p.fail(w, r, err, "")
		return
	}
	view.Spaces = spaces
	p.render(w, r, "index", "Find a space", view)
}

func (p *Pages) spaceDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := p.svc.Spaces.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.fail(w, r, err, "")
		return
	}
	today := p.now()
	slots, err := p.svc.Spaces.Slots(r.Context(), detail.ID, today)
	if err != nil {
		p.log(r).Warn().Err(err).Str("space_id", detail.ID).Msg("slots unavailable")
	}
	p.render(w, r, "space", detail.Title, spaceView{SpaceDetail: detail, Date: today, Slots: slots})
}

func (p *Pages) loginForm(w http.ResponseWriter, r *http.Request) {
	if api.ClaimsFromContext(r.Context()) != nil {
		http.Redirect(w, r, safeReturn(r.URL.Query().Get("return")), http.StatusSeeOther)
		return
	}
	p.render(w, r, "login", "Log in", map[string]string{"Return": safeReturn(r.URL.Query().Get("return"))})
}

func (p *Pages) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ret := safeReturn(r.PostForm.Get("return"))

	user, err := p.svc.Users.Authenticate(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		p.fail(w, r, err, "/login?return="+url.QueryEscape(ret))
		return
	}
	token, err := p.issuer.Issue(user)
	if err != nil {
		p.fail(w, r, err, "/login")
		return
	}
	api.SetSessionCookie(w, p.cfg, token)
	http.Redirect(w, r, ret, http.StatusSeeOther)
}

func (p *Pages) logout(w http.ResponseWriter, r *http.Request) {
	api.ClearSessionCookie(w, p.cfg)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (p *Pages) trips(w http.ResponseWriter, r *http.Request) {
	bookings, err := p.svc.Bookings.ListForUser(r.Context(), callerID(r))
	if err != nil {
		p.fail(w, r, err, "")
		return
	}
	now := p.now()
	var view tripsView
	for _, b := range bookings {
		if b.EndDateTime.After(now) && b.IsActive() {
			view.Upcoming = append(view.Upcoming, b)
		} else {
			view.Past = append(view.Past, b)
		}
	}
	p.render(w, r, "trips", "My trips", view)
}

func (p *Pages) favorites(w http.ResponseWriter, r *http.Request) {
	spaces, err := p.svc.Favorites.List(r.Context(), callerID(r))
	if err != nil {
		p.fail(w, r, err, "")
		return
	}
	p.render(w, r, "favorites", "Favorites", spaces)
}

func (p *Pages) invoices(w http.ResponseWriter, r *http.Request) {
	list, err := p.svc.Invoices.List(r.Context(), callerID(r), r.URL.Query().Get("status"))
	if err != nil {
		p.fail(w, r, err, "/invoices")
		return
	}
	p.render(w, r, "invoices", "Invoices", list)
}

func (p *Pages) invoice(w http.ResponseWriter, r *http.Request) {
	inv, err := p.svc.Invoices.Get(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		p.fail(w, r, err, "")
		return
	}
	p.render(w, r, "invoice", "Invoice "+inv.InvoiceNumber, inv)
}

func (p *Pages) dashboard(w http.ResponseWriter, r *http.Request) {
	now := p.now()
	stats, err := p.svc.Dashboard.Stats(r.Context(), callerID(r), now)
	if err != nil {
		p.fail(w, r, err, "")
		return
	}
	upcoming, err := p.svc.Bookings.UpcomingForOwner(r.Context(), callerID(r), now, now.AddDate(0, 0, 7))
	if err != nil {
		p.fail(w, r, err, "")
		return
	}
	p.render(w, r, "dashboard", "Dashboard", dashboardView{Stats: stats, Upcoming: upcoming})
}

func (p *Pages) dashboardSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := p.svc.Spaces.ListByOwner(r.Context(), callerID(r))
	if err != nil {
		p.fail(w, r, err, "")
		return
	}
	p.render(w, r, "dashboard_spaces", "My spaces", spaces)
}

func (p *Pages) dashboardBookings(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(r.URL.Query().Get("status"))
	bookings, err := p.svc.Bookings.ListForOwner(r.Context(), callerID(r), status)
	if err != nil {
		p.fail(w, r, err, "")
		return
	}
	p.render(w, r, "dashboard_bookings", "Reservations", bookingsView{Status: status, Bookings: bookings})
}

func (p *Pages) approve(w http.ResponseWriter, r *http.Request) {
	b, err := p.svc.Bookings.Approve(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		p.fail(w, r, err, "/dashboard/bookings")
		return
	}
	p.bookingChanged(r.Context())
	p.flash(w, r, "Booking approved for "+b.StartDateTime.Format(dateTimeLayout))
	http.Redirect(w, r, "/dashboard/bookings", http.StatusSeeOther)
}

func (p *Pages) reject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if _, err := p.svc.Bookings.Reject(r.Context(), callerID(r), chi.URLParam(r, "id"), r.PostForm.Get("reason")); err != nil {
		p.fail(w, r, err, "/dashboard/bookings")
		return
	}
	p.bookingChanged(r.Context())
	p.flash(w, r, "Booking rejected")
	http.Redirect(w, r, "/dashboard/bookings", http.StatusSeeOther)
}

func (p *Pages) analytics(w http.ResponseWriter, r *http.Request) {
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = service.TimeframeMonth
	}
	a, err := p.svc.Dashboard.Analytics(r.Context(), callerID(r), timeframe, r.URL.Query().Get("spaceId"), p.now())
	if err != nil {
		p.fail(w, r, err, "")
		return
	}
	p.render(w, r, "analytics", "Analytics", a)
}
