package api

import (
	"fmt"
	"net/http"
	"time"

	"spacehub/internal/models"
	"spacehub/internal/service"

	"github.com/go-chi/chi/v5"
)

type transitionResponse struct {
	Success bool            `json:"success"`
	Booking *models.Booking `json:"booking"`
	Message string          `json:"message"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type invoicePatch struct {
	Status string     `json:"status"`
	PaidAt *time.Time `json:"paidAt"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var in service.BookingInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	booking, err := s.svc.Bookings.Create(r.Context(), callerID(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.cache.invalidate(r.Context(), listingScope)
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.ListForUser(r.Context(), callerID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilBookings(bookings))
}

func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.ListForOwner(r.Context(), callerID(r), r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilBookings(bookings))
}

// handlePendingCount never fails: anonymous callers and lookup errors get zero.
func (s *HTTPServer) handlePendingCount(w http.ResponseWriter, r *http.Request) {
	count := 0
	if id := callerID(r); id != "" {
		n, err := s.svc.Bookings.PendingCount(r.Context(), id)
		if err != nil {
			s.log(r).Warn().Err(err).Msg("pending count failed")
		} else {
			count = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Bookings.Get(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var patch service.BookingPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	booking, err := s.svc.Bookings.Update(r.Context(), callerID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.cache.invalidate(r.Context(), listingScope)
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Bookings.Delete(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.cache.invalidate(r.Context(), listingScope)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *HTTPServer) handleApproveBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Bookings.Approve(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.cache.invalidate(r.Context(), listingScope)
	writeJSON(w, http.StatusOK, transitionResponse{
		Success: true,
		Booking: booking,
		Message: "Booking approved successfully",
	})
}

func (s *HTTPServer) handleRejectBooking(w http.ResponseWriter, r *http.Request) {
	var body rejectRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	booking, err := s.svc.Bookings.Reject(r.Context(), callerID(r), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.cache.invalidate(r.Context(), listingScope)
	writeJSON(w, http.StatusOK, transitionResponse{
		Success: true,
		Booking: booking,
		Message: "Booking rejected",
	})
}

func (s *HTTPServer) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Invoices.List(r.Context(), callerID(r), r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.Invoices.Get(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *HTTPServer) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var patch invoicePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	inv, err := s.svc.Invoices.Update(r.Context(), callerID(r), chi.URLParam(r, "id"), patch.Status, patch.PaidAt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *HTTPServer) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Dashboard.Stats(r.Context(), callerID(r), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	timeframe := q.Get("timeframe")
	if timeframe == "" {
		timeframe = service.TimeframeMonth
	}
	a, err := s.svc.Dashboard.Analytics(r.Context(), callerID(r), timeframe, q.Get("spaceId"), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleExport defaults to the current calendar month.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from parameter")
			return
		}
		from = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to parameter")
			return
		}
		to = t
	}

	data, err := s.svc.Dashboard.Export(r.Context(), callerID(r), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name := fmt.Sprintf("bookings_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func nonNilBookings(b []*models.Booking) []*models.Booking {
	if b == nil {
		return []*models.Booking{}
	}
	return b
}
