package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spacehub/internal/models"
	"spacehub/internal/service"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleSearchSpaces(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseSpaceFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	spaces, err := s.svc.Spaces.Search(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spaces)
}

func (s *HTTPServer) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var in service.SpaceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	space, err := s.svc.Spaces.Create(r.Context(), callerID(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.cache.invalidate(r.Context(), listingScope)
	writeJSON(w, http.StatusCreated, space)
}

func (s *HTTPServer) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.Spaces.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *HTTPServer) handleUpdateSpace(w http.ResponseWriter, r *http.Request) {
	var in service.SpaceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	space, err := s.svc.Spaces.Update(r.Context(), callerID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.cache.invalidate(r.Context(), listingScope)
	writeJSON(w, http.StatusOK, space)
}

func (s *HTTPServer) handleDeleteSpace(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Spaces.Delete(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.cache.invalidate(r.Context(), listingScope)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := parseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	slots, err := s.svc.Spaces.Slots(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be an RFC3339 time")
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be an RFC3339 time")
		return
	}
	quote, err := s.svc.Spaces.Quote(r.Context(), chi.URLParam(r, "id"), start, end, q.Get("pricingType"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *HTTPServer) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.svc.Reviews.ListForSpace(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *HTTPServer) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var in service.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	review, err := s.svc.Reviews.Create(r.Context(), callerID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.cache.invalidate(r.Context(), listingScope)
	writeJSON(w, http.StatusCreated, review)
}

func (s *HTTPServer) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	spaces, err := s.svc.Favorites.List(r.Context(), callerID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spaces)
}

func (s *HTTPServer) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.Favorites.Add(r.Context(), callerID(r), chi.URLParam(r, "spaceId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"favoriteIds": ids})
}

func (s *HTTPServer) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.Favorites.Remove(r.Context(), callerID(r), chi.URLParam(r, "spaceId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"favoriteIds": ids})
}

// ParseSpaceFilter reads listing search parameters from a query string.
func ParseSpaceFilter(q url.Values) (models.SpaceFilter, error) {
	f := models.SpaceFilter{
		UserID:        q.Get("userId"),
		SpaceType:     q.Get("spaceType"),
		Category:      q.Get("category"),
		LocationValue: q.Get("locationValue"),
		City:          q.Get("city"),
		Amenities:     splitCSV(q.Get("amenities")),
	}

	var err error
	if f.MinCapacity, err = intParam(q, "minCapacity"); err != nil {
		return f, err
	}
	if f.MaxCapacity, err = intParam(q, "maxCapacity"); err != nil {
		return f, err
	}
	if raw := q.Get("instantBooking"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, &paramError{name: "instantBooking"}
		}
		f.InstantBooking = &v
	}
	if f.StartDateTime, err = timeParam(q, "startDateTime"); err != nil {
		return f, err
	}
	if f.EndDateTime, err = timeParam(q, "endDateTime"); err != nil {
		return f, err
	}
	if f.MinPrice, err = floatParam(q, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = floatParam(q, "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}

type paramError struct {
	name string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter"
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &paramError{name: name}
	}
	return v, nil
}

func floatParam(q url.Values, name string) (*float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, &paramError{name: name}
	}
	return &v, nil
}

func timeParam(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &paramError{name: name}
	}
	return &v, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
