package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"spacehub/internal/config"
	"spacehub/internal/database"
	"spacehub/internal/domain"
	"spacehub/internal/events"
	"spacehub/internal/metrics"
	"spacehub/internal/models"
	"spacehub/internal/pricing"
	"spacehub/internal/sanitize"
	"spacehub/internal/schedule"

	"github.com/rs/zerolog"
)

// Sheets sync task types.
const (
	SyncUpsert       = "upsert"
	SyncUpdateStatus = "update_status"
	SyncDelete       = "delete"
)

// BookingInput is the body of a booking request.
type BookingInput struct {
	SpaceID         string     `json:"spaceId"`
	StartDateTime   *time.Time `json:"startDateTime"`
	EndDateTime     *time.Time `json:"endDateTime"`
	AttendeeCount   *int       `json:"attendeeCount"`
	EventType       string     `json:"eventType"`
	CompanyName     string     `json:"companyName"`
	SpecialRequests string     `json:"specialRequests"`
	PricingType     string     `json:"pricingType"`
	Addons          []string   `json:"addons"`
}

// BookingPatch carries a status change, guest edits, or both.
type BookingPatch struct {
	Status          *string `json:"status"`
	RejectionReason *string `json:"rejectionReason"`
	AttendeeCount   *int    `json:"attendeeCount"`
	EventType       *string `json:"eventType"`
	CompanyName     *string `json:"companyName"`
	SpecialRequests *string `json:"specialRequests"`
}

func (p BookingPatch) hasDetails() bool {
	return p.AttendeeCount != nil || p.EventType != nil || p.CompanyName != nil || p.SpecialRequests != nil
}

var statusEvents = map[string]string{
	models.StatusApproved:  events.EventBookingApproved,
	models.StatusRejected:  events.EventBookingRejected,
	models.StatusCancelled: events.EventBookingCancelled,
	models.StatusCompleted: events.EventBookingCompleted,
}

type BookingService struct {
	repo           domain.Repository
	invoices       *InvoiceService
	eventBus       domain.EventPublisher
	sheetsWorker   domain.SyncWorker
	taxRate        float64
	maxAdvanceDays int
	now            func() time.Time
	logger         *zerolog.Logger
}

func NewBookingService(repo domain.Repository, invoices *InvoiceService, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, cfg config.BookingConfig, logger *zerolog.Logger) *BookingService {
	maxAdvanceDays := cfg.MaxAdvanceDays
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = 365
	}
	return &BookingService{
		repo:           repo,
		invoices:       invoices,
		eventBus:       eventBus,
		sheetsWorker:   sheetsWorker,
		taxRate:        cfg.TaxRate,
		maxAdvanceDays: maxAdvanceDays,
		now:            time.Now,
		logger:         logger,
	}
}

func (s *BookingService) Create(ctx context.Context, userID string, in BookingInput) (*models.Booking, error) {
	if in.SpaceID == "" || in.StartDateTime == nil || in.EndDateTime == nil || in.AttendeeCount == nil {
		return nil, invalid("Missing required fields")
	}
	pricingType := strings.ToUpper(strings.TrimSpace(in.PricingType))
	if pricingType == "" {
		pricingType = models.PricingHourly
	}
	if !models.IsValidPricingType(pricingType) {
		return nil, invalid("Invalid pricing type")
	}

	start, end := in.StartDateTime.UTC(), in.EndDateTime.UTC()
	hours := end.Sub(start).Hours()
	if hours <= 0 {
		return nil, invalid("Invalid booking duration")
	}
	now := s.now()
	if start.Before(now) {
		return nil, invalid("Booking must start in the future")
	}
	if start.After(now.AddDate(0, 0, s.maxAdvanceDays)) {
		return nil, invalid("Bookings can be made at most %d days in advance", s.maxAdvanceDays)
	}

	space, err := s.repo.GetSpace(ctx, in.SpaceID)
	if err != nil {
		return nil, notFound(err, "Space")
	}
	if !space.IsActive {
		return nil, &NotFoundError{Resource: "Space"}
	}

	attendees := *in.AttendeeCount
	if attendees < space.MinCapacity || attendees > space.Capacity {
		return nil, invalid("Attendee count must be between %d and %d", space.MinCapacity, space.Capacity)
	}
	if hours < float64(space.MinBookingHours) {
		return nil, invalid("Minimum booking duration is %d hours", space.MinBookingHours)
	}
	if space.MaxBookingHours > 0 && hours > float64(space.MaxBookingHours) {
		return nil, invalid("Maximum booking duration is %d hours", space.MaxBookingHours)
	}
	if sameDay(start, end) && !schedule.WithinBusinessHours(start, end, space.BusinessHours) {
		return nil, invalid("Selected time is outside business hours")
	}

	tier, err := pricing.FindTier(space.Pricing, pricingType)
	if err != nil {
		return nil, invalid("No pricing available for this space")
	}
	quote, err := pricing.Calculate(*tier, hours, s.taxRate)
	if err != nil {
		return nil, invalid("Invalid booking duration")
	}

	guest, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User")
	}

	booking := &models.Booking{
		UserID:          userID,
		SpaceID:         space.ID,
		StartDateTime:   start,
		EndDateTime:     end,
		TotalHours:      hours,
		AttendeeCount:   attendees,
		EventType:       sanitize.Text(in.EventType),
		CompanyName:     sanitize.Text(in.CompanyName),
		SpecialRequests: sanitize.Text(in.SpecialRequests),
		HourlyRate:      tier.Price,
		TotalPrice:      quote.Total,
		PricingType:     pricingType,
		Addons:          sanitize.Lines(in.Addons),
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
	}
	if booking.CompanyName == "" {
		booking.CompanyName = guest.CompanyName
	}
	if !space.RequiresApproval {
		booking.Status = models.StatusApproved
	}

	if err := s.repo.CreateBookingWithLock(ctx, booking); err != nil {
		if errors.Is(err, database.ErrNotAvailable) {
			return nil, invalid("Space is not available for the selected time")
		}
		return nil, err
	}

	if booking.Status == models.StatusApproved && space.InstantBooking {
		inv, err := s.invoices.Issue(ctx, booking, space, guest)
		if err != nil {
			s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("failed to issue invoice for instant booking")
		}
		booking.Invoice = inv
	}
	booking.Space = space

	metrics.IncBookingCreated(pricingType)
	s.publishEvent(events.EventBookingCreated, booking, space, userID)
	s.enqueueSync(ctx, booking, SyncUpsert)

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("space_id", space.ID).
		Str("status", booking.Status).
		Msg("booking created")
	return booking, nil
}

// Approve is the host accepting a pending request. It issues the invoice.
func (s *BookingService) Approve(ctx context.Context, callerID, id string) (*models.Booking, error) {
	booking, space, err := s.loadForHost(ctx, callerID, id, "You are not authorized to approve this booking")
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusPending {
		return nil, invalid("Booking is not pending approval")
	}
	if err := s.transition(ctx, booking, space, callerID, models.StatusApproved, ""); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) Reject(ctx context.Context, callerID, id, reason string) (*models.Booking, error) {
	booking, space, err := s.loadForHost(ctx, callerID, id, "You are not authorized to reject this booking")
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusPending {
		return nil, invalid("Booking is not pending approval")
	}
	if err := s.transition(ctx, booking, space, callerID, models.StatusRejected, sanitize.Text(reason)); err != nil {
		return nil, err
	}
	return booking, nil
}

// Update applies guest edits and then a status change. The host drives the
// status table; either party may cancel before the booking starts.
func (s *BookingService) Update(ctx context.Context, callerID, id string, patch BookingPatch) (*models.Booking, error) {
	booking, space, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	isGuest := booking.UserID == callerID
	isHost := space.IsOwnedBy(callerID)
	if !isGuest && !isHost {
		return nil, forbidden("Unauthorized")
	}
	now := s.now()

	if patch.hasDetails() {
		if !isGuest {
			return nil, forbidden("Only the guest can edit booking details")
		}
		if !booking.IsActive() || booking.Started(now) {
			return nil, invalid("Booking can no longer be modified")
		}
		if patch.AttendeeCount != nil {
			n := *patch.AttendeeCount
			if n < space.MinCapacity || n > space.Capacity {
				return nil, invalid("Attendee count must be between %d and %d", space.MinCapacity, space.Capacity)
			}
			booking.AttendeeCount = n
		}
		if patch.EventType != nil {
			booking.EventType = sanitize.Text(*patch.EventType)
		}
		if patch.CompanyName != nil {
			booking.CompanyName = sanitize.Text(*patch.CompanyName)
		}
		if patch.SpecialRequests != nil {
			booking.SpecialRequests = sanitize.Text(*patch.SpecialRequests)
		}
		if err := s.repo.UpdateBookingDetails(ctx, booking); err != nil {
			return nil, notFound(err, "Booking")
		}
		s.publishEvent(events.EventBookingUpdated, booking, space, callerID)
		s.enqueueSync(ctx, booking, SyncUpsert)
	}

	if patch.Status == nil {
		return booking, nil
	}
	to := strings.ToUpper(strings.TrimSpace(*patch.Status))
	if to == booking.Status {
		return booking, nil
	}

	switch {
	case to == models.StatusCancelled && booking.Cancellable(now):
	case !isHost:
		return nil, ErrInvalidTransition
	case !models.CanTransition(booking.Status, to):
		return nil, ErrInvalidTransition
	case to == models.StatusCompleted && !booking.Started(now):
		return nil, invalid("Booking cannot be completed before it starts")
	}

	reason := ""
	if to == models.StatusRejected && patch.RejectionReason != nil {
		reason = sanitize.Text(*patch.RejectionReason)
	}
	if err := s.transition(ctx, booking, space, callerID, to, reason); err != nil {
		return nil, err
	}
	return booking, nil
}

// Delete removes the booking for good. Its invoice and review go with it.
func (s *BookingService) Delete(ctx context.Context, callerID, id string) error {
	booking, space, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if booking.UserID != callerID && !space.IsOwnedBy(callerID) {
		return forbidden("Unauthorized")
	}
	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return notFound(err, "Booking")
	}

	s.publishEvent(events.EventBookingDeleted, booking, space, callerID)
	s.enqueueSync(ctx, booking, SyncDelete)
	return nil
}

// Get returns the booking with space, guest and invoice for one of its parties.
func (s *BookingService) Get(ctx context.Context, callerID, id string) (*models.Booking, error) {
	booking, space, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != callerID && !space.IsOwnedBy(callerID) {
		return nil, forbidden("Unauthorized")
	}

	guest, err := s.repo.GetUserByID(ctx, booking.UserID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	booking.User = guest

	inv, err := s.repo.GetInvoiceByBooking(ctx, id)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	booking.Invoice = inv
	return booking, nil
}

func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	bookings, err := s.repo.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	return bookings, nil
}

// ListForOwner returns reservations on the owner's spaces, optionally by status.
func (s *BookingService) ListForOwner(ctx context.Context, ownerID, status string) ([]*models.Booking, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !models.IsValidBookingStatus(status) {
		return nil, invalid("Invalid booking status")
	}
	bookings, err := s.repo.ListBookingsForOwner(ctx, ownerID, status)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	return bookings, nil
}

func (s *BookingService) PendingCount(ctx context.Context, ownerID string) (int, error) {
	return s.repo.CountPendingForOwner(ctx, ownerID)
}

// UpcomingForOwner lists approved bookings on the owner's spaces starting in [from, to).
func (s *BookingService) UpcomingForOwner(ctx context.Context, ownerID string, from, to time.Time) ([]*models.Booking, error) {
	bookings, err := s.repo.ListBookingsStartingBetween(ctx, from, to, []string{models.StatusApproved})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Space != nil && b.Space.UserID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *BookingService) load(ctx context.Context, id string) (*models.Booking, *models.Space, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "Booking")
	}
	space, err := s.repo.GetSpace(ctx, booking.SpaceID)
	if err != nil {
		return nil, nil, notFound(err, "Space")
	}
	booking.Space = space
	return booking, space, nil
}

func (s *BookingService) loadForHost(ctx context.Context, callerID, id, deniedMsg string) (*models.Booking, *models.Space, error) {
	booking, space, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !space.IsOwnedBy(callerID) {
		return nil, nil, forbidden(deniedMsg)
	}
	return booking, space, nil
}

// transition writes the status under the version check and runs its side effects.
func (s *BookingService) transition(ctx context.Context, booking *models.Booking, space *models.Space, callerID, to, reason string) error {
	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, to, reason); err != nil {
		return notFound(err, "Booking")
	}
	booking.Status = to
	booking.RejectionReason = reason
	booking.Version++
	booking.UpdatedAt = s.now().UTC()

	if to == models.StatusApproved {
		guest, err := s.repo.GetUserByID(ctx, booking.UserID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
		inv, err := s.invoices.Issue(ctx, booking, space, guest)
		if err != nil {
			return err
		}
		booking.Invoice = inv
	}

	metrics.IncBookingTransition(to)
	if eventType, ok := statusEvents[to]; ok {
		s.publishEvent(eventType, booking, space, callerID)
	}
	s.enqueueSync(ctx, booking, SyncUpdateStatus)

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("status", to).
		Str("changed_by", callerID).
		Msg("booking status changed")
	return nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, space *models.Space, changedByID string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		SpaceID:     booking.SpaceID,
		GuestID:     booking.UserID,
		Status:      booking.Status,
		Start:       booking.StartDateTime,
		End:         booking.EndDateTime,
		TotalPrice:  booking.TotalPrice,
		Reason:      booking.RejectionReason,
		ChangedByID: changedByID,
	}
	if space != nil {
		payload.SpaceTitle = space.Title
		payload.HostID = space.UserID
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == SyncUpdateStatus {
		status = booking.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking.ID, booking, status); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay == by && am == bm && ad == bd {
		return true
	}
	// a window ending exactly at midnight still belongs to its start day
	return b.Equal(time.Date(ay, am, ad+1, 0, 0, 0, 0, a.Location()))
}
