package worker

import (
	"context"
	"fmt"
	"time"

	"spacehub/internal/domain"
	"spacehub/internal/models"

	"github.com/rs/zerolog"
)

// ReminderSource is the read side the daily reminder needs.
type ReminderSource interface {
	ListBookingsStartingBetween(ctx context.Context, from, to time.Time, statuses []string) ([]*models.Booking, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetSpace(ctx context.Context, id string) (*models.Space, error)
}

// OverdueSweeper flips unpaid invoices past their due date. *service.InvoiceService implements it.
type OverdueSweeper interface {
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs the daily guest reminders and the periodic overdue sweep.
type Scheduler struct {
	source          ReminderSource
	notifier        domain.Notifier
	invoices        OverdueSweeper
	reminderHour    int
	reminderMinute  int
	overdueInterval time.Duration
	now             func() time.Time
	logger          *zerolog.Logger
}

// NewScheduler parses reminderTime ("HH:MM"). A zero overdueInterval disables the sweep.
func NewScheduler(source ReminderSource, notifier domain.Notifier, invoices OverdueSweeper, reminderTime string, overdueInterval time.Duration, logger *zerolog.Logger) (*Scheduler, error) {
	hour, minute := 9, 0
	if reminderTime != "" {
		if _, err := fmt.Sscanf(reminderTime, "%d:%d", &hour, &minute); err != nil {
			return nil, fmt.Errorf("invalid reminder time %q: %w", reminderTime, err)
		}
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("invalid reminder time %q", reminderTime)
		}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Scheduler{
		source:          source,
		notifier:        notifier,
		invoices:        invoices,
		reminderHour:    hour,
		reminderMinute:  minute,
		overdueInterval: overdueInterval,
		now:             time.Now,
		logger:          logger,
	}, nil
}

// Start launches both loops and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	go s.reminderLoop(ctx)
	if s.invoices != nil && s.overdueInterval > 0 {
		go s.overdueLoop(ctx)
	}
}

func (s *Scheduler) reminderLoop(ctx context.Context) {
	timer := time.NewTimer(timeUntilNext(s.now(), s.reminderHour, s.reminderMinute))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			sent := s.SendReminders(ctx)
			s.logger.Info().Int("sent", sent).Msg("daily reminders done")
			timer.Reset(timeUntilNext(s.now(), s.reminderHour, s.reminderMinute))
		}
	}
}

func (s *Scheduler) overdueLoop(ctx context.Context) {
	ticker := time.NewTicker(s.overdueInterval)
	defer ticker.Stop()

	s.SweepOverdue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOverdue(ctx)
		}
	}
}

// SendReminders notifies guests of approved bookings that start tomorrow and
// returns the number of messages delivered.
func (s *Scheduler) SendReminders(ctx context.Context) int {
	if s.notifier == nil {
		return 0
	}
	now := s.now()
	from := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	bookings, err := s.source.ListBookingsStartingBetween(ctx, from, to, []string{models.StatusApproved})
	if err != nil {
		s.logger.Error().Err(err).Time("from", from).Time("to", to).Msg("reminder: list bookings")
		return 0
	}

	sent := 0
	for _, b := range bookings {
		guest, err := s.source.GetUserByID(ctx, b.UserID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", b.UserID).Msg("reminder: load guest")
			continue
		}
		title := b.SpaceID
		if b.Space != nil {
			title = b.Space.Title
		} else if space, err := s.source.GetSpace(ctx, b.SpaceID); err == nil {
			title = space.Title
		}
		if err := s.notifier.Notify(ctx, guest, reminderText(title, b)); err != nil {
			s.logger.Error().Err(err).Str("booking_id", b.ID).Msg("reminder: notify")
			continue
		}
		sent++
	}
	return sent
}

// SweepOverdue marks overdue invoices once.
func (s *Scheduler) SweepOverdue(ctx context.Context) {
	n, err := s.invoices.MarkOverdue(ctx, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("overdue sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int("invoices", n).Msg("invoices marked overdue")
	}
}

func reminderText(spaceTitle string, b *models.Booking) string {
	return fmt.Sprintf("Reminder: your booking at %s is tomorrow, %s - %s.",
		spaceTitle, b.StartDateTime.Format("Mon 02 Jan 15:04"), b.EndDateTime.Format("15:04"))
}

func timeUntilNext(now time.Time, hour, minute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
