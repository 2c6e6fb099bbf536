package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"spacehub/internal/models"
)

type fakeReminderSource struct {
	bookings []*models.Booking
	users    map[string]*models.User
	from, to time.Time
	statuses []string
}

func (f *fakeReminderSource) ListBookingsStartingBetween(ctx context.Context, from, to time.Time, statuses []string) ([]*models.Booking, error) {
	f.from, f.to, f.statuses = from, to, statuses
	return f.bookings, nil
}

func (f *fakeReminderSource) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (f *fakeReminderSource) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	return &models.Space{ID: id, Title: "Loft " + id}, nil
}

type fakeNotifier struct {
	sent []string
	to   []string
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, user *models.User, text string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, user.ID)
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) Channel() string { return "fake" }

type fakeSweeper struct {
	calls int
	at    time.Time
}

func (f *fakeSweeper) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	f.calls++
	f.at = now
	return 1, nil
}

func TestSchedulerSendReminders(t *testing.T) {
	now := time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC)
	start := time.Date(2030, time.March, 5, 14, 0, 0, 0, time.UTC)

	source := &fakeReminderSource{
		bookings: []*models.Booking{
			{ID: "b-1", UserID: "u-1", SpaceID: "s-1", StartDateTime: start, EndDateTime: start.Add(2 * time.Hour)},
			{ID: "b-2", UserID: "ghost", SpaceID: "s-1", StartDateTime: start, EndDateTime: start.Add(time.Hour)},
		},
		users: map[string]*models.User{"u-1": {ID: "u-1", Name: "Ana"}},
	}
	notifier := &fakeNotifier{}

	s, err := NewScheduler(source, notifier, nil, "08:30", 0, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.now = func() time.Time { return now }

	if sent := s.SendReminders(context.Background()); sent != 1 {
		t.Fatalf("expected 1 reminder, got %d", sent)
	}
	if !source.from.Equal(time.Date(2030, time.March, 5, 0, 0, 0, 0, time.UTC)) || !source.to.Equal(time.Date(2030, time.March, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window %s - %s", source.from, source.to)
	}
	if len(source.statuses) != 1 || source.statuses[0] != models.StatusApproved {
		t.Fatalf("expected only approved bookings, got %v", source.statuses)
	}
	if !strings.Contains(notifier.sent[0], "Loft s-1") || !strings.Contains(notifier.sent[0], "14:00 - 16:00") {
		t.Fatalf("unexpected reminder text %q", notifier.sent[0])
	}

	notifier.err = errors.New("down")
	if sent := s.SendReminders(context.Background()); sent != 0 {
		t.Fatalf("expected no reminders delivered, got %d", sent)
	}
}

func TestSchedulerSweepOverdue(t *testing.T) {
	now := time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{}
	s, err := NewScheduler(&fakeReminderSource{}, nil, sweeper, "", time.Hour, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.now = func() time.Time { return now }

	s.SweepOverdue(context.Background())
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls)
	}
	if !sweeper.at.Equal(now) {
		t.Fatalf("expected sweep at %s, got %s", now, sweeper.at)
	}
}

func TestNewSchedulerRejectsBadTime(t *testing.T) {
	for _, in := range []string{"nine", "25:00", "10:75"} {
		if _, err := NewScheduler(&fakeReminderSource{}, nil, nil, in, 0, nil); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestTimeUntilNext(t *testing.T) {
	now := time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC)

	if d := timeUntilNext(now, 10, 30); d != 90*time.Minute {
		t.Fatalf("expected 90m, got %s", d)
	}
	if d := timeUntilNext(now, 9, 0); d != 24*time.Hour {
		t.Fatalf("expected next day, got %s", d)
	}
	if d := timeUntilNext(now, 8, 0); d != 23*time.Hour {
		t.Fatalf("expected 23h, got %s", d)
	}
}
