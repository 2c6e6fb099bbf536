package service

import (
	"context"
	"testing"
	"time"

	"spacehub/internal/events"
	"spacehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedBooking(t *testing.T, env *testEnv) (host, guest *models.User, booking *models.Booking) {
	t.Helper()
	ctx := context.Background()
	host = env.user(t, "host@example.com")
	guest = env.user(t, "guest@example.com")
	space := env.space(t, host.ID, nil)

	b, err := env.bookings.Create(ctx, guest.ID, bookingInput(space.ID, testNow.Add(26*time.Hour), 4, 2))
	require.NoError(t, err)
	booking, err = env.bookings.Approve(ctx, host.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, booking.Invoice)
	return host, guest, booking
}

func TestInvoiceService_IssueIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, guest, booking := approvedBooking(t, env)

	again, err := env.invoices.Issue(ctx, booking, booking.Space, guest)
	require.NoError(t, err)
	assert.Equal(t, booking.Invoice.ID, again.ID)
	assert.Equal(t, booking.Invoice.InvoiceNumber, again.InvoiceNumber)

	count := 0
	for _, typ := range env.bus.types() {
		if typ == events.EventInvoiceIssued {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestInvoiceService_BillingNameFallback(t *testing.T) {
	b := &models.Booking{}
	assert.Equal(t, "Customer", billingName(b, nil))
	assert.Equal(t, "Customer", billingName(b, &models.User{Email: "a@b.c"}))
	assert.Equal(t, "Ann", billingName(b, &models.User{Name: "Ann"}))
	b.CompanyName = "Acme"
	assert.Equal(t, "Acme", billingName(b, &models.User{Name: "Ann"}))
}

func TestInvoiceService_InvoiceNumber(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "INV-1700000000123-ABCDEF12", invoiceNumber(at, "abcdef12-3456"))
	assert.Equal(t, "INV-1700000000123-XY", invoiceNumber(at, "xy"))
}

func TestInvoiceService_GetAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host, guest, booking := approvedBooking(t, env)
	stranger := env.user(t, "other@example.com")

	inv, err := env.invoices.Get(ctx, guest.ID, booking.Invoice.ID)
	require.NoError(t, err)
	assert.True(t, inv.IsOutgoing)
	assert.False(t, inv.IsIncoming)
	require.NotNil(t, inv.Booking)

	inv, err = env.invoices.Get(ctx, host.ID, booking.Invoice.ID)
	require.NoError(t, err)
	assert.True(t, inv.IsIncoming)

	_, err = env.invoices.Get(ctx, stranger.ID, booking.Invoice.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.invoices.Get(ctx, guest.ID, "missing")
	assert.EqualError(t, err, "Invoice not found")
}

func TestInvoiceService_MarkPaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host, guest, booking := approvedBooking(t, env)
	id := booking.Invoice.ID

	_, err := env.invoices.Update(ctx, guest.ID, id, "PAID", nil)
	assert.EqualError(t, err, "Only space owners can mark invoices as paid")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.invoices.Update(ctx, host.ID, id, "SETTLED", nil)
	assert.EqualError(t, err, "Invalid invoice status")

	inv, err := env.invoices.Update(ctx, host.ID, id, "paid", nil)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, inv.Status)
	require.NotNil(t, inv.PaidAt)
	assert.Equal(t, testNow, *inv.PaidAt)

	stored, err := env.db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Contains(t, env.bus.types(), events.EventInvoicePaid)

	list, err := env.invoices.List(ctx, guest.ID, "")
	require.NoError(t, err)
	require.Len(t, list.Invoices, 1)
	assert.Equal(t, 1, list.Summary.Paid)
	assert.Equal(t, booking.TotalPrice, list.Summary.TotalPaid)

	// moving away from PAID clears the paid date
	inv, err = env.invoices.Update(ctx, host.ID, id, models.InvoiceCancelled, nil)
	require.NoError(t, err)
	assert.Nil(t, inv.PaidAt)
}

func TestInvoiceService_ListAndOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host, guest, booking := approvedBooking(t, env)

	list, err := env.invoices.List(ctx, host.ID, "sent")
	require.NoError(t, err)
	require.Len(t, list.Invoices, 1)
	assert.True(t, list.Invoices[0].IsIncoming)
	assert.Equal(t, 1, list.Summary.Pending)
	assert.Equal(t, booking.TotalPrice, list.Summary.TotalOutstanding)

	_, err = env.invoices.List(ctx, host.ID, "bogus")
	assert.Error(t, err)

	n, err := env.invoices.MarkOverdue(ctx, testNow.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = env.invoices.MarkOverdue(ctx, testNow.AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, env.bus.types(), events.EventInvoiceOverdue)

	list, err = env.invoices.List(ctx, guest.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, list.Summary.Overdue)
	assert.Equal(t, models.InvoiceOverdue, list.Invoices[0].Status)
}
