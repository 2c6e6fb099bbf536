package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spacehub/internal/models"

	"github.com/google/uuid"
)

const invoiceColumns = `i.id, i.invoice_number, i.booking_id, i.billing_name, i.billing_email, i.subtotal,
	i.taxes, i.total, i.issued_at, i.due_date, i.paid_at, i.status, i.tax_id`

func scanInvoice(row rowScanner, extra ...interface{}) (*models.Invoice, error) {
	var (
		inv         models.Invoice
		issued, due string
		paid        sql.NullString
	)
	dest := []interface{}{
		&inv.ID, &inv.InvoiceNumber, &inv.BookingID, &inv.BillingName, &inv.BillingEmail, &inv.Subtotal,
		&inv.Taxes, &inv.Total, &issued, &due, &paid, &inv.Status, &inv.TaxID,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	var err error
	if inv.IssuedAt, err = parseTime(issued); err != nil {
		return nil, err
	}
	if inv.DueDate, err = parseTime(due); err != nil {
		return nil, err
	}
	if inv.PaidAt, err = parseNullTime(paid); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (db *DB) queryInvoices(ctx context.Context, query string, args ...interface{}) ([]*models.Invoice, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// CreateInvoice inserts inv. A second invoice for the same booking yields ErrInvoiceExists.
func (db *DB) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	query := `INSERT INTO invoices (
			id, invoice_number, booking_id, billing_name, billing_email, subtotal, taxes, total,
			issued_at, due_date, paid_at, status, tax_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		inv.ID, inv.InvoiceNumber, inv.BookingID, inv.BillingName, inv.BillingEmail,
		inv.Subtotal, inv.Taxes, inv.Total,
		formatTime(inv.IssuedAt), formatTime(inv.DueDate), formatTimePtr(inv.PaidAt), inv.Status, inv.TaxID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrInvoiceExists
		}
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (db *DB) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	inv, err := scanInvoice(db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return inv, nil
}

func (db *DB) GetInvoiceByBooking(ctx context.Context, bookingID string) (*models.Invoice, error) {
	inv, err := scanInvoice(db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i WHERE i.booking_id = ?`, bookingID))
	if err != nil {
		return nil, notFound(err)
	}
	return inv, nil
}

// ListInvoicesForUser returns invoices where userID booked the space (outgoing)
// or owns it (incoming), newest first. Each invoice carries its booking and space.
func (db *DB) ListInvoicesForUser(ctx context.Context, userID, status string) ([]*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `, bk.user_id, s.user_id
		FROM invoices i
		JOIN bookings bk ON bk.id = i.booking_id
		JOIN spaces s ON s.id = bk.space_id
		WHERE (bk.user_id = ? OR s.user_id = ?)`
	args := []interface{}{userID, userID}
	if status != "" {
		query += ` AND i.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY i.issued_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*models.Invoice{}
	for rows.Next() {
		var guestID, hostID string
		inv, err := scanInvoice(rows, &guestID, &hostID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.IsOutgoing = guestID == userID
		inv.IsIncoming = hostID == userID
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := db.attachInvoiceBookings(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// LoadInvoiceBooking fills inv.Booking with the booking and its space.
func (db *DB) LoadInvoiceBooking(ctx context.Context, inv *models.Invoice) error {
	return db.attachInvoiceBookings(ctx, []*models.Invoice{inv})
}

func (db *DB) attachInvoiceBookings(ctx context.Context, invoices []*models.Invoice) error {
	ids := uniqueIDs(len(invoices), func(i int) string { return invoices[i].BookingID })
	if len(ids) == 0 {
		return nil
	}
	bookings, err := db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings bk WHERE bk.id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return err
	}
	if err := db.attachSpaces(ctx, bookings); err != nil {
		return err
	}
	if err := db.attachUsers(ctx, bookings); err != nil {
		return err
	}

	byID := make(map[string]*models.Booking, len(bookings))
	for _, b := range bookings {
		byID[b.ID] = b
	}
	for _, inv := range invoices {
		inv.Booking = byID[inv.BookingID]
	}
	return nil
}

// UpdateInvoiceStatus sets status and paid_at. paidAt is only kept for PAID.
func (db *DB) UpdateInvoiceStatus(ctx context.Context, id, status string, paidAt *time.Time) error {
	if status != models.InvoicePaid {
		paidAt = nil
	}
	result, err := db.ExecContext(ctx, `UPDATE invoices SET status = ?, paid_at = ? WHERE id = ?`,
		status, formatTimePtr(paidAt), id)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOverdueInvoices moves SENT invoices past their due date to OVERDUE
// and returns the ones it changed.
func (db *DB) MarkOverdueInvoices(ctx context.Context, now time.Time) ([]*models.Invoice, error) {
	var changed []*models.Invoice
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.status = ? AND i.due_date < ?`,
			models.InvoiceSent, formatTime(now))
		if err != nil {
			return fmt.Errorf("failed to find overdue invoices: %w", err)
		}
		for rows.Next() {
			inv, err := scanInvoice(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan invoice: %w", err)
			}
			changed = append(changed, inv)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, inv := range changed {
			if _, err := tx.ExecContext(ctx, `UPDATE invoices SET status = ? WHERE id = ?`, models.InvoiceOverdue, inv.ID); err != nil {
				return fmt.Errorf("failed to mark invoice overdue: %w", err)
			}
			inv.Status = models.InvoiceOverdue
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}
