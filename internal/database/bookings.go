package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spacehub/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `bk.id, bk.user_id, bk.space_id, bk.start_date_time, bk.end_date_time, bk.total_hours,
	bk.attendee_count, bk.event_type, bk.company_name, bk.special_requests, bk.hourly_rate, bk.total_price,
	bk.pricing_type, bk.addons, bk.status, bk.payment_status, bk.rejection_reason, bk.version,
	bk.created_at, bk.updated_at`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                  models.Booking
		start, end, addons string
		created, updated   string
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.SpaceID, &start, &end, &b.TotalHours,
		&b.AttendeeCount, &b.EventType, &b.CompanyName, &b.SpecialRequests, &b.HourlyRate, &b.TotalPrice,
		&b.PricingType, &addons, &b.Status, &b.PaymentStatus, &b.RejectionReason, &b.Version,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}

	b.Addons = decodeList(addons)
	if b.StartDateTime, err = parseTime(start); err != nil {
		return nil, err
	}
	if b.EndDateTime, err = parseTime(end); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// CreateBookingWithLock checks for an overlapping pending or approved booking
// and inserts the new one in the same transaction.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var overlapping int
		queryCount := `SELECT COUNT(*) FROM bookings
			WHERE space_id = ? AND status IN (?, ?) AND start_date_time < ? AND end_date_time > ?`
		err := tx.QueryRowContext(ctx, queryCount, booking.SpaceID,
			models.StatusPending, models.StatusApproved,
			formatTime(booking.EndDateTime), formatTime(booking.StartDateTime)).Scan(&overlapping)
		if err != nil {
			return fmt.Errorf("failed to check availability in tx: %w", err)
		}
		if overlapping > 0 {
			return ErrNotAvailable
		}

		queryInsert := `INSERT INTO bookings (
				id, user_id, space_id, start_date_time, end_date_time, total_hours, attendee_count,
				event_type, company_name, special_requests, hourly_rate, total_price, pricing_type,
				addons, status, payment_status, rejection_reason, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, queryInsert,
			booking.ID, booking.UserID, booking.SpaceID,
			formatTime(booking.StartDateTime), formatTime(booking.EndDateTime),
			booking.TotalHours, booking.AttendeeCount,
			booking.EventType, booking.CompanyName, booking.SpecialRequests,
			booking.HourlyRate, booking.TotalPrice, booking.PricingType,
			encodeList(booking.Addons), booking.Status, booking.PaymentStatus, booking.RejectionReason,
			1, formatTime(now), formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("failed to insert booking in tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings bk WHERE bk.id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// ListBookingsByUser returns the user's bookings with space and invoice attached.
func (db *DB) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	bookings, err := db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings bk WHERE bk.user_id = ? ORDER BY bk.start_date_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	if err := db.attachSpaces(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, db.attachInvoices(ctx, bookings)
}

// ListBookingsForOwner returns bookings on spaces owned by ownerID,
// optionally narrowed to one status, with space, guest and invoice attached.
func (db *DB) ListBookingsForOwner(ctx context.Context, ownerID, status string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings bk
		JOIN spaces s ON s.id = bk.space_id
		WHERE s.user_id = ?`
	args := []interface{}{ownerID}
	if status != "" {
		query += ` AND bk.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY bk.start_date_time DESC`

	bookings, err := db.queryBookings(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err := db.attachSpaces(ctx, bookings); err != nil {
		return nil, err
	}
	if err := db.attachUsers(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, db.attachInvoices(ctx, bookings)
}

// ListBookingsForSpace returns every booking of the space overlapping [from, to).
func (db *DB) ListBookingsForSpace(ctx context.Context, spaceID string, from, to time.Time) ([]*models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings bk
		WHERE bk.space_id = ? AND bk.start_date_time < ? AND bk.end_date_time > ?
		ORDER BY bk.start_date_time`,
		spaceID, formatTime(to), formatTime(from))
}

// ListBookingsStartingBetween is used by the reminder job.
func (db *DB) ListBookingsStartingBetween(ctx context.Context, from, to time.Time, statuses []string) ([]*models.Booking, error) {
	if len(statuses) == 0 {
		statuses = []string{models.StatusApproved}
	}
	args := []interface{}{formatTime(from), formatTime(to)}
	args = append(args, stringArgs(statuses)...)

	bookings, err := db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings bk
		WHERE bk.start_date_time >= ? AND bk.start_date_time < ? AND bk.status IN (`+placeholders(len(statuses))+`)
		ORDER BY bk.start_date_time`, args...)
	if err != nil {
		return nil, err
	}
	if err := db.attachSpaces(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, db.attachUsers(ctx, bookings)
}

// UpdateBookingStatusWithVersion changes the status only if nobody else
// has modified the booking since version was read.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status, reason string) error {
	query := `UPDATE bookings SET status = ?, rejection_reason = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, reason, formatTime(time.Now()), id, version)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return db.checkVersioned(ctx, result, id)
}

// UpdateBookingDetails writes the guest-editable fields under the version check.
func (db *DB) UpdateBookingDetails(ctx context.Context, b *models.Booking) error {
	query := `UPDATE bookings SET attendee_count = ?, event_type = ?, company_name = ?, special_requests = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		b.AttendeeCount, b.EventType, b.CompanyName, b.SpecialRequests, formatTime(now), b.ID, b.Version)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if err := db.checkVersioned(ctx, result, b.ID); err != nil {
		return err
	}
	b.Version++
	b.UpdatedAt = now
	return nil
}

func (db *DB) checkVersioned(ctx context.Context, result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}
	var exists int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrConcurrentModification
}

func (db *DB) SetPaymentStatus(ctx context.Context, bookingID, status string) error {
	result, err := db.ExecContext(ctx, `UPDATE bookings SET payment_status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(time.Now()), bookingID)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBooking removes the booking; its invoice and review go with it.
func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) CountPendingForOwner(ctx context.Context, ownerID string) (int, error) {
	query := `SELECT COUNT(*) FROM bookings bk JOIN spaces s ON s.id = bk.space_id
		WHERE s.user_id = ? AND bk.status = ?`
	var count int
	if err := db.QueryRowContext(ctx, query, ownerID, models.StatusPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending bookings: %w", err)
	}
	return count, nil
}

// FindCompletedBooking returns the user's most recent completed booking of the space.
func (db *DB) FindCompletedBooking(ctx context.Context, userID, spaceID string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings bk
		WHERE bk.user_id = ? AND bk.space_id = ? AND bk.status = ?
		ORDER BY bk.end_date_time DESC LIMIT 1`, userID, spaceID, models.StatusCompleted)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (db *DB) attachSpaces(ctx context.Context, bookings []*models.Booking) error {
	ids := uniqueIDs(len(bookings), func(i int) string { return bookings[i].SpaceID })
	if len(ids) == 0 {
		return nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+spaceColumns+` FROM spaces s WHERE s.id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("failed to load booking spaces: %w", err)
	}
	defer rows.Close()

	spaces := make(map[string]*models.Space, len(ids))
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return fmt.Errorf("failed to scan space: %w", err)
		}
		spaces[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, b := range bookings {
		b.Space = spaces[b.SpaceID]
	}
	return nil
}

func (db *DB) attachUsers(ctx context.Context, bookings []*models.Booking) error {
	ids := uniqueIDs(len(bookings), func(i int) string { return bookings[i].UserID })
	if len(ids) == 0 {
		return nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("failed to load booking users: %w", err)
	}
	defer rows.Close()

	users := make(map[string]*models.User, len(ids))
	for rows.Next() {
		var (
			u                models.User
			created, updated string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CompanyName,
			&u.UserType, &u.TelegramChatID, &created, &updated); err != nil {
			return fmt.Errorf("failed to scan user: %w", err)
		}
		u.CreatedAt, _ = parseTime(created)
		u.UpdatedAt, _ = parseTime(updated)
		users[u.ID] = &u
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, b := range bookings {
		b.User = users[b.UserID]
	}
	return nil
}

func (db *DB) attachInvoices(ctx context.Context, bookings []*models.Booking) error {
	ids := uniqueIDs(len(bookings), func(i int) string { return bookings[i].ID })
	if len(ids) == 0 {
		return nil
	}

	invoices, err := db.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i WHERE i.booking_id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return err
	}
	byBooking := make(map[string]*models.Invoice, len(invoices))
	for _, inv := range invoices {
		byBooking[inv.BookingID] = inv
	}
	for _, b := range bookings {
		b.Invoice = byBooking[b.ID]
	}
	return nil
}

func uniqueIDs(n int, get func(i int) string) []string {
	seen := make(map[string]bool, n)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := get(i)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
