package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"spacehub/internal/models"

	"github.com/google/uuid"
)

const spaceColumns = `s.id, s.user_id, s.title, s.description, s.image_src, s.images, s.space_type, s.category,
	s.capacity, s.min_capacity, s.location_value, s.address, s.city, s.state, s.postal_code, s.country,
	s.latitude, s.longitude, s.square_footage, s.ceiling_height, s.amenities, s.equipment,
	s.instant_booking, s.requires_approval, s.min_booking_hours, s.max_booking_hours,
	s.cancellation_policy, s.rules, s.is_active, s.verified, s.created_at, s.updated_at`

// hourlyPriceExpr selects the regular hourly rate of the space aliased as s.
const hourlyPriceExpr = `(SELECT p.price FROM pricing_tiers p
	WHERE p.space_id = s.id AND p.pricing_type = 'HOURLY' AND p.is_peak_price = 0
	ORDER BY p.position LIMIT 1)`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSpace(row rowScanner, extra ...interface{}) (*models.Space, error) {
	var (
		s                                  models.Space
		images, amenities, equipment, rule string
		lat, lng, ceiling                  sql.NullFloat64
		sqft                               sql.NullInt64
		created, updated                   string
	)
	dest := []interface{}{
		&s.ID, &s.UserID, &s.Title, &s.Description, &s.ImageSrc, &images, &s.SpaceType, &s.Category,
		&s.Capacity, &s.MinCapacity, &s.LocationValue, &s.Address, &s.City, &s.State, &s.PostalCode, &s.Country,
		&lat, &lng, &sqft, &ceiling, &amenities, &equipment,
		&s.InstantBooking, &s.RequiresApproval, &s.MinBookingHours, &s.MaxBookingHours,
		&s.CancellationPolicy, &rule, &s.IsActive, &s.Verified, &created, &updated,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	s.Images = decodeList(images)
	s.Amenities = decodeList(amenities)
	s.Equipment = decodeList(equipment)
	s.Rules = decodeList(rule)
	if lat.Valid {
		s.Latitude = &lat.Float64
	}
	if lng.Valid {
		s.Longitude = &lng.Float64
	}
	if ceiling.Valid {
		s.CeilingHeight = &ceiling.Float64
	}
	if sqft.Valid {
		v := int(sqft.Int64)
		s.SquareFootage = &v
	}

	var err error
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &s, nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// CreateSpace inserts the space with its pricing tiers and business hours.
func (db *DB) CreateSpace(ctx context.Context, space *models.Space) error {
	if space.ID == "" {
		space.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO spaces (
				id, user_id, title, description, image_src, images, space_type, category,
				capacity, min_capacity, location_value, address, city, state, postal_code, country,
				latitude, longitude, square_footage, ceiling_height, amenities, equipment,
				instant_booking, requires_approval, min_booking_hours, max_booking_hours,
				cancellation_policy, rules, is_active, verified, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.ExecContext(ctx, query,
			space.ID, space.UserID, space.Title, space.Description, space.ImageSrc, encodeList(space.Images),
			space.SpaceType, space.Category,
			space.Capacity, space.MinCapacity, space.LocationValue, space.Address, space.City, space.State,
			space.PostalCode, space.Country,
			nullableFloat(space.Latitude), nullableFloat(space.Longitude), nullableInt(space.SquareFootage),
			nullableFloat(space.CeilingHeight), encodeList(space.Amenities), encodeList(space.Equipment),
			space.InstantBooking, space.RequiresApproval, space.MinBookingHours, space.MaxBookingHours,
			space.CancellationPolicy, encodeList(space.Rules), space.IsActive, space.Verified,
			formatTime(now), formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("failed to insert space: %w", err)
		}
		if err := insertPricing(ctx, tx, space.ID, space.Pricing); err != nil {
			return err
		}
		return insertBusinessHours(ctx, tx, space.ID, space.BusinessHours)
	})
	if err != nil {
		return err
	}

	space.CreatedAt = now
	space.UpdatedAt = now
	return nil
}

func insertPricing(ctx context.Context, tx *sql.Tx, spaceID string, tiers []models.PricingTier) error {
	query := `INSERT INTO pricing_tiers (
			id, space_id, position, pricing_type, price, currency, is_peak_price,
			peak_days, peak_hours, cleaning_fee, service_fee, overtime_fee
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range tiers {
		t := &tiers[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Currency == "" {
			t.Currency = models.DefaultCurrency
		}
		t.SpaceID = spaceID
		if _, err := tx.ExecContext(ctx, query,
			t.ID, spaceID, i, t.PricingType, t.Price, t.Currency, t.IsPeakPrice,
			encodeList(t.PeakDays), t.PeakHours, t.CleaningFee, t.ServiceFee, t.OvertimeFee,
		); err != nil {
			return fmt.Errorf("failed to insert pricing tier: %w", err)
		}
	}
	return nil
}

func insertBusinessHours(ctx context.Context, tx *sql.Tx, spaceID string, hours []models.BusinessHour) error {
	query := `INSERT INTO business_hours (id, space_id, day_of_week, open_time, close_time, is_closed)
		VALUES (?, ?, ?, ?, ?, ?)`
	for i := range hours {
		h := &hours[i]
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		h.SpaceID = spaceID
		if _, err := tx.ExecContext(ctx, query, h.ID, spaceID, h.DayOfWeek, h.OpenTime, h.CloseTime, h.IsClosed); err != nil {
			return fmt.Errorf("failed to insert business hours: %w", err)
		}
	}
	return nil
}

// GetSpace loads a space with its pricing and business hours, active or not.
func (db *DB) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	row := db.QueryRowContext(ctx, `SELECT `+spaceColumns+` FROM spaces s WHERE s.id = ?`, id)
	space, err := scanSpace(row)
	if err != nil {
		return nil, notFound(err)
	}

	pricing, err := db.loadPricing(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	space.Pricing = pricing[id]

	if space.BusinessHours, err = db.loadBusinessHours(ctx, id); err != nil {
		return nil, err
	}
	return space, nil
}

func (db *DB) loadPricing(ctx context.Context, spaceIDs []string) (map[string][]models.PricingTier, error) {
	out := make(map[string][]models.PricingTier, len(spaceIDs))
	if len(spaceIDs) == 0 {
		return out, nil
	}

	query := `SELECT id, space_id, pricing_type, price, currency, is_peak_price, peak_days, peak_hours,
			cleaning_fee, service_fee, overtime_fee
		FROM pricing_tiers WHERE space_id IN (` + placeholders(len(spaceIDs)) + `) ORDER BY space_id, position`
	rows, err := db.QueryContext(ctx, query, stringArgs(spaceIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t        models.PricingTier
			peakDays string
		)
		if err := rows.Scan(&t.ID, &t.SpaceID, &t.PricingType, &t.Price, &t.Currency, &t.IsPeakPrice,
			&peakDays, &t.PeakHours, &t.CleaningFee, &t.ServiceFee, &t.OvertimeFee); err != nil {
			return nil, fmt.Errorf("failed to scan pricing tier: %w", err)
		}
		t.PeakDays = decodeList(peakDays)
		out[t.SpaceID] = append(out[t.SpaceID], t)
	}
	return out, rows.Err()
}

func (db *DB) loadBusinessHours(ctx context.Context, spaceID string) ([]models.BusinessHour, error) {
	query := `SELECT id, space_id, day_of_week, open_time, close_time, is_closed FROM business_hours
		WHERE space_id = ?
		ORDER BY CASE day_of_week
			WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3 WHEN 'THURSDAY' THEN 4
			WHEN 'FRIDAY' THEN 5 WHEN 'SATURDAY' THEN 6 ELSE 7 END`
	rows, err := db.QueryContext(ctx, query, spaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load business hours: %w", err)
	}
	defer rows.Close()

	hours := []models.BusinessHour{}
	for rows.Next() {
		var h models.BusinessHour
		if err := rows.Scan(&h.ID, &h.SpaceID, &h.DayOfWeek, &h.OpenTime, &h.CloseTime, &h.IsClosed); err != nil {
			return nil, fmt.Errorf("failed to scan business hours: %w", err)
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// UpdateSpace writes every scalar column of space. Pricing and business
// hours are replaced wholesale when the matching flag is set.
func (db *DB) UpdateSpace(ctx context.Context, space *models.Space, replacePricing, replaceHours bool) error {
	now := time.Now().UTC()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE spaces SET
				title = ?, description = ?, image_src = ?, images = ?, space_type = ?, category = ?,
				capacity = ?, min_capacity = ?, location_value = ?, address = ?, city = ?, state = ?,
				postal_code = ?, country = ?, latitude = ?, longitude = ?, square_footage = ?,
				ceiling_height = ?, amenities = ?, equipment = ?, instant_booking = ?, requires_approval = ?,
				min_booking_hours = ?, max_booking_hours = ?, cancellation_policy = ?, rules = ?,
				is_active = ?, verified = ?, updated_at = ?
			WHERE id = ?`
		result, err := tx.ExecContext(ctx, query,
			space.Title, space.Description, space.ImageSrc, encodeList(space.Images), space.SpaceType, space.Category,
			space.Capacity, space.MinCapacity, space.LocationValue, space.Address, space.City, space.State,
			space.PostalCode, space.Country, nullableFloat(space.Latitude), nullableFloat(space.Longitude),
			nullableInt(space.SquareFootage), nullableFloat(space.CeilingHeight), encodeList(space.Amenities),
			encodeList(space.Equipment), space.InstantBooking, space.RequiresApproval,
			space.MinBookingHours, space.MaxBookingHours, space.CancellationPolicy, encodeList(space.Rules),
			space.IsActive, space.Verified, formatTime(now),
			space.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update space: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return ErrNotFound
		}

		if replacePricing {
			if _, err := tx.ExecContext(ctx, `DELETE FROM pricing_tiers WHERE space_id = ?`, space.ID); err != nil {
				return fmt.Errorf("failed to clear pricing: %w", err)
			}
			for i := range space.Pricing {
				space.Pricing[i].ID = ""
			}
			if err := insertPricing(ctx, tx, space.ID, space.Pricing); err != nil {
				return err
			}
		}
		if replaceHours {
			if _, err := tx.ExecContext(ctx, `DELETE FROM business_hours WHERE space_id = ?`, space.ID); err != nil {
				return fmt.Errorf("failed to clear business hours: %w", err)
			}
			for i := range space.BusinessHours {
				space.BusinessHours[i].ID = ""
			}
			if err := insertBusinessHours(ctx, tx, space.ID, space.BusinessHours); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	space.UpdatedAt = now
	return nil
}

// SoftDeleteSpace hides the space from search and blocks new bookings.
func (db *DB) SoftDeleteSpace(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `UPDATE spaces SET is_active = 0, updated_at = ? WHERE id = ?`, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// HasActiveBookings reports whether a pending or approved booking has not yet ended.
func (db *DB) HasActiveBookings(ctx context.Context, spaceID string, now time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM bookings
		WHERE space_id = ? AND status IN (?, ?) AND end_date_time >= ?`
	var count int
	err := db.QueryRowContext(ctx, query, spaceID, models.StatusPending, models.StatusApproved, formatTime(now)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return count > 0, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes user input match literally inside a LIKE pattern escaped with '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// SearchSpaces returns active spaces matching f, newest first.
func (db *DB) SearchSpaces(ctx context.Context, f models.SpaceFilter) ([]*models.SpaceSummary, error) {
	where := []string{"s.is_active = 1"}
	var args []interface{}

	add := func(clause string, a ...interface{}) {
		where = append(where, clause)
		args = append(args, a...)
	}

	if f.UserID != "" {
		add("s.user_id = ?", f.UserID)
	}
	if f.SpaceType != "" {
		add("s.space_type = ?", f.SpaceType)
	}
	if f.Category != "" {
		add("s.category = ?", f.Category)
	}
	if f.LocationValue != "" {
		add("s.location_value = ?", f.LocationValue)
	}
	if f.City != "" {
		add(`LOWER(s.city) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(f.City))+"%")
	}
	if f.MinCapacity > 0 {
		add("s.capacity >= ?", f.MinCapacity)
	}
	if f.MaxCapacity > 0 {
		add("s.capacity <= ?", f.MaxCapacity)
	}
	if f.InstantBooking != nil {
		add("s.instant_booking = ?", *f.InstantBooking)
	}
	for _, amenity := range f.Amenities {
		add("EXISTS (SELECT 1 FROM json_each(s.amenities) WHERE json_each.value = ?)", amenity)
	}
	if f.StartDateTime != nil && f.EndDateTime != nil {
		add(`NOT EXISTS (SELECT 1 FROM bookings b
				WHERE b.space_id = s.id AND b.status IN (?, ?, ?)
				AND b.start_date_time < ? AND b.end_date_time > ?)`,
			models.StatusPending, models.StatusApproved, models.StatusCompleted,
			formatTime(*f.EndDateTime), formatTime(*f.StartDateTime))
	}
	if f.MinPrice != nil {
		add(hourlyPriceExpr+" >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add(hourlyPriceExpr+" <= ?", *f.MaxPrice)
	}

	query := `SELECT ` + spaceColumns + `,
			(SELECT AVG(r.rating) FROM reviews r WHERE r.space_id = s.id),
			(SELECT COUNT(*) FROM reviews r WHERE r.space_id = s.id),
			(SELECT COUNT(*) FROM bookings b WHERE b.space_id = s.id),
			` + hourlyPriceExpr + `
		FROM spaces s
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY s.created_at DESC, s.rowid DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search spaces: %w", err)
	}
	defer rows.Close()

	results := []*models.SpaceSummary{}
	var ids []string
	for rows.Next() {
		var (
			avg, basePrice sql.NullFloat64
			reviewCount    int
			bookingCount   int
		)
		space, err := scanSpace(rows, &avg, &reviewCount, &bookingCount, &basePrice)
		if err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		summary := &models.SpaceSummary{Space: *space, ReviewCount: reviewCount, BookingCount: bookingCount}
		if avg.Valid {
			v := avg.Float64
			summary.AverageRating = &v
		}
		if basePrice.Valid {
			v := basePrice.Float64
			summary.BasePrice = &v
		}
		results = append(results, summary)
		ids = append(ids, space.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	pricing, err := db.loadPricing(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		r.Pricing = pricing[r.ID]
	}
	return results, nil
}

// ListSpacesByOwner returns the owner's active listings.
func (db *DB) ListSpacesByOwner(ctx context.Context, ownerID string) ([]*models.SpaceSummary, error) {
	if ownerID == "" {
		return []*models.SpaceSummary{}, nil
	}
	return db.SearchSpaces(ctx, models.SpaceFilter{UserID: ownerID})
}
