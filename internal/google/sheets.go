package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"spacehub/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	bookingsTab   = "Bookings"
	lastColumn    = "O"
	statusColumn  = "L"
	updatedColumn = "O"
	sheetTime     = "2006-01-02 15:04"
)

var ErrRowNotFound = errors.New("booking row not found")

var timeNow = time.Now

var bookingHeader = []interface{}{
	"ID", "Space ID", "Space", "Guest ID", "Guest", "Start", "End", "Hours",
	"Attendees", "Pricing", "Total", "Status", "Payment", "Created At", "Updated At",
}

// BookingsSheet mirrors bookings into one tab of a spreadsheet, one row per booking.
type BookingsSheet struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
	logger        *zerolog.Logger
}

// NewBookingsSheet authenticates with a service account key file.
func NewBookingsSheet(ctx context.Context, credentialsFile, spreadsheetID string, logger *zerolog.Logger) (*BookingsSheet, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newBookingsSheet(srv, spreadsheetID, logger), nil
}

func newBookingsSheet(srv *sheets.Service, spreadsheetID string, logger *zerolog.Logger) *BookingsSheet {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingsSheet{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
		logger:        logger,
	}
}

// EnsureHeader writes the header row and primes the row cache.
func (s *BookingsSheet) EnsureHeader(ctx context.Context) error {
	rangeData := fmt.Sprintf("%s!A1:%s1", bookingsTab, lastColumn)
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{bookingHeader},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return s.WarmUpCache(ctx)
}

// WarmUpCache rebuilds the booking id -> row index from column A.
func (s *BookingsSheet) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsTab+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	rows := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		// row 1 is the header
		if i == 0 || len(row) == 0 {
			continue
		}
		if id := cellString(row[0]); id != "" {
			rows[id] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = rows
	s.cacheMu.Unlock()
	s.logger.Debug().Int("rows", len(rows)).Msg("bookings sheet cache warmed")
	return nil
}

// UpsertBooking rewrites the booking's row, appending one when it has none yet.
func (s *BookingsSheet) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return errors.New("booking is nil")
	}

	rowIdx, err := s.FindBookingRow(ctx, booking.ID)
	if errors.Is(err, ErrRowNotFound) {
		return s.appendBooking(ctx, booking)
	}
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", bookingsTab, rowIdx, lastColumn, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *BookingsSheet) appendBooking(ctx context.Context, booking *models.Booking) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, bookingsTab+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return err
	}
	if resp.Updates != nil {
		if row, ok := firstRow(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(booking.ID, row)
		}
	}
	return nil
}

// UpdateBookingStatus touches only the status and updated-at cells.
func (s *BookingsSheet) UpdateBookingStatus(ctx context.Context, bookingID, status string) error {
	rowIdx, err := s.FindBookingRow(ctx, bookingID)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{
				Range:  fmt.Sprintf("%s!%s%d", bookingsTab, statusColumn, rowIdx),
				Values: [][]interface{}{{status}},
			},
			{
				Range:  fmt.Sprintf("%s!%s%d", bookingsTab, updatedColumn, rowIdx),
				Values: [][]interface{}{{timeNow().Format(sheetTime)}},
			},
		},
	}
	_, err = s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

// DeleteBooking clears the booking's row. A booking that never reached the sheet is not an error.
func (s *BookingsSheet) DeleteBooking(ctx context.Context, bookingID string) error {
	rowIdx, err := s.FindBookingRow(ctx, bookingID)
	if errors.Is(err, ErrRowNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", bookingsTab, rowIdx, lastColumn, rowIdx)
	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, rangeData, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err == nil {
		s.deleteCachedRow(bookingID)
	}
	return err
}

// FindBookingRow returns the 1-based row of bookingID, scanning column A on a cache miss.
func (s *BookingsSheet) FindBookingRow(ctx context.Context, bookingID string) (int, error) {
	if bookingID == "" {
		return 0, errors.New("booking id is required")
	}
	if row, ok := s.getCachedRow(bookingID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsTab+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if cellString(row[0]) == bookingID {
			rowIdx := i + 1
			s.setCachedRow(bookingID, rowIdx)
			return rowIdx, nil
		}
	}
	return 0, ErrRowNotFound
}

func (s *BookingsSheet) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *BookingsSheet) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *BookingsSheet) deleteCachedRow(id string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}

func bookingRowValues(b *models.Booking) []interface{} {
	spaceTitle, guestName := "", ""
	if b.Space != nil {
		spaceTitle = b.Space.Title
	}
	if b.User != nil {
		guestName = b.User.DisplayName()
	}
	return []interface{}{
		b.ID,
		b.SpaceID,
		spaceTitle,
		b.UserID,
		guestName,
		b.StartDateTime.UTC().Format(sheetTime),
		b.EndDateTime.UTC().Format(sheetTime),
		b.TotalHours,
		b.AttendeeCount,
		b.PricingType,
		b.TotalPrice,
		b.Status,
		b.PaymentStatus,
		b.CreatedAt.UTC().Format(sheetTime),
		b.UpdatedAt.UTC().Format(sheetTime),
	}
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

var rangeRowRe = regexp.MustCompile(`![A-Z]+(\d+)`)

// firstRow extracts the starting row from an A1 range such as "Bookings!A10:O10".
func firstRow(a1 string) (int, bool) {
	m := rangeRowRe.FindStringSubmatch(a1)
	if m == nil {
		return 0, false
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return row, true
}
