// Package export builds the host's bookings workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"spacehub/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	BookingsSheet = "Bookings"
	InvoicesSheet = "Invoices"

	dateLayout = "2006-01-02 15:04"
)

var (
	bookingHeaders = []string{"ID", "Space", "Guest", "Start", "End", "Hours", "Attendees", "Status", "Payment", "Total"}
	invoiceHeaders = []string{"Number", "Booking", "Billing name", "Total", "Status", "Issued", "Due", "Paid"}
)

// Workbook wraps the generated file.
type Workbook struct {
	f *excelize.File
}

// BookingsWorkbook lays out bookings and invoices of the period [from, to] on two sheets.
func BookingsWorkbook(bookings []*models.Booking, invoices []*models.Invoice, from, to time.Time) (*Workbook, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", BookingsSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(InvoicesSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}

	period := fmt.Sprintf("Period: %s - %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	for _, sheet := range []string{BookingsSheet, InvoicesSheet} {
		_ = f.SetCellValue(sheet, "A1", period)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	writeHeader(f, BookingsSheet, bookingHeaders, headerStyle)
	writeHeader(f, InvoicesSheet, invoiceHeaders, headerStyle)
	_ = f.SetCellStyle(BookingsSheet, "A1", "A1", titleStyle)
	_ = f.SetCellStyle(InvoicesSheet, "A1", "A1", titleStyle)

	for i, b := range bookings {
		row := i + 3
		space, guest := "", ""
		if b.Space != nil {
			space = b.Space.Title
		}
		if b.User != nil {
			guest = b.User.DisplayName()
		}
		writeRow(f, BookingsSheet, row, []interface{}{
			b.ID, space, guest,
			b.StartDateTime.Format(dateLayout), b.EndDateTime.Format(dateLayout),
			b.TotalHours, b.AttendeeCount, b.Status, b.PaymentStatus, b.TotalPrice,
		})
	}

	for i, inv := range invoices {
		row := i + 3
		paid := ""
		if inv.PaidAt != nil {
			paid = inv.PaidAt.Format(dateLayout)
		}
		writeRow(f, InvoicesSheet, row, []interface{}{
			inv.InvoiceNumber, inv.BookingID, inv.BillingName, inv.Total, inv.Status,
			inv.IssuedAt.Format(dateLayout), inv.DueDate.Format(dateLayout), paid,
		})
	}

	_ = f.SetColWidth(BookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(BookingsSheet, "B", "C", 25)
	_ = f.SetColWidth(BookingsSheet, "D", "E", 18)
	_ = f.SetColWidth(BookingsSheet, "F", "J", 12)
	_ = f.SetColWidth(InvoicesSheet, "A", "C", 30)
	_ = f.SetColWidth(InvoicesSheet, "D", "H", 18)

	return &Workbook{f: f}, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 2)
	_ = f.SetCellStyle(sheet, "A2", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

// File exposes the underlying workbook.
func (w *Workbook) File() *excelize.File {
	return w.f
}

func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.f.WriteTo(out)
}

func (w *Workbook) Close() error {
	return w.f.Close()
}
