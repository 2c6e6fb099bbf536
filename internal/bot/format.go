package bot

import (
	"fmt"
	"strings"

	"spacehub/internal/models"
)

const helpText = `spacehub host bot

/link CODE - connect this chat to your account
/pending - requests waiting for your answer
/upcoming - bookings on your spaces in the next 7 days
/trips - your own upcoming bookings`

const timeLayout = "Mon 02 Jan 15:04"

func describeBooking(b *models.Booking) string {
	title := b.SpaceID
	if b.Space != nil && b.Space.Title != "" {
		title = b.Space.Title
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s - %s\n", title, b.StartDateTime.Format(timeLayout), b.EndDateTime.Format("15:04"))
	fmt.Fprintf(&sb, "%d attendees, $%.2f", b.AttendeeCount, b.TotalPrice)
	if b.EventType != "" {
		fmt.Fprintf(&sb, "\nEvent: %s", b.EventType)
	}
	if b.SpecialRequests != "" {
		fmt.Fprintf(&sb, "\nNotes: %s", b.SpecialRequests)
	}
	return sb.String()
}

func bookingList(header, empty string, bookings []*models.Booking) string {
	if len(bookings) == 0 {
		return empty
	}
	var sb strings.Builder
	sb.WriteString(header)
	for _, b := range bookings {
		sb.WriteString("\n\n")
		sb.WriteString(describeBooking(b))
		sb.WriteString("\nStatus: ")
		sb.WriteString(b.Status)
	}
	return sb.String()
}
