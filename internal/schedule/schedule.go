package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"spacehub/internal/models"
)

// Weekdays in the form stored in business_hours.day_of_week.
var weekdayNames = map[time.Weekday]string{
	time.Monday:    "MONDAY",
	time.Tuesday:   "TUESDAY",
	time.Wednesday: "WEDNESDAY",
	time.Thursday:  "THURSDAY",
	time.Friday:    "FRIDAY",
	time.Saturday:  "SATURDAY",
	time.Sunday:    "SUNDAY",
}

// WeekdayName returns the upper-case day name used by business hours.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

// IsValidDay reports whether s names a weekday.
func IsValidDay(s string) bool {
	for _, name := range weekdayNames {
		if name == s {
			return true
		}
	}
	return false
}

// ParseClock parses "HH:MM" into minutes since midnight. "24:00" is accepted as end of day.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time out of range %q", s)
	}
	return h*60 + m, nil
}

// HoursFor returns the business hours entry for the weekday, or nil.
func HoursFor(hours []models.BusinessHour, day time.Weekday) *models.BusinessHour {
	name := WeekdayName(day)
	for i := range hours {
		if hours[i].DayOfWeek == name {
			return &hours[i]
		}
	}
	return nil
}

// Window returns the open and close instants of bh on the calendar day of date.
func Window(date time.Time, bh *models.BusinessHour) (openAt, closeAt time.Time, ok bool) {
	if bh == nil || bh.IsClosed {
		return time.Time{}, time.Time{}, false
	}
	openMin, err := ParseClock(bh.OpenTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	closeMin, err := ParseClock(bh.CloseTime)
	if err != nil || closeMin <= openMin {
		return time.Time{}, time.Time{}, false
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return day.Add(time.Duration(openMin) * time.Minute), day.Add(time.Duration(closeMin) * time.Minute), true
}

// Overlaps is the half-open interval test: back-to-back windows do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Slots lists hourly slots for the day of date. Slots that have started
// or collide with an active booking are marked unavailable.
func Slots(date time.Time, hours []models.BusinessHour, bookings []*models.Booking, now time.Time) []models.TimeSlot {
	open, closeAt, ok := Window(date, HoursFor(hours, date.Weekday()))
	if !ok {
		return []models.TimeSlot{}
	}

	var slots []models.TimeSlot
	for start := open; start.Before(closeAt); start = start.Add(time.Hour) {
		end := start.Add(time.Hour)
		if end.After(closeAt) {
			end = closeAt
		}

		available := !start.Before(now)
		if available {
			for _, b := range bookings {
				if b.IsActive() && Overlaps(start, end, b.StartDateTime, b.EndDateTime) {
					available = false
					break
				}
			}
		}

		slots = append(slots, models.TimeSlot{
			Start:     start.Format("15:04"),
			End:       end.Format("15:04"),
			StartTime: start,
			EndTime:   end,
			Available: available,
		})
	}
	return slots
}

// WithinBusinessHours reports whether [start, end) sits inside the open window
// of start's day. Spaces without configured hours accept any window.
func WithinBusinessHours(start, end time.Time, hours []models.BusinessHour) bool {
	if len(hours) == 0 {
		return true
	}
	open, closeAt, ok := Window(start, HoursFor(hours, start.Weekday()))
	if !ok {
		return false
	}
	return !start.Before(open) && !end.After(closeAt)
}

// DefaultBusinessHours is 09:00-17:00 on weekdays, closed at weekends.
func DefaultBusinessHours() []models.BusinessHour {
	days := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	out := make([]models.BusinessHour, 0, len(days))
	for _, d := range days {
		weekend := d == time.Saturday || d == time.Sunday
		out = append(out, models.BusinessHour{
			DayOfWeek: WeekdayName(d),
			OpenTime:  "09:00",
			CloseTime: "17:00",
			IsClosed:  weekend,
		})
	}
	return out
}
