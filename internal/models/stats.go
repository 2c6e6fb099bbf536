package models

// SpaceStats is one dashboard row for an owned space.
type SpaceStats struct {
	SpaceID         string  `json:"spaceId"`
	Title           string  `json:"title"`
	PendingBookings int     `json:"pendingBookings"`
	TotalBookings   int     `json:"totalBookings"`
	MonthlyRevenue  float64 `json:"monthlyRevenue"`
	AverageRating   float64 `json:"averageRating"`
}

// DashboardStats is the owner overview: per-space rows plus totals.
type DashboardStats struct {
	Spaces          []SpaceStats `json:"spaces"`
	TotalSpaces     int          `json:"totalSpaces"`
	PendingBookings int          `json:"pendingBookings"`
	TotalBookings   int          `json:"totalBookings"`
	MonthlyRevenue  float64      `json:"monthlyRevenue"`
}

type Analytics struct {
	Timeframe           string             `json:"timeframe"`
	TotalRevenue        float64            `json:"totalRevenue"`
	TotalBookings       int                `json:"totalBookings"`
	CompletedBookings   int                `json:"completedBookings"`
	CancelledBookings   int                `json:"cancelledBookings"`
	TotalHours          float64            `json:"totalHours"`
	AverageBookingValue float64            `json:"averageBookingValue"`
	OccupancyRate       float64            `json:"occupancyRate"`
	CancellationRate    float64            `json:"cancellationRate"`
	AverageRating       float64            `json:"averageRating"`
	BySpace             []SpacePerformance `json:"bySpace"`
}

type SpacePerformance struct {
	SpaceID  string  `json:"spaceId"`
	Title    string  `json:"title"`
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
	Hours    float64 `json:"hours"`
}
