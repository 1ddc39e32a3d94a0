package rainlog

import "time"

// DateLayout is the calendar-day format used by filters and grouping.
const DateLayout = time.DateOnly

// RainLog is one rainfall measurement as stored by the backend.
type RainLog struct {
	ID          string           `json:"_id"`
	Date        string           `json:"date"`
	Records     []map[string]any `json:"records"`
	Measurement float64          `json:"measurement"`
	RealReading bool             `json:"realReading"`
	Location    string           `json:"location"`
	Timestamp   string           `json:"timestamp"`
	LoggedBy    string           `json:"loggedBy"`
}

// Day returns the calendar day of the log as YYYY-MM-DD. Dates may carry
// a time part ("2026-01-05T00:00:00.000Z"); it is dropped.
func (l RainLog) Day() string {
	if len(l.Date) >= len(DateLayout) {
		return l.Date[:len(DateLayout)]
	}
	return l.Date
}

// Envelope is the JSON wrapper every rainlogger reply uses.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// ListData is the payload of a filter query.
type ListData struct {
	RainLogs []RainLog `json:"rainlogs"`
}

// ItemData is the payload of a create or update.
type ItemData struct {
	RainLog RainLog `json:"rainlog"`
}

// NewRainLog is the body of a create request.
type NewRainLog struct {
	Date        string  `json:"date" validate:"required,isodate"`
	Measurement float64 `json:"measurement" validate:"gte=0,decimals2"`
	Location    string  `json:"location" validate:"required"`
	RealReading bool    `json:"realReading"`
}

// Update is the body of an update request. Only the measurement and the
// real-reading flag of an existing log can change.
type Update struct {
	ID          string  `json:"_id" validate:"required"`
	Measurement float64 `json:"measurement" validate:"gte=0,decimals2"`
	RealReading bool    `json:"realReading"`
}

// MonthFilter selects the logs of one location in one calendar month.
type MonthFilter struct {
	Year        int        `json:"year" validate:"gte=1970"`
	Month       time.Month `json:"month" validate:"gte=1,lte=12"`
	Location    string     `json:"location" validate:"required"`
	RealReading bool       `json:"realReading"`
}

// DayFilter selects the logs of one location on one day.
type DayFilter struct {
	Date        string `json:"date" validate:"required,isodate"`
	Location    string `json:"location" validate:"required"`
	RealReading bool   `json:"realReading"`
}
