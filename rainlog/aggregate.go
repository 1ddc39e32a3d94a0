package rainlog

import (
	"math"
	"slices"
	"strings"
	"time"
)

// DailyTotal is the rainfall of one calendar day.
type DailyTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// LocationSummary is the rainfall of one location over a month.
type LocationSummary struct {
	Location string       `json:"location"`
	Total    float64      `json:"total"`
	Logs     int          `json:"logs"`
	Days     []DailyTotal `json:"days"`
}

// TotalRainfall sums the measurements and rounds to two decimals.
func TotalRainfall(logs []RainLog) float64 {
	var sum float64
	for _, l := range logs {
		sum += l.Measurement
	}
	return round2(sum)
}

// GroupByDay totals the logs per calendar day, ordered by date ascending.
// Days without logs are absent.
func GroupByDay(logs []RainLog) []DailyTotal {
	byDay := make(map[string]*DailyTotal)
	for _, l := range logs {
		day := l.Day()
		dt, ok := byDay[day]
		if !ok {
			dt = &DailyTotal{Date: day}
			byDay[day] = dt
		}
		dt.Total += l.Measurement
		dt.Count++
	}

	out := make([]DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		dt.Total = round2(dt.Total)
		out = append(out, *dt)
	}
	slices.SortFunc(out, func(a, b DailyTotal) int {
		return strings.Compare(a.Date, b.Date)
	})
	return out
}

// MonthRange returns the first and last day of a month as YYYY-MM-DD.
func MonthRange(year int, month time.Month) (from, to string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout)
}

// DaysInMonth returns the number of days in a month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Summarize builds the summary of one location's logs.
func Summarize(location string, logs []RainLog) LocationSummary {
	return LocationSummary{
		Location: location,
		Total:    TotalRainfall(logs),
		Logs:     len(logs),
		Days:     GroupByDay(logs),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
