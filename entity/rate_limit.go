package entity

import "time"

// ThrottleRecord tracks one identity for the minimum-interval / hourly / daily throttle.
type ThrottleRecord struct {
	LastRequestAt   time.Time `json:"last_request_at"`
	HourWindowStart time.Time `json:"hour_window_start"`
	HourCount       int       `json:"hour_count"`
	DayWindowStart  time.Time `json:"day_window_start"`
	DayCount        int       `json:"day_count"`
}

// WindowRecord is a fixed-window counter.
type WindowRecord struct {
	WindowStart time.Time `json:"window_start"`
	Count       int       `json:"count"`
}

// ResetAt returns when the window rolls over.
func (r WindowRecord) ResetAt(window time.Duration) time.Time {
	return r.WindowStart.Add(window)
}
