package lifecycle

import "time"

// ExpiryCategory buckets items by urgency for FEFO ordering and dashboards.
type ExpiryCategory string

const (
	ExpiryExpired  ExpiryCategory = "expired"
	ExpiryCritical ExpiryCategory = "critical"
	ExpiryWarning  ExpiryCategory = "warning"
	ExpiryCaution  ExpiryCategory = "caution"
	ExpiryNormal   ExpiryCategory = "normal"
)

// DaysRemaining is the whole-day difference between the expiry date and today,
// ignoring the time-of-day portion of both.
func DaysRemaining(expiry, today time.Time) int {
	e := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(t).Hours() / 24)
}

// ClassifyExpiry maps days remaining to an urgency bucket:
// <0 expired, <3 critical, <7 warning, <14 caution, otherwise normal.
func ClassifyExpiry(daysRemaining int) ExpiryCategory {
	switch {
	case daysRemaining < 0:
		return ExpiryExpired
	case daysRemaining < 3:
		return ExpiryCritical
	case daysRemaining < 7:
		return ExpiryWarning
	case daysRemaining < 14:
		return ExpiryCaution
	default:
		return ExpiryNormal
	}
}
