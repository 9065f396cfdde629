package lifecycle

import (
	"testing"
	"time"
)

func TestClassifyExpiryBoundaries(t *testing.T) {
	cases := []struct {
		days int
		want ExpiryCategory
	}{
		{-10, ExpiryExpired},
		{-1, ExpiryExpired},
		{0, ExpiryCritical},
		{2, ExpiryCritical},
		{3, ExpiryWarning},
		{6, ExpiryWarning},
		{7, ExpiryCaution},
		{10, ExpiryCaution},
		{13, ExpiryCaution},
		{14, ExpiryNormal},
		{20, ExpiryNormal},
	}

	for _, tc := range cases {
		if got := ClassifyExpiry(tc.days); got != tc.want {
			t.Fatalf("ClassifyExpiry(%d) = %s, want %s", tc.days, got, tc.want)
		}
	}
}

func TestDaysRemainingIgnoresTimeOfDay(t *testing.T) {
	today := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	expiry := time.Date(2025, 3, 12, 0, 1, 0, 0, time.UTC)
	if got := DaysRemaining(expiry, today); got != 2 {
		t.Fatalf("DaysRemaining = %d, want 2", got)
	}

	past := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	if got := DaysRemaining(past, today); got != -1 {
		t.Fatalf("DaysRemaining for past date = %d, want -1", got)
	}
}
