package service

import (
	"math"
	"time"
)

// WaitingPeriod is the federal cooling-off period between the buyer's signed
// receipt and the first sales conversation.
const WaitingPeriod = 14 * 24 * time.Hour

// EligibleDate is the moment the waiting period ends.
func EligibleDate(receiptSignedAt time.Time) time.Time {
	return receiptSignedAt.Add(WaitingPeriod)
}

// DaysRemaining rounds up to whole days. It is -1 when no receipt was signed
// and never drops below zero once the period is over.
func DaysRemaining(receiptSignedAt *time.Time, now time.Time) int {
	if receiptSignedAt == nil {
		return -1
	}
	left := EligibleDate(*receiptSignedAt).Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

func IsSalesEligible(receiptSignedAt *time.Time, now time.Time) bool {
	if receiptSignedAt == nil {
		return false
	}
	return !now.Before(EligibleDate(*receiptSignedAt))
}
