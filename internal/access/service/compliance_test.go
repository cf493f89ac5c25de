package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsSalesEligible(t *testing.T) {
	signed := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "just signed", at: signed, want: false},
		{name: "13 days 23 hours", at: signed.Add(13*24*time.Hour + 23*time.Hour), want: false},
		{name: "exactly 14 days", at: signed.Add(14 * 24 * time.Hour), want: true},
		{name: "long after", at: signed.Add(60 * 24 * time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSalesEligible(&signed, tt.at))
		})
	}

	assert.False(t, IsSalesEligible(nil, signed))
}

func TestDaysRemaining(t *testing.T) {
	signed := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, -1, DaysRemaining(nil, signed))
	assert.Equal(t, 14, DaysRemaining(&signed, signed))
	assert.Equal(t, 14, DaysRemaining(&signed, signed.Add(time.Minute)))
	assert.Equal(t, 1, DaysRemaining(&signed, signed.Add(13*24*time.Hour+23*time.Hour)))
	assert.Equal(t, 0, DaysRemaining(&signed, signed.Add(14*24*time.Hour)))
	assert.Equal(t, 0, DaysRemaining(&signed, signed.Add(30*24*time.Hour)))
}

func TestEligibleDate(t *testing.T) {
	signed := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 15, 9, 30, 0, 0, time.UTC), EligibleDate(signed))
}
