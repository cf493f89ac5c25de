package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		region string
		want   string
		ok     bool
	}{
		{"us national", "(415) 555-2671", "", "+14155552671", true},
		{"already e164", "+44 20 7946 0958", "", "+442079460958", true},
		{"explicit region", "020 7946 0958", "GB", "+442079460958", true},
		{"garbage kept", " call me ", "", "call me", false},
		{"empty", "  ", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in, tt.region)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNormalizeE164(t *testing.T) {
	assert.Equal(t, "+14155552671", NormalizeE164("415-555-2671"))
	assert.Equal(t, "12", NormalizeE164(" 12 "))
}
