package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Jane   Doe ", "Jane Doe"},
		{"<b>Acme</b> Franchising", "Acme Franchising"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;Hi", "alert(1)Hi"},
		{"Smith &amp; Sons", "Smith & Sons"},
		{"line\none\ttab", "line one tab"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Text(tt.in), tt.in)
	}
}

func TestOptional(t *testing.T) {
	assert.Nil(t, Optional(nil))
	blank := " <br> "
	assert.Nil(t, Optional(&blank))
	v := " trade show "
	got := Optional(&v)
	if assert.NotNil(t, got) {
		assert.Equal(t, "trade show", *got)
	}
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", Email("  Jane@Example.COM "))
}
