package fsutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"envelope 0.200-0.800m 30.0Hz gain=0.50", "envelope_0.200-0.800m_30.0Hz_gain_0.50"},
		{"../../etc/passwd", "etc_passwd"},
		{"power bin", "power_bin"},
		{"  spaced  out  ", "spaced_out"},
		{"", "unnamed"},
		{"///", "unnamed"},
		{"_.hidden._", "hidden"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeName(tt.in), tt.in)
	}

	assert.LessOrEqual(t, len(SafeName(strings.Repeat("a", 500))), maxNameLen)
}
