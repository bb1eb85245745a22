package rabbitmq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishBackoff(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		mult    float64
		attempt int
		want    time.Duration
	}{
		{"first retry waits the base delay", 100 * time.Millisecond, 2, 0, 100 * time.Millisecond},
		{"doubling multiplier", 100 * time.Millisecond, 2, 2, 400 * time.Millisecond},
		{"fractional multiplier", 100 * time.Millisecond, 1.5, 2, 225 * time.Millisecond},
		{"large multiplier", 50 * time.Millisecond, 3, 3, 1350 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publishBackoff(tt.base, tt.mult, tt.attempt))
		})
	}
}
