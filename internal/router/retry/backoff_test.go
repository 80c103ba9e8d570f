package retry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Songjaeheon0923/Fin-Hub/internal/router/retry"
)

func TestBackoffCappedAtMax(t *testing.T) {
	cfg := retry.Config{Base: 100 * time.Millisecond, Max: 5 * time.Second, JitterFraction: 0}
	d := retry.Backoff(cfg, 10)
	assert.Equal(t, 5*time.Second, d)
}

func TestBackoffGrowsExponentially(t *testing.T) {
	cfg := retry.Config{Base: 100 * time.Millisecond, Max: time.Hour, JitterFraction: 0}
	d1 := retry.Backoff(cfg, 1)
	d2 := retry.Backoff(cfg, 2)
	assert.Equal(t, 2*d1, d2)
}

func TestBackoffJitterStaysWithinBounds(t *testing.T) {
	cfg := retry.Config{Base: 100 * time.Millisecond, Max: time.Hour, JitterFraction: 0.25}
	base := 100 * time.Millisecond * 2 // attempt 1 -> base * 2^1
	for i := 0; i < 50; i++ {
		d := retry.Backoff(cfg, 1)
		assert.GreaterOrEqual(t, d, base*75/100)
		assert.LessOrEqual(t, d, base*125/100)
	}
}
