// api/middleware/rate_limiter_test.go
package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterEnforcesLimit(t *testing.T) {
	rl := NewRateLimiter(2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "third request within the window must be rejected")

	// Budgets are per IP.
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiterNonPositiveLimitFallsBack(t *testing.T) {
	rl := NewRateLimiter(0)
	assert.Equal(t, 60, rl.limit)
}
