package signal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJoinLimiterBurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	jl := NewJoinLimiter(1, 3)
	jl.now = func() time.Time { return now }

	for i := range 3 {
		assert.True(t, jl.Allow("client-a"), "attempt %d", i)
	}
	assert.False(t, jl.Allow("client-a"))
	assert.True(t, jl.Allow("client-b"), "other clients keep their own budget")

	now = now.Add(time.Second)
	assert.True(t, jl.Allow("client-a"))
	assert.False(t, jl.Allow("client-a"))
}

func TestJoinLimiterDisabled(t *testing.T) {
	jl := NewJoinLimiter(0, 1)
	for range 100 {
		assert.True(t, jl.Allow("k"))
	}
}

func TestJoinLimiterPrunesIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	jl := NewJoinLimiter(1, 1)
	jl.now = func() time.Time { return now }

	for i := range limiterMaxEntries {
		jl.Allow(fmt.Sprintf("client-%d", i))
	}
	assert.Equal(t, limiterMaxEntries, jl.Len())

	now = now.Add(time.Hour)
	jl.Allow("fresh")
	assert.Equal(t, 1, jl.Len())
}
