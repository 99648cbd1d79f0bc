package poster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDelaysFastModeHalves(t *testing.T) {
	normal := NewDelays(false)
	fast := NewDelays(true)

	assert.Equal(t, normal.Short/2, fast.Short)
	assert.Equal(t, normal.Medium/2, fast.Medium)
	assert.Equal(t, normal.Long/2, fast.Long)
	assert.Equal(t, normal.Navigation/2, fast.Navigation)
}

func TestSleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Sleep(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}
