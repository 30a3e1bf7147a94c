package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateNextBackoff(t *testing.T) {
	tests := []struct {
		current time.Duration
		want    time.Duration
	}{
		{time.Second, 1500 * time.Millisecond},
		{10 * time.Second, 15 * time.Second},
		{8 * time.Minute, 10 * time.Minute},
		{10 * time.Minute, 10 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateNextBackoff(tt.current), "from %v", tt.current)
	}
}

func TestAddJitter(t *testing.T) {
	base := 10 * time.Second
	for i := 0; i < 100; i++ {
		got := addJitter(base)
		assert.GreaterOrEqual(t, got, 8*time.Second)
		assert.LessOrEqual(t, got, 12*time.Second)
	}

	// Never below one second.
	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, addJitter(500*time.Millisecond), time.Second)
	}
}

func TestSleepCtx(t *testing.T) {
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, sleepCtx(ctx, time.Hour))
	assert.Less(t, time.Since(start), time.Second)
}
