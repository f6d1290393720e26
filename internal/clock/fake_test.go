package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_SleepRecordsDurationWithoutRealDelay(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	start := time.Now()
	err := f.Sleep(context.Background(), 5*time.Minute)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 100*time.Millisecond)
	assert.Equal(t, []time.Duration{5 * time.Minute}, f.Sleeps())
}

func TestFake_SleepAdvancesNow(t *testing.T) {
	start := time.Unix(1000, 0)
	f := NewFake(start)

	require.NoError(t, f.Sleep(context.Background(), time.Hour))
	assert.Equal(t, start.Add(time.Hour), f.Now())
}

func TestFake_SleepRespectsCanceledContext(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Sleep(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.Sleeps())
}

func TestFake_Advance(t *testing.T) {
	start := time.Unix(0, 0)
	f := NewFake(start)

	f.Advance(30 * time.Second)
	assert.Equal(t, start.Add(30*time.Second), f.Now())
}
