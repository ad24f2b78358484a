package debounce_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sipico/covid-counter-client/internal/debounce"
	"github.com/sipico/covid-counter-client/internal/testutil/fakeclock"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	t.Parallel()
	clock := fakeclock.New()
	d := debounce.New(clock, 300*time.Millisecond)

	var got []string
	for _, v := range []string{"I", "In", "Ind"} {
		v := v
		d.Trigger(func() { got = append(got, v) })
		clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, got)
	assert.True(t, d.Pending())

	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"Ind"}, got)
	assert.False(t, d.Pending())
}

func TestDebouncer_FiresOncePerQuietPeriod(t *testing.T) {
	t.Parallel()
	clock := fakeclock.New()
	d := debounce.New(clock, 300*time.Millisecond)

	var calls int
	d.Trigger(func() { calls++ })
	clock.Advance(300 * time.Millisecond)
	d.Trigger(func() { calls++ })
	clock.Advance(299 * time.Millisecond)
	assert.Equal(t, 1, calls)
	clock.Advance(time.Millisecond)
	assert.Equal(t, 2, calls)
}

func TestDebouncer_Stop(t *testing.T) {
	t.Parallel()
	clock := fakeclock.New()
	d := debounce.New(clock, 0)

	fired := false
	d.Trigger(func() { fired = true })
	assert.True(t, d.Stop())
	assert.False(t, d.Stop())

	clock.Advance(time.Second)
	assert.False(t, fired)
	assert.Equal(t, 0, clock.Pending())
}

func TestDebouncer_RealClock(t *testing.T) {
	t.Parallel()
	d := debounce.New(nil, 10*time.Millisecond)

	var calls atomic.Int32
	done := make(chan struct{})
	d.Trigger(func() { calls.Add(1) })
	d.Trigger(func() {
		calls.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never fired")
	}
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
