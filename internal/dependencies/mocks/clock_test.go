package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClock_TimerFiresOnAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := NewMockClock(start)

	timer := clk.NewTimer(3 * time.Second)
	clk.Advance(2 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	clk.Advance(time.Second)
	select {
	case fired := <-timer.C():
		assert.Equal(t, start.Add(3*time.Second), fired)
	default:
		t.Fatal("timer did not fire")
	}
	assert.Equal(t, 0, clk.Pending())
}

func TestMockClock_StoppedTimerNeverFires(t *testing.T) {
	clk := NewMockClock(time.Unix(0, 0))
	timer := clk.NewTimer(time.Second)

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	clk.Advance(time.Minute)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestMockClock_TickerFiresEachInterval(t *testing.T) {
	clk := NewMockClock(time.Unix(0, 0))
	ticker := clk.NewTicker(time.Second)
	defer ticker.Stop()

	for i := 0; i < 3; i++ {
		clk.Advance(time.Second)
		select {
		case <-ticker.C():
		default:
			require.Failf(t, "missing tick", "tick %d", i)
		}
	}
}

func TestMockClock_TickerDropsWhenUnread(t *testing.T) {
	clk := NewMockClock(time.Unix(0, 0))
	ticker := clk.NewTicker(time.Second)

	clk.Advance(5 * time.Second)
	<-ticker.C()
	select {
	case <-ticker.C():
		t.Fatal("ticks should not queue")
	default:
	}

	ticker.Stop()
	assert.Equal(t, 0, clk.Pending())
}

func TestMockRandom_Queues(t *testing.T) {
	r := NewMockRandom()
	r.QueueIntn(4, 2)
	r.QueueFloat(0.25)
	r.QueueString("abc")

	assert.Equal(t, 4, r.Intn(10))
	assert.Equal(t, 2, r.Intn(10))
	assert.Equal(t, 0, r.Intn(10))
	assert.Equal(t, 0.25, r.Float64())
	assert.Equal(t, 0.0, r.Float64())
	assert.Equal(t, "abc", r.String(3, "abc"))
	assert.Equal(t, "", r.String(3, "abc"))

	r.Reset()
	r.QueueIntn(7)
	assert.Equal(t, 7, r.Intn(10))
}
