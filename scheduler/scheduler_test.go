package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func TestAddTicker_Fires(t *testing.T) {
	s := New(nil, newNop())
	defer s.Stop()

	var count int32
	s.AddTicker("tick", 20*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestAddTicker_Replaces(t *testing.T) {
	s := New(nil, newNop())
	defer s.Stop()

	var count1, count2 int32
	s.AddTicker("task", 20*time.Millisecond, func() { atomic.AddInt32(&count1, 1) })
	time.Sleep(30 * time.Millisecond)
	s.AddTicker("task", 20*time.Millisecond, func() { atomic.AddInt32(&count2, 1) })
	time.Sleep(80 * time.Millisecond)

	// Old ticker should have stopped, new one should be running
	snap1 := atomic.LoadInt32(&count1)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&count1), "old ticker must stop after replacement")
	assert.Positive(t, atomic.LoadInt32(&count2))
}

func TestAfter_FiresOnce(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := New(clock, newNop())
	defer s.Stop()

	var count int32
	s.After("once", 30*time.Second, func() {
		atomic.AddInt32(&count, 1)
	})

	clock.Advance(time.Minute)
	clock.Advance(time.Minute)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestAfter_ReplacesCancelsOld(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := New(clock, newNop())
	defer s.Stop()

	var count int32
	// Schedule with long delay, then replace immediately
	s.After("d", time.Hour, func() { atomic.AddInt32(&count, 1) })
	s.After("d", 30*time.Second, func() { atomic.AddInt32(&count, 10) })
	clock.Advance(2 * time.Hour)
	// Only the second callback should have fired (value 10), not both
	assert.Equal(t, int32(10), atomic.LoadInt32(&count))
}

func TestCancel_Ticker(t *testing.T) {
	s := New(nil, newNop())
	defer s.Stop()

	var count int32
	s.AddTicker("task", 20*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	time.Sleep(50 * time.Millisecond)
	s.Cancel("task")
	snap := atomic.LoadInt32(&count)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&count), "ticker must stop after Cancel")
}

func TestCancel_Timer(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := New(clock, newNop())
	defer s.Stop()

	var count int32
	s.After("d", time.Minute, func() { atomic.AddInt32(&count, 1) })
	s.Cancel("d")
	clock.Advance(time.Hour)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
	assert.Empty(t, s.PendingTimers())
}

func TestCancel_NonExistent(t *testing.T) {
	s := New(nil, newNop())
	defer s.Stop()
	// Must not panic
	s.Cancel("nope")
}

func TestPendingTimers(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := New(clock, newNop())
	defer s.Stop()

	s.After("a", time.Minute, func() {})
	s.After("b", time.Hour, func() {})
	assert.Len(t, s.PendingTimers(), 2)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, []string{"b"}, s.PendingTimers())
}

func TestStop_StopsAllTickers(t *testing.T) {
	s := New(nil, newNop())

	var c1, c2 int32
	s.AddTicker("a", 20*time.Millisecond, func() { atomic.AddInt32(&c1, 1) })
	s.AddTicker("b", 20*time.Millisecond, func() { atomic.AddInt32(&c2, 1) })
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	// Give goroutines time to observe the stop signal before snapping counts.
	time.Sleep(30 * time.Millisecond)
	snap1, snap2 := atomic.LoadInt32(&c1), atomic.LoadInt32(&c2)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&c1))
	assert.Equal(t, snap2, atomic.LoadInt32(&c2))
}

func TestStop_Idempotent(t *testing.T) {
	s := New(nil, newNop())
	s.Stop()
	s.Stop() // must not panic on double-stop
}

func TestListTickers(t *testing.T) {
	s := New(nil, newNop())
	defer s.Stop()

	require.Empty(t, s.ListTickers())
	s.AddTicker("alpha", time.Hour, func() {})
	s.AddTicker("beta", time.Hour, func() {})
	names := s.ListTickers()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "alpha")
	assert.Contains(t, names, "beta")
}

func TestListTickers_AfterCancel(t *testing.T) {
	s := New(nil, newNop())
	defer s.Stop()

	s.AddTicker("x", time.Hour, func() {})
	s.AddTicker("y", time.Hour, func() {})
	s.Cancel("x")
	assert.Equal(t, []string{"y"}, s.ListTickers())
}

func TestTicker_PanicRecovery(t *testing.T) {
	s := New(nil, newNop())
	defer s.Stop()

	var after int32
	s.AddTicker("panic", 20*time.Millisecond, func() {
		panic("oops")
	})
	// After the panic the ticker goroutine should keep running
	time.Sleep(80 * time.Millisecond)
	atomic.StoreInt32(&after, 1)
	assert.Equal(t, int32(1), after) // test itself didn't crash
}

func TestAfter_PanicRecovery(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := New(clock, newNop())
	defer s.Stop()

	s.After("boom", time.Second, func() { panic("oops") })
	clock.Advance(time.Minute) // must not crash the test process
	assert.Empty(t, s.PendingTimers())
}

func TestFakeClock_FiresInOrder(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))

	var order []int
	clock.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	clock.AfterFunc(time.Second, func() { order = append(order, 1) })
	clock.AfterFunc(3*time.Second, func() { order = append(order, 3) })

	clock.Advance(10 * time.Second)
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Zero(t, clock.PendingCount())
}

func TestFakeClock_StopPreventsFire(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))

	fired := false
	timer := clock.AfterFunc(time.Second, func() { fired = true })
	require.True(t, timer.Stop())
	clock.Advance(time.Minute)
	assert.False(t, fired)
}
