package countdown

import (
	"sync"
	"time"
)

// Timer is a single-purpose countdown gating code resends. The zero value
// is inert and reports as expired; Start arms it. Safe for concurrent use.
type Timer struct {
	mu       sync.Mutex
	expireAt time.Time
	ticker   *time.Ticker
	stop     chan struct{}
	onTick   func(remaining int)

	now func() time.Time
}

// New returns an inert timer.
func New() *Timer {
	return &Timer{now: time.Now}
}

// Start arms the timer for the given duration and begins ticking once per
// second. onTick, if non-nil, is invoked after every tick with the
// remaining whole seconds, including the final tick at zero. Restarting an
// active timer replaces its deadline.
func (t *Timer) Start(d time.Duration, onTick func(remaining int)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	if d <= 0 {
		return
	}

	t.expireAt = t.clock()().Add(d)
	t.onTick = onTick
	t.ticker = time.NewTicker(time.Second)
	t.stop = make(chan struct{})

	go t.run(t.ticker, t.stop)
}

func (t *Timer) run(ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-ticker.C:
			remaining, callback, done := t.Tick()
			if callback != nil {
				callback(remaining)
			}
			if done {
				return
			}
		case <-stop:
			return
		}
	}
}

// Tick recomputes the remaining seconds from the wall-clock deadline. When
// the deadline has passed the timer clears itself and reports done. The
// registered callback is returned rather than invoked so it runs outside
// the lock.
func (t *Timer) Tick() (remaining int, callback func(int), done bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.expireAt.IsZero() {
		return 0, nil, true
	}

	callback = t.onTick
	remaining = remainingSeconds(t.expireAt, t.clock()())
	if remaining == 0 {
		t.clearLocked()
		return 0, callback, true
	}
	return remaining, callback, false
}

// Remaining returns the whole seconds left, computed from the deadline. An
// inert timer returns 0.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.expireAt.IsZero() {
		return 0
	}
	return remainingSeconds(t.expireAt, t.clock()())
}

// Active reports whether a countdown is in progress. It resynchronizes
// against the wall clock first, so a timer whose deadline passed while the
// process was suspended reports inactive and clears itself.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.expireAt.IsZero() {
		return false
	}
	if remainingSeconds(t.expireAt, t.clock()()) == 0 {
		t.clearLocked()
		return false
	}
	return true
}

// Clear disarms the timer and stops its ticker.
func (t *Timer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearLocked()
}

func (t *Timer) clearLocked() {
	t.expireAt = time.Time{}
	t.onTick = nil
	t.stopLocked()
}

func (t *Timer) stopLocked() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Timer) clock() func() time.Time {
	if t.now == nil {
		return time.Now
	}
	return t.now
}

func remainingSeconds(expireAt, now time.Time) int {
	d := expireAt.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
