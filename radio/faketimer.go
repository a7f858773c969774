package radio

import "sync"

// FakeTimer is an in-memory Timer double with a manually advanced
// counter, so calibration tests can deterministically fire timer
// expirations without a wall-clock sleep.
type FakeTimer struct {
	mu      sync.Mutex
	counter uint32
	compare uint32
	armed   bool
	cb      func()
}

func NewFakeTimer() *FakeTimer { return &FakeTimer{} }

func (t *FakeTimer) ReadCounter() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counter
}

func (t *FakeTimer) SetCompare(absoluteTick uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.compare = absoluteTick
}

func (t *FakeTimer) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
}

func (t *FakeTimer) SetCallback(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cb = f
}

// Advance moves the counter forward by ticks and, if it crosses the
// armed compare value, fires the callback exactly once.
func (t *FakeTimer) Advance(ticks uint32) {
	t.mu.Lock()
	t.counter += ticks
	fire := t.armed && t.counter >= t.compare
	if fire {
		t.armed = false
	}
	cb := t.cb
	t.mu.Unlock()
	if fire && cb != nil {
		cb()
	}
}

// Fire forces the callback to run immediately, as if the compare
// value had just been reached, without needing the caller to compute
// tick deltas.
func (t *FakeTimer) Fire() {
	t.mu.Lock()
	t.armed = false
	cb := t.cb
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}
