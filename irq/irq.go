// Package irq implements the 8080's asynchronous interrupt latch: the
// synchronization contract between a single-threaded cpu.Processor
// and an external interrupt source that may live on another
// goroutine (or an equivalent of a signal handler).
//
// The latch holds exactly two booleans, enabled and requested, and is
// guarded by a single short critical section entered at most twice
// per instruction: once by the producer (RequestInterrupt) and once
// by the consumer (TestAndClear). The lock never wraps memory access
// or opcode execution.
package irq

import "sync"

// Sender is a single-method polling capability: a consumer asks "is
// there a request?" without needing to know who is asking. Latch
// implements it for symmetry, though cpu.Processor talks to Latch
// directly via TestAndClear so it can also clear the request
// atomically.
type Sender interface {
	Raised() bool
}

// Latch is the interrupt-enable/interrupt-request pair from spec
// section 4.4, guarded by a mutex so RequestInterrupt is safe to call
// from any goroutine.
type Latch struct {
	mu        sync.Mutex
	enabled   bool
	requested bool
}

// NewLatch returns a latch with interrupts disabled and no request
// pending, matching the reset state (int_en=0, int_rq=0).
func NewLatch() *Latch {
	return &Latch{}
}

// SetEnabled is called by the CPU thread when executing EI or DI. It
// takes the same lock as RequestInterrupt/TestAndClear so a producer
// racing a DI never observes a torn enabled bit.
func (l *Latch) SetEnabled(enabled bool) {
	l.mu.Lock()
	l.enabled = enabled
	l.mu.Unlock()
}

// Enabled reports whether interrupts are currently enabled.
func (l *Latch) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// RequestInterrupt posts an interrupt request. If interrupts are not
// currently enabled the request is silently dropped: a pending
// interrupt that fires while disabled is not latched for later, it is
// simply lost. Safe to call from any goroutine.
func (l *Latch) RequestInterrupt() {
	l.mu.Lock()
	if l.enabled {
		l.requested = true
	}
	l.mu.Unlock()
}

// Raised implements Sender: true if a request is currently latched
// and would be serviced on the next TestAndClear.
func (l *Latch) Raised() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled && l.requested
}

// Reset clears both enabled and requested unconditionally, regardless
// of what TestAndClear would otherwise observe.
func (l *Latch) Reset() {
	l.mu.Lock()
	l.enabled = false
	l.requested = false
	l.mu.Unlock()
}

// TestAndClear is called once per cpu.Processor.Next(). If an enabled
// request is pending it atomically clears both enabled and requested
// and returns true (the caller must then service the interrupt and
// may re-enable interrupts itself via a later EI). Otherwise it
// returns false and leaves the latch untouched.
func (l *Latch) TestAndClear() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enabled && l.requested {
		l.enabled = false
		l.requested = false
		return true
	}
	return false
}
