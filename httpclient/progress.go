package httpclient

import (
	"sync"
	"sync/atomic"
)

// Progress reports body bytes written for one task.
type Progress struct {
	BytesSent      int64
	TotalBytesSent int64
	TotalExpected  int64
}

// Fraction returns TotalBytesSent/TotalExpected, or 0 when the total is
// unknown.
func (p Progress) Fraction() float64 {
	if p.TotalExpected <= 0 {
		return 0
	}
	return float64(p.TotalBytesSent) / float64(p.TotalExpected)
}

// ProgressFunc receives progress ticks. It may be called from transport
// goroutines.
type ProgressFunc func(Progress)

// progressRegistry maps in-flight tasks to their progress handlers.
type progressRegistry struct {
	mu       sync.RWMutex
	handlers map[TaskID]ProgressFunc
}

func newProgressRegistry() *progressRegistry {
	return &progressRegistry{handlers: make(map[TaskID]ProgressFunc)}
}

func (r *progressRegistry) register(id TaskID, fn ProgressFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = fn
}

func (r *progressRegistry) remove(id TaskID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, id)
}

// dispatch calls the handler for id outside the lock. It reports whether a
// handler was registered.
func (r *progressRegistry) dispatch(id TaskID, p Progress) bool {
	r.mu.RLock()
	fn, ok := r.handlers[id]
	r.mu.RUnlock()
	if ok {
		fn(p)
	}
	return ok
}

func (r *progressRegistry) contains(id TaskID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[id]
	return ok
}

func (r *progressRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// outcome is what a transport completion delivered.
type outcome struct {
	body []byte
	resp *WireResponse
	err  error
}

// completionSlot accepts exactly one outcome. Later writes are refused.
type completionSlot struct {
	ch    chan outcome
	fired atomic.Bool
}

func newCompletionSlot() *completionSlot {
	return &completionSlot{ch: make(chan outcome, 1)}
}

// resolve stores o unless the slot already holds a value. It never blocks.
func (s *completionSlot) resolve(o outcome) bool {
	if !s.fired.CompareAndSwap(false, true) {
		return false
	}
	s.ch <- o
	return true
}
