// Package pool wraps sync.Pool with a typed API so call sites avoid
// interface{} assertions. Blaze uses it for the writer goroutines'
// JSON-encode scratch buffers, which churn once per output line.
package pool

import "sync"

// Resettable is implemented by pooled values that must be zeroed
// before reuse.
type Resettable interface {
	Reset()
}

// Pool is a typed sync.Pool. Values implementing Resettable are reset
// on Put, never on Get.
type Pool[T any] struct {
	inner sync.Pool
}

// NewLitePool builds a pool around the given constructor. The
// constructor must return a usable (non-nil) value.
func NewLitePool[T any](newFn func() T) *Pool[T] {
	if newFn == nil {
		panic("pool: constructor must not be nil")
	}
	return &Pool[T]{
		inner: sync.Pool{
			New: func() any { return newFn() },
		},
	}
}

func (p *Pool[T]) Get() T {
	return p.inner.Get().(T)
}

func (p *Pool[T]) Put(v T) {
	if r, ok := any(v).(Resettable); ok {
		r.Reset()
	}
	p.inner.Put(v)
}
