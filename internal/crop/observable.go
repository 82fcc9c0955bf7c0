package crop

import "sync"

// Observable holds a current value and notifies subscribers
// synchronously on change. It is the framework-independent stand-in
// for a UI reactivity cell; the ratio index, preview asset, and ready
// flag on the controller are all Observables.
type Observable[T any] struct {
	mu     sync.Mutex
	value  T
	nextID int
	subs   map[int]func(T)
	closed bool
}

// NewObservable returns an observable seeded with an initial value.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Set stores a new value and invokes every subscriber before
// returning. A closed observable drops the update.
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.value = v
	subs := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers a callback for future changes and returns an
// unsubscribe function.
func (o *Observable[T]) Subscribe(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return func() {}
	}
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// Close drops all subscribers. Later Set calls are ignored.
func (o *Observable[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.subs = make(map[int]func(T))
}
