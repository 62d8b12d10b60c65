// Package async provides a single-assignment future.
package async

import (
	"context"
	"sync"
)

// Future holds the result of work running in the background.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

// New returns an unresolved future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go runs fn in a new goroutine and returns a future for its result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	future := New[T]()

	go func() {
		value, err := fn(ctx)
		future.Resolve(value, err)
	}()

	return future
}

// Resolved returns a future that already holds value and err.
func Resolved[T any](value T, err error) *Future[T] {
	future := New[T]()
	future.Resolve(value, err)

	return future
}

// Resolve stores the result. Only the first call has an effect.
func (f *Future[T]) Resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// Ready reports whether the future has resolved.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Peek returns the result without blocking. It returns zero values while
// the future is unresolved.
func (f *Future[T]) Peek() (T, error) {
	if !f.Ready() {
		var zero T

		return zero, nil
	}

	return f.value, f.err
}
