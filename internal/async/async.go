// Package async implements single-resolution deferred values.
//
// A Value is produced by a Scheduler and resolves exactly once. Map and
// FlatMap chain work strictly after the source value resolves, so a chain of
// stages never runs two of its steps at the same time. Nothing in this
// package cancels work: a context passed to Await only bounds how long the
// caller waits.
//
// A panic in scheduled work does not take the process down with the
// scheduler's goroutine. It resolves the value, and Get or Await re-raise it
// on the goroutine that reads the result.
package async

import (
	"context"
	"sync"
)

// Scheduler runs tasks somewhere other than the calling goroutine.
type Scheduler interface {
	Go(task func())
}

// SchedulerFunc adapts a plain function to the Scheduler interface.
type SchedulerFunc func(task func())

// Go implements Scheduler.
func (f SchedulerFunc) Go(task func()) { f(task) }

// Goroutines starts one goroutine per task.
var Goroutines Scheduler = SchedulerFunc(func(task func()) { go task() })

// Group is a Scheduler that keeps track of the tasks it started so callers
// can wait for all of them, e.g. to flush background deliveries in tests or
// during shutdown.
type Group struct {
	wg sync.WaitGroup
}

// Go implements Scheduler.
func (g *Group) Go(task func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		task()
	}()
}

// Wait blocks until every task started so far, and every task those tasks
// started through the group, has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// Value is a value that becomes available once some scheduled work
// completes.
type Value[T any] struct {
	done  chan struct{}
	val   T
	sched Scheduler

	// panicked holds what fn panicked with, once done is closed.
	panicked *panicked
}

type panicked struct {
	value any
}

// Pure returns an already-resolved value.
func Pure[T any](v T) *Value[T] {
	done := make(chan struct{})
	close(done)
	return &Value[T]{done: done, val: v}
}

// Go schedules fn on s and returns a value resolving to its result.
func Go[T any](s Scheduler, fn func() T) *Value[T] {
	if s == nil {
		s = Goroutines
	}
	v := &Value[T]{done: make(chan struct{}), sched: s}
	s.Go(func() {
		defer close(v.done)
		defer func() {
			if r := recover(); r != nil {
				v.panicked = &panicked{value: r}
			}
		}()
		v.val = fn()
	})
	return v
}

func (v *Value[T]) rethrow() {
	if v.panicked != nil {
		panic(v.panicked.value)
	}
}

// Done is closed once the value has resolved.
func (v *Value[T]) Done() <-chan struct{} { return v.done }

// Resolved reports whether the value is already available.
func (v *Value[T]) Resolved() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}

// Get blocks until the value resolves. It panics if the work producing the
// value panicked.
func (v *Value[T]) Get() T {
	<-v.done
	v.rethrow()
	return v.val
}

// Await blocks until the value resolves or ctx is done, whichever happens
// first. The underlying computation keeps running in the latter case. Like
// Get, it re-raises a panic from the producing work.
func (v *Value[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-v.done:
		v.rethrow()
		return v.val, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (v *Value[T]) scheduler() Scheduler {
	if v.sched == nil {
		return Goroutines
	}
	return v.sched
}

// Map returns a value resolving to f applied to v's result. f runs inline
// when v has already resolved and on v's scheduler otherwise.
func Map[T, U any](v *Value[T], f func(T) U) *Value[U] {
	if v.Resolved() {
		return Pure(f(v.Get()))
	}
	return Go(v.scheduler(), func() U { return f(v.Get()) })
}

// FlatMap sequences an asynchronous step after v.
func FlatMap[T, U any](v *Value[T], f func(T) *Value[U]) *Value[U] {
	if v.Resolved() {
		return f(v.Get())
	}
	return Go(v.scheduler(), func() U { return f(v.Get()).Get() })
}

// All resolves to the results of vs, in the order given, once every one of
// them has resolved.
func All[T any](vs []*Value[T]) *Value[[]T] {
	var sched Scheduler
	for _, v := range vs {
		if !v.Resolved() {
			sched = v.scheduler()
			break
		}
	}

	collect := func() []T {
		out := make([]T, len(vs))
		for i, v := range vs {
			out[i] = v.Get()
		}
		return out
	}
	if sched == nil {
		return Pure(collect())
	}
	return Go(sched, collect)
}
