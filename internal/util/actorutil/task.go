package actorutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

var ErrNilResult = errors.New("result is nil")

// SafeBackgroundTask runs a blocking function outside the actor goroutine.
// Panics, timeouts and errors end up in Recover or OnError; the actor never
// sees them as crashes.
type SafeBackgroundTask[T any] struct {
	ctx       actor.Context
	fn        func() (*T, error)
	timeout   *time.Duration
	onError   func(error)
	recover   func(error) T
	onSuccess func(T)
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn:  fn,
	}
}

func NewBackgroundTaskNoError[T any](ctx actor.Context, fn func() *T) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn: func() (*T, error) {
			return fn(), nil
		},
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

func (t *SafeBackgroundTask[T]) OnSuccess(fn func(T)) *SafeBackgroundTask[T] {
	t.onSuccess = fn
	return t
}

// PipeTo delivers the result (or the recovered value) to pid.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	root := t.ctx.ActorSystem().Root
	t.onSuccess = func(value T) {
		root.Send(pid, value)
	}
	go t.Run()
}

// Run blocks until the task completes. PipeTo runs it on its own goroutine.
func (t *SafeBackgroundTask[T]) Run() {
	bgFn := io.Eval(safeCall(t.fn))
	bg := io.Map(bgFn, func(a *T) T {
		return *a
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	var finalValue *T
	if result.Error != nil {
		if t.recover != nil {
			a := t.recover(result.Error)
			finalValue = &a
		} else {
			if t.onError != nil {
				t.onError(result.Error)
			}
			return
		}
	}
	if finalValue == nil {
		finalValue = &result.Value
	}

	if t.onSuccess != nil {
		t.onSuccess(*finalValue)
	}
}

func safeCall[T any](fn func() (*T, error)) func() (*T, error) {
	return func() (res *T, err error) {
		defer func() {
			if r := recover(); r != nil {
				res = nil
				err = fmt.Errorf("background task panic: %v", r)
			}
		}()
		res, err = fn()
		if res == nil && err == nil {
			err = ErrNilResult
		}
		return res, err
	}
}

func MapBackgroundTask[T, T2 any](bgt *SafeBackgroundTask[T], mapFn func(*T) *T2) *SafeBackgroundTask[T2] {
	newFn := func() (*T2, error) {
		r, err := bgt.fn()
		if err != nil {
			return nil, err
		}
		return mapFn(r), nil
	}
	return &SafeBackgroundTask[T2]{
		ctx:     bgt.ctx,
		fn:      newFn,
		timeout: bgt.timeout,
	}
}
