package fn

import "fmt"

// Result[T] carries either a value or an error through worker pools.
type Result[T any] struct {
	val T
	err error
	ok  bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v, ok: true}
}

// Err wraps an error.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Errf wraps a formatted error.
func Errf[T any](format string, args ...any) Result[T] {
	return Result[T]{err: fmt.Errorf(format, args...)}
}

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports whether the result holds an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }
