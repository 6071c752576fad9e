// Package normalize turns raw text fragments into typed values. Every parser
// is pure and returns a Result instead of an error: malformed input is an
// expected condition, not a failure of the pipeline.
package normalize

import "fmt"

// Result is either Ok(value) or Unparseable(reason).
type Result[T any] struct {
	value  T
	ok     bool
	reason string
}

// Ok wraps a successfully parsed value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Fail builds an Unparseable result with a formatted reason.
func Fail[T any](format string, args ...any) Result[T] {
	return Result[T]{reason: fmt.Sprintf(format, args...)}
}

// Value returns the parsed value and whether parsing succeeded.
func (r Result[T]) Value() (T, bool) { return r.value, r.ok }

// OK reports whether the result holds a value.
func (r Result[T]) OK() bool { return r.ok }

// Reason is empty for Ok results.
func (r Result[T]) Reason() string { return r.reason }

// Ptr returns a pointer to the value, or nil when unparseable.
func (r Result[T]) Ptr() *T {
	if !r.ok {
		return nil
	}
	v := r.value
	return &v
}

func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("Ok(%v)", r.value)
	}
	return fmt.Sprintf("Unparseable(%s)", r.reason)
}

// erase converts a typed result into the registry's untyped form.
func erase[T any](r Result[T]) Result[any] {
	if !r.ok {
		return Result[any]{reason: r.reason}
	}
	return Ok[any](r.value)
}
