package runner

import (
	"fmt"
	"reflect"
)

// LoadError reports that a function's code could not be brought into the
// process. It is returned by Run instead of invoking the handler, so a
// broken artifact surfaces on every call until it is replaced.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("runner: load %s: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// InvocationError wraps a panic raised inside a handler together with the
// stack captured at the recovery point. Value holds the original panic
// value, Stack the formatted frames ending with StackBoundary.
type InvocationError struct {
	Err   error
	Value any
	Stack []string
}

func (e *InvocationError) Error() string { return e.Err.Error() }

func (e *InvocationError) Unwrap() error { return e.Err }

func newInvocationError(v any, stack []string) *InvocationError {
	err, ok := v.(error)
	if !ok {
		err = fmt.Errorf("%v", v)
	}
	return &InvocationError{Err: err, Value: v, Stack: stack}
}

// ErrorType reports the concrete kind of a failure value, unwrapping
// pointers. It matches the errorType label a real runtime derives:
// "errorString" for errors.New values, the type name for custom errors,
// "string" for panics with a plain message.
func ErrorType(v any) string {
	if v == nil {
		return "Error"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
