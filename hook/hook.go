package hook

import (
	"fmt"
	"runtime/debug"
)

// Interface is a try/catch/finally triple. Catch may translate the error
// returned by Try; Finally always runs.
type Interface interface {
	Try() error
	Catch(err error) error
	Finally()
}

// PanicError is returned by Call when Try panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func Call(hook Interface) (err error) {
	if hook == nil {
		return fmt.Errorf("hook cannot be nil")
	}

	defer hook.Finally()

	defer func() {
		if r := recover(); r != nil {
			err = hook.Catch(&PanicError{Value: r, Stack: debug.Stack()})
		}
	}()

	if tryErr := hook.Try(); tryErr != nil {
		return hook.Catch(tryErr)
	}
	return nil
}

// Func adapts plain functions to Interface. Nil fields are no-ops.
type Func struct {
	TryFunc     func() error
	CatchFunc   func(err error) error
	FinallyFunc func()
}

func (f Func) Try() error {
	if f.TryFunc == nil {
		return nil
	}
	return f.TryFunc()
}

func (f Func) Catch(err error) error {
	if f.CatchFunc == nil {
		return err
	}
	return f.CatchFunc(err)
}

func (f Func) Finally() {
	if f.FinallyFunc != nil {
		f.FinallyFunc()
	}
}
