package collab

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// #endregion

// #region errors

// ErrUnavailable marks every collaborator failure. Callers fall back to
// deterministic generation when errors.Is(err, ErrUnavailable).
var ErrUnavailable = errors.New("collaborator unavailable")

// Failure reasons reported by CallError.
const (
	ReasonAbsent  = "absent"
	ReasonTimeout = "timeout"
	ReasonPanic   = "panic"
	ReasonEmpty   = "empty"
	ReasonError   = "error"
)

// CallError describes why a collaborator call produced no usable text.
type CallError struct {
	Name   string
	Reason string
	Err    error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("collaborator %s: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("collaborator %s: %s: %v", e.Name, e.Reason, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Is makes every CallError match ErrUnavailable.
func (e *CallError) Is(target error) bool { return target == ErrUnavailable }

// Reason extracts the failure reason from err, or "" if err is not a
// collaborator failure.
func Reason(err error) string {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}

// #endregion errors

// #region generator

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// #endregion generator

// #region handle

// Handle is either absent or a present, time-bounded collaborator. The zero
// value is absent.
type Handle struct {
	name    string
	gen     Generator
	timeout time.Duration
}

// Absent returns a handle with no collaborator.
func Absent() Handle {
	return Handle{}
}

// Present wraps gen. A non-positive timeout disables the deadline but keeps
// the goroutine guard.
func Present(name string, gen Generator, timeout time.Duration) Handle {
	if gen == nil {
		return Absent()
	}
	return Handle{name: name, gen: gen, timeout: timeout}
}

// Available reports whether a collaborator is present.
func (h Handle) Available() bool {
	return h.gen != nil
}

// Name returns the collaborator name, or "none".
func (h Handle) Name() string {
	if h.gen == nil {
		return "none"
	}
	return h.name
}

type callResult struct {
	text string
	err  error
}

// Call runs the collaborator with the handle's deadline. The generator runs
// on its own goroutine so one that ignores ctx cannot block the caller past
// the deadline. Panics are recovered. Every failure, including blank output,
// is returned as a *CallError.
func (h Handle) Call(ctx context.Context, prompt string) (string, error) {
	if h.gen == nil {
		return "", &CallError{Name: h.Name(), Reason: ReasonAbsent}
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: &CallError{Name: h.name, Reason: ReasonPanic, Err: fmt.Errorf("%v", r)}}
			}
		}()
		text, err := h.gen.Generate(ctx, prompt)
		done <- callResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", &CallError{Name: h.name, Reason: ReasonTimeout, Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			var ce *CallError
			if errors.As(res.err, &ce) {
				return "", ce
			}
			if errors.Is(res.err, context.DeadlineExceeded) || errors.Is(res.err, context.Canceled) {
				return "", &CallError{Name: h.name, Reason: ReasonTimeout, Err: res.err}
			}
			return "", &CallError{Name: h.name, Reason: ReasonError, Err: res.err}
		}
		if strings.TrimSpace(res.text) == "" {
			return "", &CallError{Name: h.name, Reason: ReasonEmpty}
		}
		return res.text, nil
	}
}

// #endregion handle
