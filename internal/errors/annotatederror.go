// Package errors annotates errors with a message, structured log attributes and the location where the
// annotation happened. Annotated errors render into a single [slog.Attr] with [SlogError].
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

// New, Is, As, Unwrap and Join are re-exported so that callers only need to import this package.
var (
	New    = stderrors.New
	Is     = stderrors.Is
	As     = stderrors.As
	Unwrap = stderrors.Unwrap
	Join   = stderrors.Join
)

type sentinelError struct {
	msg string
}

func (e *sentinelError) Error() string {
	return e.msg
}

// NewSentinel creates an error meant to be compared with [Is]. It doesn't capture a stack location because it
// is usually declared as a package level variable.
func NewSentinel(msg string) error {
	return &sentinelError{msg: msg}
}

type annotatedError struct {
	err   error
	msg   string
	attrs []slog.Attr
	pc    uintptr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// Wrap annotates err with msg and attrs. The caller's location is recorded and shown by [SlogError].
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:]) //nolint:mnd // skip runtime.Callers and Wrap.
	return &annotatedError{
		err:   err,
		msg:   msg,
		attrs: attrs,
		pc:    pcs[0],
	}
}

// DecoratePanic converts a value recovered from a panic into an error annotated with the panic location.
// Returns nil if recovered is nil.
func DecoratePanic(recovered any) error {
	if recovered == nil {
		return nil
	}
	var pcs [32]uintptr
	n := runtime.Callers(2, pcs[:]) //nolint:mnd // skip runtime.Callers and DecoratePanic.
	frames := runtime.CallersFrames(pcs[:n])
	var pc uintptr
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			pc = frame.PC
			break
		}
		if !more {
			break
		}
	}
	var cause error
	if err, ok := recovered.(error); ok {
		cause = err
	} else {
		cause = NewSentinel(fmt.Sprint(recovered))
	}
	return &annotatedError{
		err:   cause,
		msg:   "panic",
		attrs: nil,
		pc:    pc,
	}
}

// SlogError renders err as a slog group named "error" containing the message, the annotations of every wrapped
// annotated error and the source location of the innermost annotation.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "error", Value: slog.StringValue("<nil>")}
	}

	var (
		annotations []any
		source      string
	)
	collectAnnotations(err, &annotations, &source)

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

func collectAnnotations(err error, annotations *[]any, source *string) {
	if err == nil {
		return
	}
	//nolint:errorlint // we traverse the chain manually to include joined errors.
	switch e := err.(type) {
	case *annotatedError:
		for _, attr := range e.attrs {
			*annotations = append(*annotations, attr)
		}
		if loc := location(e.pc); loc != "" {
			*source = loc
		}
		collectAnnotations(e.err, annotations, source)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			collectAnnotations(inner, annotations, source)
		}
	case interface{ Unwrap() error }:
		collectAnnotations(e.Unwrap(), annotations, source)
	}
}

func location(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return frame.File + ":" + strconv.Itoa(frame.Line)
}
