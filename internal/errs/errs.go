// Package errs classifies envchain failures and maps them to exit codes.
//
//	Usage    malformed invocation            exit 2
//	NotFound namespace or key absent         exit 1
//	Fatal    keychain service failure        exit 10
//	Launch   replacement process not started exit 1
package errs

import (
	"errors"
	"fmt"
)

// Kind is the class of a failure.
type Kind int

const (
	KindUsage Kind = iota + 1
	KindNotFound
	KindFatal
	KindLaunch
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindNotFound:
		return "not found"
	case KindFatal:
		return "fatal"
	case KindLaunch:
		return "launch"
	}
	return "unknown"
}

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitFatal   = 10
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Usagef reports a malformed invocation.
func Usagef(format string, args ...any) error {
	return &Error{Kind: KindUsage, Err: fmt.Errorf(format, args...)}
}

// NotFoundf reports a missing namespace or key.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

// Fatal wraps a keychain service failure. Fatal errors are never retried.
func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindFatal {
		return err
	}
	return &Error{Kind: KindFatal, Op: op, Err: err}
}

// Launch wraps a failure to start the replacement process.
func Launch(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindLaunch, Op: "exec", Err: err}
}

// KindOf returns the kind of the first classified error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsFatal reports whether err must abort the whole invocation.
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindUsage:
		return ExitUsage
	case KindFatal:
		return ExitFatal
	}
	return ExitFailure
}
