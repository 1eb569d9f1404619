// Package invariant defines the fatal error raised when native code observes
// a broken internal contract, e.g. an alert reported against a defence spot
// that was never registered, or a script value of the wrong dynamic type
// crossing into native code.
//
// These are programming errors, not bad input, so they are not returned as
// ordinary errors: Fail logs and panics with a *Violation. Callers that need
// to observe them (tests, the CLI) recover and use errors.As.
package invariant

import (
	"errors"
	"fmt"
	"log/slog"
)

// Violation describes a broken native invariant.
type Violation struct {
	// Site names the native function that detected the violation.
	Site string
	// Message is a human readable description.
	Message string
	// Actual and Expected are set for dynamic type mismatches.
	Actual   string
	Expected string
}

func (v *Violation) Error() string {
	if v.Expected != "" {
		return fmt.Sprintf("fatal: %s(): %s: actual type %s, expected type %s", v.Site, v.Message, v.Actual, v.Expected)
	}
	return fmt.Sprintf("fatal: %s(): %s", v.Site, v.Message)
}

// New builds a Violation without raising it.
func New(site, format string, args ...any) *Violation {
	return &Violation{Site: site, Message: fmt.Sprintf(format, args...)}
}

// TypeMismatch builds a Violation for a value of the wrong dynamic type.
func TypeMismatch(site, actual, expected string) *Violation {
	return &Violation{
		Site:     site,
		Message:  "value of unexpected dynamic type",
		Actual:   actual,
		Expected: expected,
	}
}

// Fail logs v and panics with it.
func Fail(v *Violation) {
	slog.Error("native invariant violated", "site", v.Site, "error", v.Error())
	panic(v)
}

// Failf is shorthand for Fail(New(site, format, args...)).
func Failf(site, format string, args ...any) {
	Fail(New(site, format, args...))
}

// Recover converts a panic carrying a *Violation into an error, and re-panics
// for anything else. It is meant to be deferred:
//
//	defer invariant.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if v, ok := r.(*Violation); ok {
		*errp = v
		return
	}
	if err, ok := r.(error); ok {
		var v *Violation
		if errors.As(err, &v) {
			*errp = v
			return
		}
	}
	panic(r)
}
