// Package harnesserr defines the harness's typed error taxonomy. Every error
// that crosses a phase boundary (spec parsing, workload setup/start/check/stop,
// controller aggregation) is one of these, wrapped with github.com/pkg/errors
// so callers keep a stack trace and a cause chain while still being able to
// classify the failure with errors.Is.
package harnesserr

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors classifying why a phase or operation failed. Compare with
// errors.Is, never by string or by pointer equality against a wrapped value.
var (
	// TestSpecInvalid means the spec file or an option block failed validation
	// before any workload ran.
	TestSpecInvalid = errors.New("test spec invalid")

	// OperationFailed means a workload or collaborator reported a failure that
	// is not a timeout and not a reboot request.
	OperationFailed = errors.New("operation failed")

	// TimedOut means a phase did not complete within its allotted time.
	TimedOut = errors.New("operation timed out")

	// PleaseReboot asks the controller to restart the tester process running
	// this workload without deleting its on-disk state.
	PleaseReboot = errors.New("please reboot")

	// PleaseRebootDelete asks the controller to restart the tester process and
	// discard its on-disk state.
	PleaseRebootDelete = errors.New("please reboot and delete")
)

// IsCancelled reports whether err represents cooperative cancellation rather
// than a genuine failure. The harness maps Flow's ActorCancelled onto Go's
// context.Canceled, since context cancellation is the idiomatic equivalent of
// an actor being cancelled out from under its caller.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsReboot reports whether err is PleaseReboot or PleaseRebootDelete. Runner
// code must never swallow or rewrap these: they propagate to the process
// boundary unchanged.
func IsReboot(err error) bool {
	return errors.Is(err, PleaseReboot) || errors.Is(err, PleaseRebootDelete)
}

// Invalid returns a TestSpecInvalid error carrying msg.
func Invalid(msg string) error {
	return errors.WithMessage(TestSpecInvalid, msg)
}

// Failed wraps err as OperationFailed, preserving err's own message and stack:
// the result matches both OperationFailed and err under errors.Is.
func Failed(err error, msg string) error {
	if err == nil {
		return errors.WithMessage(OperationFailed, msg)
	}
	return errors.WithStack(fmt.Errorf("%s: %w: %w", msg, OperationFailed, err))
}

// Timeout wraps TimedOut with a message describing which phase or operation
// exceeded its deadline.
func Timeout(msg string) error {
	return errors.WithMessage(TimedOut, msg)
}
