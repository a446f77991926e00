// Package errors provides domain-specific error types for gdbstub.
//
// The stub distinguishes two failure classes that end a debugging
// session: capability rejections (the debugger asked the target for
// something it does not model, such as resuming with a signal) and
// transport failures on the debugger connection.  Everything else a
// debugger may probe for succeeds with a deterministic default and never
// reaches this package.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrSignalUnsupported     = errors.New("no support for resuming with signal")
	ErrSingleStepUnsupported = errors.New("single-step is not supported by this target")
	ErrNotConnected          = errors.New("not connected")
	ErrTimeout               = errors.New("operation timed out")
	ErrAuthFailed            = errors.New("authentication failed")
	ErrHostKeyMismatch       = errors.New("host key mismatch")
)

// ── Structured error types ───────────────────────────────────────────

// TargetError is a capability rejection raised by a target operation.
// It is reported to the debugger as an error reply and is never retried.
type TargetError struct {
	Op  string // "resume", "step", "write_registers", ...
	Err error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %s: %v", e.Op, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// TransportError represents a failure on the debugger connection.
type TransportError struct {
	Op   string // "listen", "accept", "peek", "read", "write"
	Addr string // network address involved
	Err  error  // underlying error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// GuardRailError reports a target whose single-step capability
// contradicts the behaviour its architecture requires.
type GuardRailError struct {
	Arch       string
	Behavior   string // "required" or "ignored"
	SingleStep bool   // whether the target exposes single-step
}

func (e *GuardRailError) Error() string {
	if e.SingleStep {
		return fmt.Sprintf("guard rail: %s single-step is %s, but the target implements it (drop --single-step or --guard-rail)",
			e.Arch, e.Behavior)
	}
	return fmt.Sprintf("guard rail: %s single-step is %s, but the target does not implement it (add --single-step)",
		e.Arch, e.Behavior)
}

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "forward"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Reject creates a TargetError for operation op.
func Reject(op string, err error) *TargetError {
	return &TargetError{Op: op, Err: err}
}

// Wrap creates a TransportError.
func Wrap(op, addr string, err error) *TransportError {
	return &TransportError{Op: op, Addr: addr, Err: err}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsTargetError reports whether err is a capability rejection.
func IsTargetError(err error) bool {
	var te *TargetError
	return errors.As(err, &te)
}

// ── Re-exports ───────────────────────────────────────────────────────

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }
