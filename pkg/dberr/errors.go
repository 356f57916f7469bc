// Package dberr defines the structured errors surfaced by the database
// layer. Every failure carries its kind and the protocol phase it occurred
// in, so callers can diagnose without inspecting internals.
package dberr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a database-layer failure.
type Kind string

const (
	KindInvalidConfig     Kind = "invalid_config"
	KindConnect           Kind = "connect_error"
	KindAcquireTimeout    Kind = "acquire_timeout"
	KindNestedTransaction Kind = "nested_transaction"
	KindCommitFailed      Kind = "commit_failed"
	KindRollbackFailed    Kind = "rollback_failed"
	KindTxClosed          Kind = "tx_closed"
)

// Protocol phases, recorded on errors for diagnostics.
const (
	PhaseConfig   = "config"
	PhaseConnect  = "connect"
	PhaseAcquire  = "acquire"
	PhaseBegin    = "begin"
	PhaseRun      = "run"
	PhaseCommit   = "commit"
	PhaseRollback = "rollback"
)

// Error is the structured error type of the database layer.
type Error struct {
	Kind    Kind
	Phase   string
	Message string
	Err     error // Wrapped underlying driver error, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Phase, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Phase, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, unwrapping as needed. It returns the
// empty Kind when err is nil or carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// InvalidConfig reports a bad pool configuration, detected before any I/O.
func InvalidConfig(message string) *Error {
	return &Error{Kind: KindInvalidConfig, Phase: PhaseConfig, Message: message}
}

// ConnectFailed reports a handshake, auth, or network failure. phase is
// where the failure surfaced (connect or begin).
func ConnectFailed(phase string, err error) *Error {
	return &Error{Kind: KindConnect, Phase: phase, Message: "database connection failed", Err: err}
}

// AcquireTimeout reports that no connection became free within the bound.
func AcquireTimeout(timeout time.Duration, err error) *Error {
	return &Error{
		Kind:    KindAcquireTimeout,
		Phase:   PhaseAcquire,
		Message: fmt.Sprintf("no connection available within %s", timeout),
		Err:     err,
	}
}

// NestedTransaction reports re-entrant use of the transaction executor.
func NestedTransaction() *Error {
	return &Error{
		Kind:    KindNestedTransaction,
		Phase:   PhaseBegin,
		Message: "already inside a transaction",
	}
}

// CommitFailed reports a failed commit. The unit of work's result is lost;
// the database guarantees no partial effects remain.
func CommitFailed(err error) *Error {
	return &Error{Kind: KindCommitFailed, Phase: PhaseCommit, Message: "transaction commit failed", Err: err}
}

// RollbackFailed reports a failed rollback. Both the original cause and
// the rollback fault are retained and remain matchable with errors.Is/As.
func RollbackFailed(cause, rollbackErr error) *Error {
	return &Error{
		Kind:    KindRollbackFailed,
		Phase:   PhaseRollback,
		Message: fmt.Sprintf("transaction rollback failed after: %v", cause),
		Err:     errors.Join(cause, rollbackErr),
	}
}

// TxClosed reports use of a transaction handle whose transaction has
// already ended.
func TxClosed() *Error {
	return &Error{
		Kind:    KindTxClosed,
		Phase:   PhaseRun,
		Message: "transaction handle is no longer valid",
	}
}
