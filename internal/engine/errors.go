package engine

import (
	"errors"
	"fmt"

	"wallet-ledger-go/internal/models"
)

// Kind classifies an engine failure for the caller.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindInsufficientFunds Kind = "InsufficientFunds"
	KindInvalidOperation  Kind = "InvalidOperation"
	KindOperationFailed   Kind = "OperationFailed"
)

// Sentinels for errors.Is; any *Error of the same kind matches.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrInvalidOperation  = &Error{Kind: KindInvalidOperation}
	ErrOperationFailed   = &Error{Kind: KindOperationFailed}
)

// Error is returned by every engine operation that fails for a domain reason.
// OperationFailed errors carry the log entry of the failed attempt.
type Error struct {
	Kind    Kind
	Message string
	Entry   *models.TransactionLog
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// EntryOf returns the log entry attached to err, if any.
func EntryOf(err error) *models.TransactionLog {
	var e *Error
	if errors.As(err, &e) {
		return e.Entry
	}
	return nil
}

func notFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func insufficientFunds() error {
	return &Error{Kind: KindInsufficientFunds, Message: "Insufficient funds"}
}

func invalidOperation(msg string) error {
	return &Error{Kind: KindInvalidOperation, Message: msg}
}
