// Package filter implements the chain-specific block filters: matching
// decoded transactions, function calls and events against a monitor's
// MatchConditions and the boolean expression DSL (spec.md §4.3).
package filter

import (
	"fmt"

	"go.uber.org/zap"
)

// ErrorKind is the closed set of filter failure modes.
type ErrorKind int

const (
	KindABIDecode ErrorKind = iota
	KindReceiptFetch
	KindInternal
)

// Error is the single error type the filter engine returns.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

var log = zap.NewNop().Sugar()

// SetLogger installs the package-wide sugared logger.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}

func ABIDecodeError(msg string, cause error) *Error {
	log.Warnw("filter: abi decode failed", "message", msg, "cause", cause)
	return &Error{Kind: KindABIDecode, Message: msg, Cause: cause}
}

func ReceiptFetchError(msg string, cause error) *Error {
	log.Warnw("filter: receipt fetch failed", "message", msg, "cause", cause)
	return &Error{Kind: KindReceiptFetch, Message: msg, Cause: cause}
}

func InternalError(msg string) *Error {
	log.Errorw("filter: internal error", "message", msg)
	return &Error{Kind: KindInternal, Message: msg}
}
