// Package blockchain implements chain clients (spec.md §4.1) on top of the
// transport carriers: fetching block ranges, transaction receipts and
// contract logs, and exposing the uniform BlockChainClient contract the
// block pipeline drives.
package blockchain

import (
	"fmt"

	"go.uber.org/zap"
)

// ErrorKind is the closed set of client-level failure modes.
type ErrorKind int

const (
	KindConnection ErrorKind = iota
	KindRequest
	KindBlockNotFound
	KindTransaction
	KindInternal
	KindClientPool
)

// Error is the single error type returned by every blockchain client.
type Error struct {
	Kind        ErrorKind
	Message     string
	BlockNumber uint64
	Cause       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConnection:
		return fmt.Sprintf("connection error: %s", e.Message)
	case KindRequest:
		return fmt.Sprintf("request error: %s", e.Message)
	case KindBlockNotFound:
		return fmt.Sprintf("block not found: %d", e.BlockNumber)
	case KindTransaction:
		return fmt.Sprintf("transaction error: %s", e.Message)
	case KindClientPool:
		return fmt.Sprintf("client pool error: %s", e.Message)
	default:
		return fmt.Sprintf("internal error: %s", e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

var log = zap.NewNop().Sugar()

// SetLogger installs the package-wide sugared logger.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}

func newErr(kind ErrorKind, msg string) *Error {
	e := &Error{Kind: kind, Message: msg}
	log.Errorw("blockchain error", "kind", kind, "message", msg)
	return e
}

func ConnectionError(msg string) *Error { return newErr(KindConnection, msg) }
func RequestError(msg string) *Error    { return newErr(KindRequest, msg) }
func TransactionError(msg string) *Error { return newErr(KindTransaction, msg) }
func InternalError(msg string) *Error   { return newErr(KindInternal, msg) }
func ClientPoolError(msg string) *Error { return newErr(KindClientPool, msg) }

// BlockNotFound reports a gap in a get_blocks range (spec.md §4.4.1).
func BlockNotFound(number uint64) *Error {
	e := &Error{Kind: KindBlockNotFound, BlockNumber: number}
	log.Errorw("blockchain error", "kind", "block_not_found", "number", number)
	return e
}
