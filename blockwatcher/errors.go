// Package blockwatcher implements the block pipeline: the per-network
// polling loop, the missed/out-of-order block tracker, durable storage of
// processing progress, and the block/trigger handlers that drive the
// filter engine and trigger dispatch (spec.md §4.4).
package blockwatcher

import (
	"fmt"

	"go.uber.org/zap"
)

// ErrorKind is the closed set of pipeline failure modes.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindStorage
	KindBlockTracker
	KindInternal
)

// Error is the single error type the block pipeline returns.
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

func NetworkError(msg string) *Error {
	log.Errorw("blockwatcher error", "kind", "network", "message", msg)
	return &Error{Kind: KindNetwork, Message: msg}
}

func StorageError(msg string, cause error) *Error {
	log.Errorw("blockwatcher error", "kind", "storage", "message", msg, "cause", cause)
	return &Error{Kind: KindStorage, Message: msg, Cause: cause}
}

func BlockTrackerError(msg string) *Error {
	log.Warnw("blockwatcher error", "kind", "block_tracker", "message", msg)
	return &Error{Kind: KindBlockTracker, Message: msg}
}

func InternalError(msg string) *Error {
	log.Errorw("blockwatcher error", "kind", "internal", "message", msg)
	return &Error{Kind: KindInternal, Message: msg}
}
