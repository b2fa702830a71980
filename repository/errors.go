// Package repository loads the three declarative configuration
// directories (networks/, monitors/, triggers/) into validated in-memory
// sets, per spec.md §6 ("Every Monitor's networks[i] exists; every
// triggers[i] exists").
package repository

import (
	"fmt"

	"go.uber.org/zap"
)

// ErrorKind distinguishes a failure to read/parse configuration from a
// failure to satisfy its cross-reference invariants.
type ErrorKind int

const (
	KindLoadError ErrorKind = iota
	KindValidationError
)

// Error is the single error type every repository loader returns.
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

func LoadError(msg string, cause error) *Error {
	log.Errorw("repository: load error", "message", msg, "cause", cause)
	return &Error{Kind: KindLoadError, Message: msg, Cause: cause}
}

func ValidationError(msg string) *Error {
	log.Errorw("repository: validation error", "message", msg)
	return &Error{Kind: KindValidationError, Message: msg}
}
