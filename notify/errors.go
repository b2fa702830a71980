// Package notify implements the notification sinks a Trigger dispatches
// to: Slack, Discord, Telegram, Email, Webhook and Script. Each sink takes
// a {title, body} pair already interpolated against a match's variable
// bag (see blockwatcher.buildVariables) and performs the side effect.
package notify

import (
	"fmt"

	"go.uber.org/zap"
)

// ErrorKind is the closed set of notification failure modes.
type ErrorKind int

const (
	KindDeliveryFailed ErrorKind = iota
	KindConfig
	KindScriptNotFound
	KindScriptExecution
	KindScriptParse
	KindScriptSystem
)

// Error is the single error type every sink returns.
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

func DeliveryError(sink, msg string, cause error) *Error {
	log.Errorw("notify: delivery failed", "sink", sink, "message", msg, "cause", cause)
	return &Error{Kind: KindDeliveryFailed, Message: msg, Cause: cause}
}

func ConfigError(sink, msg string) *Error {
	log.Errorw("notify: invalid config", "sink", sink, "message", msg)
	return &Error{Kind: KindConfig, Message: msg}
}

// Script errors mirror original_source's ScriptError variants
// (NotFound/ExecutionError/ParseError/SystemError).
func ScriptNotFoundError(msg string) *Error {
	log.Errorw("notify: script not found", "message", msg)
	return &Error{Kind: KindScriptNotFound, Message: "Script not found: " + msg}
}

func ScriptExecutionError(msg string, cause error) *Error {
	log.Errorw("notify: script execution error", "message", msg, "cause", cause)
	return &Error{Kind: KindScriptExecution, Message: "Script execution error: " + msg, Cause: cause}
}

func ScriptParseError(msg string) *Error {
	log.Errorw("notify: script parse error", "message", msg)
	return &Error{Kind: KindScriptParse, Message: "Script parse error: " + msg}
}

func ScriptSystemError(msg string, cause error) *Error {
	log.Errorw("notify: script system error", "message", msg, "cause", cause)
	return &Error{Kind: KindScriptSystem, Message: "System error: " + msg, Cause: cause}
}
