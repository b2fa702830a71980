// Package triggersvc implements blockwatcher.TriggerExecutionService,
// dispatching named triggers to the matching notify/ sink and interpolating
// each trigger's message template against a match's variable bag.
package triggersvc

import (
	"fmt"

	"go.uber.org/zap"
)

// Error wraps a single trigger's dispatch failure with the trigger name
// that produced it, so Execute can log per-trigger errors without losing
// which one failed.
type Error struct {
	Trigger string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("trigger %q: %v", e.Trigger, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func triggerError(name string, cause error) *Error {
	return &Error{Trigger: name, Cause: cause}
}

var log = zap.NewNop().Sugar()

// SetLogger installs the package-wide sugared logger.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}
