// Package transport implements the endpoint rotation core and the HTTP and
// WebSocket carriers that sit underneath every chain client.
package transport

import (
	"fmt"

	"go.uber.org/zap"
)

// ErrorKind is the closed set of transport failure modes (spec.md §7).
type ErrorKind int

const (
	// KindHTTP: the remote endpoint answered with a non-2xx status.
	KindHTTP ErrorKind = iota
	// KindNetwork: a connect/timeout/frame-level failure, no response.
	KindNetwork
	// KindURLRotation: rotation could not proceed (no fallback, or the
	// fallback itself failed to connect).
	KindURLRotation
	// KindRequestSerialization: the outgoing JSON-RPC envelope could not be
	// serialized. Non-retryable.
	KindRequestSerialization
	// KindResponseParse: the response body was not valid JSON. Non-retryable.
	KindResponseParse
)

// Error is the transport layer's single error type, carrying enough detail
// to decide retry/rotation policy upstream.
type Error struct {
	Kind   ErrorKind
	Status int
	URL    string
	Body   string
	Cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("http error: status=%d url=%s body=%s", e.Status, e.URL, e.Body)
	case KindNetwork:
		return fmt.Sprintf("network error: %v", e.Cause)
	case KindURLRotation:
		return fmt.Sprintf("url rotation error: %s", e.Body)
	case KindRequestSerialization:
		return fmt.Sprintf("request serialization error: %v", e.Cause)
	case KindResponseParse:
		return fmt.Sprintf("response parse error: %v", e.Cause)
	default:
		return "unknown transport error"
	}
}

func (e *Error) Unwrap() error { return e.Cause }

var log = zap.NewNop().Sugar()

// SetLogger installs the package-wide sugared logger used when constructing
// errors below. Bootstrap calls this once with the real logger.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}

// NewHTTPError builds and logs a KindHTTP error.
func NewHTTPError(status int, url, body string) *Error {
	e := &Error{Kind: KindHTTP, Status: status, URL: url, Body: body}
	log.Errorw("transport error", "kind", "http", "status", status, "url", url)
	return e
}

// NewNetworkError builds and logs a KindNetwork error.
func NewNetworkError(cause error) *Error {
	e := &Error{Kind: KindNetwork, Cause: cause}
	log.Errorw("transport error", "kind", "network", "cause", cause)
	return e
}

// NewURLRotationError builds and logs a KindURLRotation error.
func NewURLRotationError(message string) *Error {
	e := &Error{Kind: KindURLRotation, Body: message}
	log.Errorw("transport error", "kind", "url_rotation", "message", message)
	return e
}

// NewRequestSerializationError builds and logs a KindRequestSerialization error.
func NewRequestSerializationError(cause error) *Error {
	e := &Error{Kind: KindRequestSerialization, Cause: cause}
	log.Errorw("transport error", "kind", "request_serialization", "cause", cause)
	return e
}

// NewResponseParseError builds and logs a KindResponseParse error.
func NewResponseParseError(cause error) *Error {
	e := &Error{Kind: KindResponseParse, Cause: cause}
	log.Errorw("transport error", "kind", "response_parse", "cause", cause)
	return e
}
