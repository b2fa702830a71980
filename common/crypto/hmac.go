// Package crypto holds small shared cryptographic helpers used across
// sinks and transports, analogous to the teacher's common/crypto package
// (exchange API request signing) but scoped to this repo's HMAC webhook
// signing need.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignHMACSHA256 returns the hex-encoded HMAC-SHA256 of body under key,
// prefixed "sha256=" the way GitHub/Stripe-style webhook consumers expect
// to find and verify it.
func SignHMACSHA256(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
