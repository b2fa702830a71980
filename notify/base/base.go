// Package base defines the common Sink contract every notification sink
// implements, and the "${var}" template interpolation shared by all of
// them. Adapted from the teacher's communications.IComm shape (Setup/
// IsEnabled/PushEvent), narrowed to this domain's single-method contract.
package base

import "strings"

// Sink is the contract every notification sink (Slack, Discord, Telegram,
// Email, Webhook, Script) implements. Send delivers title/body, already
// interpolated against a match's variable bag.
type Sink interface {
	Send(title, body string) error
}

// Interpolate replaces every "${name}" occurrence in tmpl with
// variables["name"]; unresolved placeholders are left untouched rather
// than erroring (variable lookups are best-effort, mirroring the filter
// DSL's "miss is never fatal" policy).
func Interpolate(tmpl string, variables map[string]string) string {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		start := strings.Index(tmpl[i:], "${")
		if start == -1 {
			b.WriteString(tmpl[i:])
			break
		}
		start += i
		b.WriteString(tmpl[i:start])
		end := strings.IndexByte(tmpl[start+2:], '}')
		if end == -1 {
			b.WriteString(tmpl[start:])
			break
		}
		end += start + 2
		name := tmpl[start+2 : end]
		if value, ok := variables[name]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(tmpl[start : end+1])
		}
		i = end + 1
	}
	return b.String()
}
