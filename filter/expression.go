package filter

import (
	"encoding/json"
	"strconv"
	"strings"

	commonmath "github.com/thrasher-corp/chainmonitor/common/math"
)

// ParamLookup resolves a parameter name or positional index to its decoded
// value and kind tag (spec.md §4.3.3).
type ParamLookup func(name string) (value string, kind string, ok bool)

// EvaluateExpression parses and evaluates expr against lookup. Any parse
// failure evaluates the whole expression to false rather than raising
// (spec.md §4.3.3).
func EvaluateExpression(expr string, lookup ParamLookup) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}
	var wellFormed func(s string) bool
	wellFormed = func(s string) bool {
		for _, disjunct := range splitTopLevel(s, "OR") {
			for _, f := range splitTopLevel(disjunct, "AND") {
				f = strings.TrimSpace(f)
				nested := strings.HasPrefix(f, "(") && matchingParenCoversAll(f)
				if _, _, _, ok := splitComparison(f); (nested && !wellFormed(f[1:len(f)-1])) || (!nested && !ok) {
					return false
				}
			}
		}
		return true
	}
	ok, rest := parseOr(expr, lookup)
	_ = rest
	return ok && wellFormed(expr)
}

func parseOr(s string, lookup ParamLookup) (bool, string) {
	parts := splitTopLevel(s, "OR")
	result := false
	for _, p := range parts {
		v, _ := parseAnd(p, lookup)
		result = result || v
	}
	return result, ""
}

func parseAnd(s string, lookup ParamLookup) (bool, string) {
	parts := splitTopLevel(s, "AND")
	result := true
	for _, p := range parts {
		v := parseFactor(p, lookup)
		result = result && v
	}
	return result, ""
}

func parseFactor(s string, lookup ParamLookup) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && matchingParenCoversAll(s) {
		inner := s[1 : len(s)-1]
		v, _ := parseOr(inner, lookup)
		return v
	}
	left, op, right, ok := splitComparison(s)
	if !ok {
		return false
	}
	return evaluateComparison(left, op, right, lookup)
}

// matchingParenCoversAll reports whether the opening "(" at index 0 closes
// exactly at the last character of s.
func matchingParenCoversAll(s string) bool {
	if len(s) < 2 || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	inQuote := byte(0)
	for i, c := range []byte(s) {
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inQuote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i == len(s)-1
			}
		}
	}
	return false
}

// splitTopLevel splits s on every top-level (outside quotes/parens)
// occurrence of the whole-word keyword.
func splitTopLevel(s, keyword string) []string {
	var parts []string
	depth := 0
	inQuote := byte(0)
	last := 0
	i := 0
	for i < len(s) {
		c := s[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			i++
			continue
		}
		switch c {
		case '\'', '"':
			inQuote = c
			i++
			continue
		case '(':
			depth++
			i++
			continue
		case ')':
			depth--
			i++
			continue
		}
		if depth == 0 && matchKeywordAt(s, i, keyword) {
			parts = append(parts, s[last:i])
			i += len(keyword)
			last = i
			continue
		}
		i++
	}
	parts = append(parts, s[last:])
	return parts
}

func matchKeywordAt(s string, i int, keyword string) bool {
	if i+len(keyword) > len(s) || s[i:i+len(keyword)] != keyword {
		return false
	}
	if i > 0 && isWordChar(s[i-1]) {
		return false
	}
	if i+len(keyword) < len(s) && isWordChar(s[i+len(keyword)]) {
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// comparisonOperators is checked longest-first so ">=" is not mistaken for ">".
var comparisonOperators = []string{"==", "!=", ">=", "<=", ">", "<", "contains"}

// splitComparison mirrors original_source's split_expression: finds the
// first top-level operator (outside quotes), honoring quoted literals on
// the right-hand side.
func splitComparison(s string) (left, op, right string, ok bool) {
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			inQuote = c
			continue
		}
		for _, op := range comparisonOperators {
			if strings.HasPrefix(s[i:], op) {
				left = strings.TrimSpace(s[:i])
				right = strings.TrimSpace(s[i+len(op):])
				right = strings.Trim(right, `'"`)
				return left, op, right, true
			}
		}
	}
	return "", "", "", false
}

var numericKindSet = map[string]bool{
	"i128": true, "u128": true, "i64": true, "u64": true,
}

func isNumericKind(kind string) bool {
	k := strings.ToLower(kind)
	if numericKindSet[k] {
		return true
	}
	return strings.HasPrefix(k, "uint") || strings.HasPrefix(k, "int")
}

func evaluateComparison(left, op, right string, lookup ParamLookup) bool {
	name := left
	var dottedKey string
	if idx := strings.Index(left, "."); idx > 0 {
		name = left[:idx]
		dottedKey = left[idx+1:]
	}

	value, kind, ok := lookup(name)
	if !ok {
		return false
	}

	if dottedKey != "" {
		subValue, subKind, ok := resolveMapField(value, kind, dottedKey)
		if !ok {
			return false
		}
		value, kind = subValue, subKind
	} else if strings.EqualFold(kind, "map") {
		// Map kind is only comparable via dotted access.
		return false
	}

	switch {
	case isNumericKind(kind):
		return compareNumeric(value, op, right)
	case strings.EqualFold(kind, "address"):
		if op != "==" && op != "!=" {
			return false
		}
		eq := AddressesEqual(value, right)
		if op == "!=" {
			return !eq
		}
		return eq
	case strings.EqualFold(kind, "bool"):
		if op != "==" && op != "!=" {
			return false
		}
		lb, err1 := strconv.ParseBool(value)
		rb, err2 := strconv.ParseBool(right)
		if err1 != nil || err2 != nil {
			return false
		}
		eq := lb == rb
		if op == "!=" {
			return !eq
		}
		return eq
	case strings.EqualFold(kind, "string") || strings.EqualFold(kind, "symbol") || strings.EqualFold(kind, "bytes"):
		switch op {
		case "==":
			return value == right
		case "!=":
			return value != right
		case "contains":
			return strings.Contains(value, right)
		default:
			return false
		}
	case strings.EqualFold(kind, "vec"):
		switch op {
		case "==":
			return value == right
		case "!=":
			return value != right
		case "contains":
			return vecContains(value, right)
		default:
			return false
		}
	default:
		return false
	}
}

func compareNumeric(left, op, right string) bool {
	return commonmath.CompareBigInt(left, op, right)
}

// resolveMapField parses value as JSON (the Map kind's serialized form) and
// extracts field, inferring a leaf kind from the JSON value's shape.
func resolveMapField(value, kind, field string) (string, string, bool) {
	if !strings.EqualFold(kind, "map") {
		return "", "", false
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(value), &obj); err != nil {
		return "", "", false
	}
	raw, ok := obj[field]
	if !ok {
		return "", "", false
	}
	switch v := raw.(type) {
	case string:
		return v, "string", true
	case bool:
		return strconv.FormatBool(v), "bool", true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), "int", true
	default:
		b, _ := json.Marshal(v)
		return string(b), "string", true
	}
}

// vecContains reports whether right appears as an element of the Vec's
// serialized JSON-array form.
func vecContains(serialized, elem string) bool {
	var arr []interface{}
	if err := json.Unmarshal([]byte(serialized), &arr); err != nil {
		return strings.Contains(serialized, elem)
	}
	for _, v := range arr {
		var s string
		switch t := v.(type) {
		case string:
			s = t
		default:
			b, _ := json.Marshal(t)
			s = string(b)
		}
		if s == elem {
			return true
		}
	}
	return false
}
