// Package math holds small shared numeric helpers, analogous to the
// teacher's common/math package (fee/profit arithmetic) but scoped to
// this repo's need to compare arbitrary-precision on-chain integers
// (wei amounts, gas prices, Stellar stroop balances) that overflow
// int64/float64.
package math

import (
	"math/big"
	"strings"
)

// CompareBigInt parses left and right as base-10 big integers and
// applies op ("==", "!=", ">", ">=", "<", "<="), returning false for
// any unparseable operand or unrecognised operator rather than
// erroring, matching the filter engine's permissive "no match" default
// for malformed conditions.
func CompareBigInt(left, op, right string) bool {
	l, ok1 := new(big.Int).SetString(strings.TrimSpace(left), 10)
	r, ok2 := new(big.Int).SetString(strings.TrimSpace(right), 10)
	if !ok1 || !ok2 {
		return false
	}
	cmp := l.Cmp(r)
	switch op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	default:
		return false
	}
}
