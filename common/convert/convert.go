// Package convert holds small shared type-conversion helpers, analogous
// to the teacher's common/convert package (string/unix-timestamp
// conversions for exchange payloads) but scoped to this repo's need to
// decode the hex-string integers JSON-RPC block providers return.
package convert

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// weiPerEther is 10^18, the scale every EVM-native asset value (wei,
// the smallest ERC-20 unit under the common 18-decimal convention) is
// denominated in.
var weiPerEther = decimal.New(1, 18)

// HexToUint64 parses a "0x"-prefixed (or bare) hex string into a uint64,
// the shape every EVM JSON-RPC integer field (block number, timestamp,
// gas, nonce) is returned in.
func HexToUint64(hex string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(hex, "0x"), 16, 64)
}

// HexToTime parses a "0x"-prefixed hex Unix timestamp into a time.Time,
// returning the zero value (rather than erroring) on a malformed input
// so a bad timestamp field never blocks decoding the rest of a block.
func HexToTime(hex string) time.Time {
	secs, err := HexToUint64(hex)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0).UTC()
}

// WeiToEtherString renders wei (base units, 18 decimals) as a
// human-friendly decimal string, e.g. "1500000000000000000" -> "1.5",
// for display in logs and trigger templates alongside the raw integer
// value. A nil wei renders as "0".
func WeiToEtherString(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	s := decimal.NewFromBigInt(wei, 0).DivRound(weiPerEther, 18).String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
