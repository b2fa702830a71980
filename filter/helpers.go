package filter

import "strings"

// NormalizeAddress lowercases an address and strips a leading "0x" so
// address comparisons are case- and prefix-insensitive (spec.md §4.3.1
// step 2).
func NormalizeAddress(addr string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(addr)), "0x")
}

// AddressesEqual compares two addresses under NormalizeAddress.
func AddressesEqual(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}

// NormalizeSignature collapses whitespace and lowercases a function/event
// signature so `"Transfer(address, uint256)"` and `"transfer(address,uint256)"`
// compare equal (spec.md §4.3.1 steps 4-5).
func NormalizeSignature(sig string) string {
	var b strings.Builder
	for _, r := range sig {
		if r == ' ' || r == '\t' || r == '\n' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// SignaturesEqual compares two signatures under NormalizeSignature.
func SignaturesEqual(a, b string) bool {
	return NormalizeSignature(a) == NormalizeSignature(b)
}

// involvedAddresses builds the normalized address set used by the
// has_address_match requirement (spec.md §4.3.1 step 2/6).
func involvedAddresses(addrs ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		if a == "" {
			continue
		}
		set[NormalizeAddress(a)] = struct{}{}
	}
	return set
}

// hasAddressMatch reports whether any monitored address appears in the
// involved-address set.
func hasAddressMatch(involved map[string]struct{}, monitored []string) bool {
	for _, m := range monitored {
		if _, ok := involved[NormalizeAddress(m)]; ok {
			return true
		}
	}
	return false
}

// combineMatch implements the match-combining truth table from spec.md
// §4.3.1 step 6 / §4.3.2, shared by both chain filters.
func combineMatch(txConditionsEmpty, fnConditionsEmpty, evConditionsEmpty bool, ht, hf, ha bool) bool {
	if txConditionsEmpty && fnConditionsEmpty && evConditionsEmpty {
		return true
	}
	if !txConditionsEmpty && fnConditionsEmpty && evConditionsEmpty {
		return ht
	}
	if txConditionsEmpty {
		return ha || hf
	}
	return (ha || hf) && ht
}
