package math

import "testing"

func TestCompareBigInt(t *testing.T) {
	huge := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	cases := []struct {
		left, op, right string
		want            bool
	}{
		{"100", "==", "100", true},
		{"100", "!=", "100", false},
		{"100", ">", "99", true},
		{"99", ">", "100", false},
		{"100", ">=", "100", true},
		{"99", "<", "100", true},
		{"100", "<=", "100", true},
		{huge, ">", "0", true},
		{"not-a-number", "==", "1", false},
		{"1", "??", "1", false},
	}
	for _, c := range cases {
		if got := CompareBigInt(c.left, c.op, c.right); got != c.want {
			t.Errorf("CompareBigInt(%q, %q, %q) = %v, want %v", c.left, c.op, c.right, got, c.want)
		}
	}
}
