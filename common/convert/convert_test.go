package convert

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHexToUint64(t *testing.T) {
	n, err := HexToUint64("0x10")
	require.NoError(t, err)
	require.Equal(t, uint64(16), n)

	n, err = HexToUint64("ff")
	require.NoError(t, err)
	require.Equal(t, uint64(255), n)

	_, err = HexToUint64("0xzz")
	require.Error(t, err)
}

func TestHexToTime(t *testing.T) {
	ts := HexToTime("0x5f5e100")
	require.Equal(t, time.Unix(100000000, 0).UTC(), ts)

	require.True(t, HexToTime("not-hex").IsZero())
}

func TestWeiToEtherString(t *testing.T) {
	require.Equal(t, "1.5", WeiToEtherString(big.NewInt(1500000000000000000)))
	require.Equal(t, "0", WeiToEtherString(big.NewInt(0)))
	require.Equal(t, "0", WeiToEtherString(nil))

	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	require.Equal(t, "123456789012.34567890123456789", WeiToEtherString(huge))
}
