package echo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaudRateLimits(t *testing.T) {
	require.True(t, MinBaudRate < DefaultBaudRate)
	require.True(t, DefaultBaudRate < MaxBaudRate)
}

func TestClampBaudRate(t *testing.T) {
	testCases := []struct {
		in, out uint32
	}{
		{0, MinBaudRate},
		{100, MinBaudRate},
		{9599, MinBaudRate},
		{9600, 9600},
		{115200, 115200},
		{921600, 921600},
		{921601, MaxBaudRate},
		{10000000, MaxBaudRate},
		{math.MaxUint32, MaxBaudRate},
	}
	for _, tc := range testCases {
		require.Equalf(t, tc.out, ClampBaudRate(tc.in), "clamp(%d)", tc.in)
	}
}

func TestClampBaudRateIdempotent(t *testing.T) {
	for _, r := range []uint32{0, 1, 9600, 19200, 500000, 921600, 1 << 20, math.MaxUint32} {
		c := ClampBaudRate(r)
		require.Equal(t, c, ClampBaudRate(c))
		require.True(t, c >= MinBaudRate && c <= MaxBaudRate)
	}
}
