package link

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartecho/pkg/echo"
)

func TestParseInput(t *testing.T) {
	testCases := []struct {
		text string
		out  []byte
	}{
		{`AB`, []byte("AB")},
		{`a\bb`, []byte{'a', 0x08, 'b'}},
		{`x\x7f`, []byte{'x', 0x7f}},
		{`say "hi"`, []byte(`say "hi"`)},
		{`0x41 08 ff`, []byte{0x41, 0x08, 0xff}},
	}
	for _, tc := range testCases {
		out, err := ParseInput(tc.text)
		require.NoError(t, err, tc.text)
		require.Equal(t, tc.out, out, tc.text)
	}
	_, err := ParseInput(`\q`)
	require.Error(t, err)
}

func TestTry(t *testing.T) {
	res := Try([]byte{'A', 0x08, 'B', 0x00}, echo.ModeClassify)
	require.Equal(t, []byte{'A', 0x08, ' ', 0x08, 'B'}, res.Output)
	require.Equal(t, uint64(4), res.Processed)
	require.Equal(t, "in  41 08 42 00\nout 41 08 20 08 42\nprocessed 4", res.String())

	res = Try([]byte{0x08, 0x00}, echo.ModePassthrough)
	require.Equal(t, []byte{0x08, 0x00}, res.Output)
}

func TestPortListString(t *testing.T) {
	require.Equal(t, "No serial ports found", portList(nil).String())
}
