package echo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var erase = []byte{Backspace, Space, Backspace}

func isIdentity(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '\n', b == '\r', b == '\t':
		return true
	}
	return b < 0x80 && strings.IndexByte(symbols, b) >= 0
}

func TestEchoAllBytes(t *testing.T) {
	for i := 0; i < 256; i++ {
		b := byte(i)
		out := Echo(b)
		switch {
		case b == Backspace || b == Delete:
			require.Equalf(t, erase, out.Bytes(), "byte 0x%02x", b)
		case isIdentity(b):
			require.Equalf(t, []byte{b}, out.Bytes(), "byte 0x%02x", b)
		default:
			require.Truef(t, out.IsEmpty(), "byte 0x%02x should be dropped", b)
		}
	}
}

func TestEcho(t *testing.T) {
	testCases := []struct {
		name string
		in   byte
		out  []byte
	}{
		{"letter", 'A', []byte("A")},
		{"lower", 'z', []byte("z")},
		{"digit", '7', []byte("7")},
		{"space", ' ', []byte(" ")},
		{"backslash", '\\', []byte("\\")},
		{"backtick", '`', []byte("`")},
		{"tilde", '~', []byte("~")},
		{"newline", '\n', []byte("\n")},
		{"return", '\r', []byte("\r")},
		{"tab", '\t', []byte("\t")},
		{"backspace", 0x08, erase},
		{"delete", 0x7f, erase},
		{"nul", 0x00, nil},
		{"soh", 0x01, nil},
		{"vt", 0x0b, nil},
		{"ff", 0x0c, nil},
		{"esc", 0x1b, nil},
		{"high", 0x80, nil},
		{"ff byte", 0xff, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := Echo(tc.in)
			if tc.out == nil {
				require.Zero(t, out.Len())
				require.Empty(t, out.Bytes())
				return
			}
			require.Equal(t, tc.out, out.Bytes())
			require.Equal(t, len(tc.out), out.Len())
		})
	}
}

func TestNewEngine(t *testing.T) {
	e := New()
	require.Equal(t, uint64(0), e.ProcessedCount())
	require.Equal(t, uint32(115200), e.BaudRate())
	require.Equal(t, ModeClassify, e.Mode)
	_, ok := e.LastByte()
	require.False(t, ok)
}

func TestNewWithBaudRate(t *testing.T) {
	require.Equal(t, uint32(57600), NewWithBaudRate(57600).BaudRate())
	require.Equal(t, MinBaudRate, NewWithBaudRate(100).BaudRate())
	require.Equal(t, MaxBaudRate, NewWithBaudRate(10000000).BaudRate())
	require.Equal(t, uint64(0), NewWithBaudRate(100).ProcessedCount())
}

func TestProcess(t *testing.T) {
	e := New()
	out := e.Process('A')
	require.Equal(t, []byte{0x41}, out.Bytes())
	require.Equal(t, uint64(1), e.ProcessedCount())

	e = New()
	out = e.Process(0x08)
	require.Equal(t, erase, out.Bytes())
	require.Equal(t, uint64(1), e.ProcessedCount())

	e = New()
	e.Process('A')
	e.Process(0x08)
	e.Process('B')
	require.Equal(t, uint64(3), e.ProcessedCount())
	last, ok := e.LastByte()
	require.True(t, ok)
	require.Equal(t, byte('B'), last)
}

func TestProcessCountsDroppedBytes(t *testing.T) {
	e := New()
	for i := 0; i < 256; i++ {
		before := e.ProcessedCount()
		e.Process(byte(i))
		require.Equal(t, before+1, e.ProcessedCount())
	}
	require.Equal(t, uint64(256), e.ProcessedCount())
}

func TestProcessPassthrough(t *testing.T) {
	e := New()
	e.Mode = ModePassthrough
	for i := 0; i < 256; i++ {
		out := e.Process(byte(i))
		require.Equal(t, []byte{byte(i)}, out.Bytes())
	}
	require.Equal(t, uint64(256), e.ProcessedCount())
}

func TestSetBaudRate(t *testing.T) {
	e := New()
	e.SetBaudRate(38400)
	require.Equal(t, uint32(38400), e.BaudRate())
	e.SetBaudRate(100)
	require.Equal(t, MinBaudRate, e.BaudRate())
	e.SetBaudRate(1 << 31)
	require.Equal(t, MaxBaudRate, e.BaudRate())
}

func TestTracer(t *testing.T) {
	var phases []Phase
	e := New()
	e.Tracer = TransitionFunc(func(from, to Phase, b byte) {
		require.Equal(t, byte('x'), b)
		if len(phases) == 0 {
			phases = append(phases, from)
		}
		require.Equal(t, phases[len(phases)-1], from)
		phases = append(phases, to)
	})
	e.Process('x')
	require.Equal(t, []Phase{PhaseIdle, PhaseReceiving, PhaseEchoing, PhaseIdle}, phases)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("passthrough")
	require.NoError(t, err)
	require.Equal(t, ModePassthrough, m)
	m, err = ParseMode("classify")
	require.NoError(t, err)
	require.Equal(t, ModeClassify, m)
	_, err = ParseMode("loud")
	require.Error(t, err)
	require.Equal(t, "passthrough", ModePassthrough.String())
}
