package uart

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartecho/pkg/echo"
)

type chanPort struct {
	readCh   chan byte
	writeCh  chan byte
	writeErr error
	closed   chan struct{}
	baudRate uint32
}

func newChanPort() *chanPort {
	return &chanPort{
		readCh:  make(chan byte),
		writeCh: make(chan byte, 16),
		closed:  make(chan struct{}),
	}
}

func (p *chanPort) Read(buf []byte) (int, error) {
	b, ok := <-p.readCh
	if !ok {
		return 0, io.EOF
	}
	buf[0] = b
	return 1, nil
}

func (p *chanPort) Write(buf []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	for _, b := range buf {
		p.writeCh <- b
	}
	return len(buf), nil
}

func (p *chanPort) Close() error {
	close(p.closed)
	return nil
}

func (p *chanPort) SetBaudRate(rate uint32) error {
	p.baudRate = rate
	return nil
}

func (p *chanPort) expect(t *testing.T, bs ...byte) {
	for i, b := range bs {
		select {
		case actual := <-p.writeCh:
			require.Equalf(t, b, actual, "byte[%d] mismatch", i)
		case <-time.After(time.Second):
			t.Fatalf("byte[%d] timeout", i)
		}
	}
}

func runLink(link *Link) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- link.Run(ctx) }()
	return cancel, errCh
}

func TestLinkEcho(t *testing.T) {
	port := newChanPort()
	link := NewLink(port, echo.New())
	require.False(t, link.ReadTimeout)
	cancel, errCh := runLink(link)
	defer cancel()

	for _, b := range []byte{'A', 0x08, 0x01, 'B', 0x7f} {
		port.readCh <- b
	}
	port.expect(t, 'A', 0x08, ' ', 0x08, 'B', 0x08, ' ', 0x08)

	close(port.readCh)
	require.Equal(t, io.EOF, <-errCh)
	<-port.closed

	stats := link.Stats()
	require.Equal(t, uint64(5), stats.Processed)
	require.Equal(t, uint64(2), stats.Echoed)
	require.Equal(t, uint64(2), stats.Erased)
	require.Equal(t, uint64(1), stats.Dropped)
	require.Equal(t, uint64(8), stats.BytesOut)
	require.NotNil(t, stats.LastByte)
	require.Equal(t, byte(0x7f), *stats.LastByte)
	require.Empty(t, port.writeCh)
}

func TestLinkCancel(t *testing.T) {
	port := newChanPort()
	cancel, errCh := runLink(NewLink(port, echo.New()))
	cancel()
	require.True(t, errors.Is(<-errCh, context.Canceled))
	<-port.closed
}

func TestLinkWriteError(t *testing.T) {
	port := newChanPort()
	port.writeErr = errors.New("tx failed")
	link := NewLink(port, echo.New())
	cancel, errCh := runLink(link)
	defer cancel()

	// dropped bytes are never written.
	port.readCh <- 0x00
	port.readCh <- 'x'
	require.Equal(t, port.writeErr, <-errCh)
	require.Equal(t, uint64(2), link.Stats().Processed)
}

func TestLinkNetPort(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	port := NewNetPort(local)
	port.PollInterval = 10 * time.Millisecond
	link := NewLink(port, echo.New())
	require.True(t, link.ReadTimeout)
	cancel, errCh := runLink(link)

	go remote.Write([]byte("hi\x1b\x7f!\r\n"))
	buf := make([]byte, 8)
	remote.SetReadDeadline(time.Now().Add(time.Second))
	_, err := io.ReadFull(remote, buf)
	require.NoError(t, err)
	require.Equal(t, []byte("hi\x08 \x08!\r\n"), buf)

	cancel()
	require.True(t, errors.Is(<-errCh, context.Canceled))
	require.Equal(t, uint64(7), link.Stats().Processed)
}

func TestLinkPassthrough(t *testing.T) {
	port := newChanPort()
	link := NewLink(port, echo.New())
	link.SetMode(echo.ModePassthrough)
	cancel, errCh := runLink(link)
	defer cancel()

	for _, b := range []byte{0x08, 0x00, 0xff} {
		port.readCh <- b
	}
	port.expect(t, 0x08, 0x00, 0xff)
	close(port.readCh)
	<-errCh

	stats := link.Stats()
	require.Equal(t, echo.ModePassthrough, stats.Mode)
	require.Equal(t, uint64(3), stats.Echoed)
	require.Zero(t, stats.Erased)
	require.Zero(t, stats.Dropped)
}

func TestLinkSetBaudRate(t *testing.T) {
	port := newChanPort()
	link := NewLink(port, echo.NewWithBaudRate(9600))
	rate, err := link.SetBaudRate(57600)
	require.NoError(t, err)
	require.Equal(t, uint32(57600), rate)
	require.Equal(t, uint32(57600), port.baudRate)

	rate, err = link.SetBaudRate(5)
	require.NoError(t, err)
	require.Equal(t, echo.MinBaudRate, rate)
	require.Equal(t, echo.MinBaudRate, port.baudRate)
	require.Equal(t, echo.MinBaudRate, link.Stats().BaudRate)
}

func TestOpenUnsupportedScheme(t *testing.T) {
	_, err := Open("ftp://example.com/tty", echo.DefaultBaudRate)
	require.True(t, errors.Is(err, ErrUnsupportedScheme))
}

func TestIsTimeout(t *testing.T) {
	require.False(t, IsTimeout(nil))
	require.False(t, IsTimeout(io.EOF))
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()
	local.SetReadDeadline(time.Now())
	_, err := local.Read(make([]byte, 1))
	require.True(t, IsTimeout(err))
}
