package env

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartecho/pkg/echo"
	"github.com/robotalks/uartecho/pkg/uart"
)

type nopPort struct{ io.ReadWriter }

func (nopPort) Close() error { return nil }

func TestNewDaemon(t *testing.T) {
	conf := NewConfig()
	conf.Port = "fake"
	conf.BaudRate = ^uint(0)
	conf.Mode = "passthrough"
	conf.MQTTBrokerURL = ""

	var openedRate uint32
	d, err := conf.NewDaemonWith(func(addr string, rate uint32) (uart.Port, error) {
		require.Equal(t, "fake", addr)
		openedRate = rate
		return nopPort{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, echo.MaxBaudRate, openedRate)
	require.Equal(t, echo.MaxBaudRate, d.Engine.BaudRate())
	require.Equal(t, echo.ModePassthrough, d.Link.Stats().Mode)
}

func TestNewDaemonInvalid(t *testing.T) {
	open := func(string, uint32) (uart.Port, error) { return nopPort{}, nil }

	conf := NewConfig()
	conf.Mode = "shout"
	_, err := conf.NewDaemonWith(open)
	require.Error(t, err)

	conf = NewConfig()
	conf.StatsFormat = "xml"
	_, err = conf.NewDaemonWith(open)
	require.Error(t, err)

	conf = NewConfig()
	conf.MQTTBrokerURL = "mqtt://localhost:1883/echo/"
	conf.Ref.ID = ""
	_, err = conf.NewDaemonWith(open)
	require.Error(t, err)
}

func TestClampUint(t *testing.T) {
	require.Equal(t, echo.MinBaudRate, clampUint(0))
	require.Equal(t, uint32(57600), clampUint(57600))
	require.Equal(t, echo.MaxBaudRate, clampUint(^uint(0)))
}
