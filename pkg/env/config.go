// Package env configures and assembles the echo daemon.
package env

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uartecho/pkg/echo"
	fx "github.com/robotalks/uartecho/pkg/framework"
	"github.com/robotalks/uartecho/pkg/telemetry"
	"github.com/robotalks/uartecho/pkg/telemetry/mqtt"
	"github.com/robotalks/uartecho/pkg/telemetry/msgs"
	"github.com/robotalks/uartecho/pkg/uart"
)

// Config provides options to setup the echo daemon.
type Config struct {
	// Port is the link address, see uart.Open.
	Port     string
	BaudRate uint
	Mode     string

	Ref         telemetry.LinkRef
	Description string

	// MQTTBrokerURL specifies the MQTT broker to use, empty disables telemetry.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	StatsInterval time.Duration
	StatsFormat   string
}

var defaultConfig = Config{
	Port:          "/dev/ttyUSB0",
	BaudRate:      uint(echo.DefaultBaudRate),
	Mode:          echo.ModeClassify.String(),
	Ref:           telemetry.LinkRef{Type: telemetry.DefaultType},
	Description:   "UART echo",
	StatsInterval: time.Second,
	StatsFormat:   string(msgs.FormatJSON),
}

func init() {
	if val := os.Getenv("UARTECHO_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("UARTECHO_BAUD"); val != "" {
		if rate, err := strconv.ParseUint(val, 10, 32); err == nil {
			defaultConfig.BaudRate = uint(rate)
		}
	}
	if val := os.Getenv("UARTECHO_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("UARTECHO_ID"); val != "" {
		defaultConfig.Ref.ID = val
	} else {
		defaultConfig.Ref.ID = MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Port: device path, serial://, tcp:// or ws:// URL.")
	flag.UintVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Baud rate, clamped to [9600, 921600].")
	flag.StringVar(&defaultConfig.Mode, "mode", defaultConfig.Mode, "Echo mode: classify or passthrough.")
	flag.StringVar(&defaultConfig.Ref.Type, "type", defaultConfig.Ref.Type, "Link type.")
	flag.StringVar(&defaultConfig.Ref.ID, "id", defaultConfig.Ref.ID, "Link ID.")
	flag.StringVar(&defaultConfig.Description, "desc", defaultConfig.Description, "Link description.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable.")
	flag.DurationVar(&defaultConfig.StatsInterval, "stats-interval", defaultConfig.StatsInterval, "Stats publishing interval.")
	flag.StringVar(&defaultConfig.StatsFormat, "stats-format", defaultConfig.StatsFormat, "Stats payload format: json or proto.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Daemon is an assembled echo daemon.
type Daemon struct {
	Config *Config
	Engine *echo.Engine
	Link   *uart.Link
	Loop   *fx.Loop
}

// PortOpener opens the link port. Replaced in tests.
type PortOpener func(addr string, baudRate uint32) (uart.Port, error)

// NewDaemon opens the port and wires link and telemetry.
func (c *Config) NewDaemon() (*Daemon, error) {
	return c.NewDaemonWith(uart.Open)
}

// NewDaemonWith is NewDaemon with a custom PortOpener.
func (c *Config) NewDaemonWith(open PortOpener) (*Daemon, error) {
	mode, err := echo.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	format, err := msgs.ParseFormat(c.StatsFormat)
	if err != nil {
		return nil, err
	}
	var reg *mqtt.Registrar
	if c.MQTTBrokerURL != "" {
		if !c.Ref.IsValid() {
			return nil, fmt.Errorf("invalid link type/id %q", c.Ref.Name())
		}
		info := telemetry.LinkInfo{
			Ref:  c.Ref,
			Meta: msgs.Meta{Description: c.Description, Port: c.Port},
		}
		if reg, err = mqtt.NewRegistrar(c.MQTTBrokerURL, info); err != nil {
			return nil, fmt.Errorf("create MQTT registrar error: %w", err)
		}
	}

	engine := echo.NewWithBaudRate(clampUint(c.BaudRate))
	engine.Mode = mode
	if glog.V(5) {
		engine.Tracer = echo.TransitionFunc(func(from, to echo.Phase, b byte) {
			glog.Infof("0x%02x: %s -> %s", b, from, to)
		})
	}
	port, err := open(c.Port, engine.BaudRate())
	if err != nil {
		return nil, err
	}
	d := &Daemon{Config: c, Engine: engine, Link: uart.NewLink(port, engine), Loop: fx.NewLoop()}
	d.Loop.AddRunnable(d.Link)
	if reg != nil {
		d.Loop.Interval = c.StatsInterval
		d.Loop.Add(mqtt.NewPublisher(reg, d.Link, c.StatsInterval, format))
	}
	glog.Infof("echo %s at %d baud, mode %s", c.Port, engine.BaudRate(), mode)
	return d, nil
}

func clampUint(v uint) uint32 {
	if v > uint(echo.MaxBaudRate) {
		return echo.MaxBaudRate
	}
	return echo.ClampBaudRate(uint32(v))
}

// Run runs the link and telemetry until ctx is done or the link fails.
func (d *Daemon) Run(ctx context.Context) error {
	return d.Loop.Run(ctx)
}
