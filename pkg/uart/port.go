package uart

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"golang.org/x/net/websocket"
)

// DefaultPollInterval is how long a Read waits for a byte before returning
// with no data so the link can observe cancellation.
const DefaultPollInterval = 100 * time.Millisecond

// ErrUnsupportedScheme indicates the port address can't be opened.
var ErrUnsupportedScheme = errors.New("unsupported port scheme")

// Port is a byte transport.
type Port interface {
	io.ReadWriteCloser
}

// BaudRateSetter is implemented by ports whose line speed can change
// while open.
type BaudRateSetter interface {
	SetBaudRate(rate uint32) error
}

// TimedPort is implemented by ports whose Read returns periodically
// without data. Such a Read returns (0, nil) or a timeout error.
type TimedPort interface {
	ReadTimeout() time.Duration
}

// Open opens a port by address:
//
//	/dev/ttyUSB0, COM3, serial:///dev/ttyUSB0  serial device
//	tcp://host:port                           raw TCP
//	ws://host/path, wss://host/path           websocket
func Open(addr string, baudRate uint32) (Port, error) {
	if !strings.Contains(addr, "://") {
		return openSerial(addr, baudRate)
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid port address %q: %w", addr, err)
	}
	switch u.Scheme {
	case "serial":
		name := u.Path
		if name == "" {
			name = u.Opaque
		}
		if u.Host != "" {
			name = u.Host + name
		}
		return openSerial(name, baudRate)
	case "tcp":
		conn, err := net.DialTimeout("tcp", u.Host, 5*time.Second)
		if err != nil {
			return nil, err
		}
		return NewNetPort(conn), nil
	case "ws", "wss":
		origin := "http://localhost/"
		if u.Scheme == "wss" {
			origin = "https://localhost/"
		}
		conn, err := websocket.Dial(addr, "", origin)
		if err != nil {
			return nil, err
		}
		conn.PayloadType = websocket.BinaryFrame
		return NewNetPort(conn), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

func openSerial(name string, baudRate uint32) (Port, error) {
	p, err := OpenSerial(name, baudRate)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SerialPort wraps a serial device.
type SerialPort struct {
	serial.Port
	Name string

	mode serial.Mode
}

// OpenSerial opens a serial device at baudRate, 8N1.
func OpenSerial(name string, baudRate uint32) (*SerialPort, error) {
	p := &SerialPort{
		Name: name,
		mode: serial.Mode{
			BaudRate: int(baudRate),
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
	port, err := serial.Open(name, &p.mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err = port.SetReadTimeout(DefaultPollInterval); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	p.Port = port
	return p, nil
}

// SetBaudRate implements BaudRateSetter.
func (p *SerialPort) SetBaudRate(rate uint32) error {
	mode := p.mode
	mode.BaudRate = int(rate)
	if err := p.Port.SetMode(&mode); err != nil {
		return err
	}
	p.mode = mode
	return nil
}

// ReadTimeout implements TimedPort.
func (p *SerialPort) ReadTimeout() time.Duration {
	return DefaultPollInterval
}

// NetPort adapts a net.Conn with read deadlines so it behaves as TimedPort.
type NetPort struct {
	net.Conn
	PollInterval time.Duration
}

// NewNetPort wraps conn.
func NewNetPort(conn net.Conn) *NetPort {
	return &NetPort{Conn: conn, PollInterval: DefaultPollInterval}
}

// Read implements io.Reader.
func (p *NetPort) Read(buf []byte) (int, error) {
	if err := p.Conn.SetReadDeadline(time.Now().Add(p.PollInterval)); err != nil {
		return 0, err
	}
	return p.Conn.Read(buf)
}

// ReadTimeout implements TimedPort.
func (p *NetPort) ReadTimeout() time.Duration {
	return p.PollInterval
}

// IsTimeout tells whether err is a read timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if os.IsTimeout(err) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// PortInfo describes a detected serial port.
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"usb,omitempty"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial,omitempty"`
	Product      string `json:"product,omitempty"`
}

// ListPorts enumerates serial ports, with USB details when available.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		ports := make([]PortInfo, 0, len(details))
		for _, d := range details {
			ports = append(ports, PortInfo{
				Name:         d.Name,
				IsUSB:        d.IsUSB,
				VID:          d.VID,
				PID:          d.PID,
				SerialNumber: d.SerialNumber,
				Product:      d.Product,
			})
		}
		return ports, nil
	}
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]PortInfo, len(names))
	for n, name := range names {
		ports[n].Name = name
	}
	return ports, nil
}
