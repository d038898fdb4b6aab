package uart

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/uartecho/pkg/echo"
)

// Stats is a snapshot of a Link's counters.
type Stats struct {
	Processed uint64
	Echoed    uint64
	Erased    uint64
	Dropped   uint64
	BytesOut  uint64
	BaudRate  uint32
	Mode      echo.Mode
	LastByte  *byte
}

// Link echoes bytes received on Port.
type Link struct {
	Port        Port
	ReadTimeout bool // set to true if Port already supports timeout with Read

	engine *echo.Engine
	stats  Stats
	lock   sync.Mutex
}

// NewLink creates a Link which owns engine.
func NewLink(port Port, engine *echo.Engine) *Link {
	_, timed := port.(TimedPort)
	return &Link{Port: port, ReadTimeout: timed, engine: engine}
}

// Name implements framework.Named.
func (l *Link) Name() string {
	return "link"
}

// Echo runs b through the engine and updates counters.
func (l *Link) Echo(b byte) echo.Output {
	l.lock.Lock()
	defer l.lock.Unlock()
	out := l.engine.Process(b)
	switch {
	case out.IsEmpty():
		l.stats.Dropped++
	case l.engine.Mode == echo.ModeClassify && echo.Classify(b) == echo.ClassErase:
		l.stats.Erased++
	default:
		l.stats.Echoed++
	}
	return out
}

// Stats returns a snapshot of counters.
func (l *Link) Stats() Stats {
	l.lock.Lock()
	defer l.lock.Unlock()
	s := l.stats
	s.Processed = l.engine.ProcessedCount()
	s.BaudRate = l.engine.BaudRate()
	s.Mode = l.engine.Mode
	if b, ok := l.engine.LastByte(); ok {
		s.LastByte = &b
	}
	return s
}

// SetBaudRate configures the engine and the port, returns the effective rate.
// The engine keeps the new rate even if the port rejects it.
func (l *Link) SetBaudRate(rate uint32) (uint32, error) {
	l.lock.Lock()
	l.engine.SetBaudRate(rate)
	rate = l.engine.BaudRate()
	l.lock.Unlock()
	if setter, ok := l.Port.(BaudRateSetter); ok {
		if err := setter.SetBaudRate(rate); err != nil {
			return rate, err
		}
	}
	glog.Infof("baud rate set to %d", rate)
	return rate, nil
}

// SetMode switches the echo mode.
func (l *Link) SetMode(mode echo.Mode) {
	l.lock.Lock()
	l.engine.Mode = mode
	l.lock.Unlock()
	glog.Infof("echo mode set to %s", mode)
}

// Run implements framework.Runnable. The port is closed on return.
func (l *Link) Run(ctx context.Context) error {
	defer l.Port.Close()
	if l.ReadTimeout {
		buf := make([]byte, 1)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n, err := l.Port.Read(buf)
			if err != nil {
				if IsTimeout(err) {
					continue
				}
				return err
			}
			if n == 0 {
				continue
			}
			if err = l.transmit(buf[0]); err != nil {
				return err
			}
		}
	}

	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(subCtx, byteCh, errCh)
	for {
		select {
		case b := <-byteCh:
			if err := l.transmit(b); err != nil {
				return err
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Link) readLoop(ctx context.Context, byteCh chan byte, errCh chan error) {
	buf := make([]byte, 1)
	for {
		n, err := l.Port.Read(buf)
		if err != nil {
			errCh <- err
			return
		}
		if n == 0 {
			continue
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

func (l *Link) transmit(b byte) error {
	out := l.Echo(b)
	if out.IsEmpty() {
		return nil
	}
	n, err := l.Port.Write(out.Bytes())
	l.lock.Lock()
	l.stats.BytesOut += uint64(n)
	l.lock.Unlock()
	return err
}
