// Package link provides shell commands operating on an echo link.
package link

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/uartecho/pkg/cli/sh"
	"github.com/robotalks/uartecho/pkg/echo"
	"github.com/robotalks/uartecho/pkg/telemetry/msgs"
	"github.com/robotalks/uartecho/pkg/uart"
)

// TryResult is the local echo of a text.
type TryResult struct {
	Input     []byte `json:"input"`
	Output    []byte `json:"output"`
	Processed uint64 `json:"processed"`
}

// String implements fmt.Stringer.
func (r *TryResult) String() string {
	return fmt.Sprintf("in  % x\nout % x\nprocessed %d", r.Input, r.Output, r.Processed)
}

// Try echoes input through a fresh engine.
func Try(input []byte, mode echo.Mode) *TryResult {
	e := echo.New()
	e.Mode = mode
	res := &TryResult{Input: input, Output: make([]byte, 0, len(input)*echo.MaxOutputLen)}
	for _, b := range input {
		out := e.Process(b)
		res.Output = append(res.Output, out.Bytes()...)
	}
	res.Processed = e.ProcessedCount()
	return res
}

// ParseInput unquotes Go escapes (\b, \x7f, \t ...) in text; a 0x prefix
// means hex.
func ParseInput(text string) ([]byte, error) {
	if strings.HasPrefix(text, "0x") {
		return hex.DecodeString(strings.ReplaceAll(text[2:], " ", ""))
	}
	s, err := strconv.Unquote(`"` + strings.ReplaceAll(text, `"`, `\"`) + `"`)
	if err != nil {
		return nil, fmt.Errorf("invalid input %q: %w", text, err)
	}
	return []byte(s), nil
}

type portList []uart.PortInfo

func (l portList) String() string {
	if len(l) == 0 {
		return "No serial ports found"
	}
	lines := make([]string, len(l))
	for n, p := range l {
		lines[n] = p.Name
		if p.IsUSB {
			lines[n] += fmt.Sprintf(" USB %s:%s %s %s", p.VID, p.PID, p.SerialNumber, p.Product)
		}
	}
	return strings.Join(lines, "\n")
}

var (
	// StatsCmd queries link stats.
	StatsCmd = ishell.Cmd{
		Name:    "stats",
		Aliases: []string{"s"},
		Help:    "show link statistics",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.Command{Op: msgs.OpStats})
		}),
	}

	// WatchCmd prints stats as they are published.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[SECONDS] print published statistics",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			dur := 10 * time.Second
			if len(c.Args) > 0 {
				secs, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				dur = time.Duration(secs) * time.Second
			}
			statsCh := make(chan *msgs.Stats, 1)
			sub := sh.ShellFrom(c).Conn.SubStats(func(s *msgs.Stats) {
				select {
				case statsCh <- s:
				default:
				}
			})
			defer sub.Close()
			timeout := time.After(dur)
			for {
				select {
				case s := <-statsCh:
					sh.Print(c, s)
				case <-timeout:
					return
				}
			}
		}),
	}

	// BaudCmd changes the link baud rate.
	BaudCmd = ishell.Cmd{
		Name:    "baud",
		Aliases: []string{"b"},
		Help:    "RATE",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("baud rate expected"))
				return
			}
			rate, err := strconv.ParseUint(c.Args[0], 10, 32)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, &msgs.Command{Op: msgs.OpSetBaud, BaudRate: uint32(rate)})
		}),
	}

	// ModeCmd changes the link echo mode.
	ModeCmd = ishell.Cmd{
		Name:    "mode",
		Aliases: []string{"m"},
		Help:    "classify|passthrough",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("mode expected"))
				return
			}
			if _, err := echo.ParseMode(c.Args[0]); err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, &msgs.Command{Op: msgs.OpSetMode, Mode: c.Args[0]})
		}),
	}

	// PortsCmd lists local serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"p"},
		Help:    "list local serial ports",
		Func: func(c *ishell.Context) {
			ports, err := uart.ListPorts()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, portList(ports))
		},
	}

	// TryCmd runs text through a local engine.
	TryCmd = ishell.Cmd{
		Name:    "try",
		Aliases: []string{"t"},
		Help:    "[-passthrough] TEXT (escapes like \\b \\x7f allowed, or 0xHEX)",
		Func: func(c *ishell.Context) {
			args := c.Args
			mode := echo.ModeClassify
			if len(args) > 0 && args[0] == "-passthrough" {
				mode, args = echo.ModePassthrough, args[1:]
			}
			input, err := ParseInput(strings.Join(args, " "))
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, Try(input, mode))
		},
	}
)

func init() {
	sh.AddCmds(
		&StatsCmd,
		&WatchCmd,
		&BaudCmd,
		&ModeCmd,
		&PortsCmd,
		&TryCmd,
	)
}
