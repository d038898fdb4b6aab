// Package sh provides the interactive control shell of echo links.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/uartecho/pkg/telemetry"
	"github.com/robotalks/uartecho/pkg/telemetry/mqtt"
	"github.com/robotalks/uartecho/pkg/telemetry/msgs"
)

// ErrNotConnected indicates a command requires a connected link.
var ErrNotConnected = errors.New("not connected")

// CommandTimeout bounds the wait for a command reply.
var CommandTimeout = time.Second

// Config provides options to reach links.
type Config struct {
	Ref telemetry.LinkRef

	// BrokerURL specifies the MQTT broker links register on.
	// e.g. mqtt://host:port/topic-prefix
	BrokerURL string
}

var defaultConfig = Config{
	Ref:       telemetry.LinkRef{Type: telemetry.DefaultType},
	BrokerURL: "mqtt://localhost:1883/uartecho/",
}

var (
	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	if val := os.Getenv("UARTECHO_MQTT_URL"); val != "" {
		defaultConfig.BrokerURL = val
	}
	if val := os.Getenv("UARTECHO_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&defaultConfig.Ref.Type, "type", defaultConfig.Ref.Type, "Link type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "id", defaultConfig.Ref.ID, "Link ID to connect.")
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt", defaultConfig.BrokerURL, "MQTT broker URL.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *Config
	Conn   *mqtt.Conn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

// New creates a new shell.
func New(conf *Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// FormatInfo prints LinkInfo into friendly string for display.
func FormatInfo(info telemetry.LinkInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	if info.Meta.Port != "" {
		fmt.Fprintf(&w, " (%s)", info.Meta.Port)
	}
	return w.String()
}

// Print prints v as JSON in JSON mode, or its String form.
func Print(c *ishell.Context, v fmt.Stringer) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(v.String())
}

// DoCommand runs a command on the connected link and prints the stats
// in the reply.
func DoCommand(c *ishell.Context, cmd *msgs.Command) error {
	s := ShellFrom(c)
	if s.Conn == nil {
		c.Err(ErrNotConnected)
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(context.Background(), CommandTimeout)
	defer cancel()
	reply, err := s.Conn.Do(ctx, cmd)
	if err != nil {
		c.Err(err)
		return err
	}
	if reply.Stats != nil {
		Print(c, reply.Stats)
	} else if !s.OutputJSON {
		c.Println("OK")
	}
	return nil
}

func (s *Shell) connector() (*mqtt.Connector, error) {
	return mqtt.NewConnector(s.Config.BrokerURL)
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverLinks discovers links matching filter.
func (s *Shell) DiscoverLinks(filter func(telemetry.LinkInfo) bool) ([]telemetry.LinkInfo, error) {
	connector, err := s.connector()
	if err != nil {
		return nil, err
	}
	infoList, err := connector.Discover(context.Background())
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return infoList, nil
	}
	items := make([]telemetry.LinkInfo, 0, len(infoList))
	for _, info := range infoList {
		if filter(info) {
			items = append(items, info)
		}
	}
	return items, nil
}

// SelectLink discovers links and asks for a choice.
func (s *Shell) SelectLink(filter func(telemetry.LinkInfo) bool) (*telemetry.LinkInfo, error) {
	infoList, err := s.DiscoverLinks(filter)
	if err != nil || len(infoList) == 0 {
		return nil, err
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 links discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
		if index < 0 {
			return nil, nil
		}
	}
	return &infoList[index], nil
}

// Connect connects the link with ref.
func (s *Shell) Connect(ref telemetry.LinkRef) error {
	connector, err := s.connector()
	if err != nil {
		return err
	}
	conn, err := connector.Connect(context.Background(), ref)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", ref.Name()))
	return nil
}

// Disconnect disconnects current link.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Ref.IsValid() {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Ref.Name())
		}
		if err := s.Connect(s.Config.Ref); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Ref.Name(), err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DiscoverCmd discovers links.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "list registered links",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverLinks(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					infoList = []telemetry.LinkInfo{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No links found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a link.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[TYPE] [ID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref telemetry.LinkRef
			if len(c.Args) >= 2 {
				ref.Type, ref.ID = c.Args[0], c.Args[1]
			} else {
				var filter func(telemetry.LinkInfo) bool
				if len(c.Args) == 1 {
					filter = func(info telemetry.LinkInfo) bool {
						return info.Ref.Type == c.Args[0]
					}
				}
				info, err := s.SelectLink(filter)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no link discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current link.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
