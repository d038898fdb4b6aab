package mqtt

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uartecho/pkg/echo"
	fx "github.com/robotalks/uartecho/pkg/framework"
	"github.com/robotalks/uartecho/pkg/telemetry/msgs"
	"github.com/robotalks/uartecho/pkg/uart"
)

// Target is the link controlled by commands.
type Target interface {
	Stats() uart.Stats
	SetBaudRate(rate uint32) (uint32, error)
	SetMode(mode echo.Mode)
}

// Reporter publishes link stats periodically.
type Reporter struct {
	Registrar *Registrar
	Target    Target
	Interval  time.Duration
	Format    msgs.Format

	last time.Time
}

// Control implements Controller.
func (r *Reporter) Control(cc fx.ControlContext) error {
	now := cc.Time()
	if !r.last.IsZero() && now.Sub(r.last) < r.Interval {
		return nil
	}
	r.last = now
	payload, err := msgs.EncodeStats(msgs.StatsFrom(r.Target.Stats(), now), r.Format)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	r.Registrar.PublishStats(payload)
	return nil
}

// CommandHandler applies commands received by the Registrar.
type CommandHandler struct {
	Registrar *Registrar
	Target    Target
}

// Control implements Controller.
func (h *CommandHandler) Control(cc fx.ControlContext) error {
	var replies []*msgs.Reply
	cc.Messages().ProcessMessages(func(m fx.Message) bool {
		cmdMsg, ok := m.(*CommandMsg)
		if ok {
			replies = append(replies, h.Execute(cmdMsg.Command, cc.Time()))
		}
		return ok
	})
	var errs fx.AggregatedError
	for _, reply := range replies {
		errs.Add(h.Registrar.Reply(reply))
	}
	return errs.Aggregate()
}

// Execute applies one command and returns the reply.
func (h *CommandHandler) Execute(cmd *msgs.Command, now time.Time) *msgs.Reply {
	glog.V(1).Infof("command %d: %s", cmd.Seq, cmd.Op)
	switch cmd.Op {
	case msgs.OpStats:
	case msgs.OpSetBaud:
		if _, err := h.Target.SetBaudRate(cmd.BaudRate); err != nil {
			return msgs.ReplyErr(cmd.Seq, err)
		}
	case msgs.OpSetMode:
		mode, err := echo.ParseMode(cmd.Mode)
		if err != nil {
			return msgs.ReplyErr(cmd.Seq, err)
		}
		h.Target.SetMode(mode)
	default:
		return msgs.ReplyErr(cmd.Seq, fmt.Errorf("%w: %q", msgs.ErrUnknownCommand, cmd.Op))
	}
	return &msgs.Reply{Seq: cmd.Seq, OK: true, Stats: msgs.StatsFrom(h.Target.Stats(), now)}
}

// Publisher wires a Registrar and its controllers into a loop.
type Publisher struct {
	Registrar *Registrar
	Reporter  *Reporter
	Commands  *CommandHandler
}

// NewPublisher creates a Publisher for target.
func NewPublisher(reg *Registrar, target Target, interval time.Duration, format msgs.Format) *Publisher {
	return &Publisher{
		Registrar: reg,
		Reporter:  &Reporter{Registrar: reg, Target: target, Interval: interval, Format: format},
		Commands:  &CommandHandler{Registrar: reg, Target: target},
	}
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(p.Registrar)
	loop.AddController(fx.PrLvCommand, p.Commands)
	loop.AddController(fx.PrLvReport, p.Reporter)
}
