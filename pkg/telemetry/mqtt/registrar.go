package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/uartecho/pkg/framework"
	"github.com/robotalks/uartecho/pkg/telemetry"
	"github.com/robotalks/uartecho/pkg/telemetry/msgs"
)

// CommandMsg carries a received command through the loop.
type CommandMsg struct {
	Command *msgs.Command
}

// Registrar announces a link on MQTT and forwards its commands to the loop.
type Registrar struct {
	Queue *Queue
	Info  telemetry.LinkInfo

	metaJSON []byte
}

// NewRegistrar creates a Registrar. The link's meta is cleared by the
// broker if the connection is lost.
func NewRegistrar(brokerURL string, info telemetry.LinkInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Ref.Topic(telemetry.TopicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("uartecho:" + info.Ref.Name())
	}
	return newRegistrar(NewQueue(opts, topicPrefix), info, meta), nil
}

func newRegistrar(q *Queue, info telemetry.LinkInfo, meta []byte) *Registrar {
	r := &Registrar{Queue: q, Info: info, metaJSON: meta}
	r.Queue.OnConnect = func(*Queue) { r.publishMeta() }
	return r
}

// Name implements framework.Named.
func (r *Registrar) Name() string {
	return "mqtt-registrar"
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	sub := r.Queue.Sub(r.Info.Ref.Topic(telemetry.TopicCmd), func(topic string, payload []byte) {
		cmd, err := msgs.DecodeCommand(payload)
		if err != nil {
			glog.Warningf("bad command on %s: %v", topic, err)
			return
		}
		if loopCtl == nil {
			return
		}
		loopCtl.PostMessage(&CommandMsg{Command: cmd})
		loopCtl.TriggerNext()
	})
	defer sub.Close()
	if err := r.connect(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	token := r.Queue.PubWith(r.Info.Ref.Topic(telemetry.TopicMeta), nil, 1, true)
	token.WaitTimeout(time.Second)
	r.Queue.Close()
	return ctx.Err()
}

// ConnectRetryInterval is the wait between initial connection attempts.
var ConnectRetryInterval = 5 * time.Second

func (r *Registrar) connect(ctx context.Context) error {
	for {
		token := r.Queue.Connect()
		token.Wait()
		err := token.Error()
		if err == nil {
			return nil
		}
		glog.Warningf("mqtt connect failed: %v", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ConnectRetryInterval):
		}
	}
}

// Reply publishes a reply to a command.
func (r *Registrar) Reply(reply *msgs.Reply) error {
	payload, err := msgs.Encode(reply)
	if err != nil {
		return err
	}
	r.Queue.Pub(r.Info.Ref.Topic(telemetry.TopicReply), payload)
	return nil
}

// PublishStats publishes an encoded stats payload.
func (r *Registrar) PublishStats(payload []byte) {
	r.Queue.Pub(r.Info.Ref.Topic(telemetry.TopicStats), payload)
}

func (r *Registrar) publishMeta() {
	r.Queue.PubWith(r.Info.Ref.Topic(telemetry.TopicMeta), r.metaJSON, 1, true)
}
