package mqtt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robotalks/uartecho/pkg/telemetry"
	"github.com/robotalks/uartecho/pkg/telemetry/msgs"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// ErrClosed is returned by commands on a closed Conn.
var ErrClosed = errors.New("connection closed")

// Connector finds and connects to links registered on a broker.
type Connector struct {
	DiscoverTimeout time.Duration

	brokerURL string
}

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	if _, _, err := ClientOptionsFromURL(brokerURL); err != nil {
		return nil, err
	}
	return &Connector{DiscoverTimeout: DefaultDiscoverTimeout, brokerURL: brokerURL}, nil
}

func (c *Connector) newQueue() (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(c.brokerURL)
	if err != nil {
		return nil, err
	}
	q := NewQueue(opts, topicPrefix)
	token := q.Connect()
	token.Wait()
	if err = token.Error(); err != nil {
		return nil, err
	}
	return q, nil
}

// Discover collects retained meta of registered links.
func (c *Connector) Discover(ctx context.Context) ([]telemetry.LinkInfo, error) {
	q, err := c.newQueue()
	if err != nil {
		return nil, err
	}
	defer q.Close()
	return discover(ctx, q, c.DiscoverTimeout)
}

func discover(ctx context.Context, q *Queue, timeout time.Duration) (res []telemetry.LinkInfo, err error) {
	resCh := make(chan telemetry.LinkInfo, 1)
	sub := q.Sub("+/+/"+telemetry.TopicMeta, func(topic string, payload []byte) {
		ref, _, ok := telemetry.ParseTopic(topic)
		if !ok || len(payload) == 0 {
			return
		}
		info := telemetry.LinkInfo{Ref: ref}
		if meta, err := msgs.DecodeMeta(payload); err == nil {
			info.Meta = *meta
		}
		select {
		case resCh <- info:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	if timeout == 0 {
		timeout = DefaultDiscoverTimeout
	}
	deadline := time.After(timeout)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-deadline:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Connect opens a connection to a link.
func (c *Connector) Connect(ctx context.Context, ref telemetry.LinkRef) (*Conn, error) {
	q, err := c.newQueue()
	if err != nil {
		return nil, err
	}
	return newConn(q, ref), nil
}

// Conn sends commands to a link and receives its stats.
type Conn struct {
	Queue *Queue
	Ref   telemetry.LinkRef

	lock    sync.Mutex
	seq     uint32
	pending map[uint32]chan *msgs.Reply
	replies *Subscription
	closed  bool
}

func newConn(q *Queue, ref telemetry.LinkRef) *Conn {
	c := &Conn{
		Queue:   q,
		Ref:     ref,
		seq:     uint32(time.Now().UnixNano()),
		pending: make(map[uint32]chan *msgs.Reply),
	}
	c.replies = q.Sub(ref.Topic(telemetry.TopicReply), c.handleReply)
	return c
}

// Do sends a command and waits for its reply.
func (c *Conn) Do(ctx context.Context, cmd *msgs.Command) (*msgs.Reply, error) {
	ch := make(chan *msgs.Reply, 1)
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return nil, ErrClosed
	}
	c.seq++
	cmd.Seq = c.seq
	c.pending[cmd.Seq] = ch
	c.lock.Unlock()
	defer func() {
		c.lock.Lock()
		delete(c.pending, cmd.Seq)
		c.lock.Unlock()
	}()

	payload, err := msgs.Encode(cmd)
	if err != nil {
		return nil, err
	}
	token := c.Queue.Pub(c.Ref.Topic(telemetry.TopicCmd), payload)
	token.Wait()
	if err = token.Error(); err != nil {
		return nil, err
	}
	select {
	case reply := <-ch:
		return reply, reply.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubStats calls fn for each stats publication of the link.
func (c *Conn) SubStats(fn func(*msgs.Stats)) *Subscription {
	return c.Queue.Sub(c.Ref.Topic(telemetry.TopicStats), func(_ string, payload []byte) {
		if stats, err := msgs.DecodeStats(payload); err == nil {
			fn(stats)
		}
	})
}

// Close implements io.Closer.
func (c *Conn) Close() error {
	c.lock.Lock()
	c.closed = true
	c.lock.Unlock()
	c.replies.Close()
	return c.Queue.Close()
}

func (c *Conn) handleReply(_ string, payload []byte) {
	reply, err := msgs.DecodeReply(payload)
	if err != nil {
		return
	}
	c.lock.Lock()
	ch := c.pending[reply.Seq]
	c.lock.Unlock()
	if ch != nil {
		select {
		case ch <- reply:
		default:
		}
	}
}
