// Package mqtt publishes link telemetry and serves remote commands over MQTT.
package mqtt

import (
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// ConnectHandler is to handle connect/disconnect events.
type ConnectHandler func(*Queue)

// Queue wraps MQTT client with a topic prefix and local fan-out.
type Queue struct {
	Client       paho.Client
	TopicPrefix  string
	OnConnect    ConnectHandler
	OnDisconnect ConnectHandler

	subsLock sync.RWMutex
	subs     map[string][]*Subscription
}

// Subscription is a subscribed topic.
type Subscription struct {
	Token paho.Token

	queue   *Queue
	topic   string
	handler Handler
}

// MatchTopic matches topic with pattern.
func MatchTopic(topic, pattern string) bool {
	tokensT, tokensP := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, token := range tokensP {
		if token == "#" && i+1 == len(tokensP) {
			return true
		}
		if i >= len(tokensT) {
			return false
		}
		if token != "+" && token != tokensT[i] {
			return false
		}
	}
	return len(tokensP) == len(tokensT)
}

// ClientOptionsFromURL creates ClientOptions from URL
// mqtt://[user:pass@]host:port/topic-prefix/?client-id=ID.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	switch u.Scheme {
	case "", "mqtt":
		server = "tcp"
	case "mqtts":
		server = "ssl"
	default:
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")
	if topicPrefix != "" && !strings.HasSuffix(topicPrefix, "/") {
		topicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, topicPrefix, nil
}

// NewQueue creates Queue.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix, subs: make(map[string][]*Subscription)}
	options.SetOnConnectHandler(q.onConnect)
	options.SetConnectionLostHandler(q.onConnectionLost)
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates Queue from URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// Connect connects the client.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Sub subscribes a topic. Subscriptions survive reconnects.
func (q *Queue) Sub(topic string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, topic: topic, handler: handler}
	q.subsLock.Lock()
	newSub := len(q.subs[topic]) == 0
	q.subs[topic] = append(q.subs[topic], sub)
	q.subsLock.Unlock()

	if newSub && q.Client.IsConnected() {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+topic)
		sub.Token = q.Client.Subscribe(q.TopicPrefix+topic, 0, q.dispatch)
	} else {
		sub.Token = &paho.DummyToken{}
	}
	return sub
}

// Pub publishes to a topic.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, 0, false)
}

// PubWith publishes with QoS and retain settings.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	glog.V(2).Infof("PUB %q", q.TopicPrefix+topic)
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

func (q *Queue) resubscribe() paho.Token {
	filters := make(map[string]byte)
	q.subsLock.RLock()
	for topic := range q.subs {
		filters[q.TopicPrefix+topic] = 0
	}
	q.subsLock.RUnlock()
	if len(filters) == 0 {
		return &paho.DummyToken{}
	}
	for key := range filters {
		glog.V(2).Infof("SUB %q", key)
	}
	return q.Client.SubscribeMultiple(filters, q.dispatch)
}

func (q *Queue) onConnect(paho.Client) {
	glog.Info("mqtt connected")
	q.resubscribe()
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

func (q *Queue) onConnectionLost(c paho.Client, err error) {
	glog.Warningf("mqtt connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q)
	}
}

func (q *Queue) dispatch(c paho.Client, msg paho.Message) {
	q.deliver(msg.Topic(), msg.Payload())
}

func (q *Queue) deliver(topic string, payload []byte) {
	if !strings.HasPrefix(topic, q.TopicPrefix) {
		return
	}
	glog.V(2).Infof("RCV %q", topic)
	topic = topic[len(q.TopicPrefix):]
	var handlers []Handler
	q.subsLock.RLock()
	for pattern, subs := range q.subs {
		if MatchTopic(topic, pattern) {
			for _, sub := range subs {
				handlers = append(handlers, sub.handler)
			}
		}
	}
	q.subsLock.RUnlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}

// Close removes the handler and unsubscribes when it was the last one.
func (s *Subscription) Close() error {
	q := s.queue
	q.subsLock.Lock()
	subs := q.subs[s.topic]
	for n, sub := range subs {
		if sub == s {
			subs = append(subs[:n], subs[n+1:]...)
			break
		}
	}
	unsub := len(subs) == 0
	if unsub {
		delete(q.subs, s.topic)
	} else {
		q.subs[s.topic] = subs
	}
	q.subsLock.Unlock()
	if unsub && q.Client.IsConnected() {
		glog.V(2).Infof("UNSUB %q", s.topic)
		token := q.Client.Unsubscribe(q.TopicPrefix + s.topic)
		token.Wait()
		return token.Error()
	}
	return nil
}
