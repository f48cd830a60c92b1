package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/config"
)

const (
	subscribeTimeout   = 5 * time.Second
	unsubscribeTimeout = 2 * time.Second
	disconnectQuiesce  = 250 // ms
)

// Listener receives broker events. OnMessage is never called concurrently.
type Listener interface {
	OnConnected()
	OnConnectionLost(err error)
	OnMessage(ctx context.Context, topic string, payload []byte)
}

// ClientFactory creates the underlying paho client. Tests substitute a fake.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// Supervisor owns one broker connection: it keeps retrying until connected, resubscribes after
// every reconnect and hands deliveries to its Listener one at a time.
type Supervisor struct {
	cfg      config.Config
	listener Listener
	logger   *slog.Logger
	factory  ClientFactory

	mu        sync.RWMutex
	client    mqtt.Client
	connected bool
	started   bool

	// deliverMu serializes OnMessage across reconnects.
	deliverMu sync.Mutex

	runCtx   context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
}

type Option func(*Supervisor)

func WithClientFactory(f ClientFactory) Option {
	return func(s *Supervisor) { s.factory = f }
}

func NewSupervisor(cfg config.Config, listener Listener, logger *slog.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		listener: listener,
		logger:   logger,
		factory:  mqtt.NewClient,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.BrokerURL())
	opts.SetClientID(s.cfg.MQTTClientID)

	// Session settings: every connect starts fresh and subscriptions are re-issued by us.
	opts.SetCleanSession(true)
	opts.SetResumeSubs(false)
	opts.SetOrderMatters(true)

	// Fixed-interval retries, forever.
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(s.cfg.MQTTReconnectInterval)
	opts.SetMaxReconnectInterval(s.cfg.MQTTReconnectInterval)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(s.onConnectionLost)
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		s.logger.Info("mqtt reconnecting", "broker", s.cfg.BrokerURL())
	})
	return opts
}

// Start begins connecting in the background and returns immediately. Connection failures are
// retried until Stop; they are never returned.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	select {
	case <-s.stopCh:
		s.mu.Unlock()
		return errors.New("supervisor stopped")
	default:
	}
	if s.started {
		s.mu.Unlock()
		return errors.New("supervisor already started")
	}
	s.started = true
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.client = s.factory(s.clientOptions())
	client := s.client
	s.mu.Unlock()

	s.logger.Info("mqtt connecting",
		"broker", s.cfg.BrokerURL(),
		"client_id", s.cfg.MQTTClientID,
		"topic", s.cfg.MQTTTopic,
	)

	token := client.Connect()
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			s.logger.Warn("mqtt connect ended", "error", err)
		}
	}()
	return nil
}

func (s *Supervisor) onConnect(c mqtt.Client) {
	s.setConnected(true)
	s.logger.Info("mqtt connected", "broker", s.cfg.BrokerURL())
	s.listener.OnConnected()
	s.subscribe(c)
}

func (s *Supervisor) onConnectionLost(_ mqtt.Client, err error) {
	s.setConnected(false)
	s.logger.Warn("mqtt connection lost", "error", err)
	s.listener.OnConnectionLost(err)
}

// subscribe retries until the subscription is acknowledged, the connection drops (the next
// onConnect takes over) or the supervisor stops.
func (s *Supervisor) subscribe(c mqtt.Client) {
	topic, qos := s.cfg.MQTTTopic, s.cfg.MQTTQoS
	for {
		token := c.Subscribe(topic, qos, s.handleMessage)
		if !token.WaitTimeout(subscribeTimeout) {
			s.logger.Warn("mqtt subscribe timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			s.logger.Warn("mqtt subscribe failed", "topic", topic, "error", err)
		} else {
			s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
			return
		}

		select {
		case <-s.stopCh:
			return
		case <-time.After(s.cfg.MQTTReconnectInterval):
		}
		if !c.IsConnected() {
			return
		}
	}
}

func (s *Supervisor) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	select {
	case <-s.stopCh:
		return
	default:
	}

	s.logger.Debug("received mqtt message", "topic", msg.Topic(), "size", len(msg.Payload()))
	s.listener.OnMessage(s.runCtx, msg.Topic(), msg.Payload())
}

// IsConnected reports whether the broker connection is currently up.
func (s *Supervisor) IsConnected() bool {
	s.mu.RLock()
	connected, client := s.connected, s.client
	s.mu.RUnlock()
	return connected && client != nil && client.IsConnected()
}

// Stop unsubscribes, disconnects and ends any pending retries. It waits for an in-flight
// delivery to finish. Idempotent and safe to call without Start.
func (s *Supervisor) Stop() {
	first := false
	s.stopOnce.Do(func() {
		close(s.stopCh)
		first = true
	})
	if !first {
		return
	}

	s.mu.RLock()
	client, cancel := s.client, s.cancel
	s.mu.RUnlock()

	if client != nil {
		if s.IsConnected() {
			token := client.Unsubscribe(s.cfg.MQTTTopic)
			token.WaitTimeout(unsubscribeTimeout)
		}
		client.Disconnect(disconnectQuiesce)
	}

	// Let a delivery that passed the stop check complete before its context goes away.
	s.deliverMu.Lock()
	s.deliverMu.Unlock()
	if cancel != nil {
		cancel()
	}

	s.setConnected(false)
	s.logger.Info("mqtt supervisor stopped")
}

func (s *Supervisor) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
