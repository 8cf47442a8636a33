package mqtt

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/IM-Lab-france/fishfeeder/internal/config"
	"github.com/IM-Lab-france/fishfeeder/internal/logging"
)

const (
	// RetryInterval is the fixed backoff between reconnect attempts.
	RetryInterval = 5 * time.Second

	// HeartbeatInterval paces periodic status publishes while connected.
	HeartbeatInterval = 30 * time.Second
)

// State is the broker session state. It is only meaningful while the
// device is in station mode; offline the session is forced to Idle.
type State int

const (
	// Idle means no connection and no attempt pending.
	Idle State = iota
	// Connecting means a connect attempt is in flight.
	Connecting
	// Connected means the session is live: status publishes flow and the
	// command topic is subscribed.
	Connected
	// Retrying means the last attempt or the live session failed and the
	// session is waiting out the retry interval.
	Retrying
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Retrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// Session owns the single broker connection. Step is called once per poll
// tick and performs at most one transition or I/O attempt; connect results
// are collected on later ticks via the token's done channel, never by
// blocking.
type Session struct {
	factory  ClientFactory
	clientID string

	cfg config.DeviceConfig

	state        State
	client       Client
	connectToken Token
	retryStart   time.Time
	lastBeat     time.Time

	// onCommand receives recognized payloads from {base}/cmd. It is called
	// on the client's receive goroutine; the controller hands in a
	// function that enqueues an intent, which is safe from any goroutine.
	onCommand func(cmd string)
}

// NewSession creates a session. cfg supplies the broker settings; the
// factory builds clients (NewPahoClient in production). onCommand receives
// "feed" and "restart" commands from the command topic.
func NewSession(cfg config.DeviceConfig, clientID string, factory ClientFactory, onCommand func(cmd string)) *Session {
	return &Session{
		factory:   factory,
		clientID:  clientID,
		cfg:       cfg,
		state:     Idle,
		onCommand: onCommand,
	}
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Reconfigure installs new broker settings. Any live connection is dropped
// so the next Step reconnects with the new settings.
func (s *Session) Reconfigure(cfg config.DeviceConfig) {
	s.cfg = cfg
	s.teardown()
}

// Step advances the session by at most one transition. online must be true
// only while the device is in station mode; when false the session is
// forced to Idle and makes no retry attempts.
func (s *Session) Step(now time.Time, online bool) {
	if !online {
		if s.state != Idle {
			s.teardown()
		}
		return
	}

	switch s.state {
	case Idle:
		s.client = s.factory(s.cfg, s.clientID)
		s.connectToken = s.client.Connect()
		s.setState(Connecting)

	case Connecting:
		select {
		case <-s.connectToken.Done():
			if err := s.connectToken.Error(); err != nil {
				logging.Warn("Broker connect failed",
					zap.String("host", s.cfg.MqttHost),
					zap.Int("port", s.cfg.MqttPort),
					zap.Error(err),
				)
				s.beginRetry(now)
				return
			}
			s.subscribeCommands()
			s.lastBeat = now
			s.setState(Connected)
		default:
			// Attempt still in flight.
		}

	case Connected:
		if !s.client.IsConnected() {
			logging.Warn("Broker connection lost", zap.String("host", s.cfg.MqttHost))
			s.beginRetry(now)
			return
		}

	case Retrying:
		if now.Sub(s.retryStart) >= RetryInterval {
			s.client = s.factory(s.cfg, s.clientID)
			s.connectToken = s.client.Connect()
			s.setState(Connecting)
		}
	}
}

// HeartbeatDue reports whether a periodic status publish is due. The
// controller calls PublishStatus with a fresh document when it is.
func (s *Session) HeartbeatDue(now time.Time) bool {
	return s.state == Connected && now.Sub(s.lastBeat) >= HeartbeatInterval
}

// PublishStatus publishes a status document to {base}/status, retained so
// late subscribers see the latest state. A no-op unless connected.
func (s *Session) PublishStatus(now time.Time, payload []byte) {
	if s.state != Connected {
		return
	}
	s.lastBeat = now
	token := s.client.Publish(s.cfg.MqttBase+"/status", 1, true, payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			// The next Step's IsConnected check picks up a dead link;
			// here we only record the failed publish.
			logging.Warn("Status publish failed", zap.Error(err))
		}
	}()
}

// subscribeCommands subscribes {base}/cmd and routes recognized payloads
// to the command callback.
func (s *Session) subscribeCommands() {
	topic := s.cfg.MqttBase + "/cmd"
	token := s.client.Subscribe(topic, 1, func(_ string, payload []byte) {
		cmd := strings.ToLower(strings.TrimSpace(string(payload)))
		switch cmd {
		case "feed", "restart":
			s.onCommand(cmd)
		default:
			logging.Debug("Ignoring unrecognized command", zap.String("payload", cmd))
		}
	})
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			logging.Warn("Command subscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
}

// beginRetry drops the client and waits out the retry interval.
func (s *Session) beginRetry(now time.Time) {
	if s.client != nil {
		s.client.Disconnect(100)
		s.client = nil
	}
	s.retryStart = now
	s.setState(Retrying)
}

// Shutdown closes any live connection and forces Idle. Called on clean
// restart and daemon shutdown so the broker sees a graceful disconnect
// instead of the last-will firing.
func (s *Session) Shutdown() {
	s.teardown()
}

// teardown closes any connection and forces Idle.
func (s *Session) teardown() {
	if s.client != nil {
		s.client.Disconnect(100)
		s.client = nil
	}
	s.connectToken = nil
	s.setState(Idle)
}

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	logging.LogStateChange("mqtt", s.state.String(), next.String())
	s.state = next
}
