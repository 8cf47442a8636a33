package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/IM-Lab-france/fishfeeder/internal/config"
)

// Token tracks an asynchronous broker operation. It mirrors the paho token
// surface the session needs, so tests can script outcomes.
type Token interface {
	Done() <-chan struct{}
	Error() error
}

// Client is the narrow broker client surface the session drives. The real
// implementation wraps paho; tests substitute a fake.
type Client interface {
	Connect() Token
	Publish(topic string, qos byte, retained bool, payload []byte) Token
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) Token
	Disconnect(quiesceMs uint)
	IsConnected() bool
}

// ClientFactory builds a Client for the given broker settings. A fresh
// client is built per connection attempt so configuration changes take
// effect on the next connect.
type ClientFactory func(cfg config.DeviceConfig, clientID string) Client

// pahoToken adapts a paho token.
type pahoToken struct{ t pahomqtt.Token }

func (p pahoToken) Done() <-chan struct{} { return p.t.Done() }
func (p pahoToken) Error() error          { return p.t.Error() }

// pahoClient adapts a paho client.
type pahoClient struct{ c pahomqtt.Client }

// NewPahoClient builds the production client. Auto-reconnect and connect
// retry are disabled: the session state machine owns retry policy. The
// last-will publishes an offline status so watchers notice ungraceful
// drops.
func NewPahoClient(cfg config.DeviceConfig, clientID string) Client {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MqttHost, cfg.MqttPort))
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetWill(cfg.MqttBase+"/status", `{"online":false}`, 1, true)

	// Empty user means anonymous connect.
	if cfg.MqttUser != "" {
		opts.SetUsername(cfg.MqttUser)
		opts.SetPassword(cfg.MqttPass)
	}

	return &pahoClient{c: pahomqtt.NewClient(opts)}
}

func (p *pahoClient) Connect() Token {
	return pahoToken{t: p.c.Connect()}
}

func (p *pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) Token {
	return pahoToken{t: p.c.Publish(topic, qos, retained, payload)}
}

func (p *pahoClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) Token {
	h := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	}
	return pahoToken{t: p.c.Subscribe(topic, qos, h)}
}

func (p *pahoClient) Disconnect(quiesceMs uint) {
	p.c.Disconnect(quiesceMs)
}

func (p *pahoClient) IsConnected() bool {
	return p.c.IsConnected()
}
