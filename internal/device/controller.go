package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/IM-Lab-france/fishfeeder/internal/button"
	"github.com/IM-Lab-france/fishfeeder/internal/config"
	"github.com/IM-Lab-france/fishfeeder/internal/feeder"
	"github.com/IM-Lab-france/fishfeeder/internal/logging"
	"github.com/IM-Lab-france/fishfeeder/internal/mqtt"
	"github.com/IM-Lab-france/fishfeeder/internal/wifi"
)

const (
	// DefaultPollInterval is the tick period of the control loop. It must
	// stay well under the button debounce window.
	DefaultPollInterval = 20 * time.Millisecond

	// requestTimeout bounds how long a synchronous caller (HTTP handler)
	// waits for the loop to answer.
	requestTimeout = 2 * time.Second

	// intentQueueSize bounds the pending intent backlog.
	intentQueueSize = 32
)

// ErrUnresponsive reports that the control loop did not answer a request
// in time.
var ErrUnresponsive = errors.New("device controller not responding")

// Controller is the orchestrator: a single cooperative loop that polls the
// button, advances the connectivity and broker state machines, and
// dispatches intents. It is the only component that applies config
// updates, starts feed cycles, or forces the access point override, which
// serializes all effectful actions through one place.
type Controller struct {
	store    *config.Store
	monitor  *button.Monitor
	actuator *feeder.Actuator
	conn     *wifi.Manager
	session  *mqtt.Session

	intents chan intent

	// restartFn performs the actual process restart once the loop has
	// flushed. Injected so tests can observe it.
	restartFn func()

	restartPending bool
	bootTime       time.Time
	lastPublished  stateKey

	statusMu sync.RWMutex
	status   Status
}

// stateKey is the composite state whose change triggers a status publish.
type stateKey struct {
	wifi    wifi.State
	mqtt    mqtt.State
	feeding bool
}

// New wires the controller. restartFn is invoked after a restart intent
// has drained (no feed cycle active); it normally terminates the process.
func New(store *config.Store, monitor *button.Monitor, actuator *feeder.Actuator, conn *wifi.Manager, session *mqtt.Session, restartFn func()) *Controller {
	c := &Controller{
		store:     store,
		monitor:   monitor,
		actuator:  actuator,
		conn:      conn,
		session:   session,
		intents:   make(chan intent, intentQueueSize),
		restartFn: restartFn,
		bootTime:  time.Now(),
	}
	c.refreshStatus(time.Now())
	return c
}

// RequestFeed enqueues a feed intent and waits for the dispatch decision.
// Returns feeder.ErrBusy if a cycle is already running.
func (c *Controller) RequestFeed(source string) error {
	_, err := c.request(intent{kind: FeedIntent, source: source})
	return err
}

// RequestRestart enqueues a restart intent. The restart itself is deferred
// until no feed cycle is active.
func (c *Controller) RequestRestart(source string) error {
	_, err := c.request(intent{kind: RestartIntent, source: source})
	return err
}

// ApplyConfig routes a config update through the loop's single dispatch
// point and returns the full record after a successful apply.
func (c *Controller) ApplyConfig(source string, u config.Update) (config.DeviceConfig, error) {
	return c.request(intent{kind: ConfigIntent, source: source, update: u})
}

// EnqueueCommand translates a broker command payload into an intent. Used
// as the MQTT session's command callback; fire-and-forget, failures are
// observable only via the next status publish.
func (c *Controller) EnqueueCommand(cmd string) {
	var kind IntentKind
	switch cmd {
	case "feed":
		kind = FeedIntent
	case "restart":
		kind = RestartIntent
	default:
		return
	}
	select {
	case c.intents <- intent{kind: kind, source: "mqtt"}:
	default:
		logging.Warn("Intent queue full, dropping broker command", zap.String("cmd", cmd))
	}
}

// request enqueues an intent with a reply channel and waits for the loop.
func (c *Controller) request(in intent) (config.DeviceConfig, error) {
	in.reply = make(chan intentResult, 1)
	select {
	case c.intents <- in:
	default:
		return config.DeviceConfig{}, ErrUnresponsive
	}

	select {
	case res := <-in.reply:
		return res.cfg, res.err
	case <-time.After(requestTimeout):
		return config.DeviceConfig{}, ErrUnresponsive
	}
}

// Run drives the loop until the context is cancelled or a restart intent
// completes.
func (c *Controller) Run(ctx context.Context, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	logging.Info("Device controller started",
		zap.Duration("poll_interval", pollInterval),
	)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.session.Shutdown()
			logging.Info("Device controller stopped")
			return nil
		case now := <-ticker.C:
			if restarted := c.Tick(now); restarted {
				return nil
			}
		}
	}
}

// Tick runs one iteration of the loop. Exported for tests, which drive it
// with synthetic timestamps instead of a ticker. Returns true once a
// restart has been performed.
func (c *Controller) Tick(now time.Time) bool {
	// 1. Physical button.
	ev, err := c.monitor.Poll(now)
	if err != nil {
		logging.Warn("Button poll failed", zap.Error(err))
	}
	switch ev {
	case button.ShortPress:
		logging.LogIntent(FeedIntent.String(), "button")
		if ferr := c.dispatchFeed(); ferr != nil {
			logging.Info("Button feed rejected", zap.Error(ferr))
		}
	case button.LongPress:
		logging.LogIntent(ForceAPIntent.String(), "button")
		c.conn.ForceAccessPoint(now)
	}

	// 2. Queued intents from HTTP and MQTT.
	c.drainIntents(now)

	// 3. Advance the connectivity and broker state machines.
	c.conn.Step(now)
	online := c.conn.State() == wifi.ConnectedStation
	c.session.Step(now, online)

	// 4. Status: publish on composite state change and on heartbeat.
	key := stateKey{wifi: c.conn.State(), mqtt: c.session.State(), feeding: c.actuator.Busy()}
	if key != c.lastPublished || c.session.HeartbeatDue(now) {
		c.refreshStatus(now)
		c.session.PublishStatus(now, c.statusJSON())
		c.lastPublished = key
	} else {
		c.refreshStatus(now)
	}

	// 5. Deferred restart once no feed cycle is active.
	if c.restartPending && !c.actuator.Busy() {
		c.performRestart()
		return true
	}
	return false
}

// drainIntents handles everything queued since the last tick, in order.
// At most one feed is dispatched per tick; the rest get a busy rejection.
func (c *Controller) drainIntents(now time.Time) {
	fedThisTick := false
	for {
		select {
		case in := <-c.intents:
			c.handleIntent(now, in, &fedThisTick)
		default:
			return
		}
	}
}

func (c *Controller) handleIntent(now time.Time, in intent, fedThisTick *bool) {
	logging.LogIntent(in.kind.String(), in.source)

	var res intentResult
	switch in.kind {
	case FeedIntent:
		if *fedThisTick {
			res.err = feeder.ErrBusy
		} else if res.err = c.dispatchFeed(); res.err == nil {
			*fedThisTick = true
		}

	case RestartIntent:
		c.restartPending = true

	case ForceAPIntent:
		c.conn.ForceAccessPoint(now)

	case ConfigIntent:
		res.cfg, res.err = c.applyConfig(now, in.update)
	}

	if in.reply != nil {
		in.reply <- res
	}
}

// dispatchFeed starts a feed cycle with a fresh config snapshot. The
// actuator runs the motion in the background; the busy decision is
// synchronous.
func (c *Controller) dispatchFeed() error {
	if c.restartPending {
		return fmt.Errorf("restart pending, feed rejected")
	}
	return c.actuator.Start(c.store.Snapshot())
}

// applyConfig is the single writer of the config store. Accepted changes
// are propagated to the components whose settings moved.
func (c *Controller) applyConfig(now time.Time, u config.Update) (config.DeviceConfig, error) {
	cfg, err := c.store.Apply(u)
	if err != nil {
		return cfg, err
	}

	if u.TouchesWifi() {
		// New credentials: drop the current association and start over.
		// The original appliance rebooted here; reconnecting in place has
		// the same observable effect without killing in-flight requests.
		c.conn.SetCredentials(cfg.WifiSSID, cfg.WifiPass)
		c.conn.Reconnect()
	}
	if u.TouchesMqtt() {
		c.session.Reconfigure(cfg)
	}

	c.refreshStatus(now)
	return cfg, nil
}

// performRestart flushes and invokes the restart hook. Config persistence
// is synchronous on every apply, so there is nothing left to write.
func (c *Controller) performRestart() {
	logging.Info("Performing clean restart")
	c.restartPending = false
	c.session.Shutdown()
	c.restartFn()
}
