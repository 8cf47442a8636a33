package wifi

import (
	"time"

	"go.uber.org/zap"

	"github.com/IM-Lab-france/fishfeeder/internal/logging"
)

const (
	// ConnectTimeout bounds a single station association attempt.
	ConnectTimeout = 10 * time.Second

	// RetryInterval paces station retries after a failure or link loss.
	RetryInterval = 15 * time.Second

	// APSSIDPrefix prefixes the self-hosted network name; a device-unique
	// suffix is appended.
	APSSIDPrefix = "FishFeeder-"
)

// State is the connectivity state machine's current state.
type State int

const (
	// Disconnected means no link and no attempt in flight.
	Disconnected State = iota
	// ConnectingStation means a station association attempt is in flight.
	ConnectingStation
	// ConnectedStation means the device is joined to the configured
	// network. MQTT and mDNS announcement operate only in this state.
	ConnectedStation
	// AccessPointMode means the device hosts its own network so the
	// configuration page stays reachable. Station retries continue in the
	// background without dropping the access point.
	AccessPointMode
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case ConnectingStation:
		return "connecting"
	case ConnectedStation:
		return "connected"
	case AccessPointMode:
		return "access_point"
	default:
		return "unknown"
	}
}

// Manager owns the WiFi association lifecycle: join the configured network
// with a timeout, fall back to a self-hosted access point, and retry
// station mode periodically without dropping the access point until a
// replacement link is confirmed.
//
// Step is called once per poll tick by the controller and performs at most
// one transition or I/O attempt; nothing blocks. Only one association
// attempt is ever in flight.
type Manager struct {
	backend Backend
	state   State

	ssid string
	pass string

	apSSID string
	apUp   bool

	attemptActive bool
	attemptStart  time.Time
	lastAttempt   time.Time

	// forced is set by the long-press override; it suppresses automatic
	// station retries until new credentials arrive, so the device stays
	// provisionable.
	forced bool
}

// NewManager creates a manager with the given backend, access point SSID,
// and initial station credentials (empty SSID means unconfigured).
func NewManager(backend Backend, apSSID, ssid, pass string) *Manager {
	return &Manager{backend: backend, state: Disconnected, apSSID: apSSID, ssid: ssid, pass: pass}
}

// State returns the current connectivity state.
func (m *Manager) State() State {
	return m.state
}

// APSSID returns the name of the self-hosted network.
func (m *Manager) APSSID() string {
	return m.apSSID
}

// APActive reports whether the access point is currently up.
func (m *Manager) APActive() bool {
	return m.apUp
}

// SetCredentials installs new station credentials and clears the manual
// override. The next Step acts on them; call Reconnect to drop an existing
// association first.
func (m *Manager) SetCredentials(ssid, pass string) {
	m.ssid = ssid
	m.pass = pass
	m.forced = false
}

// Reconnect drops any current association or attempt so the next Step
// starts fresh with the current credentials. The access point, if up,
// stays up.
func (m *Manager) Reconnect() {
	if err := m.backend.Disconnect(); err != nil {
		logging.Warn("Disconnect for reconnect failed", zap.Error(err))
	}
	m.attemptActive = false
	m.lastAttempt = time.Time{}
	if m.state != AccessPointMode {
		m.setState(Disconnected)
	}
}

// ForceAccessPoint is the long-press override: tear down any station
// association and host the access point immediately, from any state.
// Automatic station retries stay suspended until credentials change.
func (m *Manager) ForceAccessPoint(now time.Time) {
	if err := m.backend.Disconnect(); err != nil {
		logging.Warn("Station teardown for AP override failed", zap.Error(err))
	}
	m.attemptActive = false
	m.forced = true
	m.lastAttempt = now
	m.enterAP()
}

// Step advances the state machine by at most one transition.
func (m *Manager) Step(now time.Time) {
	switch m.state {
	case Disconnected:
		if m.ssid == "" {
			m.enterAP()
			return
		}
		if m.lastAttempt.IsZero() || now.Sub(m.lastAttempt) >= RetryInterval {
			m.startAttempt(now)
		}

	case ConnectingStation:
		m.checkAttempt(now)

	case ConnectedStation:
		st, err := m.backend.Status()
		if err != nil || st != LinkUp {
			logging.LogStateChange("wifi", m.state.String(), Disconnected.String(),
				zap.String("reason", "link lost"))
			m.state = Disconnected
			m.lastAttempt = now
		}

	case AccessPointMode:
		if !m.apUp {
			// AP bring-up failed earlier; keep trying, it is the only
			// path to the device.
			m.enterAP()
			return
		}
		if m.attemptActive {
			m.checkAttempt(now)
			return
		}
		if m.ssid != "" && !m.forced && now.Sub(m.lastAttempt) >= RetryInterval {
			m.startAttempt(now)
		}
	}
}

// startAttempt begins one association attempt. In access point mode the
// state stays AccessPointMode while the attempt runs in the background.
func (m *Manager) startAttempt(now time.Time) {
	m.attemptStart = now
	m.lastAttempt = now
	if err := m.backend.StartConnect(m.ssid, m.pass); err != nil {
		logging.Warn("Association attempt failed to start",
			zap.String("ssid", m.ssid),
			zap.Error(err),
		)
		m.failAttempt(now)
		return
	}
	m.attemptActive = true
	if m.state != AccessPointMode {
		m.setState(ConnectingStation)
	}
}

// checkAttempt polls the outcome of an in-flight attempt.
func (m *Manager) checkAttempt(now time.Time) {
	st, err := m.backend.Status()
	if err != nil {
		m.failAttempt(now)
		return
	}

	switch st {
	case LinkUp:
		m.confirmStation()
	case LinkFailed:
		m.failAttempt(now)
	default:
		if now.Sub(m.attemptStart) >= ConnectTimeout {
			if derr := m.backend.Disconnect(); derr != nil {
				logging.Warn("Attempt cancel failed", zap.Error(derr))
			}
			m.failAttempt(now)
		}
	}
}

// confirmStation commits a successful association. Only now, with the
// replacement link confirmed, is the access point torn down.
func (m *Manager) confirmStation() {
	m.attemptActive = false
	if m.apUp {
		if err := m.backend.StopAccessPoint(); err != nil {
			logging.Warn("Access point teardown failed", zap.Error(err))
		}
		m.apUp = false
	}
	m.setState(ConnectedStation)
}

// failAttempt records a failed or timed-out attempt and falls back to the
// access point so the device stays reachable.
func (m *Manager) failAttempt(now time.Time) {
	m.attemptActive = false
	m.lastAttempt = now
	m.enterAP()
}

// enterAP brings up the self-hosted network if needed and enters
// AccessPointMode.
func (m *Manager) enterAP() {
	if !m.apUp {
		if err := m.backend.StartAccessPoint(m.apSSID); err != nil {
			logging.Error("Access point bring-up failed", zap.Error(err))
		} else {
			m.apUp = true
		}
	}
	m.setState(AccessPointMode)
}

func (m *Manager) setState(next State) {
	if m.state == next {
		return
	}
	logging.LogStateChange("wifi", m.state.String(), next.String())
	m.state = next
}
