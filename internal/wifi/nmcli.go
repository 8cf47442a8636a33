package wifi

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/IM-Lab-france/fishfeeder/internal/logging"
)

// hotspotConnection is the NetworkManager connection name used for the
// self-hosted access point.
const hotspotConnection = "fishfeeder-ap"

// statusRefreshInterval throttles the background nmcli link queries while
// the station link is up. Link loss is noticed within this interval.
const statusRefreshInterval = time.Second

// commandRunner executes an external command and returns its combined
// output. Swapped out by tests.
type commandRunner func(name string, args ...string) (string, error)

func runCommand(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	return string(out), err
}

// NmcliBackend drives WiFi through NetworkManager's nmcli tool. Every
// nmcli invocation runs in a background goroutine: StartConnect returns
// immediately, and Status returns the last recorded link state, refreshing
// it asynchronously at most once per statusRefreshInterval. The poll loop
// never waits on a subprocess.
type NmcliBackend struct {
	iface string
	run   commandRunner
	now   func() time.Time

	mu          sync.Mutex
	pending     bool       // association attempt in flight
	result      LinkStatus // last recorded link state
	refreshing  bool       // background status query in flight
	lastRefresh time.Time
}

// NewNmcliBackend creates a backend controlling the given wireless
// interface (e.g. "wlan0").
func NewNmcliBackend(iface string) *NmcliBackend {
	return &NmcliBackend{iface: iface, run: runCommand, now: time.Now, result: LinkIdle}
}

// StartConnect begins association in the background.
func (b *NmcliBackend) StartConnect(ssid, pass string) error {
	b.mu.Lock()
	if b.pending {
		b.mu.Unlock()
		return fmt.Errorf("association attempt already in flight")
	}
	b.pending = true
	b.result = LinkConnecting
	b.mu.Unlock()

	go func() {
		args := []string{"dev", "wifi", "connect", ssid, "ifname", b.iface}
		if pass != "" {
			args = append(args, "password", pass)
		}
		out, err := b.run("nmcli", args...)

		b.mu.Lock()
		b.pending = false
		if err != nil {
			b.result = LinkFailed
		} else {
			b.result = LinkUp
			b.lastRefresh = b.now()
		}
		b.mu.Unlock()

		if err != nil {
			logging.Warn("nmcli association failed",
				zap.String("ssid", ssid),
				zap.String("output", strings.TrimSpace(out)),
				zap.Error(err),
			)
		}
	}()

	return nil
}

// Status reports the last recorded link state without blocking. While the
// link is up, a background nmcli query refreshes the record at most once
// per statusRefreshInterval so external link loss is noticed within that
// interval; the caller always gets the cached value immediately.
func (b *NmcliBackend) Status() (LinkStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending {
		return LinkConnecting, nil
	}
	if b.result != LinkUp {
		return b.result, nil
	}

	if !b.refreshing && b.now().Sub(b.lastRefresh) >= statusRefreshInterval {
		b.refreshing = true
		go b.refreshStatus()
	}
	return LinkUp, nil
}

// refreshStatus queries the device state in the background and downgrades
// the recorded link state if the association is gone.
func (b *NmcliBackend) refreshStatus() {
	out, err := b.run("nmcli", "-t", "-f", "GENERAL.STATE", "dev", "show", b.iface)
	up := err == nil && strings.Contains(out, "(connected)")

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshing = false
	b.lastRefresh = b.now()

	// A new attempt may have started while the query ran; its outcome
	// supersedes this one.
	if b.pending || b.result != LinkUp {
		return
	}
	if !up {
		b.result = LinkFailed
		logging.Warn("Station link lost",
			zap.String("iface", b.iface),
			zap.Error(err),
		)
	}
}

// Disconnect drops the station association.
func (b *NmcliBackend) Disconnect() error {
	b.mu.Lock()
	b.result = LinkIdle
	b.mu.Unlock()

	if _, err := b.run("nmcli", "dev", "disconnect", b.iface); err != nil {
		return fmt.Errorf("nmcli disconnect failed: %w", err)
	}
	return nil
}

// StartAccessPoint brings up an open hotspot with the given SSID.
func (b *NmcliBackend) StartAccessPoint(ssid string) error {
	out, err := b.run("nmcli", "dev", "wifi", "hotspot",
		"ifname", b.iface,
		"con-name", hotspotConnection,
		"ssid", ssid,
	)
	if err != nil {
		return fmt.Errorf("nmcli hotspot failed: %s: %w", strings.TrimSpace(out), err)
	}
	logging.Info("Access point started", zap.String("ssid", ssid))
	return nil
}

// StopAccessPoint tears the hotspot down.
func (b *NmcliBackend) StopAccessPoint() error {
	if _, err := b.run("nmcli", "connection", "down", hotspotConnection); err != nil {
		return fmt.Errorf("nmcli hotspot teardown failed: %w", err)
	}
	logging.Info("Access point stopped")
	return nil
}
