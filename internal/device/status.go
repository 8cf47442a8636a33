package device

import (
	"encoding/json"
	"time"

	"github.com/IM-Lab-france/fishfeeder/internal/config"
)

// Status is the device status document served on /status and published to
// {base}/status. The embedded config fields marshal flat, matching the
// field names the configuration page reads.
type Status struct {
	config.DeviceConfig

	ServoMinAngle int `json:"servoMinAngle"`
	ServoMaxAngle int `json:"servoMaxAngle"`

	WifiState string `json:"wifiState"`
	MqttState string `json:"mqttState"`
	ApSsid    string `json:"apSsid"`
	Feeding   bool   `json:"feeding"`
	Online    bool   `json:"online"`

	UptimeSeconds int64 `json:"uptimeSeconds"`
}

// Status returns the latest status snapshot. Safe from any goroutine; the
// HTTP handlers read this while the loop runs.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// refreshStatus rebuilds the snapshot from the loop's current view.
func (c *Controller) refreshStatus(now time.Time) {
	st := Status{
		DeviceConfig:  c.store.Snapshot(),
		ServoMinAngle: config.MinAngleDeg,
		ServoMaxAngle: config.MaxAngleDeg,
		WifiState:     c.conn.State().String(),
		MqttState:     c.session.State().String(),
		ApSsid:        c.conn.APSSID(),
		Feeding:       c.actuator.Busy(),
		Online:        true,
		UptimeSeconds: int64(now.Sub(c.bootTime).Seconds()),
	}
	c.statusMu.Lock()
	c.status = st
	c.statusMu.Unlock()
}

// statusJSON marshals the current snapshot for the broker publish.
func (c *Controller) statusJSON() []byte {
	data, _ := json.Marshal(c.Status())
	return data
}
