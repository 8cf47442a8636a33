package wifi

// LinkStatus is the instantaneous station link status reported by a
// Backend. The manager turns these raw readings into state transitions.
type LinkStatus int

const (
	// LinkIdle means no association attempt is active.
	LinkIdle LinkStatus = iota
	// LinkConnecting means an association attempt is in flight.
	LinkConnecting
	// LinkUp means the station is associated and has connectivity.
	LinkUp
	// LinkFailed means the last association attempt failed.
	LinkFailed
)

// String returns a human-readable status name.
func (s LinkStatus) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkConnecting:
		return "connecting"
	case LinkUp:
		return "up"
	case LinkFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Backend abstracts the platform's WiFi control plane. All methods are
// attempt-and-check: StartConnect begins association and returns
// immediately; the manager polls Status on subsequent ticks. The backend
// must support running the access point and a station attempt
// concurrently, because the AP is never torn down until a replacement
// station link is confirmed.
type Backend interface {
	// StartConnect begins associating with the given network.
	StartConnect(ssid, pass string) error
	// Status reports the current station link status.
	Status() (LinkStatus, error)
	// Disconnect drops any station association or in-flight attempt.
	Disconnect() error
	// StartAccessPoint brings up the self-hosted network.
	StartAccessPoint(ssid string) error
	// StopAccessPoint tears the self-hosted network down.
	StopAccessPoint() error
}
