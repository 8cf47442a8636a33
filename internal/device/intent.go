package device

import "github.com/IM-Lab-france/fishfeeder/internal/config"

// IntentKind identifies a normalized request. All input sources (button,
// HTTP, MQTT) produce the same intents, consumed at one dispatch point.
type IntentKind int

const (
	// FeedIntent requests one feed cycle.
	FeedIntent IntentKind = iota
	// RestartIntent requests a clean restart. Deferred while a feed cycle
	// is active.
	RestartIntent
	// ForceAPIntent forces access point mode for re-provisioning.
	ForceAPIntent
	// ConfigIntent requests a validated configuration update.
	ConfigIntent
)

// String returns a human-readable intent name.
func (k IntentKind) String() string {
	switch k {
	case FeedIntent:
		return "feed"
	case RestartIntent:
		return "restart"
	case ForceAPIntent:
		return "force_ap"
	case ConfigIntent:
		return "config"
	default:
		return "unknown"
	}
}

// intentResult answers a synchronous request. Cfg is the full record after
// a config apply.
type intentResult struct {
	cfg config.DeviceConfig
	err error
}

// intent is one queued request. reply, if non-nil, receives exactly one
// result; fire-and-forget sources (button, MQTT) leave it nil.
type intent struct {
	kind   IntentKind
	source string
	update config.Update
	reply  chan intentResult
}
